package denoise

// Resampler performs linear-interpolation resampling of interleaved
// multi-channel Float32 audio. Each call interpolates over its own input
// only: positions restart at the call's first frame and the last frame
// is held at the edge. The trailing sample of each channel is recorded
// after every call but does not enter the next call's output. It is
// adapted from the voice
// assistant teacher's mono Resampler (internal/audio/resampler.go),
// generalized to the channel count the capture device reports (stage 1
// of the denoise pipeline runs before deinterleaving, so it must handle
// whatever interleaving the capture collaborator hands it).
type Resampler struct {
	fromRate    float64
	toRate      float64
	ratio       float64
	channels    int
	lastSamples []float32 // one trailing sample per channel
}

// NewResampler creates a resampler converting fromRate Hz to toRate Hz
// for interleaved audio with the given channel count.
func NewResampler(fromRate, toRate, channels int) *Resampler {
	return &Resampler{
		fromRate:    float64(fromRate),
		toRate:      float64(toRate),
		ratio:       float64(toRate) / float64(fromRate),
		channels:    channels,
		lastSamples: make([]float32, channels),
	}
}

// Resample converts interleaved input samples (length a multiple of
// channels) to the target rate. Output length is
// floor(inputFrames * ratio) frames, per spec.
func (r *Resampler) Resample(input []float32) []float32 {
	if r.ratio == 1.0 || len(input) == 0 {
		return input
	}

	inputFrames := len(input) / r.channels
	outputFrames := int(float64(inputFrames) * r.ratio)
	output := make([]float32, outputFrames*r.channels)

	for i := 0; i < outputFrames; i++ {
		srcPos := float64(i) / r.ratio
		srcFrame := int(srcPos)
		frac := float32(srcPos - float64(srcFrame))

		for c := 0; c < r.channels; c++ {
			sample1 := r.lastSamples[c]
			if srcFrame < inputFrames {
				sample1 = input[srcFrame*r.channels+c]
			}

			sample2 := sample1
			if srcFrame+1 < inputFrames {
				sample2 = input[(srcFrame+1)*r.channels+c]
			} else if srcFrame < inputFrames {
				sample2 = input[(inputFrames-1)*r.channels+c]
			}

			output[i*r.channels+c] = sample1 + (sample2-sample1)*frac
		}
	}

	if inputFrames > 0 {
		for c := 0; c < r.channels; c++ {
			r.lastSamples[c] = input[(inputFrames-1)*r.channels+c]
		}
	}

	return output
}
