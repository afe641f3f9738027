package denoise

import "math"

// WaveformPoints is the number of decimated points computed per block
// for the UI waveform display (spec.md §4.4 stage 6).
const WaveformPoints = 100

// Snapshot is the non-real-time UI hand-off payload: a level/waveform
// summary of the most recently processed block, computed from both the
// pre- and post-denoise audio, plus the optional voice-activity signal
// (see internal/vad). It carries no data the consumer side depends on.
type Snapshot struct {
	PreRMS          float32
	PostRMS         float32
	PreWaveform     [WaveformPoints]float32
	PostWaveform    [WaveformPoints]float32
	SpeechDetected  bool
	SpeechAvailable bool // false if no VAD detector is configured
}

// rms computes the root-mean-square of an interleaved multi-channel
// block across all channels.
func rms(block []float32) float32 {
	if len(block) == 0 {
		return 0
	}
	var sum float64
	for _, s := range block {
		sum += float64(s) * float64(s)
	}
	return float32(math.Sqrt(sum / float64(len(block))))
}

// decimateWaveform downsamples an interleaved multi-channel block to
// WaveformPoints magnitude samples, averaging across channels and across
// the frames each output point covers.
func decimateWaveform(block []float32, channels int) [WaveformPoints]float32 {
	var out [WaveformPoints]float32

	frames := len(block) / channels
	if frames == 0 {
		return out
	}

	framesPerPoint := float64(frames) / float64(WaveformPoints)
	for i := 0; i < WaveformPoints; i++ {
		start := int(float64(i) * framesPerPoint)
		end := int(float64(i+1) * framesPerPoint)
		if end <= start {
			end = start + 1
		}
		if end > frames {
			end = frames
		}
		if start >= frames {
			out[i] = out[maxInt(i-1, 0)]
			continue
		}

		var sum float32
		count := 0
		for f := start; f < end; f++ {
			for c := 0; c < channels; c++ {
				v := block[f*channels+c]
				if v < 0 {
					v = -v
				}
				sum += v
				count++
			}
		}
		if count > 0 {
			out[i] = sum / float32(count)
		}
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
