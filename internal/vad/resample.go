package vad

import "math"

// antiAliasResampler downsamples mono audio ahead of the Silero VAD
// model using a windowed-sinc FIR filter, avoiding the aliasing a plain
// linear-interpolation decimation would fold into the VAD's input band.
// Upsampling (a rarer case for a microphone-capture source) falls back
// to linear interpolation, which introduces no aliasing of its own.
//
// Adapted from the teacher's internal/audio.PolyphaseResampler, which
// served the same purpose ahead of Whisper transcription (48kHz ->
// 16kHz); this is unrelated to, and independent from, denoise.Resampler,
// which the transport's own stage 1 resampling must keep as plain linear
// interpolation per its wire contract.
type antiAliasResampler struct {
	ratio      float64
	filterLen  int
	filter     []float32
	history    []float32
	lastSample float32
}

// newAntiAliasResampler builds a resampler from fromRate to toRate.
func newAntiAliasResampler(fromRate, toRate int) *antiAliasResampler {
	ratio := float64(toRate) / float64(fromRate)

	const filterLen = 64
	cutoff := 0.5
	if ratio < 1.0 {
		cutoff = ratio * 0.5
	}

	filter := make([]float32, filterLen)
	for i := 0; i < filterLen; i++ {
		n := float64(i) - float64(filterLen-1)/2.0
		if n == 0 {
			filter[i] = float32(2.0 * cutoff)
		} else {
			sinc := math.Sin(2.0*math.Pi*cutoff*n) / (math.Pi * n)
			window := 0.54 - 0.46*math.Cos(2.0*math.Pi*float64(i)/float64(filterLen-1))
			filter[i] = float32(sinc * window)
		}
	}
	var sum float32
	for _, f := range filter {
		sum += f
	}
	for i := range filter {
		filter[i] /= sum
	}

	return &antiAliasResampler{
		ratio:     ratio,
		filterLen: filterLen,
		filter:    filter,
		history:   make([]float32, filterLen),
	}
}

// process resamples one capture callback's worth of mono samples.
func (r *antiAliasResampler) process(input []float32) []float32 {
	if r.ratio == 1.0 || len(input) == 0 {
		return input
	}
	if r.ratio > 1.0 {
		return r.upsample(input)
	}
	return r.downsample(input)
}

func (r *antiAliasResampler) upsample(input []float32) []float32 {
	inputLen := len(input)
	outputLen := int(float64(inputLen) * r.ratio)
	output := make([]float32, outputLen)

	for i := 0; i < outputLen; i++ {
		srcPos := float64(i) / r.ratio
		srcIdx := int(srcPos)
		frac := float32(srcPos - float64(srcIdx))

		sample1 := r.lastSample
		if srcIdx < inputLen {
			sample1 = input[srcIdx]
		}
		sample2 := sample1
		if srcIdx+1 < inputLen {
			sample2 = input[srcIdx+1]
		} else if srcIdx < inputLen {
			sample2 = input[inputLen-1]
		}

		output[i] = sample1 + (sample2-sample1)*frac
	}

	r.lastSample = input[inputLen-1]
	return output
}

func (r *antiAliasResampler) downsample(input []float32) []float32 {
	inputLen := len(input)
	outputLen := int(float64(inputLen) * r.ratio)
	output := make([]float32, outputLen)

	combined := append(append([]float32(nil), r.history...), input...)

	for i := 0; i < outputLen; i++ {
		srcPos := float64(i) / r.ratio
		srcIdx := int(srcPos) + len(r.history)

		var sample float32
		for j := 0; j < r.filterLen; j++ {
			idx := srcIdx - r.filterLen/2 + j
			if idx >= 0 && idx < len(combined) {
				sample += combined[idx] * r.filter[j]
			}
		}
		output[i] = sample
	}

	if inputLen >= r.filterLen {
		copy(r.history, input[inputLen-r.filterLen:])
	} else {
		shift := r.filterLen - inputLen
		copy(r.history, r.history[inputLen:])
		copy(r.history[shift:], input)
	}

	return output
}
