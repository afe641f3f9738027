// Package denoise assembles captured audio into the 48kHz stereo
// Float32 stream the shared channel carries: resampling, accumulating,
// extracting fixed-size frames, running a per-channel transform, and
// publishing to the producer writer (spec.md §4.4).
package denoise

import (
	"log"

	"github.com/micnoisegate/micnoisegate/internal/channel"
)

// frameScale converts the ±1.0 Float32 domain to/from the ±32767 domain
// a frame transform (e.g. a real neural denoiser) typically expects.
const frameScale = 32767.0

// Writer is the subset of producer.Writer the pipeline needs. Declared
// here (rather than imported) so denoise has no dependency on the
// producer package's lifecycle/attach concerns — it only ever pushes
// frames.
type Writer interface {
	WriteFrames(samples []float32, n int) bool
}

// SpeechDetector is the subset of vad.Detector the pipeline optionally
// uses for the UI snapshot's voice-activity signal (internal/vad).
type SpeechDetector interface {
	Detect(monoBlock []float32, sampleRate int) bool
}

// Pipeline turns captured audio into 480-frame stereo blocks and
// publishes them to a Writer, per spec.md §4.4. One Pipeline exists per
// capture session. Reset discards accumulated samples and resampler
// state; it does not touch the transform, whose state is renewed by
// building a new Pipeline with a fresh FrameTransform.
type Pipeline struct {
	captureRate     int
	captureChannels int
	transform       FrameTransform
	writer          Writer
	detector        SpeechDetector // optional, may be nil

	resampler   *Resampler
	accumulator []float32 // interleaved, captureChannels wide

	blocksWritten uint64
	blocksDropped uint64

	mailbox *Mailbox
}

// New creates a Pipeline for a capture device reporting captureRate Hz
// and captureChannels channels (1 or 2), writing DenoiseFrame-sized
// stereo blocks to writer through transform. detector may be nil.
func New(captureRate, captureChannels int, transform FrameTransform, writer Writer, detector SpeechDetector, mailbox *Mailbox) *Pipeline {
	p := &Pipeline{
		captureRate:     captureRate,
		captureChannels: captureChannels,
		transform:       transform,
		writer:          writer,
		detector:        detector,
		mailbox:         mailbox,
	}
	if captureRate != channel.SampleRate {
		p.resampler = NewResampler(captureRate, channel.SampleRate, captureChannels)
	}
	return p
}

// Process runs stages 1-6 on one capture callback's worth of samples
// (interleaved, captureChannels wide). It allocates working buffers
// (resampler output, accumulator growth, per-block copies) but never
// blocks: a full or detached channel causes the block to be dropped,
// not retried.
func (p *Pipeline) Process(samples []float32) {
	resampled := samples
	if p.resampler != nil {
		resampled = p.resampler.Resample(samples)
	}

	p.accumulator = append(p.accumulator, resampled...)

	frameLen := channel.DenoiseFrame * p.captureChannels
	for len(p.accumulator) >= frameLen {
		block := p.accumulator[:frameLen]
		p.processBlock(block)
		p.accumulator = append(p.accumulator[:0], p.accumulator[frameLen:]...)
	}
}

// processBlock runs stages 4-6 on exactly one DenoiseFrame-sized block
// in the capture's native channel layout.
func (p *Pipeline) processBlock(block []float32) {
	preBlock := append([]float32(nil), block...)

	perChannel := make([][]float32, p.captureChannels)
	for c := 0; c < p.captureChannels; c++ {
		mono := make([]float32, channel.DenoiseFrame)
		for f := 0; f < channel.DenoiseFrame; f++ {
			mono[f] = block[f*p.captureChannels+c] * frameScale
		}
		transformed := p.transform.Process(c, mono)
		for f := range transformed {
			transformed[f] /= frameScale
		}
		perChannel[c] = transformed
	}

	stereo := interleaveStereo(perChannel, p.captureChannels)

	if !p.writer.WriteFrames(stereo, channel.DenoiseFrame) {
		p.blocksDropped++
	} else {
		p.blocksWritten++
	}

	p.publishStats(preBlock, perChannel)
}

// interleaveStereo reinterleaves per-channel DenoiseFrame-length blocks
// into a stereo interleaved block, duplicating the single channel into
// L and R when the capture device is mono (spec.md §4.4 "Mono inputs").
func interleaveStereo(perChannel [][]float32, captureChannels int) []float32 {
	out := make([]float32, channel.DenoiseFrame*channel.Channels)
	if captureChannels == 1 {
		mono := perChannel[0]
		for f := 0; f < channel.DenoiseFrame; f++ {
			out[f*2] = mono[f]
			out[f*2+1] = mono[f]
		}
		return out
	}

	left, right := perChannel[0], perChannel[1]
	for f := 0; f < channel.DenoiseFrame; f++ {
		out[f*2] = left[f]
		out[f*2+1] = right[f]
	}
	return out
}

// publishStats computes stage 6's RMS/waveform from both pre- and
// post-denoise audio and, if a SpeechDetector is configured, the
// voice-activity signal, then publishes a Snapshot to the mailbox. This
// always runs on the same path as the rest of stage 6, never gating or
// blocking the write in processBlock above.
func (p *Pipeline) publishStats(preBlock []float32, postPerChannel [][]float32) {
	if p.mailbox == nil {
		return
	}

	postInterleaved := interleaveStereo(postPerChannel, p.captureChannels)

	snap := Snapshot{
		PreRMS:       rms(preBlock),
		PostRMS:      rms(postInterleaved),
		PreWaveform:  decimateWaveform(preBlock, p.captureChannels),
		PostWaveform: decimateWaveform(postInterleaved, channel.Channels),
	}

	if p.detector != nil {
		snap.SpeechAvailable = true
		snap.SpeechDetected = p.detector.Detect(postPerChannel[0], channel.SampleRate)
	}

	p.mailbox.Publish(snap)
}

// Reset discards accumulated samples. Callers must also reinitialize the
// FrameTransform's state (by constructing a fresh one) since a
// transform's internal state is not something this pipeline owns.
func (p *Pipeline) Reset() {
	p.accumulator = p.accumulator[:0]
	if p.resampler != nil {
		p.resampler = NewResampler(p.captureRate, channel.SampleRate, p.captureChannels)
	}
	log.Println("denoise: pipeline state reset")
}

// Stats returns the running block write/drop counters (diagnostics only).
func (p *Pipeline) Stats() (written, dropped uint64) {
	return p.blocksWritten, p.blocksDropped
}
