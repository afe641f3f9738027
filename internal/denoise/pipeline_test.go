package denoise

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/micnoisegate/micnoisegate/internal/channel"
	"github.com/micnoisegate/micnoisegate/internal/denoise/transform"
)

type fakeWriter struct {
	blocks [][]float32
	reject bool
}

func (w *fakeWriter) WriteFrames(samples []float32, n int) bool {
	if w.reject {
		return false
	}
	block := make([]float32, len(samples))
	copy(block, samples)
	w.blocks = append(w.blocks, block)
	return true
}

type fakeDetector struct {
	speech bool
	calls  int
}

func (d *fakeDetector) Detect(monoBlock []float32, sampleRate int) bool {
	d.calls++
	return d.speech
}

func stereoBlock(frames int, left, right float32) []float32 {
	out := make([]float32, frames*channel.Channels)
	for f := 0; f < frames; f++ {
		out[f*2] = left
		out[f*2+1] = right
	}
	return out
}

func TestPipelineWritesOneBlockPerDenoiseFrameWorthOfSamples(t *testing.T) {
	writer := &fakeWriter{}
	p := New(channel.SampleRate, channel.Channels, transform.NewPassthrough(channel.Channels), writer, nil, &Mailbox{})

	p.Process(stereoBlock(channel.DenoiseFrame, 0.5, -0.5))

	require.Len(t, writer.blocks, 1)
	assert.Len(t, writer.blocks[0], channel.DenoiseFrame*channel.Channels)
}

func TestPipelineAccumulatesPartialBlocksAcrossCalls(t *testing.T) {
	writer := &fakeWriter{}
	p := New(channel.SampleRate, channel.Channels, transform.NewPassthrough(channel.Channels), writer, nil, &Mailbox{})

	half := channel.DenoiseFrame / 2
	p.Process(stereoBlock(half, 0.1, 0.2))
	assert.Empty(t, writer.blocks, "half a frame should not flush yet")

	p.Process(stereoBlock(channel.DenoiseFrame-half, 0.1, 0.2))
	assert.Len(t, writer.blocks, 1)
}

func TestPipelinePreservesApproximateValuesThroughScaleRoundTrip(t *testing.T) {
	writer := &fakeWriter{}
	p := New(channel.SampleRate, channel.Channels, transform.NewPassthrough(channel.Channels), writer, nil, &Mailbox{})

	p.Process(stereoBlock(channel.DenoiseFrame, 0.5, -0.25))

	require.Len(t, writer.blocks, 1)
	block := writer.blocks[0]
	assert.InDelta(t, 0.5, block[0], 1e-3)
	assert.InDelta(t, -0.25, block[1], 1e-3)
}

func TestPipelineMonoInputDuplicatesToStereo(t *testing.T) {
	writer := &fakeWriter{}
	p := New(channel.SampleRate, 1, transform.NewPassthrough(1), writer, nil, &Mailbox{})

	mono := make([]float32, channel.DenoiseFrame)
	for i := range mono {
		mono[i] = 0.3
	}
	p.Process(mono)

	require.Len(t, writer.blocks, 1)
	block := writer.blocks[0]
	require.Len(t, block, channel.DenoiseFrame*channel.Channels)
	for f := 0; f < channel.DenoiseFrame; f++ {
		assert.InDelta(t, block[f*2], block[f*2+1], 1e-6)
	}
}

func TestPipelineDroppedWriteIncrementsDroppedCounter(t *testing.T) {
	writer := &fakeWriter{reject: true}
	p := New(channel.SampleRate, channel.Channels, transform.NewPassthrough(channel.Channels), writer, nil, &Mailbox{})

	p.Process(stereoBlock(channel.DenoiseFrame, 0.1, 0.1))

	written, dropped := p.Stats()
	assert.Equal(t, uint64(0), written)
	assert.Equal(t, uint64(1), dropped)
}

func TestPipelinePublishesSnapshotWithSpeechDetection(t *testing.T) {
	writer := &fakeWriter{}
	detector := &fakeDetector{speech: true}
	mailbox := &Mailbox{}
	p := New(channel.SampleRate, channel.Channels, transform.NewPassthrough(channel.Channels), writer, detector, mailbox)

	p.Process(stereoBlock(channel.DenoiseFrame, 0.4, 0.4))

	snap, ok := mailbox.Take()
	require.True(t, ok)
	assert.True(t, snap.SpeechAvailable)
	assert.True(t, snap.SpeechDetected)
	assert.Equal(t, 1, detector.calls)
	assert.Greater(t, snap.PreRMS, float32(0))
	assert.Greater(t, snap.PostRMS, float32(0))
}

func TestPipelineWithoutDetectorReportsSpeechUnavailable(t *testing.T) {
	writer := &fakeWriter{}
	mailbox := &Mailbox{}
	p := New(channel.SampleRate, channel.Channels, transform.NewPassthrough(channel.Channels), writer, nil, mailbox)

	p.Process(stereoBlock(channel.DenoiseFrame, 0.2, 0.2))

	snap, ok := mailbox.Take()
	require.True(t, ok)
	assert.False(t, snap.SpeechAvailable)
}

func TestPipelineResampleChangesOutputFrameCadence(t *testing.T) {
	writer := &fakeWriter{}
	captureRate := channel.SampleRate * 2 // downsampled by half on the way to the transport rate
	p := New(captureRate, 2, transform.NewPassthrough(2), writer, nil, &Mailbox{})

	// One capture callback's worth of frames at double the transport rate
	// resamples down to half a 480-frame output block.
	p.Process(stereoBlock(channel.DenoiseFrame, 0.1, 0.1))
	assert.Empty(t, writer.blocks)

	p.Process(stereoBlock(channel.DenoiseFrame, 0.1, 0.1))
	assert.NotEmpty(t, writer.blocks)
}

func TestPipelineResetClearsAccumulator(t *testing.T) {
	writer := &fakeWriter{}
	p := New(channel.SampleRate, channel.Channels, transform.NewPassthrough(channel.Channels), writer, nil, &Mailbox{})

	half := channel.DenoiseFrame / 2
	p.Process(stereoBlock(half, 0.1, 0.1))
	p.Reset()
	p.Process(stereoBlock(half, 0.1, 0.1))

	assert.Empty(t, writer.blocks, "reset should discard the first half-block")
}
