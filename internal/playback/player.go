// Package playback is a small demo harness that forwards the consumer
// reader's output straight to the default audio output device. It
// exists only so cmd/consumer's -play flag can be heard; the real
// consumer surface is a host plug-in's ReadCallback, not this package.
//
// Adapted from the teacher's internal/audio.Player: that player queues
// samples into a ring buffer because TTS hands it whole utterances
// ahead of playback time. Here the source (consumer.Reader.ReadCallback)
// already produces exactly one device callback's worth of frames on
// demand, so the ring buffer and interrupt machinery have no work left
// to do and are dropped — the device callback pulls directly from the
// reader.
package playback

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gen2brain/malgo"

	"github.com/micnoisegate/micnoisegate/internal/channel"
)

// ReadFunc matches consumer.Reader.ReadCallback's shape.
type ReadFunc func(out []float32, frameCount uint32)

// Player drives a malgo playback device, pulling frames from read on
// every device callback.
type Player struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device
}

// NewPlayer opens the default playback device at channel.SampleRate /
// channel.Channels and starts pulling frames from read.
func NewPlayer(read ReadFunc) (*Player, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("playback: init context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = channel.Channels
	deviceConfig.SampleRate = channel.SampleRate

	buf := make([]float32, 0, 4096)

	onSendFrames := func(pOutputSample, pInputSamples []byte, framecount uint32) {
		need := int(framecount) * channel.Channels
		if cap(buf) < need {
			buf = make([]float32, need)
		}
		buf = buf[:need]

		read(buf, framecount)

		for i, s := range buf {
			binary.LittleEndian.PutUint32(pOutputSample[i*4:], math.Float32bits(s))
		}
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onSendFrames})
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("playback: init device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("playback: start device: %w", err)
	}

	return &Player{ctx: ctx, device: device}, nil
}

// Close stops playback and releases the device.
func (p *Player) Close() {
	if p.device != nil {
		p.device.Stop()
		p.device.Uninit()
		p.device = nil
	}
	if p.ctx != nil {
		_ = p.ctx.Uninit()
		p.ctx.Free()
		p.ctx = nil
	}
}
