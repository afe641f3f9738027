// Package capture provides the producer-side microphone capture
// collaborator: a thin malgo wrapper matching the "capture device"
// interface in spec.md §6 ((samples, frameCount, channelCount,
// sampleRate) -> void), decoupled from any resampling concern — that is
// entirely the denoise pipeline's job (spec.md §4.4 stage 1).
//
// Adapted from the teacher's internal/audio.Capturer: same lock-free
// ring buffer + dedicated drain goroutine shape and the same pooled
// byte->float32 conversion buffer keeping the real-time callback
// allocation-free, with the teacher's own resampling step removed since
// this repo's pipeline resamples instead.
package capture

import (
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
)

const (
	ringBufferSize     = 128
	maxSamplesPerChunk = 4096
)

type audioChunk struct {
	samples []float32
	len     int
}

// ringBuffer is a lock-free SPSC ring buffer of audio chunks, isolating
// the real-time capture callback from the (non-real-time) frame
// assembly done in processLoop.
type ringBuffer struct {
	chunks    [ringBufferSize]audioChunk
	head      atomic.Uint64
	tail      atomic.Uint64
	dropCount atomic.Uint64
}

func newRingBuffer() *ringBuffer {
	rb := &ringBuffer{}
	for i := range rb.chunks {
		rb.chunks[i].samples = make([]float32, maxSamplesPerChunk)
	}
	return rb
}

func (rb *ringBuffer) push(samples []float32) bool {
	head := rb.head.Load()
	tail := rb.tail.Load()

	if head-tail >= ringBufferSize {
		count := rb.dropCount.Add(1)
		if count%100 == 0 {
			log.Printf("capture: ring buffer full, dropped %d chunks", count)
		}
		return false
	}

	slot := &rb.chunks[head%ringBufferSize]
	n := copy(slot.samples, samples)
	slot.len = n

	rb.head.Add(1)
	return true
}

func (rb *ringBuffer) pop() []float32 {
	head := rb.head.Load()
	tail := rb.tail.Load()

	if head == tail {
		return nil
	}

	slot := &rb.chunks[tail%ringBufferSize]
	samples := slot.samples[:slot.len]

	rb.tail.Add(1)
	return samples
}

// OnSamples matches spec.md §6's capture callback shape.
type OnSamples func(samples []float32, frameCount uint32, channelCount uint32, sampleRate float64)

// NewOnSamples builds the OnSamples callback for a capturer once the
// device's actual negotiated rate/channel count is known (the device
// may not honor the requested values). Called once, after device
// negotiation but before capture begins, so the resulting callback can
// close over a pipeline built with the real rate/channels instead of
// the merely-requested ones.
type NewOnSamples func(actualRate uint32, actualChannels uint32) OnSamples

// Capturer drives a malgo capture device and hands complete chunks to
// onSamples on a dedicated goroutine, never from the real-time audio
// callback itself.
type Capturer struct {
	ctx               *malgo.AllocatedContext
	device            *malgo.Device
	requestedRate     uint32
	requestedChannels uint32
	deviceSampleRate  uint32
	deviceChannels    uint32
	onSamples         OnSamples
	running           atomic.Bool
	ringBuf           *ringBuffer
	stopChan          chan struct{}
	wg                sync.WaitGroup
}

// NewCapturer creates a Capturer requesting preferredRate Hz and
// preferredChannels channels from the default input device. The device
// may honor a different rate/channel count; Start reports the actual
// values to its NewOnSamples factory before any audio flows.
func NewCapturer(preferredRate int, preferredChannels int) (*Capturer, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("capture: init context: %w", err)
	}

	return &Capturer{
		ctx:               ctx,
		requestedRate:     uint32(preferredRate),
		requestedChannels: uint32(preferredChannels),
		ringBuf:           newRingBuffer(),
		stopChan:          make(chan struct{}),
	}, nil
}

// Start begins capture from the default microphone. newOnSamples is
// invoked once the device's actual rate/channel count are known (which
// may differ from what was requested), and its result becomes the
// callback processLoop drives for the life of this session.
func (c *Capturer) Start(newOnSamples NewOnSamples) error {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = c.requestedChannels
	deviceConfig.SampleRate = c.requestedRate
	deviceConfig.PeriodSizeInMilliseconds = 10 // close to DenoiseFrame's 10ms

	onRecvFrames := func(pOutputSample, pInputSamples []byte, framecount uint32) {
		if !c.running.Load() {
			return
		}
		pooledSamples := bytesToFloat32(pInputSamples)
		if len(pooledSamples) > 0 {
			c.ringBuf.push(pooledSamples)
		}
		returnFloat32Buffer(pooledSamples)
	}

	device, err := malgo.InitDevice(c.ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onRecvFrames})
	if err != nil {
		return fmt.Errorf("capture: init device: %w", err)
	}

	c.deviceSampleRate = device.SampleRate()
	c.deviceChannels = device.CaptureChannels()
	c.device = device

	// Built from the device's actual negotiated rate/channels, which may
	// differ from what was requested above - never from c.requestedRate.
	c.onSamples = newOnSamples(c.deviceSampleRate, c.deviceChannels)

	c.running.Store(true)

	c.wg.Add(1)
	go c.processLoop()

	if err := device.Start(); err != nil {
		return fmt.Errorf("capture: start device: %w", err)
	}
	return nil
}

// processLoop drains the ring buffer and invokes onSamples. Runs on a
// dedicated goroutine, never the audio callback.
func (c *Capturer) processLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.stopChan:
			return
		default:
			samples := c.ringBuf.pop()
			if samples != nil {
				samplesCopy := make([]float32, len(samples))
				copy(samplesCopy, samples)
				frameCount := uint32(len(samplesCopy)) / c.deviceChannels
				c.onSamples(samplesCopy, frameCount, c.deviceChannels, float64(c.deviceSampleRate))
			} else {
				select {
				case <-c.stopChan:
					return
				case <-time.After(100 * time.Microsecond):
				}
			}
		}
	}
}

// Stop halts capture and waits for processLoop to drain.
func (c *Capturer) Stop() {
	c.running.Store(false)

	select {
	case <-c.stopChan:
	default:
		close(c.stopChan)
	}
	c.wg.Wait()

	if c.device != nil {
		c.device.Stop()
		c.device.Uninit()
		c.device = nil
	}
}

// Pause temporarily halts capture without tearing down the device
// (used while the device is enabled but audio should not be captured).
func (c *Capturer) Pause() { c.running.Store(false) }

// Resume restarts capture after Pause.
func (c *Capturer) Resume() { c.running.Store(true) }

// Close releases all audio resources.
func (c *Capturer) Close() {
	c.Stop()
	if c.ctx != nil {
		_ = c.ctx.Uninit()
		c.ctx.Free()
		c.ctx = nil
	}
}

// float32Pool reduces allocations in the audio callback hot path.
// Buffers are sized for typical 10ms audio chunks at various sample
// rates, with headroom.
var float32Pool = sync.Pool{
	New: func() interface{} {
		buf := make([]float32, 2048)
		return &buf
	},
}

// bytesToFloat32 converts raw bytes to float32 samples using a pooled
// buffer. The returned slice is only valid until returnFloat32Buffer is
// called; ringBuffer.push copies out of it immediately, so the caller
// can return it right after pushing.
func bytesToFloat32(data []byte) []float32 {
	numSamples := len(data) / 4
	pBuf := float32Pool.Get().(*[]float32)

	if cap(*pBuf) < numSamples {
		*pBuf = make([]float32, numSamples)
	}
	samples := (*pBuf)[:numSamples]

	for i := range samples {
		bits := uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
		samples[i] = math.Float32frombits(bits)
	}
	return samples
}

// returnFloat32Buffer returns a buffer to the pool. Must be called
// after the samples from bytesToFloat32 are no longer needed.
func returnFloat32Buffer(samples []float32) {
	if samples == nil {
		return
	}
	buf := samples[:cap(samples)]
	float32Pool.Put(&buf)
}
