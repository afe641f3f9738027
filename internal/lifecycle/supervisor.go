// Package lifecycle wires the producer-side collaborators (capture,
// pipeline, writer) together and drives the enable/disable/device-change
// state machine from spec.md §4.5. It owns every non-real-time call —
// attach, detach, device start/stop — so those never run on the audio
// thread (spec.md §5).
package lifecycle

import (
	"fmt"
	"log"
	"sync"

	"github.com/micnoisegate/micnoisegate/internal/capture"
	"github.com/micnoisegate/micnoisegate/internal/denoise"
	"github.com/micnoisegate/micnoisegate/internal/producer"
)

// TransformFactory builds a fresh FrameTransform for channelCount
// channels. The supervisor calls it each time a session starts (on
// enable, and on the restart after a device change), so transform state
// never carries over from one session to the next (spec.md §4.4 "State
// reset").
type TransformFactory func(channelCount int) denoise.FrameTransform

// Supervisor implements spec.md §4.5's producer-side state machine: it
// observes "enabled" and "selected device" and keeps capture, pipeline,
// and writer consistent with them.
type Supervisor struct {
	mu sync.Mutex

	writer       *producer.Writer
	mailbox      *denoise.Mailbox
	detector     denoise.SpeechDetector
	newTransform TransformFactory

	captureRate     int
	captureChannels int

	enabled      bool
	selectedDevice string

	capturer *capture.Capturer
	pipeline *denoise.Pipeline
}

// New creates a Supervisor. captureRate/captureChannels are the
// preferred capture format requested from the audio device; the device
// may honor a different actual rate, which the pipeline resamples
// from. detector may be nil.
func New(writer *producer.Writer, mailbox *denoise.Mailbox, detector denoise.SpeechDetector, newTransform TransformFactory, captureRate, captureChannels int) *Supervisor {
	return &Supervisor{
		writer:          writer,
		mailbox:         mailbox,
		detector:        detector,
		newTransform:    newTransform,
		captureRate:     captureRate,
		captureChannels: captureChannels,
	}
}

// SetEnabled applies an "enabled" intent change for the currently
// selected device. Calling it with the same value it already holds is a
// no-op.
func (s *Supervisor) SetEnabled(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if enabled == s.enabled {
		return nil
	}

	if enabled {
		return s.startLocked()
	}
	s.stopLocked()
	return nil
}

// SetDevice changes the selected device. If a session is active, it is
// stopped and restarted; if not enabled, it only records the selection.
// The recorded ID is used for logging only: the capturer always opens
// the default input device, so the restarted session does not switch to
// the device named by deviceID.
func (s *Supervisor) SetDevice(deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if deviceID == s.selectedDevice {
		return nil
	}

	wasEnabled := s.enabled
	if wasEnabled {
		s.stopLocked()
	}
	s.selectedDevice = deviceID
	if wasEnabled {
		return s.startLocked()
	}
	return nil
}

// startLocked attaches the channel, builds a fresh pipeline/transform,
// and starts capture. Per spec.md §4.2, attach failure does not abort
// the session: the pipeline still runs so UI levels keep working, and
// writer.WriteFrames silently no-ops until the next enable transition
// retries attach.
func (s *Supervisor) startLocked() error {
	if err := s.writer.Attach(); err != nil {
		log.Printf("lifecycle: attach failed, continuing without a channel: %v", err)
	}

	capturer, err := capture.NewCapturer(s.captureRate, s.captureChannels)
	if err != nil {
		return fmt.Errorf("lifecycle: create capturer: %w", err)
	}

	// The device may not honor the requested rate/channel count, so the
	// pipeline (and its stage 1 resampler, spec.md §4.4) is built from
	// whatever Start negotiates, not from s.captureRate/s.captureChannels.
	err = capturer.Start(func(actualRate uint32, actualChannels uint32) capture.OnSamples {
		if actualRate != uint32(s.captureRate) || actualChannels != uint32(s.captureChannels) {
			log.Printf("lifecycle: device negotiated %dHz/%dch, requested %dHz/%dch", actualRate, actualChannels, s.captureRate, s.captureChannels)
		}
		transform := s.newTransform(int(actualChannels))
		s.pipeline = denoise.New(int(actualRate), int(actualChannels), transform, s.writer, s.detector, s.mailbox)
		return func(samples []float32, frameCount uint32, channelCount uint32, sampleRate float64) {
			s.pipeline.Process(samples)
		}
	})
	if err != nil {
		capturer.Close()
		return fmt.Errorf("lifecycle: start capturer: %w", err)
	}

	s.capturer = capturer
	s.writer.SetActive(true)
	s.enabled = true
	log.Printf("lifecycle: enabled (device=%q)", s.selectedDevice)
	return nil
}

// stopLocked tears down an active session: stop capture, detach the
// channel, reset the pipeline.
func (s *Supervisor) stopLocked() {
	if s.capturer != nil {
		s.capturer.Close()
		s.capturer = nil
	}
	s.writer.Detach()
	if s.pipeline != nil {
		s.pipeline.Reset()
		s.pipeline = nil
	}
	s.enabled = false
	log.Println("lifecycle: disabled")
}

// Enabled reports the current enabled state.
func (s *Supervisor) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Close tears down any active session. It is safe to call multiple
// times and on a supervisor that was never enabled.
func (s *Supervisor) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enabled {
		s.stopLocked()
	}
}
