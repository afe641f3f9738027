// Package vad enriches the denoise pipeline's UI snapshot with a
// voice-activity signal. It is explicitly NOT part of the denoise
// transform path (spec.md §1 treats the real algorithm as a black box,
// and VAD never gates or alters the audio written to the shared
// channel) — it only feeds Snapshot.SpeechDetected for a UI consumer.
//
// Grounded on the teacher's internal/stt.Recognizer, keeping its VAD
// half (sherpa.VoiceActivityDetector) and dropping the Whisper
// transcription half entirely, since transcription has no place in a
// noise-gate UI.
package vad

import (
	"fmt"
	"sync"

	"github.com/micnoisegate/micnoisegate/internal/sherpa"
)

// Silero VAD operates natively at this sample rate; the teacher's
// recognizer.go uses the same constants for its VAD half.
const (
	nativeSampleRate   = 16000
	minSpeechDuration   = 0.1
	maxSpeechDuration   = 30.0
	windowSize          = 512
	bufferSeconds       = 2.0 // short ring; this detector only needs IsSpeech(), not segments
)

// Config configures the Silero VAD model backing Detector.
type Config struct {
	ModelPath       string
	Threshold       float32
	SilenceDuration float32 // seconds
	Threads         int
	Verbose         bool
}

// Detector wraps a sherpa-onnx Silero VAD instance behind the
// denoise.SpeechDetector interface. Detect and Close serialize on an
// internal mutex, since sherpa-onnx VAD instances are not thread-safe
// (the teacher's note); the pipeline only ever calls Detect from its
// own single processing path.
type Detector struct {
	mu        sync.Mutex
	vad       *sherpa.VoiceActivityDetector
	resampler *antiAliasResampler
}

// NewDetector loads a Silero VAD model from cfg.ModelPath. captureRate
// is the sample rate Detect's monoBlock argument will arrive at; the
// detector resamples internally to the model's native 16kHz.
func NewDetector(cfg Config, captureRate int) (*Detector, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("vad: model path required")
	}

	vadConfig := &sherpa.VadModelConfig{}
	vadConfig.SileroVad.Model = cfg.ModelPath
	vadConfig.SileroVad.Threshold = cfg.Threshold
	vadConfig.SileroVad.MinSilenceDuration = cfg.SilenceDuration
	vadConfig.SileroVad.MinSpeechDuration = minSpeechDuration
	vadConfig.SileroVad.MaxSpeechDuration = maxSpeechDuration
	vadConfig.SileroVad.WindowSize = windowSize
	vadConfig.SampleRate = nativeSampleRate
	vadConfig.NumThreads = cfg.Threads
	vadConfig.Debug = 0
	if cfg.Verbose {
		vadConfig.Debug = 1
	}

	v := sherpa.NewVoiceActivityDetector(vadConfig, bufferSeconds)
	if v == nil {
		return nil, fmt.Errorf("vad: failed to create Silero VAD detector")
	}

	var resampler *antiAliasResampler
	if captureRate != nativeSampleRate {
		resampler = newAntiAliasResampler(captureRate, nativeSampleRate)
	}

	return &Detector{vad: v, resampler: resampler}, nil
}

// Detect feeds monoBlock (at sampleRate Hz) to the VAD and reports
// whether speech is currently considered active. sampleRate is expected
// to match the captureRate passed to NewDetector; it is accepted here
// only to satisfy denoise.SpeechDetector's interface shape.
func (d *Detector) Detect(monoBlock []float32, sampleRate int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	samples := monoBlock
	if d.resampler != nil {
		samples = d.resampler.process(monoBlock)
	}
	if len(samples) == 0 {
		return d.vad.IsSpeech()
	}

	d.vad.AcceptWaveform(samples)
	for !d.vad.IsEmpty() {
		d.vad.Pop()
	}
	return d.vad.IsSpeech()
}

// Close releases the underlying sherpa-onnx VAD instance.
func (d *Detector) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.vad != nil {
		sherpa.DeleteVoiceActivityDetector(d.vad)
		d.vad = nil
	}
}
