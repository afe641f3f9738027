// Package config provides CLI flag parsing for the two dev-harness
// binaries (cmd/producer, cmd/consumer), following the teacher's
// flag-based Config/DefaultConfig/ParseFlags shape.
package config

import (
	"flag"
	"fmt"
	"runtime"

	"github.com/micnoisegate/micnoisegate/internal/channel"
)

// ProducerConfig holds CLI-parsed settings for cmd/producer.
type ProducerConfig struct {
	ChannelName string // shared channel name (overrides the compiled-in default)
	Transform   string // "passthrough" is the only built-in reference transform
	VADModel    string // path to a Silero VAD onnx model; empty disables VAD enrichment
	VADThreshold float32
	VADThreads  int
	CaptureRate int
	CaptureChannels int
	Verbose     bool
}

// DefaultProducerConfig returns a ProducerConfig with sensible defaults.
func DefaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		ChannelName:     channel.Name,
		Transform:       "passthrough",
		VADModel:        "",
		VADThreshold:    0.5,
		VADThreads:      max(1, runtime.NumCPU()/4),
		CaptureRate:     channel.SampleRate,
		CaptureChannels: channel.Channels,
		Verbose:         false,
	}
}

// ParseProducerFlags parses os.Args for cmd/producer.
func ParseProducerFlags() (*ProducerConfig, error) {
	cfg := DefaultProducerConfig()

	flag.StringVar(&cfg.ChannelName, "channel-name", cfg.ChannelName, "Shared channel name (must begin with '/')")
	flag.StringVar(&cfg.Transform, "transform", cfg.Transform, "Frame transform to apply: 'passthrough'")
	flag.StringVar(&cfg.VADModel, "vad-model", cfg.VADModel, "Path to a Silero VAD onnx model; empty disables voice-activity enrichment")
	vadThreshold := float64(cfg.VADThreshold)
	flag.Float64Var(&vadThreshold, "vad-threshold", vadThreshold, "Voice activity detection threshold (0.0-1.0)")
	flag.IntVar(&cfg.VADThreads, "vad-threads", cfg.VADThreads, "Threads for the VAD model (0 = auto-detect)")
	flag.IntVar(&cfg.CaptureRate, "capture-rate", cfg.CaptureRate, "Preferred capture sample rate in Hz")
	flag.IntVar(&cfg.CaptureChannels, "capture-channels", cfg.CaptureChannels, "Preferred capture channel count (1 or 2)")
	flag.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Enable verbose logging")

	flag.Parse()

	cfg.VADThreshold = float32(vadThreshold)

	if cfg.ChannelName == "" || cfg.ChannelName[0] != '/' {
		return nil, fmt.Errorf("config: channel-name must begin with '/', got %q", cfg.ChannelName)
	}
	if cfg.CaptureChannels != 1 && cfg.CaptureChannels != 2 {
		return nil, fmt.Errorf("config: capture-channels must be 1 or 2, got %d", cfg.CaptureChannels)
	}
	if cfg.Transform != "passthrough" {
		return nil, fmt.Errorf("config: unknown transform %q", cfg.Transform)
	}
	if cfg.VADThreads <= 0 {
		cfg.VADThreads = max(1, runtime.NumCPU()/4)
	}

	return cfg, nil
}
