package config

import (
	"flag"
	"fmt"

	"github.com/micnoisegate/micnoisegate/internal/channel"
)

// ConsumerConfig holds CLI-parsed settings for cmd/consumer.
type ConsumerConfig struct {
	ChannelName string
	Play        bool // if true, forward read frames to a local playback device (demo only)
	Verbose     bool
}

// DefaultConsumerConfig returns a ConsumerConfig with sensible defaults.
func DefaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		ChannelName: channel.Name,
		Play:        false,
		Verbose:     false,
	}
}

// ParseConsumerFlags parses os.Args for cmd/consumer.
func ParseConsumerFlags() (*ConsumerConfig, error) {
	cfg := DefaultConsumerConfig()

	flag.StringVar(&cfg.ChannelName, "channel-name", cfg.ChannelName, "Shared channel name (must begin with '/')")
	flag.BoolVar(&cfg.Play, "play", cfg.Play, "Forward read frames to the default playback device")
	flag.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Enable verbose logging")

	flag.Parse()

	if cfg.ChannelName == "" || cfg.ChannelName[0] != '/' {
		return nil, fmt.Errorf("config: channel-name must begin with '/', got %q", cfg.ChannelName)
	}

	return cfg, nil
}
