// Command consumer is a dev harness for the consumer side of the
// shared audio channel: it lazily attaches to a channel a producer
// process may create at any time, and either reports levels or (with
// -play) forwards the stream to the default speaker.
package main

import (
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/micnoisegate/micnoisegate/internal/channel"
	"github.com/micnoisegate/micnoisegate/internal/config"
	"github.com/micnoisegate/micnoisegate/internal/consumer"
	"github.com/micnoisegate/micnoisegate/internal/playback"
)

func main() {
	cfg, err := config.ParseConsumerFlags()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	log.Printf("micnoisegate consumer starting (channel=%q)", cfg.ChannelName)

	reader := consumer.NewReader(cfg.ChannelName)

	var player *playback.Player
	if cfg.Play {
		p, err := playback.NewPlayer(reader.ReadCallback)
		if err != nil {
			log.Fatalf("Failed to start playback: %v", err)
		}
		defer p.Close()
		player = p
		log.Println("consumer: forwarding audio to the default output device")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if player == nil {
		go levelLoop(reader, cfg.Verbose)
	}

	<-sigChan
	log.Println("consumer: shutting down...")
}

// levelLoop polls the reader on its own cadence when no playback device
// is attached, purely so this dev harness prints something useful.
func levelLoop(reader *consumer.Reader, verbose bool) {
	if !verbose {
		return
	}

	frames := make([]float32, channel.DenoiseFrame*channel.Channels)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		reader.ReadCallback(frames, channel.DenoiseFrame)
		var sum float64
		for _, s := range frames {
			sum += float64(s) * float64(s)
		}
		rms := math.Sqrt(sum / float64(len(frames)))
		if rms > 0 {
			log.Printf("[consumer] rms=%.6f", rms)
		}
	}
}

func init() {
	log.SetFlags(log.Ltime)
	log.SetOutput(os.Stdout)
}
