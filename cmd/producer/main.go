// Command producer is a dev harness for the producer side of the
// shared audio channel: it captures from the default microphone,
// denoises, and publishes 48kHz stereo frames into a named shared
// channel a consumer process can attach to.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/micnoisegate/micnoisegate/internal/channel"
	"github.com/micnoisegate/micnoisegate/internal/config"
	"github.com/micnoisegate/micnoisegate/internal/denoise"
	"github.com/micnoisegate/micnoisegate/internal/denoise/transform"
	"github.com/micnoisegate/micnoisegate/internal/lifecycle"
	"github.com/micnoisegate/micnoisegate/internal/producer"
	"github.com/micnoisegate/micnoisegate/internal/sherpa"
	"github.com/micnoisegate/micnoisegate/internal/vad"
)

func main() {
	cfg, err := config.ParseProducerFlags()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	log.Printf("micnoisegate producer starting (channel=%q, capture=%dHz/%dch)", cfg.ChannelName, cfg.CaptureRate, cfg.CaptureChannels)

	var detector denoise.SpeechDetector
	if cfg.VADModel != "" {
		log.Printf("vad: available onnxruntime providers on this host: %v (recommended: %s)", sherpa.AvailableProviders(), sherpa.DefaultProvider())
		d, err := vad.NewDetector(vad.Config{
			ModelPath: cfg.VADModel,
			Threshold: cfg.VADThreshold,
			Threads:   cfg.VADThreads,
			Verbose:   cfg.Verbose,
		}, channel.SampleRate)
		if err != nil {
			log.Printf("vad: disabled, failed to load model: %v", err)
		} else {
			defer d.Close()
			detector = d
			log.Println("vad: enabled")
		}
	}

	writer := producer.NewWriter(cfg.ChannelName)
	mailbox := &denoise.Mailbox{}

	newTransform := func(channelCount int) denoise.FrameTransform {
		switch cfg.Transform {
		case "passthrough":
			return transform.NewPassthrough(channelCount)
		default:
			log.Fatalf("unknown transform %q", cfg.Transform)
			return nil
		}
	}

	supervisor := lifecycle.New(writer, mailbox, detector, newTransform, cfg.CaptureRate, cfg.CaptureChannels)
	defer supervisor.Close()

	if err := supervisor.SetEnabled(true); err != nil {
		log.Fatalf("Failed to start capture session: %v", err)
	}
	log.Println("producer: capturing, Ctrl+C to quit")

	go statsLoop(mailbox, cfg.Verbose)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("producer: shutting down...")
	supervisor.Close()
	log.Println("producer: shutdown complete")
}

// statsLoop periodically drains the mailbox and logs level info when
// verbose logging is enabled. This is the UI collaborator's stand-in
// for a real plug-in host.
func statsLoop(mailbox *denoise.Mailbox, verbose bool) {
	if !verbose {
		return
	}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		snap, ok := mailbox.Take()
		if !ok {
			continue
		}
		if snap.SpeechAvailable {
			log.Printf("[levels] pre=%.4f post=%.4f speech=%v", snap.PreRMS, snap.PostRMS, snap.SpeechDetected)
		} else {
			log.Printf("[levels] pre=%.4f post=%.4f", snap.PreRMS, snap.PostRMS)
		}
	}
}

func init() {
	log.SetFlags(log.Ltime)
	log.SetOutput(os.Stdout)
}
