// Package producer implements the producer-side half of the shared
// channel protocol: creating the channel, writing denoised audio frames
// to it, and publishing liveness, while degrading gracefully to a
// no-op when the channel cannot be created.
package producer

import (
	"log"
	"sync/atomic"

	"github.com/micnoisegate/micnoisegate/internal/channel"
)

// Writer exposes the thin API the denoise pipeline talks to: Attach,
// Detach, WriteFrames, SetActive. Attach creates and initializes the
// channel; Detach marks it inactive, unmaps, and unlinks the name.
//
// Attach is not real-time safe and must only be called from lifecycle
// transitions (enable/device-change), never from the audio callback.
type Writer struct {
	name     string
	attached atomic.Bool
	ch       atomic.Pointer[channel.Channel]
}

// NewWriter returns a detached Writer bound to the given channel name
// (must begin with '/'; use channel.Name for the compiled-in default).
func NewWriter(name string) *Writer {
	return &Writer{name: name}
}

// Attach creates (or re-creates) the channel. On failure the Writer
// enters its "no channel" state: WriteFrames becomes a no-op returning
// false, but the caller should keep running its capture/pipeline so
// levels and UI feedback still work. The caller is expected to retry
// Attach on the next enable transition, not on every frame.
func (w *Writer) Attach() error {
	ch, err := channel.CreateOrOpen(w.name)
	if err != nil {
		log.Printf("producer: attach failed, continuing without a channel: %v", err)
		w.ch.Store(nil)
		w.attached.Store(false)
		return err
	}

	w.ch.Store(ch)
	w.attached.Store(true)
	return nil
}

// Detach stores is_active=false, unmaps, and unlinks the channel name.
func (w *Writer) Detach() {
	ch := w.ch.Swap(nil)
	w.attached.Store(false)
	if ch == nil {
		return
	}

	ch.SetActive(false)
	if err := ch.Destroy(); err != nil {
		log.Printf("producer: detach: %v", err)
	}
}

// WriteFrames writes n frames (n*Channels interleaved samples) to the
// channel. Returns false, dropping the block, if the Writer is
// detached/no-channel or the ring has no room for n frames — real-time
// safety forbids blocking.
func (w *Writer) WriteFrames(samples []float32, n int) bool {
	ch := w.ch.Load()
	if ch == nil {
		return false
	}
	return ch.WriteFrames(samples, n)
}

// SetActive publishes the producer liveness flag. A no-op while detached.
func (w *Writer) SetActive(active bool) {
	if ch := w.ch.Load(); ch != nil {
		ch.SetActive(active)
	}
}

// Attached reports whether the channel is currently mapped.
func (w *Writer) Attached() bool {
	return w.attached.Load()
}
