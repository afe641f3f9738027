// Package consumer implements the consumer-side half of the shared
// channel protocol: lazy reconnection to a channel the producer may not
// have created yet, and serving a host audio daemon's per-callback
// request for interleaved stereo Float32 frames.
package consumer

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/micnoisegate/micnoisegate/internal/channel"
)

// maxInlineOpenAttempts bounds how many times ReadCallback itself will
// call OpenExisting (one shm_open + one mmap each) at real-time
// priority before handing reconnection off to a background goroutine
// and serving silence in the meantime. Spec allows either approach;
// this repo prefers the deferred form once a channel is clearly absent,
// to keep the real-time thread's per-call cost bounded.
const maxInlineOpenAttempts = 8

// reconnectBackoff is how often the background reconnect loop retries
// once deferred.
const reconnectBackoff = 250 * time.Millisecond

// Reader serves ReadCallback, the only surface the host's virtual-mic
// plug-in needs. It is stateless from the plug-in's point of view aside
// from the cached mapping: once mapped, the mapping is retained for the
// plug-in's lifetime. If the producer unlinks the name and a new
// producer later creates a fresh region under it, this Reader's mapping
// is orphaned — an accepted limitation (see spec.md §4.3 / §9).
type Reader struct {
	name             string
	ch               atomic.Pointer[channel.Channel]
	inlineAttempts   atomic.Int32
	reconnectRunning atomic.Bool
}

// NewReader returns an unmapped Reader bound to the given channel name
// (use channel.Name for the compiled-in default). The first
// ReadCallback attempts to map the channel.
func NewReader(name string) *Reader {
	return &Reader{name: name}
}

// ReadCallback fills out with frameCount interleaved stereo Float32
// frames (len(out) must be frameCount*Channels). It never blocks and
// never returns an error: a failed reconnect or an inactive/underrun
// channel simply yields silence.
func (r *Reader) ReadCallback(out []float32, frameCount uint32) {
	ch := r.ch.Load()
	if ch == nil {
		ch = r.tryReconnect()
	}
	if ch == nil {
		zero(out)
		return
	}

	n := int(frameCount)
	if !ch.IsActive() || ch.AvailableToRead() < int64(n) {
		zero(out[:n*channel.Channels])
		return
	}

	ch.ReadFrames(out, n)
}

// tryReconnect attempts OpenExisting inline while under the attempt
// budget; past that it starts (at most once) a background goroutine
// that keeps retrying on a timer, and the real-time callback simply
// polls the cached pointer from then on.
func (r *Reader) tryReconnect() *channel.Channel {
	if r.inlineAttempts.Load() >= maxInlineOpenAttempts {
		r.startBackgroundReconnect()
		return nil
	}
	r.inlineAttempts.Add(1)

	ch, err := channel.OpenExisting(r.name)
	if err != nil {
		return nil
	}

	r.ch.Store(ch)
	log.Println("consumer: connected to producer channel")
	return ch
}

func (r *Reader) startBackgroundReconnect() {
	if !r.reconnectRunning.CompareAndSwap(false, true) {
		return // already running
	}

	go func() {
		defer r.reconnectRunning.Store(false)

		for r.ch.Load() == nil {
			ch, err := channel.OpenExisting(r.name)
			if err == nil {
				r.ch.Store(ch)
				log.Println("consumer: connected to producer channel")
				return
			}
			time.Sleep(reconnectBackoff)
		}
	}()
}

func zero(dst []float32) {
	for i := range dst {
		dst[i] = 0
	}
}
