package channel

import (
	"encoding/binary"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Channel is a lock-free single-producer single-consumer byte ring,
// mapped once into the process's address space and shared across the
// process boundary via a well-known name. All fields below are views
// into the same underlying mapped region; Channel itself holds no
// private state the consumer depends on.
type Channel struct {
	data []byte // the full mapped region: header + audio ring

	writeIndex *atomic.Int64 // offsetWriteIndex, producer-owned
	readIndex  *atomic.Int64 // offsetReadIndex, consumer-owned
	isActive   *atomic.Int32 // offsetIsActive, producer-owned

	audio []float32 // view over the audio ring, RingFrames*Channels long

	owner bool // true for the producer (created/unlinks on Destroy)
	name  string
}

// newView wraps an already-mapped region into a Channel, validating the
// header if it was not just created.
func newView(data []byte, name string, owner bool, freshlyCreated bool) (*Channel, error) {
	c := &Channel{
		data:       data,
		writeIndex: (*atomic.Int64)(unsafe.Pointer(&data[offsetWriteIndex])),
		readIndex:  (*atomic.Int64)(unsafe.Pointer(&data[offsetReadIndex])),
		isActive:   (*atomic.Int32)(unsafe.Pointer(&data[offsetIsActive])),
		audio:      unsafe.Slice((*float32)(unsafe.Pointer(&data[offsetAudioData])), RingFrames*Channels),
		owner:      owner,
		name:       name,
	}

	if freshlyCreated {
		c.initHeader()
		return c, nil
	}

	if err := c.validateHeader(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Channel) initHeader() {
	c.writeIndex.Store(0)
	c.readIndex.Store(0)
	c.isActive.Store(0)
	binary.LittleEndian.PutUint32(c.data[offsetSampleRate:], uint32(SampleRate))
	binary.LittleEndian.PutUint32(c.data[offsetChannels:], uint32(Channels))
	binary.LittleEndian.PutUint32(c.data[offsetRingFrames:], uint32(RingFrames))
	// Reserved/padding bytes are zero because the region is freshly
	// truncated/allocated; nothing ever writes into them.
}

func (c *Channel) validateHeader() error {
	sampleRate := binary.LittleEndian.Uint32(c.data[offsetSampleRate:])
	channels := binary.LittleEndian.Uint32(c.data[offsetChannels:])
	ringFrames := binary.LittleEndian.Uint32(c.data[offsetRingFrames:])

	if sampleRate != SampleRate || channels != Channels || ringFrames != RingFrames {
		return ErrInvalidHeader
	}
	return nil
}

// AvailableToWrite returns how many frames the producer may currently write.
func (c *Channel) AvailableToWrite() int64 {
	read := c.readIndex.Load() // acquire
	write := c.writeIndex.Load()
	return RingFrames - (write - read)
}

// AvailableToRead returns how many frames the consumer may currently read.
func (c *Channel) AvailableToRead() int64 {
	write := c.writeIndex.Load() // acquire
	read := c.readIndex.Load()
	return write - read
}

// WriteFrames copies n frames (n*Channels samples) from src into the
// ring and publishes the new write index. It is producer-only. Returns
// false without writing anything if there isn't room for n frames.
func (c *Channel) WriteFrames(src []float32, n int) bool {
	if int64(n) > c.AvailableToWrite() {
		return false
	}
	if n == 0 {
		return true
	}

	write := c.writeIndex.Load()
	pos := write % RingFrames

	firstFrames := RingFrames - pos
	if firstFrames > int64(n) {
		firstFrames = int64(n)
	}
	copy(c.audio[pos*Channels:(pos+firstFrames)*Channels], src[:firstFrames*Channels])

	if firstFrames < int64(n) {
		remaining := int64(n) - firstFrames
		copy(c.audio[0:remaining*Channels], src[firstFrames*Channels:int64(n)*Channels])
	}

	c.writeIndex.Store(write + int64(n)) // release
	return true
}

// ReadFrames copies n frames from the ring into dst and publishes the
// new read index. It is consumer-only. If fewer than n frames are
// available, dst is filled with silence, read_index is left unchanged,
// and false is returned. A producer crash or a badly lagging earlier
// reader can leave write_index - read_index > RingFrames; ReadFrames
// detects that, fast-forwards read_index to write_index-1, and returns
// silence for the current call, bounding recovery to one silent frame.
func (c *Channel) ReadFrames(dst []float32, n int) bool {
	write := c.writeIndex.Load() // acquire
	read := c.readIndex.Load()

	if write-read > RingFrames {
		c.readIndex.Store(write - 1) // relaxed: consumer is the sole writer
		zero(dst[:n*Channels])
		return false
	}

	if write-read < int64(n) {
		zero(dst[:n*Channels])
		return false
	}
	if n == 0 {
		return true
	}

	pos := read % RingFrames
	firstFrames := RingFrames - pos
	if firstFrames > int64(n) {
		firstFrames = int64(n)
	}
	copy(dst[:firstFrames*Channels], c.audio[pos*Channels:(pos+firstFrames)*Channels])

	if firstFrames < int64(n) {
		remaining := int64(n) - firstFrames
		copy(dst[firstFrames*Channels:int64(n)*Channels], c.audio[0:remaining*Channels])
	}

	c.readIndex.Store(read + int64(n)) // release
	return true
}

// SetActive publishes the producer liveness flag.
func (c *Channel) SetActive(active bool) {
	var v int32
	if active {
		v = 1
	}
	c.isActive.Store(v) // release
}

// IsActive reports the producer liveness flag.
func (c *Channel) IsActive() bool {
	return c.isActive.Load() != 0 // acquire
}

// WriteIndex returns the current write index (diagnostics/tests only).
func (c *Channel) WriteIndex() int64 { return c.writeIndex.Load() }

// ReadIndex returns the current read index (diagnostics/tests only).
func (c *Channel) ReadIndex() int64 { return c.readIndex.Load() }

// Destroy unmaps the region and, for the owning producer, unlinks the
// well-known name so a future CreateOrOpen starts fresh.
func (c *Channel) Destroy() error {
	err := unix.Munmap(c.data)
	if c.owner {
		if unlinkErr := platformUnlink(c.name); err == nil {
			err = unlinkErr
		}
	}
	return err
}

func zero(dst []float32) {
	for i := range dst {
		dst[i] = 0
	}
}
