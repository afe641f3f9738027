package channel

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var testNameCounter atomic.Int64

func uniqueName(t *testing.T) string {
	return fmt.Sprintf("/micnoisegate_test_%d_%d", os.Getpid(), testNameCounter.Add(1))
}

func TestCreateOrOpenInitializesHeader(t *testing.T) {
	ch, err := CreateOrOpen(uniqueName(t))
	require.NoError(t, err)
	defer ch.Destroy()

	assert.Equal(t, int64(0), ch.WriteIndex())
	assert.Equal(t, int64(0), ch.ReadIndex())
	assert.False(t, ch.IsActive())
	assert.Equal(t, int64(RingFrames), ch.AvailableToWrite())
	assert.Equal(t, int64(0), ch.AvailableToRead())
}

func TestOpenExistingMissingReturnsNotFound(t *testing.T) {
	_, err := OpenExisting(uniqueName(t))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenExistingValidatesHeader(t *testing.T) {
	name := uniqueName(t)
	producerCh, err := CreateOrOpen(name)
	require.NoError(t, err)
	defer producerCh.Destroy()

	consumerCh, err := OpenExisting(name)
	require.NoError(t, err)
	defer consumerCh.Destroy()

	assert.Equal(t, producerCh.WriteIndex(), consumerCh.WriteIndex())
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	ch, err := CreateOrOpen(uniqueName(t))
	require.NoError(t, err)
	defer ch.Destroy()

	n := 10
	src := make([]float32, n*Channels)
	for i := range src {
		src[i] = float32(i)
	}

	ok := ch.WriteFrames(src, n)
	require.True(t, ok)
	assert.Equal(t, int64(n), ch.AvailableToRead())

	dst := make([]float32, n*Channels)
	ok = ch.ReadFrames(dst, n)
	require.True(t, ok)
	assert.Equal(t, src, dst)
	assert.Equal(t, int64(0), ch.AvailableToRead())
}

func TestReadUnderrunYieldsSilenceAndLeavesIndexUnchanged(t *testing.T) {
	ch, err := CreateOrOpen(uniqueName(t))
	require.NoError(t, err)
	defer ch.Destroy()

	dst := make([]float32, 10*Channels)
	for i := range dst {
		dst[i] = 99
	}

	ok := ch.ReadFrames(dst, 10)
	assert.False(t, ok)
	for _, s := range dst {
		assert.Equal(t, float32(0), s)
	}
	assert.Equal(t, int64(0), ch.ReadIndex())
}

func TestWriteFullRingRejectsOverflowingWrite(t *testing.T) {
	ch, err := CreateOrOpen(uniqueName(t))
	require.NoError(t, err)
	defer ch.Destroy()

	full := make([]float32, RingFrames*Channels)
	require.True(t, ch.WriteFrames(full, RingFrames))
	assert.Equal(t, int64(0), ch.AvailableToWrite())

	ok := ch.WriteFrames([]float32{1, 2}, 1)
	assert.False(t, ok)
	assert.Equal(t, int64(RingFrames), ch.WriteIndex())
}

func TestWrapAroundPreservesOrdering(t *testing.T) {
	ch, err := CreateOrOpen(uniqueName(t))
	require.NoError(t, err)
	defer ch.Destroy()

	// Advance write/read near the end of the ring so the next write wraps.
	near := RingFrames - 5
	buf := make([]float32, near*Channels)
	require.True(t, ch.WriteFrames(buf, near))
	out := make([]float32, near*Channels)
	require.True(t, ch.ReadFrames(out, near))

	src := make([]float32, 20*Channels)
	for i := range src {
		src[i] = float32(i + 1)
	}
	require.True(t, ch.WriteFrames(src, 20))

	dst := make([]float32, 20*Channels)
	require.True(t, ch.ReadFrames(dst, 20))
	assert.Equal(t, src, dst)
}

func TestOverrunFastForwardsReadIndexAndReturnsOneSilentFrame(t *testing.T) {
	ch, err := CreateOrOpen(uniqueName(t))
	require.NoError(t, err)
	defer ch.Destroy()

	// Force an overrun condition directly on the indices: write far ahead
	// of read without going through WriteFrames' capacity check, the way
	// a crashed-and-restarted producer or a stalled consumer would.
	ch.writeIndex.Store(int64(RingFrames) + 100)

	dst := make([]float32, 5*Channels)
	for i := range dst {
		dst[i] = 7
	}
	ok := ch.ReadFrames(dst, 5)
	assert.False(t, ok)
	for _, s := range dst {
		assert.Equal(t, float32(0), s)
	}
	assert.Equal(t, ch.WriteIndex()-1, ch.ReadIndex())

	// The next read should succeed normally from the fast-forwarded position.
	write := ch.WriteIndex()
	ch.readIndex.Store(write - 1)
	ok = ch.ReadFrames(dst, 1)
	assert.True(t, ok)
}

func TestSetActiveIsActiveRoundTrips(t *testing.T) {
	ch, err := CreateOrOpen(uniqueName(t))
	require.NoError(t, err)
	defer ch.Destroy()

	assert.False(t, ch.IsActive())
	ch.SetActive(true)
	assert.True(t, ch.IsActive())
	ch.SetActive(false)
	assert.False(t, ch.IsActive())
}

// TestSPSCPropertyPreservesFrameOrder runs a randomized sequence of
// writes/reads against a single channel from a single goroutine (the
// API is not meant to be called concurrently by more than one writer or
// reader) and asserts every read returns exactly what was written, in
// order, never more frames than are available.
func TestSPSCPropertyPreservesFrameOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ch, err := CreateOrOpen(uniqueName(nil))
		require.NoError(t, err)
		defer ch.Destroy()

		var written []float32
		var readBack []float32

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		nextVal := float32(0)

		for i := 0; i < steps; i++ {
			if rapid.Bool().Draw(t, "writeOrRead") {
				n := rapid.IntRange(1, 50).Draw(t, "writeFrames")
				src := make([]float32, n*Channels)
				for j := range src {
					src[j] = nextVal
					nextVal++
				}
				if ch.WriteFrames(src, n) {
					written = append(written, src...)
				}
			} else {
				n := rapid.IntRange(1, 50).Draw(t, "readFrames")
				available := ch.AvailableToRead()
				dst := make([]float32, n*Channels)
				if ch.ReadFrames(dst, n) {
					assert.True(t, available >= int64(n))
					readBack = append(readBack, dst...)
				}
			}
		}

		require.True(t, len(readBack) <= len(written))
		assert.Equal(t, written[:len(readBack)], readBack)
	})
}

func TestDestroyUnlinksForOwnerOnly(t *testing.T) {
	name := uniqueName(t)
	owner, err := CreateOrOpen(name)
	require.NoError(t, err)

	nonOwner, err := OpenExisting(name)
	require.NoError(t, err)

	require.NoError(t, nonOwner.Destroy())

	// The name must still be usable after the non-owner's Destroy.
	reopened, err := OpenExisting(name)
	require.NoError(t, err)
	defer owner.Destroy()
	defer reopened.Destroy()
}

func TestConcurrentProducerConsumerSingleWriterSingleReader(t *testing.T) {
	ch, err := CreateOrOpen(uniqueName(t))
	require.NoError(t, err)
	defer ch.Destroy()

	const totalFrames = 4000
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		written := 0
		for written < totalFrames {
			n := 10
			if written+n > totalFrames {
				n = totalFrames - written
			}
			src := make([]float32, n*Channels)
			if ch.WriteFrames(src, n) {
				written += n
			}
		}
		ch.SetActive(true)
	}()

	go func() {
		defer wg.Done()
		read := 0
		dst := make([]float32, 10*Channels)
		for read < totalFrames {
			if ch.ReadFrames(dst, 10) {
				read += 10
			}
		}
	}()

	wg.Wait()
}
