package consumer

import (
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/micnoisegate/micnoisegate/internal/channel"
)

var readerTestCounter atomic.Int64

func readerTestName() string {
	return fmt.Sprintf("/micnoisegate_reader_test_%d_%d", os.Getpid(), readerTestCounter.Add(1))
}

func TestReadCallbackYieldsSilenceWhenChannelAbsent(t *testing.T) {
	r := NewReader(readerTestName())
	out := make([]float32, 10*channel.Channels)
	for i := range out {
		out[i] = 1
	}

	r.ReadCallback(out, 10)

	for _, s := range out {
		assert.Equal(t, float32(0), s)
	}
}

func TestReadCallbackYieldsSilenceWhileInactive(t *testing.T) {
	name := readerTestName()
	ch, err := channel.CreateOrOpen(name)
	require.NoError(t, err)
	defer ch.Destroy()

	require.True(t, ch.WriteFrames(make([]float32, 10*channel.Channels), 10))
	// is_active left false.

	r := NewReader(name)
	out := make([]float32, 10*channel.Channels)
	for i := range out {
		out[i] = 1
	}
	r.ReadCallback(out, 10)

	for _, s := range out {
		assert.Equal(t, float32(0), s)
	}
}

func TestReadCallbackReadsAvailableFramesWhenActive(t *testing.T) {
	name := readerTestName()
	ch, err := channel.CreateOrOpen(name)
	require.NoError(t, err)
	defer ch.Destroy()

	src := make([]float32, 10*channel.Channels)
	for i := range src {
		src[i] = float32(i + 1)
	}
	require.True(t, ch.WriteFrames(src, 10))
	ch.SetActive(true)

	r := NewReader(name)
	out := make([]float32, 10*channel.Channels)
	r.ReadCallback(out, 10)

	assert.Equal(t, src, out)
}

func TestReadCallbackRetainsMappingAcrossCalls(t *testing.T) {
	name := readerTestName()
	ch, err := channel.CreateOrOpen(name)
	require.NoError(t, err)
	defer ch.Destroy()
	ch.SetActive(true)

	r := NewReader(name)
	out := make([]float32, 5*channel.Channels)

	r.ReadCallback(out, 5) // first call maps the channel
	require.True(t, ch.WriteFrames(make([]float32, 5*channel.Channels), 5))
	r.ReadCallback(out, 5) // second call should reuse the cached mapping

	assert.Equal(t, int32(1), r.inlineAttempts.Load())
}

func TestReadCallbackEventuallyDefersToBackgroundReconnect(t *testing.T) {
	r := NewReader(readerTestName())
	out := make([]float32, 1*channel.Channels)

	for i := 0; i < maxInlineOpenAttempts+2; i++ {
		r.ReadCallback(out, 1)
	}

	assert.Equal(t, int32(maxInlineOpenAttempts), r.inlineAttempts.Load())
	assert.True(t, r.reconnectRunning.Load())
}

func TestBackgroundReconnectEventuallyConnects(t *testing.T) {
	name := readerTestName()
	r := NewReader(name)
	out := make([]float32, 1*channel.Channels)

	for i := 0; i < maxInlineOpenAttempts+1; i++ {
		r.ReadCallback(out, 1)
	}
	require.True(t, r.reconnectRunning.Load())

	ch, err := channel.CreateOrOpen(name)
	require.NoError(t, err)
	defer ch.Destroy()

	require.Eventually(t, func() bool {
		return r.ch.Load() != nil
	}, 2*time.Second, reconnectBackoff+10*time.Millisecond)
}
