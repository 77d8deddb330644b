package consumer

import (
	"bytes"
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/srediag/audio-shm/pkg/audio"
)

type sink struct {
	mu      sync.Mutex
	data    []byte
	formats []audio.Format
}

func (s *sink) handle(chunk []byte, f audio.Format) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append(s.data, chunk...)
	s.formats = append(s.formats, f)
}

func (s *sink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

func TestBridgeDeliversInOrder(t *testing.T) {
	r := newTestRing(t, 1000)
	f := audio.Format{SampleRate: 48000, ChannelMask: audio.ChannelOutStereo, SampleFormat: audio.FormatPCM16}
	r.SetFormat(f)

	in := make([]byte, 64<<10)
	rand.New(rand.NewSource(3)).Read(in)

	b := NewBridge(r, WithChunkSize(333), WithQueueDepth(4), WithPollInterval(100*time.Microsecond))
	out := &sink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.Run(gctx, out.handle) })
	g.Go(func() error {
		for off := 0; off < len(in); {
			off += push(r, in[off:min(off+257, len(in))])
			if r.AvailableWrite() == 0 {
				time.Sleep(50 * time.Microsecond)
			}
		}
		assert.Eventually(t, func() bool { return out.len() == len(in) }, 5*time.Second, time.Millisecond)
		cancel()
		return nil
	})
	require.NoError(t, g.Wait())

	assert.True(t, bytes.Equal(in, out.data))
	chunks, n := b.Delivered()
	assert.Equal(t, uint64(len(in)), n)
	assert.Equal(t, uint64(len(out.formats)), chunks)
	for _, got := range out.formats {
		assert.Equal(t, f, got)
	}
}

func TestBridgeStopsOnCancel(t *testing.T) {
	r := newTestRing(t, 64)
	b := NewBridge(r)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.NoError(t, b.Run(ctx, func([]byte, audio.Format) {}))
}

func TestBridgeRegionInvalidated(t *testing.T) {
	r := newTestRing(t, 64)
	b := NewBridge(r)

	go func() {
		time.Sleep(5 * time.Millisecond)
		r.Invalidate()
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.ErrorIs(t, b.Run(ctx, func([]byte, audio.Format) {}), ErrRegionInvalid)
}

func TestBridgeHandlerPanic(t *testing.T) {
	r := newTestRing(t, 64)
	push(r, []byte("boom"))
	b := NewBridge(r)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := b.Run(ctx, func([]byte, audio.Format) { panic("handler failed") })
	assert.ErrorIs(t, err, ErrDeliveryStopped)
}

func TestNewBridgeDefaults(t *testing.T) {
	b := NewBridge(newTestRing(t, 64), WithChunkSize(-1), WithPollInterval(0), WithQueueDepth(0))
	assert.Equal(t, defaultChunkSize, b.chunkSize)
	assert.Equal(t, defaultPollInterval, b.pollInterval)
	assert.Equal(t, uint64(defaultQueueDepth), b.queueDepth)
}
