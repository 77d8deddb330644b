package consumer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Workiva/go-datastructures/queue"
	"github.com/panjf2000/ants/v2"
	"github.com/valyala/bytebufferpool"

	"github.com/srediag/audio-shm/internal/logger"
	"github.com/srediag/audio-shm/pkg/audio"
	"github.com/srediag/audio-shm/pkg/ring"
)

var (
	internalLogger = logger.New("consumer", nil)

	// ErrRegionInvalid is returned by Run when the ring header loses its magic.
	ErrRegionInvalid = errors.New("consumer: region is no longer a valid ring")
	// ErrDeliveryStopped is returned by Run when the handler worker died.
	ErrDeliveryStopped = errors.New("consumer: delivery stopped")
)

const (
	defaultPollInterval = time.Millisecond
	defaultChunkSize    = 16 << 10
	defaultQueueDepth   = 64
)

// Handler receives each chunk read from the ring with the format published
// at the time of the read. chunk is only valid during the call.
type Handler func(chunk []byte, f audio.Format)

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithPollInterval sets the wait between two looks at an empty ring.
func WithPollInterval(d time.Duration) BridgeOption {
	return func(b *Bridge) { b.pollInterval = d }
}

// WithChunkSize bounds the bytes handed to one Handler call.
func WithChunkSize(n int) BridgeOption {
	return func(b *Bridge) { b.chunkSize = n }
}

// WithQueueDepth sets how many chunks may wait for the handler. When the
// queue is full the Bridge stops draining the ring.
func WithQueueDepth(n uint64) BridgeOption {
	return func(b *Bridge) { b.queueDepth = n }
}

// Bridge polls the ring for data and delivers it, in order, to a Handler
// running on its own worker.
type Bridge struct {
	reader       *Reader
	pollInterval time.Duration
	chunkSize    int
	queueDepth   uint64

	chunks atomic.Uint64
	bytes  atomic.Uint64
}

type chunk struct {
	buf    *bytebufferpool.ByteBuffer
	format audio.Format
}

// NewBridge returns a Bridge draining r.
func NewBridge(r *ring.Ring, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		reader:       NewReader(r),
		pollInterval: defaultPollInterval,
		chunkSize:    defaultChunkSize,
		queueDepth:   defaultQueueDepth,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.pollInterval <= 0 {
		b.pollInterval = defaultPollInterval
	}
	if b.chunkSize <= 0 {
		b.chunkSize = defaultChunkSize
	}
	if b.queueDepth == 0 {
		b.queueDepth = defaultQueueDepth
	}
	return b
}

// Delivered returns the number of chunks and bytes handed to the handler.
func (b *Bridge) Delivered() (chunks, bytes uint64) {
	return b.chunks.Load(), b.bytes.Load()
}

// Run drains the ring into h until ctx is done. Chunks already read are
// delivered before Run returns. Run returns nil on cancellation.
func (b *Bridge) Run(ctx context.Context, h Handler) error {
	q := queue.NewRingBuffer(b.queueDepth)
	defer q.Dispose()

	pool, err := ants.NewPool(1, ants.WithPanicHandler(func(p interface{}) {
		internalLogger.Errorf("bridge handler panic: %v", p)
	}))
	if err != nil {
		return fmt.Errorf("consumer: create worker pool: %w", err)
	}
	defer pool.Release()

	done := make(chan struct{})
	if err := pool.Submit(func() {
		defer close(done)
		b.deliver(q, h)
	}); err != nil {
		return fmt.Errorf("consumer: start delivery: %w", err)
	}

	err = b.poll(ctx, q, done)

	// A nil item tells the worker the stream ended after what is queued.
	if offerErr := b.offer(context.Background(), q, nil, done); offerErr == nil {
		<-done
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (b *Bridge) poll(ctx context.Context, q *queue.RingBuffer, done <-chan struct{}) error {
	timer := time.NewTimer(b.pollInterval)
	defer timer.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		buf := bytebufferpool.Get()
		if cap(buf.B) < b.chunkSize {
			buf.B = make([]byte, b.chunkSize)
		}
		buf.B = buf.B[:b.chunkSize]

		n := b.reader.TryRead(buf.B)
		if n > 0 {
			buf.B = buf.B[:n]
			c := &chunk{buf: buf, format: b.reader.Format()}
			if err := b.offer(ctx, q, c, done); err != nil {
				bytebufferpool.Put(buf)
				return err
			}
			continue
		}
		bytebufferpool.Put(buf)

		if !b.reader.ring.Valid() {
			return ErrRegionInvalid
		}
		timer.Reset(b.pollInterval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
			return ErrDeliveryStopped
		case <-timer.C:
		}
	}
}

// offer queues c, waiting while the handler is behind.
func (b *Bridge) offer(ctx context.Context, q *queue.RingBuffer, c *chunk, done <-chan struct{}) error {
	for {
		ok, err := q.Offer(c)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
			return ErrDeliveryStopped
		case <-time.After(b.pollInterval):
		}
	}
}

func (b *Bridge) deliver(q *queue.RingBuffer, h Handler) {
	for {
		item, err := q.Get()
		if err != nil {
			return
		}
		c, _ := item.(*chunk)
		if c == nil {
			return
		}
		h(c.buf.B, c.format)
		b.chunks.Add(1)
		b.bytes.Add(uint64(len(c.buf.B)))
		bytebufferpool.Put(c.buf)
	}
}
