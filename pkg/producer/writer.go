package producer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/srediag/audio-shm/api"
	"github.com/srediag/audio-shm/internal/logger"
	"github.com/srediag/audio-shm/pkg/audio"
	"github.com/srediag/audio-shm/pkg/ring"
)

// ErrPartialWrite is returned with a short count when the wait budget ran out
// before every byte was queued. It is not fatal; the stream stays usable.
var ErrPartialWrite = errors.New("producer: partial write")

var internalLogger = logger.New("producer", nil)

// State is the stream state tracked by a Writer.
type State = api.StreamState

const (
	StateStandby = api.StreamStandby
	StateActive  = api.StreamActive
)

var _ api.OutputSink = (*Writer)(nil)

// Option configures a Writer.
type Option func(*Writer)

// WithWaitPolicy replaces DefaultWaitPolicy.
func WithWaitPolicy(p WaitPolicy) Option {
	return func(w *Writer) { w.policy = p }
}

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(w *Writer) { w.clock = c }
}

// WithMeter records writer counters on meter.
func WithMeter(m metric.Meter) Option {
	return func(w *Writer) { w.meter = m }
}

// WithFormat sets the initial stream format.
func WithFormat(f audio.Format) Option {
	return func(w *Writer) { w.format = f }
}

// Writer queues audio bytes into the ring. It is the only writer of head
// and must be used from one goroutine at a time.
type Writer struct {
	ring    *ring.Ring
	pub     *Publisher
	policy  WaitPolicy
	clock   Clock
	meter   metric.Meter
	format  audio.Format
	state   atomic.Int32
	metrics *writerMetrics
}

// NewWriter returns a Writer in standby over r.
func NewWriter(r *ring.Ring, opts ...Option) (*Writer, error) {
	w := &Writer{
		ring:   r,
		pub:    NewPublisher(r),
		policy: DefaultWaitPolicy(),
		clock:  systemClock{},
	}
	for _, opt := range opts {
		opt(w)
	}
	if err := w.policy.Verify(); err != nil {
		return nil, err
	}
	m, err := newWriterMetrics(w.meter)
	if err != nil {
		return nil, fmt.Errorf("producer: create metrics: %w", err)
	}
	w.metrics = m
	return w, nil
}

// SetFormat changes the format published before the next write.
func (w *Writer) SetFormat(f audio.Format) {
	w.format = f
}

// PublishFormat changes the stream format and publishes it right away.
func (w *Writer) PublishFormat(f audio.Format) {
	w.format = f
	w.pub.Publish(f)
}

// Format returns the configured stream format.
func (w *Writer) Format() audio.Format {
	return w.format
}

// State returns the stream state. It is safe to call from any goroutine.
func (w *Writer) State() State {
	return State(w.state.Load())
}

// Standby moves the stream to standby.
func (w *Writer) Standby() {
	w.state.Store(int32(StateStandby))
}

// Stats returns the cumulative counters of w.
func (w *Writer) Stats() Stats {
	return w.metrics.snapshot()
}

// Write publishes the stream format and queues p into the ring, waiting for
// space within the wait policy. It returns the number of bytes queued. When
// fewer than len(p) bytes fit before the budget ran out, Write sleeps for the
// playback time of the rest and returns ErrPartialWrite with the short count.
func (w *Writer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	w.pub.Publish(w.format)

	capacity := w.ring.Capacity()
	bu := w.policy.newBudget(w.clock)
	written := 0
	for written < len(p) {
		avail := w.ring.AvailableWrite()
		if avail == 0 {
			d, ok := bu.next()
			if !ok {
				break
			}
			w.metrics.waits.Add(1)
			w.metrics.waitCounter.Add(context.Background(), 1)
			w.clock.Sleep(d)
			continue
		}

		chunk := len(p) - written
		if uint32(chunk) > avail {
			chunk = int(avail)
		}
		head := w.ring.Head()
		w.ring.WriteChunk(head, p[written:written+chunk])
		w.ring.PublishHead(head.Advance(uint32(chunk), capacity))
		written += chunk
		internalLogger.Tracef("queued %d bytes at %d", chunk, head)
	}

	if written > 0 {
		w.state.Store(int32(StateActive))
		w.metrics.bytesWritten.Add(uint64(written))
		w.metrics.bytesCounter.Add(context.Background(), int64(written))
	}
	if written == len(p) {
		return written, nil
	}

	undelivered := len(p) - written
	pause := PacingDelay(undelivered, w.format)
	internalLogger.Warnf("ring full, %d of %d bytes undelivered, pacing %s", undelivered, len(p), pause)
	w.metrics.partialWrites.Add(1)
	w.metrics.partialCounter.Add(context.Background(), 1)
	if pause > 0 {
		w.metrics.pacingNanos.Add(int64(pause))
		w.metrics.pacingCounter.Add(context.Background(), pause.Seconds())
		w.clock.Sleep(pause)
	}
	return written, fmt.Errorf("%w: %d of %d bytes queued", ErrPartialWrite, written, len(p))
}

// PacingDelay returns the nominal playback time of n bytes of audio in format
// f, or 0 when f has no sample rate.
func PacingDelay(n int, f audio.Format) time.Duration {
	rate := f.ByteRate()
	if rate == 0 || n <= 0 {
		return 0
	}
	return time.Duration(uint64(n) * uint64(time.Second) / rate)
}
