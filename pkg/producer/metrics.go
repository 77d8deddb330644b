package producer

import (
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/srediag/audio-shm/pkg/producer"

// Stats are the cumulative counters of a Writer.
type Stats struct {
	BytesWritten  uint64
	PartialWrites uint64
	Waits         uint64
	PacingSleep   time.Duration
}

type writerMetrics struct {
	bytesWritten  atomic.Uint64
	partialWrites atomic.Uint64
	waits         atomic.Uint64
	pacingNanos   atomic.Int64

	bytesCounter   metric.Int64Counter
	partialCounter metric.Int64Counter
	waitCounter    metric.Int64Counter
	pacingCounter  metric.Float64Counter
}

func newWriterMetrics(meter metric.Meter) (*writerMetrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter(meterName)
	}
	m := &writerMetrics{}
	var err error
	if m.bytesCounter, err = meter.Int64Counter("vdap.producer.bytes_written",
		metric.WithUnit("By"),
		metric.WithDescription("Bytes queued into the audio ring.")); err != nil {
		return nil, err
	}
	if m.partialCounter, err = meter.Int64Counter("vdap.producer.partial_writes",
		metric.WithDescription("Writes that exhausted the wait budget.")); err != nil {
		return nil, err
	}
	if m.waitCounter, err = meter.Int64Counter("vdap.producer.waits",
		metric.WithDescription("Poll intervals spent on a full ring.")); err != nil {
		return nil, err
	}
	if m.pacingCounter, err = meter.Float64Counter("vdap.producer.pacing_sleep",
		metric.WithUnit("s"),
		metric.WithDescription("Time slept to pace undelivered audio.")); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *writerMetrics) snapshot() Stats {
	return Stats{
		BytesWritten:  m.bytesWritten.Load(),
		PartialWrites: m.partialWrites.Load(),
		Waits:         m.waits.Load(),
		PacingSleep:   time.Duration(m.pacingNanos.Load()),
	}
}
