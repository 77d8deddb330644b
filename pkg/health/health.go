// Package health exposes readiness and liveness probes and Prometheus gauges
// for a mapped audio region.
package health

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/heptiolabs/healthcheck"

	"github.com/srediag/audio-shm/pkg/ring"
)

var (
	// ErrNotPublished is reported while the region magic is not valid.
	ErrNotPublished = errors.New("health: region magic not published")
	// ErrConsumerStalled is reported when queued data has not been drained
	// within the allowed window.
	ErrConsumerStalled = errors.New("health: consumer stalled")
)

// ReadinessCheck passes once the region header has been published.
func ReadinessCheck(r *ring.Ring) healthcheck.Check {
	return func() error {
		if !r.Valid() {
			return ErrNotPublished
		}
		return nil
	}
}

// LivenessCheck fails when bytes stay queued and the consumer offset does not
// move for longer than maxStall. An empty ring is always live.
func LivenessCheck(r *ring.Ring, maxStall time.Duration) healthcheck.Check {
	return newStallDetector(r, maxStall, time.Now).check
}

type stallDetector struct {
	r        *ring.Ring
	maxStall time.Duration
	now      func() time.Time

	mu       sync.Mutex
	tail     ring.Index
	progress time.Time
}

func newStallDetector(r *ring.Ring, maxStall time.Duration, now func() time.Time) *stallDetector {
	return &stallDetector{r: r, maxStall: maxStall, now: now, tail: r.Tail(), progress: now()}
}

func (d *stallDetector) check() error {
	tail := d.r.Tail()
	used := d.r.AvailableRead()
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()
	if used == 0 || tail != d.tail {
		d.tail = tail
		d.progress = now
		return nil
	}
	if stalled := now.Sub(d.progress); stalled > d.maxStall {
		return fmt.Errorf("%w: %d bytes queued, tail at %d for %s", ErrConsumerStalled, used, tail, stalled)
	}
	return nil
}
