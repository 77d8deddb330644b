package shm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cenkalti/backoff/v4"
	cmap "github.com/orcaman/concurrent-map/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/srediag/audio-shm/internal/logger"
	internalshm "github.com/srediag/audio-shm/internal/shm"
	"github.com/srediag/audio-shm/pkg/ring"
)

var (
	internalLogger = logger.New("shm", nil)
	noopTracer     = noop.NewTracerProvider().Tracer("github.com/srediag/audio-shm/pkg/shm")

	regions = &registry{maps: cmap.New[*mapping]()}
)

// mapping is one process-wide mapping of a backing object, shared by every
// Region handle opened on the same path.
type mapping struct {
	region *internalshm.MappedRegion
	ring   *ring.Ring
	refs   int
	unlink bool
}

// registry deduplicates mappings by path. Lookups are lock-free; open and
// release are serialized by mu.
type registry struct {
	mu   sync.Mutex
	maps cmap.ConcurrentMap[string, *mapping]
}

// Region is a handle on the shared region. Close releases it; the mapping is
// unmapped when the last handle of the process is closed.
type Region struct {
	m      *mapping
	path   string
	closed atomic.Bool
}

// OpenOrCreate attaches to the region described by cfg, creating and
// initializing it when no other process has. It is idempotent: opening an
// initialized region never resets head, tail or queued data.
func OpenOrCreate(ctx context.Context, cfg Config) (*Region, error) {
	if err := VerifyConfig(cfg); err != nil {
		return nil, err
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = noopTracer
	}
	ctx, span := tracer.Start(ctx, "shm.OpenOrCreate", trace.WithAttributes(
		attribute.String("shm.path", cfg.Path()),
		attribute.Int64("shm.capacity", int64(cfg.Capacity)),
	))
	defer span.End()

	m, err := regions.acquire(ctx, cfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Bool("shm.created", m.region.Created))
	return &Region{m: m, path: cfg.Path()}, nil
}

// Ring returns the ring view over the region.
func (r *Region) Ring() *ring.Ring {
	return r.m.ring
}

// Path returns the location of the backing object.
func (r *Region) Path() string {
	return r.path
}

// Created reports whether this process created the backing object.
func (r *Region) Created() bool {
	return r.m.region.Created
}

// Close releases the handle. It is safe on a nil or zero Region and on a
// Region that was already closed.
func (r *Region) Close() error {
	if r == nil || r.m == nil || !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	return regions.release(r.path, r.m)
}

// Remove unlinks the backing object described by cfg. Processes that still
// map it keep working; the next OpenOrCreate creates a fresh region.
func Remove(cfg Config) error {
	return internalshm.RemoveRegion(cfg.Path())
}

// OpenedRegions returns the number of distinct regions mapped by this process.
func OpenedRegions() int {
	return regions.maps.Count()
}

func (g *registry) acquire(ctx context.Context, cfg Config) (*mapping, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	path := cfg.Path()
	if m, ok := g.maps.Get(path); ok {
		if c := m.ring.Capacity(); c != cfg.Capacity {
			return nil, fmt.Errorf("%w: %s already mapped with capacity %d, want %d", ErrRegionSizeMismatch, path, c, cfg.Capacity)
		}
		m.refs++
		m.unlink = m.unlink || cfg.UnlinkOnClose
		return m, nil
	}

	m, err := openMapping(ctx, cfg)
	if err != nil {
		return nil, err
	}
	g.maps.Set(path, m)
	return m, nil
}

func (g *registry) release(path string, m *mapping) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	m.refs--
	if m.refs > 0 {
		return nil
	}
	g.maps.Remove(path)
	return m.close(context.Background())
}

func (m *mapping) close(ctx context.Context) error {
	var errs []error
	if err := internalshm.UnmapRegion(ctx, m.region); err != nil {
		internalLogger.Warnf("unmap %s error: %v", m.region.Path, err)
		errs = append(errs, err)
	}
	if m.unlink {
		if err := internalshm.RemoveRegion(m.region.Path); err != nil {
			internalLogger.Warnf("remove %s failed, error=%v", m.region.Path, err)
			errs = append(errs, err)
		} else {
			internalLogger.Infof("removed region %s", m.region.Path)
		}
	}
	return errors.Join(errs...)
}

// openMapping maps the backing object and brings its header to a trusted state.
func openMapping(ctx context.Context, cfg Config) (*mapping, error) {
	opts := internalshm.MapOptions{
		Dir:  cfg.Dir,
		Name: cfg.Name,
		Size: ring.Size(cfg.Capacity),
		Mode: cfg.Mode,
	}

	var region *internalshm.MappedRegion
	err := retryAttach(ctx, cfg, func() error {
		var err error
		region, err = internalshm.MapRegion(ctx, opts)
		if errors.Is(err, internalshm.ErrNotReady) {
			return err
		}
		return backoff.Permanent(err)
	})
	if err != nil {
		if errors.Is(err, internalshm.ErrNotReady) {
			return nil, fmt.Errorf("%w: %w", ErrRegionUnavailable, err)
		}
		return nil, err
	}

	m := &mapping{region: region, refs: 1, unlink: cfg.UnlinkOnClose}
	if region.Created {
		m.ring, err = ring.Init(region.Addr, cfg.Capacity)
	} else {
		m.ring, err = attachRing(ctx, cfg, region.Addr)
	}
	if err != nil {
		_ = internalshm.UnmapRegion(ctx, region)
		if region.Created {
			_ = internalshm.RemoveRegion(region.Path)
		}
		return nil, err
	}

	if region.Created {
		internalLogger.Infof("created region %s capacity:%d", region.Path, cfg.Capacity)
	} else {
		st := m.ring.Snapshot()
		internalLogger.Infof("attached region %s capacity:%d head:%d tail:%d", region.Path, st.Capacity, st.Head, st.Tail)
	}
	return m, nil
}

// attachRing waits for a concurrent creator to store magic, then validates
// the header against cfg.
func attachRing(ctx context.Context, cfg Config, mem []byte) (*ring.Ring, error) {
	var r *ring.Ring
	err := retryAttach(ctx, cfg, func() error {
		switch magic := ring.MagicOf(mem); magic {
		case 0:
			return fmt.Errorf("%w: header not published yet", ErrInvalidMagic)
		case ring.Magic:
		default:
			return backoff.Permanent(fmt.Errorf("%w: %#08x", ErrInvalidMagic, magic))
		}
		if c := ring.CapacityOf(mem); c != cfg.Capacity {
			return backoff.Permanent(fmt.Errorf("%w: header capacity %d, want %d", ErrRegionSizeMismatch, c, cfg.Capacity))
		}
		var err error
		r, err = ring.Attach(mem)
		return backoff.Permanent(err)
	})
	return r, err
}

func retryAttach(ctx context.Context, cfg Config, op backoff.Operation) error {
	var b backoff.BackOff = &backoff.StopBackOff{}
	if n := cfg.attachRetries(); n > 0 {
		b = backoff.WithMaxRetries(backoff.NewConstantBackOff(attachPollInterval), n)
	}
	return backoff.Retry(op, backoff.WithContext(b, ctx))
}
