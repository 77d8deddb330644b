package adapter

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/srediag/audio-shm/api"
	"github.com/srediag/audio-shm/internal/logger"
	"github.com/srediag/audio-shm/pkg/audio"
	"github.com/srediag/audio-shm/pkg/producer"
	"github.com/srediag/audio-shm/pkg/shm"
)

var internalLogger = logger.New("adapter", nil)

// OutputStream is one playback stream of the driver. The region is opened on
// the first write, so a driver can be loaded before the host side exists.
// A failed open is retried on the next write.
type OutputStream struct {
	cfg  shm.Config
	opts []producer.Option

	mu     sync.Mutex
	format audio.Format
	region *shm.Region
	sink   api.OutputSink
	closed bool
}

// NewOutputStream returns a stream in standby that will publish format.
// opts are passed to the producer once the region is open.
func NewOutputStream(cfg shm.Config, format audio.Format, opts ...producer.Option) (*OutputStream, error) {
	if err := shm.VerifyConfig(cfg); err != nil {
		return nil, err
	}
	return &OutputStream{cfg: cfg, format: format, opts: opts}, nil
}

func (s *OutputStream) open() error {
	if s.sink != nil {
		return nil
	}
	region, err := shm.OpenOrCreate(context.Background(), s.cfg)
	if err != nil {
		return err
	}
	opts := append([]producer.Option{producer.WithFormat(s.format)}, s.opts...)
	w, err := producer.NewWriter(region.Ring(), opts...)
	if err != nil {
		_ = region.Close()
		return err
	}
	s.region, s.sink = region, w
	return nil
}

// Write queues buf and returns the number of bytes accepted, or a negative
// errno if the region could not be opened. A full region yields a short
// count, not an error.
func (s *OutputStream) Write(buf []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return -int(unix.EBADF)
	}
	if err := s.open(); err != nil {
		internalLogger.Warnf("output stream %s: open: %v", s.cfg.Path(), err)
		return Errno(err)
	}
	n, err := s.sink.Write(buf)
	if err != nil && !errors.Is(err, producer.ErrPartialWrite) {
		return Errno(err)
	}
	return n
}

// SetFormat changes the format published with the next write.
func (s *OutputStream) SetFormat(f audio.Format) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.format = f
	if s.sink != nil {
		s.sink.PublishFormat(f)
	}
}

// Format returns the stream format.
func (s *OutputStream) Format() audio.Format {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.format
}

// State reports standby until the first accepted write.
func (s *OutputStream) State() api.StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sink == nil {
		return api.StreamStandby
	}
	return s.sink.State()
}

// Standby pauses the stream. The region stays mapped.
func (s *OutputStream) Standby() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sink != nil {
		s.sink.Standby()
	}
	return 0
}

// Close releases the region. Calling Close more than once is allowed.
func (s *OutputStream) Close() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0
	}
	s.closed = true
	s.sink = nil
	if s.region == nil {
		return 0
	}
	err := s.region.Close()
	s.region = nil
	return Errno(err)
}
