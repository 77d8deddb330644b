package shm

import (
	"errors"

	internalshm "github.com/srediag/audio-shm/internal/shm"
	"github.com/srediag/audio-shm/pkg/ring"
)

// Error kinds returned by OpenOrCreate. Each one is fatal for the stream and
// is never retried silently.
var (
	// ErrRegionUnavailable means the backing object cannot be created or opened.
	ErrRegionUnavailable = internalshm.ErrUnavailable
	// ErrRegionSizeMismatch means an existing object has a different size or capacity.
	ErrRegionSizeMismatch = internalshm.ErrSizeMismatch
	// ErrMappingFailed means the backing object could not be mapped.
	ErrMappingFailed = internalshm.ErrMappingFailed
	// ErrInvalidMagic means the region is not a fully initialized ring.
	ErrInvalidMagic = ring.ErrInvalidMagic
	// ErrUnsupportedPlatform means this build has no shared memory support.
	ErrUnsupportedPlatform = internalshm.ErrUnsupportedPlatform
	// ErrInvalidConfig means VerifyConfig rejected the configuration.
	ErrInvalidConfig = errors.New("shm: invalid config")
)
