// Package shm contains the platform-specific mapping of the shared region
// backing an audio ring.
package shm

import "errors"

var (
	// ErrUnavailable is returned when the backing object cannot be created or opened.
	ErrUnavailable = errors.New("shared region unavailable")
	// ErrSizeMismatch is returned when an existing backing object has a different size.
	ErrSizeMismatch = errors.New("shared region size mismatch")
	// ErrMappingFailed is returned when mmap of the backing object fails.
	ErrMappingFailed = errors.New("shared region mapping failed")
	// ErrNotReady is returned when another process created the backing object
	// but has not sized it yet. Callers may retry.
	ErrNotReady = errors.New("shared region not sized yet")
	// ErrUnsupportedPlatform is returned on platforms without a mapping implementation.
	ErrUnsupportedPlatform = errors.New("shared region not supported on this platform")
)

// DefaultMode is the permission of a newly created backing object. Guest and
// host usually run as different users.
const DefaultMode = 0o666

// MappedRegion represents a memory-mapped shared region.
type MappedRegion struct {
	Addr []byte
	Path string
	// Created is true when this mapping created the backing object.
	Created bool
}

// MapOptions defines options for mapping shared memory.
type MapOptions struct {
	Dir  string
	Name string
	Size int
	Mode uint32
}

// Function implementations are provided in platform-specific files (platform_linux.go, platform_other.go).
