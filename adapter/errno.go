// Package adapter bridges an audio output driver to the shared region.
//
// Driver callbacks report failures as negative errno values, so every
// operation here returns a plain int instead of an error.
package adapter

import (
	"context"
	"errors"

	"golang.org/x/sys/unix"

	"github.com/srediag/audio-shm/pkg/producer"
	"github.com/srediag/audio-shm/pkg/ring"
	"github.com/srediag/audio-shm/pkg/shm"
)

// Errno maps err to a negative errno. An errno carried by err wins over the
// kind of failure. Nil maps to 0.
func Errno(err error) int {
	if err == nil {
		return 0
	}
	var errno unix.Errno
	if errors.As(err, &errno) && errno != 0 {
		return -int(errno)
	}
	switch {
	case errors.Is(err, shm.ErrRegionUnavailable):
		return -int(unix.ENODEV)
	case errors.Is(err, shm.ErrRegionSizeMismatch),
		errors.Is(err, shm.ErrInvalidConfig),
		errors.Is(err, ring.ErrInvalidCapacity),
		errors.Is(err, ring.ErrMisaligned),
		errors.Is(err, producer.ErrInvalidPolicy):
		return -int(unix.EINVAL)
	case errors.Is(err, shm.ErrMappingFailed):
		return -int(unix.ENOMEM)
	case errors.Is(err, shm.ErrInvalidMagic):
		return -int(unix.EPROTO)
	case errors.Is(err, shm.ErrUnsupportedPlatform):
		return -int(unix.ENOSYS)
	case errors.Is(err, context.DeadlineExceeded):
		return -int(unix.ETIMEDOUT)
	case errors.Is(err, context.Canceled):
		return -int(unix.ECANCELED)
	}
	return -int(unix.EIO)
}
