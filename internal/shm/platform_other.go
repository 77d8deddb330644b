//go:build !linux

package shm

import "context"

// MapRegion is not implemented on this platform.
func MapRegion(ctx context.Context, opts MapOptions) (*MappedRegion, error) {
	return nil, ErrUnsupportedPlatform
}

// UnmapRegion is a no-op on this platform.
func UnmapRegion(ctx context.Context, region *MappedRegion) error {
	return nil
}

// RemoveRegion is not implemented on this platform.
func RemoveRegion(path string) error {
	return ErrUnsupportedPlatform
}
