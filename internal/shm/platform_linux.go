//go:build linux

package shm

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"
	"golang.org/x/sys/unix"
)

// MapRegion attaches to the backing object named by opts, creating and sizing
// it when it does not exist yet. A newly sized object is zero-filled.
func MapRegion(ctx context.Context, opts MapOptions) (*MappedRegion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Size <= 0 {
		return nil, fmt.Errorf("%w: invalid size %d", ErrUnavailable, opts.Size)
	}
	mode := opts.Mode
	if mode == 0 {
		mode = DefaultMode
	}
	path := filepath.Join(opts.Dir, opts.Name)

	created := true
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL|unix.O_CLOEXEC, mode)
	if errors.Is(err, unix.EEXIST) {
		created = false
		fd, err = unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrUnavailable, path, err)
	}

	// discard undoes a failed creation so the next attempt starts clean.
	discard := func() {
		_ = unix.Close(fd)
		if created {
			_ = unix.Unlink(path)
		}
	}

	if created {
		if !canCreate(uint64(opts.Size), opts.Dir) {
			discard()
			return nil, fmt.Errorf("%w: not enough space in %s for %d bytes", ErrUnavailable, opts.Dir, opts.Size)
		}
		if err := unix.Ftruncate(fd, int64(opts.Size)); err != nil {
			discard()
			return nil, fmt.Errorf("%w: ftruncate %s: %w", ErrUnavailable, path, err)
		}
	} else {
		var st unix.Stat_t
		if err := unix.Fstat(fd, &st); err != nil {
			discard()
			return nil, fmt.Errorf("%w: fstat %s: %w", ErrUnavailable, path, err)
		}
		switch {
		case st.Size == 0:
			discard()
			return nil, fmt.Errorf("%w: %s", ErrNotReady, path)
		case st.Size != int64(opts.Size):
			discard()
			return nil, fmt.Errorf("%w: %s is %d bytes, want %d", ErrSizeMismatch, path, st.Size, opts.Size)
		}
	}

	addr, err := unix.Mmap(fd, 0, opts.Size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		discard()
		return nil, fmt.Errorf("%w: mmap %s: %w", ErrMappingFailed, path, err)
	}
	// The mapping keeps the object alive; the descriptor is not needed anymore.
	_ = unix.Close(fd)

	return &MappedRegion{
		Addr:    addr,
		Path:    path,
		Created: created,
	}, nil
}

// UnmapRegion unmaps the shared memory region. It is a no-op for nil or
// already unmapped regions.
func UnmapRegion(ctx context.Context, region *MappedRegion) error {
	if region == nil || region.Addr == nil {
		return nil
	}
	if err := unix.Munmap(region.Addr); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	region.Addr = nil
	return nil
}

// RemoveRegion unlinks the backing object. Existing mappings stay valid.
func RemoveRegion(path string) error {
	if err := unix.Unlink(path); err != nil && !errors.Is(err, unix.ENOENT) {
		return fmt.Errorf("unlink %s: %w", path, err)
	}
	return nil
}

// canCreate reports whether dir has room for size more bytes. It answers true
// when the filesystem cannot be inspected.
func canCreate(size uint64, dir string) bool {
	stat, err := disk.Usage(dir)
	if err != nil {
		return true
	}
	return stat.Free >= size
}
