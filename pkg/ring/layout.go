// Package ring implements the single-producer single-consumer byte ring that
// lives at the start of the shared audio region.
//
// Header layout, fixed-width host-order (little-endian) fields:
//
//	0x00 magic          "VDAP", written last on initialization
//	0x04 capacity       bytes in the data area
//	0x08 head           producer write offset, release-stored
//	0x0C tail           consumer read offset, release-stored
//	0x10 sample_rate    }
//	0x14 channel_mask   } most recently published stream format
//	0x18 sample_format  }
//	0x1C data[capacity]
//
// One byte of the data area is never filled so that head == tail always
// means empty.
package ring

import "errors"

const (
	// Magic identifies a fully initialized region.
	Magic uint32 = 0x56444150

	// DefaultCapacity is the data-area size producer and consumer binaries
	// agree on (about 20 seconds of 44.1kHz 16-bit stereo).
	DefaultCapacity uint32 = 4 * 1024 * 1024

	// MinCapacity is the smallest capacity that can hold one byte.
	MinCapacity uint32 = 2

	// HeaderSize is the offset of the data area.
	HeaderSize = 28

	// MaxCapacity keeps Size within a uint32 region length.
	MaxCapacity uint32 = 1<<32 - 1 - HeaderSize
)

const (
	magicOffset        = 0x00
	capacityOffset     = 0x04
	headOffset         = 0x08
	tailOffset         = 0x0C
	sampleRateOffset   = 0x10
	channelMaskOffset  = 0x14
	sampleFormatOffset = 0x18
)

var (
	// ErrInvalidMagic is returned when a region does not carry Magic.
	ErrInvalidMagic = errors.New("ring: invalid magic")
	// ErrInvalidCapacity is returned for capacities outside [MinCapacity, MaxCapacity]
	// or larger than the memory that backs them.
	ErrInvalidCapacity = errors.New("ring: invalid capacity")
	// ErrMisaligned is returned when the header cannot be accessed atomically.
	ErrMisaligned = errors.New("ring: header is not 4-byte aligned")
)

// Size returns the region length needed for a ring of the given capacity.
func Size(capacity uint32) int {
	return HeaderSize + int(capacity)
}

// ValidCapacity reports whether capacity can back a ring.
func ValidCapacity(capacity uint32) bool {
	return capacity >= MinCapacity && capacity <= MaxCapacity
}
