package shm

import (
	"sync/atomic"
	"unsafe"
)

// LoadAcquireUint32 loads a uint32 from shared memory. A reader that observes
// a value also observes every store that preceded the matching
// StoreReleaseUint32. addr must be 4-byte aligned.
func LoadAcquireUint32(addr unsafe.Pointer) uint32 {
	return atomic.LoadUint32((*uint32)(addr))
}

// StoreReleaseUint32 stores a uint32 to shared memory after all preceding
// writes of the caller. addr must be 4-byte aligned.
func StoreReleaseUint32(addr unsafe.Pointer, val uint32) {
	atomic.StoreUint32((*uint32)(addr), val)
}

// Aligned32 reports whether addr can be used with the 32-bit helpers.
func Aligned32(addr unsafe.Pointer) bool {
	return uintptr(addr)%4 == 0
}
