package ring

import (
	"fmt"
	"unsafe"

	"github.com/srediag/audio-shm/internal/shm"
	"github.com/srediag/audio-shm/pkg/audio"
)

// Ring is a view over a region holding the header and the data area. The
// producer owns head, the consumer owns tail; a Ring value may be shared by
// one producer and one consumer goroutine, or each side may build its own
// view over the same mapping.
type Ring struct {
	mem      []byte
	data     []byte
	capacity uint32
}

// Init writes a fresh header for a ring of capacity into mem and returns a
// view over it. Every field is stored before magic, so an observer that sees
// Magic sees a fully initialized buffer.
func Init(mem []byte, capacity uint32) (*Ring, error) {
	if err := checkMem(mem, capacity); err != nil {
		return nil, err
	}
	r := newRing(mem, capacity)
	r.store(magicOffset, 0)
	r.store(capacityOffset, capacity)
	r.store(headOffset, 0)
	r.store(tailOffset, 0)
	r.store(sampleRateOffset, 0)
	r.store(channelMaskOffset, 0)
	r.store(sampleFormatOffset, 0)
	r.store(magicOffset, Magic)
	return r, nil
}

// Attach returns a view over an already initialized ring in mem. It refuses
// regions without Magic or whose recorded capacity does not fit in mem.
func Attach(mem []byte) (*Ring, error) {
	if len(mem) < HeaderSize {
		return nil, fmt.Errorf("%w: region of %d bytes has no header", ErrInvalidMagic, len(mem))
	}
	if !shm.Aligned32(unsafe.Pointer(&mem[0])) {
		return nil, ErrMisaligned
	}
	if m := loadAt(mem, magicOffset); m != Magic {
		return nil, fmt.Errorf("%w: %#08x", ErrInvalidMagic, m)
	}
	capacity := loadAt(mem, capacityOffset)
	if err := checkMem(mem, capacity); err != nil {
		return nil, err
	}
	return newRing(mem, capacity), nil
}

// MagicOf returns the magic field of mem, or 0 when mem has no header.
func MagicOf(mem []byte) uint32 {
	if len(mem) < HeaderSize || !shm.Aligned32(unsafe.Pointer(&mem[0])) {
		return 0
	}
	return loadAt(mem, magicOffset)
}

// CapacityOf returns the capacity field of mem, or 0 when mem has no header.
func CapacityOf(mem []byte) uint32 {
	if len(mem) < HeaderSize || !shm.Aligned32(unsafe.Pointer(&mem[0])) {
		return 0
	}
	return loadAt(mem, capacityOffset)
}

func checkMem(mem []byte, capacity uint32) error {
	if !ValidCapacity(capacity) {
		return fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	if len(mem) < Size(capacity) {
		return fmt.Errorf("%w: capacity %d needs %d bytes, region has %d", ErrInvalidCapacity, capacity, Size(capacity), len(mem))
	}
	if !shm.Aligned32(unsafe.Pointer(&mem[0])) {
		return ErrMisaligned
	}
	return nil
}

func newRing(mem []byte, capacity uint32) *Ring {
	return &Ring{
		mem:      mem,
		data:     mem[HeaderSize : HeaderSize+int(capacity)],
		capacity: capacity,
	}
}

func loadAt(mem []byte, off int) uint32 {
	return shm.LoadAcquireUint32(unsafe.Pointer(&mem[off]))
}

func (r *Ring) load(off int) uint32 {
	return loadAt(r.mem, off)
}

func (r *Ring) store(off int, v uint32) {
	shm.StoreReleaseUint32(unsafe.Pointer(&r.mem[off]), v)
}

// Capacity returns the size of the data area.
func (r *Ring) Capacity() uint32 {
	return r.capacity
}

// Valid reports whether the header still carries Magic.
func (r *Ring) Valid() bool {
	return r.load(magicOffset) == Magic
}

// Invalidate clears magic so that peers and later attaches stop trusting the
// region. Queued data is left in place.
func (r *Ring) Invalidate() {
	r.store(magicOffset, 0)
}

// Head returns the producer offset.
func (r *Ring) Head() Index {
	return r.index(headOffset)
}

// Tail returns the consumer offset.
func (r *Ring) Tail() Index {
	return r.index(tailOffset)
}

// index loads an offset and folds values a misbehaving peer may have left
// outside the data area.
func (r *Ring) index(off int) Index {
	return Index(r.load(off) % r.capacity)
}

// AvailableRead returns the bytes queued between tail and head.
func (r *Ring) AvailableRead() uint32 {
	return occupied(r.Head(), r.Tail(), r.capacity)
}

// AvailableWrite returns the bytes the producer may queue without reaching tail.
func (r *Ring) AvailableWrite() uint32 {
	return r.capacity - r.AvailableRead() - 1
}

// WriteChunk copies src into the data area starting at offset, splitting the
// copy at the end of the data area. At most capacity-1 bytes are copied; the
// count is returned. The caller must bound src by AvailableWrite and publish
// the new head only after WriteChunk returns.
func (r *Ring) WriteChunk(offset Index, src []byte) int {
	n := r.bound(len(src))
	first, second := Split(r.capacity, offset%Index(r.capacity), n)
	copied := copy(r.data[first.Offset:first.End()], src[:first.Len])
	copied += copy(r.data[:second.Len], src[first.Len:n])
	return copied
}

// PublishHead makes every byte written before it visible to the consumer.
func (r *Ring) PublishHead(head Index) {
	r.store(headOffset, uint32(head)%r.capacity)
}

// ReadChunk copies len(dst) bytes out of the data area starting at offset,
// splitting the copy at the end of the data area. The caller must bound dst
// by AvailableRead and publish the new tail only after ReadChunk returns.
func (r *Ring) ReadChunk(offset Index, dst []byte) int {
	n := r.bound(len(dst))
	first, second := Split(r.capacity, offset%Index(r.capacity), n)
	copied := copy(dst[:first.Len], r.data[first.Offset:first.End()])
	copied += copy(dst[first.Len:n], r.data[:second.Len])
	return copied
}

// PublishTail hands the space before tail back to the producer.
func (r *Ring) PublishTail(tail Index) {
	r.store(tailOffset, uint32(tail)%r.capacity)
}

func (r *Ring) bound(n int) uint32 {
	if limit := int(r.capacity - 1); n > limit {
		return uint32(limit)
	}
	return uint32(n)
}

// SetFormat stores the stream format fields. Each field is stored on its own;
// the group is not atomic and is not ordered with the byte stream, so a
// consumer can see a new format a few frames before or after the bytes it
// describes.
func (r *Ring) SetFormat(f audio.Format) {
	r.store(sampleRateOffset, f.SampleRate)
	r.store(channelMaskOffset, uint32(f.ChannelMask))
	r.store(sampleFormatOffset, uint32(f.SampleFormat))
}

// Format returns the most recently published stream format.
func (r *Ring) Format() audio.Format {
	return audio.Format{
		SampleRate:   r.load(sampleRateOffset),
		ChannelMask:  audio.ChannelMask(r.load(channelMaskOffset)),
		SampleFormat: audio.SampleFormat(r.load(sampleFormatOffset)),
	}
}

// State is a snapshot of the header for diagnostics.
type State struct {
	Magic    uint32
	Capacity uint32
	Head     Index
	Tail     Index
	Used     uint32
	Free     uint32
	Format   audio.Format
}

// Snapshot reads the header. Fields are loaded one by one and may be mutually
// inconsistent while both sides are running.
func (r *Ring) Snapshot() State {
	head, tail := r.Head(), r.Tail()
	used := occupied(head, tail, r.capacity)
	return State{
		Magic:    r.load(magicOffset),
		Capacity: r.capacity,
		Head:     head,
		Tail:     tail,
		Used:     used,
		Free:     r.capacity - used - 1,
		Format:   r.Format(),
	}
}
