package ring

// Index is an offset into the data area, 0 <= Index < capacity.
type Index uint32

// Advance returns the index n bytes after i, wrapping at capacity.
func (i Index) Advance(n, capacity uint32) Index {
	return Index((uint64(i) + uint64(n)) % uint64(capacity))
}

// Span is a contiguous range of the data area.
type Span struct {
	Offset Index
	Len    uint32
}

// End returns the offset just past the span.
func (s Span) End() uint32 {
	return uint32(s.Offset) + s.Len
}

// Split expresses n bytes starting at offset as at most two contiguous spans:
// first runs up to the end of the data area, second restarts at 0. n must not
// exceed capacity and offset must be below capacity.
func Split(capacity uint32, offset Index, n uint32) (first, second Span) {
	if n == 0 {
		return Span{Offset: offset}, Span{}
	}
	tillEnd := capacity - uint32(offset)
	if n <= tillEnd {
		return Span{Offset: offset, Len: n}, Span{}
	}
	return Span{Offset: offset, Len: tillEnd}, Span{Offset: 0, Len: n - tillEnd}
}

// occupied returns the bytes between tail and head on a ring of capacity.
func occupied(head, tail Index, capacity uint32) uint32 {
	if head >= tail {
		return uint32(head - tail)
	}
	return capacity - uint32(tail-head)
}
