// Package consumer implements the host side of the audio ring: a non-blocking
// Reader and a polling Bridge that hands chunks to a callback.
package consumer

import (
	"github.com/srediag/audio-shm/pkg/audio"
	"github.com/srediag/audio-shm/pkg/ring"
)

// Reader drains the ring. It is the only writer of tail and must be used from
// one goroutine at a time.
type Reader struct {
	ring *ring.Ring
}

// NewReader returns a Reader over r.
func NewReader(r *ring.Ring) *Reader {
	return &Reader{ring: r}
}

// Available returns the bytes queued by the producer.
func (r *Reader) Available() uint32 {
	return r.ring.AvailableRead()
}

// TryRead copies up to len(p) queued bytes into p and frees their space. It
// never blocks and returns 0 when the ring is empty.
func (r *Reader) TryRead(p []byte) int {
	avail := r.ring.AvailableRead()
	if avail == 0 || len(p) == 0 {
		return 0
	}
	n := len(p)
	if uint32(n) > avail {
		n = int(avail)
	}
	tail := r.ring.Tail()
	r.ring.ReadChunk(tail, p[:n])
	r.ring.PublishTail(tail.Advance(uint32(n), r.ring.Capacity()))
	return n
}

// Format returns the stream format last published by the producer.
func (r *Reader) Format() audio.Format {
	return r.ring.Format()
}
