package ring

import (
	"bytes"
	"context"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"github.com/srediag/audio-shm/pkg/audio"
)

func newTestRing(t testing.TB, capacity uint32) *Ring {
	t.Helper()
	r, err := Init(make([]byte, Size(capacity)), capacity)
	require.NoError(t, err)
	return r
}

// produce queues as much of p as fits, the way the producer does.
func produce(r *Ring, p []byte) int {
	n := int(r.AvailableWrite())
	if n > len(p) {
		n = len(p)
	}
	head := r.Head()
	r.WriteChunk(head, p[:n])
	r.PublishHead(head.Advance(uint32(n), r.Capacity()))
	return n
}

// consume drains up to len(p) bytes, the way a consumer does.
func consume(r *Ring, p []byte) int {
	n := int(r.AvailableRead())
	if n > len(p) {
		n = len(p)
	}
	tail := r.Tail()
	r.ReadChunk(tail, p[:n])
	r.PublishTail(tail.Advance(uint32(n), r.Capacity()))
	return n
}

type RingSuite struct {
	suite.Suite
}

func TestRingSuite(t *testing.T) {
	suite.Run(t, new(RingSuite))
}

func (s *RingSuite) TestInitWritesHeader() {
	mem := make([]byte, Size(1024))
	for i := range mem {
		mem[i] = 0xff
	}
	r, err := Init(mem, 1024)
	s.Require().NoError(err)

	st := r.Snapshot()
	s.Equal(Magic, st.Magic)
	s.Equal(uint32(1024), st.Capacity)
	s.Equal(Index(0), st.Head)
	s.Equal(Index(0), st.Tail)
	s.Equal(uint32(0), st.Used)
	s.Equal(uint32(1023), st.Free)
	s.Equal(audio.Format{}, st.Format)
	s.Equal([]byte{0x50, 0x41, 0x44, 0x56}, mem[:4])
	s.True(r.Valid())
}

func (s *RingSuite) TestAttach() {
	mem := make([]byte, Size(64))
	_, err := Attach(mem)
	s.ErrorIs(err, ErrInvalidMagic)

	w, err := Init(mem, 64)
	s.Require().NoError(err)
	s.Equal(5, produce(w, []byte("hello")))

	r, err := Attach(mem)
	s.Require().NoError(err)
	s.Equal(uint32(64), r.Capacity())
	s.Equal(uint32(5), r.AvailableRead())

	_, err = Attach(mem[:10])
	s.ErrorIs(err, ErrInvalidMagic)

	// A header claiming more capacity than is mapped is rejected.
	_, err = Attach(mem[:Size(32)])
	s.ErrorIs(err, ErrInvalidCapacity)
}

func (s *RingSuite) TestInitRejectsCapacity() {
	_, err := Init(make([]byte, Size(1)), 1)
	s.ErrorIs(err, ErrInvalidCapacity)
	_, err = Init(make([]byte, 100), 1024)
	s.ErrorIs(err, ErrInvalidCapacity)
}

func (s *RingSuite) TestMisaligned() {
	mem := make([]byte, Size(64)+1)
	_, err := Init(mem[1:], 64)
	s.ErrorIs(err, ErrMisaligned)
	s.Equal(uint32(0), MagicOf(mem[1:]))
}

func (s *RingSuite) TestMagicAndCapacityOf() {
	mem := make([]byte, Size(64))
	s.Equal(uint32(0), MagicOf(mem))
	_, err := Init(mem, 64)
	s.Require().NoError(err)
	s.Equal(Magic, MagicOf(mem))
	s.Equal(uint32(64), CapacityOf(mem))
	s.Equal(uint32(0), CapacityOf(mem[:4]))
}

func (s *RingSuite) TestFillToBoundary() {
	r := newTestRing(s.T(), 1024)
	data := bytes.Repeat([]byte{0xab}, 1023)
	s.Equal(1023, produce(r, data))
	s.Equal(uint32(0), r.AvailableWrite())
	s.Equal(uint32(1023), r.AvailableRead())
	s.Equal(0, produce(r, []byte{1}))

	out := make([]byte, 1)
	s.Equal(1, consume(r, out))
	s.Equal(uint32(1), r.AvailableWrite())
}

func (s *RingSuite) TestZeroLengthChunk() {
	r := newTestRing(s.T(), 16)
	r.PublishHead(15)
	r.PublishTail(15)
	s.Equal(0, r.WriteChunk(r.Head(), nil))
	s.Equal(0, r.ReadChunk(r.Tail(), nil))
	s.Equal(uint32(0), r.AvailableRead())
	s.Equal(uint32(15), r.AvailableWrite())
}

func (s *RingSuite) TestWriteChunkNeverPastCapacity() {
	r := newTestRing(s.T(), 16)
	src := bytes.Repeat([]byte{7}, 64)
	s.Equal(15, r.WriteChunk(9, src))
	// The byte just before the write start is the only one left untouched.
	s.Equal(byte(0), r.data[8])
}

func (s *RingSuite) TestWrapAroundRoundTrip() {
	r := newTestRing(s.T(), 16)
	r.PublishHead(12)
	r.PublishTail(12)

	in := []byte("0123456789")
	s.Equal(10, produce(r, in))
	s.Equal(Index(6), r.Head())
	s.Equal([]byte("0123"), r.data[12:16])
	s.Equal([]byte("456789"), r.data[0:6])

	out := make([]byte, 16)
	n := consume(r, out)
	s.Equal(10, n)
	s.Equal(in, out[:n])
	s.Equal(r.Head(), r.Tail())
}

func (s *RingSuite) TestFormat() {
	r := newTestRing(s.T(), 16)
	f := audio.Format{SampleRate: 48000, ChannelMask: audio.ChannelOutStereo, SampleFormat: audio.FormatPCM16}
	r.SetFormat(f)
	s.Equal(f, r.Format())
	s.Equal(uint32(0), r.AvailableRead())
}

func (s *RingSuite) TestInvalidate() {
	mem := make([]byte, Size(64))
	r, err := Init(mem, 64)
	s.Require().NoError(err)
	r.Invalidate()
	s.False(r.Valid())
	_, err = Attach(mem)
	s.ErrorIs(err, ErrInvalidMagic)
}

func (s *RingSuite) TestCorruptIndexIsFolded() {
	r := newTestRing(s.T(), 16)
	r.store(headOffset, 35)
	s.Equal(Index(3), r.Head())
	s.Equal(uint32(3), r.AvailableRead())
}

func TestAvailableInvariant(t *testing.T) {
	const capacity = 97
	r := newTestRing(t, capacity)
	rng := rand.New(rand.NewSource(1))
	var written, read []byte
	buf := make([]byte, 3*capacity)

	for i := 0; i < 5000; i++ {
		if rng.Intn(2) == 0 {
			p := make([]byte, rng.Intn(2*capacity))
			rng.Read(p)
			n := produce(r, p)
			written = append(written, p[:n]...)
		} else {
			n := consume(r, buf[:rng.Intn(len(buf))])
			read = append(read, buf[:n]...)
		}
		if got := r.AvailableRead() + r.AvailableWrite(); got != capacity-1 {
			t.Fatalf("step %d: read+write = %d, want %d", i, got, capacity-1)
		}
	}
	n := consume(r, buf)
	read = append(read, buf[:n]...)
	assert.Equal(t, written, read)
}

func TestRoundTripLargerThanCapacity(t *testing.T) {
	for _, size := range []int{10, 1023, 1024, 1025, 5000} {
		r := newTestRing(t, 1024)
		in := make([]byte, size)
		rand.New(rand.NewSource(int64(size))).Read(in)

		var out []byte
		buf := make([]byte, 300)
		for off := 0; off < len(in); {
			off += produce(r, in[off:])
			n := consume(r, buf)
			out = append(out, buf[:n]...)
		}
		for r.AvailableRead() > 0 {
			n := consume(r, buf)
			out = append(out, buf[:n]...)
		}
		assert.Equal(t, in, out, "size %d", size)
	}
}

func TestConcurrentModel(t *testing.T) {
	const (
		capacity = 509
		total    = 1 << 20
	)
	r := newTestRing(t, capacity)
	in := make([]byte, total)
	rand.New(rand.NewSource(7)).Read(in)
	var violations atomic.Int32

	g, _ := errgroup.WithContext(context.Background())
	g.Go(func() error {
		for off := 0; off < total; {
			off += produce(r, in[off:min(off+211, total)])
		}
		return nil
	})
	out := make([]byte, 0, total)
	g.Go(func() error {
		buf := make([]byte, 64)
		for len(out) < total {
			if avail := r.AvailableRead(); avail > capacity-1 {
				violations.Add(1)
			}
			n := consume(r, buf)
			out = append(out, buf[:n]...)
		}
		return nil
	})
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(0), violations.Load())
	assert.True(t, bytes.Equal(in, out))
}
