package shm

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/srediag/audio-shm/pkg/audio"
	"github.com/srediag/audio-shm/pkg/ring"
)

// DebugRegionDetail prints the ring header stored in the backing object at path.
func DebugRegionDetail(path string) {
	f, err := os.Open(path)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer f.Close()
	header := make([]byte, ring.HeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("path:%s %s\n", path, describeHeader(header))
}

// describeHeader renders a copied header. The copy is read without atomics
// and may be torn while both sides are running.
func describeHeader(header []byte) string {
	le := binary.LittleEndian
	magic := le.Uint32(header[0:])
	capacity := le.Uint32(header[4:])
	head := le.Uint32(header[8:])
	tail := le.Uint32(header[12:])
	f := audio.Format{
		SampleRate:   le.Uint32(header[16:]),
		ChannelMask:  audio.ChannelMask(le.Uint32(header[20:])),
		SampleFormat: audio.SampleFormat(le.Uint32(header[24:])),
	}
	var used uint32
	if capacity > 0 {
		head, tail = head%capacity, tail%capacity
		if head >= tail {
			used = head - tail
		} else {
			used = capacity - (tail - head)
		}
	}
	return fmt.Sprintf("magic:%#08x valid:%t cap:%d head:%d tail:%d used:%d format:%s",
		magic, magic == ring.Magic, capacity, head, tail, used, f)
}
