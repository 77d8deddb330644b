// Package api defines the producer contract consumed by audio output adapters.
package api

import (
	"fmt"
	"io"

	"github.com/srediag/audio-shm/pkg/audio"
)

// StreamState is the playback state of an output stream.
type StreamState int32

const (
	// StreamStandby means no write has been accepted since open or the last Standby.
	StreamStandby StreamState = iota
	// StreamActive means the last accepted write queued at least one byte.
	StreamActive
)

func (s StreamState) String() string {
	switch s {
	case StreamStandby:
		return "standby"
	case StreamActive:
		return "active"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// OutputSink queues interleaved PCM into a shared region.
//
// Write follows io.Writer: a count short of len(p) comes with a non-nil
// error, and a short count caused by a full region is not fatal.
type OutputSink interface {
	io.Writer
	// PublishFormat advertises f to the consumer.
	PublishFormat(f audio.Format)
	// Format returns the format published before each write.
	Format() audio.Format
	State() StreamState
	Standby()
}
