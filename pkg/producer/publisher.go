package producer

import (
	"github.com/srediag/audio-shm/pkg/audio"
	"github.com/srediag/audio-shm/pkg/ring"
)

// Publisher stores the stream format in the region header so the consumer can
// configure itself.
//
// Format updates are not framed in the byte stream: the consumer polls the
// header and may apply a new format a few frames early or late. Consumers
// that need sample-accurate transitions must tolerate that.
type Publisher struct {
	ring *ring.Ring
	last audio.Format
	ok   bool
}

// NewPublisher returns a Publisher writing into r.
func NewPublisher(r *ring.Ring) *Publisher {
	return &Publisher{ring: r}
}

// Publish stores f in the header and reports whether it differs from the
// previously published format.
func (p *Publisher) Publish(f audio.Format) bool {
	p.ring.SetFormat(f)
	changed := !p.ok || f != p.last
	p.last, p.ok = f, true
	if changed {
		internalLogger.Debugf("published format %s", f)
	}
	return changed
}

// Last returns the most recently published format.
func (p *Publisher) Last() (audio.Format, bool) {
	return p.last, p.ok
}
