package producer

import (
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrInvalidPolicy is returned for a WaitPolicy that cannot bound a write.
var ErrInvalidPolicy = errors.New("producer: invalid wait policy")

const (
	defaultMaxAttempts  = 100
	defaultPollInterval = time.Millisecond
)

// WaitPolicy bounds how long Write waits for the consumer to free space.
type WaitPolicy struct {
	// MaxAttempts is the number of poll intervals a single Write may spend on
	// a full ring. Zero means never wait.
	MaxAttempts int
	// PollInterval is the wait between two looks at a full ring.
	PollInterval time.Duration
	// Deadline, when positive, additionally bounds the time Write spends
	// waiting, measured from the start of the call.
	Deadline time.Duration
}

// DefaultWaitPolicy waits up to 100 x 1ms per write.
func DefaultWaitPolicy() WaitPolicy {
	return WaitPolicy{
		MaxAttempts:  defaultMaxAttempts,
		PollInterval: defaultPollInterval,
	}
}

// Verify checks that the policy is bounded.
func (p WaitPolicy) Verify() error {
	if p.MaxAttempts < 0 {
		return fmt.Errorf("%w: negative max attempts %d", ErrInvalidPolicy, p.MaxAttempts)
	}
	if p.MaxAttempts > 0 && p.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive", ErrInvalidPolicy)
	}
	if p.Deadline < 0 {
		return fmt.Errorf("%w: negative deadline", ErrInvalidPolicy)
	}
	return nil
}

// MaxWait returns the longest time a Write spends waiting on a full ring.
func (p WaitPolicy) MaxWait() time.Duration {
	d := time.Duration(p.MaxAttempts) * p.PollInterval
	if p.Deadline > 0 && p.Deadline < d {
		return p.Deadline
	}
	return d
}

// budget is the per-call retry budget of a Write.
type budget struct {
	b     backoff.BackOff
	clock Clock
	until time.Time
}

func (p WaitPolicy) newBudget(clock Clock) *budget {
	bu := &budget{b: &backoff.StopBackOff{}, clock: clock}
	if p.MaxAttempts > 0 {
		bu.b = backoff.WithMaxRetries(backoff.NewConstantBackOff(p.PollInterval), uint64(p.MaxAttempts))
	}
	if p.Deadline > 0 {
		bu.until = clock.Now().Add(p.Deadline)
	}
	return bu
}

// next returns the wait before the next attempt, or false once the budget is spent.
func (bu *budget) next() (time.Duration, bool) {
	d := bu.b.NextBackOff()
	if d == backoff.Stop {
		return 0, false
	}
	if !bu.until.IsZero() {
		left := bu.until.Sub(bu.clock.Now())
		if left <= 0 {
			return 0, false
		}
		if d > left {
			d = left
		}
	}
	return d, true
}
