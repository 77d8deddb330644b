// Package producer implements the guest side of the audio ring: a
// backpressure-aware Writer and the Publisher of stream format metadata.
//
// A Writer never blocks indefinitely. When the consumer stops draining the
// ring it waits a bounded number of poll intervals, accepts what fits, and
// then sleeps for roughly the playback time of the bytes it could not
// deliver so the calling audio pipeline does not run faster than real time.
package producer
