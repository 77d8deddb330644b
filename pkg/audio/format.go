// Package audio describes the stream format published next to the audio ring.
package audio

import (
	"fmt"
	"math/bits"
)

// SampleFormat is an Android audio_format_t PCM code.
type SampleFormat uint32

const (
	FormatDefault     SampleFormat = 0x0
	FormatPCM16       SampleFormat = 0x1
	FormatPCM8        SampleFormat = 0x2
	FormatPCM32       SampleFormat = 0x3
	FormatPCM8_24     SampleFormat = 0x4
	FormatPCMFloat    SampleFormat = 0x5
	FormatPCM24Packed SampleFormat = 0x6
)

// BytesPerSample returns the storage size of one sample, or 0 for codes this
// package does not know.
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case FormatPCM8:
		return 1
	case FormatPCM16:
		return 2
	case FormatPCM24Packed:
		return 3
	case FormatPCM32, FormatPCM8_24, FormatPCMFloat:
		return 4
	}
	return 0
}

func (f SampleFormat) String() string {
	switch f {
	case FormatDefault:
		return "default"
	case FormatPCM16:
		return "pcm16"
	case FormatPCM8:
		return "pcm8"
	case FormatPCM32:
		return "pcm32"
	case FormatPCM8_24:
		return "pcm8_24"
	case FormatPCMFloat:
		return "pcm_float"
	case FormatPCM24Packed:
		return "pcm24_packed"
	}
	return fmt.Sprintf("format(%#x)", uint32(f))
}

// ChannelMask is an output channel mask; each set bit is one channel.
type ChannelMask uint32

const (
	ChannelOutMono    ChannelMask = 0x1
	ChannelOutStereo  ChannelMask = 0x3
	ChannelOutQuad    ChannelMask = 0x33
	ChannelOut5Point1 ChannelMask = 0x3f
	ChannelOut7Point1 ChannelMask = 0x63f
)

// Count returns the number of channels in the mask.
func (m ChannelMask) Count() int {
	return bits.OnesCount32(uint32(m))
}

// Fallbacks used when a published format is incomplete.
const (
	fallbackChannels       = 2
	fallbackBytesPerSample = 2
)

// Format is the stream configuration the producer publishes in the region header.
type Format struct {
	SampleRate   uint32
	ChannelMask  ChannelMask
	SampleFormat SampleFormat
}

// FrameSize returns the number of bytes of one frame. Unknown channel
// layouts count as stereo and unknown sample formats as 16-bit.
func (f Format) FrameSize() int {
	ch := f.ChannelMask.Count()
	if ch == 0 {
		ch = fallbackChannels
	}
	bps := f.SampleFormat.BytesPerSample()
	if bps == 0 {
		bps = fallbackBytesPerSample
	}
	return ch * bps
}

// ByteRate returns the nominal bytes per second of the stream, 0 when the
// sample rate is unknown.
func (f Format) ByteRate() uint64 {
	return uint64(f.SampleRate) * uint64(f.FrameSize())
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%s", f.SampleRate, f.ChannelMask.Count(), f.SampleFormat)
}
