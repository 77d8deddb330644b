package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBytesPerSample(t *testing.T) {
	cases := map[SampleFormat]int{
		FormatPCM8:        1,
		FormatPCM16:       2,
		FormatPCM24Packed: 3,
		FormatPCM32:       4,
		FormatPCM8_24:     4,
		FormatPCMFloat:    4,
		FormatDefault:     0,
	}
	for f, want := range cases {
		assert.Equal(t, want, f.BytesPerSample(), f.String())
	}
	assert.Equal(t, 0, SampleFormat(0x100).BytesPerSample())
	assert.Equal(t, "format(0x100)", SampleFormat(0x100).String())
}

func TestChannelCount(t *testing.T) {
	assert.Equal(t, 1, ChannelOutMono.Count())
	assert.Equal(t, 2, ChannelOutStereo.Count())
	assert.Equal(t, 4, ChannelOutQuad.Count())
	assert.Equal(t, 6, ChannelOut5Point1.Count())
	assert.Equal(t, 8, ChannelOut7Point1.Count())
	assert.Equal(t, 0, ChannelMask(0).Count())
}

func TestByteRate(t *testing.T) {
	f := Format{SampleRate: 48000, ChannelMask: ChannelOutStereo, SampleFormat: FormatPCM16}
	assert.Equal(t, 4, f.FrameSize())
	assert.Equal(t, uint64(192000), f.ByteRate())

	f = Format{SampleRate: 96000, ChannelMask: ChannelOut5Point1, SampleFormat: FormatPCMFloat}
	assert.Equal(t, uint64(96000*6*4), f.ByteRate())

	// Incomplete formats assume 16-bit stereo.
	f = Format{SampleRate: 44100}
	assert.Equal(t, uint64(44100*4), f.ByteRate())

	assert.Equal(t, uint64(0), Format{}.ByteRate())
	assert.Equal(t, "48000Hz/2ch/pcm16", Format{SampleRate: 48000, ChannelMask: ChannelOutStereo, SampleFormat: FormatPCM16}.String())
}
