package pcm

import (
	"errors"
	"fmt"
)

// ErrMix is returned by Mix for structurally invalid input. Length mismatch
// between the two sources is not structural and never produces this error.
var ErrMix = errors.New("cannot mix buffers")

// Buffer holds decoded audio as per-channel sample slices, normalized to
// [-1, 1]. All channels share the same sample rate and frame count.
type Buffer struct {
	Channels   [][]float64
	SampleRate int
}

// NewBuffer allocates a zeroed buffer with the given dimensions.
func NewBuffer(channels, frames, sampleRate int) *Buffer {
	chs := make([][]float64, channels)
	for i := range chs {
		chs[i] = make([]float64, frames)
	}
	return &Buffer{Channels: chs, SampleRate: sampleRate}
}

// FrameCount returns the number of frames per channel.
func (b *Buffer) FrameCount() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// ChannelCount returns the number of channels.
func (b *Buffer) ChannelCount() int {
	return len(b.Channels)
}

// Validate checks the buffer invariants: at least one channel, a positive
// sample rate, and equal length across all channels.
func (b *Buffer) Validate() error {
	if len(b.Channels) == 0 {
		return errors.New("buffer has no channels")
	}
	if b.SampleRate <= 0 {
		return errors.New("buffer has no sample rate")
	}
	frames := len(b.Channels[0])
	for i, ch := range b.Channels[1:] {
		if len(ch) != frames {
			return fmt.Errorf("channel %d length %d does not match channel 0 length %d", i+1, len(ch), frames)
		}
	}
	return nil
}

// Mono returns a single-channel view of the buffer. Multi-channel input is
// averaged down; single-channel input is returned as is.
func (b *Buffer) Mono() []float64 {
	if len(b.Channels) == 1 {
		return b.Channels[0]
	}
	frames := b.FrameCount()
	out := make([]float64, frames)
	for _, ch := range b.Channels {
		for i, s := range ch {
			out[i] += s
		}
	}
	scale := 1.0 / float64(len(b.Channels))
	for i := range out {
		out[i] *= scale
	}
	return out
}
