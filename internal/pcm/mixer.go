package pcm

import "fmt"

// Mix combines two sources into one stereo buffer: source a on channel 0,
// source b on channel 1, each scaled by its own gain before placement. This
// is a pan-mix, not a downmix; the two sources are never summed together.
//
// The output length is max(a.FrameCount(), b.FrameCount()). The shorter
// source is padded with silence past its end, since independent encoders
// rarely flush their final chunk at the same sample.
func Mix(a, b *Buffer, gainA, gainB float64) (*Buffer, error) {
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("%w: source a: %v", ErrMix, err)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%w: source b: %v", ErrMix, err)
	}
	if a.SampleRate != b.SampleRate {
		return nil, fmt.Errorf("%w: sample rate mismatch %d vs %d", ErrMix, a.SampleRate, b.SampleRate)
	}

	frames := a.FrameCount()
	if b.FrameCount() > frames {
		frames = b.FrameCount()
	}

	out := NewBuffer(2, frames, a.SampleRate)
	writeScaled(out.Channels[0], a.Mono(), gainA)
	writeScaled(out.Channels[1], b.Mono(), gainB)
	return out, nil
}

func writeScaled(dst, src []float64, gain float64) {
	for i, s := range src {
		dst[i] = s * gain
	}
}
