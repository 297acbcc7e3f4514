package pcm

import (
	"errors"
	"math"
	"testing"
)

func constantBuffer(frames int, value float64, sampleRate int) *Buffer {
	b := NewBuffer(1, frames, sampleRate)
	for i := range b.Channels[0] {
		b.Channels[0][i] = value
	}
	return b
}

func TestMixOutputLengthIsLongerInput(t *testing.T) {
	a := constantBuffer(100, 0.5, 48000)
	b := constantBuffer(250, 0.25, 48000)

	out, err := Mix(a, b, 1.0, 1.0)
	if err != nil {
		t.Fatalf("Mix failed: %v", err)
	}

	if out.ChannelCount() != 2 {
		t.Errorf("Expected 2 output channels, got %d", out.ChannelCount())
	}
	if out.FrameCount() != 250 {
		t.Errorf("Expected frame count 250, got %d", out.FrameCount())
	}

	// Swapping the inputs must not change the output length.
	out, err = Mix(b, a, 1.0, 1.0)
	if err != nil {
		t.Fatalf("Mix failed: %v", err)
	}
	if out.FrameCount() != 250 {
		t.Errorf("Expected frame count 250 after swap, got %d", out.FrameCount())
	}
}

func TestMixPadsShorterSourceWithSilence(t *testing.T) {
	a := constantBuffer(100, 0.5, 48000)
	b := constantBuffer(250, 0.25, 48000)

	out, err := Mix(a, b, 1.0, 1.0)
	if err != nil {
		t.Fatalf("Mix failed: %v", err)
	}

	for i := 0; i < 100; i++ {
		if out.Channels[0][i] != 0.5 {
			t.Fatalf("Expected channel 0 frame %d to be 0.5, got %f", i, out.Channels[0][i])
		}
	}
	for i := 100; i < 250; i++ {
		if out.Channels[0][i] != 0 {
			t.Fatalf("Expected silence on channel 0 frame %d, got %f", i, out.Channels[0][i])
		}
	}
}

func TestMixAppliesIndependentGains(t *testing.T) {
	a := constantBuffer(10, 1.0, 48000)
	b := constantBuffer(10, 1.0, 48000)

	out, err := Mix(a, b, 1.0, 0.8)
	if err != nil {
		t.Fatalf("Mix failed: %v", err)
	}

	if out.Channels[0][0] != 1.0 {
		t.Errorf("Expected channel 0 gain 1.0, got %f", out.Channels[0][0])
	}
	if math.Abs(out.Channels[1][0]-0.8) > 1e-12 {
		t.Errorf("Expected channel 1 gain 0.8, got %f", out.Channels[1][0])
	}
}

func TestMixDownmixesMultiChannelSources(t *testing.T) {
	a := NewBuffer(2, 4, 48000)
	for i := range a.Channels[0] {
		a.Channels[0][i] = 1.0
		a.Channels[1][i] = 0.0
	}
	b := constantBuffer(4, 0.5, 48000)

	out, err := Mix(a, b, 1.0, 1.0)
	if err != nil {
		t.Fatalf("Mix failed: %v", err)
	}

	if out.Channels[0][0] != 0.5 {
		t.Errorf("Expected stereo source averaged to 0.5, got %f", out.Channels[0][0])
	}
}

func TestMixRejectsStructurallyInvalidInput(t *testing.T) {
	valid := constantBuffer(10, 0.5, 48000)

	noChannels := &Buffer{SampleRate: 48000}
	if _, err := Mix(noChannels, valid, 1.0, 1.0); !errors.Is(err, ErrMix) {
		t.Errorf("Expected ErrMix for zero-channel source, got %v", err)
	}

	otherRate := constantBuffer(10, 0.5, 44100)
	if _, err := Mix(valid, otherRate, 1.0, 1.0); !errors.Is(err, ErrMix) {
		t.Errorf("Expected ErrMix for sample rate mismatch, got %v", err)
	}

	ragged := NewBuffer(2, 10, 48000)
	ragged.Channels[1] = ragged.Channels[1][:5]
	if _, err := Mix(ragged, valid, 1.0, 1.0); !errors.Is(err, ErrMix) {
		t.Errorf("Expected ErrMix for ragged channels, got %v", err)
	}
}

func TestMixZeroLengthInputs(t *testing.T) {
	a := NewBuffer(1, 0, 48000)
	b := NewBuffer(1, 0, 48000)

	out, err := Mix(a, b, 1.0, 0.8)
	if err != nil {
		t.Fatalf("Mix failed on empty buffers: %v", err)
	}
	if out.FrameCount() != 0 {
		t.Errorf("Expected empty output, got %d frames", out.FrameCount())
	}
	if out.ChannelCount() != 2 {
		t.Errorf("Expected 2 channels, got %d", out.ChannelCount())
	}
}
