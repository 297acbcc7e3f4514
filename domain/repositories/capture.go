package repositories

import (
	"context"
	"errors"
)

// Acquisition failures surfaced to the caller when opening capture streams.
// Each maps to a distinct user-facing message at the API layer.
var (
	ErrPermissionDenied         = errors.New("audio capture permission denied")
	ErrDeviceNotFound           = errors.New("audio device not found")
	ErrDeviceBusy               = errors.New("audio device is in use by another application")
	ErrUnsupportedConstraints   = errors.New("audio device does not support the requested configuration")
	ErrAborted                  = errors.New("audio capture aborted")
	ErrSystemCaptureUnsupported = errors.New("system audio capture is not supported on this host")
)

// Device describes an enumerable audio input.
type Device struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Support reports host capability for dual capture.
type Support struct {
	RecorderSupported      bool `json:"recorder_supported"`
	MicrophoneSupported    bool `json:"microphone_supported"`
	SystemCaptureSupported bool `json:"system_capture_supported"`
}

// SampleFormat identifies the raw sample layout a stream's encoder emits.
type SampleFormat string

const (
	SampleFormatF32LE SampleFormat = "f32le"
	SampleFormatS16LE SampleFormat = "s16le"
)

// AudioSpec describes the sample stream a capture stream produces.
type AudioSpec struct {
	SampleRate int
	Channels   int
	Format     SampleFormat
}

// CaptureStream is one live audio stream. Chunks delivers non-empty encoded
// fragments in strict arrival order on a bounded queue; the channel is closed
// after Stop, once the final chunk has been flushed. Stop releases the
// underlying device and is safe to call exactly once. DroppedChunks reports
// how many chunks were discarded on queue overflow; the count is stable once
// Stop has returned.
type CaptureStream interface {
	Chunks() <-chan []byte
	Spec() AudioSpec
	DroppedChunks() int
	Stop() error
}

// AudioCapture abstracts device enumeration and live stream acquisition.
type AudioCapture interface {
	// CheckSupport inspects host capability without side effects.
	CheckSupport() Support
	// ListInputDevices enumerates capture devices. Returns an empty slice
	// and ErrPermissionDenied when the backend refuses enumeration.
	ListInputDevices(ctx context.Context) ([]Device, error)
	// OpenMicrophone acquires the microphone stream with fixed high-quality
	// constraints (raw capture, no echo cancellation or gain processing).
	// An empty deviceID selects the host default.
	OpenMicrophone(ctx context.Context, deviceID string) (CaptureStream, error)
	// OpenSystemAudio acquires a loopback stream of the host's output.
	OpenSystemAudio(ctx context.Context) (CaptureStream, error)
}
