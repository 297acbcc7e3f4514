package capture

import (
	"context"
	"encoding/hex"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"

	"github.com/medvox/duplex/domain/repositories"
)

const (
	sampleRate     = 48000
	micChannels    = 1
	systemChannels = 2
	bytesPerSample = 4 // 32-bit float samples from the backend

	// One chunk per second bounds memory growth without flooding the queue
	// with tiny fragments.
	chunkSeconds = 1

	// Bounded queue per stream; at one chunk per second this covers well
	// over an hour of recording before anything is dropped.
	queueCapacity = 4096
)

// Manager acquires live audio streams through the miniaudio backend. It
// implements repositories.AudioCapture: a capture device for the microphone
// and a loopback device for system audio.
type Manager struct {
	logger *zap.Logger
}

func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger}
}

// CheckSupport inspects host capability. Loopback capture of system output
// is only available on the WASAPI backend.
func (m *Manager) CheckSupport() repositories.Support {
	var support repositories.Support

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return support
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	support.RecorderSupported = true

	infos, err := ctx.Devices(malgo.Capture)
	support.MicrophoneSupported = err == nil && len(infos) > 0
	support.SystemCaptureSupported = runtime.GOOS == "windows"

	return support
}

// ListInputDevices enumerates capture devices. Ordering is whatever the
// backend reports, stable within one call.
func (m *Manager) ListInputDevices(_ context.Context) ([]repositories.Device, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repositories.ErrPermissionDenied, err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return []repositories.Device{}, fmt.Errorf("%w: %v", repositories.ErrPermissionDenied, err)
	}

	devices := make([]repositories.Device, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, repositories.Device{
			ID:    hex.EncodeToString(info.ID[:]),
			Label: info.Name(),
		})
	}
	return devices, nil
}

// OpenMicrophone acquires the microphone as a raw capture stream: fixed
// 48 kHz float32 mono, no echo cancellation, noise suppression, or automatic
// gain. Downstream transcription quality depends on the samples staying
// unprocessed.
func (m *Manager) OpenMicrophone(_ context.Context, deviceID string) (repositories.CaptureStream, error) {
	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.Capture.Format = malgo.FormatF32
	config.Capture.Channels = micChannels
	config.SampleRate = sampleRate

	if deviceID != "" {
		id, err := parseDeviceID(deviceID)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", repositories.ErrDeviceNotFound, deviceID)
		}
		config.Capture.DeviceID = id.Pointer()
	}

	return m.openStream(config, repositories.AudioSpec{
		SampleRate: sampleRate,
		Channels:   micChannels,
		Format:     repositories.SampleFormatF32LE,
	})
}

// OpenSystemAudio acquires a loopback stream of the host's active output.
func (m *Manager) OpenSystemAudio(_ context.Context) (repositories.CaptureStream, error) {
	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.Capture.Format = malgo.FormatF32
	config.Capture.Channels = systemChannels
	config.SampleRate = sampleRate
	// Loopback of the default output device captures whatever the host is
	// playing.
	config.DeviceType = malgo.Loopback

	stream, err := m.openStream(config, repositories.AudioSpec{
		SampleRate: sampleRate,
		Channels:   systemChannels,
		Format:     repositories.SampleFormatF32LE,
	})
	if err != nil && runtime.GOOS != "windows" {
		return nil, fmt.Errorf("%w: %v", repositories.ErrSystemCaptureUnsupported, err)
	}
	return stream, err
}

func (m *Manager) openStream(config malgo.DeviceConfig, spec repositories.AudioSpec) (repositories.CaptureStream, error) {
	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, mapAcquireError(err)
	}

	s := &stream{
		malgoCtx: malgoCtx,
		spec:     spec,
		chunks:   newChunker(spec.SampleRate*spec.Channels*bytesPerSample*chunkSeconds, queueCapacity),
		logger:   m.logger,
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			s.chunks.push(input)
		},
	}

	device, err := malgo.InitDevice(malgoCtx.Context, config, callbacks)
	if err != nil {
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
		return nil, mapAcquireError(err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
		return nil, mapAcquireError(err)
	}

	s.device = device
	m.logger.Info("Audio stream started",
		zap.Int("sampleRate", spec.SampleRate),
		zap.Int("channels", spec.Channels))
	return s, nil
}

// stream is one live malgo device feeding a bounded chunk queue.
type stream struct {
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	spec     repositories.AudioSpec
	chunks   *chunker
	logger   *zap.Logger

	stopOnce sync.Once
}

func (s *stream) Chunks() <-chan []byte {
	return s.chunks.queue
}

func (s *stream) Spec() repositories.AudioSpec {
	return s.spec
}

// DroppedChunks reports how many chunks the bounded queue discarded.
func (s *stream) DroppedChunks() int {
	return s.chunks.droppedChunks()
}

// Stop releases the device exactly once, flushes the trailing partial chunk,
// and closes the chunk queue.
func (s *stream) Stop() error {
	s.stopOnce.Do(func() {
		s.device.Uninit()
		_ = s.malgoCtx.Uninit()
		s.malgoCtx.Free()
		s.chunks.finish()

		if dropped := s.chunks.droppedChunks(); dropped > 0 {
			s.logger.Warn("Capture queue overflowed during session",
				zap.Int("droppedChunks", dropped))
		}
	})
	return nil
}

func parseDeviceID(idHex string) (malgo.DeviceID, error) {
	raw, err := hex.DecodeString(idHex)
	if err != nil {
		return malgo.DeviceID{}, err
	}
	var id malgo.DeviceID
	copy(id[:], raw)
	return id, nil
}

// mapAcquireError translates backend failures into the acquisition taxonomy
// the API layer turns into user-facing messages. The backend reports reasons
// as result-code strings, so this matches on the message text.
func mapAcquireError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "access denied"):
		return fmt.Errorf("%w: %v", repositories.ErrPermissionDenied, err)
	case strings.Contains(msg, "no device") || strings.Contains(msg, "does not exist"):
		return fmt.Errorf("%w: %v", repositories.ErrDeviceNotFound, err)
	case strings.Contains(msg, "busy") || strings.Contains(msg, "in use"):
		return fmt.Errorf("%w: %v", repositories.ErrDeviceBusy, err)
	case strings.Contains(msg, "format not supported") ||
		strings.Contains(msg, "share mode not supported") ||
		strings.Contains(msg, "device type not supported"):
		return fmt.Errorf("%w: %v", repositories.ErrUnsupportedConstraints, err)
	default:
		return fmt.Errorf("%w: %v", repositories.ErrAborted, err)
	}
}
