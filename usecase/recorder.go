package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/medvox/duplex/domain/entities"
	"github.com/medvox/duplex/domain/repositories"
	"github.com/medvox/duplex/internal/pcm"
	"github.com/medvox/duplex/internal/wav"
)

var (
	// ErrAlreadyRecording is returned by Start unless the recorder is idle.
	ErrAlreadyRecording = errors.New("a recording session is already in progress")
	// ErrNotRecording is returned by Stop unless the recorder is recording.
	// A Stop that arrives while a prior Stop is still finalizing is rejected,
	// not queued.
	ErrNotRecording = errors.New("no recording session is in progress")
	// ErrFinalization is returned when a mandatory artifact (microphone or
	// system) cannot be produced or stored. The combined artifact is optional
	// and never causes this.
	ErrFinalization = errors.New("failed to finalize recording")
)

// Fixed pan-mix weighting: the microphone source stays dominant so reviewers
// hear the clinician clearly over system playback.
const (
	microphoneGain = 1.0
	systemGain     = 0.8

	artifactBitDepth = 16
)

// DeviceSelection chooses the input devices for a session. An empty
// microphone ID selects the host default; system audio always follows the
// host's active output.
type DeviceSelection struct {
	MicrophoneDeviceID string `json:"microphone_device_id"`
}

// StoredArtifact is a finished, persisted artifact.
type StoredArtifact struct {
	Role entities.ArtifactRole `json:"role"`
	Ref  string                `json:"ref"`
	Size int                   `json:"size_bytes"`
}

// SessionResult is what Stop hands back: two mandatory artifacts, an
// optional combined artifact, and the advisory wall-clock duration. Warnings
// carry non-fatal capture degradations, such as chunks lost to queue
// overflow, that the caller should surface to the operator.
type SessionResult struct {
	Session    *entities.CaptureSession `json:"session"`
	Microphone StoredArtifact           `json:"microphone"`
	System     StoredArtifact           `json:"system"`
	Combined   *StoredArtifact          `json:"combined,omitempty"`
	Duration   time.Duration            `json:"duration"`
	Warnings   []string                 `json:"warnings,omitempty"`
}

// Notifier receives session lifecycle events, typically for pushing to
// connected dashboard clients.
type Notifier interface {
	RecordingStarted(session *entities.CaptureSession)
	RecordingStopped(session *entities.CaptureSession, result *SessionResult)
}

// RecorderService owns the only mutable capture state. It sequences
// acquisition, recording, and finalization for at most one session at a
// time; Start and Stop are safe to call from concurrent handlers but never
// overlap in effect.
type RecorderService struct {
	capture  repositories.AudioCapture
	storage  repositories.ArtifactStorage
	sessions repositories.SessionRepository
	notifier Notifier
	logger   *zap.Logger

	mu      sync.Mutex
	state   entities.SessionState
	current *liveSession
}

// liveSession holds the exclusively owned live handles for the current
// session. Nothing outside the recorder may touch these.
type liveSession struct {
	session    *entities.CaptureSession
	microphone repositories.CaptureStream
	system     repositories.CaptureStream
}

// NewRecorderService creates a recorder. The session repository and notifier
// may be nil; recording then works without persistence or event fan-out.
func NewRecorderService(
	capture repositories.AudioCapture,
	storage repositories.ArtifactStorage,
	sessions repositories.SessionRepository,
	notifier Notifier,
	logger *zap.Logger,
) *RecorderService {
	return &RecorderService{
		capture:  capture,
		storage:  storage,
		sessions: sessions,
		notifier: notifier,
		logger:   logger,
		state:    entities.SessionStateIdle,
	}
}

// State reports the recorder's current lifecycle state.
func (r *RecorderService) State() entities.SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// CurrentSession returns the live session, if any.
func (r *RecorderService) CurrentSession() *entities.CaptureSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil
	}
	return r.current.session
}

// Start acquires both streams and begins recording. On any acquisition
// failure every partially acquired stream is released before returning, so
// no device is left dangling across attempts.
func (r *RecorderService) Start(ctx context.Context, sel DeviceSelection) (*entities.CaptureSession, error) {
	r.mu.Lock()
	if r.state != entities.SessionStateIdle {
		r.mu.Unlock()
		return nil, ErrAlreadyRecording
	}
	r.state = entities.SessionStateAcquiring
	r.mu.Unlock()

	session := entities.NewCaptureSession(sel.MicrophoneDeviceID)

	microphone, err := r.capture.OpenMicrophone(ctx, sel.MicrophoneDeviceID)
	if err != nil {
		r.resetToIdle()
		r.logger.Warn("Microphone acquisition failed",
			zap.String("sessionID", session.ID),
			zap.Error(err))
		return nil, err
	}

	system, err := r.capture.OpenSystemAudio(ctx)
	if err != nil {
		if stopErr := microphone.Stop(); stopErr != nil {
			r.logger.Warn("Failed to release microphone after aborted acquisition",
				zap.String("sessionID", session.ID),
				zap.Error(stopErr))
		}
		r.resetToIdle()
		r.logger.Warn("System audio acquisition failed",
			zap.String("sessionID", session.ID),
			zap.Error(err))
		return nil, err
	}

	if err := session.BeginRecording(); err != nil {
		// Unreachable with a fresh session; guard kept for the entity contract.
		microphone.Stop()
		system.Stop()
		r.resetToIdle()
		return nil, err
	}

	r.mu.Lock()
	r.current = &liveSession{session: session, microphone: microphone, system: system}
	r.state = entities.SessionStateRecording
	r.mu.Unlock()

	r.logger.Info("Recording started",
		zap.String("sessionID", session.ID),
		zap.String("microphoneDevice", sel.MicrophoneDeviceID))

	if r.notifier != nil {
		r.notifier.RecordingStarted(session)
	}
	return session, nil
}

// Stop ends the current session and finalizes its artifacts. Live tracks
// are stopped first, unconditionally, so hardware is released no matter
// what the conversion pipeline does afterwards.
func (r *RecorderService) Stop(ctx context.Context) (*SessionResult, error) {
	r.mu.Lock()
	if r.state != entities.SessionStateRecording || r.current == nil {
		r.mu.Unlock()
		return nil, ErrNotRecording
	}
	live := r.current
	r.state = entities.SessionStateFinalizing
	r.mu.Unlock()

	// Release hardware first, regardless of what finalization does next.
	session := live.session
	if err := live.microphone.Stop(); err != nil {
		r.logger.Warn("Microphone stream stop reported error",
			zap.String("sessionID", session.ID), zap.Error(err))
	}
	if err := live.system.Stop(); err != nil {
		r.logger.Warn("System stream stop reported error",
			zap.String("sessionID", session.ID), zap.Error(err))
	}

	if err := session.BeginFinalizing(); err != nil {
		r.resetToIdle()
		return nil, fmt.Errorf("%w: %v", ErrFinalization, err)
	}

	// Both streams are stopped, so the drop counts are final. Overflow means
	// the stored audio has gaps; the operator must be told, not just the log.
	var warnings []string
	if n := live.microphone.DroppedChunks(); n > 0 {
		warnings = append(warnings, fmt.Sprintf("microphone capture dropped %d chunks on queue overflow", n))
	}
	if n := live.system.DroppedChunks(); n > 0 {
		warnings = append(warnings, fmt.Sprintf("system capture dropped %d chunks on queue overflow", n))
	}
	for _, w := range warnings {
		r.logger.Warn("Capture degradation",
			zap.String("sessionID", session.ID), zap.String("warning", w))
	}

	micRaw := drainChunks(live.microphone.Chunks())
	sysRaw := drainChunks(live.system.Chunks())

	micBuf, micWav, micErr := r.convertStream(micRaw, live.microphone.Spec())
	sysBuf, sysWav, sysErr := r.convertStream(sysRaw, live.system.Spec())
	if micErr != nil || sysErr != nil {
		session.Fail()
		r.resetToIdle()
		if micErr != nil {
			return nil, fmt.Errorf("%w: microphone stream: %v", ErrFinalization, micErr)
		}
		return nil, fmt.Errorf("%w: system stream: %v", ErrFinalization, sysErr)
	}

	// The combined artifact is best effort: a mixing failure degrades the
	// session to two artifacts, it never fails the stop.
	var combinedWav []byte
	if mixed, err := pcm.Mix(micBuf, sysBuf, microphoneGain, systemGain); err != nil {
		r.logger.Warn("Mixing failed, continuing without combined artifact",
			zap.String("sessionID", session.ID), zap.Error(err))
	} else if encoded, err := wav.Encode(mixed, artifactBitDepth); err != nil {
		r.logger.Warn("Encoding combined buffer failed, continuing without combined artifact",
			zap.String("sessionID", session.ID), zap.Error(err))
	} else {
		combinedWav = encoded
	}

	result, err := r.storeArtifacts(ctx, session, micWav, sysWav, combinedWav)
	if err != nil {
		session.Fail()
		r.resetToIdle()
		return nil, err
	}

	if err := session.Complete(); err != nil {
		r.logger.Error("Session completion transition failed",
			zap.String("sessionID", session.ID), zap.Error(err))
	}
	result.Duration = time.Duration(session.DurationMs) * time.Millisecond
	result.Warnings = warnings

	if r.sessions != nil {
		if err := r.sessions.Create(ctx, session); err != nil {
			r.logger.Error("Failed to persist session record",
				zap.String("sessionID", session.ID), zap.Error(err))
		}
	}

	r.resetToIdle()

	r.logger.Info("Recording stopped",
		zap.String("sessionID", session.ID),
		zap.Duration("duration", result.Duration),
		zap.Bool("combined", result.Combined != nil))

	if r.notifier != nil {
		r.notifier.RecordingStopped(session, result)
	}
	return result, nil
}

// convertStream concatenated-decodes one stream's chunks into a canonical
// PCM buffer and its WAV serialization.
func (r *RecorderService) convertStream(raw []byte, spec repositories.AudioSpec) (*pcm.Buffer, []byte, error) {
	buf, err := wav.DecodeRaw(raw, wav.Spec{
		SampleRate: spec.SampleRate,
		Channels:   spec.Channels,
		Format:     wav.SampleFormat(spec.Format),
	})
	if err != nil {
		return nil, nil, err
	}
	encoded, err := wav.Encode(buf, artifactBitDepth)
	if err != nil {
		return nil, nil, err
	}
	return buf, encoded, nil
}

// storeArtifacts saves the two mandatory artifacts plus the optional
// combined one. A failure storing a mandatory artifact fails the stop; a
// failure storing the combined artifact only downgrades the result.
func (r *RecorderService) storeArtifacts(ctx context.Context, session *entities.CaptureSession, micWav, sysWav, combinedWav []byte) (*SessionResult, error) {
	result := &SessionResult{Session: session}

	mic, err := r.storeOne(ctx, session, entities.ArtifactRoleMicrophone, micWav)
	if err != nil {
		return nil, fmt.Errorf("%w: storing microphone artifact: %v", ErrFinalization, err)
	}
	result.Microphone = mic

	sys, err := r.storeOne(ctx, session, entities.ArtifactRoleSystem, sysWav)
	if err != nil {
		return nil, fmt.Errorf("%w: storing system artifact: %v", ErrFinalization, err)
	}
	result.System = sys

	if combinedWav != nil {
		combined, err := r.storeOne(ctx, session, entities.ArtifactRoleCombined, combinedWav)
		if err != nil {
			r.logger.Warn("Failed to store combined artifact, continuing without it",
				zap.String("sessionID", session.ID), zap.Error(err))
		} else {
			result.Combined = &combined
		}
	}
	return result, nil
}

func (r *RecorderService) storeOne(ctx context.Context, session *entities.CaptureSession, role entities.ArtifactRole, data []byte) (StoredArtifact, error) {
	artifact := &entities.Artifact{
		Role:      role,
		SessionID: session.ID,
		Data:      data,
		CreatedAt: session.StoppedAt,
	}
	ref, err := r.storage.Save(ctx, artifact.Data, artifact.FileName())
	if err != nil {
		return StoredArtifact{}, err
	}
	session.AddArtifact(role, ref)
	return StoredArtifact{Role: role, Ref: ref, Size: len(data)}, nil
}

func (r *RecorderService) resetToIdle() {
	r.mu.Lock()
	r.current = nil
	r.state = entities.SessionStateIdle
	r.mu.Unlock()
}

// drainChunks concatenates everything the stream's encoder produced. The
// stream is stopped before this runs, so the channel is closed and the read
// is a deterministic drain, never a race with the producer.
func drainChunks(ch <-chan []byte) []byte {
	var out []byte
	for chunk := range ch {
		out = append(out, chunk...)
	}
	return out
}
