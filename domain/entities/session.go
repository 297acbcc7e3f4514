package entities

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SessionState represents where a capture session is in its lifecycle.
type SessionState string

const (
	SessionStateIdle       SessionState = "idle"
	SessionStateAcquiring  SessionState = "acquiring"
	SessionStateRecording  SessionState = "recording"
	SessionStateFinalizing SessionState = "finalizing"
	SessionStateFailed     SessionState = "failed"
)

// CaptureSession represents one dual-stream recording: a microphone stream
// and a system-audio stream captured concurrently, finalized into two or
// three WAV artifacts. Only one session may be live at a time; the recorder
// service enforces that invariant.
type CaptureSession struct {
	ID                 string        `json:"id" bson:"_id"`
	State              SessionState  `json:"state" bson:"state"`
	MicrophoneDeviceID string        `json:"microphone_device_id" bson:"microphone_device_id"`
	StartedAt          time.Time     `json:"started_at" bson:"started_at"`
	StoppedAt          time.Time     `json:"stopped_at,omitempty" bson:"stopped_at,omitempty"`
	DurationMs         int64         `json:"duration_ms,omitempty" bson:"duration_ms,omitempty"`
	Artifacts          []ArtifactRef `json:"artifacts" bson:"artifacts"`
	Transcript         string        `json:"transcript,omitempty" bson:"transcript,omitempty"`
	Summary            string        `json:"summary,omitempty" bson:"summary,omitempty"`
}

// NewCaptureSession creates a session in the acquiring state with a fresh
// identifier. StartedAt is set later, once both streams are live.
func NewCaptureSession(microphoneDeviceID string) *CaptureSession {
	return &CaptureSession{
		ID:                 uuid.NewString(),
		State:              SessionStateAcquiring,
		MicrophoneDeviceID: microphoneDeviceID,
		Artifacts:          make([]ArtifactRef, 0, 3),
	}
}

// BeginRecording marks both streams as live and stamps the session start.
func (s *CaptureSession) BeginRecording() error {
	if s.State != SessionStateAcquiring {
		return errors.New("session is not acquiring")
	}
	s.State = SessionStateRecording
	s.StartedAt = time.Now()
	return nil
}

// BeginFinalizing transitions the session out of recording; live tracks are
// released before any conversion work starts.
func (s *CaptureSession) BeginFinalizing() error {
	if s.State != SessionStateRecording {
		return errors.New("session is not recording")
	}
	s.State = SessionStateFinalizing
	s.StoppedAt = time.Now()
	s.DurationMs = s.StoppedAt.Sub(s.StartedAt).Milliseconds()
	return nil
}

// Complete marks finalization as done. The session value is then a plain
// record; the recorder returns to idle.
func (s *CaptureSession) Complete() error {
	if s.State != SessionStateFinalizing {
		return errors.New("session is not finalizing")
	}
	s.State = SessionStateIdle
	return nil
}

// Fail marks the session as failed from any live state.
func (s *CaptureSession) Fail() {
	s.State = SessionStateFailed
}

// AddArtifact records a stored artifact reference on the session.
func (s *CaptureSession) AddArtifact(role ArtifactRole, ref string) {
	s.Artifacts = append(s.Artifacts, ArtifactRef{Role: role, Ref: ref})
}

// ArtifactByRole returns the stored reference for a role, if present.
func (s *CaptureSession) ArtifactByRole(role ArtifactRole) (ArtifactRef, bool) {
	for _, a := range s.Artifacts {
		if a.Role == role {
			return a, true
		}
	}
	return ArtifactRef{}, false
}

// Validate validates the session data.
func (s *CaptureSession) Validate() error {
	if s.ID == "" {
		return errors.New("session id is required")
	}
	switch s.State {
	case SessionStateIdle, SessionStateAcquiring, SessionStateRecording,
		SessionStateFinalizing, SessionStateFailed:
	default:
		return errors.New("invalid session state")
	}
	return nil
}
