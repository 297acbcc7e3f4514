package websocket

import (
	"encoding/json"
	"time"

	"github.com/medvox/duplex/domain/entities"
	"github.com/medvox/duplex/usecase"
)

// EventType defines the type of event pushed to connected clients.
type EventType string

// Supported event types
const (
	EventTypeRecordingStarted    EventType = "recording_started"
	EventTypeRecordingStopped    EventType = "recording_stopped"
	EventTypeProcessingCompleted EventType = "processing_completed"
)

// Event is the envelope for every message pushed over the socket. Clients
// never send events; the connection is observe-only.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp string    `json:"timestamp"`
	SessionID string    `json:"session_id"`
}

// RecordingStartedEvent announces that both capture streams are live.
type RecordingStartedEvent struct {
	Event
	MicrophoneDeviceID string `json:"microphone_device_id,omitempty"`
}

// ArtifactSummary describes one stored artifact in a stop event.
type ArtifactSummary struct {
	Role string `json:"role"`
	Ref  string `json:"ref"`
	Size int    `json:"size_bytes"`
}

// RecordingStoppedEvent announces finalization results. Warnings carry
// non-fatal capture degradations, such as chunks lost to queue overflow.
type RecordingStoppedEvent struct {
	Event
	DurationMs int64             `json:"duration_ms"`
	Artifacts  []ArtifactSummary `json:"artifacts"`
	Warnings   []string          `json:"warnings,omitempty"`
}

// ProcessingCompletedEvent announces that transcription and summarization
// finished for a session.
type ProcessingCompletedEvent struct {
	Event
	TranscriptChars int  `json:"transcript_chars"`
	Summarized      bool `json:"summarized"`
}

func newEvent(eventType EventType, sessionID string) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now().Format(time.RFC3339),
		SessionID: sessionID,
	}
}

func encodeRecordingStarted(session *entities.CaptureSession) []byte {
	payload, _ := json.Marshal(RecordingStartedEvent{
		Event:              newEvent(EventTypeRecordingStarted, session.ID),
		MicrophoneDeviceID: session.MicrophoneDeviceID,
	})
	return payload
}

func encodeRecordingStopped(session *entities.CaptureSession, result *usecase.SessionResult) []byte {
	stored := []usecase.StoredArtifact{result.Microphone, result.System}
	if result.Combined != nil {
		stored = append(stored, *result.Combined)
	}

	artifacts := make([]ArtifactSummary, 0, len(stored))
	for _, a := range stored {
		artifacts = append(artifacts, ArtifactSummary{
			Role: string(a.Role),
			Ref:  a.Ref,
			Size: a.Size,
		})
	}

	payload, _ := json.Marshal(RecordingStoppedEvent{
		Event:      newEvent(EventTypeRecordingStopped, session.ID),
		DurationMs: result.Duration.Milliseconds(),
		Artifacts:  artifacts,
		Warnings:   result.Warnings,
	})
	return payload
}

func encodeProcessingCompleted(session *entities.CaptureSession) []byte {
	payload, _ := json.Marshal(ProcessingCompletedEvent{
		Event:           newEvent(EventTypeProcessingCompleted, session.ID),
		TranscriptChars: len(session.Transcript),
		Summarized:      session.Summary != "",
	})
	return payload
}
