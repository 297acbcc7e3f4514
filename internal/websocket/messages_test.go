package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/medvox/duplex/domain/entities"
	"github.com/medvox/duplex/usecase"
)

func TestEncodeRecordingStarted(t *testing.T) {
	session := entities.NewCaptureSession("mic-001")

	var event RecordingStartedEvent
	if err := json.Unmarshal(encodeRecordingStarted(session), &event); err != nil {
		t.Fatalf("Failed to decode event: %v", err)
	}

	if event.Type != EventTypeRecordingStarted {
		t.Errorf("Expected type %s, got %s", EventTypeRecordingStarted, event.Type)
	}
	if event.SessionID != session.ID {
		t.Errorf("Expected session ID %s, got %s", session.ID, event.SessionID)
	}
	if event.MicrophoneDeviceID != "mic-001" {
		t.Errorf("Expected microphone device mic-001, got %s", event.MicrophoneDeviceID)
	}
	if event.Timestamp == "" {
		t.Error("Expected timestamp to be set")
	}
}

func TestEncodeRecordingStoppedWithCombined(t *testing.T) {
	session := entities.NewCaptureSession("mic-001")
	result := &usecase.SessionResult{
		Session:    session,
		Microphone: usecase.StoredArtifact{Role: entities.ArtifactRoleMicrophone, Ref: "file:///a.wav", Size: 100},
		System:     usecase.StoredArtifact{Role: entities.ArtifactRoleSystem, Ref: "file:///b.wav", Size: 200},
		Combined:   &usecase.StoredArtifact{Role: entities.ArtifactRoleCombined, Ref: "file:///c.wav", Size: 300},
		Duration:   90 * time.Second,
	}

	var event RecordingStoppedEvent
	if err := json.Unmarshal(encodeRecordingStopped(session, result), &event); err != nil {
		t.Fatalf("Failed to decode event: %v", err)
	}

	if event.Type != EventTypeRecordingStopped {
		t.Errorf("Expected type %s, got %s", EventTypeRecordingStopped, event.Type)
	}
	if event.DurationMs != 90000 {
		t.Errorf("Expected 90000ms, got %d", event.DurationMs)
	}
	if len(event.Artifacts) != 3 {
		t.Fatalf("Expected 3 artifacts, got %d", len(event.Artifacts))
	}
	if event.Artifacts[2].Role != string(entities.ArtifactRoleCombined) {
		t.Errorf("Expected combined artifact last, got %s", event.Artifacts[2].Role)
	}
}

func TestEncodeRecordingStoppedWithoutCombined(t *testing.T) {
	session := entities.NewCaptureSession("mic-001")
	result := &usecase.SessionResult{
		Session:    session,
		Microphone: usecase.StoredArtifact{Role: entities.ArtifactRoleMicrophone, Ref: "file:///a.wav", Size: 100},
		System:     usecase.StoredArtifact{Role: entities.ArtifactRoleSystem, Ref: "file:///b.wav", Size: 200},
		Warnings:   []string{"microphone capture dropped 2 chunks on queue overflow"},
	}

	var event RecordingStoppedEvent
	if err := json.Unmarshal(encodeRecordingStopped(session, result), &event); err != nil {
		t.Fatalf("Failed to decode event: %v", err)
	}
	if len(event.Artifacts) != 2 {
		t.Errorf("Expected 2 artifacts when mixing was skipped, got %d", len(event.Artifacts))
	}
	if len(event.Warnings) != 1 || event.Warnings[0] != result.Warnings[0] {
		t.Errorf("Expected the capture warning to pass through, got %v", event.Warnings)
	}
}

func TestEncodeProcessingCompleted(t *testing.T) {
	session := entities.NewCaptureSession("mic-001")
	session.Transcript = "patient reports improvement"
	session.Summary = "Improving."

	var event ProcessingCompletedEvent
	if err := json.Unmarshal(encodeProcessingCompleted(session), &event); err != nil {
		t.Fatalf("Failed to decode event: %v", err)
	}

	if event.Type != EventTypeProcessingCompleted {
		t.Errorf("Expected type %s, got %s", EventTypeProcessingCompleted, event.Type)
	}
	if event.TranscriptChars != len(session.Transcript) {
		t.Errorf("Expected %d transcript chars, got %d", len(session.Transcript), event.TranscriptChars)
	}
	if !event.Summarized {
		t.Error("Expected summarized flag set")
	}
}
