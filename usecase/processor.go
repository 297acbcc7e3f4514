package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/medvox/duplex/domain/entities"
	"github.com/medvox/duplex/domain/repositories"
)

// ErrNoArtifacts is returned when a session has nothing to process.
var ErrNoArtifacts = errors.New("session has no stored artifacts")

// ProcessingNotifier receives post-processing completion events.
type ProcessingNotifier interface {
	ProcessingCompleted(session *entities.CaptureSession)
}

// ProcessingService runs the deferred transcribe-then-summarize flow over a
// completed session's artifacts and writes the results back onto the
// persisted session record.
type ProcessingService struct {
	storage    repositories.ArtifactStorage
	stt        repositories.SpeechToText
	summarizer repositories.Summarizer
	sessions   repositories.SessionRepository
	notifier   ProcessingNotifier
	language   string
	logger     *zap.Logger
}

// NewProcessingService creates a processing service. The notifier may be
// nil. Language is the BCP-47 recognition language, e.g. "en-US".
func NewProcessingService(
	storage repositories.ArtifactStorage,
	stt repositories.SpeechToText,
	summarizer repositories.Summarizer,
	sessions repositories.SessionRepository,
	notifier ProcessingNotifier,
	language string,
	logger *zap.Logger,
) *ProcessingService {
	return &ProcessingService{
		storage:    storage,
		stt:        stt,
		summarizer: summarizer,
		sessions:   sessions,
		notifier:   notifier,
		language:   language,
		logger:     logger,
	}
}

// ProcessSession loads the best available artifact for a session (combined
// when mixing succeeded, microphone otherwise), transcribes it, summarizes
// the transcript, and updates the session record.
func (p *ProcessingService) ProcessSession(ctx context.Context, sessionID string) (*entities.CaptureSession, error) {
	session, err := p.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", sessionID, err)
	}

	ref, ok := session.ArtifactByRole(entities.ArtifactRoleCombined)
	if !ok {
		ref, ok = session.ArtifactByRole(entities.ArtifactRoleMicrophone)
	}
	if !ok {
		return nil, ErrNoArtifacts
	}

	audio, err := p.storage.Load(ctx, ref.Ref)
	if err != nil {
		return nil, fmt.Errorf("loading artifact %s: %w", ref.Ref, err)
	}

	p.logger.Info("Processing session audio",
		zap.String("sessionID", session.ID),
		zap.String("artifact", ref.Ref),
		zap.Int("bytes", len(audio)))

	transcript, err := p.stt.TranscribeAudio(ctx, audio, repositories.AudioConfig{
		SampleRate: 48000,
		Encoding:   "LINEAR16",
		Language:   p.language,
	})
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}
	session.Transcript = transcript

	summary, err := p.summarizer.Summarize(ctx, transcript)
	if err != nil {
		// A missing summary is less bad than losing the transcript; keep
		// whatever succeeded.
		p.logger.Warn("Summarization failed, keeping transcript only",
			zap.String("sessionID", session.ID), zap.Error(err))
	} else {
		session.Summary = summary
	}

	if err := p.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("updating session %s: %w", sessionID, err)
	}

	p.logger.Info("Session processed",
		zap.String("sessionID", session.ID),
		zap.Int("transcriptChars", len(transcript)),
		zap.Bool("summarized", session.Summary != ""))

	if p.notifier != nil {
		p.notifier.ProcessingCompleted(session)
	}
	return session, nil
}
