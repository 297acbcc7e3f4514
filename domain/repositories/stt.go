package repositories

import "context"

// SpeechToText abstracts the downstream transcription service. The recorder
// only produces artifacts; transcription happens after the fact on finished
// WAV blobs.
type SpeechToText interface {
	// TranscribeAudio converts a finished audio artifact to text.
	TranscribeAudio(ctx context.Context, audioData []byte, config AudioConfig) (string, error)
}

// AudioConfig represents audio configuration for speech recognition.
type AudioConfig struct {
	SampleRate int    `json:"sample_rate"`
	Encoding   string `json:"encoding"`
	Language   string `json:"language"`
}
