package summary

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultModel          = "gemini-2.0-flash"
	defaultTimeoutSeconds = 60
	maxOutputTokens       = 1024
)

const systemPrompt = `You summarize clinical consultation transcripts for the
treating practitioner. Produce a concise summary covering: reason for visit,
key findings, decisions made, and agreed follow-up actions. Use neutral
clinical language. Do not invent details that are not in the transcript.`

// GeminiSummarizer implements Summarizer using Google's Gemini API.
type GeminiSummarizer struct {
	client *genai.Client
	logger *zap.Logger
	model  string
}

// NewGeminiSummarizer creates a summarizer. GEMINI_API_KEY must be set.
func NewGeminiSummarizer(logger *zap.Logger) (*GeminiSummarizer, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiSummarizer{
		client: client,
		logger: logger,
		model:  defaultModel,
	}, nil
}

// Summarize produces a clinical summary of the transcript. Retries twice on
// transient failures before giving up.
func (g *GeminiSummarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	if transcript == "" {
		return "", fmt.Errorf("transcript is empty")
	}

	contents := []*genai.Content{
		genai.NewContentFromText(systemPrompt, genai.RoleUser),
		genai.NewContentFromText(transcript, genai.RoleUser),
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(0.2)),
		MaxOutputTokens: maxOutputTokens,
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeoutSeconds*time.Second)
	defer cancel()

	var response *genai.GenerateContentResponse
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		response, err = g.client.Models.GenerateContent(ctx, g.model, contents, config)
		if err == nil {
			break
		}

		g.logger.Warn("Failed to generate summary, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		if attempt < 2 {
			time.Sleep(time.Duration(attempt+1) * time.Second)
		}
	}
	if err != nil {
		return "", fmt.Errorf("summary generation failed: %w", err)
	}

	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return "", fmt.Errorf("no content generated")
	}

	var text string
	for _, part := range response.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}
	if text == "" {
		return "", fmt.Errorf("empty summary response")
	}

	g.logger.Info("Transcript summarized",
		zap.Int("transcriptChars", len(transcript)),
		zap.Int("summaryChars", len(text)))
	return text, nil
}
