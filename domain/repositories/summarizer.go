package repositories

import "context"

// Summarizer abstracts the downstream summarization service that condenses
// a consultation transcript for review.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}
