package repositories

import "context"

// ArtifactStorage persists finished audio blobs and hands back durable
// references. Saving is fire-and-forget per artifact from the recorder's
// point of view; retry policy, if any, lives inside the implementation.
type ArtifactStorage interface {
	Save(ctx context.Context, data []byte, suggestedName string) (string, error)
	// Load reads back a previously saved artifact by its reference. Used by
	// the post-processing flow, not by the recorder itself.
	Load(ctx context.Context, ref string) ([]byte, error)
}
