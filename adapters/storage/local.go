package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Local stores artifacts as files under a single directory. Refs are
// "file://" URIs pointing at the written file.
type Local struct {
	dir    string
	logger *zap.Logger
}

// NewLocal creates the artifact directory if it does not exist.
func NewLocal(dir string, logger *zap.Logger) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact directory %s: %w", dir, err)
	}
	return &Local{dir: dir, logger: logger}, nil
}

// Save writes the artifact atomically: to a temp file first, then renamed
// into place so a crashed save never leaves a partial WAV behind.
func (l *Local) Save(ctx context.Context, data []byte, suggestedName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := filepath.Base(suggestedName)
	path := filepath.Join(l.dir, name)

	tmp, err := os.CreateTemp(l.dir, name+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing artifact: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("publishing artifact: %w", err)
	}

	l.logger.Info("Artifact saved",
		zap.String("path", path),
		zap.Int("bytes", len(data)))
	return "file://" + path, nil
}

// Load reads an artifact back by the ref Save returned.
func (l *Local) Load(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := strings.TrimPrefix(ref, "file://")
	// Refuse refs that escape the artifact directory.
	resolved, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving artifact ref %s: %w", ref, err)
	}
	root, err := filepath.Abs(l.dir)
	if err != nil {
		return nil, fmt.Errorf("resolving artifact directory: %w", err)
	}
	if !strings.HasPrefix(resolved, root+string(filepath.Separator)) {
		return nil, fmt.Errorf("artifact ref %s is outside the artifact directory", ref)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("reading artifact %s: %w", ref, err)
	}
	return data, nil
}
