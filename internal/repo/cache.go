package repo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

const (
	transcriptCacheFile = "transcript_cache.json"
	qaCacheFile         = "qa_cache.json"
	sessionFile         = "session.json"
)

// Cache groups the per-video stores living in one cache directory.
type Cache struct {
	Dir         string
	Transcripts *TranscriptRepo
	History     *QARepo
	Sessions    *SessionRepo
}

func OpenCache(ctx context.Context, dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{
		Dir:         dir,
		Transcripts: NewTranscriptRepo(ctx, filepath.Join(dir, transcriptCacheFile)),
		History:     NewQARepo(ctx, filepath.Join(dir, qaCacheFile)),
		Sessions:    NewSessionRepo(filepath.Join(dir, sessionFile)),
	}, nil
}

// Clear empties the transcript and history stores and persists the empty state.
func (c *Cache) Clear(ctx context.Context) error {
	if err := c.Transcripts.Clear(ctx); err != nil {
		return fmt.Errorf("clear transcripts: %w", err)
	}
	if err := c.History.Clear(ctx); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}
