package repo

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/ytqa/internal/model"
	"github.com/xxxsen/ytqa/internal/pkg/timestamp"
)

const DefaultContextChars = 8000

// TranscriptRepo keeps transcript chunks keyed by "start_end" and persists them
// as one JSON object.
type TranscriptRepo struct {
	mu     sync.RWMutex
	path   string
	chunks map[string]model.TranscriptChunk
}

func NewTranscriptRepo(ctx context.Context, path string) *TranscriptRepo {
	r := &TranscriptRepo{path: path, chunks: make(map[string]model.TranscriptChunk)}
	loaded := make(map[string]model.TranscriptChunk)
	found, err := readJSON(path, &loaded)
	switch {
	case err != nil:
		logutil.GetLogger(ctx).Warn("transcript cache unreadable, starting empty", zap.String("path", path), zap.Error(err))
	case found && loaded != nil:
		r.chunks = loaded
	}
	return r
}

// AddChunks upserts chunks by time range key and persists the store.
func (r *TranscriptRepo) AddChunks(ctx context.Context, chunks []model.TranscriptChunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, chunk := range chunks {
		r.chunks[chunk.Key()] = chunk
	}
	if err := writeJSONAtomic(r.path, r.chunks); err != nil {
		logutil.GetLogger(ctx).Error("persist transcript cache failed", zap.Error(err))
		return err
	}
	return nil
}

// Context renders chunks as "[start - end] text" blocks in index order. When
// timestamps are given only chunks containing one of them are used. A chunk that
// would push the output past maxChars ends the listing.
func (r *TranscriptRepo) Context(timestamps []string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultContextChars
	}
	chunks := r.Chunks()
	if len(timestamps) > 0 {
		filtered := make([]model.TranscriptChunk, 0, len(chunks))
		for _, chunk := range chunks {
			for _, ts := range timestamps {
				if timestamp.Within(ts, chunk.StartTime, chunk.EndTime) {
					filtered = append(filtered, chunk)
					break
				}
			}
		}
		chunks = filtered
	}
	var sb strings.Builder
	for _, chunk := range chunks {
		block := FormatChunk(chunk)
		if sb.Len()+len(block) > maxChars {
			break
		}
		sb.WriteString(block)
	}
	return strings.TrimSpace(sb.String())
}

// Document renders every chunk with no size limit.
func (r *TranscriptRepo) Document() string {
	var sb strings.Builder
	for _, chunk := range r.Chunks() {
		sb.WriteString(FormatChunk(chunk))
	}
	return sb.String()
}

// Chunks returns all chunks ordered by index.
func (r *TranscriptRepo) Chunks() []model.TranscriptChunk {
	r.mu.RLock()
	out := make([]model.TranscriptChunk, 0, len(r.chunks))
	for _, chunk := range r.chunks {
		out = append(out, chunk)
	}
	r.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Index != out[j].Index {
			return out[i].Index < out[j].Index
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out
}

// Boundaries lists every chunk start and end time.
func (r *TranscriptRepo) Boundaries() []string {
	chunks := r.Chunks()
	out := make([]string, 0, len(chunks)*2)
	for _, chunk := range chunks {
		out = append(out, chunk.StartTime, chunk.EndTime)
	}
	return out
}

func (r *TranscriptRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.chunks)
}

func (r *TranscriptRepo) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = make(map[string]model.TranscriptChunk)
	if err := writeJSONAtomic(r.path, r.chunks); err != nil {
		logutil.GetLogger(ctx).Error("persist empty transcript cache failed", zap.Error(err))
		return err
	}
	return nil
}

func FormatChunk(chunk model.TranscriptChunk) string {
	return "[" + chunk.StartTime + " - " + chunk.EndTime + "] " + chunk.Text + "\n\n"
}
