package repo

import (
	"context"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/ytqa/internal/model"
)

// EmbeddingUpdate backfills the embedding of the pair at Index. Question guards
// against the history having been cleared or replaced in between.
type EmbeddingUpdate struct {
	Index     int
	Question  string
	Embedding []float32
}

// QARepo is the append-only question/answer history. Every append is persisted
// under the same lock, so concurrent writers never interleave partial files.
type QARepo struct {
	mu    sync.Mutex
	path  string
	pairs []model.QAPair
	now   func() time.Time
}

func NewQARepo(ctx context.Context, path string) *QARepo {
	r := &QARepo{path: path, now: time.Now}
	var loaded []model.QAPair
	found, err := readJSON(path, &loaded)
	switch {
	case err != nil:
		logutil.GetLogger(ctx).Warn("qa cache unreadable, starting empty", zap.String("path", path), zap.Error(err))
	case found:
		r.pairs = loaded
	}
	return r
}

func (r *QARepo) Add(ctx context.Context, question, answer string, timestamps []string) (model.QAPair, error) {
	if timestamps == nil {
		timestamps = []string{}
	}
	pair := model.QAPair{
		Question:   question,
		Answer:     answer,
		Timestamps: append([]string(nil), timestamps...),
		Time:       r.now(),
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pairs = append(r.pairs, pair)
	if err := writeJSONAtomic(r.path, r.pairs); err != nil {
		logutil.GetLogger(ctx).Error("persist qa cache failed", zap.Error(err))
		return pair, err
	}
	return pair, nil
}

// List returns a snapshot of the history in insertion order.
func (r *QARepo) List() []model.QAPair {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.QAPair, len(r.pairs))
	copy(out, r.pairs)
	return out
}

// SetEmbeddings stores computed embeddings back into the history, replacing
// each affected record with a copy rather than mutating shared slices.
func (r *QARepo) SetEmbeddings(ctx context.Context, updates []EmbeddingUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	applied := 0
	for _, u := range updates {
		if u.Index < 0 || u.Index >= len(r.pairs) || r.pairs[u.Index].Question != u.Question {
			continue
		}
		r.pairs[u.Index] = r.pairs[u.Index].WithEmbedding(u.Embedding)
		applied++
	}
	if applied == 0 {
		return nil
	}
	if err := writeJSONAtomic(r.path, r.pairs); err != nil {
		logutil.GetLogger(ctx).Error("persist qa embeddings failed", zap.Error(err))
		return err
	}
	return nil
}

func (r *QARepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pairs)
}

func (r *QARepo) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pairs = nil
	if err := writeJSONAtomic(r.path, []model.QAPair{}); err != nil {
		logutil.GetLogger(ctx).Error("persist empty qa cache failed", zap.Error(err))
		return err
	}
	return nil
}
