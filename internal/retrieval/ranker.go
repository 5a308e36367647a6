// Package retrieval ranks prior question/answer pairs by relevance to a new question.
package retrieval

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/ytqa/internal/model"
	"github.com/xxxsen/ytqa/internal/repo"
)

const (
	DefaultTopK = 3
	// TaskType is used for both the question and history embeddings since
	// they are compared question to question.
	TaskType = "SEMANTIC_SIMILARITY"
)

var errDimensionMismatch = errors.New("embedding dimension mismatch")

type IEmbedder interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
}

// IEmbeddingSink receives embeddings computed during ranking.
type IEmbeddingSink interface {
	SetEmbeddings(ctx context.Context, updates []repo.EmbeddingUpdate) error
}

type Config struct {
	SimilarityWeight float64
	RecencyWeight    float64
	DecayHours       float64
}

func DefaultConfig() Config {
	return Config{SimilarityWeight: 0.7, RecencyWeight: 0.3, DecayHours: 24}
}

type Ranker struct {
	embedder IEmbedder
	sink     IEmbeddingSink
	cfg      Config
	now      func() time.Time
}

// NewRanker builds a ranker. embedder may be nil, in which case ranking is
// always lexical. sink may be nil to skip persisting computed embeddings.
func NewRanker(embedder IEmbedder, sink IEmbeddingSink, cfg Config) *Ranker {
	if cfg.DecayHours <= 0 {
		cfg.DecayHours = DefaultConfig().DecayHours
	}
	return &Ranker{embedder: embedder, sink: sink, cfg: cfg, now: time.Now}
}

type scored struct {
	score float64
	pair  model.QAPair
}

// Rank returns at most k pairs of history ordered by descending relevance.
// Equal scores keep their history order. It never fails; when embeddings
// cannot be computed it ranks by word overlap instead.
func (r *Ranker) Rank(ctx context.Context, question string, history []model.QAPair, k int) []model.QAPair {
	if len(history) == 0 {
		return []model.QAPair{}
	}
	if k <= 0 {
		k = DefaultTopK
	}
	var items []scored
	if r.embedder != nil {
		var err error
		items, err = r.semantic(ctx, question, history)
		if err != nil {
			logutil.GetLogger(ctx).Warn("semantic ranking unavailable, using lexical overlap", zap.Error(err))
			items = nil
		}
	}
	if items == nil {
		items = lexical(question, history)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].score > items[j].score
	})
	if len(items) > k {
		items = items[:k]
	}
	out := make([]model.QAPair, 0, len(items))
	for _, item := range items {
		out = append(out, item.pair)
	}
	return out
}

func (r *Ranker) semantic(ctx context.Context, question string, history []model.QAPair) ([]scored, error) {
	qvec, err := r.embedder.Embed(ctx, question, TaskType)
	if err != nil {
		return nil, err
	}
	now := r.now()
	items := make([]scored, 0, len(history))
	var updates []repo.EmbeddingUpdate
	for i, pair := range history {
		// a stored vector of another size came from a different embedder
		if len(pair.Embedding) != len(qvec) {
			emb, err := r.embedder.Embed(ctx, pair.Question, TaskType)
			if err != nil {
				return nil, err
			}
			pair = pair.WithEmbedding(emb)
			updates = append(updates, repo.EmbeddingUpdate{Index: i, Question: pair.Question, Embedding: pair.Embedding})
		}
		if len(pair.Embedding) != len(qvec) {
			return nil, errDimensionMismatch
		}
		score := r.cfg.SimilarityWeight*Cosine(qvec, pair.Embedding) +
			r.cfg.RecencyWeight*TimeDecay(now.Sub(pair.Time).Hours(), r.cfg.DecayHours)
		items = append(items, scored{score: score, pair: pair})
	}
	if r.sink != nil && len(updates) > 0 {
		if err := r.sink.SetEmbeddings(ctx, updates); err != nil {
			logutil.GetLogger(ctx).Warn("store history embeddings failed", zap.Error(err))
		}
	}
	return items, nil
}

// Backfill computes and stores embeddings for history pairs that lack one or
// whose stored vector does not match the current embedder's dimension.
// It returns how many were stored.
func (r *Ranker) Backfill(ctx context.Context, history []model.QAPair) (int, error) {
	if r.embedder == nil || r.sink == nil {
		return 0, nil
	}
	var updates []repo.EmbeddingUpdate
	dim := 0
	for i, pair := range history {
		if dim > 0 && len(pair.Embedding) == dim {
			continue
		}
		emb, err := r.embedder.Embed(ctx, pair.Question, TaskType)
		if err != nil {
			return 0, err
		}
		if dim == 0 {
			dim = len(emb)
		}
		if len(pair.Embedding) == len(emb) {
			continue
		}
		updates = append(updates, repo.EmbeddingUpdate{Index: i, Question: pair.Question, Embedding: emb})
	}
	if len(updates) == 0 {
		return 0, nil
	}
	if err := r.sink.SetEmbeddings(ctx, updates); err != nil {
		return 0, err
	}
	return len(updates), nil
}

func lexical(question string, history []model.QAPair) []scored {
	items := make([]scored, 0, len(history))
	for _, pair := range history {
		items = append(items, scored{score: Overlap(question, pair.Question), pair: pair})
	}
	return items
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a zero
// vector or their lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// TimeDecay is 1/(1+hours/scale). Negative ages count as zero.
func TimeDecay(hours, scale float64) float64 {
	if hours < 0 {
		hours = 0
	}
	if scale <= 0 {
		scale = 24
	}
	return 1 / (1 + hours/scale)
}

// Overlap is the share of distinct question words that also appear in
// candidate, compared case-insensitively on whitespace-split words.
func Overlap(question, candidate string) float64 {
	qwords := wordSet(question)
	if len(qwords) == 0 {
		return 0
	}
	cwords := wordSet(candidate)
	shared := 0
	for w := range qwords {
		if _, ok := cwords[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(qwords))
}

func wordSet(text string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(text))
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		out[f] = struct{}{}
	}
	return out
}
