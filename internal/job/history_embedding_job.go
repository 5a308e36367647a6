package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/ytqa/internal/model"
)

type IHistoryLister interface {
	List() []model.QAPair
}

type IEmbeddingBackfiller interface {
	Backfill(ctx context.Context, history []model.QAPair) (int, error)
}

// HistoryEmbeddingJob precomputes embeddings for answered questions so the
// next ranking does not pay for them.
type HistoryEmbeddingJob struct {
	history IHistoryLister
	ranker  IEmbeddingBackfiller
}

func NewHistoryEmbeddingJob(history IHistoryLister, ranker IEmbeddingBackfiller) *HistoryEmbeddingJob {
	return &HistoryEmbeddingJob{history: history, ranker: ranker}
}

func (j *HistoryEmbeddingJob) Name() string {
	return "history_embedding"
}

func (j *HistoryEmbeddingJob) Run(ctx context.Context) error {
	if j.history == nil || j.ranker == nil {
		return nil
	}
	n, err := j.ranker.Backfill(ctx, j.history.List())
	if err != nil {
		return err
	}
	if n > 0 {
		logutil.GetLogger(ctx).Info("history embeddings stored", zap.Int("count", n))
	}
	return nil
}
