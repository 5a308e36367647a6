package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/ytqa/internal/ai"
	"github.com/xxxsen/ytqa/internal/model"
	"github.com/xxxsen/ytqa/internal/prompt"
)

type IModel interface {
	Generate(ctx context.Context, prompt string, cacheID string) (string, error)
}

type IRanker interface {
	Rank(ctx context.Context, question string, history []model.QAPair, k int) []model.QAPair
}

type ITranscriptSource interface {
	Context(timestamps []string, maxChars int) string
	Boundaries() []string
	Len() int
}

type IHistorySource interface {
	List() []model.QAPair
}

type IAnswerProcessor interface {
	Process(ctx context.Context, question, raw, videoID string, boundaries []string) (model.BatchResult, error)
}

// ICacheInvalidator is told when the provider rejected a session's cache id.
// Transient failures of a cached call never reach it.
type ICacheInvalidator interface {
	DropCache(ctx context.Context, cacheID string) error
}

type QAConfig struct {
	TopK         int
	ContextChars int
	MaxBatchSize int
}

// ProgressFunc is called after each question completes.
type ProgressFunc func(done, total int)

type QAService struct {
	model       IModel
	ranker      IRanker
	transcripts ITranscriptSource
	history     IHistorySource
	processor   IAnswerProcessor
	invalidator ICacheInvalidator
	limiter     *Limiter
	cfg         QAConfig
}

func NewQAService(
	m IModel,
	ranker IRanker,
	transcripts ITranscriptSource,
	history IHistorySource,
	processor IAnswerProcessor,
	invalidator ICacheInvalidator,
	limiter *Limiter,
	cfg QAConfig,
) *QAService {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 10
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if limiter == nil {
		limiter = NewLimiter(60)
	}
	return &QAService{
		model:       m,
		ranker:      ranker,
		transcripts: transcripts,
		history:     history,
		processor:   processor,
		invalidator: invalidator,
		limiter:     limiter,
		cfg:         cfg,
	}
}

// runState is shared by every question of one run. The cache id is dropped
// for the rest of the run once the provider rejects it.
type runState struct {
	mu      sync.Mutex
	videoID string
	cacheID string
}

func newRunState(sess *model.Session) *runState {
	st := &runState{}
	if sess != nil {
		st.videoID = sess.VideoID
		st.cacheID = sess.CacheID
	}
	return st
}

func (st *runState) currentCache() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.cacheID
}

// invalidate clears cacheID and reports whether this call was the one that cleared it.
func (st *runState) invalidate(cacheID string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.cacheID == "" || st.cacheID != cacheID {
		return false
	}
	st.cacheID = ""
	return true
}

// Ask answers one question.
func (s *QAService) Ask(ctx context.Context, sess *model.Session, question string) model.BatchResult {
	return s.answer(ctx, newRunState(sess), 0, question, nil, false)
}

// RunBatch answers questions independently. Questions are sent in groups of
// MaxBatchSize; a group's calls run concurrently and the next group starts
// once all of them are done. The result at index i belongs to questions[i].
func (s *QAService) RunBatch(ctx context.Context, sess *model.Session, questions []string, progress ProgressFunc) []model.BatchResult {
	st := newRunState(sess)
	results := make([]model.BatchResult, len(questions))
	total := len(questions)
	groups := (total + s.cfg.MaxBatchSize - 1) / s.cfg.MaxBatchSize
	done := 0
	var progressMu sync.Mutex
	for start := 0; start < total; start += s.cfg.MaxBatchSize {
		end := start + s.cfg.MaxBatchSize
		if end > total {
			end = total
		}
		logutil.GetLogger(ctx).Info("processing batch",
			zap.Int("batch", start/s.cfg.MaxBatchSize+1),
			zap.Int("batches", groups),
			zap.Int("size", end-start),
		)
		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				results[idx] = s.answer(ctx, st, idx, questions[idx], nil, false)
				if progress != nil {
					progressMu.Lock()
					done++
					progress(done, total)
					progressMu.Unlock()
				}
			}(i)
		}
		wg.Wait()
	}
	return results
}

// RunInterconnected answers questions one at a time in order. Every
// successful exchange is shown to the questions that follow it.
func (s *QAService) RunInterconnected(ctx context.Context, sess *model.Session, questions []string, progress ProgressFunc) []model.BatchResult {
	st := newRunState(sess)
	results := make([]model.BatchResult, 0, len(questions))
	var prior []model.Exchange
	for i, question := range questions {
		logutil.GetLogger(ctx).Info("processing interconnected question",
			zap.Int("index", i+1), zap.Int("total", len(questions)))
		res := s.answer(ctx, st, i, question, prior, true)
		results = append(results, res)
		if res.Success {
			prior = append(prior, model.Exchange{
				Question:   question,
				Answer:     res.Answer,
				Timestamps: res.Timestamps,
			})
		}
		if progress != nil {
			progress(i+1, len(questions))
		}
	}
	return results
}

func (s *QAService) buildPrompt(ctx context.Context, question, cacheID string, prior []model.Exchange, interconnected bool) string {
	req := prompt.Request{
		Question: question,
		History:  s.ranker.Rank(ctx, question, s.history.List(), s.cfg.TopK),
		Prior:    prior,
	}
	switch {
	case interconnected:
		req.Mode = prompt.ModeInterconnected
		req.CacheActive = cacheID != ""
	case cacheID != "":
		req.Mode = prompt.ModeCachedContent
	default:
		req.Mode = prompt.ModeStandalone
	}
	if cacheID == "" {
		req.Transcript = s.transcripts.Context(nil, s.cfg.ContextChars)
	}
	return prompt.Build(req)
}

// answer never fails: any error ends up in the returned result.
func (s *QAService) answer(ctx context.Context, st *runState, idx int, question string, prior []model.Exchange, interconnected bool) model.BatchResult {
	logger := logutil.GetLogger(ctx).With(zap.Int("index", idx))
	raw, err := s.generate(ctx, st, question, prior, interconnected)
	if err != nil {
		logger.Error("question failed", zap.String("question", question), zap.Error(err))
		return model.FailedResult(question, err)
	}
	res, err := s.processor.Process(ctx, question, raw, st.videoID, s.transcripts.Boundaries())
	if err != nil {
		logger.Error("post-process answer failed", zap.Error(err))
		return model.FailedResult(question, err)
	}
	return res
}

func (s *QAService) generate(ctx context.Context, st *runState, question string, prior []model.Exchange, interconnected bool) (string, error) {
	cacheID := st.currentCache()
	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("wait rate limit: %w", err)
	}
	raw, err := s.model.Generate(ctx, s.buildPrompt(ctx, question, cacheID, prior, interconnected), cacheID)
	if err == nil || cacheID == "" {
		return raw, err
	}
	logger := logutil.GetLogger(ctx).With(zap.String("cache_id", cacheID))
	if errors.Is(err, ai.ErrCacheRejected) {
		logger.Warn("provider rejected cache, dropping it", zap.Error(err))
		if st.invalidate(cacheID) && s.invalidator != nil {
			if derr := s.invalidator.DropCache(ctx, cacheID); derr != nil {
				logger.Warn("drop session cache failed", zap.Error(derr))
			}
		}
	} else {
		// the session keeps its cache, only this call goes uncached
		logger.Warn("cached call failed, retrying once without provider cache", zap.Error(err))
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("wait rate limit: %w", err)
	}
	return s.model.Generate(ctx, s.buildPrompt(ctx, question, "", prior, interconnected), "")
}
