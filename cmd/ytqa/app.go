package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/ytqa/internal/ai"
	"github.com/xxxsen/ytqa/internal/answer"
	"github.com/xxxsen/ytqa/internal/config"
	"github.com/xxxsen/ytqa/internal/embedcache"
	"github.com/xxxsen/ytqa/internal/filestore"
	"github.com/xxxsen/ytqa/internal/repo"
	"github.com/xxxsen/ytqa/internal/retrieval"
	"github.com/xxxsen/ytqa/internal/service"
	"github.com/xxxsen/ytqa/internal/subtitle"
)

// app holds every wired component; commands pick what they need.
type app struct {
	cfg       *config.Config
	cache     *repo.Cache
	db        *sqlx.DB
	embedRepo *repo.EmbeddingCacheRepo
	manager   *ai.Manager
	ranker    *retrieval.Ranker
	sessions  *service.SessionService
	qa        *service.QAService
	results   *service.ResultWriter
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}
	generator, cacher, lister, err := buildGenerator(ctx, cfg)
	if err != nil {
		return nil, err
	}
	caps := ai.NewCapabilityTable(cfg.AI.CacheModels)
	if cfg.AI.ProbeCapabilities {
		if err := caps.Probe(ctx, lister); err != nil {
			logutil.GetLogger(ctx).Warn("probe cache capable models failed", zap.Error(err))
		}
	}
	embedder, err := a.buildEmbedder(ctx)
	if err != nil {
		return nil, err
	}
	a.manager = ai.NewManager(generator, embedder, cacher, caps, ai.ManagerConfig{
		Timeout:         cfg.AI.Timeout,
		Temperature:     cfg.AI.Temperature,
		MaxOutputTokens: cfg.AI.MaxOutputTokens,
		MinCacheTokens:  cfg.AI.MinCacheTokens,
		CacheTTL:        time.Duration(cfg.AI.CacheTTLMinutes) * time.Minute,
	})

	a.cache, err = repo.OpenCache(ctx, cfg.CacheDir)
	if err != nil {
		a.Close()
		return nil, err
	}
	fetcher := subtitle.NewFetcher(cfg.Subtitle.YtDlpPath, cfg.Subtitle.Langs, cfg.Subtitle.WorkDir)
	a.sessions = service.NewSessionService(fetcher, a.cache.Transcripts, a.cache.History, a.cache.Sessions, a.manager, cfg.Subtitle.ChunkChars)

	phrases := answer.DefaultPhrases()
	if cfg.Answer.PhrasesFile != "" {
		phrases, err = answer.LoadPhrases(cfg.Answer.PhrasesFile)
		if err != nil {
			a.Close()
			return nil, err
		}
	}
	processor := answer.NewProcessor(phrases, a.cache.History, cfg.Answer.VideoBaseURL)

	var rankEmbedder retrieval.IEmbedder
	if a.manager.HasEmbedder() {
		rankEmbedder = a.manager
	}
	a.ranker = retrieval.NewRanker(rankEmbedder, a.cache.History, retrieval.Config{
		SimilarityWeight: cfg.Retrieval.SimilarityWeight,
		RecencyWeight:    cfg.Retrieval.RecencyWeight,
		DecayHours:       cfg.Retrieval.DecayHours,
	})
	a.qa = service.NewQAService(
		a.manager,
		a.ranker,
		a.cache.Transcripts,
		a.cache.History,
		processor,
		a.sessions,
		service.NewLimiter(cfg.Batch.RequestsPerMinute),
		service.QAConfig{
			TopK:         cfg.Retrieval.TopK,
			ContextChars: cfg.Retrieval.ContextChars,
			MaxBatchSize: cfg.Batch.MaxBatchSize,
		},
	)

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init file store: %w", err)
	}
	a.results = service.NewResultWriter(store)
	logutil.GetLogger(ctx).Info("components ready",
		zap.String("model", a.manager.ModelName()),
		zap.String("embedding_model", a.manager.EmbeddingModelName()),
		zap.Strings("cache_models", caps.CacheModels()),
		zap.String("cache_dir", cfg.CacheDir),
	)
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

func buildGenerator(ctx context.Context, cfg *config.Config) (ai.IGenerator, ai.ICacheProvider, ai.IModelLister, error) {
	primary, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init ai provider: %w", err)
	}
	entries := []ai.GeneratorEntry{{Name: cfg.AI.Provider, Generator: ai.NewGenerator(primary, cfg.AI.Model)}}
	for _, fb := range cfg.AI.Fallbacks {
		p, err := ai.NewProvider(fb.Provider, fb.Data)
		if err != nil {
			logutil.GetLogger(ctx).Warn("skip fallback provider", zap.String("provider", fb.Provider), zap.Error(err))
			continue
		}
		name := fb.Name
		if name == "" {
			name = fb.Provider
		}
		entries = append(entries, ai.GeneratorEntry{Name: name, Generator: ai.NewGenerator(p, fb.Model)})
	}
	cacher, _ := primary.(ai.ICacheProvider)
	lister, _ := primary.(ai.IModelLister)
	return ai.NewGroupGenerator(entries), cacher, lister, nil
}

// buildEmbedder chains the configured embedders behind the sqlite and LRU
// caches. No configured embedder leaves ranking lexical.
func (a *app) buildEmbedder(ctx context.Context) (ai.IEmbedder, error) {
	cfg := a.cfg
	entries := make([]ai.EmbedderEntry, 0, len(cfg.Embedders))
	for _, item := range cfg.Embedders {
		p, err := ai.NewEmbedProvider(item.Provider, item.Data)
		if err != nil {
			logutil.GetLogger(ctx).Warn("skip embedder", zap.String("provider", item.Provider), zap.Error(err))
			continue
		}
		name := item.Name
		if name == "" {
			name = item.Provider
		}
		entries = append(entries, ai.EmbedderEntry{Name: name, Embedder: ai.NewEmbedder(p, item.Model)})
	}
	embedder := ai.NewGroupEmbedder(entries)
	if embedder == nil || cfg.EmbeddingCache.Disabled {
		return embedder, nil
	}
	db, err := repo.OpenDB(cfg.EmbeddingCache.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open embedding cache: %w", err)
	}
	a.db = db
	a.embedRepo = repo.NewEmbeddingCacheRepo(db)
	embedder = embedcache.WrapDBCacheToEmbedder(embedder, a.embedRepo)
	return embedcache.WrapLruCacheToEmbedder(embedder, cfg.EmbeddingCache.LRUSize,
		time.Duration(cfg.EmbeddingCache.LRUTTLMinutes)*time.Minute), nil
}
