package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// charsPerToken approximates tokenisation for the cache size gate.
const charsPerToken = 4

type ManagerConfig struct {
	Timeout         int
	Temperature     float32
	MaxOutputTokens int
	MinCacheTokens  int
	CacheTTL        time.Duration
}

// Manager is the single entry point the pipeline uses for remote model calls.
type Manager struct {
	generator IGenerator
	embedder  IEmbedder
	cacher    ICacheProvider
	caps      *CapabilityTable
	cfg       ManagerConfig
}

func NewManager(generator IGenerator, embedder IEmbedder, cacher ICacheProvider, caps *CapabilityTable, cfg ManagerConfig) *Manager {
	if caps == nil {
		caps = NewCapabilityTable(nil)
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	return &Manager{
		generator: generator,
		embedder:  embedder,
		cacher:    cacher,
		caps:      caps,
		cfg:       cfg,
	}
}

// Generate sends prompt to the configured model. cacheID may be empty.
// An empty reply is returned as "" so callers can substitute their own fallback.
func (m *Manager) Generate(ctx context.Context, prompt string, cacheID string) (string, error) {
	if m.generator == nil {
		return "", ErrUnavailable
	}
	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(m.cfg.Timeout)*time.Second)
		defer cancel()
	}
	resp, err := m.generator.Generate(ctx, prompt, GenerateOptions{
		Temperature:     m.cfg.Temperature,
		MaxOutputTokens: m.cfg.MaxOutputTokens,
		CachedContent:   cacheID,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp), nil
}

func (m *Manager) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if m.embedder == nil {
		return nil, ErrUnavailable
	}
	return m.embedder.Embed(ctx, text, taskType)
}

func (m *Manager) HasEmbedder() bool {
	return m.embedder != nil
}

func (m *Manager) EmbeddingModelName() string {
	if m.embedder == nil {
		return ""
	}
	return m.embedder.ModelName()
}

func (m *Manager) ModelName() string {
	if m.generator == nil {
		return ""
	}
	return m.generator.ModelName()
}

// EstimateTokens approximates the token count of text.
func EstimateTokens(text string) int {
	return len(text) / charsPerToken
}

// CacheEligible reports whether document may be pinned in a provider cache,
// returning ErrCacheTooSmall or ErrCacheUnsupported when it may not.
func (m *Manager) CacheEligible(document string) error {
	if m.cacher == nil || !m.caps.SupportsCache(m.ModelName()) {
		return ErrCacheUnsupported
	}
	if EstimateTokens(document) < m.cfg.MinCacheTokens {
		return ErrCacheTooSmall
	}
	return nil
}

// CreateCache pins document server-side and returns its id and expiry.
func (m *Manager) CreateCache(ctx context.Context, document string) (string, time.Time, error) {
	if err := m.CacheEligible(document); err != nil {
		return "", time.Time{}, err
	}
	id, err := m.cacher.CreateCache(ctx, m.ModelName(), document, m.cfg.CacheTTL)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("create provider cache: %w", err)
	}
	logutil.GetLogger(ctx).Info("provider cache created",
		zap.String("cache_id", id),
		zap.Int("estimated_tokens", EstimateTokens(document)),
		zap.Duration("ttl", m.cfg.CacheTTL),
	)
	return id, time.Now().Add(m.cfg.CacheTTL), nil
}

func (m *Manager) DeleteCache(ctx context.Context, cacheID string) error {
	if m.cacher == nil || cacheID == "" {
		return nil
	}
	return m.cacher.DeleteCache(ctx, cacheID)
}

func (m *Manager) Capabilities() *CapabilityTable {
	return m.caps
}
