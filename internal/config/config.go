package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	CacheDir       string               `json:"cache_dir"`
	Port           int                  `json:"port"`
	CORSOrigins    []string             `json:"cors_origins"`
	LogConfig      logger.LogConfig     `json:"log_config"`
	AI             AIConfig             `json:"ai"`
	Embedders      []ProviderConfig     `json:"embedders"`
	Retrieval      RetrievalConfig      `json:"retrieval"`
	Batch          BatchConfig          `json:"batch"`
	Subtitle       SubtitleConfig       `json:"subtitle"`
	Answer         AnswerConfig         `json:"answer"`
	EmbeddingCache EmbeddingCacheConfig `json:"embedding_cache"`
	FileStore      FileStoreConfig      `json:"file_store"`
	Schedule       ScheduleConfig       `json:"schedule"`
}

// ProviderConfig selects a registered provider; Data is handed to its factory untouched.
type ProviderConfig struct {
	Name     string      `json:"name"`
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Data     interface{} `json:"data"`
}

type AIConfig struct {
	Provider          string           `json:"provider"`
	Model             string           `json:"model"`
	Data              interface{}      `json:"data"`
	Fallbacks         []ProviderConfig `json:"fallbacks"`
	Temperature       float32          `json:"temperature"`
	MaxOutputTokens   int              `json:"max_output_tokens"`
	Timeout           int              `json:"timeout"`
	CacheModels       []string         `json:"cache_models"`
	ProbeCapabilities bool             `json:"probe_capabilities"`
	MinCacheTokens    int              `json:"min_cache_tokens"`
	CacheTTLMinutes   int              `json:"cache_ttl_minutes"`
}

type RetrievalConfig struct {
	TopK             int     `json:"top_k"`
	ContextChars     int     `json:"context_chars"`
	SimilarityWeight float64 `json:"similarity_weight"`
	RecencyWeight    float64 `json:"recency_weight"`
	DecayHours       float64 `json:"decay_hours"`
}

type BatchConfig struct {
	MaxBatchSize      int `json:"max_batch_size"`
	RequestsPerMinute int `json:"requests_per_minute"`
}

type SubtitleConfig struct {
	YtDlpPath  string   `json:"yt_dlp_path"`
	Langs      []string `json:"langs"`
	ChunkChars int      `json:"chunk_chars"`
	WorkDir    string   `json:"work_dir"`
}

type AnswerConfig struct {
	VideoBaseURL string `json:"video_base_url"`
	PhrasesFile  string `json:"phrases_file"`
}

type EmbeddingCacheConfig struct {
	LRUSize       int    `json:"lru_size"`
	LRUTTLMinutes int    `json:"lru_ttl_minutes"`
	DBPath        string `json:"db_path"`
	Disabled      bool   `json:"disabled"`
	MaxAgeDays    int    `json:"max_age_days"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type ScheduleConfig struct {
	CacheRefreshSpec     string `json:"cache_refresh_spec"`
	EmbeddingCleanSpec   string `json:"embedding_clean_spec"`
	HistoryEmbeddingSpec string `json:"history_embedding_spec"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() error {
	if strings.TrimSpace(c.AI.Provider) == "" {
		return fmt.Errorf("ai.provider is required")
	}
	if strings.TrimSpace(c.AI.Model) == "" {
		return fmt.Errorf("ai.model is required")
	}
	if c.CacheDir == "" {
		c.CacheDir = "cache"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "info"
	}
	if c.AI.Temperature == 0 {
		c.AI.Temperature = 0.2
	}
	if c.AI.MaxOutputTokens <= 0 {
		c.AI.MaxOutputTokens = 1024
	}
	if c.AI.MinCacheTokens <= 0 {
		c.AI.MinCacheTokens = 32768
	}
	if c.AI.CacheTTLMinutes <= 0 {
		c.AI.CacheTTLMinutes = 60
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 3
	}
	if c.Retrieval.ContextChars <= 0 {
		c.Retrieval.ContextChars = 8000
	}
	if c.Retrieval.SimilarityWeight == 0 && c.Retrieval.RecencyWeight == 0 {
		c.Retrieval.SimilarityWeight = 0.7
		c.Retrieval.RecencyWeight = 0.3
	}
	if c.Retrieval.DecayHours <= 0 {
		c.Retrieval.DecayHours = 24
	}
	if c.Batch.MaxBatchSize <= 0 {
		c.Batch.MaxBatchSize = 10
	}
	if c.Batch.RequestsPerMinute <= 0 {
		c.Batch.RequestsPerMinute = 60
	}
	if c.Subtitle.YtDlpPath == "" {
		c.Subtitle.YtDlpPath = "yt-dlp"
	}
	if len(c.Subtitle.Langs) == 0 {
		c.Subtitle.Langs = []string{"en", "zh-TW"}
	}
	if c.Subtitle.ChunkChars <= 0 {
		c.Subtitle.ChunkChars = 4000
	}
	if need := chunkBlockChars(c.Subtitle.ChunkChars); need > c.Retrieval.ContextChars {
		return fmt.Errorf("retrieval.context_chars %d cannot hold one chunk of subtitle.chunk_chars %d, need at least %d",
			c.Retrieval.ContextChars, c.Subtitle.ChunkChars, need)
	}
	if c.Subtitle.WorkDir == "" {
		c.Subtitle.WorkDir = filepath.Join(c.CacheDir, "subtitles")
	}
	if c.Answer.VideoBaseURL == "" {
		c.Answer.VideoBaseURL = "https://youtu.be/"
	}
	if c.EmbeddingCache.LRUSize <= 0 {
		c.EmbeddingCache.LRUSize = 1000
	}
	if c.EmbeddingCache.LRUTTLMinutes <= 0 {
		c.EmbeddingCache.LRUTTLMinutes = 120
	}
	if c.EmbeddingCache.DBPath == "" {
		c.EmbeddingCache.DBPath = filepath.Join(c.CacheDir, "embedding_cache.db")
	}
	if c.EmbeddingCache.MaxAgeDays <= 0 {
		c.EmbeddingCache.MaxAgeDays = 30
	}
	if c.FileStore.Type == "" {
		c.FileStore.Type = "local"
	}
	switch c.FileStore.Type {
	case "local":
		if c.FileStore.Data == nil {
			c.FileStore.Data = map[string]interface{}{"dir": "."}
		}
	case "s3":
		if c.FileStore.Data == nil {
			return fmt.Errorf("file_store.data is required for s3 store")
		}
	default:
		return fmt.Errorf("file_store.type must be local or s3")
	}
	if c.Schedule.CacheRefreshSpec == "" {
		c.Schedule.CacheRefreshSpec = "*/5 * * * *"
	}
	if c.Schedule.EmbeddingCleanSpec == "" {
		c.Schedule.EmbeddingCleanSpec = "30 3 * * *"
	}
	if c.Schedule.HistoryEmbeddingSpec == "" {
		c.Schedule.HistoryEmbeddingSpec = "*/10 * * * *"
	}
	return nil
}

// chunkBlockChars estimates the formatted size of a full chunk: its text, the
// spaces joining its cues and the timestamp header.
func chunkBlockChars(chunkChars int) int {
	return chunkChars + chunkChars/8 + 32
}
