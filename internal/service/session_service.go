package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/ytqa/internal/ai"
	"github.com/xxxsen/ytqa/internal/model"
	appErr "github.com/xxxsen/ytqa/internal/pkg/errors"
	"github.com/xxxsen/ytqa/internal/subtitle"
)

// cacheRefreshWindow is how close to expiry a provider cache gets recreated.
const cacheRefreshWindow = 5 * time.Minute

type ISubtitleFetcher interface {
	Fetch(ctx context.Context, videoURL string) (string, error)
}

type ITranscriptStore interface {
	AddChunks(ctx context.Context, chunks []model.TranscriptChunk) error
	Document() string
	Len() int
	Clear(ctx context.Context) error
}

type IHistoryStore interface {
	Clear(ctx context.Context) error
}

type ISessionStore interface {
	Get(ctx context.Context) (*model.Session, error)
	Save(ctx context.Context, sess *model.Session) error
	Delete(ctx context.Context) error
}

type IProviderCache interface {
	CreateCache(ctx context.Context, document string) (string, time.Time, error)
	DeleteCache(ctx context.Context, cacheID string) error
}

// SessionService owns the lifecycle of the loaded video: ingest on Load,
// teardown on Clear.
type SessionService struct {
	mu          sync.Mutex
	fetcher     ISubtitleFetcher
	transcripts ITranscriptStore
	history     IHistoryStore
	sessions    ISessionStore
	cache       IProviderCache
	chunkChars  int
	now         func() time.Time
}

func NewSessionService(
	fetcher ISubtitleFetcher,
	transcripts ITranscriptStore,
	history IHistoryStore,
	sessions ISessionStore,
	cache IProviderCache,
	chunkChars int,
) *SessionService {
	if chunkChars <= 0 {
		chunkChars = subtitle.DefaultChunkChars
	}
	return &SessionService{
		fetcher:     fetcher,
		transcripts: transcripts,
		history:     history,
		sessions:    sessions,
		cache:       cache,
		chunkChars:  chunkChars,
		now:         time.Now,
	}
}

// Load ingests a video's transcript. source is a video URL or a local .vtt
// file; for a file, videoURL optionally names the video it belongs to so
// answers can link into it.
func (s *SessionService) Load(ctx context.Context, source string, videoURL string) (*model.Session, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("video url or subtitle file is required: %w", appErr.ErrInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	logger := logutil.GetLogger(ctx).With(zap.String("source", source))

	vttPath, fetchedURL, err := s.resolve(ctx, source)
	if err != nil {
		return nil, err
	}
	if fetchedURL != "" {
		videoURL = fetchedURL
	}
	videoURL = strings.TrimSpace(videoURL)
	content, err := os.ReadFile(vttPath)
	if err != nil {
		return nil, fmt.Errorf("read subtitle file: %w", err)
	}
	segments := subtitle.ParseVTT(ctx, string(content))
	chunks := subtitle.Chunk(segments, s.chunkChars)
	if len(chunks) == 0 {
		return nil, appErr.ErrNoTranscript
	}
	if prev, err := s.sessions.Get(ctx); err == nil {
		s.deleteProviderCache(ctx, prev.CacheID)
		if prev.VideoURL != videoURL {
			if err := s.history.Clear(ctx); err != nil {
				return nil, fmt.Errorf("clear history: %w", err)
			}
		}
	}
	if err := s.transcripts.Clear(ctx); err != nil {
		return nil, err
	}
	if err := s.transcripts.AddChunks(ctx, chunks); err != nil {
		return nil, err
	}
	sess := &model.Session{
		ID:         uuid.NewString(),
		VideoURL:   videoURL,
		VideoID:    subtitle.ExtractVideoID(videoURL),
		ChunkCount: len(chunks),
		Ctime:      s.now().Unix(),
	}
	s.attachCache(ctx, sess)
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	logger.Info("video loaded",
		zap.String("session_id", sess.ID),
		zap.String("video_id", sess.VideoID),
		zap.Int("segments", len(segments)),
		zap.Int("chunks", len(chunks)),
		zap.Bool("provider_cache", sess.CacheID != ""),
	)
	return sess, nil
}

func (s *SessionService) resolve(ctx context.Context, source string) (string, string, error) {
	if strings.EqualFold(filepath.Ext(source), ".vtt") {
		if _, err := os.Stat(source); err != nil {
			return "", "", fmt.Errorf("subtitle file: %w", err)
		}
		return source, "", nil
	}
	if s.fetcher == nil {
		return "", "", fmt.Errorf("subtitle fetcher not configured")
	}
	path, err := s.fetcher.Fetch(ctx, source)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", appErr.ErrFetch, err)
	}
	return path, source, nil
}

// attachCache tries to pin the transcript in a provider cache. Ineligible
// documents silently run without one.
func (s *SessionService) attachCache(ctx context.Context, sess *model.Session) {
	if s.cache == nil {
		return
	}
	id, expires, err := s.cache.CreateCache(ctx, s.transcripts.Document())
	switch {
	case err == nil:
		sess.CacheID = id
		sess.CacheExpiresAt = expires.Unix()
	case errors.Is(err, ai.ErrCacheTooSmall), errors.Is(err, ai.ErrCacheUnsupported):
		logutil.GetLogger(ctx).Debug("provider cache skipped", zap.Error(err))
	default:
		logutil.GetLogger(ctx).Warn("provider cache creation failed, continuing without it", zap.Error(err))
	}
}

func (s *SessionService) deleteProviderCache(ctx context.Context, cacheID string) {
	if s.cache == nil || cacheID == "" {
		return
	}
	if err := s.cache.DeleteCache(ctx, cacheID); err != nil {
		logutil.GetLogger(ctx).Warn("delete provider cache failed", zap.String("cache_id", cacheID), zap.Error(err))
	}
}

// Current returns the loaded session or ErrNoSession.
func (s *SessionService) Current(ctx context.Context) (*model.Session, error) {
	sess, err := s.sessions.Get(ctx)
	if err != nil {
		return nil, err
	}
	if s.transcripts.Len() == 0 {
		return nil, appErr.ErrNoTranscript
	}
	return sess, nil
}

// Clear tears the session down: provider cache, both stores and the session record.
func (s *SessionService) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, err := s.sessions.Get(ctx); err == nil {
		s.deleteProviderCache(ctx, sess.CacheID)
	}
	if err := s.transcripts.Clear(ctx); err != nil {
		return fmt.Errorf("clear transcripts: %w", err)
	}
	if err := s.history.Clear(ctx); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	if err := s.sessions.Delete(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	logutil.GetLogger(ctx).Info("cache cleared")
	return nil
}

// DropCache forgets a provider cache id the provider no longer accepts and
// deletes it upstream, best effort.
func (s *SessionService) DropCache(ctx context.Context, cacheID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.sessions.Get(ctx)
	if err != nil {
		return err
	}
	if sess.CacheID != cacheID {
		return nil
	}
	sess.CacheID = ""
	sess.CacheExpiresAt = 0
	if err := s.sessions.Save(ctx, sess); err != nil {
		return err
	}
	s.deleteProviderCache(ctx, cacheID)
	return nil
}

// RefreshCache recreates the provider cache of a session close to expiry.
func (s *SessionService) RefreshCache(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.sessions.Get(ctx)
	if err != nil {
		if errors.Is(err, appErr.ErrNoSession) {
			return nil
		}
		return err
	}
	if sess.CacheID == "" {
		return nil
	}
	expires := time.Unix(sess.CacheExpiresAt, 0)
	if expires.Sub(s.now()) > cacheRefreshWindow {
		return nil
	}
	old := sess.CacheID
	sess.CacheID = ""
	sess.CacheExpiresAt = 0
	s.attachCache(ctx, sess)
	if err := s.sessions.Save(ctx, sess); err != nil {
		return err
	}
	s.deleteProviderCache(ctx, old)
	logutil.GetLogger(ctx).Info("provider cache refreshed",
		zap.String("old_cache_id", old), zap.String("cache_id", sess.CacheID))
	return nil
}
