package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/ytqa/internal/ai"
	"github.com/xxxsen/ytqa/internal/answer"
	appErr "github.com/xxxsen/ytqa/internal/pkg/errors"
	"github.com/xxxsen/ytqa/internal/repo"
	"github.com/xxxsen/ytqa/internal/retrieval"
)

const sampleVTT = `WEBVTT
Kind: captions
Language: en

00:00:01.000 --> 00:00:04.000
hello and welcome

00:00:04.000 --> 00:00:08.000 align:start position:0%
today we cover caching
`

type stubFetcher struct {
	path string
	err  error
	urls []string
}

func (f *stubFetcher) Fetch(ctx context.Context, videoURL string) (string, error) {
	f.urls = append(f.urls, videoURL)
	return f.path, f.err
}

type stubProviderCache struct {
	createErr error
	created   int
	deleted   []string
}

func (c *stubProviderCache) CreateCache(ctx context.Context, document string) (string, time.Time, error) {
	if c.createErr != nil {
		return "", time.Time{}, c.createErr
	}
	c.created++
	return "cachedContents/" + string(rune('0'+c.created)), time.Now().Add(time.Hour), nil
}

func (c *stubProviderCache) DeleteCache(ctx context.Context, cacheID string) error {
	c.deleted = append(c.deleted, cacheID)
	return nil
}

func newSessionFixture(t *testing.T, fetcher ISubtitleFetcher, pc IProviderCache) (*SessionService, *repo.Cache, string) {
	ctx := context.Background()
	dir := t.TempDir()
	cache, err := repo.OpenCache(ctx, filepath.Join(dir, "cache"))
	require.NoError(t, err)
	vtt := filepath.Join(dir, "transcript.en.vtt")
	require.NoError(t, os.WriteFile(vtt, []byte(sampleVTT), 0o644))
	svc := NewSessionService(fetcher, cache.Transcripts, cache.History, cache.Sessions, pc, 8000)
	return svc, cache, vtt
}

func TestSessionLoad_FromURL(t *testing.T) {
	fetcher := &stubFetcher{}
	pc := &stubProviderCache{}
	svc, cache, vtt := newSessionFixture(t, fetcher, pc)
	fetcher.path = vtt

	sess, err := svc.Load(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "")
	require.NoError(t, err)
	require.Equal(t, "dQw4w9WgXcQ", sess.VideoID)
	require.Equal(t, "cachedContents/1", sess.CacheID)
	require.NotEmpty(t, sess.ID)
	require.Equal(t, 1, sess.ChunkCount)
	require.Equal(t, 1, cache.Transcripts.Len())

	cur, err := svc.Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, sess, cur)
}

func TestSessionLoad_LocalFileWithoutCache(t *testing.T) {
	pc := &stubProviderCache{createErr: ai.ErrCacheTooSmall}
	svc, _, vtt := newSessionFixture(t, nil, pc)
	sess, err := svc.Load(context.Background(), vtt, "https://youtu.be/abcdefghijk")
	require.NoError(t, err)
	require.Empty(t, sess.CacheID)
	require.Equal(t, "abcdefghijk", sess.VideoID)
}

func TestSessionLoad_Errors(t *testing.T) {
	svc, _, _ := newSessionFixture(t, &stubFetcher{err: errors.New("yt-dlp missing")}, nil)
	_, err := svc.Load(context.Background(), "", "")
	require.ErrorIs(t, err, appErr.ErrInvalid)
	_, err = svc.Load(context.Background(), "https://youtu.be/x", "")
	require.ErrorIs(t, err, appErr.ErrFetch)

	empty := filepath.Join(t.TempDir(), "empty.vtt")
	require.NoError(t, os.WriteFile(empty, []byte("WEBVTT\n\n"), 0o644))
	_, err = svc.Load(context.Background(), empty, "")
	require.ErrorIs(t, err, appErr.ErrNoTranscript)
}

func TestSessionClear(t *testing.T) {
	pc := &stubProviderCache{}
	svc, cache, vtt := newSessionFixture(t, nil, pc)
	ctx := context.Background()
	sess, err := svc.Load(ctx, vtt, "")
	require.NoError(t, err)
	_, err = cache.History.Add(ctx, "q", "a", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx))
	require.Equal(t, []string{sess.CacheID}, pc.deleted)
	require.Equal(t, 0, cache.Transcripts.Len())
	require.Equal(t, 0, cache.History.Len())
	_, err = svc.Current(ctx)
	require.ErrorIs(t, err, appErr.ErrNoSession)
}

func TestSessionDropCache(t *testing.T) {
	pc := &stubProviderCache{}
	svc, cache, vtt := newSessionFixture(t, nil, pc)
	ctx := context.Background()
	sess, err := svc.Load(ctx, vtt, "")
	require.NoError(t, err)

	require.NoError(t, svc.DropCache(ctx, "someone-else"))
	got, err := cache.Sessions.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, sess.CacheID, got.CacheID)

	require.Empty(t, pc.deleted)

	require.NoError(t, svc.DropCache(ctx, sess.CacheID))
	got, err = cache.Sessions.Get(ctx)
	require.NoError(t, err)
	require.Empty(t, got.CacheID)
	require.Equal(t, []string{sess.CacheID}, pc.deleted)
}

func TestSessionRefreshCache(t *testing.T) {
	pc := &stubProviderCache{}
	svc, cache, vtt := newSessionFixture(t, nil, pc)
	ctx := context.Background()
	sess, err := svc.Load(ctx, vtt, "")
	require.NoError(t, err)

	require.NoError(t, svc.RefreshCache(ctx))
	require.Equal(t, 1, pc.created)

	svc.now = func() time.Time { return time.Unix(sess.CacheExpiresAt, 0).Add(-time.Minute) }
	require.NoError(t, svc.RefreshCache(ctx))
	require.Equal(t, 2, pc.created)
	require.Equal(t, []string{"cachedContents/1"}, pc.deleted)
	got, err := cache.Sessions.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "cachedContents/2", got.CacheID)
}

func TestSessionRefreshCache_NoSession(t *testing.T) {
	svc, _, _ := newSessionFixture(t, nil, &stubProviderCache{})
	require.NoError(t, svc.RefreshCache(context.Background()))
}

func TestSessionLoad_NewVideoResetsHistory(t *testing.T) {
	svc, cache, vtt := newSessionFixture(t, nil, nil)
	ctx := context.Background()
	_, err := svc.Load(ctx, vtt, "https://youtu.be/aaaaaaaaaaa")
	require.NoError(t, err)
	_, err = cache.History.Add(ctx, "q", "a", nil)
	require.NoError(t, err)

	_, err = svc.Load(ctx, vtt, "https://youtu.be/aaaaaaaaaaa")
	require.NoError(t, err)
	require.Equal(t, 1, cache.History.Len())

	_, err = svc.Load(ctx, vtt, "https://youtu.be/bbbbbbbbbbb")
	require.NoError(t, err)
	require.Equal(t, 0, cache.History.Len())
}


func longVTT(cues int) string {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")
	for i := 0; i < cues; i++ {
		start := time.Duration(i*2) * time.Second
		end := start + 2*time.Second
		fmt.Fprintf(&sb, "%s --> %s\n", vttTime(start), vttTime(end))
		fmt.Fprintf(&sb, "cue number %04d talks about distributed caches and retries\n\n", i)
	}
	return sb.String()
}

func vttTime(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d:%02d.000", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
}

func TestSessionLoad_DefaultChunksFitDefaultContext(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cache, err := repo.OpenCache(ctx, filepath.Join(dir, "cache"))
	require.NoError(t, err)
	vtt := filepath.Join(dir, "long.en.vtt")
	require.NoError(t, os.WriteFile(vtt, []byte(longVTT(400)), 0o644))

	sessions := NewSessionService(nil, cache.Transcripts, cache.History, cache.Sessions, nil, 0)
	sess, err := sessions.Load(ctx, vtt, "")
	require.NoError(t, err)
	require.Greater(t, sess.ChunkCount, 1)

	m := &scriptedModel{}
	qa := NewQAService(
		m,
		retrieval.NewRanker(nil, nil, retrieval.DefaultConfig()),
		cache.Transcripts,
		cache.History,
		answer.NewProcessor(answer.DefaultPhrases(), cache.History, ""),
		sessions,
		NewLimiter(6000),
		QAConfig{},
	)
	res := qa.Ask(ctx, sess, "what is discussed")
	require.True(t, res.Success, res.Error)
	p := m.promptFor("what is discussed")
	require.Contains(t, p, "Video Transcript:\n[00:00:00.000 - ")
	require.Contains(t, p, "cue number 0000 talks about distributed caches")
}
