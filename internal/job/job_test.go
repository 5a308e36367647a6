package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/ytqa/internal/model"
)

type fakePruner struct {
	cutoff int64
}

func (f *fakePruner) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	f.cutoff = cutoff
	return 2, nil
}

func TestEmbeddingCacheCleanupJob(t *testing.T) {
	p := &fakePruner{}
	j := NewEmbeddingCacheCleanupJob(p, 0)
	now := time.Unix(100*24*3600, 0)
	j.now = func() time.Time { return now }
	require.NoError(t, j.Run(context.Background()))
	require.Equal(t, now.Add(-30*24*time.Hour).Unix(), p.cutoff)
	require.Equal(t, "embedding_cache_cleanup", j.Name())
}

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) RefreshCache(ctx context.Context) error {
	f.calls++
	return f.err
}

func TestProviderCacheRefreshJob(t *testing.T) {
	r := &fakeRefresher{err: errors.New("x")}
	require.Error(t, NewProviderCacheRefreshJob(r).Run(context.Background()))
	require.Equal(t, 1, r.calls)
	require.NoError(t, NewProviderCacheRefreshJob(nil).Run(context.Background()))
}

type staticHistory []model.QAPair

func (s staticHistory) List() []model.QAPair { return s }

type countingBackfiller struct {
	seen int
}

func (c *countingBackfiller) Backfill(ctx context.Context, history []model.QAPair) (int, error) {
	c.seen = len(history)
	return len(history), nil
}

func TestHistoryEmbeddingJob(t *testing.T) {
	b := &countingBackfiller{}
	j := NewHistoryEmbeddingJob(staticHistory{{Question: "a"}, {Question: "b"}}, b)
	require.NoError(t, j.Run(context.Background()))
	require.Equal(t, 2, b.seen)
}
