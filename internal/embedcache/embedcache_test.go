package embedcache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/ytqa/internal/model"
	"github.com/xxxsen/ytqa/internal/repo"
)

type countingEmbedder struct {
	calls int
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (c *countingEmbedder) ModelName() string {
	return "test-model"
}

type brokenStore struct{}

func (brokenStore) Get(ctx context.Context, modelName, taskType, contentHash string) ([]float32, bool, error) {
	return nil, false, errors.New("disk gone")
}

func (brokenStore) Save(ctx context.Context, item *model.EmbeddingCache) error {
	return errors.New("disk gone")
}

func TestLRUEmbedder_MemoisesPerTextAndTask(t *testing.T) {
	next := &countingEmbedder{}
	e := WrapLruCacheToEmbedder(next, 10, time.Minute)
	ctx := context.Background()

	a, err := e.Embed(ctx, "hello", "query")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "hello", "query")
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Equal(t, 1, next.calls)

	_, err = e.Embed(ctx, "hello", "document")
	require.NoError(t, err)
	require.Equal(t, 2, next.calls)
	require.Equal(t, "test-model", e.ModelName())
}

func TestLRUEmbedder_ReturnsCopies(t *testing.T) {
	e := WrapLruCacheToEmbedder(&countingEmbedder{}, 10, time.Minute)
	ctx := context.Background()
	_, err := e.Embed(ctx, "x", "")
	require.NoError(t, err)
	first, err := e.Embed(ctx, "x", "")
	require.NoError(t, err)
	first[0] = 99
	second, err := e.Embed(ctx, "x", "")
	require.NoError(t, err)
	require.Equal(t, float32(1), second[0])
}

func TestLRUEmbedder_DisabledPassesThrough(t *testing.T) {
	next := &countingEmbedder{}
	require.Same(t, next, WrapLruCacheToEmbedder(next, 0, time.Minute))
}

func TestDBEmbedder_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	db, err := repo.OpenDB(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer db.Close()
	store := repo.NewEmbeddingCacheRepo(db)

	first := &countingEmbedder{}
	_, err = WrapDBCacheToEmbedder(first, store).Embed(ctx, "question", "query")
	require.NoError(t, err)
	require.Equal(t, 1, first.calls)

	second := &countingEmbedder{}
	got, err := WrapDBCacheToEmbedder(second, store).Embed(ctx, "question", "query")
	require.NoError(t, err)
	require.Equal(t, 0, second.calls)
	require.Equal(t, []float32{8, 1}, got)
}

func TestDBEmbedder_StoreFailureDegrades(t *testing.T) {
	next := &countingEmbedder{}
	got, err := WrapDBCacheToEmbedder(next, brokenStore{}).Embed(context.Background(), "abc", "")
	require.NoError(t, err)
	require.Equal(t, []float32{3, 1}, got)
	require.Equal(t, 1, next.calls)
}

func TestDBEmbedder_PropagatesEmbedError(t *testing.T) {
	boom := errors.New("boom")
	_, err := WrapDBCacheToEmbedder(&countingEmbedder{err: boom}, brokenStore{}).Embed(context.Background(), "abc", "")
	require.ErrorIs(t, err, boom)
}
