package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/ytqa/internal/config"
	"github.com/xxxsen/ytqa/internal/filestore"
	"github.com/xxxsen/ytqa/internal/model"
)

func TestResultWriter_Save(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "results")
	store, err := filestore.New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{"dir": dir}})
	require.NoError(t, err)
	w := NewResultWriter(store)

	results := []model.BatchResult{
		model.SuccessResult("q1", "a1 [00:00:01](https://youtu.be/x?t=1)", []string{"00:00:01"}),
		model.FailedResult("q2", errors.New("boom")),
	}
	keys, err := w.Save(ctx, "run1", results)
	require.NoError(t, err)
	require.Equal(t, []string{"results.json", "results-run1.json", "results-run1.html"}, keys)

	rc, err := store.Open(ctx, "results.json")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	var got []model.BatchResult
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, results, got)

	html, err := store.Open(ctx, "results-run1.html")
	require.NoError(t, err)
	defer html.Close()
	page, err := io.ReadAll(html)
	require.NoError(t, err)
	require.Contains(t, string(page), `href="https://youtu.be/x?t=1"`)
}
