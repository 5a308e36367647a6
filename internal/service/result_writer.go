package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/ytqa/internal/filestore"
	"github.com/xxxsen/ytqa/internal/model"
	"github.com/xxxsen/ytqa/internal/report"
)

const latestResultsKey = "results.json"

type readSeekNopCloser struct {
	*bytes.Reader
}

func (readSeekNopCloser) Close() error { return nil }

// ResultWriter stores the outcome of each run in the file store: the latest
// run as results.json plus per-run JSON and HTML copies.
type ResultWriter struct {
	store filestore.Store
	now   func() time.Time
}

func NewResultWriter(store filestore.Store) *ResultWriter {
	return &ResultWriter{store: store, now: time.Now}
}

// Save writes results and returns the keys it wrote.
func (w *ResultWriter) Save(ctx context.Context, runID string, results []model.BatchResult) ([]string, error) {
	if results == nil {
		results = []model.BatchResult{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode results: %w", err)
	}
	runKey := "results-" + runID + ".json"
	for _, key := range []string{latestResultsKey, runKey} {
		if err := w.put(ctx, key, data); err != nil {
			return nil, err
		}
	}
	var page bytes.Buffer
	if err := report.RenderHTML(&page, "Run "+runID, w.now(), results); err != nil {
		return nil, err
	}
	htmlKey := "results-" + runID + ".html"
	if err := w.put(ctx, htmlKey, page.Bytes()); err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("results saved",
		zap.String("run_id", runID), zap.Int("count", len(results)), zap.String("store", w.store.Type()))
	return []string{latestResultsKey, runKey, htmlKey}, nil
}

func (w *ResultWriter) put(ctx context.Context, key string, data []byte) error {
	if err := w.store.Save(ctx, key, readSeekNopCloser{bytes.NewReader(data)}, int64(len(data))); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (w *ResultWriter) URL(key string) string {
	return w.store.URL(key)
}
