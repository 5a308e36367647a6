package ai

import (
	"context"
	"errors"
	"strings"
	"time"
)

type fakeGenerator struct {
	model  string
	reply  string
	err    error
	calls  int
	lastOp GenerateOptions
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	f.calls++
	f.lastOp = opts
	return f.reply, f.err
}

func (f *fakeGenerator) ModelName() string {
	return f.model
}

type fakeCacher struct {
	created []string
	deleted []string
	err     error
}

func (f *fakeCacher) CreateCache(ctx context.Context, model string, document string, ttl time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.created = append(f.created, model)
	return "cachedContents/" + model, nil
}

func (f *fakeCacher) DeleteCache(ctx context.Context, cacheID string) error {
	f.deleted = append(f.deleted, cacheID)
	return nil
}

type fakeLister struct {
	models []string
	err    error
}

func (f *fakeLister) CacheCapableModels(ctx context.Context) ([]string, error) {
	return f.models, f.err
}

var errBoom = errors.New("boom")

func bigDocument(tokens int) string {
	return strings.Repeat("abcd", tokens)
}
