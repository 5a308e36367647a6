package ai

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// DefaultCacheModels are known to accept provider-side cached content.
var DefaultCacheModels = []string{
	"gemini-1.5-flash-001",
	"gemini-1.5-pro-001",
}

// CapabilityTable answers "does this model support cached content" by plain
// lookup. Unknown models report false.
type CapabilityTable struct {
	mu    sync.RWMutex
	cache map[string]bool
}

func NewCapabilityTable(models []string) *CapabilityTable {
	t := &CapabilityTable{cache: make(map[string]bool)}
	t.add(DefaultCacheModels)
	t.add(models)
	return t
}

func (t *CapabilityTable) add(models []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, m := range models {
		key := normalizeModel(m)
		if key == "" {
			continue
		}
		t.cache[key] = true
	}
}

// Probe merges the models reported by the provider into the table. Models
// already listed keep their entry even if the probe fails.
func (t *CapabilityTable) Probe(ctx context.Context, lister IModelLister) error {
	if lister == nil {
		return nil
	}
	models, err := lister.CacheCapableModels(ctx)
	t.add(models)
	return err
}

func (t *CapabilityTable) SupportsCache(model string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cache[normalizeModel(model)]
}

func (t *CapabilityTable) CacheModels() []string {
	t.mu.RLock()
	out := make([]string, 0, len(t.cache))
	for m, ok := range t.cache {
		if ok {
			out = append(out, m)
		}
	}
	t.mu.RUnlock()
	sort.Strings(out)
	return out
}

func normalizeModel(model string) string {
	return strings.TrimPrefix(strings.TrimSpace(model), geminiModelPrefix)
}
