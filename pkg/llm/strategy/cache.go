// Package strategy implements schema-complexity-driven generation strategy
// selection: a native constrained path, a prompt-engineered path with repair,
// an advisory per-schema success cache, and the selector that orders attempts.
package strategy

import (
	"sync"

	"github.com/pagepilot/pagepilot/pkg/types"
)

// Record tracks how strategies have fared for one schema shape.
type Record struct {
	// Preferred is the strategy that last succeeded, empty when unknown.
	Preferred types.StrategyKind

	// SuccessCount and FailureCount accumulate over the process lifetime.
	SuccessCount int
	FailureCount int
}

// Cache remembers, per schema fingerprint, which generation strategy worked
// last time. It is advisory only: entries are shared across concurrent tasks
// under last-writer-wins semantics, and a stale or wrong entry costs one
// wasted attempt, never incorrect output. There is no eviction; the set of
// schema shapes in a deployment is small and process-scoped.
type Cache struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewCache creates an empty strategy cache.
func NewCache() *Cache {
	return &Cache{records: make(map[string]Record)}
}

// Lookup returns the preferred strategy for a schema fingerprint, if one has
// been learned.
func (c *Cache) Lookup(hash string) (types.StrategyKind, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.records[hash]
	if !ok || rec.Preferred == "" {
		return "", false
	}
	return rec.Preferred, true
}

// Record updates the cache after an attempt. Success installs the strategy
// as preferred; failure of the currently preferred strategy clears the
// preference so the next request re-runs the full decision procedure.
func (c *Cache) Record(hash string, kind types.StrategyKind, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec := c.records[hash]
	if success {
		rec.Preferred = kind
		rec.SuccessCount++
	} else {
		rec.FailureCount++
		if rec.Preferred == kind {
			rec.Preferred = ""
		}
	}
	c.records[hash] = rec
}

// Stats returns the current record for a fingerprint, for diagnostics.
func (c *Cache) Stats(hash string) Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.records[hash]
}
