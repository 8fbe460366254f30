package corpus

import (
	"context"
	"fmt"
	"sync"
)

// Loader produces a full corpus snapshot from the backing store.
type Loader interface {
	List(ctx context.Context) ([]Candidate, error)
	LatestUpdatedAt(ctx context.Context) (string, error)
}

// Cache holds the process-wide, read-only corpus snapshot.
// The snapshot is loaded lazily on first access and never mutated in
// place; Reload swaps in a fresh snapshot for corpus version upgrades.
type Cache struct {
	loader Loader

	mu   sync.RWMutex
	snap *Snapshot
}

// NewCache creates a Cache over the given loader.
func NewCache(loader Loader) *Cache {
	return &Cache{loader: loader}
}

// Snapshot returns the cached corpus, loading it on first use.
func (c *Cache) Snapshot(ctx context.Context) (*Snapshot, error) {
	c.mu.RLock()
	snap := c.snap
	c.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}
	return c.Reload(ctx)
}

// Reload replaces the cached snapshot with a fresh load from the store.
func (c *Cache) Reload(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	candidates, err := c.loader.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}
	version, err := c.loader.LatestUpdatedAt(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus version: %w", err)
	}

	c.snap = &Snapshot{Version: version, Candidates: candidates}
	return c.snap, nil
}
