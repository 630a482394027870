package provider

import (
	"sync"
	"time"

	"github.com/howard-nolan/hive/internal/types"
)

// catalogTTL is the freshness window for a cached model catalog, matching
// the Rust providers' CACHE_TTL constant (5 minutes) exactly.
const catalogTTL = 300 * time.Second

// catalogCache is a mutex-guarded, TTL-bounded cache of a provider's model
// list. Each provider adapter embeds one instance — unlike the original's
// package-level `static CACHE: Mutex<...>` per provider module, this keeps
// the cache scoped to the provider instance so multiple configured
// credentials for the same backend don't share (and corrupt) one cache.
type catalogCache struct {
	mu        sync.Mutex
	models    []types.ModelInfo
	fetchedAt time.Time
}

// get returns the cached models if they're non-empty and younger than
// catalogTTL, else (nil, false).
func (c *catalogCache) get() ([]types.ModelInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.models) == 0 || c.fetchedAt.IsZero() {
		return nil, false
	}
	if time.Since(c.fetchedAt) >= catalogTTL {
		return nil, false
	}
	return c.models, true
}

// set stores a freshly fetched catalog and resets the TTL clock.
func (c *catalogCache) set(models []types.ModelInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models = models
	c.fetchedAt = time.Now()
}

// invalidate clears the cache, forcing the next ListModels call to hit the
// network. Called when a provider's API key changes.
func (c *catalogCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models = nil
	c.fetchedAt = time.Time{}
}
