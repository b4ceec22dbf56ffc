package store

import (
	"context"
	"sync"
	"time"

	"github.com/milkymind/fodinha-arena/engine"
)

// DefaultCacheTTL bounds how stale a cached read may be.
const DefaultCacheTTL = 30 * time.Second

// Cached fronts a Store with a short TTL read cache. Entries are refreshed
// on every successful save, so a session's own gateway always reads back at
// least the version it last wrote; the TTL only bounds staleness for reads
// that bypass the write path.
type Cached struct {
	inner Store
	ttl   time.Duration

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	state   *engine.GameState
	fetched time.Time
}

func NewCached(inner Store, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{
		inner:   inner,
		ttl:     ttl,
		entries: make(map[string]*cacheEntry),
	}
}

func (c *Cached) Load(ctx context.Context, sessionID string) (*engine.GameState, error) {
	c.mu.Lock()
	if e, ok := c.entries[sessionID]; ok && time.Since(e.fetched) < c.ttl {
		state := e.state.Clone()
		c.mu.Unlock()
		return state, nil
	}
	c.mu.Unlock()

	state, err := c.inner.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	c.put(state)
	return state.Clone(), nil
}

func (c *Cached) Save(ctx context.Context, state *engine.GameState) error {
	if err := c.inner.Save(ctx, state); err != nil {
		return err
	}
	c.put(state)
	return nil
}

// put installs state unless the cache already holds something newer: a slow
// loader must never roll the cache back behind an acknowledged write.
func (c *Cached) put(state *engine.GameState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[state.SessionID]; ok && e.state.Version > state.Version {
		return
	}
	c.entries[state.SessionID] = &cacheEntry{state: state.Clone(), fetched: time.Now()}
}

func (c *Cached) Delete(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	delete(c.entries, sessionID)
	c.mu.Unlock()
	return c.inner.Delete(ctx, sessionID)
}

func (c *Cached) Stale(ctx context.Context, maxAge time.Duration) ([]string, error) {
	return c.inner.Stale(ctx, maxAge)
}
