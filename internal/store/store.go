// Package store persists session state. The durable implementation is
// Postgres (one jsonb row per session); Memory backs tests and single-node
// development, and Cached fronts either with a short TTL read cache.
//
// Writes are optimistic: Save succeeds only when the stored version is
// exactly one behind the state being written, so two gateways (or a gateway
// racing a reaper) can never silently overwrite each other.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/milkymind/fodinha-arena/engine"
)

var (
	ErrNotFound = errors.New("store: session not found")
	// ErrVersionConflict reports a compare-and-swap failure: the stored
	// version is not state.Version-1. The caller reloads and retries.
	ErrVersionConflict = errors.New("store: version conflict")
)

// Store is the persistence boundary for session state.
type Store interface {
	// Load returns the session state. The returned value is owned by the
	// caller; implementations never hand out shared mutable state.
	Load(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Save writes state if the stored version is state.Version-1 (or the
	// session is new and state.Version is 0). Returns ErrVersionConflict
	// otherwise.
	Save(ctx context.Context, state *engine.GameState) error

	Delete(ctx context.Context, sessionID string) error

	// Stale lists sessions not written to for at least maxAge, for the
	// reaper.
	Stale(ctx context.Context, maxAge time.Duration) ([]string, error)
}
