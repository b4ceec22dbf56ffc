package store

import (
	"context"
	"sync"
	"time"

	"github.com/milkymind/fodinha-arena/engine"
)

// Memory is an in-process Store with the same CAS semantics as Postgres.
// It backs tests and DATABASE_URL-less development runs.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry

	// now is swappable so reaper tests can age entries without sleeping.
	now func() time.Time
}

type memoryEntry struct {
	state       *engine.GameState
	lastUpdated time.Time
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

func (m *Memory) Load(_ context.Context, sessionID string) (*engine.GameState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return e.state.Clone(), nil
}

func (m *Memory) Save(_ context.Context, state *engine.GameState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[state.SessionID]; ok && e.state.Version != state.Version-1 {
		return ErrVersionConflict
	}
	m.entries[state.SessionID] = &memoryEntry{
		state:       state.Clone(),
		lastUpdated: m.now(),
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, sessionID)
	return nil
}

func (m *Memory) Stale(_ context.Context, maxAge time.Duration) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-maxAge)
	var ids []string
	for id, e := range m.entries {
		if e.lastUpdated.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
