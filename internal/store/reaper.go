package store

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/milkymind/fodinha-arena/engine"
)

// Reaper periodically collects abandoned sessions: idle lobbies nobody will
// come back to and terminated games past their display window. In-progress
// sessions are left alone no matter how idle they look; a reconnect must
// always find them.
type Reaper struct {
	store    Store
	maxAge   time.Duration
	interval time.Duration

	// OnEvict, when set, is told about every deleted session so the gateway
	// and websocket layers can drop their in-memory side of it.
	OnEvict func(sessionID string)
}

func NewReaper(s Store, maxAge, interval time.Duration) *Reaper {
	return &Reaper{store: s, maxAge: maxAge, interval: interval}
}

// Run blocks, sweeping on the configured interval until ctx is done.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep performs one collection pass. Exported so tests drive it directly.
func (r *Reaper) Sweep(ctx context.Context) {
	ids, err := r.store.Stale(ctx, r.maxAge)
	if err != nil {
		log.Errorf("reaper: listing stale sessions: %v", err)
		return
	}
	for _, id := range ids {
		state, err := r.store.Load(ctx, id)
		if err != nil {
			if err != ErrNotFound {
				log.Errorf("reaper: loading session %s: %v", id, err)
			}
			continue
		}
		if state.Phase != engine.PhaseLobby && state.Phase != engine.PhaseTerminated {
			continue
		}
		if err := r.store.Delete(ctx, id); err != nil {
			log.Errorf("reaper: deleting session %s: %v", id, err)
			continue
		}
		log.Infof("reaper: collected %s session %s (idle > %s)", state.Phase, id, r.maxAge)
		if r.OnEvict != nil {
			r.OnEvict(id)
		}
	}
}
