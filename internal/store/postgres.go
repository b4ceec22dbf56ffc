package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/milkymind/fodinha-arena/engine"
)

// Postgres keeps one row per session: the full state as jsonb plus the
// version and last-write timestamp used for CAS and reaping.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects a pool and ensures the schema exists.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: connecting postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: pinging postgres: %w", err)
	}
	p := &Postgres{pool: pool}
	if err := p.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info("store: postgres ready")
	return p, nil
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS game_sessions (
			id           text PRIMARY KEY,
			state        jsonb NOT NULL,
			version      bigint NOT NULL,
			last_updated timestamptz NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("store: ensuring schema: %w", err)
	}
	return nil
}

func (p *Postgres) Close() { p.pool.Close() }

func (p *Postgres) Load(ctx context.Context, sessionID string) (*engine.GameState, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx,
		`SELECT state FROM game_sessions WHERE id = $1`, sessionID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: loading session %s: %w", sessionID, err)
	}
	var state engine.GameState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("store: decoding session %s: %w", sessionID, err)
	}
	return &state, nil
}

func (p *Postgres) Save(ctx context.Context, state *engine.GameState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("store: encoding session %s: %w", state.SessionID, err)
	}
	// Insert for a brand-new session, otherwise CAS against version-1. A
	// conflicting concurrent write leaves zero rows affected.
	tag, err := p.pool.Exec(ctx, `
		INSERT INTO game_sessions (id, state, version, last_updated)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE
		SET state = excluded.state, version = excluded.version, last_updated = now()
		WHERE game_sessions.version = excluded.version - 1`,
		state.SessionID, raw, state.Version)
	if err != nil {
		return fmt.Errorf("store: saving session %s: %w", state.SessionID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, sessionID string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM game_sessions WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("store: deleting session %s: %w", sessionID, err)
	}
	return nil
}

func (p *Postgres) Stale(ctx context.Context, maxAge time.Duration) ([]string, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id FROM game_sessions WHERE last_updated < now() - $1::interval`,
		fmt.Sprintf("%d seconds", int(maxAge.Seconds())))
	if err != nil {
		return nil, fmt.Errorf("store: listing stale sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scanning stale session: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
