// Package cache maintains the Redis client and the per-session action
// history queue consumed by external tooling (replay, audit).
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Rdb is the shared Redis client. Nil when Redis is not configured; callers
// must treat a nil client as "history disabled".
var Rdb *redis.Client

// historyCap bounds each session's action list so an abandoned session
// cannot grow without limit.
const historyCap = 10000

// InitRedis connects the shared client and verifies the connection.
func InitRedis(ctx context.Context, addr, password string) error {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("cache: redis ping %s: %w", addr, err)
	}
	Rdb = client
	log.Infof("cache: connected to redis at %s", addr)
	return nil
}

// GameActionRecord is one accepted (or rejected) transition as appended to
// the session's history list. ActionIndex restores ordering downstream.
type GameActionRecord struct {
	SessionID   string                 `json:"sessionId"`
	ActionIndex int64                  `json:"actionIndex"`
	ActorID     string                 `json:"actorId"`
	ActionType  string                 `json:"actionType"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	Version     int64                  `json:"version"`
	Timestamp   int64                  `json:"timestamp"`
}

func historyKey(sessionID string) string {
	return "fodinha:actions:" + sessionID
}

// PublishGameAction appends one record to the session's history list,
// trimming the list to the cap. Callers fire this asynchronously with a
// short context timeout; a publish failure never blocks a transition.
func PublishGameAction(ctx context.Context, rec GameActionRecord) error {
	if Rdb == nil {
		return nil
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("cache: marshal action record: %w", err)
	}
	key := historyKey(rec.SessionID)
	pipe := Rdb.Pipeline()
	pipe.RPush(ctx, key, raw)
	pipe.LTrim(ctx, key, -historyCap, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache: publish action: %w", err)
	}
	return nil
}

// DropHistory removes a session's action list when the session is reaped.
func DropHistory(ctx context.Context, sessionID string) error {
	if Rdb == nil {
		return nil
	}
	return Rdb.Del(ctx, historyKey(sessionID)).Err()
}
