// Command fodinha-server runs the multiplayer Fodinha server: HTTP endpoints
// for session and token bootstrap, a websocket endpoint for play, Postgres
// for durable session state and Redis for the action history (both
// optional in development).
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/milkymind/fodinha-arena/engine"
	"github.com/milkymind/fodinha-arena/internal/auth"
	"github.com/milkymind/fodinha-arena/internal/cache"
	"github.com/milkymind/fodinha-arena/internal/config"
	"github.com/milkymind/fodinha-arena/internal/gateway"
	"github.com/milkymind/fodinha-arena/internal/store"
	"github.com/milkymind/fodinha-arena/internal/ws"
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Durable store, or memory when no database is configured.
	var backing store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("connecting store: %v", err)
		}
		defer pg.Close()
		backing = pg
	} else {
		log.Warn("no DATABASE_URL set, sessions are held in memory only")
		backing = store.NewMemory()
	}
	sessions := store.NewCached(backing, cfg.CacheTTL)

	if cfg.RedisAddr != "" {
		if err := cache.InitRedis(ctx, cfg.RedisAddr, cfg.RedisPassword); err != nil {
			log.Warnf("action history disabled: %v", err)
		}
	} else {
		log.Info("no REDIS_ADDR set, action history disabled")
	}

	gw := gateway.New(sessions)
	hub := ws.NewHub()
	gw.Broadcast = hub.BroadcastState
	authSvc := auth.New(cfg.JWTSecret, cfg.TokenTTL)
	server := ws.NewServer(hub, gw, authSvc)

	reaper := store.NewReaper(sessions, cfg.SessionMaxAge, cfg.ReapInterval)
	reaper.OnEvict = func(sessionID string) {
		gw.Evict(sessionID)
		hub.EvictSession(sessionID)
		dropCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.DropHistory(dropCtx, sessionID); err != nil {
			log.Warnf("dropping history of %s: %v", sessionID, err)
		}
	}
	go reaper.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /api/token", issueToken(authSvc))
	mux.HandleFunc("POST /api/sessions", createSession(gw))
	mux.HandleFunc("GET /ws", server.HandleWS)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Infof("listening on %s", cfg.ListenAddr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server: %v", err)
	}
	log.Info("shut down")
}

// issueToken mints a guest identity. Clients send their existing player id
// to re-issue for the same identity, or nothing for a fresh one.
func issueToken(authSvc *auth.Service) http.HandlerFunc {
	type request struct {
		PlayerID string `json:"playerId"`
		Name     string `json:"name"`
	}
	type response struct {
		Token    string `json:"token"`
		PlayerID string `json:"playerId"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "malformed request body", http.StatusBadRequest)
			return
		}
		if req.Name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}
		playerID := uuid.Nil
		if req.PlayerID != "" {
			var err error
			if playerID, err = uuid.Parse(req.PlayerID); err != nil {
				http.Error(w, "malformed playerId", http.StatusBadRequest)
				return
			}
		}
		token, id, err := authSvc.IssueToken(playerID, req.Name)
		if err != nil {
			log.Errorf("issuing token: %v", err)
			http.Error(w, "could not issue token", http.StatusInternalServerError)
			return
		}
		writeJSON(w, response{Token: token, PlayerID: id.String()})
	}
}

// createSession opens a fresh lobby and returns its id and initial state.
func createSession(gw *gateway.Gateway) http.HandlerFunc {
	type request struct {
		Lives        int  `json:"lives"`
		StartFromMax bool `json:"startFromMax"`
	}
	type response struct {
		SessionID string            `json:"sessionId"`
		State     *engine.GameState `json:"state"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "malformed request body", http.StatusBadRequest)
				return
			}
		}
		state, err := gw.CreateSession(r.Context(), engine.Options{
			Lives:        req.Lives,
			StartFromMax: req.StartFromMax,
		})
		if err != nil {
			log.Errorf("creating session: %v", err)
			http.Error(w, "could not create session", http.StatusInternalServerError)
			return
		}
		writeJSON(w, response{SessionID: state.SessionID, State: state})
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("encoding response: %v", err)
	}
}
