package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/milkymind/fodinha-arena/engine"
	"github.com/milkymind/fodinha-arena/internal/auth"
	"github.com/milkymind/fodinha-arena/internal/gateway"
	"github.com/milkymind/fodinha-arena/internal/models"
)

const (
	// heartbeatInterval is how often the server pings each connection.
	heartbeatInterval = 30 * time.Second
	// disconnectGrace is how long a player may be without any connection
	// before the session is told they are gone. Reconnects inside the
	// grace are invisible to the other players.
	disconnectGrace = 30 * time.Second

	// Per-connection action budget: sustained 2 actions/second with burst
	// headroom for reconnect replays.
	actionsPerSecond = 2
	actionBurst      = 25
)

// Server terminates websocket connections and bridges them to the gateway
// and hub.
type Server struct {
	Hub     *Hub
	Gateway *gateway.Gateway
	Auth    *auth.Service

	// grace and heartbeatEvery default to the package constants; tests
	// shrink them.
	grace          time.Duration
	heartbeatEvery time.Duration

	mu       sync.Mutex
	presence map[string]map[string]*presenceEntry // session -> player
}

type presenceEntry struct {
	conns      int
	graceTimer *time.Timer
}

func NewServer(hub *Hub, gw *gateway.Gateway, authSvc *auth.Service) *Server {
	s := &Server{
		Hub:            hub,
		Gateway:        gw,
		Auth:           authSvc,
		grace:          disconnectGrace,
		heartbeatEvery: heartbeatInterval,
		presence:       make(map[string]map[string]*presenceEntry),
	}
	hub.OnGone = s.connectionGone
	return s
}

// HandleWS is the websocket endpoint: ?session=<id>&token=<jwt>. The token
// carries the stable player identity; the connection joins the session (or
// reconnects to it), receives an immediate snapshot, and then exchanges
// actions and state pushes until either side closes.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	token := r.URL.Query().Get("token")
	if sessionID == "" || token == "" {
		http.Error(w, "session and token are required", http.StatusBadRequest)
		return
	}
	playerID, name, err := s.Auth.ParseToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Warnf("ws: accept failed: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Join (or reconnect). A full lobby or an in-progress game rejects the
	// stranger before any subscription exists.
	res := s.Gateway.Apply(ctx, sessionID, models.Action{
		ActionID: uuid.NewString(),
		Type:     models.ActionJoin,
		PlayerID: playerID.String(),
		Name:     name,
	})
	if res.Err != nil {
		msg := marshal(ServerMessage{Type: MsgError, Kind: engine.KindOf(res.Err), Message: res.Err.Error()})
		_ = conn.Write(ctx, websocket.MessageText, msg)
		conn.Close(websocket.StatusPolicyViolation, string(engine.KindOf(res.Err)))
		return
	}

	sub := s.Hub.Subscribe(sessionID, playerID.String(), func(ctx context.Context, data []byte) error {
		return conn.Write(ctx, websocket.MessageText, data)
	})
	defer s.Hub.Unsubscribe(sub)
	s.connectionArrived(sub)

	s.Hub.SendSnapshot(sub, res.State)

	go s.heartbeat(ctx, conn.Ping, cancel)
	s.readLoop(ctx, conn, sub)
	conn.Close(websocket.StatusNormalClosure, "")
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, sub *Subscriber) {
	limiter := rate.NewLimiter(actionsPerSecond, actionBurst)
	for {
		select {
		case <-sub.Done():
			return
		default:
		}

		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		s.handleMessage(ctx, sub, limiter, data)
	}
}

// handleMessage processes one inbound frame: decode, rate check, then
// either a snapshot pull or an action through the gateway.
func (s *Server) handleMessage(ctx context.Context, sub *Subscriber, limiter *rate.Limiter, data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.Hub.Send(sub, ServerMessage{Type: MsgError, Kind: engine.KindInternal, Message: "malformed message"})
		return
	}
	if !limiter.Allow() {
		s.Hub.Send(sub, ServerMessage{
			Type:     MsgError,
			ActionID: msg.ActionID,
			Kind:     engine.KindRateLimited,
			Message:  "too many actions, slow down",
		})
		return
	}

	if msg.Type == MsgRequestState {
		state, err := s.Gateway.Snapshot(ctx, sub.SessionID)
		if err != nil {
			s.Hub.Send(sub, ServerMessage{Type: MsgError, Kind: engine.KindOf(err), Message: err.Error()})
			return
		}
		s.Hub.SendSnapshot(sub, state)
		return
	}

	action := msg.Action
	action.Type = models.ActionType(msg.Type)
	action.PlayerID = sub.PlayerID
	if action.ActionID == "" {
		action.ActionID = uuid.NewString()
	}

	// Let the other players render the intent while the transition is
	// validated; the following state_changed supersedes it either way.
	tentative := action.Type == models.ActionMakeBet || action.Type == models.ActionPlayCard
	if tentative {
		s.Hub.BroadcastTentative(sub.SessionID, action)
	}

	res := s.Gateway.Apply(ctx, sub.SessionID, action)
	if res.Err != nil && tentative && res.State != nil {
		// A rejection produces no state_changed of its own, which would
		// leave the preview dangling on the other clients. Re-push the
		// authoritative snapshot; same version, so they drop the preview
		// and keep what they had.
		s.Hub.BroadcastState(sub.SessionID, res.State)
	}

	reply := ServerMessage{
		Type:     MsgResult,
		ActionID: action.ActionID,
		Replayed: res.Replayed,
	}
	if res.Err != nil {
		reply.Type = MsgError
		reply.Kind = engine.KindOf(res.Err)
		reply.Message = res.Err.Error()
	} else if res.State != nil {
		reply.Version = res.State.Version
	}
	s.Hub.Send(sub, reply)
}

// heartbeat pings until the connection stops answering, then cancels the
// connection context so the read loop unblocks.
func (s *Server) heartbeat(ctx context.Context, ping func(context.Context) error, cancel context.CancelFunc) {
	ticker := time.NewTicker(s.heartbeatEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
			err := ping(pingCtx)
			pingCancel()
			if err != nil {
				cancel()
				return
			}
		}
	}
}

// connectionArrived updates presence; the first connection of a player
// (or a reconnect inside the grace window) flips them to connected.
func (s *Server) connectionArrived(sub *Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	players, ok := s.presence[sub.SessionID]
	if !ok {
		players = make(map[string]*presenceEntry)
		s.presence[sub.SessionID] = players
	}
	e, ok := players[sub.PlayerID]
	if !ok {
		e = &presenceEntry{}
		players[sub.PlayerID] = e
	}
	// A pending grace timer means the player still counts as connected: a
	// reconnect inside the window is invisible to the other players.
	wasGone := e.conns == 0 && e.graceTimer == nil
	if e.graceTimer != nil {
		e.graceTimer.Stop()
		e.graceTimer = nil
	}
	e.conns++
	if wasGone {
		go s.Hub.BroadcastPresence(sub.SessionID, sub.PlayerID, true)
	}
}

// connectionGone starts the disconnect grace; only if no connection for the
// player returns in time is the session told they left.
func (s *Server) connectionGone(sub *Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	players := s.presence[sub.SessionID]
	if players == nil {
		return
	}
	e := players[sub.PlayerID]
	if e == nil {
		return
	}
	e.conns--
	if e.conns > 0 {
		return
	}
	sessionID, playerID := sub.SessionID, sub.PlayerID
	e.graceTimer = time.AfterFunc(s.grace, func() {
		s.mu.Lock()
		if e := s.presence[sessionID][playerID]; e == nil || e.conns > 0 {
			s.mu.Unlock()
			return
		}
		delete(s.presence[sessionID], playerID)
		if len(s.presence[sessionID]) == 0 {
			delete(s.presence, sessionID)
		}
		s.mu.Unlock()
		s.Hub.BroadcastPresence(sessionID, playerID, false)
	})
}
