// Package gateway is the single entry point for session transitions. Every
// mutation of a session's state, whether it comes from a websocket message
// or an internal timer, flows through Apply and is serialized by that
// session's worker goroutine, so the engine never sees concurrent writers.
package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/milkymind/fodinha-arena/engine"
	"github.com/milkymind/fodinha-arena/internal/cache"
	"github.com/milkymind/fodinha-arena/internal/models"
	"github.com/milkymind/fodinha-arena/internal/store"
)

const (
	// idempotencyTTL is how long an action's outcome is replayable by its
	// ActionID.
	idempotencyTTL = 2 * time.Minute
	// fingerprintWindow absorbs rapid duplicates that arrive under fresh
	// ActionIDs (double-click, double-tap retries).
	fingerprintWindow = 3 * time.Second
)

// Result is the outcome of one Apply call. State is the post-transition
// snapshot on success (or the unchanged snapshot on a replay); it is always
// a private copy the caller may keep.
type Result struct {
	State    *engine.GameState
	Err      error
	Replayed bool
}

// Gateway owns the per-session workers and the write path to the store.
type Gateway struct {
	store store.Store

	// Broadcast is invoked after every accepted transition, from the
	// session's worker, in version order. Wired to the websocket hub.
	Broadcast func(sessionID string, state *engine.GameState)

	// SettleDelay is how long a resolved trick stays on display before the
	// next trick opens. Tests shrink it.
	SettleDelay time.Duration

	mu       sync.Mutex
	sessions map[string]*session
}

func New(s store.Store) *Gateway {
	return &Gateway{
		store:       s,
		SettleDelay: engine.SettleDelayMillis * time.Millisecond,
		sessions:    make(map[string]*session),
	}
}

// CreateSession makes a new lobby and returns its initial state.
func (gw *Gateway) CreateSession(ctx context.Context, opts engine.Options) (*engine.GameState, error) {
	id := uuid.NewString()
	state := engine.NewGame(id, uint64(time.Now().UnixNano()), opts)
	if err := gw.store.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("gateway: creating session: %w", err)
	}
	log.Infof("gateway: created session %s (lives=%d startFromMax=%v)", id, state.StartingLives, state.StartFromMax)
	return state.Clone(), nil
}

// Apply submits one action to the session's worker and waits for the
// outcome. Safe for concurrent use from any goroutine.
func (gw *Gateway) Apply(ctx context.Context, sessionID string, action models.Action) Result {
	s := gw.session(sessionID)
	env := envelope{action: action, reply: make(chan Result, 1)}
	select {
	case s.inbox <- env:
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	case <-s.done:
		return Result{Err: &engine.RuleError{Kind: engine.KindGameNotFound, Message: "session is gone"}}
	}
	select {
	case res := <-env.reply:
		return res
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	}
}

// Snapshot returns the current state without applying anything. Used by the
// sync layer for reconnect replay and request_state pulls.
func (gw *Gateway) Snapshot(ctx context.Context, sessionID string) (*engine.GameState, error) {
	state, err := gw.store.Load(ctx, sessionID)
	if err == store.ErrNotFound {
		return nil, &engine.RuleError{Kind: engine.KindGameNotFound, Message: "no such session"}
	}
	return state, err
}

// Evict tears down a session's worker. Called by the reaper after it has
// deleted the session from the store.
func (gw *Gateway) Evict(sessionID string) {
	gw.mu.Lock()
	s, ok := gw.sessions[sessionID]
	if ok {
		delete(gw.sessions, sessionID)
	}
	gw.mu.Unlock()
	if ok {
		close(s.done)
	}
}

// session returns the worker for sessionID, spawning it on first use.
func (gw *Gateway) session(sessionID string) *session {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if s, ok := gw.sessions[sessionID]; ok {
		return s
	}
	s := &session{
		id:           sessionID,
		gw:           gw,
		inbox:        make(chan envelope, 64),
		done:         make(chan struct{}),
		results:      make(map[string]cachedResult),
		fingerprints: make(map[string]fingerprintEntry),
	}
	gw.sessions[sessionID] = s
	go s.run()
	return s
}

type envelope struct {
	action models.Action
	reply  chan Result

	// settleFor marks a timer message: advance past round_over only if the
	// state is still at exactly this version. Zero for player actions.
	settleFor int64
}

type cachedResult struct {
	at     time.Time
	result Result
}

// replay re-issues a cached outcome. The cached snapshot is cloned so every
// caller still gets a private copy it may mutate.
func replay(res Result) Result {
	if res.State != nil {
		res.State = res.State.Clone()
	}
	res.Replayed = true
	return res
}

type fingerprintEntry struct {
	at       time.Time
	actionID string
}

// session is one worker. Everything below the inbox is owned by the worker
// goroutine; no locks needed.
type session struct {
	id    string
	gw    *Gateway
	inbox chan envelope
	done  chan struct{}

	results      map[string]cachedResult
	fingerprints map[string]fingerprintEntry
	actionIndex  int64
}

func (s *session) run() {
	for {
		select {
		case <-s.done:
			return
		case env := <-s.inbox:
			if env.settleFor > 0 {
				s.processSettle(env.settleFor)
				continue
			}
			res := s.process(env.action)
			env.reply <- res
		}
	}
}

// process is the validation pipeline for one player action: replay check,
// load, rule check, version bump, save (with one CAS retry), broadcast.
func (s *session) process(action models.Action) Result {
	s.purgeReplayState()

	if action.ActionID != "" {
		if hit, ok := s.results[action.ActionID]; ok {
			return replay(hit.result)
		}
	}

	res := s.transition(action)

	now := time.Now()
	if action.ActionID != "" {
		// The cache keeps its own clone; the snapshot handed to the caller
		// is theirs to mutate.
		cached := res
		if cached.State != nil {
			cached.State = cached.State.Clone()
		}
		s.results[action.ActionID] = cachedResult{at: now, result: cached}
		s.fingerprints[fingerprint(action)] = fingerprintEntry{at: now, actionID: action.ActionID}
	}
	return res
}

func (s *session) transition(action models.Action) Result {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	state, err := s.gw.store.Load(ctx, s.id)
	if err == store.ErrNotFound {
		return Result{Err: &engine.RuleError{Kind: engine.KindGameNotFound, Message: "no such session"}}
	}
	if err != nil {
		log.Errorf("gateway: session %s: load failed: %v", s.id, err)
		return Result{Err: &engine.RuleError{Kind: engine.KindInternal, Message: "could not load session"}}
	}

	// Duplicate absorption: an identical action from the same player under
	// a fresh ActionID is a retry only while the state hasn't moved past
	// the original's outcome. Once the version advances, the repeat is a
	// legitimate new action (betting 0 two hands in a row, playing index 0
	// in consecutive tricks).
	fp := fingerprint(action)
	if prev, ok := s.fingerprints[fp]; ok && time.Since(prev.at) < fingerprintWindow && prev.actionID != action.ActionID {
		if hit, ok := s.results[prev.actionID]; ok && hit.result.State != nil && hit.result.State.Version == state.Version {
			return replay(hit.result)
		}
	}

	for attempt := 0; ; attempt++ {
		mutated, err := applyRules(state, action)
		if err != nil {
			return Result{State: state, Err: err}
		}
		if !mutated {
			// Reconnect-style no-op: nothing changed, nothing to persist.
			return Result{State: state}
		}

		state.Version++
		if err := state.CheckInvariants(); err != nil {
			log.Errorf("gateway: session %s: invariant breach after %s: %v", s.id, action.Type, err)
			return Result{Err: &engine.RuleError{Kind: engine.KindInternal, Message: "session state is corrupt"}}
		}

		err = s.gw.store.Save(ctx, state)
		if err == nil {
			break
		}
		if err == store.ErrVersionConflict && attempt == 0 {
			// Someone else won the write race. Reload and re-validate the
			// action against the state that actually landed.
			state, err = s.gw.store.Load(ctx, s.id)
			if err != nil {
				return Result{Err: &engine.RuleError{Kind: engine.KindInternal, Message: "could not reload session"}}
			}
			continue
		}
		if err == store.ErrVersionConflict {
			return Result{Err: &engine.RuleError{Kind: engine.KindConflict, Message: "session was modified concurrently"}}
		}
		log.Errorf("gateway: session %s: save failed: %v", s.id, err)
		return Result{Err: &engine.RuleError{Kind: engine.KindInternal, Message: "could not persist transition"}}
	}

	s.afterCommit(action, state)
	return Result{State: state.Clone()}
}

// applyRules dispatches the action to the engine. The bool reports whether
// state actually changed (joins by already-seated players are no-ops).
func applyRules(g *engine.GameState, action models.Action) (bool, error) {
	switch action.Type {
	case models.ActionJoin:
		if g.Phase != engine.PhaseLobby {
			for i := range g.Players {
				if g.Players[i].ID == action.PlayerID {
					return false, nil // reconnect, not a transition
				}
			}
		}
		return true, g.AddPlayer(action.PlayerID, action.Name)
	case models.ActionLeave:
		return true, g.RemovePlayer(action.PlayerID)
	case models.ActionStartGame:
		return true, g.StartGame(action.PlayerID)
	case models.ActionStartHand:
		return true, g.StartHand(action.PlayerID)
	case models.ActionMakeBet:
		return true, g.MakeBet(action.PlayerID, action.Bet)
	case models.ActionPlayCard:
		return true, g.PlayCard(action.PlayerID, action.CardIndex)
	case models.ActionReturnToLobby:
		return true, g.ReturnToLobby(action.PlayerID)
	default:
		return false, &engine.RuleError{Kind: engine.KindInternal, Message: fmt.Sprintf("unknown action type %q", action.Type)}
	}
}

// afterCommit runs the post-save effects of an accepted transition:
// broadcast, history, and the settle timer for resolved tricks.
func (s *session) afterCommit(action models.Action, state *engine.GameState) {
	if s.gw.Broadcast != nil {
		s.gw.Broadcast(s.id, state.Clone())
	}
	s.publishHistory(action, state)

	if state.Phase == engine.PhaseRoundOver && !state.HandComplete {
		expect := state.Version
		time.AfterFunc(s.gw.SettleDelay, func() {
			select {
			case s.inbox <- envelope{settleFor: expect}:
			case <-s.done:
			}
		})
	}
}

// processSettle advances a settled trick back into play, unless a newer
// transition (host abort, teardown) got there first.
func (s *session) processSettle(expect int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	state, err := s.gw.store.Load(ctx, s.id)
	if err != nil {
		return // session gone; the timer is moot
	}
	if state.Version != expect {
		return // superseded
	}
	if err := state.AdvanceAfterSettle(); err != nil {
		return
	}
	state.Version++
	if err := s.gw.store.Save(ctx, state); err != nil {
		log.Warnf("gateway: session %s: settle advance lost the write race: %v", s.id, err)
		return
	}
	s.afterCommit(models.Action{Type: "settle"}, state)
}

// publishHistory appends the action to the Redis history, asynchronously
// and best-effort.
func (s *session) publishHistory(action models.Action, state *engine.GameState) {
	s.actionIndex++
	rec := cache.GameActionRecord{
		SessionID:   s.id,
		ActionIndex: s.actionIndex,
		ActorID:     action.PlayerID,
		ActionType:  string(action.Type),
		Version:     state.Version,
		Timestamp:   time.Now().UnixMilli(),
	}
	switch action.Type {
	case models.ActionMakeBet:
		rec.Payload = map[string]interface{}{"bet": action.Bet}
	case models.ActionPlayCard:
		rec.Payload = map[string]interface{}{"cardIndex": action.CardIndex}
	case models.ActionJoin:
		rec.Payload = map[string]interface{}{"name": action.Name}
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.PublishGameAction(ctx, rec); err != nil {
			log.Errorf("gateway: session %s: publishing action %d: %v", s.id, rec.ActionIndex, err)
		}
	}()
}

func (s *session) purgeReplayState() {
	now := time.Now()
	for id, r := range s.results {
		if now.Sub(r.at) > idempotencyTTL {
			delete(s.results, id)
		}
	}
	for fp, e := range s.fingerprints {
		if now.Sub(e.at) > fingerprintWindow {
			delete(s.fingerprints, fp)
		}
	}
}

func fingerprint(a models.Action) string {
	return fmt.Sprintf("%s|%s|%s|%d|%d", a.PlayerID, a.Type, a.Name, a.Bet, a.CardIndex)
}
