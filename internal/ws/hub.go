package ws

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/milkymind/fodinha-arena/engine"
	"github.com/milkymind/fodinha-arena/internal/models"
)

// sendQueueSize bounds the per-subscriber backlog. A subscriber that falls
// this far behind is cut loose rather than allowed to stall the session.
const sendQueueSize = 64

// WriteFunc delivers one serialized message to a subscriber's transport.
type WriteFunc func(ctx context.Context, data []byte) error

// Hub fans accepted transitions out to every connection subscribed to a
// session. Each subscriber has its own ordered queue and writer goroutine,
// so one slow client never delays the others, and messages for a given
// connection always leave in the order they were enqueued (version order,
// since the gateway broadcasts in version order).
type Hub struct {
	mu       sync.Mutex
	sessions map[string]map[*Subscriber]struct{}

	// OnGone is told when a subscriber disappears (write failure or slow
	// consumer cut), for presence bookkeeping.
	OnGone func(sub *Subscriber)
}

func NewHub() *Hub {
	return &Hub{sessions: make(map[string]map[*Subscriber]struct{})}
}

// Subscriber is one connection's membership in one session.
type Subscriber struct {
	SessionID string
	PlayerID  string

	hub   *Hub
	write WriteFunc
	queue chan []byte
	once  sync.Once
	done  chan struct{}
}

// Subscribe registers a connection and starts its writer.
func (h *Hub) Subscribe(sessionID, playerID string, write WriteFunc) *Subscriber {
	sub := &Subscriber{
		SessionID: sessionID,
		PlayerID:  playerID,
		hub:       h,
		write:     write,
		queue:     make(chan []byte, sendQueueSize),
		done:      make(chan struct{}),
	}
	h.mu.Lock()
	set, ok := h.sessions[sessionID]
	if !ok {
		set = make(map[*Subscriber]struct{})
		h.sessions[sessionID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	go sub.run()
	return sub
}

// Unsubscribe removes the subscriber and stops its writer.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	if set, ok := h.sessions[sub.SessionID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.sessions, sub.SessionID)
		}
	}
	h.mu.Unlock()
	sub.stop()
}

// EvictSession drops every subscriber of a reaped session.
func (h *Hub) EvictSession(sessionID string) {
	h.mu.Lock()
	set := h.sessions[sessionID]
	delete(h.sessions, sessionID)
	h.mu.Unlock()
	for sub := range set {
		sub.stop()
	}
}

// BroadcastState pushes an authoritative snapshot to every subscriber of
// the session. Wired as the gateway's Broadcast hook.
func (h *Hub) BroadcastState(sessionID string, state *engine.GameState) {
	h.broadcast(sessionID, stateChanged(state), nil)
}

// BroadcastTentative previews an action to everyone except its actor.
func (h *Hub) BroadcastTentative(sessionID string, action models.Action) {
	msg := marshal(ServerMessage{
		Type:      MsgTentative,
		SessionID: sessionID,
		ActorID:   action.PlayerID,
		Action:    &action,
	})
	h.broadcast(sessionID, msg, func(sub *Subscriber) bool {
		return sub.PlayerID != action.PlayerID
	})
}

// BroadcastPresence announces a player's connection state to the session.
func (h *Hub) BroadcastPresence(sessionID, playerID string, connected bool) {
	h.broadcast(sessionID, marshal(ServerMessage{
		Type:      MsgPresence,
		SessionID: sessionID,
		PlayerID:  playerID,
		Connected: connected,
	}), nil)
}

func (h *Hub) broadcast(sessionID string, msg []byte, want func(*Subscriber) bool) {
	h.mu.Lock()
	subs := make([]*Subscriber, 0, len(h.sessions[sessionID]))
	for sub := range h.sessions[sessionID] {
		if want == nil || want(sub) {
			subs = append(subs, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.enqueue(msg)
	}
}

// SendSnapshot queues a snapshot to a single subscriber, used right after
// subscribing and for request_state pulls.
func (h *Hub) SendSnapshot(sub *Subscriber, state *engine.GameState) {
	sub.enqueue(stateChanged(state))
}

// Send queues an arbitrary message to one subscriber.
func (h *Hub) Send(sub *Subscriber, msg ServerMessage) {
	sub.enqueue(marshal(msg))
}

func (sub *Subscriber) enqueue(msg []byte) {
	select {
	case sub.queue <- msg:
	case <-sub.done:
	default:
		// Queue full: the client is too far behind to ever catch up from
		// deltas alone. Cut it; it reconnects and pulls a fresh snapshot.
		log.Warnf("ws: dropping slow subscriber %s of session %s", sub.PlayerID, sub.SessionID)
		sub.hub.Unsubscribe(sub)
	}
}

func (sub *Subscriber) run() {
	for {
		select {
		case <-sub.done:
			return
		case msg := <-sub.queue:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := sub.write(ctx, msg)
			cancel()
			if err != nil {
				sub.hub.Unsubscribe(sub)
				return
			}
		}
	}
}

func (sub *Subscriber) stop() {
	sub.once.Do(func() {
		close(sub.done)
		if sub.hub.OnGone != nil {
			sub.hub.OnGone(sub)
		}
	})
}

// Done reports subscriber teardown, for read loops selecting on it.
func (sub *Subscriber) Done() <-chan struct{} { return sub.done }
