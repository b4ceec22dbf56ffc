package ws

import (
	"encoding/json"

	"github.com/milkymind/fodinha-arena/engine"
	"github.com/milkymind/fodinha-arena/internal/models"
)

// Server-to-client message types.
const (
	// MsgStateChanged carries a full authoritative snapshot. Versions are
	// delivered in order per connection; clients drop anything not newer
	// than what they already hold.
	MsgStateChanged = "state_changed"
	// MsgTentative previews another player's pending bet/play before the
	// authoritative snapshot lands. Always superseded by state_changed.
	MsgTentative = "tentative_update"
	// MsgResult acknowledges the sender's own action.
	MsgResult = "result"
	// MsgError reports a rejected or malformed request.
	MsgError = "error"
	// MsgPresence reports a player connecting or disconnecting.
	MsgPresence = "presence"
)

// Client-to-server message types are the models.ActionType values plus:
const (
	// MsgRequestState asks for an immediate snapshot push, the reconcile
	// path for clients that suspect they missed an update.
	MsgRequestState = "request_state"
)

// ServerMessage is the envelope for everything the server pushes.
type ServerMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`

	Version int64             `json:"version,omitempty"`
	State   *engine.GameState `json:"state,omitempty"`

	// Tentative fields.
	ActorID string         `json:"actorId,omitempty"`
	Action  *models.Action `json:"action,omitempty"`

	// Result / error fields.
	ActionID string           `json:"actionId,omitempty"`
	Replayed bool             `json:"replayed,omitempty"`
	Kind     engine.ErrorKind `json:"kind,omitempty"`
	Message  string           `json:"message,omitempty"`

	// Presence fields.
	PlayerID  string `json:"playerId,omitempty"`
	Connected bool   `json:"connected,omitempty"`
}

// ClientMessage is the envelope for everything a client sends. Action
// messages use the models.Action fields directly.
type ClientMessage struct {
	Type string `json:"type"`
	models.Action
}

func marshal(msg ServerMessage) []byte {
	raw, err := json.Marshal(msg)
	if err != nil {
		// Every field is marshalable; this cannot fail on real messages.
		return []byte(`{"type":"error","kind":"internal"}`)
	}
	return raw
}

func stateChanged(state *engine.GameState) []byte {
	return marshal(ServerMessage{
		Type:      MsgStateChanged,
		SessionID: state.SessionID,
		Version:   state.Version,
		State:     state,
	})
}
