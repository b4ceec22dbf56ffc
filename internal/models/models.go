// Package models holds the service-level wire types shared between the
// gateway and the websocket layer.
package models

// ActionType enumerates the transitions a client may request.
type ActionType string

const (
	ActionJoin          ActionType = "join"
	ActionLeave         ActionType = "leave"
	ActionStartGame     ActionType = "start_game"
	ActionStartHand     ActionType = "start_hand"
	ActionMakeBet       ActionType = "make_bet"
	ActionPlayCard      ActionType = "play_card"
	ActionReturnToLobby ActionType = "return_to_lobby"
)

// Action is one requested transition as it arrives from a client. ActionID
// is a client-generated idempotency key: retries reuse it and receive the
// original outcome instead of a second transition.
type Action struct {
	ActionID string     `json:"actionId"`
	Type     ActionType `json:"type"`
	PlayerID string     `json:"playerId"`

	// Per-type parameters; unused fields stay at their zero value.
	Name      string `json:"name,omitempty"`
	Bet       int    `json:"bet,omitempty"`
	CardIndex int    `json:"cardIndex,omitempty"`
}
