package engine

import (
	"errors"
	"fmt"
)

// ErrorKind is a stable, client-facing identifier for why a transition was
// rejected. Kinds never change meaning; clients key their messaging off them.
type ErrorKind string

const (
	KindWrongPhase       ErrorKind = "wrong_phase"
	KindNotYourTurn      ErrorKind = "not_your_turn"
	KindInvalidBetValue  ErrorKind = "invalid_bet_value"
	KindForbiddenLastBet ErrorKind = "forbidden_last_bet"
	KindInvalidCardIndex ErrorKind = "invalid_card_index"
	KindNotHost          ErrorKind = "not_host"
	KindNotEnoughPlayers ErrorKind = "not_enough_players"
	KindGameInProgress   ErrorKind = "game_in_progress"
	KindGameFull         ErrorKind = "game_full"
	KindUnknownPlayer    ErrorKind = "unknown_player"

	// Gateway-level kinds. Defined here so the whole taxonomy lives in one
	// place and the wire layer can map any error with a single lookup.
	KindGameNotFound ErrorKind = "game_not_found"
	KindConflict     ErrorKind = "conflict"
	KindRateLimited  ErrorKind = "rate_limited"
	KindInternal     ErrorKind = "internal"
)

// RuleError reports a rejected transition. The state is guaranteed to be
// unchanged when a RuleError is returned.
type RuleError struct {
	Kind    ErrorKind
	Message string
}

func (e *RuleError) Error() string { return string(e.Kind) + ": " + e.Message }

// reject builds a RuleError in one line at the rejection site.
func reject(kind ErrorKind, format string, args ...any) *RuleError {
	return &RuleError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the ErrorKind from err, or KindInternal for anything that
// is not a RuleError.
func KindOf(err error) ErrorKind {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindInternal
}
