package engine

import "testing"

// bettingGame builds a mid-game state parked in the betting phase, bypassing
// the deal so the card count is exactly what the test needs.
func bettingGame(ids []string, cards int) *GameState {
	g := NewGame("s", 7, Options{})
	for _, id := range ids {
		g.Players = append(g.Players, Player{ID: id, Name: id, Lives: 3})
	}
	g.Phase = PhaseBetting
	g.TurnOrder = append([]string(nil), ids...)
	g.CardsThisHand = cards
	g.TrickNumber = 1
	g.Bets = make(map[string]int)
	g.TricksWon = make(map[string]int)
	return g
}

func TestMakeBetOrderAndBounds(t *testing.T) {
	g := bettingGame([]string{"a", "b", "c"}, 3)

	if err := g.MakeBet("b", 1); KindOf(err) != KindNotYourTurn {
		t.Errorf("out of turn: kind = %v, want %v", KindOf(err), KindNotYourTurn)
	}
	if err := g.MakeBet("a", -1); KindOf(err) != KindInvalidBetValue {
		t.Errorf("negative bet: kind = %v, want %v", KindOf(err), KindInvalidBetValue)
	}
	if err := g.MakeBet("a", 4); KindOf(err) != KindInvalidBetValue {
		t.Errorf("oversized bet: kind = %v, want %v", KindOf(err), KindInvalidBetValue)
	}
	if err := g.MakeBet("a", 3); err != nil {
		t.Fatalf("max bet: %v", err)
	}
	if g.CurrentTurnID() != "b" {
		t.Errorf("turn = %s, want b", g.CurrentTurnID())
	}
}

// TestLastBettorConstraint: with 3 tricks and prior bets summing to 2, the
// last bettor may not bet 1 (someone must be wrong) but 0 and 2 both pass.
func TestLastBettorConstraint(t *testing.T) {
	for _, tc := range []struct {
		lastBet int
		kind    ErrorKind
	}{
		{1, KindForbiddenLastBet},
		{0, ""},
		{2, ""},
	} {
		g := bettingGame([]string{"a", "b", "c"}, 3)
		if err := g.MakeBet("a", 2); err != nil {
			t.Fatalf("a bets 2: %v", err)
		}
		if err := g.MakeBet("b", 0); err != nil {
			t.Fatalf("b bets 0: %v", err)
		}
		err := g.MakeBet("c", tc.lastBet)
		if KindOf(err) != tc.kind {
			t.Errorf("c bets %d: kind = %v, want %v", tc.lastBet, KindOf(err), tc.kind)
		}
	}
}

// TestForbiddenBetLeavesStateUntouched: the rejected bet is not recorded and
// the turn does not advance, so the bettor can retry.
func TestForbiddenBetLeavesStateUntouched(t *testing.T) {
	g := bettingGame([]string{"a", "b"}, 2)
	g.MakeBet("a", 1)

	if err := g.MakeBet("b", 1); KindOf(err) != KindForbiddenLastBet {
		t.Fatalf("kind = %v, want %v", KindOf(err), KindForbiddenLastBet)
	}
	if _, recorded := g.Bets["b"]; recorded {
		t.Error("rejected bet was recorded")
	}
	if g.BetSum != 1 || g.CurrentTurnID() != "b" {
		t.Errorf("state advanced past rejected bet: sum=%d turn=%s", g.BetSum, g.CurrentTurnID())
	}
	if err := g.MakeBet("b", 0); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

// TestBettingCompletesIntoPlaying: the final bet flips the phase with the
// first player in turn order leading the first trick.
func TestBettingCompletesIntoPlaying(t *testing.T) {
	g := bettingGame([]string{"a", "b", "c"}, 2)
	g.MakeBet("a", 0)
	g.MakeBet("b", 2)
	if err := g.MakeBet("c", 1); err != nil {
		t.Fatalf("final bet: %v", err)
	}
	if g.Phase != PhasePlaying {
		t.Fatalf("phase = %v, want playing", g.Phase)
	}
	if g.CurrentTurnID() != "a" {
		t.Errorf("leader = %s, want a", g.CurrentTurnID())
	}
	if g.BetSum != 3 {
		t.Errorf("bet sum = %d, want 3", g.BetSum)
	}
}

func TestMakeBetWrongPhase(t *testing.T) {
	g := NewGame("s", 7, Options{})
	g.AddPlayer("a", "Alice")
	if err := g.MakeBet("a", 0); KindOf(err) != KindWrongPhase {
		t.Errorf("kind = %v, want %v", KindOf(err), KindWrongPhase)
	}
}
