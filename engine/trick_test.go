package engine

import "testing"

// playingGame builds a mid-game state in the playing phase with fixed hands,
// bypassing the shuffle so trick outcomes are fully scripted.
func playingGame(ids []string, hands map[string][]Card, manilha uint8) *GameState {
	g := NewGame("s", 7, Options{})
	for _, id := range ids {
		g.Players = append(g.Players, Player{ID: id, Name: id, Lives: 3})
	}
	g.Phase = PhasePlaying
	g.TurnOrder = append([]string(nil), ids...)
	g.Hands = cloneHands(hands)
	g.Manilha = manilha
	g.CardsThisHand = len(hands[ids[0]])
	g.TrickNumber = 1
	g.Multiplier = 1
	g.Bets = make(map[string]int)
	g.TricksWon = make(map[string]int)
	for _, id := range ids {
		g.Bets[id] = 0
		g.TricksWon[id] = 0
	}
	return g
}

func TestPlayCardValidation(t *testing.T) {
	g := playingGame([]string{"a", "b"}, map[string][]Card{
		"a": {NewCard(SuitHearts, RankKing), NewCard(SuitClubs, RankFour)},
		"b": {NewCard(SuitSpades, RankSeven), NewCard(SuitDiamonds, RankTwo)},
	}, RankAce)

	if err := g.PlayCard("b", 0); KindOf(err) != KindNotYourTurn {
		t.Errorf("out of turn: kind = %v, want %v", KindOf(err), KindNotYourTurn)
	}
	if err := g.PlayCard("a", 2); KindOf(err) != KindInvalidCardIndex {
		t.Errorf("bad index: kind = %v, want %v", KindOf(err), KindInvalidCardIndex)
	}
	if err := g.PlayCard("a", -1); KindOf(err) != KindInvalidCardIndex {
		t.Errorf("negative index: kind = %v, want %v", KindOf(err), KindInvalidCardIndex)
	}
	if err := g.PlayCard("a", 0); err != nil {
		t.Fatalf("PlayCard: %v", err)
	}
	if len(g.Hands["a"]) != 1 || len(g.Table) != 1 {
		t.Errorf("card not moved to table: hand=%d table=%d", len(g.Hands["a"]), len(g.Table))
	}
}

// TestTrickSingleWinner: strongest card takes the trick and leads the next.
func TestTrickSingleWinner(t *testing.T) {
	g := playingGame([]string{"a", "b", "c"}, map[string][]Card{
		"a": {NewCard(SuitDiamonds, RankFour), NewCard(SuitHearts, RankFive)},
		"b": {NewCard(SuitHearts, RankKing), NewCard(SuitSpades, RankSix)},
		"c": {NewCard(SuitClubs, RankSeven), NewCard(SuitDiamonds, RankQueen)},
	}, RankAce)

	g.PlayCard("a", 0)
	g.PlayCard("b", 0)
	if err := g.PlayCard("c", 0); err != nil {
		t.Fatalf("PlayCard: %v", err)
	}

	if g.TricksWon["b"] != 1 {
		t.Errorf("tricks won by b = %d, want 1", g.TricksWon["b"])
	}
	if g.LastTrickWinner != "b" {
		t.Errorf("last winner = %s, want b", g.LastTrickWinner)
	}
	if g.Phase != PhaseRoundOver || g.HandComplete {
		t.Fatalf("phase = %v handComplete = %v, want mid-hand round_over", g.Phase, g.HandComplete)
	}
	if g.RoundOverAt == 0 {
		t.Error("settle timestamp not recorded")
	}
	if g.TurnOrder[0] != "b" {
		t.Errorf("next leader = %s, want winner b", g.TurnOrder[0])
	}

	if err := g.AdvanceAfterSettle(); err != nil {
		t.Fatalf("AdvanceAfterSettle: %v", err)
	}
	if g.Phase != PhasePlaying || g.TrickNumber != 2 || g.RoundOverAt != 0 {
		t.Errorf("advance left phase=%v trick=%d settledAt=%d", g.Phase, g.TrickNumber, g.RoundOverAt)
	}
	if err := g.CheckInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

// TestTrickManilhaBeatsHighPlain: the weakest manilha outranks the strongest
// plain card on the table.
func TestTrickManilhaBeatsHighPlain(t *testing.T) {
	g := playingGame([]string{"a", "b"}, map[string][]Card{
		"a": {NewCard(SuitClubs, RankThree), NewCard(SuitHearts, RankFour)},
		"b": {NewCard(SuitDiamonds, RankFive), NewCard(SuitSpades, RankSix)},
	}, RankFive)

	g.PlayCard("a", 0)
	g.PlayCard("b", 0)
	if g.TricksWon["b"] != 1 {
		t.Errorf("manilha 5%s lost to plain 3%s", "♦", "♣")
	}
}

// TestTiedTrickCarriesMultiplier: a mid-hand tie scores nobody, doubles the
// next trick and hands the lead to the last player to have played.
func TestTiedTrickCarriesMultiplier(t *testing.T) {
	g := playingGame([]string{"a", "b"}, map[string][]Card{
		"a": {NewCard(SuitHearts, RankQueen), NewCard(SuitDiamonds, RankThree)},
		"b": {NewCard(SuitSpades, RankQueen), NewCard(SuitClubs, RankFour)},
	}, RankAce)

	g.PlayCard("a", 0)
	g.PlayCard("b", 0)

	if g.TricksWon["a"] != 0 || g.TricksWon["b"] != 0 {
		t.Fatalf("tied trick was scored: a=%d b=%d", g.TricksWon["a"], g.TricksWon["b"])
	}
	if g.Multiplier != 2 {
		t.Fatalf("multiplier = %d, want 2", g.Multiplier)
	}
	if g.LastTrickWinner != "" {
		t.Errorf("last winner = %q, want none", g.LastTrickWinner)
	}
	if g.TurnOrder[0] != "b" {
		t.Errorf("leader = %s, want last player b", g.TurnOrder[0])
	}

	// The carried trick is worth 2; b wins the final trick and takes both.
	g.AdvanceAfterSettle()
	g.PlayCard("b", 0) // 4♣
	g.PlayCard("a", 0) // 3♦
	if g.TricksWon["a"] != 2 {
		t.Errorf("carried tricks won by a = %d, want 2", g.TricksWon["a"])
	}
	if g.Multiplier != 1 {
		t.Errorf("multiplier = %d, want reset to 1", g.Multiplier)
	}
}

// TestFinalTrickSuitTiebreak: the last trick of a hand cannot stay tied; the
// higher suit in manilha order (♦ < ♠ < ♥ < ♣) takes it.
func TestFinalTrickSuitTiebreak(t *testing.T) {
	g := playingGame([]string{"a", "b", "c"}, map[string][]Card{
		"a": {NewCard(SuitHearts, RankKing)},
		"b": {NewCard(SuitSpades, RankKing)},
		"c": {NewCard(SuitDiamonds, RankFour)},
	}, RankAce)

	g.PlayCard("a", 0)
	g.PlayCard("b", 0)
	g.PlayCard("c", 0)

	if !g.TieResolvedByTiebreak {
		t.Fatal("tiebreak flag not set")
	}
	if g.TricksWon["a"] != 1 || g.LastTrickWinner != "a" {
		t.Errorf("hearts K should beat spades K: won=%v winner=%s", g.TricksWon, g.LastTrickWinner)
	}
	if g.Phase != PhaseRoundOver || !g.HandComplete {
		t.Errorf("phase = %v handComplete = %v, want completed hand", g.Phase, g.HandComplete)
	}
}

// TestFinishHandScoring: lives drop by |bet - tricksWon| for each player, so
// the same bets and tricks always produce the same deltas.
func TestFinishHandScoring(t *testing.T) {
	g := playingGame([]string{"a", "b", "c"}, map[string][]Card{
		"a": {}, "b": {}, "c": {},
	}, RankAce)
	g.CardsThisHand = 2
	g.Bets = map[string]int{"a": 1, "b": 0, "c": 1}
	g.TricksWon = map[string]int{"a": 2, "b": 0, "c": 0}

	g.finishHand()

	want := map[string]int{"a": 2, "b": 3, "c": 2}
	for _, p := range g.Players {
		if p.Lives != want[p.ID] {
			t.Errorf("player %s lives = %d, want %d", p.ID, p.Lives, want[p.ID])
		}
	}
	if g.Phase != PhaseRoundOver || !g.HandComplete {
		t.Errorf("phase = %v handComplete = %v", g.Phase, g.HandComplete)
	}
}

// TestFinishHandElimination: dropping to zero or below eliminates, and a
// single survivor terminates the session.
func TestFinishHandElimination(t *testing.T) {
	g := playingGame([]string{"a", "b"}, map[string][]Card{"a": {}, "b": {}}, RankAce)
	g.Players[1].Lives = 1
	g.CardsThisHand = 2
	g.Bets = map[string]int{"a": 1, "b": 2}
	g.TricksWon = map[string]int{"a": 1, "b": 0}

	g.finishHand()

	if !g.Players[1].Eliminated {
		t.Fatal("player b not eliminated at zero lives")
	}
	if g.Phase != PhaseTerminated {
		t.Fatalf("phase = %v, want terminated", g.Phase)
	}
	w := g.Winner()
	if w == nil || w.ID != "a" {
		t.Errorf("winner = %v, want a", w)
	}
}

func TestAdvanceAfterSettleGuards(t *testing.T) {
	g := NewGame("s", 7, Options{})
	if err := g.AdvanceAfterSettle(); KindOf(err) != KindWrongPhase {
		t.Errorf("lobby advance: kind = %v, want %v", KindOf(err), KindWrongPhase)
	}

	g.Phase = PhaseRoundOver
	g.HandComplete = true
	if err := g.AdvanceAfterSettle(); KindOf(err) != KindWrongPhase {
		t.Errorf("completed-hand advance: kind = %v, want %v", KindOf(err), KindWrongPhase)
	}
}

// TestPlayCardSyncsPublicHand: with one-card hands the public copy loses the
// played card in the same transition as the private hand.
func TestPlayCardSyncsPublicHand(t *testing.T) {
	g := playingGame([]string{"a", "b"}, map[string][]Card{
		"a": {NewCard(SuitHearts, RankAce)},
		"b": {NewCard(SuitSpades, RankFour)},
	}, RankTwo)
	g.OriginalHands = cloneHands(g.Hands)

	if err := g.PlayCard("a", 0); err != nil {
		t.Fatalf("PlayCard: %v", err)
	}
	if len(g.OriginalHands["a"]) != 0 {
		t.Errorf("public hand still holds %d cards", len(g.OriginalHands["a"]))
	}
	if len(g.OriginalHands["b"]) != 1 {
		t.Errorf("public hand of b disturbed: %d cards", len(g.OriginalHands["b"]))
	}
}
