package engine

import "time"

// PlayCard plays the card at cardIndex from the acting player's hand onto
// the table. When every active player has played, the trick resolves: the
// winner takes Multiplier trick-points, ties carry the multiplier forward,
// and a finished hand is scored (lives -= |bet - tricksWon|) with
// eliminations recomputed.
func (g *GameState) PlayCard(playerID string, cardIndex int) error {
	if g.Phase != PhasePlaying {
		return reject(KindWrongPhase, "cards can only be played in the playing phase, not %s", g.Phase)
	}
	if err := g.requireTurn(playerID); err != nil {
		return err
	}
	hand := g.Hands[playerID]
	if cardIndex < 0 || cardIndex >= len(hand) {
		return reject(KindInvalidCardIndex, "card index %d out of range for a hand of %d", cardIndex, len(hand))
	}

	card := hand[cardIndex]
	g.Hands[playerID] = append(hand[:cardIndex], hand[cardIndex+1:]...)
	// One-card hands carry a public view; remove from it in the same
	// transition so the two views never diverge.
	if g.OriginalHands != nil {
		if orig, ok := g.OriginalHands[playerID]; ok && cardIndex < len(orig) {
			g.OriginalHands[playerID] = append(orig[:cardIndex], orig[cardIndex+1:]...)
		}
	}

	g.Table = append(g.Table, PlayedCard{PlayerID: playerID, Card: card})
	g.CurrentTurnIdx = (g.CurrentTurnIdx + 1) % len(g.TurnOrder)

	if len(g.Table) == len(g.TurnOrder) {
		g.resolveTrick()
	}
	return nil
}

// resolveTrick decides the full table. Strength ties among the strongest
// cards either carry the multiplier into the next trick (with the last
// player to have played leading) or, on the final trick of the hand, are
// broken by manilha suit order.
func (g *GameState) resolveTrick() {
	best := -1
	var contenders []PlayedCard
	for _, pc := range g.Table {
		s := Strength(pc.Card, g.Manilha)
		switch {
		case s > best:
			best = s
			contenders = []PlayedCard{pc}
		case s == best:
			contenders = append(contenders, pc)
		}
	}

	finalTrick := g.TrickNumber == g.CardsThisHand
	var leader string

	switch {
	case len(contenders) == 1:
		winner := contenders[0].PlayerID
		g.TricksWon[winner] += g.Multiplier
		g.Multiplier = 1
		g.LastTrickWinner = winner
		g.TieResolvedByTiebreak = false
		leader = winner
	case finalTrick:
		// The hand must settle: break the tie by manilha suit order,
		// diamonds weakest through clubs strongest.
		winner := contenders[0]
		for _, pc := range contenders[1:] {
			if pc.Card.Suit() > winner.Card.Suit() {
				winner = pc
			}
		}
		g.TricksWon[winner.PlayerID] += g.Multiplier
		g.Multiplier = 1
		g.LastTrickWinner = winner.PlayerID
		g.TieResolvedByTiebreak = true
		leader = winner.PlayerID
	default:
		// Tied trick mid-hand: nobody scores, the pot carries forward and
		// the last player to have played leads.
		g.Multiplier++
		g.LastTrickWinner = ""
		g.TieResolvedByTiebreak = false
		leader = g.Table[len(g.Table)-1].PlayerID
	}

	g.Table = nil
	g.rotateTurnOrder(leader)
	g.CurrentTurnIdx = 0

	if !finalTrick {
		g.Phase = PhaseRoundOver
		g.HandComplete = false
		g.RoundOverAt = time.Now().UnixMilli()
		return
	}
	g.finishHand()
}

// finishHand settles the scoring for a completed hand and either ends the
// game or parks the session in round_over awaiting the next hand.
func (g *GameState) finishHand() {
	for i := range g.Players {
		p := &g.Players[i]
		if p.Eliminated {
			continue
		}
		bet := g.Bets[p.ID]
		won := g.TricksWon[p.ID]
		diff := bet - won
		if diff < 0 {
			diff = -diff
		}
		p.Lives -= diff
		p.Eliminated = p.Lives <= 0
	}

	g.RoundOverAt = time.Now().UnixMilli()
	if len(g.ActivePlayers()) <= 1 {
		g.Phase = PhaseTerminated
		return
	}
	g.Phase = PhaseRoundOver
	g.HandComplete = true
}

// AdvanceAfterSettle moves a settled trick back into play after the display
// delay: the winner (or tied-trick leader) opens the next trick. Timer
// driven; returns WrongPhase when the timer raced a teardown or a completed
// hand, which callers simply drop.
func (g *GameState) AdvanceAfterSettle() error {
	if g.Phase != PhaseRoundOver || g.HandComplete {
		return reject(KindWrongPhase, "no trick to advance in phase %s", g.Phase)
	}
	g.Phase = PhasePlaying
	g.TrickNumber++
	g.RoundOverAt = 0
	return nil
}

// Winner returns the sole surviving player once the session is terminated.
func (g *GameState) Winner() *Player {
	if g.Phase != PhaseTerminated {
		return nil
	}
	for i := range g.Players {
		if !g.Players[i].Eliminated {
			return &g.Players[i]
		}
	}
	return nil
}
