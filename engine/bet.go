package engine

// MakeBet records the acting player's bet for the current hand. Bets run in
// turn order; each must be within 0..CardsThisHand, and the last bettor may
// not bring the total to exactly CardsThisHand — someone has to be wrong.
// The final bet moves the session into the playing phase with the first
// player in turn order leading.
func (g *GameState) MakeBet(playerID string, bet int) error {
	if g.Phase != PhaseBetting {
		return reject(KindWrongPhase, "bets are only accepted in the betting phase, not %s", g.Phase)
	}
	if err := g.requireTurn(playerID); err != nil {
		return err
	}
	if bet < 0 || bet > g.CardsThisHand {
		return reject(KindInvalidBetValue, "bet must be between 0 and %d, got %d", g.CardsThisHand, bet)
	}
	lastBettor := g.CurrentTurnIdx == len(g.TurnOrder)-1
	if lastBettor && g.BetSum+bet == g.CardsThisHand {
		return reject(KindForbiddenLastBet,
			"last bettor cannot make the bets sum to %d (the number of tricks)", g.CardsThisHand)
	}

	g.Bets[playerID] = bet
	g.BetSum += bet
	g.CurrentTurnIdx++

	if g.CurrentTurnIdx >= len(g.TurnOrder) {
		g.Phase = PhasePlaying
		g.CurrentTurnIdx = 0
	}
	return nil
}
