package engine

// StartGame begins play from the lobby: it locks the roster, resets lives
// and deals the first hand, moving the session into the betting phase.
// Only the host (first seated player) may start, and only with at least two
// players seated.
func (g *GameState) StartGame(playerID string) error {
	if g.Phase != PhaseLobby {
		return reject(KindGameInProgress, "game already started")
	}
	if playerID != g.HostID() {
		return reject(KindNotHost, "only the host may start the game")
	}
	if len(g.Players) < MinPlayers {
		return reject(KindNotEnoughPlayers, "need at least %d players, have %d", MinPlayers, len(g.Players))
	}

	for i := range g.Players {
		g.Players[i].Lives = g.StartingLives
		g.Players[i].Eliminated = false
	}
	g.DealerIdx = 0
	g.HandNumber = 0
	g.CardsThisHand = 0
	g.Direction = DirectionUp

	g.dealHand()
	return nil
}

// StartHand deals the next hand. Valid between hands (round_over with the
// previous hand complete) and in the lobby, where it is the same thing as
// starting the game. Host-triggered, like StartGame.
func (g *GameState) StartHand(playerID string) error {
	if g.Phase == PhaseLobby {
		return g.StartGame(playerID)
	}
	if g.Phase != PhaseRoundOver || !g.HandComplete {
		return reject(KindWrongPhase, "cannot start a hand in phase %s", g.Phase)
	}
	if playerID != g.HostID() {
		return reject(KindNotHost, "only the host may start the next hand")
	}

	g.DealerIdx = g.nextActiveSeat(g.DealerIdx)
	g.dealHand()
	return nil
}

// ReturnToLobby discards all gameplay state and returns to the lobby with
// the roster intact. Host-only; legal from any phase so it doubles as an
// abort.
func (g *GameState) ReturnToLobby(playerID string) error {
	if playerID != g.HostID() {
		return reject(KindNotHost, "only the host may return the game to the lobby")
	}

	for i := range g.Players {
		g.Players[i].Lives = g.StartingLives
		g.Players[i].Eliminated = false
	}
	g.Phase = PhaseLobby
	g.TurnOrder = nil
	g.CurrentTurnIdx = 0
	g.Hands = nil
	g.OriginalHands = nil
	g.MiddleCard = EmptyCard
	g.Manilha = 0
	g.Bets = nil
	g.BetSum = 0
	g.TricksWon = nil
	g.Table = nil
	g.CardsThisHand = 0
	g.TrickNumber = 0
	g.HandNumber = 0
	g.Multiplier = 1
	g.Direction = DirectionUp
	g.LastTrickWinner = ""
	g.TieResolvedByTiebreak = false
	g.HandComplete = false
	g.RoundOverAt = 0
	g.DealerIdx = 0
	return nil
}

// nextActiveSeat returns the next seat index after from that holds a
// non-eliminated player.
func (g *GameState) nextActiveSeat(from int) int {
	n := len(g.Players)
	for i := 1; i <= n; i++ {
		idx := (from + i) % n
		if !g.Players[idx].Eliminated {
			return idx
		}
	}
	return from
}

// advanceHandSize applies the wave rule to CardsThisHand: grow from 1 to
// max = 40/activeCount, then shrink back to 1, oscillating for the life of
// the session. A first hand starts at 1, or at max with the start-from-max
// option. Degenerate max==1 pins the count at 1.
func (g *GameState) advanceHandSize(activeCount int) {
	max := DeckSize / activeCount
	if g.CardsThisHand == 0 { // first hand of the game
		if g.StartFromMax {
			g.CardsThisHand = max
			g.Direction = DirectionDown
		} else {
			g.CardsThisHand = 1
			g.Direction = DirectionUp
		}
		return
	}
	if g.Direction == DirectionUp {
		g.CardsThisHand++
		if g.CardsThisHand >= max {
			g.CardsThisHand = max
			g.Direction = DirectionDown
		}
	} else {
		g.CardsThisHand--
		if g.CardsThisHand <= 1 {
			g.CardsThisHand = 1
			g.Direction = DirectionUp
		}
	}
}

// dealHand advances the hand counter and card count, shuffles a fresh deck,
// reveals the middle card, deals every active player their cards and opens
// the betting phase. First-to-act is the active player after the dealer.
func (g *GameState) dealHand() {
	active := g.ActivePlayers()
	g.HandNumber++
	g.advanceHandSize(len(active))

	// Turn order: active players in seat order, starting after the dealer.
	firstSeat := g.nextActiveSeat(g.DealerIdx)
	g.TurnOrder = g.activeFromSeat(firstSeat)
	g.CurrentTurnIdx = 0

	deck := newDeck()
	g.shuffle(deck)

	g.MiddleCard = deck[0]
	g.Manilha = NextManilhaRank(g.MiddleCard)
	deck = deck[1:]

	g.Hands = make(map[string][]Card, len(active))
	if len(active)*g.CardsThisHand == DeckSize {
		// Middle-card workaround: the hand needs every card in the deck, so
		// the revealed middle card is dealt into one random active player's
		// hand after everyone has seen it.
		lucky := active[int(g.randN(uint64(len(active))))]
		for _, id := range active {
			n := g.CardsThisHand
			if id == lucky {
				n--
			}
			g.Hands[id] = append([]Card(nil), deck[:n]...)
			deck = deck[n:]
		}
		hand := g.Hands[lucky]
		pos := int(g.randN(uint64(len(hand) + 1)))
		hand = append(hand, EmptyCard)
		copy(hand[pos+1:], hand[pos:])
		hand[pos] = g.MiddleCard
		g.Hands[lucky] = hand
	} else {
		for _, id := range active {
			g.Hands[id] = append([]Card(nil), deck[:g.CardsThisHand]...)
			deck = deck[g.CardsThisHand:]
		}
	}

	// One-card hands are played face-up: keep a public copy so the played
	// card can be revealed without losing per-player removal bookkeeping.
	if g.CardsThisHand == 1 {
		g.OriginalHands = cloneHands(g.Hands)
	} else {
		g.OriginalHands = nil
	}

	g.Bets = make(map[string]int, len(active))
	g.BetSum = 0
	g.TricksWon = make(map[string]int, len(active))
	for _, id := range active {
		g.TricksWon[id] = 0
	}
	g.Table = nil
	g.TrickNumber = 1
	g.Multiplier = 1
	g.LastTrickWinner = ""
	g.TieResolvedByTiebreak = false
	g.HandComplete = false
	g.RoundOverAt = 0
	g.Phase = PhaseBetting
}

// activeFromSeat lists active player IDs in seat order starting at seat.
func (g *GameState) activeFromSeat(seat int) []string {
	n := len(g.Players)
	order := make([]string, 0, n)
	for i := 0; i < n; i++ {
		p := &g.Players[(seat+i)%n]
		if !p.Eliminated {
			order = append(order, p.ID)
		}
	}
	return order
}
