package engine

import "fmt"

// Phase is the single active stage of a session. Exactly one phase holds at
// any time; every transition is validated against it first.
type Phase string

const (
	PhaseLobby      Phase = "lobby"
	PhaseBetting    Phase = "betting"
	PhasePlaying    Phase = "playing"
	PhaseRoundOver  Phase = "round_over"
	PhaseTerminated Phase = "terminated"
)

// Direction tracks which way the per-hand card count is moving in the wave
// pattern (1 → max → 1 → …).
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

const (
	MinPlayers = 2
	MaxPlayers = 10
)

// SettleDelayMillis is how long a resolved trick stays on display in
// round_over before play auto-advances to the next trick.
const SettleDelayMillis = 750

// Player is one seat at the table. Seats are never reordered; eliminated
// players keep their seat for display but take no further part in play.
type Player struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Lives      int    `json:"lives"`
	Eliminated bool   `json:"eliminated"`
}

// PlayedCard is one entry on the table: who played which card, in play order.
type PlayedCard struct {
	PlayerID string `json:"playerId"`
	Card     Card   `json:"card"`
}

// Options configures a new session.
type Options struct {
	// Lives is the starting life count (conventionally 3, 5 or 7).
	Lives int `json:"lives"`
	// StartFromMax makes the first hand deal the maximum card count instead
	// of 1, so the wave runs max → 1 → max.
	StartFromMax bool `json:"startFromMax"`
}

// GameState is the aggregate root for one session. It is a plain
// JSON-serializable value: the store persists it whole and the sync layer
// broadcasts it whole, keyed by Version.
type GameState struct {
	SessionID string `json:"sessionId"`
	// Version increases by exactly 1 on every accepted transition. It is
	// bumped by the transition gateway, not by the rules methods here.
	Version int64 `json:"version"`

	Players []Player `json:"players"`
	Phase   Phase    `json:"phase"`

	// DealerIdx is a seat index into Players. TurnOrder holds active player
	// IDs starting from first-to-act; it rotates so the trick leader is
	// always TurnOrder[0].
	DealerIdx      int      `json:"dealerIdx"`
	TurnOrder      []string `json:"turnOrder"`
	CurrentTurnIdx int      `json:"currentTurnIdx"`

	Hands map[string][]Card `json:"hands"`
	// OriginalHands duplicates Hands for one-card hands, where each card is
	// shown face-up to the other players. Plays remove the card from both
	// views in the same transition.
	OriginalHands map[string][]Card `json:"originalHands,omitempty"`

	MiddleCard Card  `json:"middleCard"`
	Manilha    uint8 `json:"manilha"`

	Bets      map[string]int `json:"bets"`
	BetSum    int            `json:"betSum"`
	TricksWon map[string]int `json:"tricksWon"`

	Table []PlayedCard `json:"table"`

	CardsThisHand int       `json:"cardsThisHand"`
	TrickNumber   int       `json:"trickNumber"`
	HandNumber    int       `json:"handNumber"`
	Multiplier    int       `json:"multiplier"`
	Direction     Direction `json:"direction"`

	LastTrickWinner       string `json:"lastTrickWinner,omitempty"`
	TieResolvedByTiebreak bool   `json:"tieResolvedByTiebreak,omitempty"`

	// HandComplete distinguishes the between-hands round_over (awaiting a
	// start-hand trigger) from the between-tricks one (timer-advanced).
	HandComplete bool `json:"handComplete,omitempty"`
	// RoundOverAt is the unix-millisecond timestamp of the last trick
	// settlement, used to drive the settle delay.
	RoundOverAt int64 `json:"roundOverAt,omitempty"`

	StartingLives int  `json:"startingLives"`
	StartFromMax  bool `json:"startFromMax,omitempty"`

	RNG uint64 `json:"rng"`
}

// NewGame creates a session in the lobby phase with an empty roster.
func NewGame(sessionID string, seed uint64, opts Options) *GameState {
	if seed == 0 {
		seed = 1 // xorshift can't start at 0
	}
	lives := opts.Lives
	if lives <= 0 {
		lives = 3
	}
	return &GameState{
		SessionID:     sessionID,
		Phase:         PhaseLobby,
		Multiplier:    1,
		Direction:     DirectionUp,
		StartingLives: lives,
		StartFromMax:  opts.StartFromMax,
		RNG:           seed,
	}
}

// AddPlayer seats a new player. Only possible in the lobby.
func (g *GameState) AddPlayer(id, name string) error {
	if g.Phase != PhaseLobby {
		return reject(KindGameInProgress, "cannot join: game already started")
	}
	if len(g.Players) >= MaxPlayers {
		return reject(KindGameFull, "table is full (%d players)", MaxPlayers)
	}
	for i := range g.Players {
		if g.Players[i].ID == id {
			g.Players[i].Name = name // rejoin with a fresh display name
			return nil
		}
	}
	g.Players = append(g.Players, Player{ID: id, Name: name, Lives: g.StartingLives})
	return nil
}

// RemovePlayer unseats a player. Only possible in the lobby; mid-game
// departures are handled by the sync layer as inactivity, never removal.
func (g *GameState) RemovePlayer(id string) error {
	if g.Phase != PhaseLobby {
		return reject(KindGameInProgress, "cannot leave a game in progress")
	}
	for i := range g.Players {
		if g.Players[i].ID == id {
			g.Players = append(g.Players[:i], g.Players[i+1:]...)
			return nil
		}
	}
	return reject(KindUnknownPlayer, "player %s is not seated", id)
}

// HostID returns the host: by convention the first seated player.
func (g *GameState) HostID() string {
	if len(g.Players) == 0 {
		return ""
	}
	return g.Players[0].ID
}

// CurrentTurnID returns the player whose turn it is, or "" outside
// betting/playing.
func (g *GameState) CurrentTurnID() string {
	if g.Phase != PhaseBetting && g.Phase != PhasePlaying {
		return ""
	}
	if g.CurrentTurnIdx < 0 || g.CurrentTurnIdx >= len(g.TurnOrder) {
		return ""
	}
	return g.TurnOrder[g.CurrentTurnIdx]
}

// ActivePlayers returns the IDs of non-eliminated players in seat order.
func (g *GameState) ActivePlayers() []string {
	ids := make([]string, 0, len(g.Players))
	for i := range g.Players {
		if !g.Players[i].Eliminated {
			ids = append(ids, g.Players[i].ID)
		}
	}
	return ids
}

func (g *GameState) playerByID(id string) *Player {
	for i := range g.Players {
		if g.Players[i].ID == id {
			return &g.Players[i]
		}
	}
	return nil
}

// requireTurn validates that id is the player to act right now.
func (g *GameState) requireTurn(id string) error {
	cur := g.CurrentTurnID()
	if cur == "" {
		return reject(KindWrongPhase, "no player may act in phase %s", g.Phase)
	}
	if cur != id {
		return reject(KindNotYourTurn, "it is %s's turn, not %s's", cur, id)
	}
	return nil
}

// rotateTurnOrder rebuilds TurnOrder so that leader acts first, preserving
// the relative order of the remaining active players.
func (g *GameState) rotateTurnOrder(leader string) {
	for i, id := range g.TurnOrder {
		if id == leader {
			rotated := make([]string, 0, len(g.TurnOrder))
			rotated = append(rotated, g.TurnOrder[i:]...)
			rotated = append(rotated, g.TurnOrder[:i]...)
			g.TurnOrder = rotated
			return
		}
	}
}

// Clone returns a deep copy. Cached stores hand out clones so readers can
// never alias the copy a session worker is mutating.
func (g *GameState) Clone() *GameState {
	c := *g
	c.Players = append([]Player(nil), g.Players...)
	c.TurnOrder = append([]string(nil), g.TurnOrder...)
	c.Table = append([]PlayedCard(nil), g.Table...)
	c.Hands = cloneHands(g.Hands)
	c.OriginalHands = cloneHands(g.OriginalHands)
	c.Bets = cloneInts(g.Bets)
	c.TricksWon = cloneInts(g.TricksWon)
	return &c
}

func cloneHands(m map[string][]Card) map[string][]Card {
	if m == nil {
		return nil
	}
	out := make(map[string][]Card, len(m))
	for k, v := range m {
		out[k] = append([]Card(nil), v...)
	}
	return out
}

func cloneInts(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// CheckInvariants verifies the structural invariants that must hold after
// every transition. A non-nil return means an engine bug, not a bad input:
// callers treat it as fatal to the session.
func (g *GameState) CheckInvariants() error {
	active := g.ActivePlayers()
	if len(g.Table) > len(active) {
		return fmt.Errorf("table holds %d cards with only %d active players", len(g.Table), len(active))
	}
	for i := range g.Players {
		p := &g.Players[i]
		if p.Eliminated != (p.Lives <= 0) {
			return fmt.Errorf("player %s: eliminated=%v with %d lives", p.ID, p.Eliminated, p.Lives)
		}
	}
	if g.Phase == PhasePlaying {
		tricksPlayed := g.TrickNumber - 1
		for _, id := range active {
			want := g.CardsThisHand - tricksPlayed
			got := len(g.Hands[id])
			// The player on turn may have already committed their card to
			// the table this trick.
			onTable := 0
			for _, pc := range g.Table {
				if pc.PlayerID == id {
					onTable = 1
				}
			}
			if got+onTable != want {
				return fmt.Errorf("player %s holds %d cards, want %d (trick %d of %d)",
					id, got, want-onTable, g.TrickNumber, g.CardsThisHand)
			}
		}
	}
	switch g.Phase {
	case PhaseLobby, PhaseBetting, PhasePlaying, PhaseRoundOver, PhaseTerminated:
	default:
		return fmt.Errorf("unknown phase %q", g.Phase)
	}
	return nil
}
