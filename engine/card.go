// Package engine implements the Fodinha card game rules.
//
// The package is dependency-free: every operation is a transition on a
// GameState value, validated and applied as a whole. Randomness is carried
// inside the state so a game is reproducible from its seed. Serialization,
// persistence and broadcasting belong to the service layers on top.
package engine

// Suit constants — packed into the upper 4 bits of Card.
// The numeric order is the manilha tiebreak order: diamonds weakest,
// clubs strongest.
const (
	SuitDiamonds uint8 = 0
	SuitSpades   uint8 = 1
	SuitHearts   uint8 = 2
	SuitClubs    uint8 = 3
)

// Rank constants — packed into the lower 4 bits of Card.
// Fodinha uses a 40-card deck with no 8, 9 or 10. The numeric order is the
// strength order for non-manilha cards: 4 weakest, 3 strongest.
const (
	RankFour  uint8 = 0
	RankFive  uint8 = 1
	RankSix   uint8 = 2
	RankSeven uint8 = 3
	RankQueen uint8 = 4
	RankJack  uint8 = 5
	RankKing  uint8 = 6
	RankAce   uint8 = 7
	RankTwo   uint8 = 8
	RankThree uint8 = 9
)

const (
	NumRanks = 10
	NumSuits = 4
	DeckSize = NumRanks * NumSuits // 40
)

// Card is a packed uint8: upper 4 bits = suit, lower 4 bits = rank.
type Card uint8

// EmptyCard represents the absence of a card.
const EmptyCard Card = 0xFF

// NewCard constructs a Card from suit and rank.
func NewCard(suit, rank uint8) Card {
	return Card((suit << 4) | (rank & 0x0F))
}

// Suit returns the suit bits (upper 4).
func (c Card) Suit() uint8 { return uint8(c) >> 4 }

// Rank returns the rank bits (lower 4).
func (c Card) Rank() uint8 { return uint8(c) & 0x0F }

var rankNames = [NumRanks]string{"4", "5", "6", "7", "Q", "J", "K", "A", "2", "3"}
var suitNames = [NumSuits]string{"♦", "♠", "♥", "♣"}

// String renders the card the way the table shows it, e.g. "Q♥".
func (c Card) String() string {
	if c == EmptyCard {
		return "--"
	}
	r, s := c.Rank(), c.Suit()
	if r >= NumRanks || s >= NumSuits {
		return "??"
	}
	return rankNames[r] + suitNames[s]
}

// manilhaBaseStrength lifts every manilha above the strongest plain card.
const manilhaBaseStrength = 100

// Strength maps a card to its comparable strength for the given manilha rank.
// Manilha cards score 100 + suit (diamonds=0 … clubs=3) so any manilha beats
// any plain card and no two manilhas ever tie. Plain cards score their rank
// index, so equal ranks tie regardless of suit.
func Strength(c Card, manilha uint8) int {
	if c.Rank() == manilha {
		return manilhaBaseStrength + int(c.Suit())
	}
	return int(c.Rank())
}

// NextManilhaRank derives the manilha rank from the revealed middle card:
// the rank immediately above it, wrapping 3 back around to 4.
func NextManilhaRank(c Card) uint8 {
	return (c.Rank() + 1) % NumRanks
}
