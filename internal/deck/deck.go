package deck

import (
	rand "math/rand/v2"

	"github.com/lox/pokerroom/internal/randutil"
)

// Size is the number of cards in a standard deck
const Size = 52

// Deck represents a shuffled deck of playing cards. A Deck is owned by a
// single round and is not safe for concurrent use.
type Deck struct {
	cards []Card
}

// New creates a full 52-card deck shuffled with rng. A nil rng falls back to
// a time-seeded generator.
func New(rng *rand.Rand) *Deck {
	if rng == nil {
		rng = randutil.NewFromTime()
	}

	d := &Deck{cards: make([]Card, 0, Size)}
	for _, suit := range Suits {
		for rank := Two; rank <= Ace; rank++ {
			d.cards = append(d.cards, NewCard(rank, suit))
		}
	}

	// Fisher-Yates
	for i := len(d.cards) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
	return d
}

// NewStacked creates a deck that deals the given cards first, in order,
// followed by the remaining cards of a standard deck in a fixed order.
// It is intended for tests and replaying known deals.
func NewStacked(top ...Card) *Deck {
	used := make(map[Card]bool, len(top))
	cards := make([]Card, 0, Size)
	for _, c := range top {
		if !c.Valid() || used[c] {
			panic("deck: stacked deck has invalid or duplicate card " + c.String())
		}
		used[c] = true
		cards = append(cards, c)
	}
	for _, suit := range Suits {
		for rank := Two; rank <= Ace; rank++ {
			if c := NewCard(rank, suit); !used[c] {
				cards = append(cards, c)
			}
		}
	}

	// Draw takes from the end of the slice, so store in reverse.
	for i, j := 0, len(cards)-1; i < j; i, j = i+1, j-1 {
		cards[i], cards[j] = cards[j], cards[i]
	}
	return &Deck{cards: cards}
}

// Draw removes and returns the top card. Drawing from an empty deck is a
// programming error and panics.
func (d *Deck) Draw() Card {
	n := len(d.cards)
	if n == 0 {
		panic("deck: drew a card from an empty deck")
	}
	card := d.cards[n-1]
	d.cards = d.cards[:n-1]
	return card
}

// DrawN draws n cards
func (d *Deck) DrawN(n int) []Card {
	cards := make([]Card, n)
	for i := range cards {
		cards[i] = d.Draw()
	}
	return cards
}

// Remaining returns the number of cards left in the deck
func (d *Deck) Remaining() int {
	return len(d.cards)
}
