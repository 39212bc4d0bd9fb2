package evaluator

import (
	"context"
	"fmt"
	rand "math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/lox/pokerroom/internal/deck"
	"github.com/lox/pokerroom/internal/randutil"
)

// CardSet represents a set of cards using a bitset for fast operations.
// Each card maps to a bit: index = (rank-2)*4 + suit
type CardSet uint64

func cardIndex(card deck.Card) int {
	return int(card.Rank-deck.Two)*4 + int(card.Suit)
}

// Add adds a card to the set
func (cs *CardSet) Add(card deck.Card) {
	*cs |= 1 << cardIndex(card)
}

// Contains checks if a card is in the set
func (cs CardSet) Contains(card deck.Card) bool {
	return cs&(1<<cardIndex(card)) != 0
}

// NewCardSet creates a CardSet from a slice of cards
func NewCardSet(cards ...deck.Card) CardSet {
	var cs CardSet
	for _, card := range cards {
		cs.Add(card)
	}
	return cs
}

// Remaining returns every card of a standard deck that is not in the set
func (cs CardSet) Remaining() []deck.Card {
	cards := make([]deck.Card, 0, deck.Size)
	for _, suit := range deck.Suits {
		for rank := deck.Two; rank <= deck.Ace; rank++ {
			if c := deck.NewCard(rank, suit); !cs.Contains(c) {
				cards = append(cards, c)
			}
		}
	}
	return cards
}

// parallelThreshold is the sample count below which workers cost more than
// they save.
const parallelThreshold = 500

type equityResult struct {
	wins    float64
	samples int
}

// Equity estimates the share of the pot hole can expect at showdown against
// the given number of opponents holding random cards, by Monte Carlo
// simulation. Ties count as a split share. Large sample counts are spread
// across workers, each with its own generator seeded from rng.
func Equity(ctx context.Context, hole, board []deck.Card, opponents, samples int, rng *rand.Rand) (float64, error) {
	if len(hole) != 2 {
		return 0, fmt.Errorf("equity needs 2 hole cards, got %d", len(hole))
	}
	if len(board) > 5 {
		return 0, fmt.Errorf("board has %d cards", len(board))
	}
	// Every sample deals a full board and two cards per opponent.
	if opponents < 1 || 2+5+2*opponents > deck.Size {
		return 0, fmt.Errorf("invalid opponent count %d", opponents)
	}
	if samples <= 0 {
		return 0, nil
	}

	available := NewCardSet(append(hole[:2:2], board...)...).Remaining()

	workers := 1
	if samples >= parallelThreshold {
		workers = min(runtime.NumCPU(), 8)
	}

	results := make([]equityResult, workers)
	g, ctx := errgroup.WithContext(ctx)
	for w := range workers {
		n := samples / workers
		if w < samples%workers {
			n++
		}
		workerRng := randutil.New(rng.Int64())

		g.Go(func() error {
			res, err := runEquityWorker(ctx, hole, board, available, opponents, n, workerRng)
			results[w] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var total equityResult
	for _, r := range results {
		total.wins += r.wins
		total.samples += r.samples
	}
	if total.samples == 0 {
		return 0, nil
	}
	return total.wins / float64(total.samples), nil
}

// runEquityWorker plays out samples random deals and accumulates hole's share
func runEquityWorker(ctx context.Context, hole, board, available []deck.Card, opponents, samples int, rng *rand.Rand) (equityResult, error) {
	var res equityResult

	pool := make([]deck.Card, len(available))
	need := 2*opponents + 5 - len(board)
	hand := make([]deck.Card, 7)
	copy(hand[2:], board)

	for i := 0; i < samples; i++ {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
		}

		// Partial Fisher-Yates over a fresh copy of the unseen cards.
		copy(pool, available)
		for j := 0; j < need; j++ {
			k := j + rng.IntN(len(pool)-j)
			pool[j], pool[k] = pool[k], pool[j]
		}
		copy(hand[2+len(board):], pool[2*opponents:need])

		copy(hand[:2], hole)
		hero := Calculate(hand)

		best, tied := true, 1
		for o := 0; o < opponents && best; o++ {
			copy(hand[:2], pool[2*o:2*o+2])
			switch Calculate(hand).Compare(hero) {
			case 1:
				best = false
			case 0:
				tied++
			}
		}
		if best {
			res.wins += 1 / float64(tied)
		}
		res.samples++
	}
	return res, nil
}
