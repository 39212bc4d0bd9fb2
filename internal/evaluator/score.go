package evaluator

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/lox/pokerroom/internal/deck"
)

// Category is the class of a made hand
type Category int

const (
	HighCard Category = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

// String returns the string representation of a category
func (c Category) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case OnePair:
		return "One Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	case RoyalFlush:
		return "Royal Flush"
	default:
		return "Unknown"
	}
}

// Score is the strength of a seven card hand. Exactly one category field is
// set for a made hand; folded seats score the zero value. Scores compare
// field by field in declaration order.
type Score struct {
	RoyalFlush    bool         `json:"royalFlush"`
	StraightFlush deck.Rank    `json:"straightFlush"`
	FourOfAKind   deck.Rank    `json:"fourOfAKind"`
	FullHouse     [2]deck.Rank `json:"fullHouse"`
	Flush         deck.Rank    `json:"flush"`
	Straight      deck.Rank    `json:"straight"`
	ThreeOfAKind  deck.Rank    `json:"threeOfAKind"`
	TwoPair       [2]deck.Rank `json:"twoPair"`
	OnePair       deck.Rank    `json:"onePair"`
	HighCard      [5]deck.Rank `json:"highCard"`
}

// Folded returns the score of a seat without cards. It loses to every made
// hand.
func Folded() Score {
	return Score{}
}

// straightMasks lists the five-rank windows from ace-high down to the wheel.
// Bit r is set for rank r, with the ace occupying both bit 14 and bit 1.
var straightMasks = func() [10]uint16 {
	var m [10]uint16
	for i := range m {
		high := int(deck.Ace) - i
		m[i] = uint16(0x1f) << (high - 4)
	}
	return m
}()

func rankMask(r deck.Rank) uint16 {
	m := uint16(1) << r
	if r == deck.Ace {
		m |= 1 << deck.LowAce
	}
	return m
}

// straightHigh returns the high rank of the best straight in mask, or zero.
func straightHigh(mask uint16) deck.Rank {
	for i, m := range straightMasks {
		if mask&m == m {
			return deck.Ace - deck.Rank(i)
		}
	}
	return 0
}

// Calculate scores the best five card hand that can be made from cards.
// It is written for seven cards but accepts any count; an empty hand
// scores as folded.
func Calculate(cards []deck.Card) Score {
	if len(cards) == 0 {
		return Folded()
	}

	var (
		counts    [deck.Ace + 1]int
		suitMasks [len(deck.Suits)]uint16
		all       uint16
	)
	for _, c := range cards {
		counts[c.Rank]++
		suitMasks[c.Suit] |= rankMask(c.Rank)
		all |= rankMask(c.Rank)
	}

	// Straight flush, per suit so the ace can play low.
	var best deck.Rank
	for _, m := range suitMasks {
		if h := straightHigh(m); h > best {
			best = h
		}
	}
	if best == deck.Ace {
		return Score{RoyalFlush: true}
	}
	if best > 0 {
		return Score{StraightFlush: best}
	}

	var quads, trips, pairs []deck.Rank
	for r := deck.Ace; r >= deck.Two; r-- {
		switch {
		case counts[r] >= 4:
			quads = append(quads, r)
		case counts[r] == 3:
			trips = append(trips, r)
		case counts[r] == 2:
			pairs = append(pairs, r)
		}
	}

	if len(quads) > 0 {
		return Score{FourOfAKind: quads[0]}
	}

	if len(trips) > 0 {
		// A second triple outranks any pair below it and plays as the pair.
		var pair deck.Rank
		if len(trips) > 1 {
			pair = trips[1]
		}
		if len(pairs) > 0 && pairs[0] > pair {
			pair = pairs[0]
		}
		if pair > 0 {
			return Score{FullHouse: [2]deck.Rank{trips[0], pair}}
		}
	}

	for _, m := range suitMasks {
		if bits.OnesCount16(m&^(1<<deck.LowAce)) >= 5 {
			return Score{Flush: deck.Rank(15 - bits.LeadingZeros16(m))}
		}
	}

	if h := straightHigh(all); h > 0 {
		return Score{Straight: h}
	}

	if len(trips) > 0 {
		return Score{ThreeOfAKind: trips[0]}
	}

	if len(pairs) >= 2 {
		return Score{TwoPair: [2]deck.Rank{pairs[0], pairs[1]}}
	}
	if len(pairs) == 1 {
		return Score{OnePair: pairs[0]}
	}

	var s Score
	n := 0
	for r := deck.Ace; r >= deck.Two && n < len(s.HighCard); r-- {
		if counts[r] > 0 {
			s.HighCard[n] = r
			n++
		}
	}
	return s
}

// Category returns the class of hand the score represents
func (s Score) Category() Category {
	switch {
	case s.RoyalFlush:
		return RoyalFlush
	case s.StraightFlush > 0:
		return StraightFlush
	case s.FourOfAKind > 0:
		return FourOfAKind
	case s.FullHouse[0] > 0:
		return FullHouse
	case s.Flush > 0:
		return Flush
	case s.Straight > 0:
		return Straight
	case s.ThreeOfAKind > 0:
		return ThreeOfAKind
	case s.TwoPair[0] > 0:
		return TwoPair
	case s.OnePair > 0:
		return OnePair
	default:
		return HighCard
	}
}

// IsFolded reports whether the score is the zero value
func (s Score) IsFolded() bool {
	return s == Score{}
}

// Compare returns -1 when s is weaker than other, 1 when it is stronger and
// 0 on a tie.
func (s Score) Compare(other Score) int {
	if s.RoyalFlush != other.RoyalFlush {
		if s.RoyalFlush {
			return 1
		}
		return -1
	}

	a := s.ranks()
	b := other.ranks()
	for i := range a {
		if a[i] != b[i] {
			if a[i] > b[i] {
				return 1
			}
			return -1
		}
	}
	return 0
}

// Less reports whether s is weaker than other
func (s Score) Less(other Score) bool {
	return s.Compare(other) < 0
}

// Equal reports whether s ties with other
func (s Score) Equal(other Score) bool {
	return s.Compare(other) == 0
}

// ranks flattens everything after the royal flag in comparison order
func (s Score) ranks() [15]deck.Rank {
	return [15]deck.Rank{
		s.StraightFlush,
		s.FourOfAKind,
		s.FullHouse[0], s.FullHouse[1],
		s.Flush,
		s.Straight,
		s.ThreeOfAKind,
		s.TwoPair[0], s.TwoPair[1],
		s.OnePair,
		s.HighCard[0], s.HighCard[1], s.HighCard[2], s.HighCard[3], s.HighCard[4],
	}
}

// String describes the hand, e.g. "Full house, kings over nines"
func (s Score) String() string {
	switch s.Category() {
	case RoyalFlush:
		return "Royal flush"
	case StraightFlush:
		return fmt.Sprintf("Straight flush, %s high", s.StraightFlush.Name())
	case FourOfAKind:
		return fmt.Sprintf("Four of a kind, %s", s.FourOfAKind.Plural())
	case FullHouse:
		return fmt.Sprintf("Full house, %s over %s", s.FullHouse[0].Plural(), s.FullHouse[1].Plural())
	case Flush:
		return fmt.Sprintf("Flush, %s high", s.Flush.Name())
	case Straight:
		return fmt.Sprintf("Straight, %s high", s.Straight.Name())
	case ThreeOfAKind:
		return fmt.Sprintf("Three of a kind, %s", s.ThreeOfAKind.Plural())
	case TwoPair:
		return fmt.Sprintf("Two pair, %s and %s", s.TwoPair[0].Plural(), s.TwoPair[1].Plural())
	case OnePair:
		return fmt.Sprintf("Pair of %s", s.OnePair.Plural())
	}

	if s.IsFolded() {
		return "Folded"
	}
	var parts []string
	for _, r := range s.HighCard {
		if r > 0 {
			parts = append(parts, r.String())
		}
	}
	return fmt.Sprintf("High card, %s high (%s)", s.HighCard[0].Name(), strings.Join(parts, " "))
}
