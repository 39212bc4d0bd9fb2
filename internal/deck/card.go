package deck

import (
	"fmt"
	"strings"
)

// Suit represents a card suit
type Suit int

const (
	Hearts Suit = iota
	Spades
	Clubs
	Diamonds
)

// Suits lists every suit in deck order
var Suits = [...]Suit{Hearts, Spades, Clubs, Diamonds}

// String returns the string representation of a suit
func (s Suit) String() string {
	switch s {
	case Hearts:
		return "hearts"
	case Spades:
		return "spades"
	case Clubs:
		return "clubs"
	case Diamonds:
		return "diamonds"
	default:
		return "unknown"
	}
}

// Symbol returns the unicode symbol for the suit
func (s Suit) Symbol() string {
	switch s {
	case Hearts:
		return "♥"
	case Spades:
		return "♠"
	case Clubs:
		return "♣"
	case Diamonds:
		return "♦"
	default:
		return "?"
	}
}

func (s Suit) char() byte {
	return "hscd"[s]
}

// MarshalText encodes the suit as its lowercase name
func (s Suit) MarshalText() ([]byte, error) {
	if s < Hearts || s > Diamonds {
		return nil, fmt.Errorf("invalid suit: %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText accepts either the suit name or its single character form
func (s *Suit) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "hearts", "h":
		*s = Hearts
	case "spades", "s":
		*s = Spades
	case "clubs", "c":
		*s = Clubs
	case "diamonds", "d":
		*s = Diamonds
	default:
		return fmt.Errorf("invalid suit: %q", text)
	}
	return nil
}

// Rank represents a card rank. Aces are high (14); straights also
// count them as LowAce.
type Rank int

const (
	LowAce Rank = 1
	Two    Rank = iota + 1
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

const rankChars = "A23456789TJQKA"

// String returns the string representation of a rank
func (r Rank) String() string {
	if r < LowAce || r > Ace {
		return "?"
	}
	return string(rankChars[r-1])
}

// Name returns the spoken name of the rank, e.g. "king"
func (r Rank) Name() string {
	switch r {
	case LowAce, Ace:
		return "ace"
	case Two:
		return "two"
	case Three:
		return "three"
	case Four:
		return "four"
	case Five:
		return "five"
	case Six:
		return "six"
	case Seven:
		return "seven"
	case Eight:
		return "eight"
	case Nine:
		return "nine"
	case Ten:
		return "ten"
	case Jack:
		return "jack"
	case Queen:
		return "queen"
	case King:
		return "king"
	default:
		return "unknown"
	}
}

// Plural returns the plural name of the rank, e.g. "sixes"
func (r Rank) Plural() string {
	if r == Six {
		return "sixes"
	}
	return r.Name() + "s"
}

// Card represents a playing card. Cards are plain values.
type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

// NewCard creates a new card
func NewCard(rank Rank, suit Suit) Card {
	return Card{Rank: rank, Suit: suit}
}

// String returns the two character form of the card, e.g. "Ah"
func (c Card) String() string {
	if c.Suit < Hearts || c.Suit > Diamonds {
		return c.Rank.String() + "?"
	}
	return c.Rank.String() + string(c.Suit.char())
}

// Pretty returns the card with a suit symbol, e.g. "A♥"
func (c Card) Pretty() string {
	return c.Rank.String() + c.Suit.Symbol()
}

// Valid reports whether the card is one of the 52 in a standard deck
func (c Card) Valid() bool {
	return c.Rank >= Two && c.Rank <= Ace && c.Suit >= Hearts && c.Suit <= Diamonds
}

// ParseCard parses a string like "As" or "Td" into a Card
func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return Card{}, fmt.Errorf("invalid card string: %q", s)
	}

	var rank Rank
	switch s[0] {
	case '2', '3', '4', '5', '6', '7', '8', '9':
		rank = Rank(s[0] - '0')
	case 'T', 't':
		rank = Ten
	case 'J', 'j':
		rank = Jack
	case 'Q', 'q':
		rank = Queen
	case 'K', 'k':
		rank = King
	case 'A', 'a':
		rank = Ace
	default:
		return Card{}, fmt.Errorf("invalid rank: %c", s[0])
	}

	var suit Suit
	if err := suit.UnmarshalText([]byte{s[1]}); err != nil {
		return Card{}, err
	}

	return NewCard(rank, suit), nil
}

// ParseCards parses a run of cards such as "AhKhQh" or "Ah Kh Qh"
func ParseCards(s string) ([]Card, error) {
	s = strings.Join(strings.Fields(s), "")
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("invalid cards string: %q", s)
	}

	cards := make([]Card, 0, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		card, err := ParseCard(s[i : i+2])
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// MustParseCards is like ParseCards but panics on error
func MustParseCards(s string) []Card {
	cards, err := ParseCards(s)
	if err != nil {
		panic(err)
	}
	return cards
}

// FormatCards joins the cards with spaces
func FormatCards(cards []Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
