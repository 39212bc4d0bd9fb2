package game

import (
	"fmt"
	"strings"
)

// Variant selects the table's wagering limits
type Variant int

const (
	NoLimit Variant = iota
	FixedLimit
	PotLimit
)

var variantNames = [...]string{"no-limit", "fixed-limit", "pot-limit"}

// String returns the string representation of a variant
func (v Variant) String() string {
	if v < 0 || int(v) >= len(variantNames) {
		return "unknown"
	}
	return variantNames[v]
}

// Variants returns every supported variant
func Variants() []Variant {
	return []Variant{NoLimit, FixedLimit, PotLimit}
}

// ParseVariant parses a variant name. Underscores and the short forms
// "nl", "fl" and "pl" are accepted.
func ParseVariant(s string) (Variant, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-") {
	case "no-limit", "nolimit", "nl":
		return NoLimit, nil
	case "fixed-limit", "fixedlimit", "limit", "fl":
		return FixedLimit, nil
	case "pot-limit", "potlimit", "pl":
		return PotLimit, nil
	}
	return 0, fmt.Errorf("unknown variant %q", s)
}

// MarshalText encodes the variant as its name
func (v Variant) MarshalText() ([]byte, error) {
	if v < 0 || int(v) >= len(variantNames) {
		return nil, fmt.Errorf("invalid variant: %d", int(v))
	}
	return []byte(v.String()), nil
}

// UnmarshalText decodes a variant name
func (v *Variant) UnmarshalText(text []byte) error {
	parsed, err := ParseVariant(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Street is a betting round within a hand
type Street int

const (
	Preflop Street = iota
	Flop
	Turn
	River
)

var streetNames = [...]string{"preflop", "flop", "turn", "river"}

func (s Street) String() string {
	if s < 0 || int(s) >= len(streetNames) {
		return "unknown"
	}
	return streetNames[s]
}

// MarshalText encodes the street as its name
func (s Street) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(streetNames) {
		return nil, fmt.Errorf("invalid street: %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a street name
func (s *Street) UnmarshalText(text []byte) error {
	for i, name := range streetNames {
		if name == string(text) {
			*s = Street(i)
			return nil
		}
	}
	return fmt.Errorf("invalid street: %q", text)
}

// boardCards is the number of community cards revealed when the street opens
func (s Street) boardCards() int {
	switch s {
	case Flop:
		return 3
	case Turn, River:
		return 1
	}
	return 0
}

const (
	// MinSeats is the smallest table that can be played
	MinSeats = 2
	// MaxSeats is the largest table a single deck can deal
	MaxSeats = 22

	// maxFixedLimitBets caps the bets and raises per street in fixed limit
	maxFixedLimitBets = 4
)

// Config holds the table settings that stay fixed for its lifetime
type Config struct {
	Variant    Variant `json:"variant"`
	SmallBlind int     `json:"smallBlind"`
	BigBlind   int     `json:"bigBlind"`
}

// Validate checks the blinds and variant
func (c Config) Validate() error {
	if c.SmallBlind <= 0 {
		return fmt.Errorf("%w: small blind must be positive, got %d", ErrInvalidConfig, c.SmallBlind)
	}
	if c.BigBlind < c.SmallBlind {
		return fmt.Errorf("%w: big blind %d is below small blind %d", ErrInvalidConfig, c.BigBlind, c.SmallBlind)
	}
	if c.Variant < NoLimit || c.Variant > PotLimit {
		return fmt.Errorf("%w: unknown variant %d", ErrInvalidConfig, int(c.Variant))
	}
	return nil
}

// limits tracks the raise rules for one betting street
type limits struct {
	variant  Variant
	unit     int // fixed limit bet size
	minRaise int // smallest legal increment
	bets     int // bets and raises so far, fixed limit only
}

func newLimits(cfg Config, street Street) *limits {
	l := &limits{
		variant:  cfg.Variant,
		unit:     cfg.BigBlind,
		minRaise: cfg.BigBlind,
	}
	if street >= Turn {
		l.unit = 2 * cfg.BigBlind
	}
	if cfg.Variant == FixedLimit {
		l.minRaise = l.unit
		if street == Preflop {
			// The big blind is the first bet.
			l.bets = 1
		}
	}
	return l
}

// raiseRange returns the legal raise increments for a seat. max is zero when
// the seat may not raise. pot is every chip already in the middle, current
// street bets included.
func (l *limits) raiseRange(stack, toCall, pot int) (lo, hi int) {
	afford := stack - toCall
	switch l.variant {
	case FixedLimit:
		if l.bets >= maxFixedLimitBets || afford < l.unit {
			return l.unit, 0
		}
		return l.unit, l.unit
	case PotLimit:
		hi = min(afford, pot+toCall)
	default:
		hi = afford
	}
	if hi < l.minRaise {
		return l.minRaise, 0
	}
	return l.minRaise, hi
}

// check validates a raise of x on top of the current maximum bet
func (l *limits) check(x, stack, toCall, pot int) error {
	if x <= 0 {
		return fmt.Errorf("%w: raise must be positive, got %d", ErrBetNotAllowed, x)
	}
	if cost := toCall + x; cost > stack {
		return fmt.Errorf("%w: raise of %d costs %d with %d behind: %w", ErrBetNotAllowed, x, cost, stack, ErrInsufficientStack)
	}

	switch l.variant {
	case FixedLimit:
		if l.bets >= maxFixedLimitBets {
			return fmt.Errorf("%w: street is capped at %d bets", ErrBetNotAllowed, maxFixedLimitBets)
		}
		if x != l.unit {
			return fmt.Errorf("%w: fixed limit raise must be %d, got %d", ErrBetNotAllowed, l.unit, x)
		}
		return nil
	case PotLimit:
		if limit := pot + toCall; x > limit {
			return fmt.Errorf("%w: pot limit raise is at most %d, got %d", ErrBetNotAllowed, limit, x)
		}
	}

	if x < l.minRaise {
		return fmt.Errorf("%w: minimum raise is %d, got %d", ErrBetNotAllowed, l.minRaise, x)
	}
	return nil
}

// record notes an accepted raise of x
func (l *limits) record(x int) {
	l.bets++
	if l.variant != FixedLimit && x > l.minRaise {
		l.minRaise = x
	}
}
