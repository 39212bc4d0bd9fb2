package game

import (
	"fmt"

	"github.com/lox/pokerroom/internal/deck"
)

// Seat is one position at the table. Its stack carries across rounds; its
// hole cards and bet are reset every round.
type Seat struct {
	hole  [2]deck.Card
	dealt bool
	stack int
	bet   int
}

// NewSeat creates a seat with the given stack
func NewSeat(stack int) Seat {
	return Seat{stack: stack}
}

// Stack returns the chips behind the seat's current bet
func (s Seat) Stack() int { return s.stack }

// Bet returns the chips committed during the current street
func (s Seat) Bet() int { return s.bet }

// Hole returns the seat's hole cards and whether it holds any
func (s Seat) Hole() ([2]deck.Card, bool) { return s.hole, s.dealt }

// HasCards reports whether the seat was dealt in and has not folded
func (s Seat) HasCards() bool { return s.dealt }

// Call raises the seat's bet to target. A seat that cannot cover target goes
// all-in for whatever it has left.
func (s *Seat) Call(target int) {
	if target <= s.bet {
		return
	}
	target = min(target, s.stack+s.bet)
	s.stack -= target - s.bet
	s.bet = target
}

// Raise moves amount from the stack into the bet. It fails without changing
// the seat if the stack cannot cover it.
func (s *Seat) Raise(amount int) error {
	if amount < 0 || amount > s.stack {
		return fmt.Errorf("%w: need %d, have %d", ErrInsufficientStack, amount, s.stack)
	}
	s.stack -= amount
	s.bet += amount
	return nil
}

// Fold gives up the seat's hole cards for the rest of the round
func (s *Seat) Fold() {
	s.hole = [2]deck.Card{}
	s.dealt = false
}

// YieldBet returns the seat's bet for collection and resets it
func (s *Seat) YieldBet() int {
	bet := s.bet
	s.bet = 0
	return bet
}

// CanAct reports whether the seat holds cards and has chips left to bet
func (s Seat) CanAct() bool {
	return s.dealt && s.stack > 0
}

// IsActive reports whether the seat has any chips to play with
func (s Seat) IsActive() bool {
	return s.stack+s.bet > 0
}

func (s *Seat) deal(cards [2]deck.Card) {
	s.hole = cards
	s.dealt = true
}
