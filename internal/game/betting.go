package game

import (
	"context"
	"fmt"
	"slices"
)

// bettingStreet runs passes over the seats until a full pass leaves every
// bet unchanged.
func (t *Table) bettingStreet(ctx context.Context, street Street) error {
	n := len(t.seats)
	first := (t.dealer + 1) % n
	if street == Preflop {
		if n == 2 {
			first = t.dealer
		} else {
			first = (t.dealer + 3) % n
		}
	}

	lim := newLimits(t.cfg, street)
	for {
		changed := false
		for i := range n {
			idx := (first + i) % n
			if t.contenders() < 2 {
				return nil
			}

			seat := &t.seats[idx]
			if !seat.CanAct() {
				continue
			}
			high := t.highestBet()
			if seat.bet >= high && t.actionable() == 1 {
				// Nobody left to bet against.
				continue
			}

			before := seat.bet
			if err := t.act(ctx, street, idx, high, lim); err != nil {
				return err
			}
			if t.seats[idx].bet != before {
				changed = true
			}
		}
		if !changed {
			return nil
		}
	}
}

// act requests and applies one decision. A rejected raise leaves the seat
// untouched.
func (t *Table) act(ctx context.Context, street Street, idx, high int, lim *limits) error {
	seat := &t.seats[idx]
	toCall := high - seat.bet
	pot := t.pot + t.streetBets()
	lo, hi := lim.raiseRange(seat.stack, toCall, pot)
	opponents := t.actionable() - 1
	if opponents == 0 {
		hi = 0
	}
	hole, _ := seat.Hole()

	req := ActionRequested{
		Round:    t.round,
		Seat:     idx,
		Street:   street,
		Bets:     t.snapshot(),
		Pot:      t.pot,
		Stack:    seat.stack,
		ToCall:   min(toCall, seat.stack),
		MinRaise: lo,
		MaxRaise: hi,
		Hole:     hole,
		Board:    slices.Clone(t.board),
	}
	resp, err := t.emit(ctx, idx, req)
	if err != nil {
		return err
	}

	switch resp.Action {
	case ActionFold:
		seat.Fold()
	case ActionCall:
		seat.Call(high)
	case ActionRaise:
		if opponents == 0 {
			return &Fault{Seat: idx, Kind: BetNotAllowed, Err: fmt.Errorf("%w: no opponent can call a raise", ErrBetNotAllowed)}
		}
		if err := lim.check(resp.Amount, seat.stack, toCall, pot); err != nil {
			return &Fault{Seat: idx, Kind: BetNotAllowed, Err: err}
		}
		if err := seat.Raise(toCall + resp.Amount); err != nil {
			return &Fault{Seat: idx, Kind: BetNotAllowed, Err: fmt.Errorf("%w: %w", ErrBetNotAllowed, err)}
		}
		lim.record(resp.Amount)
	default:
		return &Fault{
			Seat: idx,
			Kind: InvalidResponse,
			Err:  fmt.Errorf("%w: %q answering an action request", ErrInvalidResponse, resp.Action),
		}
	}

	t.logger.Debug("seat acted", "round", t.round, "street", street, "seat", idx, "action", resp, "bet", seat.bet, "stack", seat.stack)
	return nil
}

// snapshot returns every seat's bet and whether it is out of the hand
func (t *Table) snapshot() []SeatBet {
	bets := make([]SeatBet, len(t.seats))
	for i, s := range t.seats {
		bets[i] = SeatBet{Bet: s.bet, Stack: s.stack, Folded: !s.HasCards()}
	}
	return bets
}

// collect moves every bet into the pot
func (t *Table) collect() {
	for i := range t.seats {
		t.pot += t.seats[i].YieldBet()
	}
}

func (t *Table) highestBet() int {
	high := 0
	for _, s := range t.seats {
		high = max(high, s.bet)
	}
	return high
}

func (t *Table) streetBets() int {
	total := 0
	for _, s := range t.seats {
		total += s.bet
	}
	return total
}

// contenders counts the seats still holding cards
func (t *Table) contenders() int {
	n := 0
	for _, s := range t.seats {
		if s.HasCards() {
			n++
		}
	}
	return n
}

// actionable counts the seats that can still put chips in
func (t *Table) actionable() int {
	n := 0
	for _, s := range t.seats {
		if s.CanAct() {
			n++
		}
	}
	return n
}
