package bot

import (
	"context"
	"fmt"

	"github.com/lox/pokerroom/internal/game"
)

// Local is a game.Boundary that answers every action request in process
// with the strategy assigned to the seat.
type Local struct {
	strategies []Strategy
	observers  []func(game.Event)
}

// LocalOption configures a Local boundary
type LocalOption func(*Local)

// WithObserver calls fn with every event before it is answered
func WithObserver(fn func(game.Event)) LocalOption {
	return func(l *Local) { l.observers = append(l.observers, fn) }
}

// NewLocal seats one strategy per table seat
func NewLocal(strategies []Strategy, opts ...LocalOption) *Local {
	l := &Local{strategies: strategies}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Handle implements game.Boundary
func (l *Local) Handle(ctx context.Context, ev game.Event) (game.Response, error) {
	for _, fn := range l.observers {
		fn(ev)
	}

	req, ok := ev.(game.ActionRequested)
	if !ok {
		return game.Response{}, nil
	}
	if req.Seat < 0 || req.Seat >= len(l.strategies) {
		return game.Response{}, fmt.Errorf("no strategy for seat %d", req.Seat)
	}
	if err := ctx.Err(); err != nil {
		return game.Response{}, err
	}
	return l.strategies[req.Seat].Decide(req), nil
}

// Tally accumulates per-seat results from a table's events
type Tally struct {
	Rounds    int
	Showdowns int
	Wins      []int
	Splits    []int
	Breakage  int
	Faults    []game.RoundFault
	Final     []int
}

// NewTally creates a tally for n seats
func NewTally(n int) *Tally {
	return &Tally{Wins: make([]int, n), Splits: make([]int, n)}
}

// Observe records an event. Pass it to WithObserver.
func (t *Tally) Observe(ev game.Event) {
	switch e := ev.(type) {
	case game.Showdown:
		t.Rounds++
		if len(e.Hands) > 0 {
			t.Showdowns++
		}
		t.Breakage += e.Breakage
		for _, w := range e.Winners {
			if len(e.Winners) == 1 {
				t.Wins[w]++
			} else {
				t.Splits[w]++
			}
		}
	case game.RoundFault:
		t.Faults = append(t.Faults, e)
	case game.TableEnded:
		t.Final = append([]int(nil), e.Stacks...)
	}
}
