package game

import (
	"context"
	"fmt"

	"github.com/lox/pokerroom/internal/deck"
	"github.com/lox/pokerroom/internal/evaluator"
)

// Boundary is the table's only link to the outside world. Handle is called
// synchronously for every event; only ActionRequested expects a non-zero
// Response. Timeouts and transport concerns belong to the implementation,
// which must answer or fail rather than block forever.
type Boundary interface {
	Handle(ctx context.Context, ev Event) (Response, error)
}

// BoundaryFunc adapts a function to the Boundary interface
type BoundaryFunc func(ctx context.Context, ev Event) (Response, error)

// Handle calls f(ctx, ev)
func (f BoundaryFunc) Handle(ctx context.Context, ev Event) (Response, error) {
	return f(ctx, ev)
}

// EventKind names an event on the wire
type EventKind string

const (
	KindHoleDealt       EventKind = "hole_dealt"
	KindStreetRevealed  EventKind = "street_revealed"
	KindActionRequested EventKind = "action_requested"
	KindShowdown        EventKind = "showdown"
	KindRoundFault      EventKind = "round_fault"
	KindTableEnded      EventKind = "table_ended"
)

// Event is something the table reports to its Boundary
type Event interface {
	Kind() EventKind
}

// HoleDealt tells one seat its hole cards
type HoleDealt struct {
	Round int          `json:"round"`
	Seat  int          `json:"seat"`
	Cards [2]deck.Card `json:"cards"`
}

// StreetRevealed announces new community cards
type StreetRevealed struct {
	Round  int         `json:"round"`
	Street Street      `json:"street"`
	Cards  []deck.Card `json:"cards"`
	Board  []deck.Card `json:"board"`
}

// SeatBet is one seat's position at the moment of an action request
type SeatBet struct {
	Bet    int  `json:"bet"`
	Stack  int  `json:"stack"`
	Folded bool `json:"folded"`
}

// ActionRequested asks a seat to fold, call or raise. Pot holds the chips
// collected on earlier streets; the current street's chips are in Bets.
// MaxRaise is zero when the seat may not raise.
type ActionRequested struct {
	Round    int          `json:"round"`
	Seat     int          `json:"seat"`
	Street   Street       `json:"street"`
	Bets     []SeatBet    `json:"bets"`
	Pot      int          `json:"pot"`
	Stack    int          `json:"stack"`
	ToCall   int          `json:"toCall"`
	MinRaise int          `json:"minRaise"`
	MaxRaise int          `json:"maxRaise"`
	Hole     [2]deck.Card `json:"hole"`
	Board    []deck.Card  `json:"board"`
}

// CanRaise reports whether any raise is legal
func (e ActionRequested) CanRaise() bool {
	return e.MaxRaise > 0
}

// Hand is a contender's cards revealed at showdown
type Hand struct {
	Seat  int             `json:"seat"`
	Cards [2]deck.Card    `json:"cards"`
	Score evaluator.Score `json:"score"`
}

// Showdown reports how a round's pot was split. Breakage is the remainder
// of the split that no seat receives.
type Showdown struct {
	Round    int             `json:"round"`
	Score    evaluator.Score `json:"score"`
	Pot      int             `json:"pot"`
	Winners  []int           `json:"winners"`
	Hands    []Hand          `json:"hands"`
	Board    []deck.Card     `json:"board"`
	Stacks   []int           `json:"stacks"`
	Breakage int             `json:"breakage"`
}

// RoundFault reports the seat whose fault aborted the round
type RoundFault struct {
	Round  int       `json:"round"`
	Seat   int       `json:"seat"`
	Fault  FaultKind `json:"fault"`
	Reason string    `json:"reason"`
}

// TableEnded is always the last event a table sends
type TableEnded struct {
	Rounds  int   `json:"rounds"`
	Stacks  []int `json:"stacks"`
	Faulted bool  `json:"faulted"`
}

func (HoleDealt) Kind() EventKind       { return KindHoleDealt }
func (StreetRevealed) Kind() EventKind  { return KindStreetRevealed }
func (ActionRequested) Kind() EventKind { return KindActionRequested }
func (Showdown) Kind() EventKind        { return KindShowdown }
func (RoundFault) Kind() EventKind      { return KindRoundFault }
func (TableEnded) Kind() EventKind      { return KindTableEnded }

// ActionKind is a seat's decision
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionFold
	ActionCall
	ActionRaise
)

var actionNames = [...]string{"", "fold", "call", "raise"}

func (a ActionKind) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return "unknown"
	}
	if a == ActionNone {
		return "none"
	}
	return actionNames[a]
}

// MarshalText encodes the action as its name; ActionNone is empty
func (a ActionKind) MarshalText() ([]byte, error) {
	if a < 0 || int(a) >= len(actionNames) {
		return nil, fmt.Errorf("invalid action: %d", int(a))
	}
	return []byte(actionNames[a]), nil
}

// UnmarshalText decodes an action name. Unknown names decode to ActionNone
// so the table reports them as an invalid response.
func (a *ActionKind) UnmarshalText(text []byte) error {
	*a = ActionNone
	for i, name := range actionNames {
		if name == string(text) {
			*a = ActionKind(i)
		}
	}
	return nil
}

// Response answers an event. Only ActionRequested needs a non-zero value;
// Amount is the raise increment on top of the highest bet.
type Response struct {
	Action ActionKind `json:"action"`
	Amount int        `json:"amount,omitempty"`
}

// FoldAction folds the hand
func FoldAction() Response { return Response{Action: ActionFold} }

// CallAction matches the highest bet, or checks when already matched
func CallAction() Response { return Response{Action: ActionCall} }

// RaiseBy raises the highest bet by amount
func RaiseBy(amount int) Response { return Response{Action: ActionRaise, Amount: amount} }

func (r Response) String() string {
	if r.Action == ActionRaise {
		return fmt.Sprintf("raise %d", r.Amount)
	}
	return r.Action.String()
}
