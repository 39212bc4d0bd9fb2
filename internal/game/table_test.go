package game

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerroom/internal/deck"
	"github.com/lox/pokerroom/internal/evaluator"
	"github.com/lox/pokerroom/internal/randutil"
)

// recorder is a Boundary that records every event and answers action
// requests with decide. A nil decide calls everything.
type recorder struct {
	events []Event
	decide func(ActionRequested) Response
	fail   func(Event) error
}

func (r *recorder) Handle(_ context.Context, ev Event) (Response, error) {
	r.events = append(r.events, ev)
	if r.fail != nil {
		if err := r.fail(ev); err != nil {
			return Response{}, err
		}
	}
	req, ok := ev.(ActionRequested)
	if !ok {
		return Response{}, nil
	}
	if r.decide == nil {
		return CallAction(), nil
	}
	return r.decide(req), nil
}

func (r *recorder) last() Event {
	return r.events[len(r.events)-1]
}

func eventsOf[T Event](events []Event) []T {
	var out []T
	for _, ev := range events {
		if e, ok := ev.(T); ok {
			out = append(out, e)
		}
	}
	return out
}

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func newTestTable(t *testing.T, cfg Config, stacks []int, b Boundary, opts ...Option) *Table {
	t.Helper()
	opts = append([]Option{WithLogger(testLogger()), WithRand(randutil.New(1))}, opts...)
	table, err := New(cfg, stacks, b, opts...)
	require.NoError(t, err)
	return table
}

func stackedDecks(cards string) Option {
	return WithDecks(func() *deck.Deck {
		return deck.NewStacked(deck.MustParseCards(cards)...)
	})
}

func sum(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}

var blinds = Config{Variant: NoLimit, SmallBlind: 1, BigBlind: 2}

func TestNewValidation(t *testing.T) {
	b := &recorder{}

	_, err := New(blinds, []int{100}, b)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(blinds, make([]int, MaxSeats+1), b)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(blinds, []int{100, -1}, b)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(blinds, []int{100, 100}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(blinds, []int{100, 100}, b, WithDealer(2))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(Config{SmallBlind: 0, BigBlind: 2}, []int{100, 100}, b)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestHeadsUpBlinds(t *testing.T) {
	var first *ActionRequested
	b := &recorder{decide: func(req ActionRequested) Response {
		if first == nil {
			first = &req
		}
		return FoldAction()
	}}
	table := newTestTable(t, blinds, []int{100, 100}, b)

	require.NoError(t, table.PlayNRounds(context.Background(), 1))

	// The dealer posts the small blind and acts first.
	require.NotNil(t, first)
	assert.Equal(t, 0, first.Seat)
	assert.Equal(t, Preflop, first.Street)
	assert.Equal(t, SeatBet{Bet: 1, Stack: 99}, first.Bets[0])
	assert.Equal(t, SeatBet{Bet: 2, Stack: 98}, first.Bets[1])
	assert.Equal(t, 1, first.ToCall)
	assert.Equal(t, 2, first.MinRaise)
	assert.Equal(t, 98, first.MaxRaise)

	showdowns := eventsOf[Showdown](b.events)
	require.Len(t, showdowns, 1)
	assert.Equal(t, []int{1}, showdowns[0].Winners)
	assert.Equal(t, 3, showdowns[0].Pot)
	assert.Equal(t, []int{99, 101}, table.Stacks())
	assert.Equal(t, 1, table.Dealer())
}

func TestThreeHandedActionOrder(t *testing.T) {
	var order []int
	var streets []Street
	b := &recorder{decide: func(req ActionRequested) Response {
		order = append(order, req.Seat)
		streets = append(streets, req.Street)
		return CallAction()
	}}
	table := newTestTable(t, blinds, []int{100, 100, 100}, b)
	require.NoError(t, table.PlayNRounds(context.Background(), 1))

	// Preflop: seat 0 is first after the blinds in seats 1 and 2, then a
	// second pass confirms nothing changed.
	require.GreaterOrEqual(t, len(order), 6)
	assert.Equal(t, []int{0, 1, 2, 0, 1, 2}, order[:6])

	// Every later street opens left of the dealer.
	for i, s := range streets {
		if s != Preflop && (i == 0 || streets[i-1] != s) {
			assert.Equal(t, 1, order[i], "first actor on %s", s)
		}
	}
	assert.Equal(t, 300, sum(table.Stacks())+sumBreakage(b.events))
}

func TestRoyalFlushWinsShowdown(t *testing.T) {
	// Heads-up deal order: seat 1, seat 0, then the board.
	b := &recorder{}
	table := newTestTable(t, blinds, []int{100, 100}, b, stackedDecks("2c7d AhKh QhJhTh3s4d"))

	require.NoError(t, table.PlayNRounds(context.Background(), 1))

	showdowns := eventsOf[Showdown](b.events)
	require.Len(t, showdowns, 1)
	sd := showdowns[0]
	assert.Equal(t, []int{0}, sd.Winners)
	assert.True(t, sd.Score.RoyalFlush)
	assert.Equal(t, 4, sd.Pot)
	assert.Len(t, sd.Hands, 2)
	assert.Equal(t, deck.MustParseCards("QhJhTh3s4d"), sd.Board)
	assert.Equal(t, []int{102, 98}, sd.Stacks)

	revealed := eventsOf[StreetRevealed](b.events)
	require.Len(t, revealed, 3)
	assert.Equal(t, []Street{Flop, Turn, River}, []Street{revealed[0].Street, revealed[1].Street, revealed[2].Street})
	assert.Len(t, revealed[0].Cards, 3)
	assert.Len(t, revealed[2].Board, 5)

	dealt := eventsOf[HoleDealt](b.events)
	require.Len(t, dealt, 2)
	assert.Equal(t, 1, dealt[0].Seat)
	assert.Equal(t, [2]deck.Card{deck.NewCard(deck.Ace, deck.Hearts), deck.NewCard(deck.King, deck.Hearts)}, dealt[1].Cards)
}

func TestSplitPotBreakage(t *testing.T) {
	cfg := Config{Variant: NoLimit, SmallBlind: 3, BigBlind: 5}
	b := &recorder{decide: func(req ActionRequested) Response {
		if req.Seat == 1 {
			return FoldAction()
		}
		return CallAction()
	}}
	// Deal order is seat 1, seat 2, seat 0, then a royal flush board.
	table := newTestTable(t, cfg, []int{100, 100, 100}, b, stackedDecks("2c3c 4d5d 7h8h AsKsQsJsTs"))

	require.NoError(t, table.PlayNRounds(context.Background(), 1))

	sd := eventsOf[Showdown](b.events)[0]
	assert.Equal(t, 13, sd.Pot)
	assert.Equal(t, []int{0, 2}, sd.Winners)
	assert.Equal(t, 1, sd.Breakage)
	assert.Equal(t, []int{101, 97, 101}, table.Stacks())
	assert.Equal(t, 300, sum(table.Stacks())+sd.Breakage)
}

func TestUncontestedPotGoesToLastSeat(t *testing.T) {
	b := &recorder{decide: func(ActionRequested) Response { return FoldAction() }}
	table := newTestTable(t, blinds, []int{100, 100, 100, 100}, b)

	require.NoError(t, table.PlayNRounds(context.Background(), 1))

	// Seats 3, 0 and 1 fold around to the big blind in seat 2.
	requested := eventsOf[ActionRequested](b.events)
	require.Len(t, requested, 3)
	assert.Equal(t, 3, requested[0].Seat)
	assert.Equal(t, 0, requested[1].Seat)
	assert.Equal(t, 1, requested[2].Seat)

	assert.Empty(t, eventsOf[StreetRevealed](b.events))

	sd := eventsOf[Showdown](b.events)[0]
	assert.Equal(t, []int{2}, sd.Winners)
	assert.Equal(t, evaluator.Folded(), sd.Score)
	assert.Empty(t, sd.Hands)
	assert.Equal(t, []int{100, 99, 101, 100}, table.Stacks())
}

func TestSubMinimumRaiseFaults(t *testing.T) {
	b := &recorder{decide: func(req ActionRequested) Response { return RaiseBy(1) }}
	table := newTestTable(t, blinds, []int{100, 100}, b)

	err := table.PlayUntilEnd(context.Background())

	var fault *Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, 0, fault.Seat)
	assert.Equal(t, BetNotAllowed, fault.Kind)
	assert.ErrorIs(t, err, ErrBetNotAllowed)

	faults := eventsOf[RoundFault](b.events)
	require.Len(t, faults, 1)
	assert.Equal(t, RoundFault{Round: 1, Seat: 0, Fault: BetNotAllowed, Reason: fault.Err.Error()}, faults[0])

	assert.Equal(t, TableEnded{Rounds: 0, Stacks: []int{100, 100}, Faulted: true}, b.last())
	assert.Equal(t, []int{100, 100}, table.Stacks())
}

func TestRejectedRaiseLeavesSeatUntouched(t *testing.T) {
	b := &recorder{decide: func(ActionRequested) Response { return RaiseBy(1) }}
	table := newTestTable(t, blinds, []int{100, 100}, b)
	table.round = 1
	table.deck = deck.New(randutil.New(3))
	table.postBlinds()
	require.NoError(t, table.dealHoleCards(context.Background()))

	before := table.Seat(0)
	err := table.act(context.Background(), Preflop, 0, 2, newLimits(blinds, Preflop))
	require.ErrorIs(t, err, ErrBetNotAllowed)
	assert.Equal(t, before, table.Seat(0))
	assert.Equal(t, 98, table.Seat(1).Stack())
}

func TestRaiseBeyondStackFaults(t *testing.T) {
	b := &recorder{decide: func(ActionRequested) Response { return RaiseBy(500) }}
	table := newTestTable(t, blinds, []int{100, 100}, b)

	err := table.PlayNRounds(context.Background(), 1)
	assert.ErrorIs(t, err, ErrInsufficientStack)
	assert.ErrorIs(t, err, ErrBetNotAllowed)
	assert.Equal(t, []int{100, 100}, table.Stacks())
}

func TestInvalidResponseFaults(t *testing.T) {
	b := &recorder{decide: func(ActionRequested) Response { return Response{} }}
	table := newTestTable(t, blinds, []int{100, 100, 100}, b)

	err := table.PlayUntilEnd(context.Background())

	var fault *Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, InvalidResponse, fault.Kind)
	assert.Equal(t, 0, fault.Seat)
	assert.ErrorIs(t, err, ErrInvalidResponse)
	assert.IsType(t, TableEnded{}, b.last())
}

func TestBoundaryFailureFaults(t *testing.T) {
	boom := errors.New("connection reset")

	t.Run("seat event", func(t *testing.T) {
		b := &recorder{fail: func(ev Event) error {
			if hd, ok := ev.(HoleDealt); ok && hd.Seat == 1 {
				return boom
			}
			return nil
		}}
		table := newTestTable(t, blinds, []int{100, 100, 100}, b)

		err := table.PlayUntilEnd(context.Background())
		var fault *Fault
		require.ErrorAs(t, err, &fault)
		assert.Equal(t, BoundaryFailure, fault.Kind)
		assert.Equal(t, 1, fault.Seat)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("broadcast blames the named seat", func(t *testing.T) {
		b := &recorder{fail: func(ev Event) error {
			if _, ok := ev.(StreetRevealed); ok {
				return &SeatError{Seat: 2, Err: boom}
			}
			return nil
		}}
		table := newTestTable(t, blinds, []int{100, 100, 100}, b)

		err := table.PlayUntilEnd(context.Background())
		var fault *Fault
		require.ErrorAs(t, err, &fault)
		assert.Equal(t, BoundaryFailure, fault.Kind)
		assert.Equal(t, 2, fault.Seat)
		assert.Equal(t, []int{100, 100, 100}, table.Stacks())

		ended, ok := b.last().(TableEnded)
		require.True(t, ok)
		assert.True(t, ended.Faulted)
	})
}

func TestPlayNRoundsEndsTable(t *testing.T) {
	b := &recorder{}
	table := newTestTable(t, blinds, []int{100, 100, 100}, b)

	require.NoError(t, table.PlayNRounds(context.Background(), 3))
	assert.Equal(t, 3, table.Rounds())
	assert.Len(t, eventsOf[Showdown](b.events), 3)
	assert.Len(t, eventsOf[TableEnded](b.events), 1)

	ended, ok := b.last().(TableEnded)
	require.True(t, ok)
	assert.Equal(t, 3, ended.Rounds)
	assert.False(t, ended.Faulted)
	assert.Equal(t, 300, sum(ended.Stacks)+sumBreakage(b.events))
}

func TestCancelledContextStopsBetweenRounds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := &recorder{}
	table := newTestTable(t, blinds, []int{100, 100}, b)

	err := table.PlayUntilEnd(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, b.events, 1)
	assert.Equal(t, TableEnded{Rounds: 0, Stacks: []int{100, 100}}, b.events[0])
}

func TestCancelMidRoundRefundsStacks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var events []Event
	b := BoundaryFunc(func(ctx context.Context, ev Event) (Response, error) {
		events = append(events, ev)
		if req, ok := ev.(ActionRequested); ok {
			if req.Street == Flop {
				cancel()
				return Response{}, ctx.Err()
			}
			return CallAction(), nil
		}
		return Response{}, nil
	})
	table := newTestTable(t, blinds, []int{100, 100, 100}, b)

	err := table.PlayUntilEnd(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, eventsOf[RoundFault](events), "cancellation is not a fault")

	ended, ok := events[len(events)-1].(TableEnded)
	require.True(t, ok)
	assert.False(t, ended.Faulted)
	assert.Equal(t, []int{100, 100, 100}, ended.Stacks)
	assert.Equal(t, []int{100, 100, 100}, table.Stacks())
}

func TestNoLimitRaiseReopensAction(t *testing.T) {
	var requests []ActionRequested
	raised := false
	b := &recorder{decide: func(req ActionRequested) Response {
		requests = append(requests, req)
		if req.Seat == 0 && !raised {
			raised = true
			return RaiseBy(10)
		}
		return CallAction()
	}}
	table := newTestTable(t, blinds, []int{100, 100}, b)
	require.NoError(t, table.PlayNRounds(context.Background(), 1))

	// Seat 0 raised 10 over the big blind; seat 1 faces 10 to call and a
	// minimum re-raise of 10.
	require.GreaterOrEqual(t, len(requests), 2)
	assert.Equal(t, 1, requests[1].Seat)
	assert.Equal(t, 10, requests[1].ToCall)
	assert.Equal(t, 10, requests[1].MinRaise)
	assert.Equal(t, 12, requests[1].Bets[0].Bet)
}

func TestBrokeSeatSitsOut(t *testing.T) {
	var requests []ActionRequested
	b := &recorder{decide: func(req ActionRequested) Response {
		requests = append(requests, req)
		return CallAction()
	}}
	table := newTestTable(t, blinds, []int{100, 0, 100}, b)

	require.NoError(t, table.PlayNRounds(context.Background(), 1))

	// Seat 1 would post the small blind but has no chips.
	var dealt []int
	for _, hd := range eventsOf[HoleDealt](b.events) {
		dealt = append(dealt, hd.Seat)
	}
	assert.Equal(t, []int{2, 0}, dealt)

	require.NotEmpty(t, requests)
	for _, req := range requests {
		assert.NotEqual(t, 1, req.Seat)
	}
	first := requests[0]
	assert.Equal(t, 0, first.Seat)
	assert.Equal(t, SeatBet{Bet: 0, Stack: 0, Folded: true}, first.Bets[1])
	assert.Equal(t, 2, first.Bets[2].Bet)
	assert.Equal(t, 2, first.ToCall)

	sd := eventsOf[Showdown](b.events)[0]
	assert.Equal(t, 4, sd.Pot)
	assert.NotContains(t, sd.Winners, 1)
	assert.Equal(t, 0, table.Stacks()[1])
	assert.Equal(t, 200, sum(table.Stacks())+sd.Breakage)
}

func TestPlayUntilEndStopsWithOneSeatLeft(t *testing.T) {
	b := &recorder{decide: func(req ActionRequested) Response {
		if req.CanRaise() {
			return RaiseBy(req.MaxRaise)
		}
		return CallAction()
	}}
	// Seat 1 is dealt first, seat 0 flops trip aces.
	table := newTestTable(t, blinds, []int{100, 100}, b, stackedDecks("2c7d AhAd AsKd9c 4h 3s"))

	require.NoError(t, table.PlayUntilEnd(context.Background()))

	assert.Equal(t, 1, table.Rounds())
	assert.Equal(t, 1, table.ActiveSeats())
	assert.Equal(t, []int{200, 0}, table.Stacks())

	ended, ok := b.last().(TableEnded)
	require.True(t, ok)
	assert.False(t, ended.Faulted)
	assert.Equal(t, 1, ended.Rounds)
	assert.Equal(t, 200, sum(ended.Stacks))
	assert.Len(t, eventsOf[TableEnded](b.events), 1)
}

func TestRaiseAgainstAllInFaults(t *testing.T) {
	var second *ActionRequested
	b := &recorder{decide: func(req ActionRequested) Response {
		if req.Seat == 0 {
			return RaiseBy(req.MaxRaise)
		}
		second = &req
		return RaiseBy(2)
	}}
	table := newTestTable(t, blinds, []int{100, 100}, b)

	err := table.PlayNRounds(context.Background(), 1)

	require.NotNil(t, second)
	assert.False(t, second.CanRaise(), "nobody is left to call a raise")
	var fault *Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, BetNotAllowed, fault.Kind)
	assert.Equal(t, 1, fault.Seat)
	assert.Equal(t, []int{100, 100}, table.Stacks())
}

func TestFixedLimitCapsEachStreet(t *testing.T) {
	cfg := Config{Variant: FixedLimit, SmallBlind: 1, BigBlind: 2}
	b := &recorder{decide: func(req ActionRequested) Response {
		if req.CanRaise() {
			return RaiseBy(req.MinRaise)
		}
		return CallAction()
	}}
	table := newTestTable(t, cfg, []int{100, 100}, b)

	require.NoError(t, table.PlayNRounds(context.Background(), 1))

	// Four bets a street: 8 each preflop and flop, 16 each turn and river.
	sd := eventsOf[Showdown](b.events)[0]
	assert.Equal(t, 96, sd.Pot)
	assert.Equal(t, 200, sum(table.Stacks())+sd.Breakage)
}

func TestPotLimitRaiseAboveCapFaults(t *testing.T) {
	cfg := Config{Variant: PotLimit, SmallBlind: 1, BigBlind: 2}
	b := &recorder{decide: func(req ActionRequested) Response {
		return RaiseBy(req.MaxRaise + 1)
	}}
	table := newTestTable(t, cfg, []int{100, 100}, b)

	err := table.PlayNRounds(context.Background(), 1)
	assert.ErrorIs(t, err, ErrBetNotAllowed)

	req := eventsOf[ActionRequested](b.events)[0]
	assert.Equal(t, 4, req.MaxRaise)
}

func TestAllInPlayersAreNotAsked(t *testing.T) {
	b := &recorder{decide: func(req ActionRequested) Response {
		if req.Street == Preflop && req.MaxRaise > 0 {
			return RaiseBy(req.MaxRaise)
		}
		return CallAction()
	}}
	table := newTestTable(t, blinds, []int{50, 100}, b)
	require.NoError(t, table.PlayNRounds(context.Background(), 1))

	// Seat 0 shoves, seat 1 may only call, and nobody acts after the flop.
	requests := eventsOf[ActionRequested](b.events)
	require.Len(t, requests, 2)
	for _, req := range requests {
		assert.Equal(t, Preflop, req.Street)
	}
	assert.Equal(t, 1, requests[1].Seat)
	assert.Equal(t, 48, requests[1].ToCall)
	assert.False(t, requests[1].CanRaise())
	assert.Len(t, eventsOf[StreetRevealed](b.events), 3)
	assert.Equal(t, 150, sum(table.Stacks())+eventsOf[Showdown](b.events)[0].Breakage)
}

func sumBreakage(events []Event) int {
	total := 0
	for _, sd := range eventsOf[Showdown](events) {
		total += sd.Breakage
	}
	return total
}

// TestRandomPlayInvariants plays many rounds of random decisions and checks
// chip conservation, deck integrity and that folded seats stay folded.
func TestRandomPlayInvariants(t *testing.T) {
	rng := randutil.New(99)
	stacks := []int{200, 150, 100, 300, 250}
	total := sum(stacks)

	var (
		seen     map[deck.Card]bool
		folded   map[int]bool
		round    int
		breakage int
	)
	reset := func(r int) {
		round = r
		seen = map[deck.Card]bool{}
		folded = map[int]bool{}
	}
	see := func(cards ...deck.Card) {
		for _, c := range cards {
			require.False(t, seen[c], "card %s dealt twice in round %d", c, round)
			seen[c] = true
		}
	}

	var b BoundaryFunc = func(_ context.Context, ev Event) (Response, error) {
		switch e := ev.(type) {
		case HoleDealt:
			if e.Round != round {
				reset(e.Round)
			}
			see(e.Cards[:]...)
		case StreetRevealed:
			see(e.Cards...)
		case ActionRequested:
			require.False(t, folded[e.Seat], "folded seat %d asked to act", e.Seat)
			require.GreaterOrEqual(t, e.Stack, 0)
			switch p := rng.IntN(100); {
			case p < 15:
				folded[e.Seat] = true
				return FoldAction(), nil
			case p < 35 && e.CanRaise():
				return RaiseBy(e.MinRaise + rng.IntN(e.MaxRaise-e.MinRaise+1)), nil
			default:
				return CallAction(), nil
			}
		case Showdown:
			breakage += e.Breakage
			require.Equal(t, total, sum(e.Stacks)+breakage, "chips not conserved in round %d", e.Round)
			for _, s := range e.Stacks {
				require.GreaterOrEqual(t, s, 0)
			}
		}
		return Response{}, nil
	}

	table := newTestTable(t, blinds, stacks, b, WithRand(randutil.New(5)))
	require.NoError(t, table.PlayNRounds(context.Background(), 200))
	assert.Equal(t, total, sum(table.Stacks())+breakage)
}
