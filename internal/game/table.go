package game

import (
	"context"
	"errors"
	"fmt"
	"io"
	rand "math/rand/v2"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/lox/pokerroom/internal/deck"
	"github.com/lox/pokerroom/internal/evaluator"
	"github.com/lox/pokerroom/internal/randutil"
)

// Table plays rounds of Texas Hold'em for a fixed row of seats. A Table is
// driven by a single goroutine and is not safe for concurrent use.
type Table struct {
	cfg      Config
	seats    []Seat
	boundary Boundary
	logger   *log.Logger
	rng      *rand.Rand
	newDeck  func() *deck.Deck
	dealer   int
	rounds   int

	// round state
	round int
	deck  *deck.Deck
	board []deck.Card
	pot   int
}

// Option configures a Table
type Option func(*Table)

// WithLogger sets the table's logger
func WithLogger(logger *log.Logger) Option {
	return func(t *Table) { t.logger = logger }
}

// WithRand sets the generator used to shuffle each round's deck
func WithRand(rng *rand.Rand) Option {
	return func(t *Table) { t.rng = rng }
}

// WithDealer places the dealer button before the first round
func WithDealer(seat int) Option {
	return func(t *Table) { t.dealer = seat }
}

// WithDecks replaces deck shuffling. fn is called once per round and is
// mainly useful for replaying known deals.
func WithDecks(fn func() *deck.Deck) Option {
	return func(t *Table) { t.newDeck = fn }
}

// New creates a table with one seat per starting stack
func New(cfg Config, stacks []int, b Boundary, opts ...Option) (*Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(stacks) < MinSeats || len(stacks) > MaxSeats {
		return nil, fmt.Errorf("%w: need %d to %d seats, got %d", ErrInvalidConfig, MinSeats, MaxSeats, len(stacks))
	}
	if b == nil {
		return nil, fmt.Errorf("%w: boundary is required", ErrInvalidConfig)
	}

	t := &Table{
		cfg:      cfg,
		seats:    make([]Seat, len(stacks)),
		boundary: b,
		logger:   log.NewWithOptions(io.Discard, log.Options{}),
	}
	for i, stack := range stacks {
		if stack < 0 {
			return nil, fmt.Errorf("%w: seat %d has negative stack %d", ErrInvalidConfig, i, stack)
		}
		t.seats[i] = NewSeat(stack)
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.dealer < 0 || t.dealer >= len(t.seats) {
		return nil, fmt.Errorf("%w: dealer seat %d out of range", ErrInvalidConfig, t.dealer)
	}
	if t.rng == nil {
		t.rng = randutil.NewFromTime()
	}
	if t.newDeck == nil {
		t.newDeck = func() *deck.Deck { return deck.New(t.rng) }
	}
	return t, nil
}

// Config returns the table settings
func (t *Table) Config() Config { return t.cfg }

// Dealer returns the seat holding the dealer button
func (t *Table) Dealer() int { return t.dealer }

// Rounds returns the number of completed rounds
func (t *Table) Rounds() int { return t.rounds }

// NumSeats returns the number of seats at the table
func (t *Table) NumSeats() int { return len(t.seats) }

// Seat returns a copy of seat i
func (t *Table) Seat(i int) Seat { return t.seats[i] }

// Stacks returns every seat's chips, including any bet in front of it
func (t *Table) Stacks() []int {
	stacks := make([]int, len(t.seats))
	for i, s := range t.seats {
		stacks[i] = s.stack + s.bet
	}
	return stacks
}

// ActiveSeats counts the seats that still have chips
func (t *Table) ActiveSeats() int {
	n := 0
	for _, s := range t.seats {
		if s.IsActive() {
			n++
		}
	}
	return n
}

// PlayUntilEnd plays rounds until fewer than two seats have chips. It
// returns a *Fault if a round faults, or the context's error if ctx is
// done between rounds. TableEnded is reported in every case.
func (t *Table) PlayUntilEnd(ctx context.Context) error {
	return t.play(ctx, func() bool { return true })
}

// PlayNRounds plays n rounds, stopping early on a fault or when fewer than
// two seats have chips left.
func (t *Table) PlayNRounds(ctx context.Context, n int) error {
	target := t.rounds + n
	return t.play(ctx, func() bool { return t.rounds < target })
}

func (t *Table) play(ctx context.Context, more func() bool) error {
	var err error
	for more() && t.ActiveSeats() > 1 {
		if err = ctx.Err(); err != nil {
			break
		}
		if err = t.playRound(ctx); err != nil {
			break
		}
	}

	var fault *Fault
	ended := TableEnded{
		Rounds:  t.rounds,
		Stacks:  t.Stacks(),
		Faulted: errors.As(err, &fault),
	}
	t.logger.Debug("table ended", "rounds", ended.Rounds, "stacks", ended.Stacks, "faulted", ended.Faulted)
	if _, herr := t.boundary.Handle(context.WithoutCancel(ctx), ended); herr != nil {
		t.logger.Warn("failed to report table end", "error", herr)
	}
	return err
}

func (t *Table) playRound(ctx context.Context) error {
	start := t.Stacks()
	t.round = t.rounds + 1
	t.pot = 0
	t.board = nil
	t.deck = t.newDeck()

	t.logger.Debug("round started", "round", t.round, "dealer", t.dealer, "stacks", start)

	err := t.runRound(ctx)
	if err == nil {
		return nil
	}

	t.refund(start)

	var fault *Fault
	if errors.As(err, &fault) {
		t.logger.Warn("round aborted", "round", t.round, "seat", fault.Seat, "fault", fault.Kind, "error", fault.Err)
		ev := RoundFault{Round: t.round, Seat: fault.Seat, Fault: fault.Kind, Reason: fault.Err.Error()}
		if _, herr := t.boundary.Handle(context.WithoutCancel(ctx), ev); herr != nil {
			t.logger.Warn("failed to report round fault", "error", herr)
		}
	}
	return err
}

func (t *Table) runRound(ctx context.Context) error {
	t.postBlinds()

	if err := t.dealHoleCards(ctx); err != nil {
		return err
	}

	for street := Preflop; street <= River; street++ {
		if street > Preflop {
			if t.contenders() < 2 {
				break
			}
			if err := t.revealStreet(ctx, street); err != nil {
				return err
			}
		}
		if err := t.bettingStreet(ctx, street); err != nil {
			return err
		}
		t.collect()
	}

	return t.showdown(ctx)
}

// blindSeats returns the small and big blind positions. Heads-up the
// dealer posts the small blind.
func (t *Table) blindSeats() (sb, bb int) {
	n := len(t.seats)
	if n == 2 {
		return t.dealer, (t.dealer + 1) % n
	}
	return (t.dealer + 1) % n, (t.dealer + 2) % n
}

func (t *Table) postBlinds() {
	sb, bb := t.blindSeats()
	if t.seats[sb].IsActive() {
		t.seats[sb].Call(t.cfg.SmallBlind)
	}
	if t.seats[bb].IsActive() {
		t.seats[bb].Call(t.cfg.BigBlind)
	}
}

func (t *Table) dealHoleCards(ctx context.Context) error {
	n := len(t.seats)
	for i := 1; i <= n; i++ {
		idx := (t.dealer + i) % n
		if !t.seats[idx].IsActive() {
			continue
		}
		cards := [2]deck.Card{t.deck.Draw(), t.deck.Draw()}
		t.seats[idx].deal(cards)
		if _, err := t.emit(ctx, idx, HoleDealt{Round: t.round, Seat: idx, Cards: cards}); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) revealStreet(ctx context.Context, street Street) error {
	cards := t.deck.DrawN(street.boardCards())
	t.board = append(t.board, cards...)
	t.logger.Debug("street revealed", "round", t.round, "street", street, "board", deck.FormatCards(t.board))

	_, err := t.emit(ctx, -1, StreetRevealed{
		Round:  t.round,
		Street: street,
		Cards:  cards,
		Board:  slices.Clone(t.board),
	})
	return err
}

// showdown awards the pot to the best hands. An uncontested pot goes to
// the last seat holding cards without its hand being evaluated.
func (t *Table) showdown(ctx context.Context) error {
	var (
		best    evaluator.Score
		winners []int
		hands   []Hand
	)

	var holders []int
	for i, s := range t.seats {
		if s.HasCards() {
			holders = append(holders, i)
		}
	}

	if len(holders) == 1 {
		winners = holders
	} else {
		for _, i := range holders {
			hole, _ := t.seats[i].Hole()
			score := evaluator.Calculate(append(hole[:], t.board...))
			hands = append(hands, Hand{Seat: i, Cards: hole, Score: score})

			switch c := score.Compare(best); {
			case len(winners) == 0 || c > 0:
				best = score
				winners = []int{i}
			case c == 0:
				winners = append(winners, i)
			}
		}
	}

	pot := t.pot
	share := pot / len(winners)
	for _, w := range winners {
		t.seats[w].stack += share
	}
	t.pot = 0

	ev := Showdown{
		Round:    t.round,
		Score:    best,
		Pot:      pot,
		Winners:  winners,
		Hands:    hands,
		Board:    slices.Clone(t.board),
		Stacks:   t.Stacks(),
		Breakage: pot % len(winners),
	}
	t.logger.Debug("showdown", "round", t.round, "pot", pot, "winners", winners, "score", best, "breakage", ev.Breakage)
	if _, err := t.emit(ctx, -1, ev); err != nil {
		return err
	}

	for i := range t.seats {
		t.seats[i].Fold()
	}
	t.rounds++
	t.dealer = (t.dealer + 1) % len(t.seats)
	return nil
}

// refund restores every seat to its stack at the start of the round
func (t *Table) refund(start []int) {
	for i := range t.seats {
		t.seats[i] = NewSeat(start[i])
	}
	t.pot = 0
}

// emit hands ev to the boundary. seat is the seat to blame if the boundary
// fails without naming one.
func (t *Table) emit(ctx context.Context, seat int, ev Event) (Response, error) {
	resp, err := t.boundary.Handle(ctx, ev)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Response{}, ctxErr
		}
		return Response{}, boundaryFault(seat, err)
	}
	return resp, nil
}
