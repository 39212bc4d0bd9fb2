package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/lox/pokerroom/internal/bot"
	"github.com/lox/pokerroom/internal/game"
	"github.com/lox/pokerroom/internal/randutil"
)

var (
	// Style definitions
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1).
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	nameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("14"))

	winStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	lossStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	faultStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("11"))
)

// SimulateCmd plays one table of built-in bots in process
type SimulateCmd struct {
	Strategies []string     `arg:"" optional:"" default:"tag,random,call,maniac" help:"One strategy per seat (${strategies})"`
	Rounds     int          `short:"r" default:"1000" help:"Rounds to play (0 plays until one seat has every chip)"`
	Stack      int          `default:"200" help:"Starting stack for every seat"`
	SmallBlind int          `default:"1" help:"Small blind amount"`
	BigBlind   int          `default:"2" help:"Big blind amount"`
	Variant    game.Variant `default:"no-limit" help:"Betting variant (no-limit, fixed-limit, pot-limit)"`
	Seed       *int64       `help:"RNG seed for cards and decisions (optional)"`
	LogLevel   string       `short:"l" default:"warn" help:"Log level (debug|info|warn|error)"`
}

// simulation is the outcome of one simulated table
type simulation struct {
	Names    []string
	Start    int
	Rounds   int
	Seed     int64
	Tally    *bot.Tally
	Duration time.Duration
	Err      error
}

func (c *SimulateCmd) Run() error {
	logger, err := newLogger(c.LogLevel)
	if err != nil {
		return err
	}
	seed, _ := randutil.Seed(c.Seed)
	cfg := game.Config{Variant: c.Variant, SmallBlind: c.SmallBlind, BigBlind: c.BigBlind}

	ctx, cancel := signalContext(logger)
	defer cancel()

	fmt.Println(titleStyle.Render(fmt.Sprintf(" ♠ ♥ %d-seat %s simulation ♦ ♣ ", len(c.Strategies), c.Variant)))
	fmt.Println()

	sim, err := simulate(ctx, c.Strategies, cfg, c.Stack, c.Rounds, seed, logger)
	if err != nil {
		return err
	}
	sim.render(os.Stdout)
	return sim.Err
}

// simulate seats the named strategies at one table and plays it. Table
// errors are reported on the result so the partial tally can be shown.
func simulate(ctx context.Context, names []string, cfg game.Config, stack, rounds int, seed int64, logger *log.Logger) (*simulation, error) {
	rng := randutil.New(seed)

	strategies := make([]bot.Strategy, len(names))
	stacks := make([]int, len(names))
	for i, name := range names {
		s, err := bot.New(name, randutil.New(seed+int64(i)+1), logger)
		if err != nil {
			return nil, err
		}
		strategies[i] = s
		stacks[i] = stack
	}

	tally := bot.NewTally(len(names))
	tbl, err := game.New(cfg, stacks, bot.NewLocal(strategies, bot.WithObserver(tally.Observe)),
		game.WithLogger(logger),
		game.WithRand(rng),
	)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	if rounds > 0 {
		err = tbl.PlayNRounds(ctx, rounds)
	} else {
		err = tbl.PlayUntilEnd(ctx)
	}

	return &simulation{
		Names:    names,
		Start:    stack,
		Rounds:   tbl.Rounds(),
		Seed:     seed,
		Tally:    tally,
		Duration: time.Since(started),
		Err:      err,
	}, nil
}

func (s *simulation) render(out io.Writer) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("seat"),
		headerStyle.Render("strategy"),
		headerStyle.Render("wins"),
		headerStyle.Render("splits"),
		headerStyle.Render("stack"),
		headerStyle.Render("net"))

	for i, name := range s.Names {
		final := s.Start
		if i < len(s.Tally.Final) {
			final = s.Tally.Final[i]
		}
		net := final - s.Start
		netStyle := winStyle
		if net < 0 {
			netStyle = lossStyle
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%s\n",
			i,
			nameStyle.Render(name),
			s.Tally.Wins[i],
			s.Tally.Splits[i],
			final,
			netStyle.Render(fmt.Sprintf("%+d", net)))
	}
	_ = w.Flush()

	fmt.Fprintln(out)
	for _, f := range s.Tally.Faults {
		fmt.Fprintln(out, faultStyle.Render(fmt.Sprintf("round %d: seat %d faulted with %s: %s", f.Round, f.Seat, f.Fault, f.Reason)))
	}
	fmt.Fprintf(out, "%d rounds (%d showdowns, %d chips breakage) in %v, seed %d\n",
		s.Rounds, s.Tally.Showdowns, s.Tally.Breakage, s.Duration.Truncate(time.Millisecond), s.Seed)
}
