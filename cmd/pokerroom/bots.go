package main

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/lox/pokerroom/internal/bot"
	"github.com/lox/pokerroom/internal/client"
	"github.com/lox/pokerroom/internal/game"
	"github.com/lox/pokerroom/internal/protocol"
	"github.com/lox/pokerroom/internal/randutil"
)

// BotsCmd connects a fleet of built-in bots that all ask for the same table
type BotsCmd struct {
	URL        string       `default:"ws://localhost:8080/ws" help:"Server URL"`
	Count      int          `short:"n" default:"2" help:"Number of bots to connect"`
	Seats      int          `default:"2" help:"Seats at the requested table"`
	SmallBlind int          `default:"1" help:"Small blind amount"`
	BigBlind   int          `default:"2" help:"Big blind amount"`
	Stack      int          `default:"200" help:"Starting stack"`
	Variant    game.Variant `default:"no-limit" help:"Betting variant (no-limit, fixed-limit, pot-limit)"`
	Strategy   string       `short:"s" default:"random" enum:"${strategies}" help:"Bot strategy (${strategies})"`
	Tables     int          `short:"t" default:"0" help:"Tables each bot plays before leaving (0 plays until interrupted)"`
	Seed       *int64       `help:"Deterministic RNG seed for bot decisions (optional)"`
	LogLevel   string       `short:"l" default:"info" help:"Log level (debug|info|warn|error)"`
}

func (c *BotsCmd) Run() error {
	logger, err := newLogger(c.LogLevel)
	if err != nil {
		return err
	}
	if c.Count <= 0 {
		return fmt.Errorf("count must be positive, got %d", c.Count)
	}

	req := protocol.TableRequest{
		Seats:      c.Seats,
		SmallBlind: c.SmallBlind,
		BigBlind:   c.BigBlind,
		Stack:      c.Stack,
		Variant:    c.Variant,
	}
	seed, _ := randutil.Seed(c.Seed)
	logger.Info("Connecting bots", "url", c.URL, "count", c.Count, "strategy", c.Strategy, "request", req, "seed", seed)

	ctx, cancel := signalContext(logger)
	defer cancel()

	stats := make([]client.Stats, c.Count)
	g, gctx := errgroup.WithContext(ctx)
	for i := range c.Count {
		strategy, err := bot.New(c.Strategy, randutil.New(seed+int64(i)), logger)
		if err != nil {
			return err
		}
		name := fmt.Sprintf("%s-%d", c.Strategy, i+1)
		cl := client.New(c.URL, name, req, strategy, logger, client.WithTables(c.Tables))
		g.Go(func() error {
			s, err := cl.Run(gctx)
			stats[i] = s
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}
	err = g.Wait()

	for i, s := range stats {
		logger.Info("Bot finished",
			"bot", fmt.Sprintf("%s-%d", c.Strategy, i+1),
			"tables", s.Tables,
			"rounds", s.Rounds,
			"wins", s.Wins,
			"requeues", s.Requeues,
			"stack", s.Stack)
	}
	return err
}
