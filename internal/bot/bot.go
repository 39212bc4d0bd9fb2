// Package bot holds built-in decision strategies and an in-process
// boundary that lets them play a table without a network.
package bot

import (
	"fmt"
	rand "math/rand/v2"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/lox/pokerroom/internal/game"
)

// Strategy decides how a seat answers an action request
type Strategy interface {
	Decide(req game.ActionRequested) game.Response
}

// StrategyFunc adapts a function to the Strategy interface
type StrategyFunc func(req game.ActionRequested) game.Response

// Decide calls f(req)
func (f StrategyFunc) Decide(req game.ActionRequested) game.Response { return f(req) }

var strategies = map[string]func(rng *rand.Rand, logger *log.Logger) Strategy{
	"random": func(rng *rand.Rand, logger *log.Logger) Strategy { return NewRandBot(rng, logger) },
	"call":   func(_ *rand.Rand, logger *log.Logger) Strategy { return NewCallBot(logger) },
	"fold":   func(_ *rand.Rand, logger *log.Logger) Strategy { return NewFoldBot(logger) },
	"maniac": func(rng *rand.Rand, logger *log.Logger) Strategy { return NewManiacBot(rng, logger) },
	"tag":    func(rng *rand.Rand, logger *log.Logger) Strategy { return NewTAGBot(rng, logger) },
}

// Names lists the built-in strategies
func Names() []string {
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// New returns the named built-in strategy
func New(name string, rng *rand.Rand, logger *log.Logger) (Strategy, error) {
	fn, ok := strategies[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (want one of %s)", name, strings.Join(Names(), ", "))
	}
	return fn(rng, logger.WithPrefix(name)), nil
}

// raiseOrCall raises by amount clamped to the legal range, or calls when
// the seat may not raise.
func raiseOrCall(req game.ActionRequested, amount int) game.Response {
	if !req.CanRaise() {
		return game.CallAction()
	}
	return game.RaiseBy(min(max(amount, req.MinRaise), req.MaxRaise))
}

// checkOrFold takes a free card when there is one
func checkOrFold(req game.ActionRequested) game.Response {
	if req.ToCall == 0 {
		return game.CallAction()
	}
	return game.FoldAction()
}

// potSize is every chip in the middle, current street bets included
func potSize(req game.ActionRequested) int {
	pot := req.Pot
	for _, b := range req.Bets {
		pot += b.Bet
	}
	return pot
}

// opponents counts the other seats still holding cards
func opponents(req game.ActionRequested) int {
	n := 0
	for i, b := range req.Bets {
		if i != req.Seat && !b.Folded {
			n++
		}
	}
	return n
}
