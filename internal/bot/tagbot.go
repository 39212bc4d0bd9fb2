package bot

import (
	"context"
	rand "math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/lox/pokerroom/internal/deck"
	"github.com/lox/pokerroom/internal/evaluator"
	"github.com/lox/pokerroom/internal/game"
)

const (
	// tagEquitySamples is the Monte Carlo budget for one postflop decision
	tagEquitySamples = 400

	premiumPercentile  = 0.85
	playablePercentile = 0.6
)

// TAGBot is a Tight Aggressive bot. It plays premium starting hands hard
// and after the flop bets its equity against the pot odds.
type TAGBot struct {
	rng    *rand.Rand
	logger *log.Logger
}

// NewTAGBot creates a new TAGBot instance
func NewTAGBot(rng *rand.Rand, logger *log.Logger) *TAGBot {
	return &TAGBot{rng: rng, logger: logger}
}

func (t *TAGBot) Decide(req game.ActionRequested) game.Response {
	var resp game.Response
	if req.Street == game.Preflop {
		resp = t.preflop(req)
	} else {
		resp = t.postflop(req)
	}
	t.logger.Debug("TAG decision", "seat", req.Seat, "street", req.Street, "hole", deck.StartingHand(req.Hole), "action", resp)
	return resp
}

func (t *TAGBot) preflop(req game.ActionRequested) game.Response {
	strength := deck.HandPercentile(req.Hole)
	switch {
	case strength >= premiumPercentile:
		return raiseOrCall(req, req.MinRaise+(req.MaxRaise-req.MinRaise)/4)
	case strength >= playablePercentile && req.ToCall <= 3*req.MinRaise:
		return game.CallAction()
	case req.ToCall == 0:
		return game.CallAction()
	}

	// Defend the odd weak hand so the range is not transparent
	if t.rng.Float64() < 0.1 && req.ToCall <= req.MinRaise {
		return game.CallAction()
	}
	return game.FoldAction()
}

func (t *TAGBot) postflop(req game.ActionRequested) game.Response {
	opp := opponents(req)
	if opp == 0 {
		return game.CallAction()
	}

	equity, err := evaluator.Equity(context.Background(), req.Hole[:], req.Board, opp, tagEquitySamples, t.rng)
	if err != nil {
		t.logger.Warn("equity failed, checking", "error", err)
		return checkOrFold(req)
	}

	pot := potSize(req)
	if equity > 0.7 {
		return raiseOrCall(req, pot/2)
	}

	odds := float64(req.ToCall) / float64(pot+req.ToCall)
	if req.ToCall == 0 || equity >= odds {
		return game.CallAction()
	}
	return game.FoldAction()
}
