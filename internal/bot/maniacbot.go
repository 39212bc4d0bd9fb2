package bot

import (
	rand "math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/lox/pokerroom/internal/game"
)

// ManiacBot is an extremely aggressive bot that shoves frequently
type ManiacBot struct {
	rng    *rand.Rand
	logger *log.Logger
}

// NewManiacBot creates a new ManiacBot instance
func NewManiacBot(rng *rand.Rand, logger *log.Logger) *ManiacBot {
	return &ManiacBot{rng: rng, logger: logger}
}

func (m *ManiacBot) Decide(req game.ActionRequested) game.Response {
	resp := m.decide(req)
	m.logger.Debug("maniac decision", "seat", req.Seat, "street", req.Street, "action", resp)
	return resp
}

func (m *ManiacBot) decide(req game.ActionRequested) game.Response {
	shortStack := req.Stack <= 20*req.MinRaise

	if req.ToCall == 0 {
		// Maniacs prefer to bet.
		if m.rng.Float64() >= 0.85 {
			return game.CallAction()
		}
		if shortStack || m.rng.Float64() < 0.3 {
			return raiseOrCall(req, req.MaxRaise)
		}
		return raiseOrCall(req, req.MinRaise+(req.MaxRaise-req.MinRaise)*3/4)
	}

	// Facing a bet
	switch v := m.rng.Float64(); {
	case v < 0.4:
		return raiseOrCall(req, req.MaxRaise)
	case v < 0.8:
		return game.CallAction()
	default:
		return game.FoldAction()
	}
}
