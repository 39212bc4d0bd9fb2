package bot

import (
	rand "math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/lox/pokerroom/internal/game"
)

// RandBot raises about one time in five, folds a little less often and
// calls otherwise, whatever it holds.
type RandBot struct {
	rng    *rand.Rand
	logger *log.Logger
}

// NewRandBot creates a new RandBot instance
func NewRandBot(rng *rand.Rand, logger *log.Logger) *RandBot {
	return &RandBot{rng: rng, logger: logger}
}

func (r *RandBot) Decide(req game.ActionRequested) game.Response {
	var resp game.Response
	switch n := r.rng.IntN(256); {
	case n <= 55:
		resp = raiseOrCall(req, req.MinRaise)
	case n <= 100:
		resp = game.FoldAction()
	default:
		resp = game.CallAction()
	}
	r.logger.Debug("rand-bot decision", "seat", req.Seat, "street", req.Street, "action", resp)
	return resp
}
