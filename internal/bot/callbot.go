package bot

import (
	"github.com/charmbracelet/log"

	"github.com/lox/pokerroom/internal/game"
)

// CallBot checks and calls every street, never raising or folding
type CallBot struct {
	logger *log.Logger
}

// NewCallBot creates a new CallBot instance
func NewCallBot(logger *log.Logger) *CallBot {
	return &CallBot{logger: logger}
}

func (c *CallBot) Decide(req game.ActionRequested) game.Response {
	c.logger.Debug("call-bot calling", "seat", req.Seat, "toCall", req.ToCall)
	return game.CallAction()
}

// FoldBot checks when it can and folds to any bet
type FoldBot struct {
	logger *log.Logger
}

// NewFoldBot creates a new FoldBot instance
func NewFoldBot(logger *log.Logger) *FoldBot {
	return &FoldBot{logger: logger}
}

func (f *FoldBot) Decide(req game.ActionRequested) game.Response {
	resp := checkOrFold(req)
	f.logger.Debug("fold-bot decision", "seat", req.Seat, "action", resp)
	return resp
}
