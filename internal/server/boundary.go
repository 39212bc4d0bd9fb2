package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/pokerroom/internal/game"
	"github.com/lox/pokerroom/internal/protocol"
)

// ErrDisconnected is reported for a seat whose client went away mid-table
var ErrDisconnected = errors.New("client disconnected")

// remoteBoundary relays a table's events to the members seated at it and
// waits for their decisions.
type remoteBoundary struct {
	tableID string
	members []Member
	clock   quartz.Clock
	timeout time.Duration
	logger  *log.Logger

	// onEnd runs before TableEnded is sent so members can join again as
	// soon as they hear about it.
	onEnd func()
}

func newRemoteBoundary(tableID string, members []Member, clock quartz.Clock, timeout time.Duration, logger *log.Logger) *remoteBoundary {
	return &remoteBoundary{
		tableID: tableID,
		members: members,
		clock:   clock,
		timeout: timeout,
		logger:  logger.WithPrefix("boundary"),
	}
}

// Handle implements game.Boundary. Hole cards go only to their seat, action
// requests wait for the seat's reply, everything else is broadcast.
func (b *remoteBoundary) Handle(ctx context.Context, ev game.Event) (game.Response, error) {
	switch e := ev.(type) {
	case game.HoleDealt:
		return game.Response{}, b.send(e.Seat, ev)
	case game.ActionRequested:
		return b.request(ctx, e)
	case game.TableEnded:
		if b.onEnd != nil {
			b.onEnd()
		}
		return game.Response{}, b.broadcast(ev)
	default:
		return game.Response{}, b.broadcast(ev)
	}
}

func (b *remoteBoundary) send(seat int, ev game.Event) error {
	msg, err := protocol.FromEvent(ev)
	if err != nil {
		return err
	}
	return b.deliver(seat, msg)
}

func (b *remoteBoundary) deliver(seat int, msg *protocol.Message) error {
	m := b.members[seat]
	select {
	case <-m.Done():
		return &game.SeatError{Seat: seat, Err: ErrDisconnected}
	default:
	}
	if err := m.SendMessage(msg); err != nil {
		return &game.SeatError{Seat: seat, Err: fmt.Errorf("send %s: %w", msg.Type, err)}
	}
	return nil
}

// broadcast sends ev to every seat and returns the first seat that failed
func (b *remoteBoundary) broadcast(ev game.Event) error {
	msg, err := protocol.FromEvent(ev)
	if err != nil {
		return err
	}

	var first error
	for seat := range b.members {
		if err := b.deliver(seat, msg); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// request sends an action request and waits for the reply. A seat that does
// not answer in time gets an empty response, which the table treats as an
// invalid response.
func (b *remoteBoundary) request(ctx context.Context, req game.ActionRequested) (game.Response, error) {
	m := b.members[req.Seat]
	actions := m.AwaitAction()
	defer m.CancelAction()

	timeoutFired := make(chan struct{})
	timer := b.clock.AfterFunc(b.timeout, func() {
		close(timeoutFired)
	})
	defer timer.Stop()

	if err := b.send(req.Seat, req); err != nil {
		return game.Response{}, err
	}

	select {
	case resp := <-actions:
		b.logger.Debug("Received decision", "table", b.tableID, "seat", req.Seat, "action", resp)
		return resp, nil

	case <-timeoutFired:
		b.logger.Warn("Decision timeout", "table", b.tableID, "seat", req.Seat, "player", m.Name(), "timeout", b.timeout)
		return game.Response{}, nil

	case <-m.Done():
		return game.Response{}, &game.SeatError{Seat: req.Seat, Err: ErrDisconnected}

	case <-ctx.Done():
		return game.Response{}, ctx.Err()
	}
}
