// Package protocol defines the JSON messages exchanged over a table's
// websocket. Every frame is a Message envelope whose Data holds one of the
// payloads below; engine events travel as the game package's event structs.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lox/pokerroom/internal/game"
)

// MessageType identifies the type of message
type MessageType string

const (
	// Client -> Server
	TypeJoin   MessageType = "join"
	TypeAction MessageType = "action"

	// Server -> Client
	TypeSeated          MessageType = "seated"
	TypeHoleDealt       MessageType = MessageType(game.KindHoleDealt)
	TypeStreetRevealed  MessageType = MessageType(game.KindStreetRevealed)
	TypeActionRequested MessageType = MessageType(game.KindActionRequested)
	TypeShowdown        MessageType = MessageType(game.KindShowdown)
	TypeRoundFault      MessageType = MessageType(game.KindRoundFault)
	TypeTableEnded      MessageType = MessageType(game.KindTableEnded)
	TypeRequeued        MessageType = "requeued"
	TypeError           MessageType = "error"
)

// Error codes sent in Error messages
const (
	CodeInvalidMessage = "invalid_message"
	CodeInvalidRequest = "invalid_request"
	CodeUnexpected     = "unexpected_message"
	CodeFault          = "fault"
)

// ErrUnknownMessageType is returned when decoding a message type this
// package does not know.
var ErrUnknownMessageType = errors.New("unknown message type")

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", messageType, err)
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Decode unmarshals the message payload into v
func (m *Message) Decode(v any) error {
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("decode %s: %w", m.Type, err)
	}
	return nil
}

// Client -> Server messages

// TableRequest describes the table a client wants to play at. Clients with
// identical requests are seated together.
type TableRequest struct {
	Seats      int          `json:"seats"`
	SmallBlind int          `json:"smallBlind"`
	BigBlind   int          `json:"bigBlind"`
	Stack      int          `json:"stack"`
	Variant    game.Variant `json:"variant"`
}

// Config returns the engine settings for the requested table
func (r TableRequest) Config() game.Config {
	return game.Config{Variant: r.Variant, SmallBlind: r.SmallBlind, BigBlind: r.BigBlind}
}

// Stacks returns the starting stacks for the requested table
func (r TableRequest) Stacks() []int {
	stacks := make([]int, r.Seats)
	for i := range stacks {
		stacks[i] = r.Stack
	}
	return stacks
}

func (r TableRequest) String() string {
	return fmt.Sprintf("%d-max %d/%d %s, %d chips", r.Seats, r.SmallBlind, r.BigBlind, r.Variant, r.Stack)
}

// Join asks the server to queue the client for a table
type Join struct {
	Name    string       `json:"name,omitempty"`
	Request TableRequest `json:"request"`
}

// Action answers an action_requested message
type Action struct {
	Action game.ActionKind `json:"action"`
	Amount int             `json:"amount,omitempty"`
}

// Response converts the action to an engine response
func (a Action) Response() game.Response {
	return game.Response{Action: a.Action, Amount: a.Amount}
}

// Server -> Client messages

// Seated tells a client which table and seat it has been given
type Seated struct {
	TableID string       `json:"tableId"`
	Seat    int          `json:"seat"`
	Request TableRequest `json:"request"`
}

// Requeued tells a client its table ended on another seat's fault and it
// is waiting for a new one.
type Requeued struct {
	TableID string       `json:"tableId"`
	Request TableRequest `json:"request"`
}

// Error reports a problem with something the client sent
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e Error) Error() string {
	return e.Code + ": " + e.Message
}

// FromEvent wraps an engine event in a message
func FromEvent(ev game.Event) (*Message, error) {
	return NewMessage(MessageType(ev.Kind()), ev)
}

// DecodeEvent decodes a message carrying an engine event. It returns
// ErrUnknownMessageType for messages that are not events.
func DecodeEvent(m *Message) (game.Event, error) {
	var ev game.Event
	var err error
	switch m.Type {
	case TypeHoleDealt:
		ev, err = decodeAs[game.HoleDealt](m)
	case TypeStreetRevealed:
		ev, err = decodeAs[game.StreetRevealed](m)
	case TypeActionRequested:
		ev, err = decodeAs[game.ActionRequested](m)
	case TypeShowdown:
		ev, err = decodeAs[game.Showdown](m)
	case TypeRoundFault:
		ev, err = decodeAs[game.RoundFault](m)
	case TypeTableEnded:
		ev, err = decodeAs[game.TableEnded](m)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, m.Type)
	}
	if err != nil {
		return nil, err
	}
	return ev, nil
}

func decodeAs[T game.Event](m *Message) (T, error) {
	var v T
	err := m.Decode(&v)
	return v, err
}
