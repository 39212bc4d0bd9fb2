// Package client is a websocket bot that joins a poker room, plays its
// tables with a bot.Strategy and rejoins until it has played enough.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/pokerroom/internal/bot"
	"github.com/lox/pokerroom/internal/game"
	"github.com/lox/pokerroom/internal/protocol"
)

const writeWait = 10 * time.Second

// Stats summarises what a client played
type Stats struct {
	Tables   int
	Rounds   int
	Wins     int
	Requeues int
	Stack    int // chips at the end of the last table
}

// Client represents a WebSocket client for the poker room
type Client struct {
	serverURL string
	name      string
	request   protocol.TableRequest
	strategy  bot.Strategy
	tables    int
	logger    *log.Logger

	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once

	seat  int
	stats Stats
}

// Option configures a Client
type Option func(*Client)

// WithTables stops the client after n tables have ended. Zero plays until
// the context is cancelled.
func WithTables(n int) Option {
	return func(c *Client) { c.tables = n }
}

// New creates a new client that will ask for tables matching req
func New(serverURL, name string, req protocol.TableRequest, strategy bot.Strategy, logger *log.Logger, opts ...Option) *Client {
	c := &Client{
		serverURL: serverURL,
		name:      name,
		request:   req,
		strategy:  strategy,
		logger:    logger.WithPrefix("client").With("player", name),
		seat:      -1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint converts a server address into its websocket URL
func Endpoint(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}

	// Convert http/https to ws/wss
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("invalid server URL %q: unsupported scheme", serverURL)
	}

	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	return u.String(), nil
}

// Run connects, joins and plays until the table limit is reached or ctx is
// cancelled. It returns an error if the server rejects the request or
// disconnects the client for a fault.
func (c *Client) Run(ctx context.Context) (Stats, error) {
	endpoint, err := Endpoint(c.serverURL)
	if err != nil {
		return c.stats, err
	}

	c.logger.Info("Connecting to server", "url", endpoint)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if ctx.Err() != nil {
			return c.stats, nil
		}
		return c.stats, fmt.Errorf("failed to connect: %w", err)
	}
	c.conn = conn
	defer c.Disconnect()

	stop := context.AfterFunc(ctx, func() { _ = c.conn.Close() })
	defer stop()

	if err := c.join(); err != nil {
		return c.stats, err
	}

	for {
		var msg protocol.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return c.stats, nil
			}
			return c.stats, fmt.Errorf("read: %w", err)
		}

		done, err := c.handleMessage(&msg)
		if err != nil || done {
			return c.stats, err
		}
	}
}

// Disconnect closes the WebSocket connection
func (c *Client) Disconnect() {
	if c.conn == nil {
		return
	}
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		_ = c.conn.Close() // Ignore close errors during shutdown
		c.logger.Debug("Disconnected from server")
	})
}

func (c *Client) join() error {
	msg, err := protocol.NewMessage(protocol.TypeJoin, protocol.Join{Name: c.name, Request: c.request})
	if err != nil {
		return err
	}
	c.logger.Debug("Joining", "request", c.request)
	return c.send(msg)
}

func (c *Client) send(msg *protocol.Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("send %s: %w", msg.Type, err)
	}
	return nil
}

// handleMessage reacts to one server message. done reports that the client
// has played all its tables.
func (c *Client) handleMessage(msg *protocol.Message) (done bool, err error) {
	c.logger.Debug("Received message", "type", msg.Type)

	switch msg.Type {
	case protocol.TypeSeated:
		var data protocol.Seated
		if err := msg.Decode(&data); err != nil {
			return false, err
		}
		c.seat = data.Seat
		c.logger.Info("Seated", "table", data.TableID, "seat", data.Seat)

	case protocol.TypeActionRequested:
		var req game.ActionRequested
		if err := msg.Decode(&req); err != nil {
			return false, err
		}
		resp := c.strategy.Decide(req)
		action, err := protocol.NewMessage(protocol.TypeAction, protocol.Action{Action: resp.Action, Amount: resp.Amount})
		if err != nil {
			return false, err
		}
		return false, c.send(action)

	case protocol.TypeShowdown:
		var sd game.Showdown
		if err := msg.Decode(&sd); err != nil {
			return false, err
		}
		c.stats.Rounds++
		if slices.Contains(sd.Winners, c.seat) {
			c.stats.Wins++
		}

	case protocol.TypeRequeued:
		c.stats.Requeues++
		c.logger.Info("Requeued after another seat's fault")

	case protocol.TypeTableEnded:
		var ended game.TableEnded
		if err := msg.Decode(&ended); err != nil {
			return false, err
		}
		if c.seat >= 0 && c.seat < len(ended.Stacks) {
			c.stats.Stack = ended.Stacks[c.seat]
		}
		c.seat = -1
		if ended.Faulted {
			// The server requeues us or disconnects us.
			return false, nil
		}
		c.stats.Tables++
		c.logger.Info("Table ended", "rounds", ended.Rounds, "stack", c.stats.Stack)
		if c.tables > 0 && c.stats.Tables >= c.tables {
			return true, nil
		}
		return false, c.join()

	case protocol.TypeError:
		var perr protocol.Error
		if err := msg.Decode(&perr); err != nil {
			return false, err
		}
		if perr.Code == protocol.CodeUnexpected {
			c.logger.Warn("Server ignored a message", "error", perr.Message)
			return false, nil
		}
		return false, perr

	case protocol.TypeHoleDealt, protocol.TypeStreetRevealed, protocol.TypeRoundFault:

	default:
		c.logger.Debug("Ignoring message", "type", msg.Type)
	}
	return false, nil
}

// IsRejected reports whether err came from the server rather than the
// transport.
func IsRejected(err error) bool {
	var perr protocol.Error
	return errors.As(err, &perr)
}
