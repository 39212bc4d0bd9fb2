package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lox/pokerroom/internal/game"
	"github.com/lox/pokerroom/internal/protocol"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// Outgoing messages buffered per connection
	sendBufferSize = 256
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendBufferFull   = errors.New("send buffer full")
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	id        string
	conn      *websocket.Conn
	send      chan *protocol.Message
	lobby     *Lobby
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu      sync.Mutex
	closed  bool
	name    string
	pending chan game.Response
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, lobby *Lobby, logger *log.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()

	return &Connection{
		id:     id,
		conn:   conn,
		send:   make(chan *protocol.Message, sendBufferSize),
		lobby:  lobby,
		logger: logger.WithPrefix("conn").With("conn", id[:8]),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// ID returns the connection's unique id
func (c *Connection) ID() string { return c.id }

// Name returns the name the client joined with
func (c *Connection) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.name == "" {
		return c.id[:8]
	}
	return c.name
}

// Done is closed once the connection is closed
func (c *Connection) Done() <-chan struct{} { return c.ctx.Done() }

// Close closes the connection
func (c *Connection) Close() error {
	c.mu.Lock()
	c.shutdownLocked()
	c.mu.Unlock()

	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}

// shutdownLocked cancels the connection and stops the write pump
func (c *Connection) shutdownLocked() {
	c.cancel()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// SendMessage queues a message for the client. A client that cannot keep
// up is disconnected.
func (c *Connection) SendMessage(msg *protocol.Message) error {
	c.mu.Lock()
	if c.closed || c.ctx.Err() != nil {
		c.mu.Unlock()
		return ErrConnectionClosed
	}

	select {
	case c.send <- msg:
		c.mu.Unlock()
		return nil
	default:
	}

	c.logger.Warn("Connection send buffer full, closing connection")
	c.mu.Unlock()
	_ = c.Close()
	return ErrSendBufferFull
}

// AwaitAction arms the connection for the next action message and returns
// the channel it will be delivered on. Any earlier request is dropped.
func (c *Connection) AwaitAction() <-chan game.Response {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = make(chan game.Response, 1)
	return c.pending
}

// CancelAction drops the outstanding action request, if any
func (c *Connection) CancelAction() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = nil
}

// deliver hands a client action to the waiting request. It reports false
// when nothing is waiting.
func (c *Connection) deliver(resp game.Response) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return false
	}
	c.pending <- resp
	c.pending = nil
	return true
}

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() {
		c.lobby.Leave(c)
		_ = c.Close() // Ignore close errors during cleanup
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg protocol.Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // Ignore close errors during cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				c.cancel()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.cancel()
				return
			}
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *protocol.Message) {
	c.logger.Debug("Received message", "type", msg.Type, "player", c.Name())

	switch msg.Type {
	case protocol.TypeJoin:
		var data protocol.Join
		if err := msg.Decode(&data); err != nil {
			c.sendError(protocol.CodeInvalidMessage, "Failed to parse join data")
			return
		}
		if data.Name != "" {
			c.mu.Lock()
			c.name = data.Name
			c.mu.Unlock()
		}
		if err := c.lobby.Join(c, data.Request); err != nil {
			c.sendError(protocol.CodeInvalidRequest, err.Error())
		}

	case protocol.TypeAction:
		var data protocol.Action
		if err := msg.Decode(&data); err != nil {
			c.sendError(protocol.CodeInvalidMessage, "Failed to parse action data")
			return
		}
		if !c.deliver(data.Response()) {
			c.sendError(protocol.CodeUnexpected, "No action was requested")
		}

	default:
		c.sendError(protocol.CodeInvalidMessage, "Unknown message type: "+string(msg.Type))
	}
}

// sendError sends an error message to the client
func (c *Connection) sendError(code, message string) {
	errorMsg, err := protocol.NewMessage(protocol.TypeError, protocol.Error{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error("Failed to create error message", "error", err)
		return
	}

	_ = c.SendMessage(errorMsg) // Ignore send errors during error handling
}
