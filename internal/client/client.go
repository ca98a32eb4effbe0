// Package client implements a participant endpoint: a websocket connection
// to the authority plus an observer replica of the session. The client
// never simulates game logic; it renders replicated state and fires gate
// triggers.
package client

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/cambio/internal/game"
	"github.com/lox/cambio/internal/protocol"
)

// Handler receives a raw message of a subscribed type.
type Handler func(data []byte)

// Client represents a websocket client for one participant endpoint
type Client struct {
	serverURL     string
	name          string
	retryInterval time.Duration

	conn      *websocket.Conn
	send      chan []byte
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	connected bool
	closeOnce sync.Once

	// resume is the seat credential from the last hello acknowledgement,
	// replayed on reconnect so the authority rebinds the same seat.
	resume string

	replica  *Replica
	handlers map[protocol.MessageType][]Handler
}

// NewClient creates a new client for the given server URL.
func NewClient(serverURL, name string, logger *log.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		serverURL:     serverURL,
		name:          name,
		retryInterval: 3 * time.Second,
		send:          make(chan []byte, 256),
		logger:        logger.WithPrefix("client"),
		ctx:           ctx,
		cancel:        cancel,
		replica:       NewReplica(),
		handlers:      make(map[protocol.MessageType][]Handler),
	}
}

// Replica returns the client's observer state.
func (c *Client) Replica() *Replica {
	return c.replica
}

// Connect establishes the websocket connection and introduces the
// endpoint. The seat binding arrives in the hello acknowledgement.
func (c *Client) Connect() error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws"

	c.logger.Info("Connecting to server", "url", u.String())
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	resume := c.resume
	c.mu.Unlock()

	go c.readPump()
	go c.writePump()

	return c.sendMsg(protocol.Hello{Type: protocol.TypeHello, Name: c.name, Resume: resume})
}

// ConnectWithRetry dials at a fixed interval until a connection succeeds
// or the context is cancelled. The interval is deliberately constant: the
// authority is a single known server, not a fleet worth backing off from.
func (c *Client) ConnectWithRetry(ctx context.Context) error {
	for {
		err := c.Connect()
		if err == nil {
			return nil
		}
		c.logger.Warn("Connect failed, retrying", "interval", c.retryInterval, "error", err)
		select {
		case <-time.After(c.retryInterval):
		case <-ctx.Done():
			return ctx.Err()
		case <-c.ctx.Done():
			return c.ctx.Err()
		}
	}
}

// Disconnect closes the connection
func (c *Client) Disconnect() error {
	c.closeOnce.Do(func() {
		c.cancel()

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.conn != nil {
			_ = c.conn.Close()
			c.connected = false
		}
		close(c.send)

		c.logger.Info("Disconnected from server")
	})
	return nil
}

// IsConnected returns whether the client is connected
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// RequestStart asks the authority to start a game.
func (c *Client) RequestStart() error {
	return c.sendMsg(protocol.RequestStart{Type: protocol.TypeRequestStart})
}

// Trigger fires the gate on an entity. The local gate mirror is consulted
// first so an obviously disallowed trigger is declined without a round
// trip; the authority revalidates everything that passes.
func (c *Client) Trigger(entity string) error {
	if !c.replica.CanTrigger(entity) {
		return fmt.Errorf("%w: no enabled gate on %s for this seat", game.ErrNotAllowed, entity)
	}
	return c.sendMsg(protocol.Trigger{Type: protocol.TypeTrigger, Entity: entity})
}

// Subscribe registers a handler for a message type. Handlers run on the
// read loop after the replica has applied the message.
func (c *Client) Subscribe(msgType protocol.MessageType, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[msgType] = append(c.handlers[msgType], handler)
}

func (c *Client) sendMsg(v any) error {
	data, err := protocol.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		return fmt.Errorf("send buffer full")
	}
}

// readPump handles incoming messages from the server
func (c *Client) readPump() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("Websocket error", "error", err)
			}
			return
		}
		c.handleMessage(data)
	}
}

// writePump handles outgoing messages to the server
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage applies a message to the replica, then fans it out to
// subscribed handlers.
func (c *Client) handleMessage(data []byte) {
	msgType, err := protocol.PeekType(data)
	if err != nil {
		c.logger.Warn("Dropping malformed message", "error", err)
		return
	}

	switch msgType {
	case protocol.TypeHelloAck:
		var msg protocol.HelloAck
		if err := protocol.Unmarshal(data, &msg); err == nil {
			c.mu.Lock()
			c.resume = msg.Resume
			c.mu.Unlock()
			c.replica.SetIdentity(msg.SessionID, msg.SeatID)
			c.logger.Info("Seated", "session", msg.SessionID, "seat", msg.SeatID, "rules", msg.Rules)
		}

	case protocol.TypeSnapshot:
		var msg protocol.Snapshot
		if err := protocol.Unmarshal(data, &msg); err == nil {
			c.replica.ApplySnapshot(msg.State)
		}

	case protocol.TypeReveal:
		var msg protocol.Reveal
		if err := protocol.Unmarshal(data, &msg); err == nil {
			c.replica.ApplyReveal(msg)
		}

	case protocol.TypeError:
		var msg protocol.Error
		if err := protocol.Unmarshal(data, &msg); err == nil {
			c.logger.Warn("Request declined", "code", msg.Code, "message", msg.Message)
		}
	}

	c.mu.RLock()
	handlers := c.handlers[msgType]
	c.mu.RUnlock()
	for _, handler := range handlers {
		handler(data)
	}
}
