package server

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/cambio/internal/protocol"
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
)

var ErrConnectionClosed = websocket.ErrCloseSent

// Connection represents a websocket connection to a participant endpoint.
// The endpoint id is assigned at upgrade time and is what seats bind to.
type Connection struct {
	conn      *websocket.Conn
	send      chan []byte
	endpoint  string
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	service   *SessionService
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, endpoint string, logger *log.Logger, service *SessionService) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:     conn,
		send:     make(chan []byte, 256),
		endpoint: endpoint,
		logger:   logger.WithPrefix("conn"),
		ctx:      ctx,
		cancel:   cancel,
		service:  service,
	}
}

// Endpoint returns the connection's endpoint id.
func (c *Connection) Endpoint() string {
	return c.endpoint
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// Send marshals a message and queues it for the write pump. A full buffer
// closes the connection rather than blocking the caller.
func (c *Connection) Send(v any) error {
	data, err := protocol.Marshal(v)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			// Channel closed during shutdown
			c.logger.Debug("Attempted to send on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- data:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Connection send buffer full, closing connection", "endpoint", c.endpoint)
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("Websocket error", "endpoint", c.endpoint, "error", err)
			}
			break
		}

		c.handleMessage(data)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage dispatches an incoming message to the session service.
// Declined requests are answered with an error message; the engine
// guarantees a decline changed no state.
func (c *Connection) handleMessage(data []byte) {
	msgType, err := protocol.PeekType(data)
	if err != nil {
		c.sendError(err)
		return
	}
	c.logger.Debug("Received message", "type", msgType, "endpoint", c.endpoint)

	if c.service == nil {
		c.sendError(protocol.ErrUnknownMessageType)
		return
	}

	switch msgType {
	case protocol.TypeHello:
		var msg protocol.Hello
		if err := protocol.Unmarshal(data, &msg); err != nil {
			c.sendError(err)
			return
		}
		ack, err := c.service.Hello(c.endpoint, msg.Name, msg.Resume)
		if err != nil {
			c.sendError(err)
			return
		}
		_ = c.Send(ack)
		_ = c.Send(c.service.SnapshotMessage())

	case protocol.TypeRequestStart:
		if err := c.service.RequestStart(c.endpoint); err != nil {
			c.sendError(err)
		}

	case protocol.TypeTrigger:
		var msg protocol.Trigger
		if err := protocol.Unmarshal(data, &msg); err != nil {
			c.sendError(err)
			return
		}
		if err := c.service.Trigger(c.endpoint, msg.Entity); err != nil {
			c.sendError(err)
		}

	default:
		c.sendError(protocol.ErrUnknownMessageType)
	}
}

// sendError sends an error message to the client
func (c *Connection) sendError(err error) {
	_ = c.Send(protocol.NewError(err))
}
