package ws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	readLimit    = 4 * 1024
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	sendBuffer   = 64
)

// Filter narrows the status events a subscriber receives. Empty fields match everything.
type Filter struct {
	Kind     string
	EntityID string
}

func (f Filter) matches(kind, entityID string) bool {
	if f.Kind != "" && f.Kind != kind {
		return false
	}
	return f.EntityID == "" || f.EntityID == entityID
}

// Connection is one status stream subscriber.
type Connection struct {
	id           string
	filter       Filter
	ws           *websocket.Conn
	send         chan []byte
	logger       *zap.Logger
	writeTimeout time.Duration
	onClose      func(id string)
}

// NewConnection builds connection wrapper.
func NewConnection(id string, filter Filter, ws *websocket.Conn, writeTimeout time.Duration, logger *zap.Logger, onClose func(string)) *Connection {
	return &Connection{
		id:           id,
		filter:       filter,
		ws:           ws,
		send:         make(chan []byte, sendBuffer),
		logger:       logger,
		writeTimeout: writeTimeout,
		onClose:      onClose,
	}
}

// ID returns identifier.
func (c *Connection) ID() string {
	return c.id
}

// Start launches read/write pumps and blocks until the peer goes away.
func (c *Connection) Start(ctx context.Context) {
	go c.writePump(ctx)
	c.readPump(ctx)
}

// readPump only keeps the connection alive; subscribers never send commands.
func (c *Connection) readPump(ctx context.Context) {
	defer c.cleanup()
	c.ws.SetReadLimit(readLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if _, _, err := c.ws.ReadMessage(); err != nil {
			c.logger.Debug("status stream read closed", zap.String("subscriber_id", c.id), zap.Error(err))
			return
		}
	}
}

func (c *Connection) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				_ = c.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Send enqueues a message without blocking; a full buffer drops it.
func (c *Connection) Send(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		c.logger.Warn("dropping status update, subscriber buffer full", zap.String("subscriber_id", c.id))
		return false
	}
}

func (c *Connection) write(messageType int, data []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteMessage(messageType, data)
}

// cleanup detaches from the hub before closing send, so no publisher can write to a closed channel.
func (c *Connection) cleanup() {
	if c.onClose != nil {
		c.onClose(c.id)
	}
	close(c.send)
	_ = c.ws.Close()
}
