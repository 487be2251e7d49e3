package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/hostelhub-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 32
)

var errSlowClient = errors.New("websocket client send buffer full")

// WebSocketClient pumps hub messages to one gorilla connection.
type WebSocketClient struct {
	id        string
	principal Principal
	conn      *websocket.Conn
	hub       *Hub
	logg      *logger.Logger

	mu     sync.Mutex
	send   chan Message
	closed bool
}

func NewWebSocketClient(conn *websocket.Conn, hub *Hub, principal Principal, logg *logger.Logger) *WebSocketClient {
	if logg == nil {
		logg = logger.Nop()
	}
	return &WebSocketClient{
		id:        uuid.NewString(),
		principal: principal,
		conn:      conn,
		hub:       hub,
		logg:      logg,
		send:      make(chan Message, sendBuffer),
	}
}

func (c *WebSocketClient) ID() string           { return c.id }
func (c *WebSocketClient) Principal() Principal { return c.principal }

func (c *WebSocketClient) Send(msg Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Close stops the write pump, which then closes the connection.
func (c *WebSocketClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Run registers the client and starts both pumps.
func (c *WebSocketClient) Run(ctx context.Context) {
	c.hub.Register(c)
	go c.writePump(ctx)
	go c.readPump(ctx)
}

// readPump only services control frames; inbound payloads are ignored.
func (c *WebSocketClient) readPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logg.Warn(c.logg.WithField(ctx, "client_id", c.id), "websocket read failed: "+err.Error())
			}
			return
		}
	}
}

func (c *WebSocketClient) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			payload, err := json.Marshal(msg)
			if err != nil {
				c.logg.Error(ctx, "encode websocket message", err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
