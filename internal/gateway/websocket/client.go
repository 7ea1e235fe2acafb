package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"fixter/pkg/logger"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period.
	pingPeriod = 30 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024

	// askTimeout bounds a query sent over the socket.
	askTimeout = 5 * time.Minute
)

var errNoAskHandler = errors.New("ask handler not configured")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the gateway binds to loopback by default
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client represents a WebSocket client connection.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	sessions map[string]bool
	id       string

	ctx    context.Context
	cancel context.CancelFunc
}

// NewClient creates a new client.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		sessions: make(map[string]bool),
		id:       uuid.NewString(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// readPump pumps messages from the WebSocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		c.cancel()
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error().Err(err).Str("client_id", c.id).Msg("WebSocket read error")
			}
			return
		}
		c.handleMessage(message)
	}
}

// handleMessage processes incoming WebSocket messages.
func (c *Client) handleMessage(message []byte) {
	var msg WSMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.reply(WSMessage{Type: TypeError, Code: "INVALID_MESSAGE", Message: "failed to parse message"})
		return
	}

	switch msg.Type {
	case TypeSubscribe:
		if msg.Session == "" {
			c.reply(WSMessage{Type: TypeError, Code: "INVALID_REQUEST", Message: "subscribe requires session"})
			return
		}
		c.hub.Subscribe(c, msg.Session)

	case TypeUnsubscribe:
		if msg.Session != "" {
			c.hub.Unsubscribe(c, msg.Session)
		}

	case TypePing:
		c.reply(WSMessage{Type: TypePong})

	case TypeAsk:
		c.handleAsk(msg)

	default:
		c.reply(WSMessage{Type: TypeError, Code: "UNKNOWN_TYPE", Message: "unknown message type: " + msg.Type})
	}
}

// handleAsk runs a query in the background. Run events reach the client
// through its session subscription; the answer is sent directly.
func (c *Client) handleAsk(msg WSMessage) {
	if msg.Query == "" {
		c.reply(WSMessage{Type: TypeError, Code: "INVALID_REQUEST", Message: "ask requires query"})
		return
	}
	sessionID := msg.Session
	if sessionID == "" {
		sessionID = "ws-" + c.id
	}
	c.hub.Subscribe(c, sessionID)

	go func() {
		ctx, cancel := context.WithTimeout(c.ctx, askTimeout)
		defer cancel()

		answer, loop, err := c.hub.handleAsk(ctx, sessionID, msg.Query)
		if err != nil {
			logger.Warn().Err(err).Str("client_id", c.id).Str("session", sessionID).Msg("WebSocket ask failed")
			c.reply(WSMessage{Type: TypeError, Session: sessionID, Code: "ASK_FAILED", Message: err.Error()})
			return
		}
		c.reply(WSMessage{Type: TypeAnswer, Session: sessionID, Loop: loop, Answer: answer})
	}()
}

// writePump pumps messages from the hub to the WebSocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Error().Err(err).Str("client_id", c.id).Msg("WebSocket write error")
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

// reply queues a frame for this client only. An ask may finish after the
// hub has closed c.send; that send panics and is dropped.
func (c *Client) reply(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	defer func() { _ = recover() }()
	select {
	case c.send <- data:
	case <-c.ctx.Done():
	default:
	}
}

// ServeWs upgrades the request and starts the client pumps.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := NewClient(hub, conn)
	if !hub.Register(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
