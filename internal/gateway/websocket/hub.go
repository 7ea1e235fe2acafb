package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"fixter/internal/agent"
	"fixter/pkg/logger"
)

// AskHandler answers a query sent over a socket.
type AskHandler func(ctx context.Context, sessionID, query string) (answer, loop string, err error)

// Hub maintains the set of active clients and routes messages to the
// subscribers of a session.
type Hub struct {
	clients  map[*Client]bool
	sessions map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	done       chan struct{}

	mu         sync.RWMutex
	askHandler AskHandler
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		sessions:   make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
		done:       make(chan struct{}),
	}
}

// SetAskHandler sets the callback for ask messages.
func (h *Hub) SetAskHandler(handler AskHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.askHandler = handler
}

func (h *Hub) handleAsk(ctx context.Context, sessionID, query string) (string, string, error) {
	h.mu.RLock()
	handler := h.askHandler
	h.mu.RUnlock()
	if handler == nil {
		return "", "", errNoAskHandler
	}
	return handler(ctx, sessionID, query)
}

// Run processes registrations and broadcasts until ctx is canceled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.sessions = make(map[string]map[*Client]bool)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logger.Info().Str("client_id", client.id).Msg("WebSocket client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				for session := range client.sessions {
					h.dropLocked(client, session)
				}
			}
			h.mu.Unlock()
			logger.Info().Str("client_id", client.id).Msg("WebSocket client disconnected")

		case msg := <-h.broadcast:
			h.mu.RLock()
			targets := h.clients
			if msg.Session != "" {
				targets = h.sessions[msg.Session]
			}
			for client := range targets {
				select {
				case client.send <- msg.Data:
				default:
					// slow client, drop the frame
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a client to the hub. It reports false once the hub has
// stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Subscribe adds a client to a session's subscriber list.
func (h *Hub) Subscribe(client *Client, session string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.sessions[session] = true
	if h.sessions[session] == nil {
		h.sessions[session] = make(map[*Client]bool)
	}
	h.sessions[session][client] = true

	logger.Debug().Str("client_id", client.id).Str("session", session).Msg("Client subscribed to session")
}

// Unsubscribe removes a client from a session's subscriber list.
func (h *Hub) Unsubscribe(client *Client, session string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(client, session)
}

func (h *Hub) dropLocked(client *Client, session string) {
	delete(client.sessions, session)
	if clients, ok := h.sessions[session]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.sessions, session)
		}
	}
}

// Broadcast queues data for the subscribers of session, or for every
// client when session is empty. It never blocks; when the queue is full
// the frame is dropped and false is returned.
func (h *Hub) Broadcast(session string, data []byte) bool {
	select {
	case h.broadcast <- &BroadcastMessage{Session: session, Data: data}:
		return true
	default:
		return false
	}
}

// Publish marshals msg and broadcasts it to msg.Session.
func (h *Hub) Publish(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Error().Err(err).Str("type", msg.Type).Msg("Failed to marshal websocket message")
		return
	}
	if !h.Broadcast(msg.Session, data) {
		logger.Warn().Str("type", msg.Type).Str("session", msg.Session).Msg("Broadcast queue full, dropping message")
	}
}

// OnEvent implements agent.Observer by forwarding run events to the
// subscribers of the run's session.
func (h *Hub) OnEvent(e agent.Event) {
	if e.SessionID == "" {
		return
	}
	h.Publish(NewEventMessage(e))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SubscriberCount returns the number of clients subscribed to session.
func (h *Hub) SubscriberCount(session string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[session])
}
