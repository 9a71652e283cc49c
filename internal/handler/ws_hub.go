package handler

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSEvent is the envelope for all WebSocket messages pushed to a client.
type WSEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// WSConn wraps a WebSocket connection with its owning user.
type WSConn struct {
	conn   *websocket.Conn
	userID string
	send   chan []byte
}

// Hub manages WebSocket connections keyed by user. Game events are always
// addressed to a user, so there is no per-topic subscription protocol; a
// client receives everything aimed at its account, on every open connection.
type Hub struct {
	mu    sync.RWMutex
	users map[string]map[*WSConn]bool
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{users: make(map[string]map[*WSConn]bool)}
}

// Register adds a connection to the hub.
func (h *Hub) Register(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.users[c.userID] == nil {
		h.users[c.userID] = make(map[*WSConn]bool)
	}
	h.users[c.userID][c] = true
}

// Unregister removes a connection from the hub and closes its send channel.
func (h *Hub) Unregister(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.users[c.userID]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.users, c.userID)
	}
	close(c.send)
}

// Deliver pushes a raw message to every connection of a user. This is the
// sink the Redis relay feeds, so events reach users on any server replica.
func (h *Hub) Deliver(userID string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.users[userID] {
		select {
		case c.send <- message:
		default:
			log.Warn().Str("userId", userID).Msg("Dropping WebSocket message, buffer full")
		}
	}
}

// NotifyUser marshals and delivers an event to a user's local connections.
// Lets the hub stand in as a broadcaster when Redis fanout is not in play.
func (h *Hub) NotifyUser(userID, eventType string, data any) {
	message, err := json.Marshal(WSEvent{Type: eventType, Payload: data})
	if err != nil {
		log.Error().Err(err).Str("userId", userID).Msg("Failed to marshal WebSocket event")
		return
	}
	h.Deliver(userID, message)
}

// ConnectionCount returns the total number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, conns := range h.users {
		total += len(conns)
	}
	return total
}

// UserConnectionCount returns the number of open connections for one user.
func (h *Hub) UserConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}
