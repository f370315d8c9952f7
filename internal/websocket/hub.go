package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Event is a real-time ledger notification broadcast to connected clients:
// a task completed, a reward claimed, or a notification audited.
type Event struct {
	Name   string `json:"name"`
	Entity string `json:"entity"`
	ID     int64  `json:"id,omitempty"`
	Points int    `json:"points,omitempty"`
}

// NewEvent creates an Event with the Name field derived from entity and action.
func NewEvent(entity, action string, id int64, points int) Event {
	return Event{
		Name:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		ID:     id,
		Points: points,
	}
}

// Hub maintains the set of active WebSocket clients and broadcasts events.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends an event to all connected clients.
func (h *Hub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Client buffer full — drop the event to avoid blocking
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
