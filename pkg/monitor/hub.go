// Package monitor provides a read-only WebSocket feed of recognition
// activity, using the channel-based fan-out pattern.
package monitor

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Hub maintains the set of connected observers and fans messages out to
// them. Observers never send anything meaningful back.
type Hub struct {
	logger *slog.Logger

	// Registered observers
	clients map[*Client]bool

	// Inbound messages to fan out
	broadcast chan []byte

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Guards clients for readers outside the Run loop
	mu sync.RWMutex
}

// New creates a hub. Run must be started before clients can register.
func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:     logger.With("component", "monitor.hub"),
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run is the hub's main loop. Call it in a goroutine; it runs for the
// life of the process.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("observer connected", "total", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("observer disconnected", "total", count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// The observer is not draining its queue; drop it.
					close(client.send)
					delete(h.clients, client)
					h.logger.Warn("dropped slow observer")
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast fans a message out to every observer. It never blocks; when
// the hub is saturated the message is dropped.
func (h *Hub) Broadcast(data []byte) {
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("broadcast queue full, dropping message")
	}
}

// BroadcastJSON encodes v and broadcasts it.
func (h *Hub) BroadcastJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(data)
	return nil
}

// ClientCount returns the number of connected observers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
