package hub

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/carl0967/vrm-chat-space/internal/log"
)

// Hub maintains the set of active clients and broadcasts events to them.
type Hub struct {
	// Name for logging
	name string

	// Registered clients
	clients map[*Client]bool

	// Inbound events to broadcast
	broadcast chan []byte

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex for client count (read-only access from outside)
	mu sync.RWMutex
}

// New creates a new Hub.
func New(name string) *Hub {
	return &Hub{
		name:       name,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's main loop and blocks until ctx is done.
// This should be called in a goroutine.
func (h *Hub) Run(ctx context.Context) {
	logger := log.Component("hub").With("name", h.name)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			logger.Info("hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			logger.Info("client connected", "client", client.ID, "total", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			logger.Info("client disconnected", "client", client.ID, "remaining", count)

		case payload := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- payload:
				default:
					// Client's buffer is full, drop them
					close(client.send)
					delete(h.clients, client)
					logger.Warn("dropped slow client", "client", client.ID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast encodes an event and queues it for every client. A full
// broadcast channel drops the event rather than blocking the engine.
func (h *Hub) Broadcast(ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- payload:
	default:
		log.Component("hub").Warn("broadcast channel full, dropping event", "name", h.name, "kind", ev.Kind)
	}
	return nil
}

// BroadcastStatus is a convenience wrapper for status lines. It never
// fails; a status line is plain text.
func (h *Hub) BroadcastStatus(text string) {
	_ = h.Broadcast(StatusEvent(text))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
