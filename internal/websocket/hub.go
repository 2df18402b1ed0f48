package websocket

import (
	"log/slog"
	"sync"
	"time"
)

// MessageToSend defines the structure for sending a payload to a specific user.
type MessageToSend struct {
	TargetUserID string
	Payload      []byte
}

// Hub maintains the set of active clients and pushes event payloads to them.
type Hub struct {
	// Registered clients. Maps user ID to a set of active client connections.
	Clients map[string]map[*Client]bool

	// Channel for sending payloads to specific users.
	SendDirect chan *MessageToSend

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	// Mutex to protect concurrent access to the clients map.
	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		SendDirect: make(chan *MessageToSend),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Clients:    make(map[string]map[*Client]bool),
	}
}

// Run starts the hub's processing loop.
func (h *Hub) Run() {
	slog.Info("websocket hub started")
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.Clients[client.UserID]; !ok {
				h.Clients[client.UserID] = make(map[*Client]bool)
			}
			h.Clients[client.UserID][client] = true
			slog.Debug("websocket client registered",
				"user", client.UserID, "connections", len(h.Clients[client.UserID]))
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if userClients, ok := h.Clients[client.UserID]; ok {
				if _, clientOk := userClients[client]; clientOk {
					delete(userClients, client)
					if len(userClients) == 0 {
						delete(h.Clients, client.UserID)
					}
					slog.Debug("websocket client unregistered",
						"user", client.UserID, "connections", len(userClients))
				}
			}
			h.mu.Unlock()

		case directMessage := <-h.SendDirect:
			h.mu.RLock()
			userClients, ok := h.Clients[directMessage.TargetUserID]
			if !ok || len(userClients) == 0 {
				// Not connected; the durable stores are the source of truth,
				// the next sync will catch the client up.
				h.mu.RUnlock()
				continue
			}
			for client := range userClients {
				select {
				case client.Send <- directMessage.Payload:
				default:
					slog.Warn("websocket send buffer full, payload dropped", "user", client.UserID)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// PushToUser queues a payload for every active connection of a user.
// Best-effort: if the hub is blocked the payload is dropped after a timeout.
func (h *Hub) PushToUser(targetUserID string, payload []byte) {
	message := &MessageToSend{
		TargetUserID: targetUserID,
		Payload:      payload,
	}
	select {
	case h.SendDirect <- message:
	case <-time.After(1 * time.Second):
		slog.Warn("timeout queuing payload for websocket hub", "user", targetUserID)
	}
}
