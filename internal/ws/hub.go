package ws

import (
	"encoding/json"
	"sync"

	"txguardian/internal/logger"
)

// Hub tracks live notification connections per user. A user may hold
// several connections (multiple tabs); Push fans out to all of them and
// never blocks the caller — dispatch stays fire-and-forget.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[int64]map[*Client]struct{})}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
	logger.Debug("ws client registered", "user_id", c.UserID, "connections", len(set))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.UserID)
	}
}

// Push delivers a payload to every live connection for the user. A slow
// client's full send buffer drops the message for that connection only.
func (h *Hub) Push(userID int64, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("ws payload marshal failed", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[userID] {
		select {
		case c.Send <- data:
		default:
			logger.Warn("ws send buffer full, dropping message", "user_id", userID)
		}
	}
}
