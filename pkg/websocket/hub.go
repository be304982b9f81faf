package websocket

import (
	"sync"

	"github.com/krishanu7/subway-trader-backend/pkg/metrics"
	"go.uber.org/zap"
)

// Hub tracks live feed subscribers and fans frames out to them.
type Hub struct {
	clients map[string]*Client
	mu      sync.Mutex
	log     *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		log:     log.Named("hub"),
	}
}

func (h *Hub) AddClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c.ID] = c
	metrics.SetFeedClients(len(h.clients))
	h.log.Debug("feed client connected", zap.String("client", c.ID))
}

// RemoveClient unregisters c and closes its send queue. Calling it twice is a no-op.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	delete(h.clients, c.ID)
	close(c.Send)
	metrics.SetFeedClients(len(h.clients))
	h.log.Debug("feed client disconnected", zap.String("client", c.ID))
}

// Broadcast queues message for every client without blocking. A client whose
// queue is full is dropped. It returns the number of clients reached.
func (h *Hub) Broadcast(message []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for _, c := range h.clients {
		select {
		case c.Send <- message:
			delivered++
		default:
			h.log.Warn("dropping slow feed client", zap.String("client", c.ID))
			h.removeLocked(c)
		}
	}
	return delivered
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
