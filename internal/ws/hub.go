package ws

import (
	"encoding/json"
	"sync"

	"twopc_backend/internal/domain"
	"twopc_backend/internal/logger"
)

// Hub fans commission entries out to the dashboards subscribed to the
// receiving wallet.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.Wallet]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.Wallet] = set
	}
	set[c] = struct{}{}
	FeedClients.Inc()
	logger.Debug("ws client registered", "wallet", c.Wallet, "clients", len(set))
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.Wallet]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.Wallet)
	}
	close(c.Send)
	FeedClients.Dec()
}

// Subscribers returns the number of open connections for wallet
func (h *Hub) Subscribers(wallet string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[wallet])
}

// Deliver sends each entry to the connections of its target wallet. Slow
// clients whose buffer is full miss the message instead of blocking the hub.
func (h *Hub) Deliver(entries []domain.CommissionEntry) {
	for _, e := range entries {
		msg, err := json.Marshal(Envelope{Type: MsgCommission, Data: CommissionPayload{e}})
		if err != nil {
			logger.Error("ws marshal commission", "error", err)
			continue
		}

		h.mu.RLock()
		for c := range h.clients[e.TargetWallet] {
			select {
			case c.Send <- msg:
				FeedMessages.Inc()
			default:
				FeedDropped.Inc()
				logger.Warn("ws client buffer full, dropping message", "wallet", c.Wallet)
			}
		}
		h.mu.RUnlock()
	}
}
