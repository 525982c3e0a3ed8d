package websocket

import (
	"encoding/json"
	"sync"

	"invest/internal/models"
	"invest/internal/money"
)

// BalanceUpdate is pushed to a user's sockets whenever verification or an
// accrual run changes their account totals.
type BalanceUpdate struct {
	UserID        string `json:"userId"`
	Balance       string `json:"balance"`
	TotalInvested string `json:"totalInvested"`
	TotalEarnings string `json:"totalEarnings"`
	Reason        string `json:"reason"`
}

func UpdateFromAccount(account models.Account, reason string) BalanceUpdate {
	return BalanceUpdate{
		UserID:        account.ID,
		Balance:       money.Format(account.Balance),
		TotalInvested: money.Format(account.TotalInvested),
		TotalEarnings: money.Format(account.TotalEarnings),
		Reason:        reason,
	}
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*Client]struct{})
	}
	h.clients[userID][client] = struct{}{}
}

func (h *Hub) Unregister(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		return
	}
	delete(h.clients[userID], client)
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}

func (h *Hub) Connected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// BroadcastBalance never blocks; a client whose buffer is full misses the update.
func (h *Hub) BroadcastBalance(update BalanceUpdate) {
	payload, _ := json.Marshal(update)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[update.UserID] {
		select {
		case client.send <- payload:
		default:
		}
	}
}
