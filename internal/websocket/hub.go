package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

// Hub maintains active WebSocket connections and fans out live updates.
// A user may hold several connections (tabs, devices) at once.
type Hub struct {
	// userID -> set of connections
	clients map[string]map[*Client]struct{}

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client

	// closed when Run returns
	done chan struct{}

	mu sync.RWMutex
}

// Message is a payload for one user, or for everyone when UserID is empty
type Message struct {
	UserID string
	Data   interface{}
}

// BalanceUpdate is pushed to a user whenever their coin balance changes
type BalanceUpdate struct {
	Type        string `json:"type"`
	UserID      string `json:"userId"`
	CoinBalance int    `json:"coinBalance"`
	Delta       int    `json:"delta"`
	Reason      string `json:"reason"`
}

// BinUpdate is pushed to every connected client when a bin changes
type BinUpdate struct {
	Type string      `json:"type"`
	Bin  interface{} `json:"bin"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and messages until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case client := <-h.register:
			h.mu.Lock()
			conns, ok := h.clients[client.UserID]
			if !ok {
				conns = make(map[*Client]struct{})
				h.clients[client.UserID] = conns
			}
			conns[client] = struct{}{}
			total := h.countLocked()
			h.mu.Unlock()
			log.Printf("✅ [WEBSOCKET] Client CONNECTED: user %s (total connections: %d)", client.UserID, total)

		case client := <-h.unregister:
			h.mu.Lock()
			if h.removeLocked(client) {
				log.Printf("🔴 [WEBSOCKET] Client DISCONNECTED: user %s (remaining: %d)", client.UserID, h.countLocked())
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			data, err := json.Marshal(message.Data)
			if err != nil {
				log.Printf("❌ Failed to marshal message: %v", err)
				continue
			}

			h.mu.Lock()
			for _, client := range h.targetsLocked(message.UserID) {
				select {
				case client.send <- data:
				default:
					// Client buffer full, disconnect
					h.removeLocked(client)
					log.Printf("⚠️ Client buffer full, disconnecting: %s", client.UserID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register hands a new connection to the hub. It reports false once the
// hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// reply queues data on one connection only. The membership check and the
// send share the lock that guards closing client.send.
func (h *Hub) reply(client *Client, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[client.UserID][client]; !ok {
		return
	}
	select {
	case client.send <- data:
	default:
		log.Printf("⚠️ Client buffer full, dropping reply for %s", client.UserID)
	}
}

func (h *Hub) targetsLocked(userID string) []*Client {
	var targets []*Client
	if userID != "" {
		for c := range h.clients[userID] {
			targets = append(targets, c)
		}
		return targets
	}
	for _, conns := range h.clients {
		for c := range conns {
			targets = append(targets, c)
		}
	}
	return targets
}

// removeLocked drops a client and closes its send channel once
func (h *Hub) removeLocked(client *Client) bool {
	conns, ok := h.clients[client.UserID]
	if !ok {
		return false
	}
	if _, ok := conns[client]; !ok {
		return false
	}
	delete(conns, client)
	if len(conns) == 0 {
		delete(h.clients, client.UserID)
	}
	close(client.send)
	return true
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, conns := range h.clients {
		for c := range conns {
			close(c.send)
		}
	}
	h.clients = make(map[string]map[*Client]struct{})
}

func (h *Hub) countLocked() int {
	n := 0
	for _, conns := range h.clients {
		n += len(conns)
	}
	return n
}

// BroadcastToUser sends a message to every connection of one user
func (h *Hub) BroadcastToUser(userID string, data interface{}) {
	h.enqueue(&Message{UserID: userID, Data: data})
}

// BroadcastAll sends a message to every connected client
func (h *Hub) BroadcastAll(data interface{}) {
	h.enqueue(&Message{Data: data})
}

// enqueue never blocks the request path; updates are dropped when the hub
// is saturated
func (h *Hub) enqueue(m *Message) {
	select {
	case h.broadcast <- m:
	default:
		log.Printf("⚠️ WebSocket hub backlog full, dropping update for %q", m.UserID)
	}
}

// NotifyBalance pushes a balance_update to a user
func (h *Hub) NotifyBalance(userID string, balance, delta int, reason string) {
	h.BroadcastToUser(userID, BalanceUpdate{
		Type:        "balance_update",
		UserID:      userID,
		CoinBalance: balance,
		Delta:       delta,
		Reason:      reason,
	})
}

// NotifyBin pushes a bin_update to everyone
func (h *Hub) NotifyBin(bin interface{}) {
	h.BroadcastAll(BinUpdate{Type: "bin_update", Bin: bin})
}

// GetClientCount returns the number of open connections
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.countLocked()
}

// IsUserConnected checks if a user has at least one open connection
func (h *Hub) IsUserConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}
