package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ikkim/storefront-backend/internal/session"
	"github.com/ikkim/storefront-backend/pkg/logger"
)

const EventCartChanged = "cart_changed"

// Event is pushed to every connected device of an owner.
type Event struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
}

// Client is one connected device.
type Client struct {
	hub   *Hub
	conn  *Conn
	owner string
	send  chan []byte
}

type delivery struct {
	owner   string
	payload []byte
}

// Hub tracks connections per owner key ("user:<id>" or "guest:<token>").
// A signed-in user may hold several devices.
type Hub struct {
	clients    map[string][]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan delivery
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string][]*Client),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan delivery, 1024),
	}
}

// Run serves hub events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.owner] = append(h.clients[client.owner], client)
			sessions := len(h.clients[client.owner])
			h.mu.Unlock()
			logger.Debug("WebSocket client registered", map[string]interface{}{
				"owner":    client.owner,
				"sessions": sessions,
			})

		case client := <-h.unregister:
			h.remove(client)

		case d := <-h.broadcast:
			h.mu.RLock()
			targets := append([]*Client(nil), h.clients[d.owner]...)
			h.mu.RUnlock()

			for _, client := range targets {
				select {
				case client.send <- d.payload:
				default:
					logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
						"owner": d.owner,
					})
					h.remove(client)
				}
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	list, ok := h.clients[client.owner]
	if !ok {
		return
	}
	kept := list[:0:0]
	found := false
	for _, c := range list {
		if c == client {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return
	}
	if len(kept) == 0 {
		delete(h.clients, client.owner)
	} else {
		h.clients[client.owner] = kept
	}
	close(client.send)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for owner, list := range h.clients {
		for _, c := range list {
			close(c.send)
		}
		delete(h.clients, owner)
	}
}

// Notify queues an event for owner. Dropped when the hub is saturated.
func (h *Hub) Notify(owner string, eventType string) {
	if owner == "" {
		return
	}
	payload, err := json.Marshal(Event{Type: eventType, At: time.Now().UTC()})
	if err != nil {
		logger.Error("Failed to marshal websocket event", err)
		return
	}

	select {
	case h.broadcast <- delivery{owner: owner, payload: payload}:
	default:
		logger.Warn("Broadcast channel full, event dropped", map[string]interface{}{
			"owner": owner,
			"type":  eventType,
		})
	}
}

// CartChanged signals every device of owner that its cart must be refetched.
func (h *Hub) CartChanged(owner session.Identity) {
	h.Notify(owner.Key(), EventCartChanged)
}

// IsOnline reports whether owner has at least one open connection.
func (h *Hub) IsOnline(owner string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[owner]) > 0
}
