// Package sse fans newly created notifications out to connected stream clients.
package sse

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/dimitrije/agency-api/internal/models"
	"github.com/google/uuid"
)

type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

const EventNotificationCreated = "notification_created"

// Client is one open stream, bound to a user inside a tenant.
type Client struct {
	ID       string
	UserID   uuid.UUID
	TenantID uuid.UUID
	Send     chan []byte
}

type recipient struct {
	userID   uuid.UUID
	tenantID uuid.UUID
}

type message struct {
	to    recipient
	event Event
}

type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 256),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is done, then closes
// every client's Send channel. Register and Unregister stop blocking once Run
// has returned.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				close(client.Send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg.event)
			if err != nil {
				continue
			}
			h.mu.RLock()
			for _, client := range h.clients {
				if client.UserID != msg.to.userID || client.TenantID != msg.to.tenantID {
					continue
				}
				select {
				case client.Send <- data:
				default:
					// slow consumer
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds client to the hub. After shutdown the client's Send channel
// is closed straight away so the stream ends.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount reports the number of open streams for a user in a tenant.
func (h *Hub) ClientCount(userID, tenantID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, c := range h.clients {
		if c.UserID == userID && c.TenantID == tenantID {
			n++
		}
	}
	return n
}

// PublishNotification queues n for the recipient's open streams. It never
// blocks; when the queue is full the event is dropped and false is returned.
func (h *Hub) PublishNotification(n *models.Notification) bool {
	msg := message{
		to:    recipient{userID: n.UserID, tenantID: n.TenantID},
		event: Event{Type: EventNotificationCreated, Data: n},
	}
	select {
	case h.broadcast <- msg:
		return true
	default:
		return false
	}
}
