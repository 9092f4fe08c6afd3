package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Hub fans events out to every connected display. The latest attempt.status
// event is replayed to displays that join late. A display whose buffer is
// full is disconnected instead of blocking the others.
type Hub struct {
	clients    map[*Client]struct{}
	events     chan Event
	join       chan *Client
	leave      chan *Client
	stopped    chan struct{}
	lastStatus []byte
	now        func() time.Time
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		events:  make(chan Event, 256),
		join:    make(chan *Client),
		leave:   make(chan *Client),
		stopped: make(chan struct{}),
		now:     time.Now,
	}
}

// Run serves joins and broadcasts until ctx is cancelled, then closes every
// client. It must be called once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.join:
			h.addClient(client)
		case client := <-h.leave:
			h.removeClient(client)
		case event := <-h.events:
			h.deliver(event)
		}
	}
}

func (h *Hub) joinHub(client *Client) bool {
	select {
	case h.join <- client:
		return true
	case <-h.stopped:
		return false
	}
}

func (h *Hub) leaveHub(client *Client) {
	select {
	case h.leave <- client:
	case <-h.stopped:
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = struct{}{}
	if h.lastStatus != nil {
		select {
		case client.send <- h.lastStatus:
		default:
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.drop(client)
}

// drop must be called with mu held
func (h *Hub) drop(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		h.drop(client)
	}
}

func (h *Hub) deliver(event Event) {
	message, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if event.Type == EventStatus {
		h.lastStatus = message
	}
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			h.drop(client)
		}
	}
}

// Broadcast queues an event for all clients. It never blocks; events are
// dropped while the hub is saturated.
func (h *Hub) Broadcast(eventType EventType, data interface{}) {
	event := Event{
		Type:      eventType,
		Data:      data,
		Timestamp: h.now().UTC(),
	}

	select {
	case h.events <- event:
	default:
	}
}

func (h *Hub) ConnectedClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
