package core

import "sync"

// Hub tracks live connections and which room each one is tuned into.
// It is purely a fanout index; room membership semantics live in the
// store-backed room document.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
	}
}

// Register adds a connection to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// Unregister removes a connection from the hub and from every room it
// was subscribed to.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	for name, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, name)
		}
	}
}

// Subscribe tunes a connection into a room's broadcasts.
func (h *Hub) Subscribe(c *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[roomID] = members
	}
	members[c] = struct{}{}
}

// Unsubscribe removes a connection from a room's broadcasts.
func (h *Hub) Unsubscribe(c *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}
}

// EmitTo delivers an event to a single connection.
func (h *Hub) EmitTo(c *Client, event *Event) {
	deliver(c, event)
}

// EmitRoom delivers an event to every connection tuned into the room.
func (h *Hub) EmitRoom(roomID string, event *Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[roomID] {
		deliver(client, event)
	}
}

// EmitAll delivers an event to every connection.
func (h *Hub) EmitAll(event *Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		deliver(client, event)
	}
}

func deliver(c *Client, event *Event) {
	select {
	case c.Events <- event:
	default:
		// Drop if slow consumer.
	}
}
