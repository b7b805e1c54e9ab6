package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Event types pushed to order feeds.
const (
	EventOrderCreated       = "order.created"
	EventOrderUpdated       = "order.updated"
	EventOrderStatusChanged = "order.status_changed"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewEvent builds an Event, marshaling the payload. A payload that fails to
// marshal yields an event with a null payload rather than an error.
func NewEvent(eventType string, payload any) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ERROR: marshal ws payload: %v", err)
		data = []byte("null")
	}
	return Event{Type: eventType, Payload: data}
}

// studentEvent routes an event to one student's feed plus the admin feed.
type studentEvent struct {
	StudentID uuid.UUID
	Event     Event
}

// Hub maintains the set of active clients and broadcasts messages to them.
// Each student has a room receiving only their own order events; admin
// connections sit outside the rooms and receive every event.
type Hub struct {
	// Registered student clients by student ID
	rooms map[uuid.UUID]map[*Client]bool

	// Admin clients, which see all order events
	admins map[*Client]bool

	// Inbound messages from clients (register/unregister)
	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan *studentEvent

	// Mutex for thread-safe room access
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		admins:     make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *studentEvent, 256),
	}
}

// Run starts the hub's main loop
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if client.admin {
				h.admins[client] = true
			} else {
				if h.rooms[client.studentID] == nil {
					h.rooms[client.studentID] = make(map[*Client]bool)
				}
				h.rooms[client.studentID][client] = true
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeClient(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()

			// Marshal event to JSON once
			message, err := json.Marshal(event.Event)
			if err != nil {
				h.mu.Unlock()
				continue
			}

			for client := range h.rooms[event.StudentID] {
				h.send(client, message)
			}
			for client := range h.admins {
				h.send(client, message)
			}
			h.mu.Unlock()
		}
	}
}

// send delivers a message or drops the client when its buffer is full.
// Caller must hold h.mu.
func (h *Hub) send(client *Client, message []byte) {
	select {
	case client.send <- message:
	default:
		h.removeClient(client)
	}
}

// removeClient drops a client from its room or the admin set and closes its
// send channel. Caller must hold h.mu.
func (h *Hub) removeClient(client *Client) {
	if client.admin {
		if _, exists := h.admins[client]; exists {
			delete(h.admins, client)
			close(client.send)
		}
		return
	}
	if clients, ok := h.rooms[client.studentID]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			close(client.send)
			// Clean up empty rooms
			if len(clients) == 0 {
				delete(h.rooms, client.studentID)
			}
		}
	}
}

// BroadcastOrderEvent sends an event to the student's own feed and to every
// admin connection. This is the public API for handlers to broadcast events.
func (h *Hub) BroadcastOrderEvent(studentID uuid.UUID, event Event) {
	h.broadcast <- &studentEvent{
		StudentID: studentID,
		Event:     event,
	}
}
