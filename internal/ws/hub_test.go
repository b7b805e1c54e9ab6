package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

// mockStudentClient creates a client for testing without a real WebSocket connection
func mockStudentClient(hub *Hub, studentID uuid.UUID) *Client {
	return &Client{
		hub:       hub,
		studentID: studentID,
		send:      make(chan []byte, 256),
	}
}

func mockAdminClient(hub *Hub) *Client {
	return &Client{
		hub:   hub,
		admin: true,
		send:  make(chan []byte, 256),
	}
}

func TestHubRegistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	studentID := uuid.New()
	client := mockStudentClient(hub, studentID)

	// Register client
	hub.register <- client

	// Give hub time to process
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.rooms[studentID] == nil {
		t.Fatal("student room not created")
	}
	if !hub.rooms[studentID][client] {
		t.Fatal("client not registered in student room")
	}
}

func TestHubUnregistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	studentID := uuid.New()
	client := mockStudentClient(hub, studentID)

	// Register client
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	// Unregister client
	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	// Room should be cleaned up when empty
	if hub.rooms[studentID] != nil {
		t.Fatal("student room not cleaned up after last client unregistered")
	}
}

func TestBroadcastReachesOwnFeedOnly(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	student1 := uuid.New()
	student2 := uuid.New()

	client1 := mockStudentClient(hub, student1)
	client2 := mockStudentClient(hub, student2)

	// Register both clients
	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	// Broadcast to student1 only
	testPayload := json.RawMessage(`{"order_id":"test-123"}`)
	event := Event{
		Type:    EventOrderCreated,
		Payload: testPayload,
	}
	hub.BroadcastOrderEvent(student1, event)

	// Check client1 receives the message
	select {
	case msg := <-client1.send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal message: %v", err)
		}
		if received.Type != EventOrderCreated {
			t.Errorf("expected type '%s', got '%s'", EventOrderCreated, received.Type)
		}
		if string(received.Payload) != string(testPayload) {
			t.Errorf("expected payload '%s', got '%s'", testPayload, received.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client1 did not receive message")
	}

	// Check client2 does NOT receive the message
	select {
	case <-client2.send:
		t.Fatal("client2 should not have received another student's event")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message received
	}
}

func TestBroadcastReachesAdmins(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	studentID := uuid.New()
	student := mockStudentClient(hub, studentID)
	admin := mockAdminClient(hub)

	hub.register <- student
	hub.register <- admin
	time.Sleep(10 * time.Millisecond)

	event := Event{
		Type:    EventOrderStatusChanged,
		Payload: json.RawMessage(`{"status":"in making"}`),
	}
	hub.BroadcastOrderEvent(studentID, event)

	// Both the student and the admin should receive the event
	for name, client := range map[string]*Client{"student": student, "admin": admin} {
		select {
		case msg := <-client.send:
			var received Event
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("%s: failed to unmarshal: %v", name, err)
			}
			if received.Type != EventOrderStatusChanged {
				t.Errorf("%s: expected type '%s', got '%s'", name, EventOrderStatusChanged, received.Type)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("%s did not receive message", name)
		}
	}
}

func TestAdminReceivesEveryStudentFeed(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	admin := mockAdminClient(hub)
	hub.register <- admin
	time.Sleep(10 * time.Millisecond)

	// Events for three different students, none of them connected
	for i := 0; i < 3; i++ {
		hub.BroadcastOrderEvent(uuid.New(), Event{
			Type:    EventOrderUpdated,
			Payload: json.RawMessage(`{}`),
		})
	}

	for i := 0; i < 3; i++ {
		select {
		case <-admin.send:
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("admin missed event %d", i+1)
		}
	}
}

func TestBroadcastToMultipleClientsSameStudent(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	studentID := uuid.New()
	client1 := mockStudentClient(hub, studentID)
	client2 := mockStudentClient(hub, studentID)
	client3 := mockStudentClient(hub, studentID)

	// Register all clients to the same student feed
	hub.register <- client1
	hub.register <- client2
	hub.register <- client3
	time.Sleep(10 * time.Millisecond)

	// Broadcast event
	testPayload := json.RawMessage(`{"status":"done"}`)
	event := Event{
		Type:    EventOrderStatusChanged,
		Payload: testPayload,
	}
	hub.BroadcastOrderEvent(studentID, event)

	// All three clients should receive the message
	clients := []*Client{client1, client2, client3}
	for i, client := range clients {
		select {
		case msg := <-client.send:
			var received Event
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("client%d: failed to unmarshal: %v", i+1, err)
			}
			if received.Type != EventOrderStatusChanged {
				t.Errorf("client%d: expected type '%s', got '%s'", i+1, EventOrderStatusChanged, received.Type)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("client%d did not receive message", i+1)
		}
	}
}

func TestHubCleanupEmptyRoom(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	studentID := uuid.New()
	client1 := mockStudentClient(hub, studentID)
	client2 := mockStudentClient(hub, studentID)

	// Register both clients
	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if len(hub.rooms[studentID]) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(hub.rooms[studentID]))
	}
	hub.mu.RUnlock()

	// Unregister first client
	hub.unregister <- client1
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if len(hub.rooms[studentID]) != 1 {
		t.Fatalf("expected 1 client after first unregister, got %d", len(hub.rooms[studentID]))
	}
	hub.mu.RUnlock()

	// Unregister second client
	hub.unregister <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if hub.rooms[studentID] != nil {
		t.Fatal("room should be deleted when last client unregisters")
	}
	hub.mu.RUnlock()
}

func TestBroadcastToDisconnectedStudent(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// Create a client for one student
	student1 := uuid.New()
	client1 := mockStudentClient(hub, student1)
	hub.register <- client1
	time.Sleep(10 * time.Millisecond)

	// Broadcast for a student with no open connection
	event := Event{
		Type:    EventOrderCreated,
		Payload: json.RawMessage(`{"test":"data"}`),
	}
	hub.BroadcastOrderEvent(uuid.New(), event)

	// client1 should NOT receive anything
	select {
	case <-client1.send:
		t.Fatal("client should not receive another student's event")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message
	}
}

func TestNewEventMarshalsPayload(t *testing.T) {
	event := NewEvent(EventOrderCreated, map[string]string{"status": "new"})

	if event.Type != EventOrderCreated {
		t.Errorf("type: got %s, want %s", event.Type, EventOrderCreated)
	}
	var payload map[string]string
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload["status"] != "new" {
		t.Errorf("payload status: got %q, want new", payload["status"])
	}
}
