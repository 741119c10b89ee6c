package ws

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestNewHub(t *testing.T) {
	h := NewHub()
	if h == nil {
		t.Fatal("expected non-nil Hub")
	}
	if h.clients == nil {
		t.Fatal("expected clients map to be initialised")
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	h := NewHub()
	go h.Run()

	c := &Client{
		ID:     "test-client",
		UserID: "user-1",
		send:   make(chan []byte, 4),
		hub:    h,
	}

	h.Register(c)
	time.Sleep(50 * time.Millisecond)

	h.mu.RLock()
	_, ok := h.clients[c.ID]
	h.mu.RUnlock()
	if !ok {
		t.Fatal("client should be registered in hub")
	}

	h.Unregister(c)
	time.Sleep(50 * time.Millisecond)

	h.mu.RLock()
	_, ok = h.clients[c.ID]
	h.mu.RUnlock()
	if ok {
		t.Fatal("client should have been removed from hub")
	}
}

func TestHub_BroadcastToSubscribers(t *testing.T) {
	h := NewHub()
	go h.Run()

	c := &Client{
		ID:     "subscriber-1",
		UserID: "user-1",
		subscriptions: map[string]bool{
			"device.status": true,
		},
		send: make(chan []byte, 4),
		hub:  h,
	}

	// Register the client directly to avoid race with buffered channel.
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()

	event := StreamEvent{
		Topic:   "device.status",
		Type:    "status",
		Payload: json.RawMessage(`{"device_id":"dev-1","status":"online"}`),
	}

	h.Broadcast(event)

	select {
	case msg := <-c.send:
		var received StreamEvent
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal broadcast message: %v", err)
		}
		if received.Type != "status" {
			t.Errorf("expected event type status, got %q", received.Type)
		}
		if received.Topic != "device.status" {
			t.Errorf("expected topic device.status, got %q", received.Topic)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for broadcast message")
	}
}

func TestHub_BroadcastNotSentToNonSubscribers(t *testing.T) {
	h := NewHub()
	go h.Run()

	c := &Client{
		ID:     "non-subscriber",
		UserID: "user-2",
		subscriptions: map[string]bool{
			"backup.progress": true,
		},
		send: make(chan []byte, 4),
		hub:  h,
	}

	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()

	event := StreamEvent{
		Topic:   "device.status",
		Type:    "status",
		Payload: json.RawMessage(`{}`),
	}

	h.Broadcast(event)

	// Give the broadcast goroutine time to process.
	time.Sleep(100 * time.Millisecond)

	if len(c.send) != 0 {
		t.Fatal("non-subscriber should not have received the broadcast")
	}
}

func TestClient_IsSubscribed(t *testing.T) {
	c := &Client{
		subscriptions: make(map[string]bool),
		subMu:         sync.RWMutex{},
	}

	if c.IsSubscribed("device.status") {
		t.Fatal("should not be subscribed initially")
	}

	c.subMu.Lock()
	c.subscriptions["device.status"] = true
	c.subMu.Unlock()

	if !c.IsSubscribed("device.status") {
		t.Fatal("should be subscribed after adding topic")
	}
}
