package handler

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func newTestConn(userID string) *WSConn {
	return &WSConn{
		conn:   nil, // no real connection for hub tests
		userID: userID,
		send:   make(chan []byte, 256),
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub()
	c := newTestConn("user-1")

	hub.Register(c)
	if hub.ConnectionCount() != 1 {
		t.Errorf("expected 1 connection, got %d", hub.ConnectionCount())
	}

	hub.Unregister(c)
	if hub.ConnectionCount() != 0 {
		t.Errorf("expected 0 connections, got %d", hub.ConnectionCount())
	}
}

func TestHubUnregisterTwiceIsSafe(t *testing.T) {
	hub := NewHub()
	c := newTestConn("user-1")
	hub.Register(c)

	hub.Unregister(c)
	hub.Unregister(c) // must not close the send channel twice

	if hub.ConnectionCount() != 0 {
		t.Errorf("expected 0 connections, got %d", hub.ConnectionCount())
	}
}

func TestHubDeliverToUser(t *testing.T) {
	hub := NewHub()
	c1 := newTestConn("user-1")
	c2 := newTestConn("user-1") // same user, two connections
	c3 := newTestConn("user-2")

	hub.Register(c1)
	hub.Register(c2)
	hub.Register(c3)
	defer hub.Unregister(c1)
	defer hub.Unregister(c2)
	defer hub.Unregister(c3)

	hub.Deliver("user-1", []byte(`{"type":"test"}`))

	// Both c1 and c2 should receive (same user), c3 should not
	for _, c := range []*WSConn{c1, c2} {
		select {
		case <-c.send:
			// ok
		case <-time.After(time.Second):
			t.Errorf("connection for user-1 did not receive message")
		}
	}

	select {
	case <-c3.send:
		t.Error("user-2 should not have received user-1's message")
	default:
		// ok
	}
}

func TestHubNotifyUser(t *testing.T) {
	hub := NewHub()
	c := newTestConn("user-1")
	hub.Register(c)
	defer hub.Unregister(c)

	hub.NotifyUser("user-1", "battle_resolved", map[string]string{"winner": "attacker"})

	select {
	case msg := <-c.send:
		var event WSEvent
		json.Unmarshal(msg, &event)
		if event.Type != "battle_resolved" {
			t.Errorf("expected battle_resolved, got %s", event.Type)
		}
	case <-time.After(time.Second):
		t.Error("did not receive event")
	}
}

func TestHubDeliverUnknownUserIsNoop(t *testing.T) {
	hub := NewHub()
	hub.Deliver("nobody", []byte("hello")) // must not panic
}

func TestHubDeliverFullBufferDoesNotBlock(t *testing.T) {
	hub := NewHub()
	c := &WSConn{userID: "user-1", send: make(chan []byte, 1)}
	hub.Register(c)
	defer hub.Unregister(c)

	hub.Deliver("user-1", []byte("one"))
	done := make(chan struct{})
	go func() {
		hub.Deliver("user-1", []byte("two")) // buffer full, must drop
		close(done)
	}()

	select {
	case <-done:
		// ok
	case <-time.After(time.Second):
		t.Fatal("Deliver blocked on a full send buffer")
	}
}

func TestHubUserConnectionCount(t *testing.T) {
	hub := NewHub()
	c1 := newTestConn("user-1")
	c2 := newTestConn("user-1")
	hub.Register(c1)
	hub.Register(c2)

	if hub.UserConnectionCount("user-1") != 2 {
		t.Errorf("expected 2, got %d", hub.UserConnectionCount("user-1"))
	}
	hub.Unregister(c1)
	if hub.UserConnectionCount("user-1") != 1 {
		t.Errorf("expected 1, got %d", hub.UserConnectionCount("user-1"))
	}
	hub.Unregister(c2)
	if hub.UserConnectionCount("user-1") != 0 {
		t.Errorf("expected 0, got %d", hub.UserConnectionCount("user-1"))
	}
}

func TestHubConcurrentAccess(t *testing.T) {
	hub := NewHub()
	var wg sync.WaitGroup

	// Concurrently register, deliver, unregister
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := newTestConn("user")
			hub.Register(c)
			hub.NotifyUser("user", "test", nil)
			hub.Unregister(c)
		}()
	}

	wg.Wait()
	if hub.ConnectionCount() != 0 {
		t.Errorf("expected 0 connections after concurrent test, got %d", hub.ConnectionCount())
	}
}

func TestWSEventSerialization(t *testing.T) {
	event := WSEvent{
		Type:    "army_returned",
		Payload: map[string]any{"army_id": "army-42"},
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var parsed WSEvent
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.Type != "army_returned" {
		t.Errorf("expected army_returned, got %s", parsed.Type)
	}
}
