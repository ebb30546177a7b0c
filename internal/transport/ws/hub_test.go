package ws

import (
	"encoding/json"
	"testing"
	"time"
)

func receive(t *testing.T, conn *Connection) *Message {
	t.Helper()
	select {
	case data, ok := <-conn.Send:
		if !ok {
			t.Fatal("connection closed")
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("bad envelope: %v", err)
		}
		return &msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
	}
	return nil
}

func waitClosed(t *testing.T, conn *Connection) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-conn.Send:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("connection not closed")
		}
	}
}

func TestBroadcastToProctors(t *testing.T) {
	hub := NewHub()
	p1 := &Connection{AssessmentID: "a1", IsProctor: true, Send: make(chan []byte, 8), Hub: hub}
	p2 := &Connection{AssessmentID: "a1", IsProctor: true, Send: make(chan []byte, 8), Hub: hub}
	other := &Connection{AssessmentID: "a2", IsProctor: true, Send: make(chan []byte, 8), Hub: hub}
	hub.Register(p1)
	hub.Register(p2)
	hub.Register(other)

	hub.BroadcastToProctors("a1", "violation", map[string]int{"count": 1})

	for _, conn := range []*Connection{p1, p2} {
		msg := receive(t, conn)
		if msg.Type != "violation" {
			t.Errorf("type = %s, want violation", msg.Type)
		}
		var payload map[string]int
		json.Unmarshal(msg.Payload, &payload)
		if payload["count"] != 1 {
			t.Errorf("payload = %v", payload)
		}
	}

	select {
	case <-other.Send:
		t.Error("proctor of another assessment received the message")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAttemptFeedAndDisconnect(t *testing.T) {
	hub := NewHub()
	proctor := &Connection{AssessmentID: "a1", IsProctor: true, Send: make(chan []byte, 8), Hub: hub}
	hub.Register(proctor)

	candidate := &Connection{AssessmentID: "a1", AttemptID: "att-1", Send: make(chan []byte, 8), Hub: hub}
	hub.Register(candidate)

	if msg := receive(t, proctor); msg.Type != MsgCandidateLive {
		t.Fatalf("proctor got %s, want %s", msg.Type, MsgCandidateLive)
	}

	hub.BroadcastToAttempt("att-1", "blocked", map[string]string{"reason": "tab switch"})
	hub.DisconnectAttempt("att-1")

	if msg := receive(t, candidate); msg.Type != "blocked" {
		t.Fatalf("candidate got %s, want blocked", msg.Type)
	}
	waitClosed(t, candidate)

	// late unregister from the read pump must not close twice
	hub.Unregister(candidate)
	hub.BroadcastToAttempt("att-1", "warning", nil)
}

func TestReconnectReplacesAttemptConnection(t *testing.T) {
	hub := NewHub()
	first := &Connection{AssessmentID: "a1", AttemptID: "att-1", Send: make(chan []byte, 8), Hub: hub}
	second := &Connection{AssessmentID: "a1", AttemptID: "att-1", Send: make(chan []byte, 8), Hub: hub}
	hub.Register(first)
	hub.Register(second)

	waitClosed(t, first)

	hub.BroadcastToAttempt("att-1", "warning", nil)
	if msg := receive(t, second); msg.Type != "warning" {
		t.Fatalf("got %s, want warning", msg.Type)
	}

	hub.Unregister(first)
	hub.BroadcastToAttempt("att-1", "expired", nil)
	if msg := receive(t, second); msg.Type != "expired" {
		t.Fatalf("got %s, want expired", msg.Type)
	}
}
