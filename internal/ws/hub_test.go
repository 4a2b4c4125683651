package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub) *Client {
	return &Client{
		hub:  hub,
		send: make(chan []byte, 256),
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func TestHubRegistration(t *testing.T) {
	hub := startHub(t)
	client := mockClient(hub)

	hub.register <- client

	// Give hub time to process
	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}
}

func TestHubUnregistration(t *testing.T) {
	hub := startHub(t)
	client := mockClient(hub)

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", hub.ClientCount())
	}

	// The send channel is closed so WritePump tears the connection down.
	select {
	case _, ok := <-client.send:
		if ok {
			t.Fatal("expected send channel closed, got a message")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("send channel not closed after unregister")
	}
}

func TestBroadcastReachesAllClients(t *testing.T) {
	hub := startHub(t)
	clients := []*Client{mockClient(hub), mockClient(hub), mockClient(hub)}
	for _, c := range clients {
		hub.register <- c
	}
	time.Sleep(10 * time.Millisecond)

	hub.Broadcast("order_updated", map[string]string{"status": "READY"})

	for i, client := range clients {
		select {
		case msg := <-client.send:
			var received Event
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("client%d: failed to unmarshal: %v", i+1, err)
			}
			if received.Type != "order_updated" {
				t.Errorf("client%d: expected type 'order_updated', got %q", i+1, received.Type)
			}
			var payload map[string]string
			if err := json.Unmarshal(received.Payload, &payload); err != nil {
				t.Fatalf("client%d: failed to unmarshal payload: %v", i+1, err)
			}
			if payload["status"] != "READY" {
				t.Errorf("client%d: unexpected payload %v", i+1, payload)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("client%d did not receive message", i+1)
		}
	}
}

func TestBroadcastWithNoClientsDoesNotBlock(t *testing.T) {
	hub := startHub(t)

	done := make(chan struct{})
	go func() {
		hub.Broadcast("order_created", map[string]string{"id": "o1"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked with no clients connected")
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	hub := startHub(t)
	// Zero-buffer client that never reads: the first broadcast cannot be
	// queued, so the hub drops it.
	slow := &Client{hub: hub, send: make(chan []byte)}
	hub.register <- slow
	time.Sleep(10 * time.Millisecond)

	hub.Broadcast("order_updated", map[string]string{"id": "o1"})
	time.Sleep(20 * time.Millisecond)

	if hub.ClientCount() != 0 {
		t.Fatalf("expected slow client dropped, got %d clients", hub.ClientCount())
	}
}

func TestRunShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	client := mockClient(hub)
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)

	select {
	case _, ok := <-client.send:
		if ok {
			t.Fatal("expected send channel closed on shutdown, got a message")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("send channel not closed on shutdown")
	}
}
