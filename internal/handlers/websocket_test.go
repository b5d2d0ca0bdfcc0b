package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/caveo/internal/common"
	"github.com/ternarybob/caveo/internal/interfaces"
	"github.com/ternarybob/caveo/internal/services/events"
)

func dialWebSocket(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	return conn
}

func waitForClientCount(handler *WebSocketHandler, want int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if handler.ClientCount() == want {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return handler.ClientCount() == want
}

// TestBroadcastFanOut verifies a broadcast reaches every connected
// client without blocking the sender.
func TestBroadcastFanOut(t *testing.T) {
	handler := NewWebSocketHandler(arbor.NewLogger())
	defer handler.Close()

	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer server.Close()

	const numSubscribers = 3
	const numMessages = 5

	received := make([]int32, numSubscribers)
	conns := make([]*websocket.Conn, numSubscribers)

	for i := 0; i < numSubscribers; i++ {
		conn := dialWebSocket(t, server)
		conns[i] = conn

		idx := i
		go func() {
			conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			for {
				var msg WSMessage
				if err := conn.ReadJSON(&msg); err != nil {
					return
				}
				if msg.Type == "state_changed" {
					atomic.AddInt32(&received[idx], 1)
				}
			}
		}()
	}
	defer func() {
		for _, conn := range conns {
			conn.Close()
		}
	}()

	if !waitForClientCount(handler, numSubscribers, 2*time.Second) {
		t.Fatalf("Expected %d connected clients, got %d", numSubscribers, handler.ClientCount())
	}

	for i := 0; i < numMessages; i++ {
		handler.BroadcastStateChange(StateChangeUpdate{
			Ticker:    "BYND",
			PrevState: "MONITOR",
			NewState:  "TRACK",
			Timestamp: time.Now().UTC(),
		})
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		done := true
		for i := range received {
			if atomic.LoadInt32(&received[i]) < numMessages {
				done = false
				break
			}
		}
		if done {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	for i := range received {
		if got := atomic.LoadInt32(&received[i]); got != numMessages {
			t.Errorf("Subscriber %d received %d messages, expected %d", i, got, numMessages)
		}
	}
}

// TestSlowClientDropped verifies that a client that stops reading is
// disconnected instead of stalling broadcasts to everyone else.
func TestSlowClientDropped(t *testing.T) {
	handler := NewWebSocketHandler(arbor.NewLogger())
	defer handler.Close()

	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer server.Close()

	fast := dialWebSocket(t, server)
	defer fast.Close()
	probeSeen := make(chan struct{}, 1)
	go func() {
		fast.SetReadDeadline(time.Now().Add(15 * time.Second))
		for {
			var msg WSMessage
			if err := fast.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Type == "probe" {
				select {
				case probeSeen <- struct{}{}:
				default:
				}
			}
		}
	}()

	// This client never reads. Its socket and send buffer fill up and
	// the broadcast path must eventually cut it loose.
	slow := dialWebSocket(t, server)
	defer slow.Close()

	if !waitForClientCount(handler, 2, 2*time.Second) {
		t.Fatalf("Expected 2 connected clients, got %d", handler.ClientCount())
	}

	payload := strings.Repeat("x", 32*1024)
	for i := 0; i < 800 && handler.ClientCount() > 1; i++ {
		handler.Broadcast("log_entry", map[string]string{"message": payload})
		if i%25 == 0 {
			time.Sleep(time.Millisecond)
		}
	}

	if !waitForClientCount(handler, 1, 5*time.Second) {
		t.Fatalf("Expected slow client to be dropped, still have %d clients", handler.ClientCount())
	}

	// The survivor must be the reading client.
	handler.Broadcast("probe", map[string]string{"message": "ping"})
	select {
	case <-probeSeen:
	case <-time.After(3 * time.Second):
		t.Error("Fast client did not receive probe after slow client was dropped")
	}
}

// TestCloseDisconnectsClients verifies shutdown closes every connection
// and rejects late arrivals.
func TestCloseDisconnectsClients(t *testing.T) {
	handler := NewWebSocketHandler(arbor.NewLogger())

	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer server.Close()

	conn := dialWebSocket(t, server)
	defer conn.Close()

	if !waitForClientCount(handler, 1, 2*time.Second) {
		t.Fatalf("Expected 1 connected client, got %d", handler.ClientCount())
	}

	handler.Close()

	if !waitForClientCount(handler, 0, 2*time.Second) {
		t.Fatalf("Expected 0 clients after close, got %d", handler.ClientCount())
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("Expected read to fail after handler close")
	}

	// New connections after Close are rejected immediately.
	late := dialWebSocket(t, server)
	defer late.Close()
	late.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := late.ReadMessage(); err == nil {
		t.Error("Expected late connection to be closed")
	}
	if handler.ClientCount() != 0 {
		t.Errorf("Expected 0 clients, got %d", handler.ClientCount())
	}
}

// TestEventSubscriberBridgesBus publishes bus events end to end and
// verifies filtering: debug logs stay off the wire at min level warn.
func TestEventSubscriberBridgesBus(t *testing.T) {
	handler := NewWebSocketHandler(arbor.NewLogger())
	defer handler.Close()

	eventService := events.NewService(arbor.NewLogger())
	defer eventService.Close()

	NewEventSubscriber(handler, eventService, arbor.NewLogger(), &common.WebSocketConfig{
		MinLevel: "warn",
	})

	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer server.Close()

	conn := dialWebSocket(t, server)
	defer conn.Close()

	if !waitForClientCount(handler, 1, 2*time.Second) {
		t.Fatalf("Expected 1 connected client, got %d", handler.ClientCount())
	}

	ctx := context.Background()

	// Below min level: must not reach the client.
	eventService.PublishSync(ctx, interfaces.Event{
		Type: interfaces.EventLogEntry,
		Payload: map[string]interface{}{
			"run_id": "run_x", "level": "DBG", "message": "noise",
		},
	})

	eventService.PublishSync(ctx, interfaces.Event{
		Type: interfaces.EventStateChanged,
		Payload: map[string]interface{}{
			"company_id": "BYND", "ticker": "BYND", "as_of": "2026-08-25",
			"prev_state": "MONITOR", "new_state": "TRACK",
			"condition_1": true, "condition_2": true,
		},
	})

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	if msg.Type != "state_changed" {
		t.Fatalf("Expected state_changed first (debug log filtered), got %q", msg.Type)
	}
	payload := msg.Payload.(map[string]interface{})
	if payload["ticker"] != "BYND" || payload["new_state"] != "TRACK" {
		t.Errorf("Unexpected payload: %+v", payload)
	}

	// At or above min level: delivered.
	eventService.PublishSync(ctx, interfaces.Event{
		Type: interfaces.EventLogEntry,
		Payload: map[string]interface{}{
			"run_id": "run_x", "level": "ERR", "message": "fetch failed",
		},
	})

	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("Failed to read log message: %v", err)
	}
	if msg.Type != "log_entry" {
		t.Fatalf("Expected log_entry, got %q", msg.Type)
	}
	logPayload := msg.Payload.(map[string]interface{})
	if logPayload["level"] != "ERR" || logPayload["message"] != "fetch failed" {
		t.Errorf("Unexpected log payload: %+v", logPayload)
	}
}

// TestEventSubscriberWhitelist verifies AllowedEvents drops everything
// not named.
func TestEventSubscriberWhitelist(t *testing.T) {
	handler := NewWebSocketHandler(arbor.NewLogger())
	defer handler.Close()

	eventService := events.NewService(arbor.NewLogger())
	defer eventService.Close()

	NewEventSubscriber(handler, eventService, arbor.NewLogger(), &common.WebSocketConfig{
		AllowedEvents: []string{"run_completed"},
	})

	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer server.Close()

	conn := dialWebSocket(t, server)
	defer conn.Close()

	if !waitForClientCount(handler, 1, 2*time.Second) {
		t.Fatalf("Expected 1 connected client, got %d", handler.ClientCount())
	}

	ctx := context.Background()

	eventService.PublishSync(ctx, interfaces.Event{
		Type: interfaces.EventStateChanged,
		Payload: map[string]interface{}{
			"ticker": "BYND", "new_state": "TRACK",
		},
	})
	eventService.PublishSync(ctx, interfaces.Event{
		Type: interfaces.EventRunCompleted,
		Payload: map[string]interface{}{
			"run_id": "run_y", "evaluated": 4, "changed": 1,
		},
	})

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	if msg.Type != "run_completed" {
		t.Fatalf("Expected run_completed only (state_changed filtered), got %q", msg.Type)
	}
	payload := msg.Payload.(map[string]interface{})
	if int(payload["evaluated"].(float64)) != 4 {
		t.Errorf("Expected evaluated 4, got %v", payload["evaluated"])
	}
}
