package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// Ping period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Per-client send buffer. A client that falls this far behind a
	// broadcast burst gets disconnected instead of blocking the bus.
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// WSMessage is the envelope for every websocket push.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// StateChangeUpdate is pushed when a company transitions escalation state.
type StateChangeUpdate struct {
	CompanyID  string    `json:"company_id"`
	Ticker     string    `json:"ticker"`
	AsOf       string    `json:"as_of"`
	PrevState  string    `json:"prev_state"`
	NewState   string    `json:"new_state"`
	Condition1 bool      `json:"condition_1"`
	Condition2 bool      `json:"condition_2"`
	Condition3 bool      `json:"condition_3"`
	Condition4 bool      `json:"condition_4"`
	Timestamp  time.Time `json:"timestamp"`
}

// RunStartedUpdate is pushed when an evaluation batch begins.
type RunStartedUpdate struct {
	RunID     string    `json:"run_id"`
	AsOf      string    `json:"as_of"`
	Companies int       `json:"companies"`
	Timestamp time.Time `json:"timestamp"`
}

// RunCompletedUpdate is pushed when an evaluation batch finishes.
type RunCompletedUpdate struct {
	RunID     string    `json:"run_id"`
	AsOf      string    `json:"as_of"`
	Evaluated int       `json:"evaluated"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	Changed   int       `json:"changed"`
	Timestamp time.Time `json:"timestamp"`
}

// LogUpdate is a single captured log line pushed during a run.
type LogUpdate struct {
	RunID     string `json:"run_id"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// AppStatusUpdate mirrors the derived application state.
type AppStatusUpdate struct {
	State     string                 `json:"state"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// wsClient owns one connection. All frame writes happen on the client's
// writePump goroutine so gorilla's single-writer rule holds; broadcasts
// only ever enqueue onto send.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *wsClient) stop() {
	c.once.Do(func() { close(c.done) })
}

// WebSocketHandler manages WebSocket connections and fans event
// payloads out to every connected client.
type WebSocketHandler struct {
	logger arbor.ILogger

	mu      sync.RWMutex
	clients map[*wsClient]bool
	closed  bool
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(logger arbor.ILogger) *WebSocketHandler {
	return &WebSocketHandler{
		logger:  logger,
		clients: make(map[*wsClient]bool),
	}
}

// HandleWebSocket handles GET /ws and upgrades the connection
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Int("clients", count).Msg("WebSocket client connected")

	go h.writePump(client)
	go h.readPump(client)
}

// Broadcast pushes one message to every connected client. The payload
// is marshalled once; clients whose send buffers are full are dropped
// rather than awaited.
func (h *WebSocketHandler) Broadcast(messageType string, payload interface{}) {
	message := WSMessage{Type: messageType, Payload: payload}
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Warn().Err(err).Str("type", messageType).Msg("Failed to marshal websocket message")
		return
	}

	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.send <- data:
		default:
			h.logger.Warn().Str("type", messageType).Msg("WebSocket client too slow, disconnecting")
			h.removeClient(client)
		}
	}
}

// BroadcastStateChange pushes a state transition to all clients
func (h *WebSocketHandler) BroadcastStateChange(update StateChangeUpdate) {
	h.Broadcast("state_changed", update)
}

// BroadcastRunStarted pushes a run start to all clients
func (h *WebSocketHandler) BroadcastRunStarted(update RunStartedUpdate) {
	h.Broadcast("run_started", update)
}

// BroadcastRunCompleted pushes a run summary to all clients
func (h *WebSocketHandler) BroadcastRunCompleted(update RunCompletedUpdate) {
	h.Broadcast("run_completed", update)
}

// BroadcastLogEntry pushes a captured log line to all clients
func (h *WebSocketHandler) BroadcastLogEntry(update LogUpdate) {
	h.Broadcast("log_entry", update)
}

// BroadcastAppStatus pushes the derived app state to all clients
func (h *WebSocketHandler) BroadcastAppStatus(update AppStatusUpdate) {
	h.Broadcast("app_status", update)
}

// ClientCount returns the number of connected clients
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects all clients and rejects new connections.
func (h *WebSocketHandler) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*wsClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[*wsClient]bool)
	h.mu.Unlock()

	for _, client := range clients {
		client.stop()
	}
}

func (h *WebSocketHandler) removeClient(client *wsClient) {
	h.mu.Lock()
	delete(h.clients, client)
	count := len(h.clients)
	h.mu.Unlock()

	client.stop()
	h.logger.Debug().Int("clients", count).Msg("WebSocket client disconnected")
}

// writePump drains the send channel onto the wire and keeps the
// connection alive with periodic pings. Closing the connection here
// also unblocks the client's readPump.
func (h *WebSocketHandler) writePump(client *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case data := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.removeClient(client)
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.removeClient(client)
				return
			}
		case <-client.done:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			client.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// readPump discards inbound frames and extends the read deadline on
// every pong so dead peers get reaped by the deadline.
func (h *WebSocketHandler) readPump(client *wsClient) {
	defer h.removeClient(client)

	client.conn.SetReadLimit(512)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Helper functions for safe type conversion from map[string]interface{}
func getString(m map[string]interface{}, key string) string {
	if val, ok := m[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

func getInt(m map[string]interface{}, key string) int {
	if val, ok := m[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return 0
}

func getBool(m map[string]interface{}, key string) bool {
	if val, ok := m[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return false
}

// getTimestamp parses a timestamp from the payload, falling back to now.
func getTimestamp(m map[string]interface{}) time.Time {
	switch v := m["timestamp"].(type) {
	case time.Time:
		return v
	case string:
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			return ts
		}
	}
	return time.Now().UTC()
}
