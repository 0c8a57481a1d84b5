package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/yantram/internal/app"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

const (
	writeWait = 5 * time.Second
	// clientBuffer is how many updates a client may fall behind before
	// updates to it are dropped.
	clientBuffer = 16
)

// UpdateSource publishes frame updates.
type UpdateSource interface {
	State() app.Update
	Status() app.Status
	Subscribe(l app.Listener) func()
}

// event is the message sent to WebSocket clients.
type event struct {
	Camera app.Status `json:"camera"`
	app.Update
}

// EventsHandler broadcasts every frame update over WebSocket.
type EventsHandler struct {
	source      UpdateSource
	unsubscribe func()

	mu      sync.RWMutex
	clients map[*websocket.Conn]chan []byte
	closed  bool
}

// NewEventsHandler creates a handler subscribed to source.
func NewEventsHandler(source UpdateSource) *EventsHandler {
	h := &EventsHandler{
		source:  source,
		clients: make(map[*websocket.Conn]chan []byte),
	}
	h.unsubscribe = source.Subscribe(h.broadcast)
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	send := make(chan []byte, clientBuffer)
	if msg, err := h.encode(h.source.State()); err == nil {
		send <- msg
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.clients[conn] = send
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writeLoop(conn, send)
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(send)
	}
	h.mu.Unlock()
	<-done
}

func (h *EventsHandler) writeLoop(conn *websocket.Conn, send <-chan []byte) {
	for msg := range send {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			conn.Close()
			for range send {
			}
			return
		}
	}
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	conn.Close()
}

// broadcast queues u for every client without blocking the frame loop.
func (h *EventsHandler) broadcast(u app.Update) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.clients) == 0 {
		return
	}

	msg, err := h.encode(u)
	if err != nil {
		slog.Warn("failed to encode update", "error", err)
		return
	}
	for _, send := range h.clients {
		select {
		case send <- msg:
		default:
		}
	}
}

func (h *EventsHandler) encode(u app.Update) ([]byte, error) {
	return json.Marshal(event{Camera: h.source.Status(), Update: u})
}

// Clients returns the number of connected clients.
func (h *EventsHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close unsubscribes from updates and disconnects every client.
func (h *EventsHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	h.unsubscribe()
	for conn, send := range h.clients {
		delete(h.clients, conn)
		close(send)
	}
}
