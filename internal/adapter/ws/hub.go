// Package ws implements the WebSocket adapter that streams agent status
// changes to dashboard clients.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// sendBuffer bounds the per-client outbound queue. A client that falls
// this far behind is disconnected rather than waited on, so one slow
// dashboard cannot stall the broadcast path.
const sendBuffer = 32

// client is one connected dashboard session with its own outbound queue.
type client struct {
	id     uint64
	ws     *websocket.Conn
	send   chan []byte
	cancel context.CancelFunc
}

// Hub tracks connected clients and fans broadcast messages out to their
// queues.
type Hub struct {
	mu      sync.RWMutex
	nextID  uint64
	clients map[uint64]*client
}

// NewHub creates a new WebSocket hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[uint64]*client)}
}

// HandleWS upgrades the request to a WebSocket and starts the read and
// write loops for the new client.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS handled by middleware
	})
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())

	h.mu.Lock()
	h.nextID++
	c := &client{
		id:     h.nextID,
		ws:     ws,
		send:   make(chan []byte, sendBuffer),
		cancel: cancel,
	}
	h.clients[c.id] = c
	h.mu.Unlock()

	slog.Info("websocket connected", "remote", r.RemoteAddr, "client", c.id)

	go h.writeLoop(ctx, c)
	go h.readLoop(ctx, c)
}

// readLoop consumes inbound frames to detect disconnects and answer pings.
func (h *Hub) readLoop(ctx context.Context, c *client) {
	defer h.drop(c)
	for {
		if _, _, err := c.ws.Read(ctx); err != nil {
			return
		}
	}
}

// writeLoop delivers queued messages until the client is dropped.
func (h *Hub) writeLoop(ctx context.Context, c *client) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-c.send:
			if err := c.ws.Write(ctx, websocket.MessageText, data); err != nil {
				h.drop(c)
				return
			}
		}
	}
}

// Broadcast enqueues a message for every connected client. Clients whose
// queue is full are dropped.
func (h *Hub) Broadcast(_ context.Context, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("websocket marshal failed", "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- data:
		default:
			slog.Warn("websocket client lagging, disconnecting", "client", c.id)
			h.drop(c)
		}
	}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// drop removes a client and tears its connection down. Safe to call more
// than once per client.
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	_, tracked := h.clients[c.id]
	delete(h.clients, c.id)
	h.mu.Unlock()

	if !tracked {
		return
	}
	c.cancel()
	if c.ws != nil {
		_ = c.ws.Close(websocket.StatusNormalClosure, "")
	}
	slog.Info("websocket disconnected", "client", c.id)
}
