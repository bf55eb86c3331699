package broadcast

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/angeloszaimis/routing-proxy/internal/stats"
)

const (
	// EventMetricsUpdate names the message pushed to dashboard clients.
	EventMetricsUpdate = "metrics_update"

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

type message struct {
	Event string       `json:"event"`
	Data  stats.Update `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans updates out to websocket clients. Slow clients miss updates
// instead of blocking the publisher.
type Hub struct {
	logger   *slog.Logger
	current  func() stats.Update
	upgrader websocket.Upgrader

	mutex   sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates a hub. current, when non-nil, provides the update sent to a
// client as soon as it connects.
func NewHub(logger *slog.Logger, current func() stats.Update) *Hub {
	return &Hub{
		logger:  logger,
		current: current,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[*client]struct{}),
	}
}

// Publish encodes the update once and queues it for every client.
func (h *Hub) Publish(update stats.Update) {
	payload, err := encode(update)
	if err != nil {
		h.logger.Error("Failed to encode metrics update", slog.Any("err", err))
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the connection and streams updates until the client
// goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.isClosed() {
		http.Error(w, "dashboard feed is shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", slog.Any("err", err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	if h.current != nil {
		if payload, err := encode(h.current()); err == nil {
			c.send <- payload
		}
	}

	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
		conn.Close()
		return
	}
	h.logger.Info("Dashboard client connected", slog.String("remote", r.RemoteAddr))

	go h.writePump(c)
	h.readPump(c)

	h.unregister(c)
	h.logger.Info("Dashboard client disconnected", slog.String("remote", r.RemoteAddr))
}

// Close disconnects every client. Later upgrades are refused.
func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.closed = true

	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) isClosed() bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.closed
}

// register reports false once the hub is closed.
func (h *Hub) register(c *client) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// readPump drains client frames so control messages are handled; the hub
// ignores anything the client sends.
func (h *Hub) readPump(c *client) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func encode(update stats.Update) ([]byte, error) {
	return json.Marshal(message{Event: EventMetricsUpdate, Data: update})
}
