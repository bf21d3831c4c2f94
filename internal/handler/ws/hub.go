package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"EnergyPulse/internal/domain/models"
	xlogger "EnergyPulse/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is served from anywhere; frames carry no credentials.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Envelope is the wire frame pushed to dashboard clients.
type Envelope struct {
	Type    string      `json:"type"` // "alert", "quote"
	Payload interface{} `json:"payload"`
	SentAt  time.Time   `json:"sent_at"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans broadcast frames out to connected dashboard clients. A slow
// client gets dropped rather than blocking the rest.
type Hub struct {
	logger *xlogger.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub creates an empty hub.
func NewHub(log *xlogger.Logger) *Hub {
	return &Hub{
		logger:  log,
		clients: make(map[*client]struct{}),
	}
}

// RegisterRoutes attaches the upgrade endpoint.
func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.serve)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast pushes one typed frame to every client.
func (h *Hub) Broadcast(frameType string, payload interface{}) {
	b, err := json.Marshal(Envelope{Type: frameType, Payload: payload, SentAt: time.Now()})
	if err != nil {
		h.logger.Error("ws marshal failed", xlogger.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			// backpressure: close the laggard asynchronously
			go h.drop(c)
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	return nil
}

func (h *Hub) serve(ec echo.Context) error {
	conn, err := upgrader.Upgrade(ec.Response(), ec.Request(), nil)
	if err != nil {
		return err
	}
	c := &client{conn: conn, send: make(chan []byte, sendBufferSize)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(c)
	go h.readPump(c)
	return nil
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// readPump discards inbound frames; the socket is push-only. It exists to
// process pongs and detect closes.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.drop(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
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
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

// AlertSink adapts the hub to the alert fan-out.
type AlertSink struct {
	hub *Hub
}

// NewAlertSink creates a sink that pushes fired alerts to the dashboard.
func NewAlertSink(hub *Hub) *AlertSink {
	return &AlertSink{hub: hub}
}

// Notify implements repository.AlertSink.
func (s *AlertSink) Notify(_ context.Context, events []models.AlertEvent) error {
	for _, e := range events {
		s.hub.Broadcast("alert", e)
	}
	return nil
}

// Close implements repository.AlertSink.
func (s *AlertSink) Close() error { return nil }
