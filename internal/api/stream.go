package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/connectedopslab/fleet-engine/internal/metrics"
	"github.com/connectedopslab/fleet-engine/internal/models"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
	streamSendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The engine sits behind the demo dashboard; no origin policy here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamHub fans accepted telemetry samples out to connected WebSocket
// clients. Clients that cannot keep up are dropped rather than blocking the
// broadcast path.
type StreamHub struct {
	logger     *slog.Logger
	mu         sync.Mutex
	clients    map[*streamClient]struct{}
	broadcast  chan []byte
	register   chan *streamClient
	unregister chan *streamClient
	done       chan struct{}
	stopOnce   sync.Once
}

// NewStreamHub creates an idle hub; call Run to start dispatching.
func NewStreamHub(logger *slog.Logger) *StreamHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamHub{
		logger:     logger,
		clients:    make(map[*streamClient]struct{}),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *streamClient),
		unregister: make(chan *streamClient),
		done:       make(chan struct{}),
	}
}

// Run dispatches registrations and broadcasts until Stop is called.
func (h *StreamHub) Run() {
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			metrics.SetStreamClients(len(h.clients))
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			metrics.SetStreamClients(len(h.clients))
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow client; drop it instead of stalling the hub.
					delete(h.clients, client)
					close(client.send)
				}
			}
			metrics.SetStreamClients(len(h.clients))
			h.mu.Unlock()
		}
	}
}

// Stop shuts the hub down and disconnects every client.
func (h *StreamHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.mu.Lock()
		defer h.mu.Unlock()
		for client := range h.clients {
			close(client.send)
			delete(h.clients, client)
		}
		metrics.SetStreamClients(0)
	})
}

// BroadcastSample implements services.Broadcaster. Broadcasting never
// blocks ingestion: if the hub's queue is full the sample is skipped.
func (h *StreamHub) BroadcastSample(sample models.TelemetrySample) {
	data, err := json.Marshal(sample)
	if err != nil {
		h.logger.Warn("marshal stream sample", slog.Any("error", err))
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	default:
		h.logger.Debug("stream queue full, dropping sample")
	}
}

// ServeWS upgrades the request and attaches the client to the hub.
func (h *StreamHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := &streamClient{
		hub:  h,
		conn: conn,
		send: make(chan []byte, streamSendBuffer),
		id:   uuid.NewString(),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()

	h.logger.Debug("stream client connected", slog.String("client_id", client.id))
}

type streamClient struct {
	hub  *StreamHub
	conn *websocket.Conn
	send chan []byte
	id   string
}

// readPump discards client messages and detects disconnects.
func (c *streamClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(streamPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("stream client read error",
					slog.String("client_id", c.id),
					slog.Any("error", err),
				)
			}
			return
		}
	}
}

// writePump forwards broadcasts and keeps the connection alive with pings.
func (c *streamClient) writePump() {
	ticker := time.NewTicker(streamPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
