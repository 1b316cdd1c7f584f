package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"ai-roleplay-platform/backend/internal/notify"
	"ai-roleplay-platform/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
}

// Client is one connected event-stream subscriber. A client watches exactly
// one session or group id.
type Client struct {
	ID        string
	SessionID string
	Conn      *websocket.Conn
	Send      chan []byte
	hub       *Hub
}

// Hub fans session events out to connected subscribers. It implements
// notify.Notifier so the controllers can stay unaware of WebSockets.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	events     chan notify.Event

	// sessionID -> set of clients
	clients   map[string]map[*Client]bool
	connCount atomic.Int64
	log       *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan notify.Event, 64),
		clients:    make(map[string]map[*Client]bool),
		log:        log,
	}
}

// Emit queues an event for delivery to subscribers of its session. Delivery
// is best-effort; if the hub's queue is full the event is dropped.
func (h *Hub) Emit(ctx context.Context, event notify.Event) {
	select {
	case h.events <- event:
	default:
		h.log.Warn("event stream backlogged, dropping event", "type", event.Type)
	}
}

// Run processes registrations and event delivery. Call it once, in its own
// goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			if h.clients[client.SessionID] == nil {
				h.clients[client.SessionID] = make(map[*Client]bool)
			}
			h.clients[client.SessionID][client] = true
			h.connCount.Add(1)

		case client := <-h.unregister:
			if subscribers, ok := h.clients[client.SessionID]; ok {
				if subscribers[client] {
					delete(subscribers, client)
					close(client.Send)
					h.connCount.Add(-1)
					if len(subscribers) == 0 {
						delete(h.clients, client.SessionID)
					}
				}
			}

		case event := <-h.events:
			data, err := json.Marshal(event)
			if err != nil {
				h.log.LogError(err, "failed to marshal event for stream", "type", event.Type)
				continue
			}
			for client := range h.clients[event.SessionID] {
				select {
				case client.Send <- data:
				default:
					// Slow consumer; drop it rather than block the hub.
					delete(h.clients[event.SessionID], client)
					close(client.Send)
					h.connCount.Add(-1)
				}
			}
		}
	}
}

// ActiveConnections reports the number of connected subscribers.
func (h *Hub) ActiveConnections() int {
	return int(h.connCount.Load())
}

// HandleConnection upgrades an HTTP request to a WebSocket subscription for
// the session id given in the "session" query parameter.
func (h *Hub) HandleConnection(c *gin.Context) {
	sessionID := c.Query("session")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session query parameter is required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.LogError(err, "websocket upgrade failed")
		return
	}

	client := &Client{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Conn:      conn,
		Send:      make(chan []byte, 16),
		hub:       h,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

// writePump pushes queued events and keepalive pings to the peer.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the connection so pongs and close frames are processed.
// Subscribers are read-only; inbound payloads are ignored.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(1024)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
