package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rxtech-lab/trading-desk/internal/desk"
	"github.com/rxtech-lab/trading-desk/internal/logger"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// SnapshotType is the type of the first message every client receives.
const SnapshotType = "snapshot"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type snapshotMsg struct {
	Type  string         `json:"type"`
	State desk.StateView `json:"state"`
}

// subscribeMsg narrows the event types a client receives. A client with no
// subscriptions receives every event.
type subscribeMsg struct {
	Action string           `json:"action"`
	Types  []desk.EventType `json:"types"`
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	mu   sync.RWMutex
	subs map[desk.EventType]bool
}

// Hub fans desk events out to websocket clients.
type Hub struct {
	log         *logger.Logger
	mu          sync.RWMutex
	clients     map[*client]bool
	desk        *desk.Desk
	unsubscribe func()
	closed      bool
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Hub{
		log:     log,
		clients: make(map[*client]bool),
	}
}

// Attach starts forwarding events of d. Attaching again replaces the previous desk.
func (h *Hub) Attach(d *desk.Desk) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.unsubscribe != nil {
		h.unsubscribe()
	}

	h.desk = d
	h.unsubscribe = d.Subscribe(h.Broadcast)
}

// Broadcast encodes event and queues it for every subscribed client. Slow clients
// lose the message.
func (h *Hub) Broadcast(event desk.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error("ws: failed to encode event", zap.String("type", string(event.Type)), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if !c.wants(event.Type) {
			continue
		}

		select {
		case c.send <- data:
		default:
			h.log.Warn("ws: dropping message for slow client", zap.String("type", string(event.Type)))
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// Close detaches from the desk and disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	h.closed = true

	if h.unsubscribe != nil {
		h.unsubscribe()
		h.unsubscribe = nil
	}

	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// HandleWS upgrades the request and registers the client.
// GET /api/ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws: upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		subs: make(map[desk.EventType]bool),
	}

	if !h.register(c) {
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}

	// The snapshot is queued before the client becomes visible to Broadcast so it
	// is always the first message.
	if h.desk != nil {
		data, err := json.Marshal(snapshotMsg{Type: SnapshotType, State: h.desk.State()})
		if err == nil {
			c.send <- data
		}
	}

	h.clients[c] = true
	h.log.Debug("ws: client connected", zap.Int("clients", len(h.clients)))

	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.log.Debug("ws: client disconnected", zap.Int("clients", len(h.clients)))
	}
}

func (c *client) wants(t desk.EventType) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.subs) == 0 || c.subs[t]
}

func (c *client) handleSubscription(msg subscribeMsg) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, t := range msg.Types {
		switch msg.Action {
		case "subscribe":
			c.subs[t] = true
		case "unsubscribe":
			delete(c.subs, t)
		}
	}
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Warn("ws: unexpected close", zap.Error(err))
			}

			return
		}

		var sub subscribeMsg
		if err := json.Unmarshal(message, &sub); err == nil && sub.Action != "" {
			c.handleSubscription(sub)
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
