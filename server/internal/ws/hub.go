package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/trialdash/trialdash/server/internal/api"
	"github.com/trialdash/trialdash/server/internal/store"
)

const (
	writeTimeout = 10 * time.Second
	pongWait     = 60 * time.Second

	// pingPeriod must stay below pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is how many dashboards may queue for a slow client
	// before it is dropped.
	sendBufSize = 16

	// Clients only send control frames.
	maxReadBytes = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The stream is read-only, so any origin may subscribe.
	CheckOrigin: func(*http.Request) bool { return true },
}

// EventDashboard is the event name of every message the hub sends.
const EventDashboard = "dashboard"

// Message is the JSON envelope sent to clients. Seq increases by one per
// message built, so a client can tell when it missed an update. DatasetID is
// empty until a dataset is loaded.
type Message struct {
	Event     string                `json:"event"`
	Seq       uint64                `json:"seq"`
	DatasetID string                `json:"dataset_id,omitempty"`
	Data      api.DashboardResponse `json:"data"`
}

// Hub streams the dashboard to connected clients on a ticker and whenever
// Broadcast is called.
type Hub struct {
	store    *store.Store
	interval time.Duration
	seq      atomic.Uint64

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// New creates a Hub that reads from st and broadcasts every interval.
func New(st *store.Store, interval time.Duration) *Hub {
	return &Hub{
		store:    st,
		interval: interval,
		clients:  make(map[*client]struct{}),
	}
}

// Run broadcasts every interval until ctx is cancelled, then disconnects
// every client.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				h.dropLocked(c)
			}
			h.mu.Unlock()
			return
		case <-t.C:
			h.Broadcast()
		}
	}
}

// ServeHTTP upgrades the request, sends the current dashboard at once and
// then streams broadcasts until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBufSize)}
	if data, err := h.message(); err == nil {
		c.send <- data
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	slog.Debug("ws: client connected", "remote", r.RemoteAddr, "clients", h.Count())

	defer func() {
		h.mu.Lock()
		h.dropLocked(c)
		h.mu.Unlock()
		slog.Debug("ws: client disconnected", "remote", r.RemoteAddr)
	}()

	go c.write()
	c.read()
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends the current dashboard to every client. Clients whose
// queue is full are disconnected.
func (h *Hub) Broadcast() {
	data, err := h.message()
	if err != nil {
		slog.Error("ws: build message", "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slog.Warn("ws: client too slow, disconnecting")
			h.dropLocked(c)
		}
	}
}

func (h *Hub) message() ([]byte, error) {
	msg := Message{
		Event: EventDashboard,
		Seq:   h.seq.Add(1),
		Data:  api.BuildDashboard(h.store),
	}
	msg.DatasetID = msg.Data.Summary.DatasetID
	return json.Marshal(msg)
}

// dropLocked removes c and closes its queue, which ends its writer.
// h.mu must be held. Dropping a client twice is a no-op.
func (h *Hub) dropLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// write forwards queued messages and pings until the queue is closed or a
// write fails.
func (c *client) write() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		var (
			kind = websocket.PingMessage
			data []byte
		)
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			kind, data = websocket.TextMessage, msg
		case <-ping.C:
		}
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(kind, data); err != nil {
			return
		}
	}
}

// read consumes control frames and returns when the connection closes or
// misses a pong.
func (c *client) read() {
	defer c.conn.Close()
	c.conn.SetReadLimit(maxReadBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
