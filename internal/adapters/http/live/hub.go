// Package live pushes refresh notifications to dashboard browsers over a
// websocket so they reload without polling.
package live

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	service "github.com/okian/loadboard/internal/app"
	"github.com/okian/loadboard/pkg/logger"
	"github.com/okian/loadboard/pkg/metrics"
)

// Message types sent to clients.
const (
	TypeConnected     = "connected"
	TypeSnapshot      = "snapshot"
	TypeRefreshFailed = "refresh_failed"
)

const (
	defaultPongWait   = 60 * time.Second
	defaultWriteWait  = 10 * time.Second
	defaultBufferSize = 256
	maxClientMessage  = 512
)

// Message is the JSON frame pushed to clients.
type Message struct {
	Type      string     `json:"type"`
	ID        string     `json:"id,omitempty"`
	BuiltAt   *time.Time `json:"built_at,omitempty"`
	Error     string     `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// Hub fans refresh outcomes out to connected websocket clients. It
// implements service.Notifier.
type Hub struct {
	log       logger.Logger
	upgrader  websocket.Upgrader
	pongWait  time.Duration
	writeWait time.Duration
	bufSize   int

	clientsMu sync.RWMutex
	clients   map[*client]struct{}

	register   chan *client
	unregister chan *client
	broadcast  chan Message
	done       chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

var _ service.Notifier = (*Hub)(nil)

// NewHub creates a hub. Call Start before serving connections.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		pongWait:   defaultPongWait,
		writeWait:  defaultWriteWait,
		bufSize:    defaultBufferSize,
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		h.log = logger.Get().Named("live")
	}
	h.broadcast = make(chan Message, h.bufSize)
	return h
}

// Start runs the hub loop until ctx is cancelled or Stop is called.
func (h *Hub) Start(ctx context.Context) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.run(ctx)
	}()
}

// Stop disconnects every client and ends the hub loop.
func (h *Hub) Stop() {
	h.closeDone()
	h.wg.Wait()
}

func (h *Hub) closeDone() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) run(ctx context.Context) {
	defer h.closeAll()
	defer h.closeDone()
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case c := <-h.register:
			h.clientsMu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.clientsMu.Unlock()
			metrics.UpdateLiveClients(n)
			h.log.Debug(ctx, "live client registered", logger.Int("clients", n))
		case c := <-h.unregister:
			h.drop([]*client{c})
		case msg := <-h.broadcast:
			h.drop(h.fanOut(ctx, msg))
		}
	}
}

// fanOut queues msg on every client and returns the ones whose buffer is full.
func (h *Hub) fanOut(ctx context.Context, msg Message) []*client {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error(ctx, "failed to marshal live message", logger.Error(err))
		return nil
	}
	metrics.RecordLiveBroadcast(msg.Type)

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	var stale []*client
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			stale = append(stale, c)
		}
	}
	return stale
}

func (h *Hub) drop(cs []*client) {
	if len(cs) == 0 {
		return
	}
	h.clientsMu.Lock()
	for _, c := range cs {
		if _, ok := h.clients[c]; ok {
			delete(h.clients, c)
			close(c.send)
		}
	}
	n := len(h.clients)
	h.clientsMu.Unlock()
	metrics.UpdateLiveClients(n)
}

func (h *Hub) closeAll() {
	h.clientsMu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.clientsMu.Unlock()
	metrics.UpdateLiveClients(0)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// SnapshotPublished tells clients a new snapshot is available.
func (h *Hub) SnapshotPublished(snap *service.Snapshot) {
	if snap == nil {
		return
	}
	built := snap.BuiltAt
	h.publish(Message{Type: TypeSnapshot, ID: snap.ID, BuiltAt: &built})
}

// RefreshFailed tells clients the last refresh cycle failed.
func (h *Hub) RefreshFailed(err error) {
	msg := Message{Type: TypeRefreshFailed}
	if err != nil {
		msg.Error = err.Error()
	}
	h.publish(msg)
}

func (h *Hub) publish(msg Message) {
	msg.Timestamp = time.Now().UTC()
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn(context.Background(), "live broadcast buffer full, dropping message", logger.String("type", msg.Type))
	}
}

// ServeHTTP upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, h.bufSize)}
	if hello, err := json.Marshal(Message{Type: TypeConnected, Timestamp: time.Now().UTC()}); err == nil {
		c.send <- hello
	}

	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump only drains control frames; clients never send data.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxClientMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.hub.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug(context.Background(), "live client read error", logger.Error(err))
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.hub.pongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
