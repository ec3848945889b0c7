package httpapi

import (
	"context"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"transit-synth/internal/domain"
	"transit-synth/internal/observability"
)

// SkyMessage is the frame pushed to daily sky feed clients.
type SkyMessage struct {
	Type       string              `json:"type"` // "initial" on connect, "update" on refresh
	Data       domain.DailySkyData `json:"data"`
	ComputedAt time.Time           `json:"computed_at"`
	ExpiresAt  time.Time           `json:"expires_at"`
}

// Message types.
const (
	MessageInitial = "initial"
	MessageUpdate  = "update"
)

// Hub fans each Daily Sky refresh out to connected websocket clients.
// A single goroutine (Run) owns the client set.
type Hub struct {
	clients    map[*client]struct{}
	broadcast  chan SkyMessage
	register   chan *client
	unregister chan *client
	done       chan struct{}
	stopOnce   sync.Once

	mu     sync.RWMutex
	latest *SkyMessage

	count  atomic.Int64
	logger *log.Logger
}

// NewHub creates a new Hub. Call Run to start it.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		// Buffered so a refresh never blocks on the hub loop
		broadcast:  make(chan SkyMessage, 16),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run is the hub loop. It returns when ctx is done, closing every client.
func (h *Hub) Run(ctx context.Context) {
	defer h.stopOnce.Do(func() { close(h.done) })

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.setCount()
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.setCount()
			// Send latest sky on connect
			if msg := h.Latest(); msg != nil {
				initial := *msg
				initial.Type = MessageInitial
				c.send <- initial
			}

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.setCount()
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Client too slow, disconnect to keep the hub moving
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.setCount()
		}
	}
}

// Publish records e as the latest sky and queues it for broadcast.
// It never blocks; when the queue is full the update is dropped for
// connected clients but still served to new ones.
func (h *Hub) Publish(e domain.CacheEntry[domain.DailySkyData]) {
	msg := SkyMessage{Type: MessageUpdate, Data: e.Value, ComputedAt: e.ComputedAt, ExpiresAt: e.ExpiresAt}

	h.mu.Lock()
	h.latest = &msg
	h.mu.Unlock()

	select {
	case h.broadcast <- msg:
	default:
		h.logger.Printf("sky feed queue full, dropping update computed at %s", e.ComputedAt.Format(time.RFC3339))
	}
}

// Prime sets the latest sky without broadcasting it, unless a newer one is set.
func (h *Hub) Prime(e domain.CacheEntry[domain.DailySkyData]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.latest != nil && !h.latest.ComputedAt.Before(e.ComputedAt) {
		return
	}
	h.latest = &SkyMessage{Type: MessageUpdate, Data: e.Value, ComputedAt: e.ComputedAt, ExpiresAt: e.ExpiresAt}
}

// Latest returns the most recent sky message, or nil.
func (h *Hub) Latest() *SkyMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.latest == nil {
		return nil
	}
	msg := *h.latest
	return &msg
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	return int(h.count.Load())
}

func (h *Hub) setCount() {
	h.count.Store(int64(len(h.clients)))
	observability.SetFeedClients(len(h.clients))
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Printf("Failed to upgrade websocket: %v", err)
		return
	}

	cl := &client{
		hub:  h,
		conn: conn,
		// Buffered channel to prevent blocking the hub loop
		send: make(chan SkyMessage, 8),
	}

	select {
	case h.register <- cl:
	case <-h.done:
		conn.Close()
		return
	}

	go cl.writePump()
	go cl.readPump()
}
