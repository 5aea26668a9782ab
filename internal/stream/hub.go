// Package stream broadcasts frames to websocket viewers.
package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/banshee-data/motiondetector/internal/frame"
)

const (
	writeWait      = 5 * time.Second
	clientQueueLen = 8
	broadcastLen   = 16
)

// FrameMessage is the JSON document sent to viewers for each frame. Rows
// hold one digit per pixel: 0 off, 1 on, 2 part of a detected pattern.
type FrameMessage struct {
	ID        uuid.UUID `json:"id"`
	Seq       uint64    `json:"seq"`
	CreatedAt time.Time `json:"created_at"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Marked    int       `json:"marked"`
	Rows      []string  `json:"rows"`
}

// NewFrameMessage snapshots f.
func NewFrameMessage(f *frame.Frame) FrameMessage {
	rows := make([]string, len(f.Pixels))
	for y, row := range f.Pixels {
		var b strings.Builder
		b.Grow(len(row))
		for _, p := range row {
			b.WriteByte('0' + byte(p))
		}
		rows[y] = b.String()
	}
	return FrameMessage{
		ID:        f.ID,
		Seq:       f.Seq,
		CreatedAt: f.CreatedAt,
		Width:     f.Width,
		Height:    f.Height,
		Marked:    f.Count(frame.Marked),
		Rows:      rows,
	}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans frames out to connected websocket clients. A slow client misses
// frames rather than stalling the pipeline.
type Hub struct {
	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	mutex      sync.RWMutex
	upgrader   websocket.Upgrader
	log        *zap.Logger
	done       chan struct{}
	dropped    atomic.Uint64
}

// NewHub returns a hub; call Run to start it.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, broadcastLen),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log:  log.Named("stream"),
		done: make(chan struct{}),
	}
}

// Run dispatches registrations and broadcasts until ctx is cancelled, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		h.mutex.Lock()
		for c := range h.clients {
			delete(h.clients, c)
			close(c.send)
		}
		h.mutex.Unlock()
	}()
	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.mutex.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mutex.Unlock()
			h.log.Info("viewer connected", zap.Int("clients", n))

		case c := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mutex.Unlock()
			h.log.Info("viewer disconnected", zap.Int("clients", n))

		case msg := <-h.broadcast:
			h.mutex.RLock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.dropped.Add(1)
				}
			}
			h.mutex.RUnlock()
		}
	}
}

// Consume implements pipeline.Consumer. The frame is encoded on the calling
// goroutine; if the hub is backed up the frame is skipped.
func (h *Hub) Consume(f *frame.Frame) {
	msg, err := json.Marshal(NewFrameMessage(f))
	if err != nil {
		h.log.Error("failed to encode frame", zap.Uint64("seq", f.Seq), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- msg:
	case <-h.done:
	default:
		h.dropped.Add(1)
	}
}

// ServeHTTP upgrades the request to a websocket and streams frames to it
// until either side hangs up.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, clientQueueLen)}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards client messages and unregisters on disconnect.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Warn("error sending frame", zap.Error(err))
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

// ClientCount returns the number of connected viewers.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Dropped returns how many frame deliveries were skipped.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }
