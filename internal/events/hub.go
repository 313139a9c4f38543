// Package events streams session events to websocket watchers and serves a
// JSON snapshot of the session registry.
package events

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/standardbeagle/tether/internal/server"
)

const (
	// watcherBuffer is the per-watcher queue length. A watcher whose queue
	// is full when an event arrives is dropped.
	watcherBuffer = 64

	writeWait = 10 * time.Second
)

// Message is the JSON form of a server.Event on the feed.
type Message struct {
	server.Event
	Error string `json:"error,omitempty"`
}

// NewMessage converts an event to its wire form.
func NewMessage(ev server.Event) Message {
	msg := Message{Event: ev}
	if ev.Err != nil {
		msg.Error = ev.Err.Error()
	}
	return msg
}

type watcher struct {
	conn *websocket.Conn
	send chan []byte
}

func newWatcher(conn *websocket.Conn) *watcher {
	w := &watcher{
		conn: conn,
		send: make(chan []byte, watcherBuffer),
	}
	if conn != nil {
		go w.writePump()
	}
	return w
}

func (w *watcher) writePump() {
	defer w.conn.Close()
	for msg := range w.send {
		w.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := w.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	w.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Hub fans server events out to websocket watchers. It implements
// server.Observer.
type Hub struct {
	mu       sync.RWMutex
	watchers map[*watcher]struct{}
	logger   *zap.Logger

	published atomic.Int64
	dropped   atomic.Int64
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		watchers: make(map[*watcher]struct{}),
		logger:   logger,
	}
}

func (h *Hub) add(conn *websocket.Conn) *watcher {
	w := newWatcher(conn)
	h.mu.Lock()
	h.watchers[w] = struct{}{}
	h.mu.Unlock()
	return w
}

// remove closes the watcher's queue; its write pump then closes the socket.
func (h *Hub) remove(w *watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.watchers[w]; ok {
		delete(h.watchers, w)
		close(w.send)
	}
}

// Notify implements server.Observer. It never blocks on a watcher.
func (h *Hub) Notify(ev server.Event) {
	data, err := json.Marshal(NewMessage(ev))
	if err != nil {
		h.logger.Error("marshal event", zap.Error(err))
		return
	}
	h.published.Add(1)

	var slow []*watcher
	h.mu.RLock()
	for w := range h.watchers {
		select {
		case w.send <- data:
		default:
			slow = append(slow, w)
		}
	}
	h.mu.RUnlock()

	for _, w := range slow {
		h.logger.Warn("event watcher too slow, dropping")
		h.dropped.Add(1)
		h.remove(w)
	}
}

// Count returns the number of connected watchers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers)
}

// Dropped returns how many watchers were disconnected for being slow.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Published returns how many events were fanned out.
func (h *Hub) Published() int64 {
	return h.published.Load()
}

// closeAll disconnects every watcher.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for w := range h.watchers {
		delete(h.watchers, w)
		close(w.send)
	}
}
