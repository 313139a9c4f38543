package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/standardbeagle/tether/internal/server"
)

// Snapshot is the /sessions response body.
type Snapshot struct {
	Registry server.RegistryInfo  `json:"registry"`
	Sessions []server.SessionInfo `json:"sessions"`
	Watchers int                  `json:"watchers"`
	Time     time.Time            `json:"time"`
}

// Feed is the HTTP side of the event stream.
type Feed struct {
	addr     string
	registry *server.SessionRegistry
	hub      *Hub
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	running    atomic.Bool
}

// NewFeed creates a feed for registry and subscribes its hub to the
// registry's events.
func NewFeed(addr string, registry *server.SessionRegistry, logger *zap.Logger) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	hub := NewHub(logger)
	registry.Subscribe(hub)

	return &Feed{
		addr:     addr,
		registry: registry,
		hub:      hub,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Local operator tooling; any origin may watch.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Hub returns the feed's hub.
func (f *Feed) Hub() *Hub {
	return f.hub
}

// Handler returns the feed's routes.
func (f *Feed) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", f.handleEvents)
	mux.HandleFunc("/sessions", f.handleSessions)
	return mux
}

func (f *Feed) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	f.logger.Info("event watcher connected", zap.String("remote_addr", r.RemoteAddr))
	wt := f.hub.add(conn)

	go func() {
		defer func() {
			f.hub.remove(wt)
			f.logger.Info("event watcher disconnected", zap.String("remote_addr", r.RemoteAddr))
		}()
		// Watchers only listen; reads detect the close.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (f *Feed) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessions := f.registry.Sessions()
	snap := Snapshot{
		Registry: f.registry.Info(),
		Sessions: make([]server.SessionInfo, 0, len(sessions)),
		Watchers: f.hub.Count(),
		Time:     time.Now(),
	}
	for _, sess := range sessions {
		snap.Sessions = append(snap.Sessions, sess.Info())
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		f.logger.Debug("write sessions snapshot", zap.Error(err))
	}
}

// Start binds the feed address and serves in the background.
func (f *Feed) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.running.Load() {
		return fmt.Errorf("event feed already running")
	}

	listener, err := net.Listen("tcp", f.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.addr, err)
	}
	f.listener = listener
	f.httpServer = &http.Server{
		Handler:           f.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	f.running.Store(true)

	go func(srv *http.Server) {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			f.logger.Error("event feed stopped", zap.Error(err))
		}
	}(f.httpServer)

	f.logger.Info("event feed listening", zap.String("addr", listener.Addr().String()))
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (f *Feed) Addr() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listener != nil {
		return f.listener.Addr().String()
	}
	return f.addr
}

// IsRunning reports whether the feed is serving.
func (f *Feed) IsRunning() bool {
	return f.running.Load()
}

// Stop shuts the HTTP server down and disconnects every watcher.
func (f *Feed) Stop(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.running.Load() {
		return nil
	}

	// Shutdown does not wait for hijacked websocket connections.
	err := f.httpServer.Shutdown(ctx)
	f.hub.closeAll()
	f.running.Store(false)
	return err
}
