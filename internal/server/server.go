package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultPort is the TCP port agents connect to.
const DefaultPort = 3001

// Config holds listener and session settings.
type Config struct {
	// Host is the interface to bind ("" or "0.0.0.0" for all).
	Host string

	// Port is the TCP port to listen on (0 picks a free port).
	Port int

	// Max concurrent sessions (0 = unlimited)
	MaxClients int

	// Per-write deadline for directive delivery (0 = no timeout)
	WriteTimeout time.Duration

	// ReadBufferSize is the size of each session's read buffer.
	ReadBufferSize int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           DefaultPort,
		MaxClients:     0,
		WriteTimeout:   10 * time.Second,
		ReadBufferSize: 4096,
	}
}

// Addr returns the listen address in host:port form.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Server accepts agent connections and owns the session registry.
type Server struct {
	config Config
	logger *zap.Logger

	registry   *SessionRegistry
	dispatcher *Dispatcher

	listener net.Listener

	// Lifecycle
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	started    time.Time
	shutdownMu sync.Mutex
	shutdown   bool
}

// New creates a server. Events are logged and forwarded to observers.
func New(config Config, logger *zap.Logger, observers ...Observer) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.ReadBufferSize <= 0 {
		config.ReadBufferSize = DefaultConfig().ReadBufferSize
	}

	obs := append(Observers{NewLogObserver(logger)}, observers...)
	registry := NewSessionRegistry(
		WithObserver(obs),
		WithWriteTimeout(config.WriteTimeout),
	)

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		config:     config,
		logger:     logger,
		registry:   registry,
		dispatcher: NewDispatcher(registry),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Registry returns the session registry.
func (s *Server) Registry() *SessionRegistry {
	return s.registry
}

// Dispatcher returns the directive dispatcher.
func (s *Server) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// Start binds the listening socket. It does not accept connections; call Serve.
func (s *Server) Start() error {
	s.shutdownMu.Lock()
	defer s.shutdownMu.Unlock()

	if s.shutdown {
		return errors.New("server already shut down")
	}
	if s.listener != nil {
		return nil
	}

	listener, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr(), err)
	}
	s.listener = listener
	s.started = time.Now()

	s.logger.Info("listening", zap.String("addr", listener.Addr().String()))
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.shutdownMu.Lock()
	defer s.shutdownMu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until ctx is cancelled or Stop is called. Each
// connection is registered and read by its own goroutine.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}

	s.shutdownMu.Lock()
	listener := s.listener
	s.shutdownMu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		listener.Close()
	})
	defer stop()

	var backoff time.Duration
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil // Shutting down
			}

			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else if backoff *= 2; backoff > time.Second {
				backoff = time.Second
			}
			s.logger.Warn("accept error", zap.Error(err), zap.Duration("retry_in", backoff))
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		if s.config.MaxClients > 0 && s.registry.Count() >= s.config.MaxClients {
			s.logger.Warn("max clients reached, rejecting connection",
				zap.String("remote_addr", conn.RemoteAddr().String()))
			conn.Close()
			continue
		}

		s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	if s.ctx.Err() != nil {
		conn.Close()
		return
	}
	sess := s.registry.Register(conn)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.readLoop(sess)
	}()
}

// Stop closes the listener, releases every session and waits for readers to
// finish or ctx to expire.
func (s *Server) Stop(ctx context.Context) error {
	s.shutdownMu.Lock()
	if s.shutdown {
		s.shutdownMu.Unlock()
		return nil
	}
	s.shutdown = true
	listener := s.listener
	s.shutdownMu.Unlock()

	s.logger.Info("server stopping")
	s.cancel()

	if listener != nil {
		listener.Close()
	}

	closed := s.registry.CloseAll(ErrServerStopped)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("waiting for session readers: %w", ctx.Err())
	}

	s.logger.Info("server stopped", zap.Int("sessions_closed", closed))
	return nil
}

// Info holds server status information.
type Info struct {
	Addr     string        `json:"addr"`
	Uptime   time.Duration `json:"uptime"`
	Sessions RegistryInfo  `json:"sessions"`
}

// Info returns server status.
func (s *Server) Info() Info {
	info := Info{Sessions: s.registry.Info()}

	s.shutdownMu.Lock()
	defer s.shutdownMu.Unlock()
	if s.listener != nil {
		info.Addr = s.listener.Addr().String()
		info.Uptime = time.Since(s.started)
	}
	return info
}
