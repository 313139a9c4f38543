// Package agent is a reference tether agent. It dials the server, answers
// INFO and ECHO directives and disconnects on EXIT.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/standardbeagle/tether/internal/protocol"
)

// Config holds agent connection settings.
type Config struct {
	// Addr is the server address in host:port form.
	Addr string

	// Retry back-off bounds between dial attempts.
	RetryMin time.Duration
	RetryMax time.Duration

	// MaxAttempts caps consecutive failed dials (0 = retry forever).
	MaxAttempts int

	// Reconnect dials again after the server drops the connection.
	// An EXIT directive always ends Run.
	Reconnect bool

	// ReadBufferSize is the directive read buffer size.
	ReadBufferSize int
}

// DefaultConfig returns defaults for addr.
func DefaultConfig(addr string) Config {
	return Config{
		Addr:           addr,
		RetryMin:       250 * time.Millisecond,
		RetryMax:       10 * time.Second,
		ReadBufferSize: 4096,
	}
}

// Agent executes directives received from a tether server.
type Agent struct {
	config Config
	logger *zap.Logger
	info   InfoFunc
	dialer net.Dialer
}

// Option configures an Agent.
type Option func(*Agent)

// WithInfoFunc replaces the INFO reply generator.
func WithInfoFunc(fn InfoFunc) Option {
	return func(a *Agent) { a.info = fn }
}

// New creates an agent.
func New(config Config, logger *zap.Logger, opts ...Option) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.ReadBufferSize <= 0 {
		config.ReadBufferSize = 4096
	}
	if config.RetryMin <= 0 {
		config.RetryMin = 250 * time.Millisecond
	}
	if config.RetryMax < config.RetryMin {
		config.RetryMax = config.RetryMin
	}

	a := &Agent{
		config: config,
		logger: logger.With(zap.String("server", config.Addr)),
		info:   HostInfo,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run connects to the server and serves directives until EXIT, ctx
// cancellation, or a dropped connection when Reconnect is off.
func (a *Agent) Run(ctx context.Context) error {
	for {
		conn, err := a.dial(ctx)
		if err != nil {
			return err
		}

		exit, err := a.Serve(ctx, conn)
		switch {
		case exit:
			a.logger.Info("exit directive received")
			return nil
		case ctx.Err() != nil:
			return nil
		case !a.config.Reconnect:
			return err
		}
		a.logger.Warn("connection lost, reconnecting", zap.Error(err))
	}
}

func (a *Agent) dial(ctx context.Context) (net.Conn, error) {
	backoff := a.config.RetryMin
	for attempt := 1; ; attempt++ {
		conn, err := a.dialer.DialContext(ctx, "tcp", a.config.Addr)
		if err == nil {
			a.logger.Info("connected", zap.String("local_addr", conn.LocalAddr().String()))
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if a.config.MaxAttempts > 0 && attempt >= a.config.MaxAttempts {
			return nil, fmt.Errorf("dial %s: giving up after %d attempts: %w", a.config.Addr, attempt, err)
		}

		a.logger.Debug("dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > a.config.RetryMax {
			backoff = a.config.RetryMax
		}
	}
}

// Serve reads directives from conn until EXIT, EOF or ctx cancellation and
// closes conn on return. Each read is handled as one directive. exit
// reports whether the server sent EXIT.
func (a *Agent) Serve(ctx context.Context, conn net.Conn) (exit bool, err error) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	buf := make([]byte, a.config.ReadBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			reply, exit := a.handle(ctx, string(buf[:n]))
			if exit {
				return true, nil
			}
			if reply != "" {
				if _, werr := io.WriteString(conn, reply+"\n"); werr != nil {
					return false, fmt.Errorf("write reply: %w", werr)
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return false, io.EOF
			}
			return false, fmt.Errorf("read directive: %w", err)
		}
	}
}

// handle executes one directive and returns the reply to send.
func (a *Agent) handle(ctx context.Context, raw string) (reply string, exit bool) {
	d, err := protocol.ParseDirective(raw)
	if err != nil {
		if errors.Is(err, protocol.ErrEmptyDirective) {
			return "", false
		}
		var unknown *protocol.ErrUnknownDirective
		if errors.As(err, &unknown) {
			a.logger.Debug("unknown directive", zap.String("verb", unknown.Verb))
			return "unknown directive: " + unknown.Verb, false
		}
		return "error: " + err.Error(), false
	}

	a.logger.Debug("directive", zap.String("verb", d.Verb))
	switch d.Verb {
	case protocol.VerbInfo:
		info, err := a.info(ctx)
		if err != nil {
			a.logger.Warn("collect host info", zap.Error(err))
			return "error: " + err.Error(), false
		}
		return info, false
	case protocol.VerbEcho:
		return d.Message, false
	case protocol.VerbExit:
		return "", true
	}
	return "", false
}
