// Package server implements the tether session registry, the TCP listener,
// per-session readers and the directive dispatcher.
package server

import (
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// SessionState represents the lifecycle state of a session.
type SessionState int32

const (
	// StateConnected indicates the session is registered and usable.
	StateConnected SessionState = iota
	// StateClosed indicates the session has been released. It never becomes
	// connected again.
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session represents one connected agent.
type Session struct {
	ID          int
	RemoteAddr  string
	ConnectedAt time.Time

	conn  net.Conn
	state atomic.Int32

	writeMu      sync.Mutex // serializes writes to conn
	writeTimeout time.Duration
	closeOnce    sync.Once

	bytesIn  atomic.Int64
	bytesOut atomic.Int64
}

func newSession(id int, conn net.Conn, writeTimeout time.Duration) *Session {
	s := &Session{
		ID:           id,
		ConnectedAt:  time.Now(),
		conn:         conn,
		writeTimeout: writeTimeout,
	}
	if addr := conn.RemoteAddr(); addr != nil {
		s.RemoteAddr = addr.String()
	}
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// BytesIn returns the number of bytes read from the agent.
func (s *Session) BytesIn() int64 { return s.bytesIn.Load() }

// BytesOut returns the number of bytes written to the agent.
func (s *Session) BytesOut() int64 { return s.bytesOut.Load() }

// Send writes p to the agent. Concurrent calls are serialized so payloads
// never interleave on the wire.
func (s *Session) Send(p []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.State() == StateClosed {
		return ErrSessionClosed
	}

	if s.writeTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}

	n, err := s.conn.Write(p)
	s.bytesOut.Add(int64(n))
	if err != nil {
		return &ConnectionError{Op: "write", SessionID: s.ID, Err: err}
	}
	return nil
}

// markClosed flips the state to closed. It reports whether this call made
// the transition. Callers hold the registry lock.
func (s *Session) markClosed() bool {
	return s.state.CompareAndSwap(int32(StateConnected), int32(StateClosed))
}

// release closes the underlying connection. Safe to call multiple times.
func (s *Session) release() {
	s.closeOnce.Do(func() {
		s.conn.Close()
	})
}

// SessionInfo is a point-in-time view of a session.
type SessionInfo struct {
	ID          int       `json:"id"`
	RemoteAddr  string    `json:"remote_addr"`
	ConnectedAt time.Time `json:"connected_at"`
	State       string    `json:"state"`
	BytesIn     int64     `json:"bytes_in"`
	BytesOut    int64     `json:"bytes_out"`
}

// Info returns a snapshot of the session's metadata.
func (s *Session) Info() SessionInfo {
	return SessionInfo{
		ID:          s.ID,
		RemoteAddr:  s.RemoteAddr,
		ConnectedAt: s.ConnectedAt,
		State:       s.State().String(),
		BytesIn:     s.bytesIn.Load(),
		BytesOut:    s.bytesOut.Load(),
	}
}
