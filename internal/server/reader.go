package server

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// readLoop drains inbound bytes for sess until the stream ends. Every exit
// path, including a panic, releases the session through the registry.
func (s *Server) readLoop(sess *Session) {
	var cause error
	defer func() {
		if r := recover(); r != nil {
			cause = fmt.Errorf("reader panic: %v", r)
			s.logger.Error("session reader panicked",
				zap.Int("session", sess.ID), zap.Any("panic", r))
		}
		s.registry.release(sess.ID, cause)
	}()

	buf := make([]byte, s.config.ReadBufferSize)
	for {
		n, err := sess.conn.Read(buf)
		if n > 0 {
			sess.bytesIn.Add(int64(n))
			s.registry.notify(Event{
				Kind:       EventInbound,
				SessionID:  sess.ID,
				RemoteAddr: sess.RemoteAddr,
				Payload:    strings.ToValidUTF8(string(buf[:n]), "\uFFFD"),
			})
		}
		if err != nil {
			cause = &ConnectionError{Op: "read", SessionID: sess.ID, Err: err}
			return
		}
	}
}
