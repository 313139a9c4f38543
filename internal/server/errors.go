package server

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTarget is returned when a switch or dispatch names an identity
	// that is not in the registry.
	ErrUnknownTarget = errors.New("unknown target")

	// ErrMalformedDirective is returned when an administrative directive
	// argument cannot be parsed.
	ErrMalformedDirective = errors.New("malformed directive")

	// ErrSessionClosed is returned when writing to a session that is already closed.
	ErrSessionClosed = errors.New("session closed")

	// ErrForcedRemoval is the disconnect cause recorded for Registry.Remove.
	ErrForcedRemoval = errors.New("removed by operator")

	// ErrServerStopped is the disconnect cause recorded when the server shuts down.
	ErrServerStopped = errors.New("server stopped")

	// ErrExitDirective is the disconnect cause recorded after an EXIT delivery.
	ErrExitDirective = errors.New("exit directive delivered")
)

// ConnectionError reports an I/O failure on a session's stream.
type ConnectionError struct {
	Op        string // "read" or "write"
	SessionID int
	Err       error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("session %d: %s: %v", e.SessionID, e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
