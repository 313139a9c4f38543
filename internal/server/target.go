package server

import (
	"fmt"
	"sync/atomic"
)

// Target is the addressing mode applied to the next directive. The zero
// value is Broadcast.
type Target struct {
	id int
}

// Broadcast addresses every registered session.
func Broadcast() Target { return Target{} }

// Specific addresses a single session identity.
func Specific(id int) Target { return Target{id: id} }

// IsBroadcast reports whether t addresses every session.
func (t Target) IsBroadcast() bool { return t.id == 0 }

// ID returns the addressed identity, or 0 for Broadcast.
func (t Target) ID() int { return t.id }

func (t Target) String() string {
	if t.IsBroadcast() {
		return "all"
	}
	return fmt.Sprintf("client %d", t.id)
}

// TargetSelector holds the operator's current target. It is written by the
// console goroutine and read by the dispatcher.
type TargetSelector struct {
	registry *SessionRegistry
	current  atomic.Int64 // 0 means broadcast; identities start at 1
}

// NewTargetSelector creates a selector in Broadcast mode.
func NewTargetSelector(registry *SessionRegistry) *TargetSelector {
	return &TargetSelector{registry: registry}
}

// SelectAll switches to Broadcast.
func (ts *TargetSelector) SelectAll() {
	ts.current.Store(0)
}

// SelectSpecific switches to Specific(id) if id is currently registered.
// Otherwise the previous target is kept and ErrUnknownTarget is returned.
func (ts *TargetSelector) SelectSpecific(id int) error {
	if _, ok := ts.registry.Get(id); !ok {
		return fmt.Errorf("client %d: %w", id, ErrUnknownTarget)
	}
	ts.current.Store(int64(id))
	return nil
}

// Current returns the selected target.
func (ts *TargetSelector) Current() Target {
	return Target{id: int(ts.current.Load())}
}
