package server

import (
	"errors"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// SessionRegistry is the authoritative store of live sessions.
//
// All mutation happens under a single mutex. A session's transition to
// StateClosed and its removal from the map happen inside the same critical
// section, so no lookup ever returns a closed session and exactly one caller
// wins the release of a given identity.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[int]*Session
	nextID   int

	obsMu        sync.RWMutex
	observers    Observers
	writeTimeout time.Duration

	// Statistics
	totalRegistered atomic.Int64
	totalRemoved    atomic.Int64
}

// RegistryOption configures a SessionRegistry.
type RegistryOption func(*SessionRegistry)

// WithObserver adds an observer notified of session events.
func WithObserver(obs Observer) RegistryOption {
	return func(r *SessionRegistry) {
		r.observers = append(r.observers, obs)
	}
}

// WithWriteTimeout sets the per-write deadline applied to new sessions.
func WithWriteTimeout(d time.Duration) RegistryOption {
	return func(r *SessionRegistry) {
		r.writeTimeout = d
	}
}

// NewSessionRegistry creates an empty registry. Identities start at 1.
func NewSessionRegistry(opts ...RegistryOption) *SessionRegistry {
	r := &SessionRegistry{
		sessions: make(map[int]*Session),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register allocates the next identity for conn and stores a connected session.
func (r *SessionRegistry) Register(conn net.Conn) *Session {
	r.mu.Lock()
	r.nextID++
	sess := newSession(r.nextID, conn, r.writeTimeout)
	r.sessions[sess.ID] = sess
	r.mu.Unlock()

	r.totalRegistered.Add(1)
	r.notify(Event{Kind: EventConnected, SessionID: sess.ID, RemoteAddr: sess.RemoteAddr})
	return sess
}

// Get returns the live session for id.
func (r *SessionRegistry) Get(id int) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

// Remove force-closes and deregisters the session for id. Removing an absent
// identity is a no-op; the return value reports whether anything was removed.
func (r *SessionRegistry) Remove(id int) bool {
	return r.release(id, ErrForcedRemoval)
}

// List returns the registered identities in ascending order. The slice is a
// snapshot and is not affected by later registrations or removals.
func (r *SessionRegistry) List() []int {
	r.mu.Lock()
	ids := make([]int, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	sort.Ints(ids)
	return ids
}

// Sessions returns a snapshot of the registered sessions ordered by identity.
func (r *SessionRegistry) Sessions() []*Session {
	r.mu.Lock()
	result := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		result = append(result, sess)
	}
	r.mu.Unlock()

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Count returns the number of registered sessions.
func (r *SessionRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll releases every registered session with the given cause and returns
// how many were released.
func (r *SessionRegistry) CloseAll(cause error) int {
	n := 0
	for _, id := range r.List() {
		if r.release(id, cause) {
			n++
		}
	}
	return n
}

// release is the single deregistration path. It marks the session closed,
// removes it, closes its connection and emits one disconnect event.
func (r *SessionRegistry) release(id int, cause error) bool {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	sess.markClosed()
	delete(r.sessions, id)
	r.mu.Unlock()

	sess.release()
	r.totalRemoved.Add(1)

	if cause == nil {
		cause = errors.New("connection closed")
	}
	r.notify(Event{
		Kind:       EventDisconnected,
		SessionID:  id,
		RemoteAddr: sess.RemoteAddr,
		Err:        cause,
	})
	return true
}

// Subscribe adds an observer after construction. Events already emitted are
// not replayed.
func (r *SessionRegistry) Subscribe(obs Observer) {
	if obs == nil {
		return
	}
	r.obsMu.Lock()
	r.observers = append(r.observers, obs)
	r.obsMu.Unlock()
}

func (r *SessionRegistry) notify(ev Event) {
	r.obsMu.RLock()
	observers := r.observers
	r.obsMu.RUnlock()

	if len(observers) == 0 {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	observers.Notify(ev)
}

// RegistryInfo contains statistics about the session registry.
type RegistryInfo struct {
	ActiveCount     int   `json:"active_count"`
	TotalRegistered int64 `json:"total_registered"`
	TotalRemoved    int64 `json:"total_removed"`
}

// Info returns statistics about the registry.
func (r *SessionRegistry) Info() RegistryInfo {
	return RegistryInfo{
		ActiveCount:     r.Count(),
		TotalRegistered: r.totalRegistered.Load(),
		TotalRemoved:    r.totalRemoved.Load(),
	}
}
