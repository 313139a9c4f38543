package server

import (
	"io"
	"net"
	"sync"
	"testing"
)

// recorder is an Observer that keeps every event it sees.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Notify(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds(kind EventKind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// pipePair returns the server side of an in-memory connection and a channel
// that yields everything the peer reads until the pipe is closed.
func pipePair(t *testing.T) (server net.Conn, peer net.Conn, received <-chan string) {
	t.Helper()
	server, peer = net.Pipe()
	t.Cleanup(func() {
		server.Close()
		peer.Close()
	})

	ch := make(chan string, 1)
	go func() {
		data, _ := io.ReadAll(peer)
		ch <- string(data)
	}()
	return server, peer, ch
}
