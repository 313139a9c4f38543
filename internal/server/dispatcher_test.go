package server

import (
	"fmt"
	"io"
	"net"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitReceived(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for peer data")
		return ""
	}
}

func TestDispatcher_BroadcastCompleteness(t *testing.T) {
	registry := NewSessionRegistry()
	d := NewDispatcher(registry)

	var received []<-chan string
	for i := 0; i < 3; i++ {
		server, _, ch := pipePair(t)
		registry.Register(server)
		received = append(received, ch)
	}

	report := d.Send(Broadcast(), "INFO")
	require.True(t, report.OK(), "report: %+v", report)
	assert.Equal(t, []int{1, 2, 3}, report.Delivered)

	// Closing the server side lets each peer's ReadAll return.
	registry.CloseAll(ErrServerStopped)
	for i, ch := range received {
		assert.Equal(t, "INFO", waitReceived(t, ch), "session %d", i+1)
	}
}

func TestDispatcher_BroadcastIsolatesBrokenSession(t *testing.T) {
	rec := &recorder{}
	registry := NewSessionRegistry(WithObserver(rec))
	d := NewDispatcher(registry)

	s1, _, ch1 := pipePair(t)
	s2, peer2, _ := pipePair(t)
	s3, _, ch3 := pipePair(t)
	registry.Register(s1)
	registry.Register(s2)
	registry.Register(s3)

	peer2.Close()

	report := d.Send(Broadcast(), "D")

	assert.Equal(t, []int{1, 3}, report.Delivered)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, 2, report.Failures[0].SessionID)

	var connErr *ConnectionError
	assert.ErrorAs(t, report.Failures[0].Err, &connErr)
	assert.Equal(t, "write", connErr.Op)

	_, found := registry.Get(2)
	assert.False(t, found, "broken session must be removed")
	assert.Equal(t, []int{1, 3}, registry.List())

	failed := rec.kinds(EventDeliveryFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, 2, failed[0].SessionID)

	registry.CloseAll(ErrServerStopped)
	assert.Equal(t, "D", waitReceived(t, ch1))
	assert.Equal(t, "D", waitReceived(t, ch3))
}

func TestDispatcher_ExitRemovesSession(t *testing.T) {
	rec := &recorder{}
	registry := NewSessionRegistry(WithObserver(rec))
	d := NewDispatcher(registry)

	s1, _, _ := pipePair(t)
	s2, _, ch2 := pipePair(t)
	registry.Register(s1)
	registry.Register(s2)

	report := d.Send(Specific(2), "EXIT")
	require.True(t, report.OK(), "report: %+v", report)
	assert.Equal(t, []int{2}, report.Delivered)

	_, found := registry.Get(2)
	assert.False(t, found, "EXIT target must be absent after Send returns")
	_, found = registry.Get(1)
	assert.True(t, found)

	// The peer sees the directive and then end of stream.
	assert.Equal(t, "EXIT", waitReceived(t, ch2))

	disconnects := rec.kinds(EventDisconnected)
	require.Len(t, disconnects, 1)
	assert.ErrorIs(t, disconnects[0].Err, ErrExitDirective)
}

func TestDispatcher_ExitIsCaseSensitive(t *testing.T) {
	registry := NewSessionRegistry()
	d := NewDispatcher(registry)

	server, _, _ := pipePair(t)
	registry.Register(server)

	report := d.Send(Specific(1), "exit")
	require.True(t, report.OK())
	assert.Equal(t, 1, registry.Count())
}

func TestDispatcher_UnknownTarget(t *testing.T) {
	registry := NewSessionRegistry()
	d := NewDispatcher(registry)

	server, _, ch := pipePair(t)
	registry.Register(server)

	report := d.Send(Specific(7), "INFO")
	assert.ErrorIs(t, report.Err, ErrUnknownTarget)
	assert.Empty(t, report.Delivered)
	assert.Empty(t, report.Failures)
	assert.False(t, report.OK())

	registry.CloseAll(ErrServerStopped)
	assert.Equal(t, "", waitReceived(t, ch), "no delivery may be attempted")
}

func TestDispatcher_BroadcastEmptyRegistry(t *testing.T) {
	report := NewDispatcher(NewSessionRegistry()).Send(Broadcast(), "INFO")
	assert.True(t, report.OK())
	assert.Empty(t, report.Delivered)
}

func TestDispatcher_ConcurrentSendsDoNotInterleave(t *testing.T) {
	registry := NewSessionRegistry()
	d := NewDispatcher(registry)

	server, peer := net.Pipe()
	defer peer.Close()
	registry.Register(server)

	done := make(chan string, 1)
	go func() {
		data, _ := io.ReadAll(peer)
		done <- string(data)
	}()

	const senders = 20
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			target := Broadcast()
			if i%2 == 0 {
				target = Specific(1)
			}
			d.Send(target, fmt.Sprintf("<%02d-%s>", i, strings.Repeat("x", 64)))
		}(i)
	}
	wg.Wait()

	registry.Remove(1)
	data := waitReceived(t, done)

	frame := regexp.MustCompile(`^<\d{2}-x{64}>`)
	count := 0
	for len(data) > 0 {
		loc := frame.FindStringIndex(data)
		require.NotNil(t, loc, "interleaved bytes at %q", data)
		data = data[loc[1]:]
		count++
	}
	assert.Equal(t, senders, count)
}
