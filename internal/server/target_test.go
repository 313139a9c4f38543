package server

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetSelector_InitialBroadcast(t *testing.T) {
	ts := NewTargetSelector(NewSessionRegistry())
	assert.True(t, ts.Current().IsBroadcast())
	assert.Equal(t, "all", ts.Current().String())
}

func TestTargetSelector_SelectSpecific(t *testing.T) {
	registry := NewSessionRegistry()
	for i := 0; i < 2; i++ {
		server, _ := net.Pipe()
		defer server.Close()
		registry.Register(server)
	}
	ts := NewTargetSelector(registry)

	require.NoError(t, ts.SelectSpecific(2))
	assert.Equal(t, Specific(2), ts.Current())
	assert.Equal(t, "client 2", ts.Current().String())

	// Unknown identity keeps the previous selection.
	err := ts.SelectSpecific(7)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownTarget))
	assert.Equal(t, Specific(2), ts.Current())

	ts.SelectAll()
	assert.True(t, ts.Current().IsBroadcast())

	require.Error(t, ts.SelectSpecific(7))
	assert.True(t, ts.Current().IsBroadcast(), "rejected switch must not leave broadcast mode")
}

func TestTargetSelector_StaleTargetNotReverted(t *testing.T) {
	registry := NewSessionRegistry()
	server, _ := net.Pipe()
	sess := registry.Register(server)

	ts := NewTargetSelector(registry)
	require.NoError(t, ts.SelectSpecific(sess.ID))

	registry.Remove(sess.ID)

	assert.Equal(t, Specific(sess.ID), ts.Current(), "selector must not auto-revert")

	report := NewDispatcher(registry).Send(ts.Current(), "INFO")
	assert.ErrorIs(t, report.Err, ErrUnknownTarget)
	assert.Empty(t, report.Delivered)
	assert.Equal(t, Specific(sess.ID), ts.Current())
}
