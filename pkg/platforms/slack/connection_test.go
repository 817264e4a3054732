package slack

import (
	"context"
	"testing"
	"time"

	"github.com/slack-go/slack/socketmode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/senderhub/pkg/logger"
)

func newSocketEvents() (*socketEvents, *[]socketmode.Request) {
	var acked []socketmode.Request
	return &socketEvents{
		conn: newConnection(func() {}),
		log:  logger.Discard,
		ack:  func(req socketmode.Request) { acked = append(acked, req) },
	}, &acked
}

func TestSocketEvents_InvalidAuthFailsLogin(t *testing.T) {
	e, _ := newSocketEvents()

	e.handle(socketmode.Event{Type: socketmode.EventTypeConnecting})
	assert.False(t, e.conn.open.Fired())

	e.handle(socketmode.Event{Type: socketmode.EventTypeInvalidAuth})
	require.True(t, e.conn.open.Fired())
	assert.ErrorIs(t, e.conn.Err(), ErrInvalidAuth)

	// a waiting Deliver is released at once instead of after the open timeout
	require.NoError(t, e.conn.open.Wait(context.Background(), time.Second))
}

func TestSocketEvents_RepeatedConnectionErrors(t *testing.T) {
	e, _ := newSocketEvents()

	for i := 1; i < maxConnectionErrors; i++ {
		e.handle(socketmode.Event{Type: socketmode.EventTypeConnectionError, Data: "dial tcp: refused"})
	}
	assert.False(t, e.conn.open.Fired(), "a transient error is retried")

	e.handle(socketmode.Event{Type: socketmode.EventTypeConnectionError, Data: "dial tcp: refused"})
	require.True(t, e.conn.open.Fired())
	require.Error(t, e.conn.Err())
	assert.Contains(t, e.conn.Err().Error(), "dial tcp: refused")
}

func TestSocketEvents_ConnectedResetsFailures(t *testing.T) {
	e, _ := newSocketEvents()

	e.handle(socketmode.Event{Type: socketmode.EventTypeConnectionError})
	e.handle(socketmode.Event{Type: socketmode.EventTypeConnected})
	require.True(t, e.conn.open.Fired())
	assert.NoError(t, e.conn.Err())
	assert.Zero(t, e.failures)

	e.handle(socketmode.Event{Type: socketmode.EventTypeInvalidAuth})
	assert.NoError(t, e.conn.Err(), "only the first outcome counts")
}

func TestSocketEvents_AcksRequests(t *testing.T) {
	e, acked := newSocketEvents()

	e.handle(socketmode.Event{Type: socketmode.EventTypeEventsAPI, Request: &socketmode.Request{Type: "events_api", EnvelopeID: "env-1"}})
	e.handle(socketmode.Event{Type: socketmode.EventTypeHello})

	require.Len(t, *acked, 1)
	assert.Equal(t, "env-1", (*acked)[0].EnvelopeID)
}
