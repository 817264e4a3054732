package slack

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"

	"github.com/kart-io/senderhub/pkg/logger"
	"github.com/kart-io/senderhub/pkg/platform"
)

// connection tracks one login. open fires once the connection is usable or
// has failed; err is set before open fires.
type connection struct {
	open   *platform.Signal
	cancel context.CancelFunc

	mu  sync.Mutex
	err error
}

func newConnection(cancel context.CancelFunc) *connection {
	return &connection{
		open:   platform.NewSignal("slack connection open"),
		cancel: cancel,
	}
}

// finish records the login outcome. Only the first call counts.
func (c *connection) finish(err error) {
	c.mu.Lock()
	if !c.open.Fired() {
		c.err = err
		c.open.Fire()
	}
	c.mu.Unlock()
}

// Err returns the login error, if any
func (c *connection) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *connection) close() {
	c.cancel()
}

// connect authenticates the bot token and, with an app-level token, keeps
// a Socket Mode connection until ctx ends
func connect(ctx context.Context, api API, socketMode bool, conn *connection, log logger.Logger) {
	resp, err := api.AuthTestContext(ctx)
	if err != nil {
		log.Error("Slack authentication failed", "error", err)
		conn.finish(err)
		return
	}
	log.Info("Slack authenticated", "team", resp.Team, "user", resp.User)

	client, ok := api.(*slack.Client)
	if !socketMode || !ok {
		conn.finish(nil)
		return
	}
	runSocketMode(ctx, client, conn, log)
}

// maxConnectionErrors is how many Socket Mode connection errors in a row
// fail a login that has not opened yet
const maxConnectionErrors = 3

// ErrInvalidAuth is the login error of a rejected app-level token
var ErrInvalidAuth = stderrors.New("slack socket mode: invalid auth")

func runSocketMode(ctx context.Context, client *slack.Client, conn *connection, log logger.Logger) {
	sm := socketmode.New(client)
	events := &socketEvents{conn: conn, log: log, ack: func(req socketmode.Request) { sm.Ack(req) }}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-sm.Events:
				events.handle(evt)
			}
		}
	}()

	if err := sm.RunContext(ctx); err != nil && ctx.Err() == nil {
		log.Error("Slack Socket Mode stopped", "error", err)
		conn.finish(err)
	}
}

// socketEvents turns Socket Mode events into the login outcome of conn
type socketEvents struct {
	conn     *connection
	log      logger.Logger
	ack      func(socketmode.Request)
	failures int
}

func (e *socketEvents) handle(evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		e.log.Debug("Slack Socket Mode connecting")
	case socketmode.EventTypeConnected:
		e.log.Info("Slack Socket Mode connected")
		e.failures = 0
		e.conn.finish(nil)
	case socketmode.EventTypeConnectionError:
		e.failures++
		e.log.Warn("Slack Socket Mode connection error", "data", evt.Data, "attempt", e.failures)
		if e.failures >= maxConnectionErrors {
			e.conn.finish(fmt.Errorf("slack socket mode: %d connection errors, last: %v", e.failures, evt.Data))
		}
	case socketmode.EventTypeInvalidAuth:
		e.log.Error("Slack Socket Mode invalid auth")
		e.conn.finish(ErrInvalidAuth)
	default:
		if evt.Request != nil {
			e.ack(*evt.Request)
		}
	}
}
