package platform

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"
)

// ErrSignalTimeout is returned by Signal.Wait when the timeout elapses first
var ErrSignalTimeout = stderrors.New("timed out waiting for signal")

// Signal is a one-shot completion handle. Fire may be called any number of
// times from any goroutine; only the first call has an effect.
type Signal struct {
	name string
	once sync.Once
	ch   chan struct{}
}

// NewSignal creates an unfired signal. name appears in timeout errors.
func NewSignal(name string) *Signal {
	return &Signal{name: name, ch: make(chan struct{})}
}

// Fire marks the signal as done
func (s *Signal) Fire() {
	s.once.Do(func() { close(s.ch) })
}

// Done returns a channel closed when the signal fires
func (s *Signal) Done() <-chan struct{} {
	return s.ch
}

// Fired reports whether the signal has fired
func (s *Signal) Fired() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

// Wait blocks until the signal fires, ctx ends or timeout elapses. A
// non-positive timeout waits on ctx alone.
func (s *Signal) Wait(ctx context.Context, timeout time.Duration) error {
	if s.Fired() {
		return nil
	}

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case <-s.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer:
		return fmt.Errorf("%w: %s after %s", ErrSignalTimeout, s.name, timeout)
	}
}
