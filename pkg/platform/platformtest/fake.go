// Package platformtest provides a scriptable platform.Driver for tests.
package platformtest

import (
	"context"
	"sync"
	"time"

	"github.com/kart-io/senderhub/pkg/logger"
	"github.com/kart-io/senderhub/pkg/platform"
	"github.com/kart-io/senderhub/pkg/service"
)

// Delivery is a message as seen by Deliver
type Delivery struct {
	From    string
	To      string
	Subject string
	Text    string
	HTML    bool
}

// Driver is a fake channel adapter that records deliveries
type Driver struct {
	*platform.Base

	// RequireEmail validates the destination as an address list
	RequireEmail bool
	// InitErr is returned by every Initialize call
	InitErr error
	// DeliverErr is returned by every Deliver call
	DeliverErr error
	// Response is returned by Deliver, "Message sent: ok" when empty
	Response string
	// Delay holds Deliver until it elapses or the context ends
	Delay time.Duration

	state      sync.Mutex
	deliveries []Delivery
	inits      int
	closes     int
}

// New creates a fake driver for a channel ID
func New(id service.ID) *Driver {
	return &Driver{Base: platform.NewBase(id, logger.Discard)}
}

// SetTo stores the destination
func (d *Driver) SetTo(to string) error {
	if d.RequireEmail {
		return d.SetEmailTo(to)
	}
	return d.Base.SetTo(to)
}

// Initialize counts calls
func (d *Driver) Initialize(_ context.Context, _ bool) error {
	d.state.Lock()
	d.inits++
	d.state.Unlock()
	return d.InitErr
}

// Deliver records the current message
func (d *Driver) Deliver(ctx context.Context) (string, error) {
	if d.Delay > 0 {
		select {
		case <-time.After(d.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if d.DeliverErr != nil {
		return "", d.DeliverErr
	}

	m := d.Message()
	d.state.Lock()
	d.deliveries = append(d.deliveries, Delivery{
		From:    m.From(),
		To:      m.To(),
		Subject: m.Subject(),
		Text:    m.Text(),
		HTML:    m.HTMLFlag(),
	})
	d.state.Unlock()

	if d.Response != "" {
		return d.Response, nil
	}
	return "Message sent: ok", nil
}

// Close counts calls
func (d *Driver) Close() error {
	d.state.Lock()
	d.closes++
	d.state.Unlock()
	return nil
}

// Deliveries returns the recorded deliveries
func (d *Driver) Deliveries() []Delivery {
	d.state.Lock()
	defer d.state.Unlock()
	return append([]Delivery(nil), d.deliveries...)
}

// Inits returns the number of Initialize calls
func (d *Driver) Inits() int {
	d.state.Lock()
	defer d.state.Unlock()
	return d.inits
}

// Closes returns the number of Close calls
func (d *Driver) Closes() int {
	d.state.Lock()
	defer d.state.Unlock()
	return d.closes
}

// Factory returns a factory that always yields d
func Factory(d *Driver) platform.Factory {
	return func(any, platform.Deps) (platform.Driver, error) {
		return d, nil
	}
}

// Recorder collects callback results
type Recorder struct {
	mu      sync.Mutex
	results []platform.Result
}

// Callback returns a callback appending to the recorder
func (r *Recorder) Callback() platform.Callback {
	return func(res platform.Result) {
		r.mu.Lock()
		r.results = append(r.results, res)
		r.mu.Unlock()
	}
}

// Results returns every recorded result
func (r *Recorder) Results() []platform.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]platform.Result(nil), r.results...)
}

// Terminal returns the recorded terminal results
func (r *Recorder) Terminal() []platform.Result {
	var out []platform.Result
	for _, res := range r.Results() {
		if res.Terminal() {
			out = append(out, res)
		}
	}
	return out
}
