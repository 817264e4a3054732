// Package platform defines the contract every channel adapter implements and
// the shared send template that drives it.
package platform

import (
	"context"
	"sync"

	"github.com/kart-io/senderhub/pkg/logger"
	"github.com/kart-io/senderhub/pkg/message"
	"github.com/kart-io/senderhub/pkg/service"
	"github.com/kart-io/senderhub/pkg/store"
)

// Driver is a channel adapter. It owns one message record, reused across
// sends, and a provider client created lazily by Initialize.
//
// Send holds the driver's lock for the whole send, so implementations only
// need to guard state touched outside Send (Close, background listeners).
type Driver interface {
	sync.Locker

	// ID returns the channel ID
	ID() service.ID
	// Message returns the adapter's message record
	Message() *message.Message

	// SetTo validates and stores the destination the way the channel expects it
	SetTo(to string) error
	// Merge applies the channel's nested overrides from opts. Validation
	// failures are passed to onError and do not stop the merge.
	Merge(opts *message.Options, onError func(error))
	// Destination returns where the next Deliver will send, or a
	// ValidationError when nothing can be sent yet.
	Destination() (string, error)

	// Initialize creates the provider client unless one exists and forceNew is false
	Initialize(ctx context.Context, forceNew bool) error
	// Deliver sends the current message and returns the provider's result text
	Deliver(ctx context.Context) (string, error)
	// Close releases the provider client
	Close() error
}

// Deps are the shared services handed to every adapter factory
type Deps struct {
	Logger logger.Logger
	Store  store.Store
}

// Factory creates a driver from its typed configuration (one of the
// config.XxxConfig pointers) and shared dependencies
type Factory func(cfg any, deps Deps) (Driver, error)
