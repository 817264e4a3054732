package senderhub

import (
	"github.com/kart-io/senderhub/observability"
	"github.com/kart-io/senderhub/pkg/logger"
	"github.com/kart-io/senderhub/pkg/platform"
	"github.com/kart-io/senderhub/pkg/service"
	"github.com/kart-io/senderhub/pkg/store"
)

// Option configures a Hub beyond what its configuration describes
type Option func(*hubOptions)

type hubOptions struct {
	logger    logger.Logger
	store     store.Store
	telemetry *observability.TelemetryProvider
	factories map[service.ID]platform.Factory
}

// WithLogger replaces the logger built from the logger settings
func WithLogger(l logger.Logger) Option {
	return func(o *hubOptions) {
		o.logger = l
	}
}

// WithStore replaces the recipient store built from the store settings.
// The caller keeps ownership and closes it after the hub.
func WithStore(s store.Store) Option {
	return func(o *hubOptions) {
		o.store = s
	}
}

// WithTelemetry replaces the telemetry provider built from the telemetry
// settings. The caller keeps ownership and shuts it down.
func WithTelemetry(tp *observability.TelemetryProvider) Option {
	return func(o *hubOptions) {
		o.telemetry = tp
	}
}

// WithFactory replaces the adapter factory of a channel
func WithFactory(id service.ID, factory platform.Factory) Option {
	return func(o *hubOptions) {
		if factory != nil {
			o.factories[id] = factory
		}
	}
}
