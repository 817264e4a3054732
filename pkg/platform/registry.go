// Channel adapter factory registry
package platform

import (
	"sort"
	"sync"

	"github.com/kart-io/senderhub/pkg/errors"
	"github.com/kart-io/senderhub/pkg/logger"
	"github.com/kart-io/senderhub/pkg/service"
)

// Registry maps channel IDs to the factories that build their drivers
type Registry struct {
	factories map[service.ID]Factory
	logger    logger.Logger
	mu        sync.RWMutex
}

// NewRegistry creates an empty factory registry
func NewRegistry(log logger.Logger) *Registry {
	return &Registry{
		factories: make(map[service.ID]Factory),
		logger:    logger.OrDefault(log),
	}
}

// Register registers the factory for a channel ID
func (r *Registry) Register(id service.ID, factory Factory) error {
	if factory == nil {
		return errors.NewInvalidArgumentError("nil factory for %s", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[id]; exists {
		return errors.NewInvalidArgumentError("channel %s already registered", id)
	}

	r.factories[id] = factory
	r.logger.Debug("Channel factory registered", "channel", id)
	return nil
}

// Replace registers factory for id, replacing any existing one
func (r *Registry) Replace(id service.ID, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[id] = factory
}

// Has reports whether a factory is registered for id
func (r *Registry) Has(id service.ID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.factories[id]
	return ok
}

// Create builds a driver for id from its typed configuration
func (r *Registry) Create(id service.ID, cfg any, deps Deps) (Driver, error) {
	r.mu.RLock()
	factory, exists := r.factories[id]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.NewUnsupportedServiceError(id.String())
	}

	if deps.Logger == nil {
		deps.Logger = r.logger
	}

	driver, err := factory(cfg, deps)
	if err != nil {
		r.logger.Error("Failed to create channel adapter", "channel", id, "error", err)
		return nil, err
	}

	r.logger.Info("Channel adapter created", "channel", id)
	return driver, nil
}

// IDs returns the registered channel IDs, sorted
func (r *Registry) IDs() []service.ID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]service.ID, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
