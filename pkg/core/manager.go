// Package core provides the dispatch coordinator: the live channel adapters
// and the fan-out of one message to several of them.
package core

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kart-io/senderhub/pkg/config"
	"github.com/kart-io/senderhub/pkg/logger"
	"github.com/kart-io/senderhub/pkg/platform"
	"github.com/kart-io/senderhub/pkg/service"
)

// Manager owns the live channel adapters, one per configured channel ID
type Manager struct {
	registry *platform.Registry
	deps     platform.Deps
	defaults *config.Defaults

	drivers map[service.ID]platform.Driver
	mutex   sync.RWMutex
	logger  logger.Logger
}

// NewManager creates a manager building adapters from registry. defaults
// fill the fields a service block leaves unset and may be nil.
func NewManager(registry *platform.Registry, deps platform.Deps, defaults *config.Defaults) *Manager {
	log := logger.OrDefault(deps.Logger)
	deps.Logger = log
	return &Manager{
		registry: registry,
		deps:     deps,
		defaults: defaults,
		drivers:  make(map[service.ID]platform.Driver),
		logger:   log,
	}
}

// Initialize builds one adapter per block of raw. It is a no-op while live
// adapters exist. Every block is resolved before any adapter is built, and
// a failing adapter closes the ones built before it, so on error no adapter
// is left live.
func (m *Manager) Initialize(ctx context.Context, raw config.Raw) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if len(m.drivers) > 0 {
		m.logger.Debug("Channel adapters already initialized", "count", len(m.drivers))
		return nil
	}
	return m.build(ctx, raw)
}

// Reinitialize closes the live adapters and builds new ones from raw
func (m *Manager) Reinitialize(ctx context.Context, raw config.Raw) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := m.closeAll(); err != nil {
		m.logger.Warn("Closing previous channel adapters failed", "error", err)
	}
	return m.build(ctx, raw)
}

func (m *Manager) build(ctx context.Context, raw config.Raw) error {
	resolved, err := config.ResolveWithDefaults(raw, m.defaults)
	if err != nil {
		m.logger.Error("Failed to resolve service options", "error", err)
		return err
	}

	drivers := make(map[service.ID]platform.Driver, resolved.Len())
	for _, id := range resolved.IDs() {
		if err := ctx.Err(); err != nil {
			_ = closeDrivers(drivers, m.logger)
			return err
		}
		d, err := m.registry.Create(id, resolved.Config(id), m.deps)
		if err != nil {
			_ = closeDrivers(drivers, m.logger)
			return err
		}
		drivers[id] = d
	}

	m.drivers = drivers
	m.logger.Info("Channel adapters initialized", "count", len(drivers))
	return nil
}

// Current returns the sole live adapter when exactly one channel is
// configured, and all live adapters keyed by channel ID
func (m *Manager) Current() (platform.Driver, map[service.ID]platform.Driver) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	all := make(map[service.ID]platform.Driver, len(m.drivers))
	var single platform.Driver
	for id, d := range m.drivers {
		all[id] = d
		single = d
	}
	if len(all) != 1 {
		single = nil
	}
	return single, all
}

// Get returns the live adapter for id
func (m *Manager) Get(id service.ID) (platform.Driver, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	d, ok := m.drivers[id]
	return d, ok
}

// IDs returns the live channel IDs, sorted
func (m *Manager) IDs() []service.ID {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var ids []service.ID
	for _, id := range service.IDs() {
		if _, ok := m.drivers[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Close closes every live adapter and forgets them
func (m *Manager) Close() error {
	m.logger.Info("Closing channel adapters")

	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.closeAll()
}

func (m *Manager) closeAll() error {
	err := closeDrivers(m.drivers, m.logger)
	m.drivers = make(map[service.ID]platform.Driver)
	return err
}

// closeDrivers closes drivers concurrently and returns the first failure
func closeDrivers(drivers map[service.ID]platform.Driver, log logger.Logger) error {
	var g errgroup.Group
	for id, d := range drivers {
		g.Go(func() error {
			if err := d.Close(); err != nil {
				log.Error("Failed to close channel adapter", "channel", id, "error", err)
				return fmt.Errorf("failed to close %s: %w", id, err)
			}
			return nil
		})
	}
	return g.Wait()
}
