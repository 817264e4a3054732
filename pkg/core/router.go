package core

import (
	"github.com/kart-io/senderhub/pkg/errors"
	"github.com/kart-io/senderhub/pkg/platform"
	"github.com/kart-io/senderhub/pkg/service"
)

// Target is one adapter selected for a dispatch
type Target struct {
	ID     service.ID
	Driver platform.Driver
}

// Route selects the adapters a dispatch goes to. Explicit names are
// resolved through the service registry, in order and without duplicates.
// An unknown name, or a known one whose channel is not live, fails the whole
// route with an UnsupportedServiceError. No names selects every live adapter.
func (m *Manager) Route(names []string) ([]Target, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if len(names) == 0 {
		var targets []Target
		for _, id := range service.IDs() {
			if d, ok := m.drivers[id]; ok {
				targets = append(targets, Target{ID: id, Driver: d})
			}
		}
		return targets, nil
	}

	seen := make(map[service.ID]struct{}, len(names))
	targets := make([]Target, 0, len(names))
	for _, name := range names {
		id, err := service.Lookup(name)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		d, ok := m.drivers[id]
		if !ok {
			m.logger.Warn("Channel requested but not configured", "service", name, "channel", id)
			return nil, errors.NewUnsupportedServiceError(name)
		}
		targets = append(targets, Target{ID: id, Driver: d})
	}
	return targets, nil
}
