// Package store persists destination identifiers that channel adapters learn
// at runtime, such as the Telegram chat ID announced by /start, so they
// survive restarts.
package store

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/kart-io/senderhub/pkg/config"
	"github.com/kart-io/senderhub/pkg/errors"
	"github.com/kart-io/senderhub/pkg/logger"
)

// ErrNotFound is returned by Get when the key is absent or expired
var ErrNotFound = stderrors.New("store: key not found")

// Store is a small string key/value store
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// New creates a store for the configured backend
func New(cfg config.StoreConfig, log logger.Logger) (Store, error) {
	log = logger.OrDefault(log)
	switch cfg.Backend {
	case "", config.StoreMemory:
		return NewMemoryStore(cfg.TTL, log), nil
	case config.StoreRedis:
		return NewRedisStore(cfg.Redis, cfg.TTL, log)
	default:
		return nil, errors.NewConfigurationError("store.backend", "unsupported store backend: %s", cfg.Backend)
	}
}

// IsNotFound reports whether err means the key is absent
func IsNotFound(err error) bool {
	return stderrors.Is(err, ErrNotFound)
}

func expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}
