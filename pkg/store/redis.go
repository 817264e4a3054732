package store

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kart-io/senderhub/pkg/config"
	"github.com/kart-io/senderhub/pkg/errors"
	"github.com/kart-io/senderhub/pkg/logger"
)

// DefaultKeyPrefix namespaces every Redis key written by the store
const DefaultKeyPrefix = "senderhub:"

// RedisStore implements Store on Redis
type RedisStore struct {
	logger logger.Logger
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection. Entries
// expire after ttl when it is positive.
func NewRedisStore(cfg config.RedisConfig, ttl time.Duration, log logger.Logger) (*RedisStore, error) {
	log = logger.OrDefault(log)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, errors.ErrCodeConfiguration, "connect to redis").WithTarget(cfg.Addr)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}

	log.Debug("Redis store initialized", "addr", cfg.Addr, "db", cfg.DB, "prefix", prefix)

	return &RedisStore{
		logger: log,
		client: rdb,
		prefix: prefix,
		ttl:    ttl,
	}, nil
}

// Get returns the value stored under key
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		s.logger.Error("Redis GET failed", "key", key, "error", err)
		return "", err
	}
	return value, nil
}

// Set stores value under key, expiring after the configured TTL if any
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		s.logger.Error("Redis SET failed", "key", key, "error", err)
		return err
	}
	s.logger.Debug("Redis store set", "key", key, "ttl", s.ttl)
	return nil
}

// Delete removes key
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		s.logger.Error("Redis DEL failed", "key", key, "error", err)
		return err
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	s.logger.Debug("Closing Redis store")
	return s.client.Close()
}
