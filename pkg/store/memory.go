package store

import (
	"context"
	"sync"
	"time"

	"github.com/kart-io/senderhub/pkg/logger"
)

// MemoryStore implements Store in process memory
type MemoryStore struct {
	logger  logger.Logger
	ttl     time.Duration
	entries map[string]memoryEntry
	mutex   sync.RWMutex

	stopCh    chan struct{}
	stopOnce  sync.Once
	cleanupWG sync.WaitGroup
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewMemoryStore creates an in-memory store. Entries expire after ttl when it
// is positive.
func NewMemoryStore(ttl time.Duration, log logger.Logger) *MemoryStore {
	s := &MemoryStore{
		logger:  logger.OrDefault(log),
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		stopCh:  make(chan struct{}),
	}
	if ttl > 0 {
		s.startCleanup(ttl)
	}
	s.logger.Debug("Memory store initialized", "ttl", ttl)
	return s
}

// Get returns the value stored under key
func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	entry, ok := s.entries[key]
	if !ok || entry.expired(time.Now()) {
		return "", ErrNotFound
	}
	return entry.value, nil
}

// Set stores value under key
func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.entries[key] = memoryEntry{value: value, expiresAt: expiry(s.ttl)}
	s.logger.Debug("Store set", "key", key)
	return nil
}

// Delete removes key; deleting a missing key is not an error
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.entries, key)
	return nil
}

// Len returns the number of live entries
func (s *MemoryStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	now := time.Now()
	n := 0
	for _, e := range s.entries {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

// Close stops the cleanup goroutine and drops all entries
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.cleanupWG.Wait()

	s.mutex.Lock()
	s.entries = make(map[string]memoryEntry)
	s.mutex.Unlock()

	s.logger.Debug("Memory store closed")
	return nil
}

func (s *MemoryStore) startCleanup(interval time.Duration) {
	s.cleanupWG.Add(1)

	go func() {
		defer s.cleanupWG.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.cleanupExpired()
			case <-s.stopCh:
				return
			}
		}
	}()
}

func (s *MemoryStore) cleanupExpired() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := time.Now()
	removed := 0
	for key, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, key)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Debug("Store cleanup", "expired_entries", removed)
	}
}
