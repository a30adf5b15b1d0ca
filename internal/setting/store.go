package setting

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// KeySeparator separates the groups of a setting key, e.g.
// "application/enabledExtensions".
const KeySeparator = "/"

// Store errors.
var (
	ErrStoreClosed = errors.New("setting store is closed")
	ErrInvalidKey  = errors.New("invalid setting key")
)

// Store persists setting values by key.
type Store interface {
	// Get returns the value stored under key.
	Get(key string) (any, bool)
	// Set stores value under key. It may be buffered until Sync.
	Set(key string, value any) error
	// Delete removes key.
	Delete(key string) error
	// Keys returns every stored key, sorted.
	Keys() []string
	// Sync forces buffered values to durable storage.
	Sync() error
	// Close releases the store.
	Close() error
}

// Watcher is implemented by stores that can report external edits.
type Watcher interface {
	// Watch calls fn with the keys whose values changed on disk.
	// The returned func stops watching.
	Watch(fn func(keys []string)) (stop func() error, err error)
}

// splitKey validates key and returns its groups.
func splitKey(key string) ([]string, error) {
	parts := strings.Split(key, KeySeparator)
	for _, p := range parts {
		if p == "" {
			return nil, ErrInvalidKey
		}
	}
	return parts, nil
}

// MemoryStore is a Store that keeps values in memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]any
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]any)}
}

// Get returns the value stored under key.
func (s *MemoryStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key.
func (s *MemoryStore) Set(key string, value any) error {
	if _, err := splitKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.values[key] = value
	return nil
}

// Delete removes key.
func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	delete(s.values, key)
	return nil
}

// Keys returns every stored key, sorted.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Sync is a no-op.
func (s *MemoryStore) Sync() error { return nil }

// Close marks the store closed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
