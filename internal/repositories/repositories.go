// package repositories provides persistence layer implementations for session state.
package repositories

import (
	"sync"
)

// KeyValueStore is durable string storage keyed by slot name.
type KeyValueStore interface {
	Get(key string) (string, bool, error) // Get returns the value and whether the key exists
	Set(key, value string) error          // Set inserts or replaces a value
	Delete(keys ...string) error          // Delete removes keys; missing keys are ignored
}

// MemoryStore implements [KeyValueStore] with a mutex-guarded map.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStore creates an empty [MemoryStore]
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryStore) Delete(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}
