package storage

import (
	"fmt"
	"sort"
	"sync"
)

// Memory is a map-backed KV for tests. FailWrites makes every Set/Remove
// return ErrStorageFailure, which is how the save-failure paths (quota
// exceeded in the original) get exercised.
type Memory struct {
	mu         sync.Mutex
	data       map[string]string
	FailWrites bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

// Get returns the value for key.
func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

// Set stores value under key, or fails wholesale when FailWrites is set.
func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return fmt.Errorf("%w: set %q: simulated write failure", ErrStorageFailure, key)
	}
	m.data[key] = value
	return nil
}

// Remove deletes key. Idempotent.
func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return fmt.Errorf("%w: remove %q: simulated write failure", ErrStorageFailure, key)
	}
	delete(m.data, key)
	return nil
}

// Keys returns all keys with the given prefix, sorted.
func (m *Memory) Keys(prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// Compile-time check that *Memory implements KV.
var _ KV = (*Memory)(nil)
