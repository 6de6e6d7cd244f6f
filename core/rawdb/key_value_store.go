// Package rawdb provides the key-value persistence layer backing world
// state synchronization: a store abstraction with in-memory and LevelDB
// implementations, the key schema, and the world state accessor built on
// top of them.
package rawdb

import (
	"errors"
	"sync"
)

// KVStore errors.
var (
	ErrKVNotFound = errors.New("kv_store: key not found")
	ErrKVClosed   = errors.New("kv_store: closed")
)

// KVStore is the interface for a simple key-value store.
type KVStore interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	Close() error
}

// MemoryKVStore is an in-memory implementation of KVStore. It is safe for
// concurrent use and suitable for testing.
type MemoryKVStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryKVStore creates a new in-memory key-value store.
func NewMemoryKVStore() *MemoryKVStore {
	return &MemoryKVStore{
		data: make(map[string][]byte),
	}
}

// Get retrieves the value for a key. Returns ErrKVNotFound if absent.
func (m *MemoryKVStore) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	val, ok := m.data[string(key)]
	if !ok {
		return nil, ErrKVNotFound
	}
	cp := make([]byte, len(val))
	copy(cp, val)
	return cp, nil
}

// Put stores a key-value pair. Both key and value are copied.
func (m *MemoryKVStore) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[string(key)] = cp
	return nil
}

// Delete removes a key from the store. It is a no-op if the key does not
// exist.
func (m *MemoryKVStore) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
	return nil
}

// Has returns whether the key exists in the store.
func (m *MemoryKVStore) Has(key []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[string(key)]
	return ok, nil
}

// Len returns the number of entries.
func (m *MemoryKVStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Close is a no-op for the in-memory store.
func (m *MemoryKVStore) Close() error { return nil }
