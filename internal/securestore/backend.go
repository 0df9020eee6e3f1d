// Package securestore persists small secrets, such as the keystore
// passkey, under a per-application namespace. Values can be sealed with a
// passphrase before they reach the backend.
package securestore

import (
	"errors"
	"sync"
)

// ErrNotFound is returned by a Backend when a key does not exist.
var ErrNotFound = errors.New("key not found")

// Backend is the raw key-value storage under a Store.
type Backend interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Close() error
}

// MemoryBackend implements Backend using an in-memory map. Contents are
// lost when the process exits.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *MemoryBackend {
	return &MemoryBackend{
		data: make(map[string][]byte),
	}
}

func (m *MemoryBackend) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryBackend) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryBackend) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
	return nil
}

func (m *MemoryBackend) Close() error {
	return nil
}
