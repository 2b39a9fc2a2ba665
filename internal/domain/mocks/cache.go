package mocks

import (
	"context"
	"sync"
	"time"
)

// Cache is a mock implementation of ports.Cache that records calls.
// Entries never expire; TTLs are recorded for assertions.
type Cache struct {
	Entries map[string][]byte
	TTLs    map[string]time.Duration
	Deleted []string
	Err     error

	GetCallCount int
	HitCount     int

	mu sync.Mutex
}

// NewCache creates an empty mock cache.
func NewCache() *Cache {
	return &Cache{
		Entries: make(map[string][]byte),
		TTLs:    make(map[string]time.Duration),
	}
}

// Get returns a stored value.
func (m *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCallCount++
	if m.Err != nil {
		return nil, false, m.Err
	}
	v, ok := m.Entries[key]
	if ok {
		m.HitCount++
	}
	return v, ok, nil
}

// Set stores a value.
func (m *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Entries[key] = value
	m.TTLs[key] = ttl
	return nil
}

// Delete removes a value and records the key.
func (m *Cache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = append(m.Deleted, key)
	if m.Err != nil {
		return m.Err
	}
	delete(m.Entries, key)
	return nil
}

// Has reports whether key is currently stored.
func (m *Cache) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Entries[key]
	return ok
}
