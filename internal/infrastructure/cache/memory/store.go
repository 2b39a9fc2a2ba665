// Package memory provides an in-process TTL cache implementing ports.Cache.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ersonp/calcore/internal/domain/ports"
	"github.com/ersonp/calcore/internal/infrastructure/config"
)

type entry struct {
	value      []byte
	expiresAt  time.Time
	accessedAt time.Time
}

// Store is a process-wide cache with per-entry expiry and a size bound.
// Expired entries are dropped on read and by a periodic cleanup; when the
// store grows past MaxEntries the least recently read entries are evicted.
type Store struct {
	entries    map[string]*entry
	mu         sync.RWMutex
	maxEntries int
	now        func() time.Time

	stopCleanup chan struct{}
	closeOnce   sync.Once
}

var _ ports.Cache = (*Store)(nil)

// New creates a Store and starts its cleanup goroutine. Call Close to stop it.
func New(cfg config.CacheConfig) *Store {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = config.DefaultCacheMaxEntries
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = config.DefaultCacheCleanupInterval
	}

	s := &Store{
		entries:     make(map[string]*entry),
		maxEntries:  cfg.MaxEntries,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}
	go s.cleanupLoop(cfg.CleanupInterval)
	return s
}

// Get returns the value stored under key if it has not expired.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !now.Before(e.expiresAt) {
		delete(s.entries, key)
		return nil, false, nil
	}
	e.accessedAt = now
	return append([]byte(nil), e.value...), true, nil
}

// Set stores value under key for ttl.
func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = &entry{
		value:      append([]byte(nil), value...),
		expiresAt:  now.Add(ttl),
		accessedAt: now,
	}
	if len(s.entries) > s.maxEntries {
		s.cleanup(now)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, including expired ones not yet cleaned up.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the cleanup goroutine and clears the store.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.stopCleanup)
		s.mu.Lock()
		s.entries = make(map[string]*entry)
		s.mu.Unlock()
	})
}

// cleanup removes expired entries, then the least recently read ones while
// the store is over its bound. The caller holds mu.
func (s *Store) cleanup(now time.Time) {
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
		}
	}

	excess := len(s.entries) - s.maxEntries
	if excess <= 0 {
		return
	}

	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return s.entries[keys[i]].accessedAt.Before(s.entries[keys[j]].accessedAt)
	})
	for _, key := range keys[:excess] {
		delete(s.entries, key)
	}
}

func (s *Store) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			s.cleanup(s.now())
			s.mu.Unlock()
		case <-s.stopCleanup:
			return
		}
	}
}
