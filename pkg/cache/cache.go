// Package cache is the in-memory response cache sitting in front of the
// completion provider. Entries share one TTL and are evicted lazily: an
// expired entry is only removed when a lookup finds it.
//
// The store is unbounded. Every distinct key stays in memory until it is
// looked up after expiry, overwritten, or removed with Clear. That is fine
// for a low-traffic deployment; a busy one should put Clear(true) on a
// schedule or front the store with a size bound.
package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gildcraft/guildgen/pkg/models"
)

// DefaultTTL is used when New is given a non-positive TTL.
const DefaultTTL = time.Hour

type entry struct {
	value    string
	storedAt time.Time
}

// Store maps cache keys to generated text. It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time

	hits        atomic.Int64
	misses      atomic.Int64
	expirations atomic.Int64
	stores      atomic.Int64
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store whose entries live for ttl.
func New(ttl time.Duration, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the uniform entry lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Get returns the value stored under key if it is younger than the TTL.
// An expired entry is deleted before reporting a miss.
func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		s.misses.Add(1)
		return "", false
	}

	if s.now().Sub(e.storedAt) >= s.ttl {
		delete(s.entries, key)
		s.expirations.Add(1)
		s.misses.Add(1)
		return "", false
	}

	s.hits.Add(1)
	return e.value, true
}

// Peek returns a fresh value without counting a lookup or evicting.
func (s *Store) Peek(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || s.now().Sub(e.storedAt) >= s.ttl {
		return "", false
	}
	return e.value, true
}

// Put stores value under key, replacing any previous entry.
func (s *Store) Put(key, value string) {
	s.mu.Lock()
	s.entries[key] = entry{value: value, storedAt: s.now()}
	s.mu.Unlock()
	s.stores.Add(1)
}

// Len returns the number of entries held, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stats returns cache performance metrics.
func (s *Store) Stats() models.CacheStats {
	return models.CacheStats{
		Entries:     int64(s.Len()),
		Hits:        s.hits.Load(),
		Misses:      s.misses.Load(),
		Expirations: s.expirations.Load(),
		Stores:      s.stores.Load(),
	}
}

// Clear removes entries and returns how many were dropped. If expiredOnly is
// true, only entries that reached the TTL are removed.
func (s *Store) Clear(expiredOnly bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !expiredOnly {
		n := len(s.entries)
		s.entries = make(map[string]entry)
		return n
	}

	now := s.now()
	removed := 0
	for k, e := range s.entries {
		if now.Sub(e.storedAt) >= s.ttl {
			delete(s.entries, k)
			removed++
		}
	}
	s.expirations.Add(int64(removed))
	return removed
}
