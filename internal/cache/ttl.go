package cache

import (
	"sync"
	"time"
)

// TTLStore is the in-memory tier: a TTL map bounded by LRU eviction with a
// background sweep for expired entries.
type TTLStore struct {
	mu         sync.Mutex
	entries    map[string]*entry
	maxEntries int

	hits   int64
	misses int64
	evicts int64

	stopCh chan struct{}
}

type entry struct {
	value    []byte
	expires  time.Time
	accessed time.Time
}

// NewTTLStore creates the memory tier bounded to maxEntries
func NewTTLStore(maxEntries int) *TTLStore {
	s := &TTLStore{
		entries:    make(map[string]*entry),
		maxEntries: maxEntries,
		stopCh:     make(chan struct{}),
	}
	go s.sweep()
	return s
}

func (s *TTLStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || time.Now().After(e.expires) {
		s.misses++
		return nil, false
	}
	e.accessed = time.Now()
	s.hits++
	return e.value, true
}

func (s *TTLStore) Set(key string, val []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok && len(s.entries) >= s.maxEntries {
		s.evictLRU()
	}
	now := time.Now()
	s.entries[key] = &entry{
		value:    append([]byte(nil), val...),
		expires:  now.Add(ttl),
		accessed: now,
	}
}

// Stats returns hit/miss/eviction counts and the live entry count
func (s *TTLStore) Stats() (hits, misses, evictions int64, entries int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits, s.misses, s.evicts, len(s.entries)
}

// Stop shuts down the sweep goroutine
func (s *TTLStore) Stop() { close(s.stopCh) }

// evictLRU removes the least recently accessed entry; caller holds the lock
func (s *TTLStore) evictLRU() {
	var oldestKey string
	oldest := time.Now().Add(time.Hour)
	for key, e := range s.entries {
		if e.accessed.Before(oldest) {
			oldest = e.accessed
			oldestKey = key
		}
	}
	if oldestKey != "" {
		delete(s.entries, oldestKey)
		s.evicts++
	}
}

func (s *TTLStore) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.removeExpired()
		}
	}
}

func (s *TTLStore) removeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for key, e := range s.entries {
		if now.After(e.expires) {
			delete(s.entries, key)
		}
	}
}
