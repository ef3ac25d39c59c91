// Package cache implements the two-tier scan cache: an always-on bounded
// in-memory TTL tier, and an optional shared Redis tier enabled by
// REDIS_ADDR. Entries are keyed by (chain, normalized address, data kind,
// adapter version) and are never served past their TTL.
package cache

import (
	"time"
)

// Store is the byte-level cache contract both tiers implement
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, val []byte, ttl time.Duration)
}

// ttlReader is implemented by shared tiers that can report an entry's
// remaining lifetime alongside its value
type ttlReader interface {
	GetWithTTL(key string) ([]byte, time.Duration, bool)
}

// Tiered reads through memory then Redis, and writes through both. A Redis
// hit is promoted into the memory tier, capped at the entry's remaining
// shared-tier TTL so promotion never serves a value past its expiry.
type Tiered struct {
	memory Store
	shared Store
}

// promotionTTL caps how long a Redis-promoted entry lives in memory
const promotionTTL = 30 * time.Second

// NewTiered builds the two-tier cache. shared may be nil (memory only).
func NewTiered(memory, shared Store) *Tiered {
	return &Tiered{memory: memory, shared: shared}
}

func (t *Tiered) Get(key string) ([]byte, bool) {
	if val, ok := t.memory.Get(key); ok {
		return val, true
	}
	if t.shared == nil {
		return nil, false
	}
	val, ttl, ok := t.sharedGet(key)
	if !ok {
		return nil, false
	}
	if ttl > promotionTTL {
		ttl = promotionTTL
	}
	t.memory.Set(key, val, ttl)
	return val, true
}

// sharedGet reads the shared tier, preferring the TTL-aware path when the
// backend offers one
func (t *Tiered) sharedGet(key string) ([]byte, time.Duration, bool) {
	if r, ok := t.shared.(ttlReader); ok {
		return r.GetWithTTL(key)
	}
	val, ok := t.shared.Get(key)
	return val, promotionTTL, ok
}

func (t *Tiered) Set(key string, val []byte, ttl time.Duration) {
	t.memory.Set(key, val, ttl)
	if t.shared != nil {
		t.shared.Set(key, val, ttl)
	}
}
