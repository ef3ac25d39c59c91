package cache

import (
	"fmt"
	"time"

	"github.com/sawpanic/tokensleuth/internal/domain"
)

// AdapterVersion is folded into every cache key so that payload schema
// changes invalidate the cache instead of decoding stale shapes
const AdapterVersion = "v1"

// Key derives the deterministic cache key for one data need. The address
// must already be normalized.
func Key(chain domain.Chain, address string, kind domain.DataKind) string {
	return fmt.Sprintf("%s:%s:%s:%s", chain, address, kind, AdapterVersion)
}

// ScoreKey is the whole-scan result cache key
func ScoreKey(chain domain.Chain, address string) string {
	return fmt.Sprintf("%s:%s:score:%s", chain, address, AdapterVersion)
}

// NegativeKey marks a confirmed NOT_FOUND for a data need
func NegativeKey(chain domain.Chain, address string, kind domain.DataKind) string {
	return Key(chain, address, kind) + ":miss"
}

// TTLPolicy maps each data kind to its freshness bound
type TTLPolicy struct {
	byKind   map[domain.DataKind]time.Duration
	score    time.Duration
	negative time.Duration
}

// DefaultTTLPolicy returns the policy from the freshness table: immutable
// identity data lives for 30 days, live market data for 5 minutes.
func DefaultTTLPolicy() *TTLPolicy {
	return &TTLPolicy{
		byKind: map[domain.DataKind]time.Duration{
			domain.KindIdentity:     30 * 24 * time.Hour,
			domain.KindProvenance:   30 * 24 * time.Hour,
			domain.KindAuthorities:  time.Hour,
			domain.KindVerification: 24 * time.Hour,
			domain.KindSocial:       24 * time.Hour,
			domain.KindHolders:      10 * time.Minute,
			domain.KindMarket:       5 * time.Minute,
			domain.KindLPLock:       5 * time.Minute,
			domain.KindSimulation:   30 * time.Minute,
		},
		score:    5 * time.Minute,
		negative: time.Minute,
	}
}

// Override replaces the TTL for one data kind
func (p *TTLPolicy) Override(kind domain.DataKind, ttl time.Duration) {
	p.byKind[kind] = ttl
}

// ForKind returns the TTL for a data kind
func (p *TTLPolicy) ForKind(kind domain.DataKind) time.Duration {
	if ttl, ok := p.byKind[kind]; ok {
		return ttl
	}
	return 5 * time.Minute
}

// ForScore returns the whole-scan result TTL
func (p *TTLPolicy) ForScore() time.Duration { return p.score }

// ForNegative returns the confirmed-NOT_FOUND TTL
func (p *TTLPolicy) ForNegative() time.Duration { return p.negative }
