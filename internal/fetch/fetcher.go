// Package fetch orchestrates data acquisition for one scan: cache consult,
// provider failover in priority order, request coalescing, and assembly of
// the normalized TokenFacts the engine consumes. Adapter failures never
// escape this package; they degrade the affected fact group to MISSING.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/sawpanic/tokensleuth/internal/cache"
	"github.com/sawpanic/tokensleuth/internal/domain"
	"github.com/sawpanic/tokensleuth/internal/metrics"
	"github.com/sawpanic/tokensleuth/internal/providers"
	"github.com/sawpanic/tokensleuth/internal/ratelimit"
)

// Options tune the fetch plan
type Options struct {
	// Parallelism caps concurrent data-need fetches per scan
	Parallelism int
	// Budget bounds the whole fetch phase
	Budget time.Duration
	// WaiterTimeout is how long a coalesced follower waits before treating
	// the need as missing; the leader keeps going and warms the cache
	WaiterTimeout time.Duration
	// CrossChecks maps a data kind to the [primary, secondary] provider pair
	// whose agreement sets the fact's confidence
	CrossChecks map[domain.DataKind][2]string
}

func (o Options) withDefaults() Options {
	if o.Parallelism <= 0 {
		o.Parallelism = 8
	}
	if o.Budget <= 0 {
		o.Budget = 1500 * time.Millisecond
	}
	if o.WaiterTimeout <= 0 {
		o.WaiterTimeout = time.Second
	}
	return o
}

// tryTimeout bounds one provider attempt: reservoir wait plus the call itself
func tryTimeout() time.Duration { return providers.CallTimeout + 500*time.Millisecond }

// Fetcher resolves every data need for a token and assembles TokenFacts
type Fetcher struct {
	registry *providers.Registry
	store    *cache.Tiered
	policy   *cache.TTLPolicy
	limits   *ratelimit.Manager
	group    singleflight.Group
	opts     Options
}

// New builds a fetcher over the registered providers
func New(registry *providers.Registry, store *cache.Tiered, policy *cache.TTLPolicy, limits *ratelimit.Manager, opts Options) *Fetcher {
	return &Fetcher{
		registry: registry,
		store:    store,
		policy:   policy,
		limits:   limits,
		opts:     opts.withDefaults(),
	}
}

// cachedEntry is the cache representation of one resolved data need
type cachedEntry struct {
	Source  string            `json:"source"`
	Payload providers.Payload `json:"payload"`

	fromCache bool
}

type kindResult struct {
	payload   *providers.Payload
	source    string
	fromCache bool
	err       error
}

// Fetch resolves all data needs for the token within the fetch budget. The
// address must already be validated and normalized. A token confirmed absent
// by the identity need returns domain.ErrNotFound; every other degradation
// shows up as MISSING fact groups in the returned TokenFacts.
func (f *Fetcher) Fetch(ctx context.Context, chain domain.Chain, address string) (*domain.TokenFacts, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Budget)
	defer cancel()

	kinds := domain.DataNeeds(chain)

	// On EVM the LP-lock check keys off the pool's LP token, which only the
	// market need can name, so it runs after the first wave
	deferLPLock := chain.IsEVM()
	var wave []domain.DataKind
	for _, kind := range kinds {
		if deferLPLock && kind == domain.KindLPLock {
			continue
		}
		wave = append(wave, kind)
	}

	results := make([]kindResult, len(wave))
	sem := make(chan struct{}, f.opts.Parallelism)
	var wg sync.WaitGroup
	for i, kind := range wave {
		wg.Add(1)
		go func(i int, kind domain.DataKind) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = kindResult{err: ctx.Err()}
				return
			}
			results[i] = f.fetchKind(ctx, chain, address, kind)
		}(i, kind)
	}
	wg.Wait()

	byKind := make(map[domain.DataKind]kindResult, len(kinds))
	for i, kind := range wave {
		byKind[kind] = results[i]
	}

	if r := byKind[domain.KindIdentity]; r.err != nil && providers.KindOf(r.err) == providers.ErrNotFound {
		return nil, domain.ErrNotFound
	}

	if deferLPLock {
		if m := byKind[domain.KindMarket]; m.payload != nil && m.payload.Market != nil && m.payload.Market.PairAddress != "" {
			byKind[domain.KindLPLock] = f.fetchKind(ctx, chain, m.payload.Market.PairAddress, domain.KindLPLock)
		}
	}

	facts := assemble(chain, address, byKind)
	f.crossCheck(ctx, chain, address, byKind, facts)
	derive(chain, facts, byKind)
	return facts, nil
}

// fetchKind coalesces concurrent requests for the same (chain, address, kind)
// into one provider call. A follower that has waited WaiterTimeout stops
// sharing and runs its own scan-bound lookup; the leader finishes regardless
// and warms the cache for the next scan.
func (f *Fetcher) fetchKind(ctx context.Context, chain domain.Chain, address string, kind domain.DataKind) kindResult {
	key := cache.Key(chain, address, kind)
	ch := f.group.DoChan(key, func() (interface{}, error) {
		return f.lookup(context.Background(), chain, address, kind)
	})

	timer := time.NewTimer(f.opts.WaiterTimeout)
	defer timer.Stop()
	select {
	case res := <-ch:
		if res.Err != nil {
			return kindResult{err: res.Err}
		}
		entry := res.Val.(*cachedEntry)
		return kindResult{payload: &entry.Payload, source: entry.Source, fromCache: entry.fromCache}
	case <-timer.C:
		entry, err := f.lookup(ctx, chain, address, kind)
		if err != nil {
			return kindResult{err: err}
		}
		return kindResult{payload: &entry.Payload, source: entry.Source, fromCache: entry.fromCache}
	case <-ctx.Done():
		return kindResult{err: ctx.Err()}
	}
}

// lookup consults the cache, then walks the provider priority list. The leader
// path runs it detached from any scan context so a slow success still lands in
// the cache; follower fallbacks pass their scan context.
func (f *Fetcher) lookup(ctx context.Context, chain domain.Chain, address string, kind domain.DataKind) (*cachedEntry, error) {
	key := cache.Key(chain, address, kind)
	if raw, ok := f.store.Get(key); ok {
		var entry cachedEntry
		if err := json.Unmarshal(raw, &entry); err == nil {
			metrics.CacheHits.WithLabelValues(string(kind)).Inc()
			entry.fromCache = true
			return &entry, nil
		}
	}
	if _, ok := f.store.Get(cache.NegativeKey(chain, address, kind)); ok {
		metrics.CacheHits.WithLabelValues(string(kind)).Inc()
		return nil, providers.NewError("cache", providers.ErrNotFound, "previously confirmed absent", nil)
	}
	metrics.CacheMisses.WithLabelValues(string(kind)).Inc()

	adapters := f.registry.Ranked(chain, kind)
	if len(adapters) == 0 {
		return nil, providers.NewError("registry", providers.ErrNotSupported, "no provider for "+string(kind)+" on "+string(chain), nil)
	}

	var lastErr error
	for _, a := range adapters {
		payload, err := f.callProvider(ctx, a, chain, address, kind)
		if err == nil {
			entry := &cachedEntry{Source: a.ID(), Payload: *payload}
			if raw, mErr := json.Marshal(entry); mErr == nil {
				f.store.Set(key, raw, f.policy.ForKind(kind))
			}
			return entry, nil
		}
		lastErr = err

		var pe *providers.Error
		if errors.As(err, &pe) && pe.Kind == providers.ErrNotFound {
			// Authoritative absence: remember it briefly and stop the chain
			f.store.Set(cache.NegativeKey(chain, address, kind), []byte("1"), f.policy.ForNegative())
			return nil, err
		}
		log.Debug().
			Err(err).
			Str("provider", a.ID()).
			Str("chain", string(chain)).
			Str("kind", string(kind)).
			Msg("provider failed, trying next")
	}
	return nil, lastErr
}

// callProvider runs one rate-limited provider attempt bounded by both the
// caller's context and the per-try deadline
func (f *Fetcher) callProvider(ctx context.Context, a providers.Adapter, chain domain.Chain, address string, kind domain.DataKind) (*providers.Payload, error) {
	ctx, cancel := context.WithTimeout(ctx, tryTimeout())
	defer cancel()

	release, err := f.limits.Get(a.ID()).Acquire(ctx)
	if err != nil {
		metrics.ProviderErrors.WithLabelValues(a.ID(), string(providers.ErrRateLimited)).Inc()
		return nil, providers.NewError(a.ID(), providers.ErrRateLimited, "local reservoir exhausted", err)
	}
	defer release()

	start := time.Now()
	payload, err := a.Fetch(ctx, chain, address, kind)
	metrics.ProviderCalls.WithLabelValues(a.ID(), string(kind)).Inc()
	metrics.ProviderLatency.WithLabelValues(a.ID()).Observe(time.Since(start).Seconds())
	if err != nil {
		errKind := providers.KindOf(err)
		if errKind == "" {
			errKind = providers.ErrTransient
		}
		metrics.ProviderErrors.WithLabelValues(a.ID(), string(errKind)).Inc()
		return nil, err
	}
	return payload, nil
}

// assemble maps resolved payloads onto the normalized fact groups. Unresolved
// kinds leave their group zero-valued, which reads as MISSING.
func assemble(chain domain.Chain, address string, byKind map[domain.DataKind]kindResult) *domain.TokenFacts {
	facts := &domain.TokenFacts{Chain: chain, Address: address}

	tag := func(r kindResult) domain.Fact {
		return domain.Fact{Source: r.source, Conf: domain.ConfidenceHigh, FetchedAt: r.payload.FetchedAt}
	}

	if r := byKind[domain.KindIdentity]; r.payload != nil && r.payload.Identity != nil {
		d := r.payload.Identity
		facts.Identity = domain.IdentityFacts{
			Fact: tag(r), Name: d.Name, Symbol: d.Symbol,
			Decimals: d.Decimals, TotalSupply: d.TotalSupply,
		}
	}
	if r := byKind[domain.KindAuthorities]; r.payload != nil && r.payload.Authorities != nil {
		d := r.payload.Authorities
		facts.Authorities = domain.AuthorityFacts{
			Fact: tag(r), MintRevoked: d.MintRevoked, FreezeRevoked: d.FreezeRevoked,
			OwnerRenounced: d.OwnerRenounced, TransferDisabled: d.TransferDisabled,
		}
	}
	if r := byKind[domain.KindHolders]; r.payload != nil && r.payload.Holders != nil {
		d := r.payload.Holders
		facts.Holders = domain.HolderFacts{
			Fact: tag(r), Top10Pct: d.Top10Pct, HolderCount: d.HolderCount,
		}
	}
	if r := byKind[domain.KindMarket]; r.payload != nil && r.payload.Market != nil {
		d := r.payload.Market
		facts.Liquidity = domain.LiquidityFacts{
			Fact: tag(r), USD: d.LiquidityUSD, Volume24h: d.Volume24hUSD,
			PoolCount: d.PoolCount, PriceUSD: d.PriceUSD,
		}
	}
	if r := byKind[domain.KindLPLock]; r.payload != nil && r.payload.LPLock != nil {
		d := r.payload.LPLock
		facts.LPLock = domain.LPLockFacts{
			Fact: tag(r), LockedPct: d.LockedPct, BurnedPct: d.BurnedPct,
			UnknownMajorHolder: d.UnknownMajorHolder,
		}
	}
	if r := byKind[domain.KindSimulation]; r.payload != nil && r.payload.Simulation != nil {
		d := r.payload.Simulation
		facts.Simulation = domain.SimulationFacts{
			Fact: tag(r), Honeypot: d.Honeypot, BuyTaxPct: d.BuyTaxPct,
			SellTaxPct: d.SellTaxPct, TransferFee: d.TransferFee,
		}
	}
	if r := byKind[domain.KindProvenance]; r.payload != nil && r.payload.Provenance != nil {
		d := r.payload.Provenance
		facts.Provenance = domain.ProvenanceFacts{
			Fact: tag(r), DeployedAt: d.DeployedAt, Creator: d.Creator,
		}
	}
	if r := byKind[domain.KindSocial]; r.payload != nil && r.payload.Social != nil {
		facts.Social = domain.SocialFacts{Fact: tag(r), Present: r.payload.Social.Present}
	}
	if r := byKind[domain.KindVerification]; r.payload != nil && r.payload.Verification != nil {
		facts.Verification = domain.VerificationFacts{Fact: tag(r), Verified: r.payload.Verification.Verified}
	}
	return facts
}

// derive fills fact groups no provider covers from ones that arrived.
func derive(chain domain.Chain, facts *domain.TokenFacts, byKind map[domain.DataKind]kindResult) {
	// No sell simulator exists for Solana; a token with live transfers and a
	// known authority state is assumed sellable, at reduced confidence
	if chain == domain.ChainSolana && facts.Simulation.Missing() && !facts.Authorities.Missing() {
		facts.Simulation = domain.SimulationFacts{
			Fact: domain.Fact{
				Source:    "derived:" + facts.Authorities.Source,
				Conf:      domain.ConfidenceMedium,
				FetchedAt: facts.Authorities.FetchedAt,
			},
			Honeypot: facts.Authorities.TransferDisabled,
		}
	}

	// Pool creation time bounds token age from below when no deployment
	// record arrived
	if facts.Provenance.Missing() {
		if m := byKind[domain.KindMarket]; m.payload != nil && m.payload.Market != nil && !m.payload.Market.PairCreated.IsZero() {
			facts.Provenance = domain.ProvenanceFacts{
				Fact: domain.Fact{
					Source:    "derived:" + m.source,
					Conf:      domain.ConfidenceLow,
					FetchedAt: m.payload.FetchedAt,
				},
				DeployedAt: m.payload.Market.PairCreated,
			}
		}
	}
}
