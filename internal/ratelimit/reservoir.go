// Package ratelimit provides the per-provider reservoir: token-bucket
// admission plus an in-flight cap, shared by every worker. It is the only
// component allowed to report RATE_LIMITED without a network call.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a token cannot be acquired before the
// caller's deadline, letting the fetcher fail over immediately instead of
// burning scan budget in a queue.
var ErrRateLimited = errors.New("rate limited")

// Reservoir is a token bucket with a bounded in-flight slot pool for one
// provider
type Reservoir struct {
	limiter  *rate.Limiter
	inflight chan struct{}
}

// NewReservoir creates a reservoir with the given sustained rate, burst
// capacity and in-flight bound
func NewReservoir(rps float64, burst, maxInflight int) *Reservoir {
	if burst < 1 {
		burst = 1
	}
	if maxInflight < 1 {
		maxInflight = 1
	}
	return &Reservoir{
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		inflight: make(chan struct{}, maxInflight),
	}
}

// Acquire blocks until both a rate token and an in-flight slot are held, or
// fails fast with ErrRateLimited when the wait would overrun the context
// deadline. The returned release function must be called when the provider
// call completes.
func (r *Reservoir) Acquire(ctx context.Context) (release func(), err error) {
	res := r.limiter.Reserve()
	if !res.OK() {
		return nil, ErrRateLimited
	}
	delay := res.Delay()
	if deadline, ok := ctx.Deadline(); ok && time.Now().Add(delay).After(deadline) {
		res.Cancel()
		return nil, ErrRateLimited
	}

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			res.Cancel()
			return nil, ErrRateLimited
		}
	}

	select {
	case r.inflight <- struct{}{}:
	case <-ctx.Done():
		return nil, ErrRateLimited
	}

	var once sync.Once
	return func() { once.Do(func() { <-r.inflight }) }, nil
}

// Tokens reports the currently available token count, for health reporting
func (r *Reservoir) Tokens() float64 { return r.limiter.Tokens() }

// InFlight reports the occupied in-flight slots
func (r *Reservoir) InFlight() int { return len(r.inflight) }

// Manager holds one reservoir per provider
type Manager struct {
	mu         sync.RWMutex
	reservoirs map[string]*Reservoir
	defaultRPS float64
}

// NewManager creates an empty reservoir manager. Providers without explicit
// configuration get a conservative default on first use.
func NewManager() *Manager {
	return &Manager{
		reservoirs: make(map[string]*Reservoir),
		defaultRPS: 5,
	}
}

// Configure installs the reservoir parameters for a provider
func (m *Manager) Configure(provider string, rps float64, burst, maxInflight int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reservoirs[provider] = NewReservoir(rps, burst, maxInflight)
}

// Get returns the reservoir for a provider, creating a default one if needed
func (m *Manager) Get(provider string) *Reservoir {
	m.mu.RLock()
	r, ok := m.reservoirs[provider]
	m.mu.RUnlock()
	if ok {
		return r
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.reservoirs[provider]; ok {
		return r
	}
	r = NewReservoir(m.defaultRPS, int(m.defaultRPS)*2, 4)
	m.reservoirs[provider] = r
	return r
}

// Snapshot reports token and in-flight state per provider for health output
func (m *Manager) Snapshot() map[string]map[string]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]map[string]float64, len(m.reservoirs))
	for name, r := range m.reservoirs {
		out[name] = map[string]float64{
			"tokens":    r.Tokens(),
			"in_flight": float64(r.InFlight()),
		}
	}
	return out
}
