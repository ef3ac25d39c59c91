package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservoir_AllowsWithinBurst(t *testing.T) {
	r := NewReservoir(10, 5, 5)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		release, err := r.Acquire(ctx)
		require.NoError(t, err, "burst token %d", i)
		release()
	}
}

func TestReservoir_FailsFastOnMissedDeadline(t *testing.T) {
	// One token per 10s: the second acquire cannot meet a 50ms deadline
	r := NewReservoir(0.1, 1, 1)

	release, err := r.Acquire(context.Background())
	require.NoError(t, err)
	release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = r.Acquire(ctx)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Less(t, time.Since(start), 40*time.Millisecond,
		"deadline miss must be reported immediately, not after blocking")
}

func TestReservoir_InFlightCap(t *testing.T) {
	r := NewReservoir(1000, 1000, 2)
	ctx := context.Background()

	rel1, err := r.Acquire(ctx)
	require.NoError(t, err)
	rel2, err := r.Acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, r.InFlight())

	// Third acquire blocks on the in-flight cap until a slot frees
	blocked, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	_, err = r.Acquire(blocked)
	assert.ErrorIs(t, err, ErrRateLimited)

	rel1()
	rel3, err := r.Acquire(ctx)
	require.NoError(t, err)
	rel3()
	rel2()
}

func TestReservoir_ReleaseIdempotent(t *testing.T) {
	r := NewReservoir(100, 10, 1)
	release, err := r.Acquire(context.Background())
	require.NoError(t, err)
	release()
	release() // second call must not free a slot it does not hold

	assert.Equal(t, 0, r.InFlight())
}

func TestManager_DefaultAndConfigured(t *testing.T) {
	m := NewManager()
	m.Configure("dexscreener", 1, 1, 1)

	configured := m.Get("dexscreener")
	fallback := m.Get("unknown_provider")
	require.NotNil(t, configured)
	require.NotNil(t, fallback)
	assert.NotSame(t, configured, fallback)

	// Same provider always maps to the same shared reservoir
	assert.Same(t, configured, m.Get("dexscreener"))

	snap := m.Snapshot()
	assert.Contains(t, snap, "dexscreener")
	assert.Contains(t, snap, "unknown_provider")
}
