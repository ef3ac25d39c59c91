package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/tokensleuth/internal/domain"
)

func newJob(id string) *domain.ScanJob {
	return &domain.ScanJob{
		RequestID:    id,
		Chain:        domain.ChainSolana,
		TokenAddress: "So11111111111111111111111111111111111111112",
		Tier:         domain.TierFree,
		Priority:     domain.TierFree.Priority(),
		State:        domain.JobQueued,
		EnqueuedAt:   time.Now().UTC(),
	}
}

func TestMemoryJobs_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryJobs()
	require.NoError(t, repo.Create(ctx, newJob("req-1")))

	got, err := repo.Get(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobQueued, got.State)
	assert.Equal(t, 0, got.Attempts)

	ok, err := repo.Start(ctx, "req-1")
	require.NoError(t, err)
	assert.True(t, ok)

	got, _ = repo.Get(ctx, "req-1")
	assert.Equal(t, domain.JobRunning, got.State)
	assert.Equal(t, 1, got.Attempts)
	assert.NotNil(t, got.StartedAt)

	ok, err = repo.Complete(ctx, "req-1", "req-1")
	require.NoError(t, err)
	assert.True(t, ok)

	got, _ = repo.Get(ctx, "req-1")
	assert.Equal(t, domain.JobCompleted, got.State)
	assert.NotNil(t, got.CompletedAt)
	assert.Equal(t, "req-1", got.ResultRef)
}

func TestMemoryJobs_StartIsCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryJobs()
	require.NoError(t, repo.Create(ctx, newJob("req-1")))

	first, err := repo.Start(ctx, "req-1")
	require.NoError(t, err)
	second, err := repo.Start(ctx, "req-1")
	require.NoError(t, err)
	assert.True(t, first)
	assert.False(t, second, "only one worker may win the transition")
}

func TestMemoryJobs_FindOpen(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryJobs()
	job := newJob("req-1")
	require.NoError(t, repo.Create(ctx, job))

	open, err := repo.FindOpen(ctx, job.Chain, job.TokenAddress)
	require.NoError(t, err)
	assert.Equal(t, "req-1", open.RequestID)

	// Still open while RUNNING
	_, err = repo.Start(ctx, "req-1")
	require.NoError(t, err)
	_, err = repo.FindOpen(ctx, job.Chain, job.TokenAddress)
	assert.NoError(t, err)

	// Closed once COMPLETED
	_, err = repo.Complete(ctx, "req-1", "req-1")
	require.NoError(t, err)
	_, err = repo.FindOpen(ctx, job.Chain, job.TokenAddress)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryJobs_RequeueAndFail(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryJobs()
	require.NoError(t, repo.Create(ctx, newJob("req-1")))

	_, err := repo.Start(ctx, "req-1")
	require.NoError(t, err)
	ok, err := repo.Requeue(ctx, "req-1", "upstream timeout")
	require.NoError(t, err)
	assert.True(t, ok)

	got, _ := repo.Get(ctx, "req-1")
	assert.Equal(t, domain.JobQueued, got.State)
	assert.Equal(t, "upstream timeout", got.LastError)

	_, err = repo.Start(ctx, "req-1")
	require.NoError(t, err)
	ok, err = repo.Fail(ctx, "req-1", "gave up")
	require.NoError(t, err)
	assert.True(t, ok)

	got, _ = repo.Get(ctx, "req-1")
	assert.Equal(t, domain.JobFailed, got.State)
	assert.Equal(t, 2, got.Attempts)
}

func TestMemoryJobs_PurgeTerminalBefore(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryJobs()

	old := newJob("req-old")
	old.State = domain.JobCompleted
	old.EnqueuedAt = time.Now().UTC().Add(-31 * 24 * time.Hour)
	require.NoError(t, repo.Create(ctx, old))

	stuck := newJob("req-stuck")
	stuck.EnqueuedAt = time.Now().UTC().Add(-31 * 24 * time.Hour)
	require.NoError(t, repo.Create(ctx, stuck))

	recent := newJob("req-recent")
	recent.State = domain.JobFailed
	require.NoError(t, repo.Create(ctx, recent))

	removed, err := repo.PurgeTerminalBefore(ctx, time.Now().UTC().Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = repo.Get(ctx, "req-old")
	assert.ErrorIs(t, err, ErrNotFound)
	// Open jobs survive regardless of age, recent terminal jobs by recency
	_, err = repo.Get(ctx, "req-stuck")
	assert.NoError(t, err)
	_, err = repo.Get(ctx, "req-recent")
	assert.NoError(t, err)
}

func TestMemoryScores_HistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryScores()
	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		score := 50 + i
		require.NoError(t, repo.Save(ctx, &domain.RiskScore{
			SchemaVersion: domain.SchemaVersion,
			RequestID:     string(rune('a' + i)),
			Chain:         domain.ChainSolana,
			TokenAddress:  "So11111111111111111111111111111111111111112",
			FinalScore:    &score,
			Category:      domain.CategoryCaution,
			EvaluatedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}

	history, err := repo.History(ctx, domain.ChainSolana, "So11111111111111111111111111111111111111112", 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "e", history[0].RequestID)
	assert.Equal(t, "d", history[1].RequestID)
	assert.Equal(t, "c", history[2].RequestID)
}

func TestMemoryScores_GetNotFound(t *testing.T) {
	repo := NewMemoryScores()
	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
