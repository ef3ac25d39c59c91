// Package store defines the persistence contracts for scan jobs and risk
// scores, with a Postgres implementation and an in-memory one for tests and
// single-node deployments.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/sawpanic/tokensleuth/internal/domain"
)

// ErrNotFound is returned when no row matches the lookup
var ErrNotFound = errors.New("store: not found")

// Jobs persists the scan job lifecycle. State transitions are
// compare-and-swap: a transition from a state the job is no longer in
// returns false with no error, letting exactly one worker win.
type Jobs interface {
	// Create inserts a QUEUED job
	Create(ctx context.Context, job *domain.ScanJob) error
	// Get returns a job by request ID
	Get(ctx context.Context, requestID string) (*domain.ScanJob, error)
	// FindOpen returns the most recent QUEUED or RUNNING job for the token,
	// or ErrNotFound
	FindOpen(ctx context.Context, chain domain.Chain, address string) (*domain.ScanJob, error)
	// Start moves QUEUED to RUNNING, stamps started_at and bumps attempts
	Start(ctx context.Context, requestID string) (bool, error)
	// Requeue moves RUNNING back to QUEUED for a retry, recording the error
	Requeue(ctx context.Context, requestID, lastError string) (bool, error)
	// Complete moves RUNNING to COMPLETED and records the result reference
	Complete(ctx context.Context, requestID, resultRef string) (bool, error)
	// Fail moves RUNNING to FAILED terminally, recording the error
	Fail(ctx context.Context, requestID, lastError string) (bool, error)
	// PurgeTerminalBefore deletes COMPLETED and FAILED jobs enqueued before
	// cutoff and reports how many were removed. Scores are never purged.
	PurgeTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Scores persists evaluated risk scores
type Scores interface {
	// Save appends one evaluated score
	Save(ctx context.Context, score *domain.RiskScore) error
	// Get returns the score produced by one request, or ErrNotFound
	Get(ctx context.Context, requestID string) (*domain.RiskScore, error)
	// History returns up to limit scores for the token, newest first
	History(ctx context.Context, chain domain.Chain, address string, limit int) ([]*domain.RiskScore, error)
}
