package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/tokensleuth/internal/domain"
	"github.com/sawpanic/tokensleuth/internal/store"
)

// Jobs is the Postgres scan-job repository
type Jobs struct {
	db *sqlx.DB
}

// NewJobs creates the jobs repo over an open pool
func NewJobs(db *sqlx.DB) *Jobs { return &Jobs{db: db} }

func (j *Jobs) Create(ctx context.Context, job *domain.ScanJob) error {
	const q = `
		INSERT INTO scan_jobs
			(request_id, chain, token_address, user_id, tier, priority, state, attempts, enqueued_at)
		VALUES
			(:request_id, :chain, :token_address, :user_id, :tier, :priority, :state, :attempts, :enqueued_at)`
	if _, err := j.db.NamedExecContext(ctx, q, job); err != nil {
		return fmt.Errorf("insert scan job %s: %w", job.RequestID, err)
	}
	return nil
}

func (j *Jobs) Get(ctx context.Context, requestID string) (*domain.ScanJob, error) {
	const q = `SELECT * FROM scan_jobs WHERE request_id = $1`
	var job domain.ScanJob
	if err := j.db.GetContext(ctx, &job, q, requestID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get scan job %s: %w", requestID, err)
	}
	return &job, nil
}

func (j *Jobs) FindOpen(ctx context.Context, chain domain.Chain, address string) (*domain.ScanJob, error) {
	const q = `
		SELECT * FROM scan_jobs
		WHERE chain = $1 AND token_address = $2 AND state IN ('QUEUED', 'RUNNING')
		ORDER BY enqueued_at DESC
		LIMIT 1`
	var job domain.ScanJob
	if err := j.db.GetContext(ctx, &job, q, chain, address); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("find open job %s/%s: %w", chain, address, err)
	}
	return &job, nil
}

func (j *Jobs) Start(ctx context.Context, requestID string) (bool, error) {
	const q = `
		UPDATE scan_jobs
		SET state = 'RUNNING', started_at = NOW(), attempts = attempts + 1
		WHERE request_id = $1 AND state = 'QUEUED'`
	return j.cas(ctx, q, requestID)
}

func (j *Jobs) Requeue(ctx context.Context, requestID, lastError string) (bool, error) {
	const q = `
		UPDATE scan_jobs
		SET state = 'QUEUED', last_error = $2
		WHERE request_id = $1 AND state = 'RUNNING'`
	return j.cas(ctx, q, requestID, lastError)
}

func (j *Jobs) Complete(ctx context.Context, requestID, resultRef string) (bool, error) {
	const q = `
		UPDATE scan_jobs
		SET state = 'COMPLETED', completed_at = NOW(), result_ref = $2
		WHERE request_id = $1 AND state = 'RUNNING'`
	return j.cas(ctx, q, requestID, resultRef)
}

func (j *Jobs) Fail(ctx context.Context, requestID, lastError string) (bool, error) {
	const q = `
		UPDATE scan_jobs
		SET state = 'FAILED', completed_at = NOW(), last_error = $2
		WHERE request_id = $1 AND state = 'RUNNING'`
	return j.cas(ctx, q, requestID, lastError)
}

func (j *Jobs) PurgeTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `
		DELETE FROM scan_jobs
		WHERE state IN ('COMPLETED', 'FAILED') AND enqueued_at < $1`
	res, err := j.db.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge jobs: %w", err)
	}
	return res.RowsAffected()
}

// cas runs a guarded UPDATE; zero rows means another worker already moved the
// job out of the expected state
func (j *Jobs) cas(ctx context.Context, query string, args ...interface{}) (bool, error) {
	res, err := j.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("job transition: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("job transition rows: %w", err)
	}
	return n == 1, nil
}
