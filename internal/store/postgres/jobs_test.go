package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/tokensleuth/internal/domain"
	"github.com/sawpanic/tokensleuth/internal/store"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func jobColumns() []string {
	return []string{
		"request_id", "chain", "token_address", "user_id", "tier", "priority",
		"state", "attempts", "enqueued_at", "started_at", "completed_at",
		"result_ref", "last_error",
	}
}

func TestJobs_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewJobs(db)

	mock.ExpectExec("INSERT INTO scan_jobs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &domain.ScanJob{
		RequestID:    "req-1",
		Chain:        domain.ChainSolana,
		TokenAddress: "So11111111111111111111111111111111111111112",
		Tier:         domain.TierPremium,
		Priority:     1,
		State:        domain.JobQueued,
		EnqueuedAt:   time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobs_Get(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewJobs(db)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT \\* FROM scan_jobs WHERE request_id").
		WithArgs("req-1").
		WillReturnRows(sqlmock.NewRows(jobColumns()).AddRow(
			"req-1", "SOLANA", "So11111111111111111111111111111111111111112",
			"", "FREE", 2, "QUEUED", 0, now, nil, nil, "", "",
		))

	job, err := repo.Get(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ChainSolana, job.Chain)
	assert.Equal(t, domain.JobQueued, job.State)
	assert.Nil(t, job.StartedAt)
}

func TestJobs_GetNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewJobs(db)

	mock.ExpectQuery("SELECT \\* FROM scan_jobs WHERE request_id").
		WithArgs("absent").
		WillReturnRows(sqlmock.NewRows(jobColumns()))

	_, err := repo.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestJobs_FindOpen(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewJobs(db)
	now := time.Now().UTC()

	mock.ExpectQuery("state IN \\('QUEUED', 'RUNNING'\\)").
		WithArgs(domain.ChainEthereum, "0x1f9840a85d5af5bf1d1762f925bdaddc4201f984").
		WillReturnRows(sqlmock.NewRows(jobColumns()).AddRow(
			"req-9", "ETHEREUM", "0x1f9840a85d5af5bf1d1762f925bdaddc4201f984",
			"u-1", "ENTERPRISE", 0, "RUNNING", 1, now, &now, nil, "", "",
		))

	job, err := repo.FindOpen(context.Background(), domain.ChainEthereum, "0x1f9840a85d5af5bf1d1762f925bdaddc4201f984")
	require.NoError(t, err)
	assert.Equal(t, "req-9", job.RequestID)
	assert.True(t, job.State.Open())
}

func TestJobs_StartCAS(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewJobs(db)

	mock.ExpectExec("SET state = 'RUNNING'").
		WithArgs("req-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := repo.Start(context.Background(), "req-1")
	require.NoError(t, err)
	assert.True(t, ok)

	// A second worker loses the race: zero rows updated
	mock.ExpectExec("SET state = 'RUNNING'").
		WithArgs("req-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = repo.Start(context.Background(), "req-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJobs_CompleteAndFail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewJobs(db)

	mock.ExpectExec("SET state = 'COMPLETED'").
		WithArgs("req-1", "req-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := repo.Complete(context.Background(), "req-1", "req-1")
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec("SET state = 'FAILED'").
		WithArgs("req-2", "DEADLINE_EXCEEDED").
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err = repo.Fail(context.Background(), "req-2", "DEADLINE_EXCEEDED")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobs_PurgeTerminalBefore(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewJobs(db)

	cutoff := time.Now().UTC().Add(-30 * 24 * time.Hour)
	mock.ExpectExec("DELETE FROM scan_jobs").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 17))

	removed, err := repo.PurgeTerminalBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(17), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
