// Package postgres implements the store contracts on PostgreSQL via sqlx.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect opens and pings a Postgres pool
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// Schema holds the DDL for both tables. Applied idempotently at startup;
// real migrations can take over once the schema stops being two tables.
const Schema = `
CREATE TABLE IF NOT EXISTS scan_jobs (
    request_id    TEXT PRIMARY KEY,
    chain         TEXT NOT NULL,
    token_address TEXT NOT NULL,
    user_id       TEXT NOT NULL DEFAULT '',
    tier          TEXT NOT NULL,
    priority      INT  NOT NULL,
    state         TEXT NOT NULL,
    attempts      INT  NOT NULL DEFAULT 0,
    enqueued_at   TIMESTAMPTZ NOT NULL,
    started_at    TIMESTAMPTZ,
    completed_at  TIMESTAMPTZ,
    result_ref    TEXT NOT NULL DEFAULT '',
    last_error    TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_scan_jobs_open
    ON scan_jobs (chain, token_address, state);

CREATE TABLE IF NOT EXISTS risk_scores (
    request_id    TEXT PRIMARY KEY,
    chain         TEXT NOT NULL,
    token_address TEXT NOT NULL,
    final_score   INT,
    category      TEXT NOT NULL,
    evaluated_at  TIMESTAMPTZ NOT NULL,
    payload       JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_risk_scores_token
    ON risk_scores (chain, token_address, evaluated_at DESC);
`

// EnsureSchema applies the DDL
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
