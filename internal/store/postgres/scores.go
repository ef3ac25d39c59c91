package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/tokensleuth/internal/domain"
	"github.com/sawpanic/tokensleuth/internal/store"
)

// Scores is the Postgres risk-score repository. The full wire document is
// stored as JSONB next to the queryable columns, so the API can return
// exactly what was evaluated regardless of later schema additions.
type Scores struct {
	db *sqlx.DB
}

// NewScores creates the scores repo over an open pool
func NewScores(db *sqlx.DB) *Scores { return &Scores{db: db} }

func (s *Scores) Save(ctx context.Context, score *domain.RiskScore) error {
	payload, err := json.Marshal(score)
	if err != nil {
		return fmt.Errorf("marshal score %s: %w", score.RequestID, err)
	}
	const q = `
		INSERT INTO risk_scores
			(request_id, chain, token_address, final_score, category, evaluated_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	var finalScore sql.NullInt64
	if score.FinalScore != nil {
		finalScore = sql.NullInt64{Int64: int64(*score.FinalScore), Valid: true}
	}
	if _, err := s.db.ExecContext(ctx, q,
		score.RequestID, score.Chain, score.TokenAddress,
		finalScore, score.Category, score.EvaluatedAt, payload); err != nil {
		return fmt.Errorf("insert score %s: %w", score.RequestID, err)
	}
	return nil
}

func (s *Scores) Get(ctx context.Context, requestID string) (*domain.RiskScore, error) {
	const q = `SELECT payload FROM risk_scores WHERE request_id = $1`
	var payload []byte
	if err := s.db.GetContext(ctx, &payload, q, requestID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get score %s: %w", requestID, err)
	}
	return unmarshalScore(payload)
}

func (s *Scores) History(ctx context.Context, chain domain.Chain, address string, limit int) ([]*domain.RiskScore, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
		SELECT payload FROM risk_scores
		WHERE chain = $1 AND token_address = $2
		ORDER BY evaluated_at DESC
		LIMIT $3`
	var payloads [][]byte
	if err := s.db.SelectContext(ctx, &payloads, q, chain, address, limit); err != nil {
		return nil, fmt.Errorf("score history %s/%s: %w", chain, address, err)
	}
	out := make([]*domain.RiskScore, 0, len(payloads))
	for _, p := range payloads {
		score, err := unmarshalScore(p)
		if err != nil {
			return nil, err
		}
		out = append(out, score)
	}
	return out, nil
}

func unmarshalScore(payload []byte) (*domain.RiskScore, error) {
	var score domain.RiskScore
	if err := json.Unmarshal(payload, &score); err != nil {
		return nil, fmt.Errorf("unmarshal stored score: %w", err)
	}
	return &score, nil
}
