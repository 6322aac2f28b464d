// Package store reads trust-score evidence from the tables owned by the
// ingestion jobs. Nothing here writes to them.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"civic/internal/trustscore"
	id "civic/pkg/domain"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) VoteSummary(ctx context.Context, politicianID id.PoliticianID) (trustscore.VoteSummary, error) {
	var vs trustscore.VoteSummary
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*), count(*) FILTER (WHERE decision IN ('abstain', 'paired'))
		FROM roll_call_votes
		WHERE politician_id = $1`, uuid.UUID(politicianID)).Scan(&vs.Total, &vs.AbstainOrPaired)
	if err != nil {
		return trustscore.VoteSummary{}, fmt.Errorf("count votes: %w", err)
	}
	return vs, nil
}

// LatestFinance returns the most recent campaign-finance total, nil when none.
func (s *PostgresStore) LatestFinance(ctx context.Context, politicianID id.PoliticianID) (*float64, error) {
	return s.latest(ctx, `
		SELECT total_amount::float8
		FROM campaign_finance
		WHERE politician_id = $1
		ORDER BY reported_at DESC
		LIMIT 1`, politicianID, "latest finance")
}

// LatestTruth returns the most recent fact-check score, nil when none.
func (s *PostgresStore) LatestTruth(ctx context.Context, politicianID id.PoliticianID) (*float64, error) {
	return s.latest(ctx, `
		SELECT score::float8
		FROM truth_tracking
		WHERE politician_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1`, politicianID, "latest truth score")
}

func (s *PostgresStore) latest(ctx context.Context, query string, politicianID id.PoliticianID, op string) (*float64, error) {
	var v float64
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(politicianID)).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &v, nil
}
