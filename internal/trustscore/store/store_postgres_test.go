package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "civic/pkg/domain"
)

func TestPostgresReader(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	pid := id.PoliticianID(uuid.New())
	store := NewPostgres(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT count\(\*\), count\(\*\) FILTER \(WHERE decision IN \('abstain', 'paired'\)\) FROM roll_call_votes`).
		WithArgs(uuid.UUID(pid)).
		WillReturnRows(sqlmock.NewRows([]string{"total", "abstain"}).AddRow(12, 3))
	mock.ExpectQuery(`FROM campaign_finance WHERE politician_id = \$1 ORDER BY reported_at DESC LIMIT 1`).
		WithArgs(uuid.UUID(pid)).
		WillReturnRows(sqlmock.NewRows([]string{"total_amount"}).AddRow(125000.5))
	mock.ExpectQuery(`FROM truth_tracking`).
		WithArgs(uuid.UUID(pid)).
		WillReturnRows(sqlmock.NewRows([]string{"score"}))

	votes, err := store.VoteSummary(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, 12, votes.Total)
	assert.Equal(t, 3, votes.AbstainOrPaired)

	finance, err := store.LatestFinance(ctx, pid)
	require.NoError(t, err)
	require.NotNil(t, finance)
	assert.InDelta(t, 125000.5, *finance, 1e-9)

	truth, err := store.LatestTruth(ctx, pid)
	require.NoError(t, err)
	assert.Nil(t, truth, "no rows means no evidence")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReader_Error(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM truth_tracking`).WillReturnError(errors.New("relation does not exist"))

	_, err = NewPostgres(db).LatestTruth(context.Background(), id.PoliticianID(uuid.New()))
	assert.ErrorContains(t, err, "latest truth score")
}

func TestInMemoryKeepsLatest(t *testing.T) {
	s := NewInMemory()
	pid := id.PoliticianID(uuid.New())
	ctx := context.Background()

	s.RecordVote(pid, DecisionYes)
	s.RecordVote(pid, DecisionPaired)
	vs, err := s.VoteSummary(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, 2, vs.Total)
	assert.Equal(t, 1, vs.AbstainOrPaired)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.RecordFinance(pid, 100, base)
	s.RecordFinance(pid, 50, base.Add(-1))
	f, err := s.LatestFinance(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, 100.0, *f)

	assert.Error(t, s.RecordTruth(pid, 7, base))
}
