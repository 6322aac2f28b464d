package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civic/internal/notification/models"
	id "civic/pkg/domain"
	"civic/pkg/platform/sentinel"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestPostgresCreate_EncodesMetadata(t *testing.T) {
	db, mock := newMock(t)
	n := models.Draft{
		UserID:   id.UserID(uuid.New()),
		Type:     models.TypeVerificationRejected,
		Title:    "Identity verification rejected",
		Message:  "Reason: expired document",
		Metadata: map[string]string{"reason": "expired document"},
	}.Build(time.Now().UTC())

	mock.ExpectExec(`INSERT INTO notifications .* \$6::jsonb`).
		WithArgs(n.ID, uuid.UUID(n.UserID), "identity_verification_rejected", n.Title, n.Message,
			`{"reason":"expired document"}`, false, n.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewPostgres(db).Create(context.Background(), n))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListByUser_DecodesMetadata(t *testing.T) {
	db, mock := newMock(t)
	user := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .* FROM notifications WHERE user_id = \$1 ORDER BY id DESC LIMIT \$2`).
		WithArgs(user, 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "type", "title", "message", "metadata", "is_read", "created_at"}).
			AddRow(models.NewID(now), user.String(), "identity_verification_rejected", "t", "m", []byte(`{"reason":"blurry"}`), false, now))

	list, err := NewPostgres(db).ListByUser(context.Background(), id.UserID(user), 20)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "blurry", list[0].Metadata["reason"])
	assert.Equal(t, models.TypeVerificationRejected, list[0].Type)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMarkRead_NotOwned(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`UPDATE notifications SET is_read = TRUE`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewPostgres(db).MarkRead(context.Background(), id.UserID(uuid.New()), models.NewID(time.Now()))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
