package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"civic/internal/platform/postgres"
	"civic/internal/verification/models"
	id "civic/pkg/domain"
	"civic/pkg/platform/sentinel"
	"civic/pkg/platform/tx"
)

// PostgresStore keeps verifications in identity_verifications. The partial
// unique index on (user_id) WHERE state = 'pending' enforces one pending
// record per user.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const verificationColumns = `id, user_id, submitted_email, terms_agreed, state, reviewer_id, rejection_reason, created_at, decided_at`

func (s *PostgresStore) CreatePending(ctx context.Context, v *models.Verification) error {
	_, err := tx.Pick(ctx, s.db).ExecContext(ctx, `
		INSERT INTO identity_verifications (id, user_id, submitted_email, terms_agreed, state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(v.ID), uuid.UUID(v.UserID), v.SubmittedEmail, v.TermsAgreed, string(v.State), v.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert verification: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, vid id.VerificationID) (*models.Verification, error) {
	row := tx.Pick(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+verificationColumns+` FROM identity_verifications WHERE id = $1`, uuid.UUID(vid))
	return scanOne(row, "find verification")
}

func (s *PostgresStore) FindPendingByUser(ctx context.Context, userID id.UserID) (*models.Verification, error) {
	row := tx.Pick(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+verificationColumns+` FROM identity_verifications WHERE user_id = $1 AND state = 'pending'`,
		uuid.UUID(userID))
	return scanOne(row, "find pending verification")
}

func (s *PostgresStore) LatestDecided(ctx context.Context, userID id.UserID) (*models.Verification, error) {
	row := tx.Pick(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+verificationColumns+`
		FROM identity_verifications
		WHERE user_id = $1 AND state <> 'pending'
		ORDER BY decided_at DESC
		LIMIT 1`, uuid.UUID(userID))
	return scanOne(row, "find latest decision")
}

// Execute locks the row with SELECT ... FOR UPDATE, runs validate and mutate,
// and writes the decision columns back. It joins the transaction in ctx or
// opens its own.
func (s *PostgresStore) Execute(ctx context.Context, vid id.VerificationID, validate func(*models.Verification) error, mutate func(*models.Verification)) (*models.Verification, error) {
	var result *models.Verification
	err := postgres.NewTxRunner(s.db).RunInTx(ctx, func(ctx context.Context) error {
		q := tx.Pick(ctx, s.db)
		row := q.QueryRowContext(ctx,
			`SELECT `+verificationColumns+` FROM identity_verifications WHERE id = $1 FOR UPDATE`, uuid.UUID(vid))
		v, err := scanOne(row, "lock verification")
		if err != nil {
			return err
		}
		if err := validate(v); err != nil {
			return err
		}
		mutate(v)

		var reviewer uuid.NullUUID
		if v.ReviewerID != nil {
			reviewer = uuid.NullUUID{UUID: uuid.UUID(*v.ReviewerID), Valid: true}
		}
		var decidedAt sql.NullTime
		if v.DecidedAt != nil {
			decidedAt = sql.NullTime{Time: *v.DecidedAt, Valid: true}
		}
		_, err = q.ExecContext(ctx, `
			UPDATE identity_verifications
			SET state = $2, reviewer_id = $3, rejection_reason = $4, decided_at = $5
			WHERE id = $1`,
			uuid.UUID(v.ID), string(v.State), reviewer, nullString(v.RejectionReason), decidedAt)
		if err != nil {
			return fmt.Errorf("update verification: %w", err)
		}
		result = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// List returns records oldest first, optionally filtered by state.
func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter) ([]*models.Verification, error) {
	filter = filter.Normalize()
	rows, err := tx.Pick(ctx, s.db).QueryContext(ctx, `
		SELECT `+verificationColumns+`
		FROM identity_verifications
		WHERE ($1::text = '' OR state = $1::text)
		ORDER BY created_at, id
		LIMIT $2`, string(filter.State), filter.Limit)
	if err != nil {
		return nil, fmt.Errorf("list verifications: %w", err)
	}
	defer rows.Close()

	var out []*models.Verification
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan verification: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list verifications: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOne(row *sql.Row, op string) (*models.Verification, error) {
	v, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}

func scan(row scanner) (*models.Verification, error) {
	var (
		vid, userID uuid.UUID
		state       string
		reviewer    uuid.NullUUID
		reason      sql.NullString
		decidedAt   sql.NullTime
		v           models.Verification
	)
	err := row.Scan(&vid, &userID, &v.SubmittedEmail, &v.TermsAgreed, &state, &reviewer, &reason, &v.CreatedAt, &decidedAt)
	if err != nil {
		return nil, err
	}
	v.ID = id.VerificationID(vid)
	v.UserID = id.UserID(userID)
	v.State = models.State(state)
	if reviewer.Valid {
		r := id.UserID(reviewer.UUID)
		v.ReviewerID = &r
	}
	v.RejectionReason = reason.String
	if decidedAt.Valid {
		d := decidedAt.Time
		v.DecidedAt = &d
	}
	return &v, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
