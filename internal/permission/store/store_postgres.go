package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"civic/internal/permission/models"
	id "civic/pkg/domain"
	"civic/pkg/platform/tx"
)

// PostgresStore keeps grants in the permissions and user_permissions tables.
// Every method joins the transaction carried by ctx, if any.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const upsertCatalogSQL = `
	INSERT INTO permissions (id, name, description, is_active)
	SELECT u.id, u.name, u.description, TRUE
	FROM unnest($1::uuid[], $2::text[], $3::text[]) AS u(id, name, description)
	ON CONFLICT (name) DO NOTHING`

const upsertGrantsSQL = `
	INSERT INTO user_permissions (user_id, permission_id, permission_name, is_granted, granted_at, revoked_at)
	SELECT $1, p.id, p.name, TRUE, $3, NULL
	FROM permissions p
	WHERE p.name = ANY($2::text[])
	ON CONFLICT (user_id, permission_name) DO UPDATE
	SET is_granted = TRUE,
	    granted_at = EXCLUDED.granted_at,
	    revoked_at = NULL
	WHERE NOT user_permissions.is_granted
	RETURNING permission_name`

// Grant creates missing catalog rows and upserts active grants for names in
// two statements regardless of bundle size. Active grants are left untouched
// and are not returned. names must not repeat.
func (s *PostgresStore) Grant(ctx context.Context, userID id.UserID, names []models.Name, now time.Time) ([]models.Name, error) {
	if len(names) == 0 {
		return nil, nil
	}
	ids := make([]string, len(names))
	labels := make([]string, len(names))
	descs := make([]string, len(names))
	for i, n := range names {
		ids[i] = uuid.NewString()
		labels[i] = string(n)
		descs[i] = n.Description()
	}

	q := tx.Pick(ctx, s.db)
	if _, err := q.ExecContext(ctx, upsertCatalogSQL, pq.Array(ids), pq.Array(labels), pq.Array(descs)); err != nil {
		return nil, fmt.Errorf("upsert permissions: %w", err)
	}
	rows, err := q.QueryContext(ctx, upsertGrantsSQL, uuid.UUID(userID), pq.Array(labels), now)
	if err != nil {
		return nil, fmt.Errorf("upsert user permissions: %w", err)
	}
	defer rows.Close()

	var changed []models.Name
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan granted permission: %w", err)
		}
		changed = append(changed, models.Name(name))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("upsert user permissions: %w", err)
	}
	return changed, nil
}

func (s *PostgresStore) Revoke(ctx context.Context, userID id.UserID, name models.Name, now time.Time) (bool, error) {
	res, err := tx.Pick(ctx, s.db).ExecContext(ctx, `
		UPDATE user_permissions
		SET is_granted = FALSE, revoked_at = $3
		WHERE user_id = $1 AND permission_name = $2 AND is_granted`,
		uuid.UUID(userID), string(name), now)
	if err != nil {
		return false, fmt.Errorf("revoke permission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke permission: %w", err)
	}
	return n > 0, nil
}

func (s *PostgresStore) IsGranted(ctx context.Context, userID id.UserID, name models.Name) (bool, error) {
	var granted bool
	err := tx.Pick(ctx, s.db).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM user_permissions up
			JOIN permissions p ON p.id = up.permission_id
			WHERE up.user_id = $1 AND up.permission_name = $2 AND up.is_granted AND p.is_active
		)`, uuid.UUID(userID), string(name)).Scan(&granted)
	if err != nil {
		return false, fmt.Errorf("check permission: %w", err)
	}
	return granted, nil
}

func (s *PostgresStore) GrantedNames(ctx context.Context, userID id.UserID) (models.Set, error) {
	rows, err := tx.Pick(ctx, s.db).QueryContext(ctx, `
		SELECT up.permission_name
		FROM user_permissions up
		JOIN permissions p ON p.id = up.permission_id
		WHERE up.user_id = $1 AND up.is_granted AND p.is_active`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list granted permissions: %w", err)
	}
	defer rows.Close()

	set := make(models.Set)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan permission name: %w", err)
		}
		set[models.Name(name)] = true
	}
	return set, rows.Err()
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]models.UserPermission, error) {
	rows, err := tx.Pick(ctx, s.db).QueryContext(ctx, `
		SELECT user_id, permission_id, permission_name, is_granted, granted_at, revoked_at
		FROM user_permissions
		WHERE user_id = $1
		ORDER BY permission_name`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list user permissions: %w", err)
	}
	defer rows.Close()

	var out []models.UserPermission
	for rows.Next() {
		var (
			up        models.UserPermission
			uid, pid  uuid.UUID
			name      string
			revokedAt sql.NullTime
		)
		if err := rows.Scan(&uid, &pid, &name, &up.IsGranted, &up.GrantedAt, &revokedAt); err != nil {
			return nil, fmt.Errorf("scan user permission: %w", err)
		}
		up.UserID = id.UserID(uid)
		up.PermissionID = id.PermissionID(pid)
		up.Name = models.Name(name)
		if revokedAt.Valid {
			t := revokedAt.Time
			up.RevokedAt = &t
		}
		out = append(out, up)
	}
	return out, rows.Err()
}

// SetActive toggles a catalog entry, creating it when missing.
func (s *PostgresStore) SetActive(ctx context.Context, name models.Name, active bool) error {
	_, err := tx.Pick(ctx, s.db).ExecContext(ctx, `
		INSERT INTO permissions (id, name, description, is_active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET is_active = EXCLUDED.is_active`,
		uuid.New(), string(name), name.Description(), active)
	if err != nil {
		return fmt.Errorf("set permission active: %w", err)
	}
	return nil
}
