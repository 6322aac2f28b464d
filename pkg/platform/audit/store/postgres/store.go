// Package postgres persists audit events in the audit_events table.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	audit "civic/pkg/platform/audit"
	"civic/pkg/platform/tx"
)

// Store implements audit.Store. Writes join the caller's transaction when present.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	_, err := tx.Pick(ctx, s.db).ExecContext(ctx, `
		INSERT INTO audit_events (action, actor_id, subject_id, target_id, detail, request_id, user_agent, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(event.Action), event.ActorID, event.SubjectID, event.TargetID,
		event.Detail, event.RequestID, event.UserAgent, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Store) ListBySubject(ctx context.Context, subjectID string, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := tx.Pick(ctx, s.db).QueryContext(ctx, `
		SELECT action, actor_id, subject_id, target_id, detail, request_id, user_agent, occurred_at
		FROM audit_events
		WHERE subject_id = $1
		ORDER BY occurred_at DESC, id DESC
		LIMIT $2`, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var e audit.Event
		var action string
		if err := rows.Scan(&action, &e.ActorID, &e.SubjectID, &e.TargetID, &e.Detail, &e.RequestID, &e.UserAgent, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Action = audit.Action(action)
		events = append(events, e)
	}
	return events, rows.Err()
}
