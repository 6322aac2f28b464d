// Package audit records who changed verification and permission state.
//
// Events are written through a Store. When the caller's context carries a
// transaction the PostgreSQL store joins it, so an audit row commits or rolls
// back together with the change it describes.
package audit

import (
	"context"
	"time"
)

// EventCategory classifies events for retention and routing.
type EventCategory string

const (
	// CategoryCompliance: state changes with legal significance (decisions, grants).
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity: access denials and abuse signals.
	CategorySecurity EventCategory = "security"
	// CategoryOperations: routine activity.
	CategoryOperations EventCategory = "operations"
)

// Action names what happened.
type Action string

const (
	ActionVerificationSubmitted Action = "verification_submitted"
	ActionVerificationApproved  Action = "verification_approved"
	ActionVerificationRejected  Action = "verification_rejected"
	ActionPermissionGranted     Action = "permission_granted"
	ActionPermissionRevoked     Action = "permission_revoked"
	ActionEmailCodeIssued       Action = "email_code_issued"
	ActionEmailVerified         Action = "email_verified"
	ActionPermissionDenied      Action = "permission_denied"
)

var actionCategories = map[Action]EventCategory{
	ActionVerificationApproved: CategoryCompliance,
	ActionVerificationRejected: CategoryCompliance,
	ActionPermissionGranted:    CategoryCompliance,
	ActionPermissionRevoked:    CategoryCompliance,
	ActionEmailVerified:        CategoryCompliance,
	ActionPermissionDenied:     CategorySecurity,
}

// Category returns the category for a; unknown actions are operational.
func (a Action) Category() EventCategory {
	if c, ok := actionCategories[a]; ok {
		return c
	}
	return CategoryOperations
}

// Event is one audit record. SubjectID is the user whose state changed,
// ActorID who caused it (equal for self-service), TargetID the affected
// entity (verification id, permission name).
type Event struct {
	Action    Action
	ActorID   string
	SubjectID string
	TargetID  string
	Detail    string
	RequestID string
	UserAgent string
	Timestamp time.Time
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subjectID string, limit int) ([]Event, error)
}
