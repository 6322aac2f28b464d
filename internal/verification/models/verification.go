// Package models holds the identity-verification aggregate and its state machine.
package models

import (
	"strings"
	"time"

	id "civic/pkg/domain"
	dErrors "civic/pkg/domain-errors"
	"civic/pkg/email"
)

// State is the lifecycle position of a verification.
type State string

const (
	StatePending  State = "pending"
	StateApproved State = "approved"
	StateRejected State = "rejected"
)

// ParseState accepts the three known states.
func ParseState(s string) (State, error) {
	switch st := State(strings.ToLower(strings.TrimSpace(s))); st {
	case StatePending, StateApproved, StateRejected:
		return st, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "state must be one of pending, approved, rejected")
	}
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateApproved || s == StateRejected
}

// Verification is one identity-proof submission.
//
// Invariants:
//   - at most one pending record per user
//   - pending -> approved | rejected, both terminal
//   - ReviewerID and DecidedAt are set exactly once, on the transition out of pending
//   - RejectionReason is non-empty iff State is rejected
type Verification struct {
	ID              id.VerificationID `json:"id"`
	UserID          id.UserID         `json:"userId"`
	SubmittedEmail  string            `json:"submittedEmail"`
	TermsAgreed     bool              `json:"termsAgreed"`
	State           State             `json:"state"`
	ReviewerID      *id.UserID        `json:"reviewerId,omitempty"`
	RejectionReason string            `json:"rejectionReason,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	DecidedAt       *time.Time        `json:"decidedAt,omitempty"`
}

// NewPending validates a submission and returns a fresh pending record.
func NewPending(vid id.VerificationID, userID id.UserID, submittedEmail string, termsAgreed bool, now time.Time) (*Verification, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "user_id is required")
	}
	if !termsAgreed {
		return nil, dErrors.New(dErrors.CodeValidation, "terms must be agreed to")
	}
	normalized, err := email.Normalize(submittedEmail)
	if err != nil {
		return nil, err
	}
	return &Verification{
		ID:             vid,
		UserID:         userID,
		SubmittedEmail: normalized,
		TermsAgreed:    true,
		State:          StatePending,
		CreatedAt:      now,
	}, nil
}

// CanDecide fails with CodeInvalidState when v has already been decided. The
// error detail carries a copy of the decided record.
// Use with ApplyApproval or ApplyRejection in Execute callbacks.
func (v *Verification) CanDecide() error {
	if v.State == StatePending {
		return nil
	}
	snapshot := *v
	return dErrors.New(dErrors.CodeInvalidState, "verification has already been "+string(v.State)).
		WithDetail(&snapshot)
}

// ApplyApproval moves v to approved. Call CanDecide first.
func (v *Verification) ApplyApproval(reviewer id.UserID, now time.Time) {
	v.State = StateApproved
	v.ReviewerID = &reviewer
	v.DecidedAt = &now
}

// ApplyRejection moves v to rejected with reason. Call CanDecide first.
func (v *Verification) ApplyRejection(reviewer id.UserID, reason string, now time.Time) {
	v.State = StateRejected
	v.ReviewerID = &reviewer
	v.RejectionReason = reason
	v.DecidedAt = &now
}

// NormalizeReason trims reason and rejects blanks.
func NormalizeReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	if len(reason) > 1000 {
		return "", dErrors.New(dErrors.CodeValidation, "reason must be at most 1000 characters")
	}
	return reason, nil
}

// ListFilter narrows the admin queue.
type ListFilter struct {
	State State
	Limit int
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Normalize fills defaults and caps the limit.
func (f ListFilter) Normalize() ListFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	return f
}
