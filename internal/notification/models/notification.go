// Package models holds the in-app notification record.
package models

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	id "civic/pkg/domain"
	dErrors "civic/pkg/domain-errors"
)

// Type classifies a notification for clients and consumers.
type Type string

const (
	TypeVerificationApproved Type = "identity_verification_approved"
	TypeVerificationRejected Type = "identity_verification_rejected"
	TypeEmailVerified        Type = "email_verified"
)

// Notification is one inbox entry. IDs are ULIDs so lexical order matches
// creation order.
type Notification struct {
	ID        string            `json:"id"`
	UserID    id.UserID         `json:"userId"`
	Type      Type              `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata"`
	IsRead    bool              `json:"isRead"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Draft is what producers hand to the dispatcher.
type Draft struct {
	UserID   id.UserID
	Type     Type
	Title    string
	Message  string
	Metadata map[string]string
}

func (d Draft) Validate() error {
	if d.UserID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "user_id is required")
	}
	if d.Type == "" {
		return dErrors.New(dErrors.CodeValidation, "type is required")
	}
	if strings.TrimSpace(d.Title) == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	return nil
}

// NewID returns a ULID for t using crypto entropy.
func NewID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}

// ParseID accepts ULID strings only.
func ParseID(s string) (string, error) {
	u, err := ulid.ParseStrict(s)
	if err != nil {
		return "", dErrors.New(dErrors.CodeValidation, "notification id must be a ULID")
	}
	return u.String(), nil
}

// Build turns a validated draft into a notification created at now.
func (d Draft) Build(now time.Time) *Notification {
	meta := make(map[string]string, len(d.Metadata))
	for k, v := range d.Metadata {
		meta[k] = v
	}
	return &Notification{
		ID:        NewID(now),
		UserID:    d.UserID,
		Type:      d.Type,
		Title:     d.Title,
		Message:   d.Message,
		Metadata:  meta,
		CreatedAt: now,
	}
}
