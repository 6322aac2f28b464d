// Package domain holds typed identifiers shared across modules.
//
// Each identifier wraps a UUID so the compiler rejects passing a politician id
// where a user id is expected. Construct them with the Parse* functions at trust
// boundaries; direct conversion from uuid.UUID is reserved for code that already
// holds a validated value (stores, tests).
package domain

import (
	"github.com/google/uuid"

	dErrors "civic/pkg/domain-errors"
)

// UserID identifies an account owned by the authentication subsystem.
type UserID uuid.UUID

// VerificationID identifies one identity-verification submission.
type VerificationID uuid.UUID

// PoliticianID identifies a public figure whose trust score is computed.
type PoliticianID uuid.UUID

// PermissionID identifies a row in the permission catalog.
type PermissionID uuid.UUID

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id VerificationID) String() string { return uuid.UUID(id).String() }
func (id PoliticianID) String() string   { return uuid.UUID(id).String() }
func (id PermissionID) String() string   { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id VerificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id PoliticianID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id PermissionID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets typed ids render as plain UUID strings in JSON.
func (id UserID) MarshalText() ([]byte, error)         { return uuid.UUID(id).MarshalText() }
func (id VerificationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id PoliticianID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }

// UnmarshalText accepts the canonical UUID form.
func (id *UserID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id *VerificationID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id *PoliticianID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// NewVerificationID returns a fresh random verification id.
func NewVerificationID() VerificationID { return VerificationID(uuid.New()) }

// NewPermissionID returns a fresh random permission id.
func NewPermissionID() PermissionID { return PermissionID(uuid.New()) }

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user_id")
	return UserID(u), err
}

func ParseVerificationID(s string) (VerificationID, error) {
	u, err := parseUUID(s, "verification_id")
	return VerificationID(u), err
}

func ParsePoliticianID(s string) (PoliticianID, error) {
	u, err := parseUUID(s, "politician_id")
	return PoliticianID(u), err
}

func ParsePermissionID(s string) (PermissionID, error) {
	u, err := parseUUID(s, "permission_id")
	return PermissionID(u), err
}

// parseUUID rejects empty, malformed and nil UUIDs with CodeValidation.
func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, field+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, field+" must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, field+" must not be nil")
	}
	return u, nil
}
