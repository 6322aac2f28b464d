package models

import (
	"time"

	permission "civic/internal/permission/models"
)

// Level is how strongly a user's identity has been established.
type Level string

const (
	LevelNone       Level = "none"
	LevelEmail      Level = "email"
	LevelGovernment Level = "government"
)

// Permissions is the civic capability summary shown to the user.
type Permissions struct {
	CanVote            bool `json:"canVote"`
	CanComment         bool `json:"canComment"`
	CanCreatePetitions bool `json:"canCreatePetitions"`
	CanAccessFOI       bool `json:"canAccessFOI"`
}

// Status is the read model returned by the status endpoint.
type Status struct {
	IsVerified        bool        `json:"isVerified"`
	VerificationLevel Level       `json:"verificationLevel"`
	Permissions       Permissions `json:"permissions"`
	VerifiedAt        *time.Time  `json:"verifiedAt"`
}

// BuildStatus derives the status from the latest decided record (nil when
// none) and the user's active grants.
func BuildStatus(latest *Verification, granted permission.Set) Status {
	st := Status{
		VerificationLevel: LevelNone,
		Permissions: Permissions{
			CanVote:            granted.Has(permission.CanVote),
			CanComment:         granted.Has(permission.CanComment),
			CanCreatePetitions: granted.Has(permission.CanCreatePetitions),
			CanAccessFOI:       granted.Has(permission.CanAccessFOI),
		},
	}
	if latest != nil && latest.State == StateApproved {
		st.IsVerified = true
		st.VerificationLevel = LevelGovernment
		st.VerifiedAt = latest.DecidedAt
		return st
	}
	if granted.Has(permission.EmailVerified) {
		st.VerificationLevel = LevelEmail
	}
	return st
}
