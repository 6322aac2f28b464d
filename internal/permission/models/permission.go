// Package models defines the permission catalog and user grants.
package models

import (
	"sort"
	"strings"
	"time"

	id "civic/pkg/domain"
	dErrors "civic/pkg/domain-errors"
)

// Name is a capability string. The set is closed: only the constants below
// parse, so a typo fails validation instead of creating a grant nobody checks.
// Matching is exact; there is no hierarchy or wildcard.
type Name string

const (
	CanVote            Name = "can_vote"
	CanComment         Name = "can_comment"
	CanCreatePetitions Name = "can_create_petitions"
	CanAccessFOI       Name = "can_access_foi"
	EmailVerified      Name = "email_verified"

	AdminIdentityReview    Name = "admin.identity.review"
	AdminPermissionsManage Name = "admin.permissions.manage"
)

var descriptions = map[Name]string{
	CanVote:                "Vote in civic polls",
	CanComment:             "Comment on bills and petitions",
	CanCreatePetitions:     "Create petitions",
	CanAccessFOI:           "File freedom-of-information requests",
	EmailVerified:          "Confirmed ownership of an email address",
	AdminIdentityReview:    "Review identity verification submissions",
	AdminPermissionsManage: "Grant and revoke user permissions",
}

// Parse validates s against the closed set.
func Parse(s string) (Name, error) {
	n := Name(strings.TrimSpace(s))
	if _, ok := descriptions[n]; !ok {
		return "", dErrors.New(dErrors.CodeValidation, "unknown permission: "+s)
	}
	return n, nil
}

// Description returns the catalog description for n.
func (n Name) Description() string { return descriptions[n] }

func (n Name) String() string { return string(n) }

// All returns every known name in lexical order.
func All() []Name {
	out := make([]Name, 0, len(descriptions))
	for n := range descriptions {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// VerifiedBundle is granted when an identity verification is approved.
func VerifiedBundle() []Name {
	return []Name{CanVote, CanComment, CanCreatePetitions, CanAccessFOI}
}

// Permission is one catalog row. Rows are created lazily on first grant.
type Permission struct {
	ID          id.PermissionID
	Name        Name
	Description string
	IsActive    bool
}

// UserPermission is the grant state of one permission for one user. There is
// at most one row per (UserID, Name); revoking flips IsGranted.
type UserPermission struct {
	UserID       id.UserID
	PermissionID id.PermissionID
	Name         Name
	IsGranted    bool
	GrantedAt    time.Time
	RevokedAt    *time.Time
}

// Set is the granted names of one user.
type Set map[Name]bool

func (s Set) Has(n Name) bool { return s[n] }
