package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	permission "civic/internal/permission/models"
	id "civic/pkg/domain"
	dErrors "civic/pkg/domain-errors"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewPending(t *testing.T) {
	user := id.UserID(uuid.New())

	t.Run("valid submission is pending with normalized email", func(t *testing.T) {
		v, err := NewPending(id.NewVerificationID(), user, " Jane@Example.org", true, now)
		require.NoError(t, err)
		assert.Equal(t, StatePending, v.State)
		assert.Equal(t, "jane@example.org", v.SubmittedEmail)
		assert.Nil(t, v.ReviewerID)
		assert.Nil(t, v.DecidedAt)
		assert.Equal(t, now, v.CreatedAt)
	})

	t.Run("terms not agreed", func(t *testing.T) {
		_, err := NewPending(id.NewVerificationID(), user, "jane@example.org", false, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("malformed email", func(t *testing.T) {
		_, err := NewPending(id.NewVerificationID(), user, "jane", true, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("nil user", func(t *testing.T) {
		_, err := NewPending(id.NewVerificationID(), id.UserID{}, "jane@example.org", true, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestDecisionTransitions(t *testing.T) {
	reviewer := id.UserID(uuid.New())

	t.Run("approve sets reviewer and decided time", func(t *testing.T) {
		v, err := NewPending(id.NewVerificationID(), id.UserID(uuid.New()), "a@example.org", true, now)
		require.NoError(t, err)
		require.NoError(t, v.CanDecide())

		v.ApplyApproval(reviewer, now.Add(time.Hour))
		assert.Equal(t, StateApproved, v.State)
		require.NotNil(t, v.ReviewerID)
		assert.Equal(t, reviewer, *v.ReviewerID)
		require.NotNil(t, v.DecidedAt)
		assert.Equal(t, now.Add(time.Hour), *v.DecidedAt)
	})

	t.Run("decided record cannot be decided again", func(t *testing.T) {
		v, err := NewPending(id.NewVerificationID(), id.UserID(uuid.New()), "a@example.org", true, now)
		require.NoError(t, err)
		v.ApplyRejection(reviewer, "blurry photo", now)

		err = v.CanDecide()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))

		de, ok := dErrors.As(err)
		require.True(t, ok)
		snapshot, ok := de.Detail.(*Verification)
		require.True(t, ok)
		assert.Equal(t, StateRejected, snapshot.State)
		assert.Equal(t, "blurry photo", snapshot.RejectionReason)

		snapshot.State = StatePending
		assert.Equal(t, StateRejected, v.State, "detail must be a copy")
	})
}

func TestNormalizeReason(t *testing.T) {
	got, err := NormalizeReason("  document expired ")
	require.NoError(t, err)
	assert.Equal(t, "document expired", got)

	_, err = NormalizeReason("   ")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestParseState(t *testing.T) {
	st, err := ParseState("Pending")
	require.NoError(t, err)
	assert.Equal(t, StatePending, st)
	assert.False(t, st.IsTerminal())
	assert.True(t, StateApproved.IsTerminal())

	_, err = ParseState("verified")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestListFilterNormalize(t *testing.T) {
	assert.Equal(t, DefaultListLimit, ListFilter{}.Normalize().Limit)
	assert.Equal(t, MaxListLimit, ListFilter{Limit: 10_000}.Normalize().Limit)
	assert.Equal(t, 7, ListFilter{Limit: 7}.Normalize().Limit)
}

func TestBuildStatus(t *testing.T) {
	decided := now.Add(time.Hour)

	tests := []struct {
		name     string
		latest   *Verification
		granted  permission.Set
		verified bool
		level    Level
		canVote  bool
	}{
		{name: "no submissions", level: LevelNone},
		{
			name:    "email verified only",
			granted: permission.Set{permission.EmailVerified: true},
			level:   LevelEmail,
		},
		{
			name:    "latest rejected keeps email level",
			latest:  &Verification{State: StateRejected, DecidedAt: &decided},
			granted: permission.Set{permission.EmailVerified: true},
			level:   LevelEmail,
		},
		{
			name:     "approved",
			latest:   &Verification{State: StateApproved, DecidedAt: &decided},
			granted:  permission.Set{permission.CanVote: true, permission.CanComment: true},
			verified: true,
			level:    LevelGovernment,
			canVote:  true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := BuildStatus(tc.latest, tc.granted)
			assert.Equal(t, tc.verified, st.IsVerified)
			assert.Equal(t, tc.level, st.VerificationLevel)
			assert.Equal(t, tc.canVote, st.Permissions.CanVote)
			if tc.verified {
				require.NotNil(t, st.VerifiedAt)
				assert.Equal(t, decided, *st.VerifiedAt)
			} else {
				assert.Nil(t, st.VerifiedAt)
			}
		})
	}
}
