package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "civic/pkg/domain"
	dErrors "civic/pkg/domain-errors"
)

func TestDraftValidate(t *testing.T) {
	valid := Draft{UserID: id.UserID(uuid.New()), Type: TypeVerificationApproved, Title: "Identity verification approved"}
	require.NoError(t, valid.Validate())

	noUser := valid
	noUser.UserID = id.UserID{}
	assert.True(t, dErrors.HasCode(noUser.Validate(), dErrors.CodeValidation))

	noTitle := valid
	noTitle.Title = "  "
	assert.True(t, dErrors.HasCode(noTitle.Validate(), dErrors.CodeValidation))
}

func TestBuildCopiesMetadataAndOrdersIDs(t *testing.T) {
	meta := map[string]string{"reason": "blurry"}
	d := Draft{UserID: id.UserID(uuid.New()), Type: TypeVerificationRejected, Title: "t", Metadata: meta}
	t0 := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	a := d.Build(t0)
	b := d.Build(t0.Add(time.Millisecond))
	meta["reason"] = "changed"

	assert.Equal(t, "blurry", a.Metadata["reason"])
	assert.False(t, a.IsRead)
	assert.Less(t, a.ID, b.ID)

	parsed, err := ParseID(a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, parsed)

	_, err = ParseID("not-a-ulid")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
