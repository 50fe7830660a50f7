package model

import (
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConflict() ConflictRecord {
	return ConflictRecord{
		ID:         "c-1",
		MentorCode: "MN10023",
		Kind:       ConflictAmbiguousContact,
		OptionA:    ConflictOption{Label: "Contact 101", Value: "+15551234567"},
		OptionB:    ConflictOption{Label: "Contact 102", Value: "+15551234567"},
		Severity:   SeverityMedium,
		Status:     ConflictPending,
		DetectedAt: time.Now().UTC(),
	}
}

func TestConflictValidate_OK(t *testing.T) {
	require.NoError(t, validConflict().Validate())
}

func TestConflictValidate_UnknownSeverity(t *testing.T) {
	c := validConflict()
	c.Severity = "urgent"
	err := c.Validate()
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrValidation))
}

func TestConflictValidate_NotPending(t *testing.T) {
	c := validConflict()
	c.Status = ConflictResolved
	err := c.Validate()
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrValidation))
}

func TestConflictValidate_ResolutionFieldsSet(t *testing.T) {
	c := validConflict()
	now := time.Now()
	c.ResolvedAt = &now
	require.Error(t, c.Validate())

	c = validConflict()
	c.ResolvedBy = "admin@brightpath.org"
	require.Error(t, c.Validate())
}

func TestConflictValidate_MissingKind(t *testing.T) {
	c := validConflict()
	c.Kind = ""
	require.Error(t, c.Validate())
}

func TestSeverityValid(t *testing.T) {
	assert.True(t, SeverityLow.Valid())
	assert.True(t, SeverityCritical.Valid())
	assert.False(t, Severity("").Valid())
	assert.False(t, Severity("HIGH").Valid())
}

func TestContactDisplayName(t *testing.T) {
	assert.Equal(t, "Dana Reyes", RawExternalContact{FirstName: "Dana", LastName: "Reyes"}.DisplayName())
	assert.Equal(t, "Dana", RawExternalContact{FirstName: "Dana"}.DisplayName())
	assert.Equal(t, "Reyes", RawExternalContact{LastName: "Reyes"}.DisplayName())
	assert.Equal(t, "", RawExternalContact{}.DisplayName())
}
