package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-mentoring/mentorsync/internal/identity"
	"github.com/brightpath-mentoring/mentorsync/internal/model"
)

func newTestMatcher(contacts []model.RawExternalContact) *Matcher {
	return NewMatcher(identity.Build(contacts, ContactKeys("1")), "1")
}

func candidate(code, phone, email string) Candidate {
	return Candidate{
		Signup: model.RawSignup{SubmissionID: "s-" + code, MentorCode: code, Email: email},
		Phone:  phone,
	}
}

func TestMatch_ExternalIDTierWins(t *testing.T) {
	// The candidate matches contact 1 by external id and a different
	// contact by phone; tier 1 short-circuits and no conflict is raised.
	m := newTestMatcher([]model.RawExternalContact{
		{ID: 1, ExternalID: "MN10001", Phone: "555-000-0000"},
		{ID: 2, Phone: "555-123-4567"},
	})

	res, err := m.Match(candidate("MN10001", "+15551234567", ""))
	require.NoError(t, err)
	require.NotNil(t, res.Contact)
	assert.Equal(t, int64(1), res.Contact.ID)
	assert.Equal(t, TierExternalID, res.Tier)
	assert.Nil(t, res.Conflict)
}

func TestMatch_PhoneTier(t *testing.T) {
	m := newTestMatcher([]model.RawExternalContact{
		{ID: 5, Phone: "(555) 123-4567"},
	})

	res, err := m.Match(candidate("MN10002", "+15551234567", ""))
	require.NoError(t, err)
	require.NotNil(t, res.Contact)
	assert.Equal(t, int64(5), res.Contact.ID)
	assert.Equal(t, TierPhone, res.Tier)
}

func TestMatch_EmailTierChecksBothAddresses(t *testing.T) {
	m := newTestMatcher([]model.RawExternalContact{
		{ID: 9, Email: "Mentor@School.EDU"},
	})

	c := candidate("MN10003", "", "")
	c.Signup.InstitutionEmail = "mentor@school.edu"

	res, err := m.Match(c)
	require.NoError(t, err)
	require.NotNil(t, res.Contact)
	assert.Equal(t, int64(9), res.Contact.ID)
	assert.Equal(t, TierEmail, res.Tier)
}

func TestMatch_NoHitIsNotAnError(t *testing.T) {
	m := newTestMatcher(nil)

	res, err := m.Match(candidate("MN10004", "+15551234567", "a@b.org"))
	require.NoError(t, err)
	assert.Nil(t, res.Contact)
	assert.Nil(t, res.Conflict)
	assert.Equal(t, TierNone, res.Tier)
}

func TestMatch_AmbiguousPhoneRaisesConflict(t *testing.T) {
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.AddDate(0, 2, 0)
	m := newTestMatcher([]model.RawExternalContact{
		{ID: 11, Phone: "555-123-4567", UpdatedAt: older},
		{ID: 12, Phone: "5551234567", UpdatedAt: newer},
	})

	res, err := m.Match(candidate("MN10005", "+15551234567", ""))
	require.NoError(t, err)
	assert.Nil(t, res.Contact, "ambiguity must never guess")
	require.NotNil(t, res.Conflict)

	c := res.Conflict
	assert.Equal(t, model.ConflictAmbiguousContact, c.Kind)
	assert.Equal(t, "MN10005", c.MentorCode)
	assert.Equal(t, model.ConflictPending, c.Status)
	assert.Equal(t, model.SeverityMedium, c.Severity)
	// Most recently modified contact is option A and recommended.
	require.NotNil(t, c.OptionA.ContactID)
	assert.Equal(t, int64(12), *c.OptionA.ContactID)
	assert.Equal(t, "a", c.Recommended)
	assert.NotEmpty(t, c.Rationale)
}

func TestMatch_AmbiguityPrefersSecondaryKeyAgreement(t *testing.T) {
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.AddDate(0, 2, 0)
	// Contact 21 is stale but also agrees on email; contact 22 is fresher
	// but agrees on nothing else.
	m := newTestMatcher([]model.RawExternalContact{
		{ID: 21, Phone: "5551234567", Email: "mentor@example.org", UpdatedAt: older},
		{ID: 22, Phone: "5551234567", UpdatedAt: newer},
	})

	res, err := m.Match(candidate("MN10006", "+15551234567", "mentor@example.org"))
	require.NoError(t, err)
	require.NotNil(t, res.Conflict)
	require.NotNil(t, res.Conflict.OptionB.ContactID)
	assert.Equal(t, int64(21), *res.Conflict.OptionB.ContactID)
	assert.Equal(t, "b", res.Conflict.Recommended)
	assert.Contains(t, res.Conflict.Rationale, "secondary key")
}

func TestMatch_DuplicateHitsSameContactNotAmbiguous(t *testing.T) {
	// Both candidate emails resolve to the same contact: one distinct hit.
	m := newTestMatcher([]model.RawExternalContact{
		{ID: 30, Email: "same@example.org"},
	})

	c := candidate("MN10007", "", "same@example.org")
	c.Signup.InstitutionEmail = "same@example.org"

	res, err := m.Match(c)
	require.NoError(t, err)
	require.NotNil(t, res.Contact)
	assert.Equal(t, int64(30), res.Contact.ID)
	assert.Nil(t, res.Conflict)
}
