package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-mentoring/mentorsync/internal/model"
)

func newTestDedupe() *Deduplicator {
	return NewDeduplicator("1", "MN", 90000)
}

func TestDedupe_AssignsPlaceholderCodes(t *testing.T) {
	d := newTestDedupe()
	signups := []model.RawSignup{
		{SubmissionID: "s1", Phone: "555-111-2222"},
		{SubmissionID: "s2", MentorCode: "MN10001", Phone: "555-333-4444"},
		{SubmissionID: "s3", Phone: "555-555-6666"},
	}

	candidates, _ := d.Dedupe(signups)
	require.Len(t, candidates, 3)
	assert.Equal(t, "MN90000", candidates[0].Signup.MentorCode)
	assert.Equal(t, "MN10001", candidates[1].Signup.MentorCode)
	assert.Equal(t, "MN90001", candidates[2].Signup.MentorCode)
}

func TestDedupe_PlaceholdersDeterministic(t *testing.T) {
	d := newTestDedupe()
	signups := []model.RawSignup{
		{SubmissionID: "s1", Phone: "555-111-2222"},
		{SubmissionID: "s2", Phone: "555-333-4444"},
	}

	first, _ := d.Dedupe(signups)
	second, _ := newTestDedupe().Dedupe(signups)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Signup.MentorCode, second[i].Signup.MentorCode)
	}
}

func TestDedupe_MostRecentSurvives(t *testing.T) {
	d := newTestDedupe()
	t1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(48 * time.Hour)
	signups := []model.RawSignup{
		{SubmissionID: "older", Phone: "(555) 123-4567", SubmittedAt: t1},
		{SubmissionID: "newer", Phone: "555.123.4567", SubmittedAt: t2},
	}

	candidates, entries := d.Dedupe(signups)
	require.Len(t, candidates, 1)
	assert.Equal(t, "newer", candidates[0].Signup.SubmissionID)
	assert.Equal(t, "+15551234567", candidates[0].Phone)
	assert.Equal(t, 1, candidates[0].Absorbed)

	require.Len(t, entries, 1)
	assert.Equal(t, model.ErrorDuplicateRecord, entries[0].Kind)
	assert.Equal(t, model.ErrorWarning, entries[0].Severity)
	assert.Equal(t, "older", entries[0].Context["absorbed_submission"])
	assert.Equal(t, "newer", entries[0].Context["survivor_submission"])
}

func TestDedupe_EqualTimestampsKeepFirst(t *testing.T) {
	d := newTestDedupe()
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	signups := []model.RawSignup{
		{SubmissionID: "first", Phone: "5551234567", SubmittedAt: ts},
		{SubmissionID: "second", Phone: "5551234567", SubmittedAt: ts},
	}

	candidates, _ := d.Dedupe(signups)
	require.Len(t, candidates, 1)
	assert.Equal(t, "first", candidates[0].Signup.SubmissionID)
}

func TestDedupe_UnusablePhonesStaySingletons(t *testing.T) {
	d := newTestDedupe()
	signups := []model.RawSignup{
		{SubmissionID: "s1", Phone: "n/a"},
		{SubmissionID: "s2", Phone: ""},
	}

	candidates, entries := d.Dedupe(signups)
	require.Len(t, candidates, 2)
	assert.Empty(t, candidates[0].Phone)
	assert.Empty(t, candidates[1].Phone)

	// One malformed-phone entry per record, no duplicate_record entries.
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, model.ErrorMalformedPhone, e.Kind)
	}
}

func TestDedupe_PhoneUniquenessInvariant(t *testing.T) {
	d := newTestDedupe()
	signups := []model.RawSignup{
		{SubmissionID: "s1", Phone: "5551111111", SubmittedAt: time.Unix(1, 0)},
		{SubmissionID: "s2", Phone: "(555) 111-1111", SubmittedAt: time.Unix(2, 0)},
		{SubmissionID: "s3", Phone: "5552222222", SubmittedAt: time.Unix(3, 0)},
		{SubmissionID: "s4", Phone: "555-222-2222", SubmittedAt: time.Unix(4, 0)},
	}

	candidates, _ := d.Dedupe(signups)
	seen := make(map[string]bool)
	for _, c := range candidates {
		if c.Phone == "" {
			continue
		}
		assert.False(t, seen[c.Phone], "phone %s appears twice", c.Phone)
		seen[c.Phone] = true
	}
	assert.Len(t, candidates, 2)
}
