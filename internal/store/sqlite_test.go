package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-mentoring/mentorsync/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testMentor(code string) model.MentorRecord {
	return model.MentorRecord{
		MentorCode:        code,
		FirstName:         "Dana",
		LastName:          "Reyes",
		Phone:             "+15551112222",
		Email:             "dana@example.org",
		AmountRaised:      250,
		Status:            model.StatusNeedsFundraising,
		CampaignMember:    true,
		SignupSubmittedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func testConflict() model.ConflictRecord {
	id := int64(7)
	return model.ConflictRecord{
		ID:          uuid.New().String(),
		MentorCode:  "MN10001",
		Kind:        model.ConflictAmbiguousContact,
		OptionA:     model.ConflictOption{Label: "Dana Reyes", ContactID: &id},
		OptionB:     model.ConflictOption{Label: "D. Reyes"},
		Recommended: "a",
		Severity:    model.SeverityMedium,
		Status:      model.ConflictPending,
		DetectedAt:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

// --- Runs ---

func TestSQLite_RunLifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	summary := &model.RunSummary{TotalSignups: 10, MentorsWritten: 8}
	require.NoError(t, st.CompleteRun(ctx, run.ID, model.RunStatusComplete, summary, ""))

	runs, err := st.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusComplete, runs[0].Status)
	require.NotNil(t, runs[0].Summary)
	assert.Equal(t, 10, runs[0].Summary.TotalSignups)
	assert.NotNil(t, runs[0].FinishedAt)
}

func TestSQLite_GetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx)
	require.NoError(t, err)
	summary := &model.RunSummary{TotalSignups: 5, MentorsWritten: 4}
	require.NoError(t, st.CompleteRun(ctx, run.ID, model.RunStatusComplete, summary, ""))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Summary)
	assert.Equal(t, 5, got.Summary.TotalSignups)
	assert.NotNil(t, got.FinishedAt)

	missing, err := st.GetRun(ctx, "nonexistent-run")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLite_CompleteRun_Failed(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx)
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, run.ID, model.RunStatusFailed, nil, "load signups: boom"))

	runs, err := st.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusFailed, runs[0].Status)
	assert.Equal(t, "load signups: boom", runs[0].Error)
	assert.Nil(t, runs[0].Summary)
}

// --- Mentors ---

func TestSQLite_UpsertMentors_InsertAndUpdate(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	m := testMentor("MN10001")
	n, err := st.UpsertMentors(ctx, []model.MentorRecord{m})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	m.AmountRaised = 1200
	m.Status = model.StatusComplete
	contactID := int64(42)
	m.ContactID = &contactID
	_, err = st.UpsertMentors(ctx, []model.MentorRecord{m})
	require.NoError(t, err)

	mentors, err := st.ListMentors(ctx)
	require.NoError(t, err)
	require.Len(t, mentors, 1, "upsert must not create a second row")
	got := mentors[0]
	assert.Equal(t, model.StatusComplete, got.Status)
	assert.InDelta(t, 1200.0, got.AmountRaised, 0.001)
	require.NotNil(t, got.ContactID)
	assert.Equal(t, int64(42), *got.ContactID)
}

func TestSQLite_ListMentors_OrderedByCode(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.UpsertMentors(ctx, []model.MentorRecord{
		testMentor("MN10002"), testMentor("MN10001"),
	})
	require.NoError(t, err)

	mentors, err := st.ListMentors(ctx)
	require.NoError(t, err)
	require.Len(t, mentors, 2)
	assert.Equal(t, "MN10001", mentors[0].MentorCode)
	assert.Equal(t, "MN10002", mentors[1].MentorCode)
}

func TestSQLite_UpsertMentors_Empty(t *testing.T) {
	st := newTestSQLiteStore(t)

	n, err := st.UpsertMentors(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// --- Conflicts ---

func TestSQLite_ConflictRoundtrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	c := testConflict()
	require.NoError(t, st.InsertConflicts(ctx, []model.ConflictRecord{c}))

	pending, err := st.ListConflicts(ctx, model.ConflictPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	got := pending[0]
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, model.ConflictAmbiguousContact, got.Kind)
	assert.Equal(t, "Dana Reyes", got.OptionA.Label)
	require.NotNil(t, got.OptionA.ContactID)
	assert.Equal(t, int64(7), *got.OptionA.ContactID)
	assert.Equal(t, "a", got.Recommended)
}

func TestSQLite_ResolveConflict(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	c := testConflict()
	require.NoError(t, st.InsertConflicts(ctx, []model.ConflictRecord{c}))
	require.NoError(t, st.ResolveConflict(ctx, c.ID, model.ConflictResolved, "ops@brightpath.org", "picked contact 7"))

	pending, err := st.ListConflicts(ctx, model.ConflictPending)
	require.NoError(t, err)
	assert.Empty(t, pending)

	resolved, err := st.ListConflicts(ctx, model.ConflictResolved)
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, "ops@brightpath.org", resolved[0].ResolvedBy)
	assert.Equal(t, "picked contact 7", resolved[0].Decision)
	assert.NotNil(t, resolved[0].ResolvedAt)
}

func TestSQLite_ResolveConflict_AlreadyResolved(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	c := testConflict()
	require.NoError(t, st.InsertConflicts(ctx, []model.ConflictRecord{c}))
	require.NoError(t, st.ResolveConflict(ctx, c.ID, model.ConflictSkipped, "ops", ""))

	err := st.ResolveConflict(ctx, c.ID, model.ConflictResolved, "ops", "second try")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found or not pending")
}

func TestSQLite_ResolveConflict_InvalidTargetStatus(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.ResolveConflict(context.Background(), "whatever", model.ConflictPending, "ops", "")
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrValidation))
}

// --- Error log ---

func TestSQLite_ErrorLogRoundtrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	entry := model.ErrorLogEntry{
		ID:          uuid.New().String(),
		MentorCode:  "MN10001",
		Kind:        model.ErrorDuplicateRecord,
		Message:     "signup s1 collapsed into s2",
		Severity:    model.ErrorWarning,
		SourceTable: "raw_signups",
		Context:     map[string]any{"absorbed_submission": "s1"},
		CreatedAt:   time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	}
	require.NoError(t, st.AppendErrors(ctx, []model.ErrorLogEntry{entry}))

	entries, err := st.ListErrors(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	got := entries[0]
	assert.Equal(t, model.ErrorDuplicateRecord, got.Kind)
	assert.Equal(t, "s1", got.Context["absorbed_submission"])
	assert.False(t, got.Resolved)
}

func TestSQLite_ListErrors_Limit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	var entries []model.ErrorLogEntry
	for i := 0; i < 5; i++ {
		entries = append(entries, model.ErrorLogEntry{
			ID:        uuid.New().String(),
			Kind:      model.ErrorMalformedPhone,
			Message:   "bad phone",
			Severity:  model.ErrorWarning,
			CreatedAt: time.Date(2026, 3, 1, 9, i, 0, 0, time.UTC),
		})
	}
	require.NoError(t, st.AppendErrors(ctx, entries))

	got, err := st.ListErrors(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}
