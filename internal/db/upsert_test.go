package db

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return mock
}

func TestUpsert_EmptyRows(t *testing.T) {
	mock := newMockPool(t)
	n, err := Upsert(context.Background(), mock, UpsertConfig{
		Table:        "mentors",
		Columns:      []string{"mentor_code", "phone"},
		ConflictKeys: []string{"mentor_code"},
	}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpsert_RequiresColumnsAndKeys(t *testing.T) {
	mock := newMockPool(t)
	rows := [][]any{{"MN1", "+15551234567"}}

	_, err := Upsert(context.Background(), mock, UpsertConfig{Table: "mentors", ConflictKeys: []string{"mentor_code"}}, rows)
	require.Error(t, err)

	_, err = Upsert(context.Background(), mock, UpsertConfig{Table: "mentors", Columns: []string{"mentor_code"}}, rows)
	require.Error(t, err)
}

func TestUpsert_RowArityMismatch(t *testing.T) {
	mock := newMockPool(t)
	_, err := Upsert(context.Background(), mock, UpsertConfig{
		Table:        "mentors",
		Columns:      []string{"mentor_code", "phone"},
		ConflictKeys: []string{"mentor_code"},
	}, [][]any{{"MN1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row has 1 values")
}

func TestUpsert_BuildsOnConflictStatement(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectExec(`INSERT INTO "mentors" \("mentor_code", "phone"\) VALUES \(\$1, \$2\), \(\$3, \$4\) ON CONFLICT \("mentor_code"\) DO UPDATE SET "phone" = EXCLUDED\."phone"`).
		WithArgs("MN1", "+15551234567", "MN2", "+15559999999").
		WillReturnResult(pgxmock.NewResult("INSERT", 2))

	n, err := Upsert(context.Background(), mock, UpsertConfig{
		Table:        "mentors",
		Columns:      []string{"mentor_code", "phone"},
		ConflictKeys: []string{"mentor_code"},
	}, [][]any{
		{"MN1", "+15551234567"},
		{"MN2", "+15559999999"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
