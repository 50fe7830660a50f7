package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-mentoring/mentorsync/internal/model"
)

func mentorBatch(n int) []model.MentorRecord {
	mentors := make([]model.MentorRecord, n)
	for i := range mentors {
		mentors[i] = model.MentorRecord{MentorCode: string(rune('A' + i%26)), Status: model.StatusNeedsSetup}
	}
	return mentors
}

func TestChunk(t *testing.T) {
	batches := chunk([]int{1, 2, 3, 4, 5}, 2)
	require.Len(t, batches, 3)
	assert.Equal(t, []int{1, 2}, batches[0])
	assert.Equal(t, []int{5}, batches[2])

	assert.Nil(t, chunk([]int(nil), 2))
}

func TestWriteMentors_Partitions(t *testing.T) {
	st := newMemStore()
	w := NewBatchWriter(st, 2, 0)

	res, err := w.WriteMentors(context.Background(), mentorBatch(5))
	require.NoError(t, err)
	assert.Equal(t, 5, res.Written)
	assert.Zero(t, res.BatchesFailed)
	assert.Equal(t, 3, st.upsertCalls)
}

func TestWriteMentors_BatchFailureIsolated(t *testing.T) {
	st := newMemStore()
	st.failUpserts = 1
	w := NewBatchWriter(st, 2, 0)

	res, err := w.WriteMentors(context.Background(), mentorBatch(5))
	require.NoError(t, err, "a failed batch must not fail the write")
	assert.Equal(t, 3, res.Written)
	assert.Equal(t, 1, res.BatchesFailed)
	assert.Len(t, res.Failed, 2)
}

func TestWriteMentors_CancelledBetweenBatches(t *testing.T) {
	st := newMemStore()
	w := NewBatchWriter(st, 2, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.WriteMentors(ctx, mentorBatch(4))
	require.Error(t, err)
	assert.Zero(t, st.upsertCalls, "no batch may start after cancellation")
}

func TestNewBatchWriter_DefaultSize(t *testing.T) {
	w := NewBatchWriter(newMemStore(), 0, 0)
	assert.Equal(t, 100, w.size)
}
