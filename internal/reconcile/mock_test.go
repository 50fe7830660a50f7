package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/brightpath-mentoring/mentorsync/internal/model"
)

// memStore is an in-memory store.Store for pipeline tests. It keeps state
// across runs so idempotence and conflict de-duplication are observable.
type memStore struct {
	mu        sync.Mutex
	mentors   map[string]model.MentorRecord
	conflicts []model.ConflictRecord
	errors    []model.ErrorLogEntry
	runs      []model.Run

	upsertCalls int
	failUpserts int // fail the first n upsert batches
}

func newMemStore() *memStore {
	return &memStore{mentors: make(map[string]model.MentorRecord)}
}

func (s *memStore) CreateRun(context.Context) (*model.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run := model.Run{ID: uuid.New().String(), Status: model.RunStatusRunning, StartedAt: time.Now().UTC()}
	s.runs = append(s.runs, run)
	return &run, nil
}

func (s *memStore) CompleteRun(_ context.Context, runID string, status model.RunStatus, summary *model.RunSummary, runErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.runs {
		if s.runs[i].ID == runID {
			now := time.Now().UTC()
			s.runs[i].Status = status
			s.runs[i].Summary = summary
			s.runs[i].Error = runErr
			s.runs[i].FinishedAt = &now
		}
	}
	return nil
}

func (s *memStore) GetRun(_ context.Context, runID string) (*model.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.runs {
		if s.runs[i].ID == runID {
			run := s.runs[i]
			return &run, nil
		}
	}
	return nil, nil
}

func (s *memStore) ListRuns(context.Context, int) ([]model.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Run(nil), s.runs...), nil
}

func (s *memStore) UpsertMentors(_ context.Context, mentors []model.MentorRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertCalls++
	if s.failUpserts > 0 {
		s.failUpserts--
		return 0, eris.New("backend rejected batch")
	}
	for _, m := range mentors {
		s.mentors[m.MentorCode] = m
	}
	return int64(len(mentors)), nil
}

func (s *memStore) ListMentors(context.Context) ([]model.MentorRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.MentorRecord, 0, len(s.mentors))
	for _, m := range s.mentors {
		out = append(out, m)
	}
	return out, nil
}

func (s *memStore) InsertConflicts(_ context.Context, conflicts []model.ConflictRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conflicts = append(s.conflicts, conflicts...)
	return nil
}

func (s *memStore) ListConflicts(_ context.Context, status model.ConflictStatus) ([]model.ConflictRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ConflictRecord
	for _, c := range s.conflicts {
		if status == "" || c.Status == status {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) ResolveConflict(_ context.Context, id string, status model.ConflictStatus, resolvedBy, decision string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.conflicts {
		if s.conflicts[i].ID == id {
			now := time.Now().UTC()
			s.conflicts[i].Status = status
			s.conflicts[i].ResolvedAt = &now
			s.conflicts[i].ResolvedBy = resolvedBy
			s.conflicts[i].Decision = decision
			return nil
		}
	}
	return eris.Errorf("conflict %s not found", id)
}

func (s *memStore) AppendErrors(_ context.Context, entries []model.ErrorLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, entries...)
	return nil
}

func (s *memStore) ListErrors(context.Context, int) ([]model.ErrorLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ErrorLogEntry(nil), s.errors...), nil
}

func (s *memStore) Migrate(context.Context) error { return nil }
func (s *memStore) Close() error                  { return nil }
