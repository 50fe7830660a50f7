// Package store persists pipeline outputs: mentor records, conflicts,
// error-log entries, and run history. Two backends share one interface,
// SQLite for single-operator use and Postgres for the hosted dashboard.
package store

import (
	"context"

	"github.com/brightpath-mentoring/mentorsync/internal/model"
)

// Store is the persistence interface the pipeline writes through.
// UpsertMentors receives one already-partitioned batch per call; batch
// sizing and failure isolation belong to the pipeline's writer.
type Store interface {
	// Runs
	CreateRun(ctx context.Context) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, status model.RunStatus, summary *model.RunSummary, runErr string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	// Mentors (full upsert keyed by mentor code)
	UpsertMentors(ctx context.Context, mentors []model.MentorRecord) (int64, error)
	ListMentors(ctx context.Context) ([]model.MentorRecord, error)

	// Conflicts (append-only from the pipeline; resolved via the dashboard's
	// narrow write-back interface)
	InsertConflicts(ctx context.Context, conflicts []model.ConflictRecord) error
	ListConflicts(ctx context.Context, status model.ConflictStatus) ([]model.ConflictRecord, error)
	ResolveConflict(ctx context.Context, id string, status model.ConflictStatus, resolvedBy, decision string) error

	// Error log (append-only)
	AppendErrors(ctx context.Context, entries []model.ErrorLogEntry) error
	ListErrors(ctx context.Context, limit int) ([]model.ErrorLogEntry, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
