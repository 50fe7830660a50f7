package model

import "time"

// RunStatus is the lifecycle of one reconciliation run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one persisted pipeline invocation.
type Run struct {
	ID         string      `json:"id"`
	Status     RunStatus   `json:"status"`
	Summary    *RunSummary `json:"summary,omitempty"`
	Error      string      `json:"error,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}

// RunSummary aggregates the deterministic counts of one run.
type RunSummary struct {
	TotalSignups      int `json:"total_signups"`
	Deduplicated      int `json:"deduplicated"` // mentor candidates after collapse
	Matched           int `json:"matched"`
	Unmatched         int `json:"unmatched"`
	Ambiguous         int `json:"ambiguous"`
	ConflictsRaised   int `json:"conflicts_raised"`
	ConflictsExisting int `json:"conflicts_existing"` // suppressed as already pending
	ErrorsLogged      int `json:"errors_logged"`
	MentorsWritten    int `json:"mentors_written"`
	BatchesFailed     int `json:"batches_failed"`
}
