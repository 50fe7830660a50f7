package model

import "time"

// ErrorKind classifies a data-quality problem logged during a run.
type ErrorKind string

const (
	ErrorDuplicateRecord  ErrorKind = "duplicate_record"
	ErrorDuplicateContact ErrorKind = "duplicate_contact"
	ErrorMalformedPhone   ErrorKind = "malformed_phone"
	ErrorMissingSource    ErrorKind = "missing_source"
)

// ErrorSeverity ranks a logged data-quality problem.
type ErrorSeverity string

const (
	ErrorInfo    ErrorSeverity = "info"
	ErrorWarning ErrorSeverity = "warning"
	ErrorSevere  ErrorSeverity = "error"
)

// ErrorLogEntry records a data-quality problem that did not block
// processing. Append-only per run.
type ErrorLogEntry struct {
	ID          string         `json:"id"`
	MentorCode  string         `json:"mentor_code,omitempty"`
	Kind        ErrorKind      `json:"kind"`
	Message     string         `json:"message"`
	Severity    ErrorSeverity  `json:"severity"`
	SourceTable string         `json:"source_table,omitempty"`
	Context     map[string]any `json:"context,omitempty"`
	Resolved    bool           `json:"resolved"`
	CreatedAt   time.Time      `json:"created_at"`
}
