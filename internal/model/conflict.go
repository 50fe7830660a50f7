package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// ConflictKind identifies the class of reconciliation decision deferred to a human.
type ConflictKind string

const (
	ConflictPhoneMismatch    ConflictKind = "phone_mismatch"
	ConflictEmailMismatch    ConflictKind = "email_mismatch"
	ConflictAmbiguousContact ConflictKind = "ambiguous_contact"
)

// Severity ranks how urgently a conflict needs resolution. Closed set;
// anything else is rejected at construction.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a member of the closed severity set.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// ConflictStatus tracks resolution progress. The pipeline only ever
// creates pending conflicts; the dashboard moves them forward.
type ConflictStatus string

const (
	ConflictPending  ConflictStatus = "pending"
	ConflictResolved ConflictStatus = "resolved"
	ConflictSkipped  ConflictStatus = "skipped"
)

// ConflictOption is one of the two competing choices, with enough context
// to render it to a human without re-querying the source systems.
type ConflictOption struct {
	Label     string         `json:"label"`
	ContactID *int64         `json:"contact_id,omitempty"`
	Value     string         `json:"value,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
}

// ConflictRecord is one undecidable reconciliation decision, persisted for
// later resolution through the dashboard's narrow write-back interface.
type ConflictRecord struct {
	ID          string          `json:"id"`
	MentorCode  string          `json:"mentor_code,omitempty"`
	Kind        ConflictKind    `json:"kind"`
	OptionA     ConflictOption  `json:"option_a"`
	OptionB     ConflictOption  `json:"option_b"`
	Recommended string          `json:"recommended,omitempty"` // "a" or "b"
	Rationale   string          `json:"rationale,omitempty"`
	Severity    Severity        `json:"severity"`
	Status      ConflictStatus  `json:"status"`
	DetectedAt  time.Time       `json:"detected_at"`
	ResolvedAt  *time.Time      `json:"resolved_at,omitempty"`
	ResolvedBy  string          `json:"resolved_by,omitempty"`
	Decision    string          `json:"decision,omitempty"`
}

// Validate enforces the construction invariants: known severity, pending
// status, no resolution fields set.
func (c ConflictRecord) Validate() error {
	if !c.Severity.Valid() {
		return eris.Wrapf(ErrValidation, "conflict: unknown severity %q", c.Severity)
	}
	if c.Status != ConflictPending {
		return eris.Wrapf(ErrValidation, "conflict: must be created pending, got %q", c.Status)
	}
	if c.ResolvedAt != nil || c.ResolvedBy != "" || c.Decision != "" {
		return eris.Wrap(ErrValidation, "conflict: resolution fields must be unset at creation")
	}
	if c.Kind == "" {
		return eris.Wrap(ErrValidation, "conflict: kind is required")
	}
	return nil
}
