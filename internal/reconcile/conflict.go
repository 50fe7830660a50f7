package reconcile

import (
	"time"

	"github.com/google/uuid"

	"github.com/brightpath-mentoring/mentorsync/internal/model"
)

// ConflictParams carries a raw conflict situation into NewConflict.
type ConflictParams struct {
	MentorCode  string
	Kind        model.ConflictKind
	OptionA     model.ConflictOption
	OptionB     model.ConflictOption
	Recommended string
	Rationale   string
	Severity    model.Severity
	DetectedAt  time.Time // zero means now
}

// NewConflict shapes a raw conflict situation into a well-formed pending
// ConflictRecord. Invalid input (unknown severity, missing kind) is
// rejected with model.ErrValidation, never coerced.
func NewConflict(p ConflictParams) (model.ConflictRecord, error) {
	detected := p.DetectedAt
	if detected.IsZero() {
		detected = time.Now().UTC()
	}
	c := model.ConflictRecord{
		ID:          uuid.New().String(),
		MentorCode:  p.MentorCode,
		Kind:        p.Kind,
		OptionA:     p.OptionA,
		OptionB:     p.OptionB,
		Recommended: p.Recommended,
		Rationale:   p.Rationale,
		Severity:    p.Severity,
		Status:      model.ConflictPending,
		DetectedAt:  detected,
	}
	if err := c.Validate(); err != nil {
		return model.ConflictRecord{}, err
	}
	return c, nil
}
