// Package model defines the domain types shared across the reconciliation pipeline.
package model

import "time"

// Status is the derived lifecycle stage of a mentor. It is recomputed
// from other fields on every run and never mutated independently.
type Status string

const (
	StatusNeedsSetup       Status = "needs_setup"
	StatusNeedsPage        Status = "needs_page"
	StatusNeedsFundraising Status = "needs_fundraising"
	StatusComplete         Status = "complete"
)

// RawSignup is one intake-form submission as delivered by the form sync.
// Read-only to the pipeline.
type RawSignup struct {
	SubmissionID     string    `json:"submission_id"`
	MentorCode       string    `json:"mentor_code,omitempty"` // empty until assigned
	FirstName        string    `json:"first_name,omitempty"`
	MiddleName       string    `json:"middle_name,omitempty"`
	LastName         string    `json:"last_name,omitempty"`
	PreferredName    string    `json:"preferred_name,omitempty"`
	Phone            string    `json:"phone"`
	Email            string    `json:"email,omitempty"`
	InstitutionEmail string    `json:"institution_email,omitempty"`
	Affiliation      string    `json:"affiliation,omitempty"`
	SubmittedAt      time.Time `json:"submitted_at"`
}

// RawSetupRecord marks that a person completed the fundraising setup step.
// Keyed loosely by email/phone; there is no guaranteed foreign key to a signup.
type RawSetupRecord struct {
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// RawCampaignMembership is a fundraising-campaign member row from the
// donation platform, carrying the running raised total.
type RawCampaignMembership struct {
	MemberID     string  `json:"member_id"`
	Email        string  `json:"email,omitempty"`
	Phone        string  `json:"phone,omitempty"`
	AmountRaised float64 `json:"amount_raised"`
	Goal         float64 `json:"goal,omitempty"`
}

// MentorRecord is the pipeline's primary output: one row per physical
// person, fully replaced each run (upsert keyed by MentorCode).
type MentorRecord struct {
	MentorCode        string    `json:"mentor_code"`
	FirstName         string    `json:"first_name,omitempty"`
	MiddleName        string    `json:"middle_name,omitempty"`
	LastName          string    `json:"last_name,omitempty"`
	PreferredName     string    `json:"preferred_name,omitempty"`
	Phone             string    `json:"phone"`
	Email             string    `json:"email,omitempty"`
	Affiliation       string    `json:"affiliation,omitempty"`
	ContactID         *int64    `json:"contact_id,omitempty"` // nil if unmatched or ambiguous
	AmountRaised      float64   `json:"amount_raised"`
	CampaignMember    bool      `json:"campaign_member"`
	SetupDone         bool      `json:"setup_done"`
	Status            Status    `json:"status"`
	AbsorbedCount     int       `json:"absorbed_count"` // raw signups collapsed into this record
	SignupSubmittedAt time.Time `json:"signup_submitted_at"`
}
