package reconcile

import (
	"github.com/brightpath-mentoring/mentorsync/internal/model"
	"github.com/brightpath-mentoring/mentorsync/internal/normalize"
)

// Merger combines a matched candidate with its optional enrichment records
// into one denormalized MentorRecord. Pure: no side effects, no writes.
type Merger struct {
	goalThreshold float64
}

// NewMerger creates a Merger. goalThreshold is the configured fundraising
// goal above which a mentor is complete.
func NewMerger(goalThreshold float64) *Merger {
	return &Merger{goalThreshold: goalThreshold}
}

// Merge applies the field-priority rules: the signup is authoritative for
// phone and names, later sources only fill gaps. Email preference is
// personal, then institutional, then the matched contact's email.
func (m *Merger) Merge(
	c Candidate,
	setup *model.RawSetupRecord,
	campaign *model.RawCampaignMembership,
	match MatchResult,
) model.MentorRecord {
	rec := model.MentorRecord{
		MentorCode:        c.Signup.MentorCode,
		FirstName:         normalize.Text(c.Signup.FirstName),
		MiddleName:        normalize.Text(c.Signup.MiddleName),
		LastName:          normalize.Text(c.Signup.LastName),
		PreferredName:     normalize.Text(c.Signup.PreferredName),
		Phone:             c.Phone,
		Affiliation:       normalize.Text(c.Signup.Affiliation),
		AbsorbedCount:     c.Absorbed,
		SignupSubmittedAt: c.Signup.SubmittedAt,
	}

	switch {
	case normalize.Email(c.Signup.Email) != "":
		rec.Email = normalize.Email(c.Signup.Email)
	case normalize.Email(c.Signup.InstitutionEmail) != "":
		rec.Email = normalize.Email(c.Signup.InstitutionEmail)
	case match.Contact != nil:
		rec.Email = normalize.Email(match.Contact.Email)
	}

	if match.Contact != nil {
		id := match.Contact.ID
		rec.ContactID = &id
		// Contact fills name gaps only; the signup stays authoritative.
		if rec.FirstName == "" {
			rec.FirstName = normalize.Text(match.Contact.FirstName)
		}
		if rec.LastName == "" {
			rec.LastName = normalize.Text(match.Contact.LastName)
		}
	}

	if campaign != nil {
		rec.CampaignMember = true
		rec.AmountRaised = campaign.AmountRaised
	}
	rec.SetupDone = setup != nil

	rec.Status = m.status(rec)
	return rec
}

// status walks the lifecycle ladder top down; a mentor is in exactly one
// stage, first matching rule wins.
func (m *Merger) status(rec model.MentorRecord) model.Status {
	switch {
	case rec.AmountRaised >= m.goalThreshold:
		return model.StatusComplete
	case rec.CampaignMember:
		return model.StatusNeedsFundraising
	case rec.SetupDone:
		return model.StatusNeedsPage
	default:
		return model.StatusNeedsSetup
	}
}
