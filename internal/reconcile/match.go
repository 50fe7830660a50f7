package reconcile

import (
	"fmt"
	"sort"

	"github.com/brightpath-mentoring/mentorsync/internal/identity"
	"github.com/brightpath-mentoring/mentorsync/internal/model"
	"github.com/brightpath-mentoring/mentorsync/internal/normalize"
)

// MatchTier identifies which waterfall tier produced a match. Lower tiers
// are more trustworthy: the external identifier is authoritative, phone is
// next, email is weakest.
type MatchTier int

const (
	TierNone MatchTier = iota
	TierExternalID
	TierPhone
	TierEmail
)

func (t MatchTier) String() string {
	switch t {
	case TierExternalID:
		return "external_id"
	case TierPhone:
		return "phone"
	case TierEmail:
		return "email"
	default:
		return "none"
	}
}

// MatchResult is the outcome of matching one candidate against the
// external contact set. Contact is nil when unmatched or ambiguous; an
// ambiguous tier yields a Conflict instead of a guess.
type MatchResult struct {
	Contact  *model.RawExternalContact
	Tier     MatchTier
	Conflict *model.ConflictRecord
}

// Matcher finds at most one external contact per candidate using a
// fixed-priority waterfall. The index must be treated as immutable for the
// duration of a run; Match is safe to call concurrently.
type Matcher struct {
	contacts    *identity.Index[model.RawExternalContact]
	countryCode string
}

// NewMatcher creates a Matcher over a prebuilt contact index.
func NewMatcher(contacts *identity.Index[model.RawExternalContact], countryCode string) *Matcher {
	return &Matcher{contacts: contacts, countryCode: countryCode}
}

// ContactKeys extracts normalized index keys from an external contact.
func ContactKeys(countryCode string) func(model.RawExternalContact) identity.Keys {
	return func(c model.RawExternalContact) identity.Keys {
		return identity.Keys{
			Phone:      normalize.Phone(countryCode, c.Phone),
			Emails:     []string{normalize.Email(c.Email)},
			ExternalID: c.ExternalID,
		}
	}
}

// Match walks the waterfall: external id, then phone, then either email on
// the candidate. The first tier with exactly one distinct contact wins and
// lower-priority tiers are not consulted. A tier with more than one
// distinct contact stops the search and reports ambiguity.
func (m *Matcher) Match(c Candidate) (MatchResult, error) {
	tiers := []struct {
		tier MatchTier
		hits []model.RawExternalContact
	}{
		{TierExternalID, m.contacts.ByExternalID(c.Signup.MentorCode)},
		{TierPhone, m.contacts.ByPhone(c.Phone)},
		{TierEmail, m.emailHits(c)},
	}

	for _, t := range tiers {
		distinct := distinctContacts(t.hits)
		switch len(distinct) {
		case 0:
			continue
		case 1:
			contact := distinct[0]
			return MatchResult{Contact: &contact, Tier: t.tier}, nil
		default:
			conflict, err := m.ambiguity(c, t.tier, distinct)
			if err != nil {
				return MatchResult{}, err
			}
			return MatchResult{Tier: t.tier, Conflict: &conflict}, nil
		}
	}

	// No contact in the CRM yet. Not an error; it will be created by the
	// downstream sync.
	return MatchResult{Tier: TierNone}, nil
}

func (m *Matcher) emailHits(c Candidate) []model.RawExternalContact {
	var hits []model.RawExternalContact
	for _, raw := range []string{c.Signup.Email, c.Signup.InstitutionEmail} {
		if e := normalize.Email(raw); e != "" {
			hits = append(hits, m.contacts.ByEmail(e)...)
		}
	}
	return hits
}

// ambiguity builds the conflict for a tier that produced several distinct
// contacts. The top two options are the most recently modified contacts;
// the recommendation prefers a contact that also agrees on a weaker key,
// falling back to recency.
func (m *Matcher) ambiguity(c Candidate, tier MatchTier, distinct []model.RawExternalContact) (model.ConflictRecord, error) {
	ordered := make([]model.RawExternalContact, len(distinct))
	copy(ordered, distinct)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].UpdatedAt.Equal(ordered[j].UpdatedAt) {
			return ordered[i].UpdatedAt.After(ordered[j].UpdatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})
	a, b := ordered[0], ordered[1]

	recommended, rationale := "a", fmt.Sprintf("contact %d modified more recently", a.ID)
	if m.agreesOnWeakerKey(c, b, tier) && !m.agreesOnWeakerKey(c, a, tier) {
		recommended = "b"
		rationale = fmt.Sprintf("contact %d also agrees on a secondary key", b.ID)
	} else if m.agreesOnWeakerKey(c, a, tier) {
		rationale = fmt.Sprintf("contact %d also agrees on a secondary key", a.ID)
	}

	return NewConflict(ConflictParams{
		MentorCode:  c.Signup.MentorCode,
		Kind:        model.ConflictAmbiguousContact,
		OptionA:     contactOption(a),
		OptionB:     contactOption(b),
		Recommended: recommended,
		Rationale:   fmt.Sprintf("%d contacts matched on %s; %s", len(distinct), tier, rationale),
		Severity:    model.SeverityMedium,
	})
}

// agreesOnWeakerKey reports whether the contact also matches the candidate
// on a key weaker than the ambiguous tier.
func (m *Matcher) agreesOnWeakerKey(c Candidate, contact model.RawExternalContact, tier MatchTier) bool {
	if tier < TierPhone {
		if p := normalize.Phone(m.countryCode, contact.Phone); p != "" && p == c.Phone {
			return true
		}
	}
	if tier < TierEmail {
		ce := normalize.Email(contact.Email)
		if ce != "" && (ce == normalize.Email(c.Signup.Email) || ce == normalize.Email(c.Signup.InstitutionEmail)) {
			return true
		}
	}
	return false
}

func contactOption(c model.RawExternalContact) model.ConflictOption {
	id := c.ID
	return model.ConflictOption{
		Label:     fmt.Sprintf("Contact %d (%s)", c.ID, c.DisplayName()),
		ContactID: &id,
		Value:     c.Email,
		Context: map[string]any{
			"phone":       c.Phone,
			"email":       c.Email,
			"external_id": c.ExternalID,
			"updated_at":  c.UpdatedAt,
		},
	}
}

func distinctContacts(hits []model.RawExternalContact) []model.RawExternalContact {
	seen := make(map[int64]bool, len(hits))
	var out []model.RawExternalContact
	for _, h := range hits {
		if !seen[h.ID] {
			seen[h.ID] = true
			out = append(out, h)
		}
	}
	return out
}
