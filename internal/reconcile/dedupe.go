// Package reconcile implements the entity-resolution pipeline: signup
// deduplication, contact matching, field merging, duplicate-contact
// detection, conflict recording, and the orchestrator that sequences them.
package reconcile

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightpath-mentoring/mentorsync/internal/model"
	"github.com/brightpath-mentoring/mentorsync/internal/normalize"
)

// Candidate is one deduplicated mentor candidate: the surviving signup,
// its normalized phone, and how many raw records it absorbed.
type Candidate struct {
	Signup   model.RawSignup
	Phone    string // normalized; empty means no usable phone
	Absorbed int    // raw records collapsed into this one, excluding itself
}

// Deduplicator collapses raw signups that share a normalized phone into
// one candidate each. It is the only place group membership is decided;
// downstream components assume phone uniqueness as an invariant.
type Deduplicator struct {
	countryCode      string
	codePrefix       string
	placeholderStart int
}

// NewDeduplicator creates a Deduplicator. Placeholder codes are allocated
// from placeholderStart upward, a reserved range that real codes never
// enter, and deterministically in input order so identical inputs yield
// identical codes run over run.
func NewDeduplicator(countryCode, codePrefix string, placeholderStart int) *Deduplicator {
	return &Deduplicator{
		countryCode:      countryCode,
		codePrefix:       codePrefix,
		placeholderStart: placeholderStart,
	}
}

// Dedupe assigns placeholder codes to signups lacking one, then collapses
// records sharing a normalized phone. The survivor of each group is the
// record with the most recent submission timestamp; equal timestamps keep
// the earlier record in input order. Every absorbed record and every
// unusable phone is reported as an error-log entry.
func (d *Deduplicator) Dedupe(signups []model.RawSignup) ([]Candidate, []model.ErrorLogEntry) {
	log := zap.L().With(zap.String("component", "dedupe"))

	var entries []model.ErrorLogEntry

	// Step A: placeholder assignment, in input order.
	next := d.placeholderStart
	assigned := make([]model.RawSignup, len(signups))
	for i, s := range signups {
		if s.MentorCode == "" {
			s.MentorCode = fmt.Sprintf("%s%d", d.codePrefix, next)
			next++
		}
		assigned[i] = s
	}

	// Step B: group by normalized phone. Order of first occurrence is
	// preserved so output is deterministic.
	type group struct {
		phone   string
		members []model.RawSignup
	}
	var groups []*group
	byPhone := make(map[string]*group)

	for _, s := range assigned {
		phone := normalize.Phone(d.countryCode, s.Phone)
		if phone == "" {
			// Zero-key records are never merged with each other.
			groups = append(groups, &group{phone: "", members: []model.RawSignup{s}})
			entries = append(entries, model.ErrorLogEntry{
				ID:          uuid.New().String(),
				MentorCode:  s.MentorCode,
				Kind:        model.ErrorMalformedPhone,
				Message:     fmt.Sprintf("signup %s has no usable phone (%q)", s.SubmissionID, s.Phone),
				Severity:    model.ErrorWarning,
				SourceTable: "raw_signups",
				Context:     map[string]any{"submission_id": s.SubmissionID, "raw_phone": s.Phone},
				CreatedAt:   time.Now().UTC(),
			})
			continue
		}
		if g, ok := byPhone[phone]; ok {
			g.members = append(g.members, s)
			continue
		}
		g := &group{phone: phone, members: []model.RawSignup{s}}
		byPhone[phone] = g
		groups = append(groups, g)
	}

	candidates := make([]Candidate, 0, len(groups))
	for _, g := range groups {
		survivor := g.members[0]
		for _, m := range g.members[1:] {
			if m.SubmittedAt.After(survivor.SubmittedAt) {
				survivor = m
			}
		}
		for _, m := range g.members {
			if m.SubmissionID == survivor.SubmissionID {
				continue
			}
			entries = append(entries, model.ErrorLogEntry{
				ID:          uuid.New().String(),
				MentorCode:  survivor.MentorCode,
				Kind:        model.ErrorDuplicateRecord,
				Message:     fmt.Sprintf("signup %s collapsed into %s (shared phone %s)", m.SubmissionID, survivor.SubmissionID, g.phone),
				Severity:    model.ErrorWarning,
				SourceTable: "raw_signups",
				Context: map[string]any{
					"absorbed_submission": m.SubmissionID,
					"absorbed_code":       m.MentorCode,
					"survivor_submission": survivor.SubmissionID,
				},
				CreatedAt: time.Now().UTC(),
			})
		}
		if n := len(g.members); n > 1 {
			log.Debug("collapsed duplicate signups",
				zap.String("phone", g.phone),
				zap.String("survivor", survivor.SubmissionID),
				zap.Int("absorbed", n-1),
			)
		}
		candidates = append(candidates, Candidate{
			Signup:   survivor,
			Phone:    g.phone,
			Absorbed: len(g.members) - 1,
		})
	}

	return candidates, entries
}
