package reconcile

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brightpath-mentoring/mentorsync/internal/identity"
	"github.com/brightpath-mentoring/mentorsync/internal/model"
)

// DuplicateDetector scans the external contact set for phone or email
// values shared by two or more contacts. It only reports; choosing a
// canonical contact may involve merging donor history and is left to a
// human.
type DuplicateDetector struct {
	junkName    *regexp.Regexp
	countryCode string
}

// NewDuplicateDetector creates a detector. junkPattern matches the
// auto-generated placeholder contact names the donor platform creates;
// those contacts are filtered out before collision detection rather than
// reported as duplicates.
func NewDuplicateDetector(junkPattern, countryCode string) (*DuplicateDetector, error) {
	re, err := regexp.Compile(junkPattern)
	if err != nil {
		return nil, err
	}
	return &DuplicateDetector{junkName: re, countryCode: countryCode}, nil
}

// Detect returns one warning entry per collision group of size >= 2,
// listing every contact id in the group. Output order is deterministic.
func (d *DuplicateDetector) Detect(contacts []model.RawExternalContact) []model.ErrorLogEntry {
	kept := make([]model.RawExternalContact, 0, len(contacts))
	for _, c := range contacts {
		if d.junkName.MatchString(strings.TrimSpace(c.DisplayName())) {
			continue
		}
		kept = append(kept, c)
	}

	ix := identity.Build(kept, ContactKeys(d.countryCode))

	var entries []model.ErrorLogEntry
	entries = append(entries, d.collisionEntries("phone", ix.PhoneCollisions())...)
	entries = append(entries, d.collisionEntries("email", ix.EmailCollisions())...)
	return entries
}

func (d *DuplicateDetector) collisionEntries(keyKind string, groups map[string][]model.RawExternalContact) []model.ErrorLogEntry {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]model.ErrorLogEntry, 0, len(keys))
	for _, k := range keys {
		group := groups[k]
		ids := make([]int64, len(group))
		for i, c := range group {
			ids[i] = c.ID
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		entries = append(entries, model.ErrorLogEntry{
			ID:          uuid.New().String(),
			Kind:        model.ErrorDuplicateContact,
			Message:     fmt.Sprintf("%d external contacts share %s %s", len(ids), keyKind, k),
			Severity:    model.ErrorWarning,
			SourceTable: "raw_external_contacts",
			Context:     map[string]any{"key_kind": keyKind, "key": k, "contact_ids": ids},
			CreatedAt:   time.Now().UTC(),
		})
	}
	return entries
}
