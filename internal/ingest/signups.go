package ingest

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/brightpath-mentoring/mentorsync/internal/model"
)

// timeLayouts are tried in order when parsing export timestamps.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006 15:04",
	"01/02/2006",
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, eris.Errorf("ingest: unparseable timestamp %q", s)
}

// parseAmount reads a currency-ish export value ("$1,250.00") as a float.
func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("$", "", ",", "").Replace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, eris.Errorf("ingest: unparseable amount %q", s)
	}
	return v, nil
}

// LoadSignups reads the intake-form export. JSON exports decode directly;
// tabular exports go through the field map.
func LoadSignups(ctx context.Context, path string, fm *FieldMap) ([]model.RawSignup, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "ingest: signups cancelled")
	}
	f, err := format(path)
	if err != nil {
		return nil, err
	}
	if f == "json" {
		data, err := readText(path)
		if err != nil {
			return nil, err
		}
		var signups []model.RawSignup
		if err := json.Unmarshal(data, &signups); err != nil {
			return nil, eris.Wrapf(err, "ingest: parse signups %s", path)
		}
		return validateSignups(path, signups)
	}

	t, err := readTable(path, fm.Signup)
	if err != nil {
		return nil, err
	}
	signups := make([]model.RawSignup, 0, len(t.rows))
	for i, row := range t.rows {
		submitted, err := parseTime(t.get(row, "submitted_at"))
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: signups %s row %d", path, i+2)
		}
		signups = append(signups, model.RawSignup{
			SubmissionID:     strings.TrimSpace(t.get(row, "submission_id")),
			MentorCode:       strings.TrimSpace(t.get(row, "mentor_code")),
			FirstName:        t.get(row, "first_name"),
			MiddleName:       t.get(row, "middle_name"),
			LastName:         t.get(row, "last_name"),
			PreferredName:    t.get(row, "preferred_name"),
			Phone:            t.get(row, "phone"),
			Email:            t.get(row, "email"),
			InstitutionEmail: t.get(row, "institution_email"),
			Affiliation:      t.get(row, "affiliation"),
			SubmittedAt:      submitted,
		})
	}
	return validateSignups(path, signups)
}

// validateSignups enforces the one hard requirement on the mandatory
// source: every record carries a submission id.
func validateSignups(path string, signups []model.RawSignup) ([]model.RawSignup, error) {
	for i, s := range signups {
		if s.SubmissionID == "" {
			return nil, eris.Errorf("ingest: signups %s record %d missing submission id", path, i+1)
		}
	}
	zap.L().With(zap.String("component", "ingest")).Debug("loaded signups",
		zap.String("path", path), zap.Int("count", len(signups)))
	return signups, nil
}
