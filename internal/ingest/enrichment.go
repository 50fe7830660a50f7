package ingest

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/brightpath-mentoring/mentorsync/internal/model"
)

// LoadSetup reads the fundraising-setup export. The set is optional and
// loosely keyed; records with neither email nor phone are dropped since
// nothing could ever join them.
func LoadSetup(ctx context.Context, path string, fm *FieldMap) ([]model.RawSetupRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "ingest: setup cancelled")
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
		var records []model.RawSetupRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, eris.Wrapf(err, "ingest: parse setup %s", path)
		}
		return dropUnkeyedSetup(records), nil
	}

	t, err := readTable(path, fm.Setup)
	if err != nil {
		return nil, err
	}
	records := make([]model.RawSetupRecord, 0, len(t.rows))
	for i, row := range t.rows {
		completed, err := parseTime(t.get(row, "completed_at"))
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: setup %s row %d", path, i+2)
		}
		records = append(records, model.RawSetupRecord{
			Email:       t.get(row, "email"),
			Phone:       t.get(row, "phone"),
			CompletedAt: completed,
		})
	}
	return dropUnkeyedSetup(records), nil
}

func dropUnkeyedSetup(records []model.RawSetupRecord) []model.RawSetupRecord {
	kept := records[:0]
	for _, r := range records {
		if strings.TrimSpace(r.Email) == "" && strings.TrimSpace(r.Phone) == "" {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

// LoadCampaign reads the campaign-membership export from the donation
// platform, including running raised totals.
func LoadCampaign(ctx context.Context, path string, fm *FieldMap) ([]model.RawCampaignMembership, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "ingest: campaign cancelled")
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
		var members []model.RawCampaignMembership
		if err := json.Unmarshal(data, &members); err != nil {
			return nil, eris.Wrapf(err, "ingest: parse campaign %s", path)
		}
		return members, nil
	}

	t, err := readTable(path, fm.Campaign)
	if err != nil {
		return nil, err
	}
	members := make([]model.RawCampaignMembership, 0, len(t.rows))
	for i, row := range t.rows {
		raised, err := parseAmount(t.get(row, "amount_raised"))
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: campaign %s row %d", path, i+2)
		}
		goal, err := parseAmount(t.get(row, "goal"))
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: campaign %s row %d", path, i+2)
		}
		members = append(members, model.RawCampaignMembership{
			MemberID:     strings.TrimSpace(t.get(row, "member_id")),
			Email:        t.get(row, "email"),
			Phone:        t.get(row, "phone"),
			AmountRaised: raised,
			Goal:         goal,
		})
	}
	return members, nil
}
