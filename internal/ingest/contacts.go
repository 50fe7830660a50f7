package ingest

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/brightpath-mentoring/mentorsync/internal/model"
)

// contactExport mirrors the CRM's JSON export, where custom fields arrive
// as label/value pairs under whatever display names the admins chose.
type contactExport struct {
	ID           int64    `json:"id"`
	ExternalID   string   `json:"external_id"`
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	Phone        string   `json:"phone"`
	Email        string   `json:"email"`
	Tags         []string `json:"tags"`
	CustomFields []struct {
		Label string `json:"label"`
		Value string `json:"value"`
	} `json:"custom_fields"`
	UpdatedAt string `json:"updated_at"`
}

// LoadContacts reads the CRM contact export and rewrites custom-field
// display labels to stable keys, so a renamed field never silently breaks
// downstream readers.
func LoadContacts(ctx context.Context, path string, fm *FieldMap) ([]model.RawExternalContact, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "ingest: contacts cancelled")
	}
	f, err := format(path)
	if err != nil {
		return nil, err
	}
	var contacts []model.RawExternalContact
	if f == "json" {
		contacts, err = loadContactsJSON(path, fm)
	} else {
		contacts, err = loadContactsTable(path, fm)
	}
	if err != nil {
		return nil, err
	}
	zap.L().With(zap.String("component", "ingest")).Debug("loaded contacts",
		zap.String("path", path), zap.Int("count", len(contacts)))
	return contacts, nil
}

func loadContactsJSON(path string, fm *FieldMap) ([]model.RawExternalContact, error) {
	data, err := readText(path)
	if err != nil {
		return nil, err
	}
	var exports []contactExport
	if err := json.Unmarshal(data, &exports); err != nil {
		return nil, eris.Wrapf(err, "ingest: parse contacts %s", path)
	}
	contacts := make([]model.RawExternalContact, 0, len(exports))
	for i, e := range exports {
		updated, err := parseTime(e.UpdatedAt)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: contacts %s record %d", path, i+1)
		}
		c := model.RawExternalContact{
			ID:         e.ID,
			ExternalID: e.ExternalID,
			FirstName:  e.FirstName,
			LastName:   e.LastName,
			Phone:      e.Phone,
			Email:      e.Email,
			Tags:       e.Tags,
			UpdatedAt:  updated,
		}
		for _, field := range e.CustomFields {
			if field.Value == "" {
				continue
			}
			if c.CustomFields == nil {
				c.CustomFields = make(map[string]string)
			}
			c.CustomFields[resolveLabel(fm.ContactFields, field.Label)] = field.Value
		}
		contacts = append(contacts, c)
	}
	return contacts, nil
}

func loadContactsTable(path string, fm *FieldMap) ([]model.RawExternalContact, error) {
	t, err := readTable(path, fm.ContactFields)
	if err != nil {
		return nil, err
	}
	contacts := make([]model.RawExternalContact, 0, len(t.rows))
	for i, row := range t.rows {
		idRaw := strings.TrimSpace(t.get(row, "id"))
		id, err := strconv.ParseInt(idRaw, 10, 64)
		if err != nil {
			return nil, eris.Errorf("ingest: contacts %s row %d has bad id %q", path, i+2, idRaw)
		}
		updated, err := parseTime(t.get(row, "updated_at"))
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: contacts %s row %d", path, i+2)
		}
		c := model.RawExternalContact{
			ID:         id,
			ExternalID: strings.TrimSpace(t.get(row, "external_id")),
			FirstName:  t.get(row, "first_name"),
			LastName:   t.get(row, "last_name"),
			Phone:      t.get(row, "phone"),
			Email:      t.get(row, "email"),
			UpdatedAt:  updated,
		}
		if tags := strings.TrimSpace(t.get(row, "tags")); tags != "" {
			for _, tag := range strings.Split(tags, ",") {
				if tag = strings.TrimSpace(tag); tag != "" {
					c.Tags = append(c.Tags, tag)
				}
			}
		}
		for _, key := range []string{model.FieldTextInstructions, model.FieldStatusCategory} {
			if v := t.get(row, key); v != "" {
				if c.CustomFields == nil {
					c.CustomFields = make(map[string]string)
				}
				c.CustomFields[key] = v
			}
		}
		contacts = append(contacts, c)
	}
	return contacts, nil
}
