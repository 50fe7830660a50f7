package ingest

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/brightpath-mentoring/mentorsync/internal/model"
)

// FieldMap translates provider display labels to stable field keys. The
// providers let admins rename form questions and custom fields at will, so
// the translation lives in configuration instead of code.
type FieldMap struct {
	Signup        map[string]string `yaml:"signup"`
	Setup         map[string]string `yaml:"setup"`
	Campaign      map[string]string `yaml:"campaign"`
	ContactFields map[string]string `yaml:"contact_fields"`
}

// DefaultFieldMap covers the labels the current exports use.
func DefaultFieldMap() *FieldMap {
	return &FieldMap{
		Signup: map[string]string{
			"submission id":     "submission_id",
			"mentor code":       "mentor_code",
			"first name":        "first_name",
			"middle name":       "middle_name",
			"last name":         "last_name",
			"preferred name":    "preferred_name",
			"phone number":      "phone",
			"email address":     "email",
			"school email":      "institution_email",
			"school / employer": "affiliation",
			"submission date":   "submitted_at",
		},
		Setup: map[string]string{
			"email address": "email",
			"phone number":  "phone",
			"completed":     "completed_at",
		},
		Campaign: map[string]string{
			"member id":     "member_id",
			"email address": "email",
			"phone number":  "phone",
			"raised":        "amount_raised",
			"goal":          "goal",
		},
		ContactFields: map[string]string{
			"contact id":    "id",
			"external id":   "external_id",
			"first name":    "first_name",
			"last name":     "last_name",
			"phone number":  "phone",
			"email address": "email",
			"last modified": "updated_at",

			"text message instructions": model.FieldTextInstructions,
			"mentor status":             model.FieldStatusCategory,
		},
	}
}

// LoadFieldMap reads a YAML field map and overlays it on the defaults, so
// a deployment only declares the labels that differ.
func LoadFieldMap(path string) (*FieldMap, error) {
	fm := DefaultFieldMap()
	if path == "" {
		return fm, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read field map %s", path)
	}
	var overlay FieldMap
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, eris.Wrapf(err, "ingest: parse field map %s", path)
	}
	merge(fm.Signup, overlay.Signup)
	merge(fm.Setup, overlay.Setup)
	merge(fm.Campaign, overlay.Campaign)
	merge(fm.ContactFields, overlay.ContactFields)
	return fm, nil
}

func merge(dst, src map[string]string) {
	for label, key := range src {
		dst[canonical(label)] = key
	}
}

// resolveLabel maps a display label through one section of the field map.
// Unmapped labels degrade to their canonical form, which already matches
// field keys for exports that use machine headers (submission_id, phone).
func resolveLabel(section map[string]string, label string) string {
	c := canonical(label)
	if key, ok := section[c]; ok {
		return key
	}
	return strings.ReplaceAll(c, " ", "_")
}

// canonical lowercases and collapses a label for case-insensitive lookup.
func canonical(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), " ")
}
