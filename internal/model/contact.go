package model

import "time"

// Custom-field keys the pipeline reads from external contacts. Ingest maps
// the provider's display labels onto these stable keys before any component
// sees the record.
const (
	FieldTextInstructions = "text_instructions"
	FieldStatusCategory   = "status_category"
)

// RawExternalContact is a contact record from the donor/CRM platform.
// Mutable only through the separate sync-back step; read-only here.
type RawExternalContact struct {
	ID           int64             `json:"id"`
	ExternalID   string            `json:"external_id,omitempty"` // mirrors a mentor code once linked
	FirstName    string            `json:"first_name,omitempty"`
	LastName     string            `json:"last_name,omitempty"`
	Phone        string            `json:"phone,omitempty"`
	Email        string            `json:"email,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	CustomFields map[string]string `json:"custom_fields,omitempty"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// DisplayName renders the contact for humans (conflict options, logs).
func (c RawExternalContact) DisplayName() string {
	switch {
	case c.FirstName != "" && c.LastName != "":
		return c.FirstName + " " + c.LastName
	case c.FirstName != "":
		return c.FirstName
	case c.LastName != "":
		return c.LastName
	default:
		return ""
	}
}
