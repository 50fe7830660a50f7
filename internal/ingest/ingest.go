// Package ingest loads the raw record sets from exported files. It owns
// format detection (JSON, CSV, XLSX), character-set recovery for legacy
// exports, and the mapping from provider display labels to the stable
// field keys the rest of the pipeline reads.
package ingest

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/brightpath-mentoring/mentorsync/internal/model"
	"github.com/brightpath-mentoring/mentorsync/internal/reconcile"
)

// Paths names the input files for one run. Signups and Contacts are
// required; Setup and Campaign may be empty.
type Paths struct {
	Signups  string
	Contacts string
	Setup    string
	Campaign string
}

// BuildSources wires file loaders into the pipeline's source set. Loading
// is deferred until the pipeline asks, so a missing optional file surfaces
// as a degraded source rather than a wiring error.
func BuildSources(fm *FieldMap, p Paths) reconcile.Sources {
	src := reconcile.Sources{
		Signups: func(ctx context.Context) ([]model.RawSignup, error) {
			return LoadSignups(ctx, p.Signups, fm)
		},
		Contacts: func(ctx context.Context) ([]model.RawExternalContact, error) {
			return LoadContacts(ctx, p.Contacts, fm)
		},
	}
	if p.Setup != "" {
		src.Setup = func(ctx context.Context) ([]model.RawSetupRecord, error) {
			return LoadSetup(ctx, p.Setup, fm)
		}
	}
	if p.Campaign != "" {
		src.Campaign = func(ctx context.Context) ([]model.RawCampaignMembership, error) {
			return LoadCampaign(ctx, p.Campaign, fm)
		}
	}
	return src
}

// format classifies a path by extension.
func format(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json", nil
	case ".csv", ".txt":
		return "csv", nil
	case ".xlsx":
		return "xlsx", nil
	default:
		return "", eris.Errorf("ingest: unsupported file format %q", filepath.Ext(path))
	}
}
