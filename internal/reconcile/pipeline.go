package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/brightpath-mentoring/mentorsync/internal/config"
	"github.com/brightpath-mentoring/mentorsync/internal/identity"
	"github.com/brightpath-mentoring/mentorsync/internal/model"
	"github.com/brightpath-mentoring/mentorsync/internal/normalize"
	"github.com/brightpath-mentoring/mentorsync/internal/store"
)

// Sources supplies the four raw record sets for one run. Signups and
// Contacts are mandatory; Setup and Campaign may be nil. The pipeline
// assumes each loader materializes its records fully before returning.
type Sources struct {
	Signups  func(ctx context.Context) ([]model.RawSignup, error)
	Contacts func(ctx context.Context) ([]model.RawExternalContact, error)
	Setup    func(ctx context.Context) ([]model.RawSetupRecord, error)
	Campaign func(ctx context.Context) ([]model.RawCampaignMembership, error)
}

// Pipeline sequences one reconciliation run end to end. It is the only
// component aware of the full step order; everything below it is pure or
// read-only and independently testable.
type Pipeline struct {
	cfg    config.PipelineConfig
	store  store.Store
	writer *BatchWriter
	dedupe *Deduplicator
	merger *Merger
	dups   *DuplicateDetector
}

// New creates a Pipeline. The junk-contact pattern is compiled here so a
// bad configuration fails before any run starts.
func New(cfg config.PipelineConfig, st store.Store) (*Pipeline, error) {
	dups, err := NewDuplicateDetector(cfg.JunkNamePattern, cfg.CountryCode)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: compile junk pattern")
	}
	return &Pipeline{
		cfg:    cfg,
		store:  st,
		writer: NewBatchWriter(st, cfg.BatchSize, cfg.WritesPerSecond),
		dedupe: NewDeduplicator(cfg.CountryCode, cfg.CodePrefix, cfg.PlaceholderStart),
		merger: NewMerger(cfg.GoalThreshold),
		dups:   dups,
	}, nil
}

// Run executes the full batch: load, dedupe, match, merge, detect
// duplicates, persist, summarize. A mandatory source failure aborts with
// model.ErrFatalIngest; optional source failures degrade to info entries.
// Given identical inputs the produced mentor set is identical and no
// duplicate pending conflicts are created.
func (p *Pipeline) Run(ctx context.Context, src Sources) (*model.RunSummary, error) {
	log := zap.L().With(zap.String("component", "pipeline"))
	summary := &model.RunSummary{}

	run, err := p.store.CreateRun(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}
	fail := func(cause error) (*model.RunSummary, error) {
		if completeErr := p.store.CompleteRun(ctx, run.ID, model.RunStatusFailed, summary, cause.Error()); completeErr != nil {
			log.Warn("failed to mark run failed", zap.Error(completeErr))
		}
		return summary, cause
	}

	// Load. Mandatory sources abort the run; optional ones degrade.
	signups, err := src.Signups(ctx)
	if err != nil {
		return fail(eris.Wrapf(model.ErrFatalIngest, "load signups: %v", err))
	}
	contacts, err := src.Contacts(ctx)
	if err != nil {
		return fail(eris.Wrapf(model.ErrFatalIngest, "load external contacts: %v", err))
	}
	summary.TotalSignups = len(signups)

	var entries []model.ErrorLogEntry

	setup, entry := loadOptional(ctx, "raw_setup_records", src.Setup)
	if entry != nil {
		entries = append(entries, *entry)
	}
	campaign, entry := loadOptional(ctx, "raw_campaign_members", src.Campaign)
	if entry != nil {
		entries = append(entries, *entry)
	}

	// Dedupe.
	candidates, dedupeEntries := p.dedupe.Dedupe(signups)
	entries = append(entries, dedupeEntries...)
	summary.Deduplicated = len(candidates)

	// Index the contact set once; it is immutable for the rest of the run.
	contactIndex := identity.Build(contacts, ContactKeys(p.cfg.CountryCode))
	matcher := NewMatcher(contactIndex, p.cfg.CountryCode)

	// Match. Each candidate's match is independent and read-only against
	// the shared index, so fan out without locking.
	results := make([]MatchResult, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	workers := p.cfg.MatchWorkers
	if workers <= 0 {
		workers = 1
	}
	g.SetLimit(workers)
	for i, c := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := matcher.Match(c)
			if err != nil {
				return eris.Wrapf(err, "match candidate %s", c.Signup.MentorCode)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fail(eris.Wrap(err, "pipeline: match"))
	}

	// Enrichment lookups, keyed loosely by phone or either email.
	setupIndex := identity.Build(setup, func(r model.RawSetupRecord) identity.Keys {
		return identity.Keys{Phone: normalize.Phone(p.cfg.CountryCode, r.Phone), Emails: []string{normalize.Email(r.Email)}}
	})
	campaignIndex := identity.Build(campaign, func(r model.RawCampaignMembership) identity.Keys {
		return identity.Keys{Phone: normalize.Phone(p.cfg.CountryCode, r.Phone), Emails: []string{normalize.Email(r.Email)}}
	})

	// Merge.
	var conflicts []model.ConflictRecord
	mentors := make([]model.MentorRecord, 0, len(candidates))
	for i, c := range candidates {
		res := results[i]
		switch {
		case res.Conflict != nil:
			summary.Ambiguous++
			conflicts = append(conflicts, *res.Conflict)
		case res.Contact != nil:
			summary.Matched++
		default:
			summary.Unmatched++
		}

		setupRec := lookupOne(setupIndex, c)
		campaignRec := lookupOne(campaignIndex, c)
		mentors = append(mentors, p.merger.Merge(c, setupRec, campaignRec, res))
	}

	// Duplicate external contacts, reported independently of matching.
	entries = append(entries, p.dups.Detect(contacts)...)

	if err := ctx.Err(); err != nil {
		return fail(eris.Wrap(err, "pipeline: cancelled before write"))
	}

	// Suppress conflicts already pending with the same (subject, kind).
	pending, err := p.store.ListConflicts(ctx, model.ConflictPending)
	if err != nil {
		return fail(eris.Wrap(err, "pipeline: list pending conflicts"))
	}
	existing := make(map[string]bool, len(pending))
	for _, c := range pending {
		existing[conflictKey(c.MentorCode, c.Kind)] = true
	}
	fresh := conflicts[:0]
	for _, c := range conflicts {
		if existing[conflictKey(c.MentorCode, c.Kind)] {
			summary.ConflictsExisting++
			continue
		}
		fresh = append(fresh, c)
	}
	summary.ConflictsRaised = len(fresh)
	summary.ErrorsLogged = len(entries)

	// Persist. Batch failures are isolated; only infrastructure-level
	// cancellation propagates.
	writeRes, err := p.writer.WriteMentors(ctx, mentors)
	if err != nil {
		return fail(eris.Wrap(err, "pipeline: write mentors"))
	}
	summary.MentorsWritten = writeRes.Written
	summary.BatchesFailed = writeRes.BatchesFailed

	if _, failed, err := p.writer.AppendConflicts(ctx, fresh); err != nil {
		return fail(eris.Wrap(err, "pipeline: write conflicts"))
	} else if failed > 0 {
		summary.BatchesFailed += failed
	}
	if _, failed, err := p.writer.AppendErrors(ctx, entries); err != nil {
		return fail(eris.Wrap(err, "pipeline: write error log"))
	} else if failed > 0 {
		summary.BatchesFailed += failed
	}

	if err := p.store.CompleteRun(ctx, run.ID, model.RunStatusComplete, summary, ""); err != nil {
		log.Warn("failed to mark run complete", zap.Error(err))
	}

	log.Info("run complete",
		zap.String("run_id", run.ID),
		zap.Int("total_signups", summary.TotalSignups),
		zap.Int("deduplicated", summary.Deduplicated),
		zap.Int("matched", summary.Matched),
		zap.Int("unmatched", summary.Unmatched),
		zap.Int("ambiguous", summary.Ambiguous),
		zap.Int("conflicts_raised", summary.ConflictsRaised),
		zap.Int("errors_logged", summary.ErrorsLogged),
		zap.Int("mentors_written", summary.MentorsWritten),
		zap.Int("batches_failed", summary.BatchesFailed),
	)
	return summary, nil
}

func conflictKey(code string, kind model.ConflictKind) string {
	return code + "|" + string(kind)
}

// loadOptional loads an optional enrichment source. Absence or failure
// yields an info entry and the run continues without that enrichment.
func loadOptional[T any](ctx context.Context, table string, load func(context.Context) ([]T, error)) ([]T, *model.ErrorLogEntry) {
	if load == nil {
		return nil, nil
	}
	records, err := load(ctx)
	if err != nil {
		return nil, &model.ErrorLogEntry{
			ID:          uuid.New().String(),
			Kind:        model.ErrorMissingSource,
			Message:     fmt.Sprintf("optional source %s unavailable: %v", table, err),
			Severity:    model.ErrorInfo,
			SourceTable: table,
			CreatedAt:   time.Now().UTC(),
		}
	}
	return records, nil
}

// lookupOne finds at most one enrichment record for a candidate, phone
// first, then either email. First hit wins.
func lookupOne[T any](ix *identity.Index[T], c Candidate) *T {
	if hits := ix.ByPhone(c.Phone); len(hits) > 0 {
		return &hits[0]
	}
	for _, raw := range []string{c.Signup.Email, c.Signup.InstitutionEmail} {
		if e := normalize.Email(raw); e != "" {
			if hits := ix.ByEmail(e); len(hits) > 0 {
				return &hits[0]
			}
		}
	}
	return nil
}
