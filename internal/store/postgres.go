package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/brightpath-mentoring/mentorsync/internal/db"
	"github.com/brightpath-mentoring/mentorsync/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'running',
	summary     JSONB,
	error       TEXT NOT NULL DEFAULT '',
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS mentors (
	mentor_code         TEXT PRIMARY KEY,
	first_name          TEXT NOT NULL DEFAULT '',
	middle_name         TEXT NOT NULL DEFAULT '',
	last_name           TEXT NOT NULL DEFAULT '',
	preferred_name      TEXT NOT NULL DEFAULT '',
	phone               TEXT NOT NULL DEFAULT '',
	email               TEXT NOT NULL DEFAULT '',
	affiliation         TEXT NOT NULL DEFAULT '',
	contact_id          BIGINT,
	amount_raised       DOUBLE PRECISION NOT NULL DEFAULT 0,
	campaign_member     BOOLEAN NOT NULL DEFAULT FALSE,
	setup_done          BOOLEAN NOT NULL DEFAULT FALSE,
	status              TEXT NOT NULL,
	absorbed_count      INTEGER NOT NULL DEFAULT 0,
	signup_submitted_at TIMESTAMPTZ,
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS conflicts (
	id          TEXT PRIMARY KEY,
	mentor_code TEXT NOT NULL DEFAULT '',
	kind        TEXT NOT NULL,
	option_a    JSONB NOT NULL,
	option_b    JSONB NOT NULL,
	recommended TEXT NOT NULL DEFAULT '',
	rationale   TEXT NOT NULL DEFAULT '',
	severity    TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'pending',
	detected_at TIMESTAMPTZ NOT NULL,
	resolved_at TIMESTAMPTZ,
	resolved_by TEXT NOT NULL DEFAULT '',
	decision    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS error_log (
	id           TEXT PRIMARY KEY,
	mentor_code  TEXT NOT NULL DEFAULT '',
	kind         TEXT NOT NULL,
	message      TEXT NOT NULL,
	severity     TEXT NOT NULL,
	source_table TEXT NOT NULL DEFAULT '',
	context      JSONB,
	resolved     BOOLEAN NOT NULL DEFAULT FALSE,
	created_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_mentors_phone ON mentors(phone);
CREATE INDEX IF NOT EXISTS idx_mentors_status ON mentors(status);
CREATE INDEX IF NOT EXISTS idx_conflicts_status ON conflicts(status);
CREATE INDEX IF NOT EXISTS idx_conflicts_subject ON conflicts(mentor_code, kind);
CREATE INDEX IF NOT EXISTS idx_error_log_kind ON error_log(kind);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, status, started_at) VALUES ($1, $2, $3)`,
		id, string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return &model.Run{ID: id, Status: model.RunStatusRunning, StartedAt: now}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, summary *model.RunSummary, runErr string) error {
	var summaryJSON []byte
	if summary != nil {
		b, err := json.Marshal(summary)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal summary")
		}
		summaryJSON = b
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, summary = $2, error = $3, finished_at = $4 WHERE id = $5`,
		string(status), summaryJSON, runErr, time.Now().UTC(), runID,
	)
	return eris.Wrap(err, "postgres: complete run")
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, status, summary, error, started_at, finished_at FROM runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var (
			r           model.Run
			summaryJSON []byte
			finished    *time.Time
		)
		if err := rows.Scan(&r.ID, &r.Status, &summaryJSON, &r.Error, &r.StartedAt, &finished); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if len(summaryJSON) > 0 {
			var sum model.RunSummary
			if err := json.Unmarshal(summaryJSON, &sum); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal summary")
			}
			r.Summary = &sum
		}
		r.FinishedAt = finished
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}

var mentorColumns = []string{
	"mentor_code", "first_name", "middle_name", "last_name", "preferred_name",
	"phone", "email", "affiliation", "contact_id", "amount_raised",
	"campaign_member", "setup_done", "status", "absorbed_count",
	"signup_submitted_at", "updated_at",
}

func (s *PostgresStore) UpsertMentors(ctx context.Context, mentors []model.MentorRecord) (int64, error) {
	if len(mentors) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	rows := make([][]any, len(mentors))
	for i, m := range mentors {
		var contactID any
		if m.ContactID != nil {
			contactID = *m.ContactID
		}
		rows[i] = []any{
			m.MentorCode, m.FirstName, m.MiddleName, m.LastName, m.PreferredName,
			m.Phone, m.Email, m.Affiliation, contactID, m.AmountRaised,
			m.CampaignMember, m.SetupDone, string(m.Status), m.AbsorbedCount,
			m.SignupSubmittedAt, now,
		}
	}
	return db.Upsert(ctx, s.pool, db.UpsertConfig{
		Table:        "mentors",
		Columns:      mentorColumns,
		ConflictKeys: []string{"mentor_code"},
	}, rows)
}

func (s *PostgresStore) ListMentors(ctx context.Context) ([]model.MentorRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT mentor_code, first_name, middle_name, last_name, preferred_name,
		       phone, email, affiliation, contact_id, amount_raised,
		       campaign_member, setup_done, status, absorbed_count, signup_submitted_at
		FROM mentors ORDER BY mentor_code`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list mentors")
	}
	defer rows.Close()

	var mentors []model.MentorRecord
	for rows.Next() {
		var (
			m         model.MentorRecord
			contactID *int64
			submitted *time.Time
		)
		if err := rows.Scan(
			&m.MentorCode, &m.FirstName, &m.MiddleName, &m.LastName, &m.PreferredName,
			&m.Phone, &m.Email, &m.Affiliation, &contactID, &m.AmountRaised,
			&m.CampaignMember, &m.SetupDone, &m.Status, &m.AbsorbedCount, &submitted,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan mentor")
		}
		m.ContactID = contactID
		if submitted != nil {
			m.SignupSubmittedAt = *submitted
		}
		mentors = append(mentors, m)
	}
	return mentors, eris.Wrap(rows.Err(), "postgres: iterate mentors")
}

func (s *PostgresStore) InsertConflicts(ctx context.Context, conflicts []model.ConflictRecord) error {
	if len(conflicts) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin insert conflicts")
	}
	defer tx.Rollback(ctx)

	for _, c := range conflicts {
		optA, err := json.Marshal(c.OptionA)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal option a")
		}
		optB, err := json.Marshal(c.OptionB)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal option b")
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO conflicts (
				id, mentor_code, kind, option_a, option_b, recommended,
				rationale, severity, status, detected_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			c.ID, c.MentorCode, string(c.Kind), optA, optB,
			c.Recommended, c.Rationale, string(c.Severity), string(c.Status), c.DetectedAt,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert conflict %s", c.ID)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit conflicts")
}

func (s *PostgresStore) ListConflicts(ctx context.Context, status model.ConflictStatus) ([]model.ConflictRecord, error) {
	query := `
		SELECT id, mentor_code, kind, option_a, option_b, recommended,
		       rationale, severity, status, detected_at, resolved_at, resolved_by, decision
		FROM conflicts`
	var args []any
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}
	query += ` ORDER BY detected_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list conflicts")
	}
	defer rows.Close()

	var conflicts []model.ConflictRecord
	for rows.Next() {
		var (
			c          model.ConflictRecord
			optA, optB []byte
			resolvedAt *time.Time
		)
		if err := rows.Scan(
			&c.ID, &c.MentorCode, &c.Kind, &optA, &optB, &c.Recommended,
			&c.Rationale, &c.Severity, &c.Status, &c.DetectedAt, &resolvedAt,
			&c.ResolvedBy, &c.Decision,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan conflict")
		}
		if err := json.Unmarshal(optA, &c.OptionA); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal option a")
		}
		if err := json.Unmarshal(optB, &c.OptionB); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal option b")
		}
		c.ResolvedAt = resolvedAt
		conflicts = append(conflicts, c)
	}
	return conflicts, eris.Wrap(rows.Err(), "postgres: iterate conflicts")
}

func (s *PostgresStore) ResolveConflict(ctx context.Context, id string, status model.ConflictStatus, resolvedBy, decision string) error {
	if status != model.ConflictResolved && status != model.ConflictSkipped {
		return eris.Wrapf(model.ErrValidation, "postgres: resolve conflict: invalid target status %q", status)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE conflicts SET status = $1, resolved_at = $2, resolved_by = $3, decision = $4 WHERE id = $5 AND status = 'pending'`,
		string(status), time.Now().UTC(), resolvedBy, decision, id,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: resolve conflict")
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: conflict %s not found or not pending", id)
	}
	return nil
}

func (s *PostgresStore) AppendErrors(ctx context.Context, entries []model.ErrorLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin append errors")
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		var contextJSON []byte
		if e.Context != nil {
			b, err := json.Marshal(e.Context)
			if err != nil {
				return eris.Wrap(err, "postgres: marshal error context")
			}
			contextJSON = b
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO error_log (id, mentor_code, kind, message, severity, source_table, context, resolved, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			e.ID, e.MentorCode, string(e.Kind), e.Message, string(e.Severity),
			e.SourceTable, contextJSON, e.Resolved, e.CreatedAt,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert error entry %s", e.ID)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit errors")
}

func (s *PostgresStore) ListErrors(ctx context.Context, limit int) ([]model.ErrorLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, mentor_code, kind, message, severity, source_table, context, resolved, created_at
		FROM error_log ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list errors")
	}
	defer rows.Close()

	var entries []model.ErrorLogEntry
	for rows.Next() {
		var (
			e           model.ErrorLogEntry
			contextJSON []byte
		)
		if err := rows.Scan(&e.ID, &e.MentorCode, &e.Kind, &e.Message, &e.Severity,
			&e.SourceTable, &contextJSON, &e.Resolved, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan error entry")
		}
		if len(contextJSON) > 0 {
			if err := json.Unmarshal(contextJSON, &e.Context); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal error context")
			}
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: iterate errors")
}

// GetRun returns a single run by id, nil if absent.
func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	var (
		r           model.Run
		summaryJSON []byte
		finished    *time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, status, summary, error, started_at, finished_at FROM runs WHERE id = $1`, runID,
	).Scan(&r.ID, &r.Status, &summaryJSON, &r.Error, &r.StartedAt, &finished)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get run")
	}
	if len(summaryJSON) > 0 {
		var sum model.RunSummary
		if err := json.Unmarshal(summaryJSON, &sum); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal summary")
		}
		r.Summary = &sum
	}
	r.FinishedAt = finished
	return &r, nil
}
