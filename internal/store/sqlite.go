package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/brightpath-mentoring/mentorsync/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'running',
	summary     TEXT,
	error       TEXT,
	started_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
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
	contact_id          INTEGER,
	amount_raised       REAL NOT NULL DEFAULT 0,
	campaign_member     INTEGER NOT NULL DEFAULT 0,
	setup_done          INTEGER NOT NULL DEFAULT 0,
	status              TEXT NOT NULL,
	absorbed_count      INTEGER NOT NULL DEFAULT 0,
	signup_submitted_at DATETIME,
	updated_at          DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS conflicts (
	id          TEXT PRIMARY KEY,
	mentor_code TEXT NOT NULL DEFAULT '',
	kind        TEXT NOT NULL,
	option_a    TEXT NOT NULL,
	option_b    TEXT NOT NULL,
	recommended TEXT NOT NULL DEFAULT '',
	rationale   TEXT NOT NULL DEFAULT '',
	severity    TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'pending',
	detected_at DATETIME NOT NULL,
	resolved_at DATETIME,
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
	context      TEXT,
	resolved     INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_mentors_phone ON mentors(phone);
CREATE INDEX IF NOT EXISTS idx_mentors_status ON mentors(status);
CREATE INDEX IF NOT EXISTS idx_conflicts_status ON conflicts(status);
CREATE INDEX IF NOT EXISTS idx_conflicts_subject ON conflicts(mentor_code, kind);
CREATE INDEX IF NOT EXISTS idx_error_log_kind ON error_log(kind);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, started_at) VALUES (?, ?, ?)`,
		id, string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return &model.Run{ID: id, Status: model.RunStatusRunning, StartedAt: now}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, summary *model.RunSummary, runErr string) error {
	var summaryJSON any
	if summary != nil {
		b, err := json.Marshal(summary)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal summary")
		}
		summaryJSON = string(b)
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, summary = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(status), summaryJSON, runErr, time.Now().UTC(), runID,
	)
	return eris.Wrap(err, "sqlite: complete run")
}

// GetRun returns a single run by ID, or nil if no such run exists.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	var (
		r           model.Run
		summaryJSON sql.NullString
		errText     sql.NullString
		finished    sql.NullTime
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, status, summary, error, started_at, finished_at FROM runs WHERE id = ?`,
		runID,
	).Scan(&r.ID, &r.Status, &summaryJSON, &errText, &r.StartedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get run")
	}
	if summaryJSON.Valid && summaryJSON.String != "" {
		var sum model.RunSummary
		if err := json.Unmarshal([]byte(summaryJSON.String), &sum); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal summary")
		}
		r.Summary = &sum
	}
	r.Error = errText.String
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return &r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, summary, error, started_at, finished_at FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var (
			r           model.Run
			summaryJSON sql.NullString
			errText     sql.NullString
			finished    sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.Status, &summaryJSON, &errText, &r.StartedAt, &finished); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		if summaryJSON.Valid && summaryJSON.String != "" {
			var sum model.RunSummary
			if err := json.Unmarshal([]byte(summaryJSON.String), &sum); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal summary")
			}
			r.Summary = &sum
		}
		r.Error = errText.String
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

func (s *SQLiteStore) UpsertMentors(ctx context.Context, mentors []model.MentorRecord) (int64, error) {
	if len(mentors) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO mentors (
			mentor_code, first_name, middle_name, last_name, preferred_name,
			phone, email, affiliation, contact_id, amount_raised,
			campaign_member, setup_done, status, absorbed_count,
			signup_submitted_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(mentor_code) DO UPDATE SET
			first_name = excluded.first_name,
			middle_name = excluded.middle_name,
			last_name = excluded.last_name,
			preferred_name = excluded.preferred_name,
			phone = excluded.phone,
			email = excluded.email,
			affiliation = excluded.affiliation,
			contact_id = excluded.contact_id,
			amount_raised = excluded.amount_raised,
			campaign_member = excluded.campaign_member,
			setup_done = excluded.setup_done,
			status = excluded.status,
			absorbed_count = excluded.absorbed_count,
			signup_submitted_at = excluded.signup_submitted_at,
			updated_at = excluded.updated_at`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, m := range mentors {
		var contactID any
		if m.ContactID != nil {
			contactID = *m.ContactID
		}
		if _, err := stmt.ExecContext(ctx,
			m.MentorCode, m.FirstName, m.MiddleName, m.LastName, m.PreferredName,
			m.Phone, m.Email, m.Affiliation, contactID, m.AmountRaised,
			m.CampaignMember, m.SetupDone, string(m.Status), m.AbsorbedCount,
			m.SignupSubmittedAt, now,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert mentor %s", m.MentorCode)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert")
	}
	return int64(len(mentors)), nil
}

func (s *SQLiteStore) ListMentors(ctx context.Context) ([]model.MentorRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mentor_code, first_name, middle_name, last_name, preferred_name,
		       phone, email, affiliation, contact_id, amount_raised,
		       campaign_member, setup_done, status, absorbed_count, signup_submitted_at
		FROM mentors ORDER BY mentor_code`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list mentors")
	}
	defer rows.Close()

	var mentors []model.MentorRecord
	for rows.Next() {
		var (
			m         model.MentorRecord
			contactID sql.NullInt64
			submitted sql.NullTime
		)
		if err := rows.Scan(
			&m.MentorCode, &m.FirstName, &m.MiddleName, &m.LastName, &m.PreferredName,
			&m.Phone, &m.Email, &m.Affiliation, &contactID, &m.AmountRaised,
			&m.CampaignMember, &m.SetupDone, &m.Status, &m.AbsorbedCount, &submitted,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan mentor")
		}
		if contactID.Valid {
			id := contactID.Int64
			m.ContactID = &id
		}
		if submitted.Valid {
			m.SignupSubmittedAt = submitted.Time
		}
		mentors = append(mentors, m)
	}
	return mentors, eris.Wrap(rows.Err(), "sqlite: iterate mentors")
}

func (s *SQLiteStore) InsertConflicts(ctx context.Context, conflicts []model.ConflictRecord) error {
	if len(conflicts) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin insert conflicts")
	}
	defer tx.Rollback()

	for _, c := range conflicts {
		optA, err := json.Marshal(c.OptionA)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal option a")
		}
		optB, err := json.Marshal(c.OptionB)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal option b")
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO conflicts (
				id, mentor_code, kind, option_a, option_b, recommended,
				rationale, severity, status, detected_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.MentorCode, string(c.Kind), string(optA), string(optB),
			c.Recommended, c.Rationale, string(c.Severity), string(c.Status), c.DetectedAt,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert conflict %s", c.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit conflicts")
}

func (s *SQLiteStore) ListConflicts(ctx context.Context, status model.ConflictStatus) ([]model.ConflictRecord, error) {
	query := `
		SELECT id, mentor_code, kind, option_a, option_b, recommended,
		       rationale, severity, status, detected_at, resolved_at, resolved_by, decision
		FROM conflicts`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY detected_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list conflicts")
	}
	defer rows.Close()

	var conflicts []model.ConflictRecord
	for rows.Next() {
		var (
			c          model.ConflictRecord
			optA, optB string
			resolvedAt sql.NullTime
		)
		if err := rows.Scan(
			&c.ID, &c.MentorCode, &c.Kind, &optA, &optB, &c.Recommended,
			&c.Rationale, &c.Severity, &c.Status, &c.DetectedAt, &resolvedAt,
			&c.ResolvedBy, &c.Decision,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan conflict")
		}
		if err := json.Unmarshal([]byte(optA), &c.OptionA); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal option a")
		}
		if err := json.Unmarshal([]byte(optB), &c.OptionB); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal option b")
		}
		if resolvedAt.Valid {
			t := resolvedAt.Time
			c.ResolvedAt = &t
		}
		conflicts = append(conflicts, c)
	}
	return conflicts, eris.Wrap(rows.Err(), "sqlite: iterate conflicts")
}

func (s *SQLiteStore) ResolveConflict(ctx context.Context, id string, status model.ConflictStatus, resolvedBy, decision string) error {
	if status != model.ConflictResolved && status != model.ConflictSkipped {
		return eris.Wrapf(model.ErrValidation, "sqlite: resolve conflict: invalid target status %q", status)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE conflicts SET status = ?, resolved_at = ?, resolved_by = ?, decision = ? WHERE id = ? AND status = 'pending'`,
		string(status), time.Now().UTC(), resolvedBy, decision, id,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: resolve conflict")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: resolve conflict rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: conflict %s not found or not pending", id)
	}
	return nil
}

func (s *SQLiteStore) AppendErrors(ctx context.Context, entries []model.ErrorLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin append errors")
	}
	defer tx.Rollback()

	for _, e := range entries {
		var contextJSON any
		if e.Context != nil {
			b, err := json.Marshal(e.Context)
			if err != nil {
				return eris.Wrap(err, "sqlite: marshal error context")
			}
			contextJSON = string(b)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO error_log (id, mentor_code, kind, message, severity, source_table, context, resolved, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.MentorCode, string(e.Kind), e.Message, string(e.Severity),
			e.SourceTable, contextJSON, e.Resolved, e.CreatedAt,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert error entry %s", e.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit errors")
}

func (s *SQLiteStore) ListErrors(ctx context.Context, limit int) ([]model.ErrorLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mentor_code, kind, message, severity, source_table, context, resolved, created_at
		FROM error_log ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list errors")
	}
	defer rows.Close()

	var entries []model.ErrorLogEntry
	for rows.Next() {
		var (
			e           model.ErrorLogEntry
			contextJSON sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.MentorCode, &e.Kind, &e.Message, &e.Severity,
			&e.SourceTable, &contextJSON, &e.Resolved, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan error entry")
		}
		if contextJSON.Valid && contextJSON.String != "" {
			if err := json.Unmarshal([]byte(contextJSON.String), &e.Context); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal error context")
			}
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: iterate errors")
}
