// Package sqlite provides a durable core.PlanStore backed by SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/collegecompass/compass/core"
	_ "modernc.org/sqlite"
)

// Store implements core.PlanStore on a SQLite database. Version history is
// append-only: every Apply writes one version row plus the full active
// entry-id snapshot for that version, so any past version stays queryable.
type Store struct {
	db *sql.DB
}

var _ core.PlanStore = (*Store)(nil)

// New opens (creating if needed) the database at dbPath and prepares the
// schema.
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// WAL keeps readers unblocked while the integrator writes.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS plan_entries (
		student_id         TEXT NOT NULL,
		entry_id           TEXT NOT NULL,
		category           TEXT NOT NULL,
		text               TEXT NOT NULL,
		grades             INTEGER NOT NULL,
		url                TEXT NOT NULL DEFAULT '',
		deadline           TEXT,
		source_session_id  TEXT NOT NULL DEFAULT '',
		source_response_id TEXT NOT NULL DEFAULT '',
		added_at           INTEGER NOT NULL,
		version            INTEGER NOT NULL,
		PRIMARY KEY (student_id, entry_id)
	);

	CREATE TABLE IF NOT EXISTS plan_versions (
		student_id  TEXT NOT NULL,
		version     INTEGER NOT NULL,
		description TEXT NOT NULL,
		changed_at  INTEGER NOT NULL,
		actor       TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (student_id, version)
	);

	CREATE TABLE IF NOT EXISTS plan_snapshots (
		student_id TEXT NOT NULL,
		version    INTEGER NOT NULL,
		position   INTEGER NOT NULL,
		entry_id   TEXT NOT NULL,
		PRIMARY KEY (student_id, version, position)
	);
	CREATE INDEX IF NOT EXISTS idx_plan_snapshots_entry ON plan_snapshots(student_id, entry_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CurrentVersion implements core.PlanStore. A student with no plan yet is at
// version 0.
func (s *Store) CurrentVersion(ctx context.Context, studentID string) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM plan_versions WHERE student_id = ?`,
		studentID).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("read current version: %w", err)
	}
	return version, nil
}

// ActiveEntries implements core.PlanStore.
func (s *Store) ActiveEntries(ctx context.Context, studentID string) ([]core.PlanEntry, error) {
	version, err := s.CurrentVersion(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return s.entriesFor(ctx, studentID, version)
}

// EntriesForVersion implements core.PlanStore.
func (s *Store) EntriesForVersion(ctx context.Context, studentID string, version int) ([]core.PlanEntry, error) {
	current, err := s.CurrentVersion(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if version < 0 || version > current {
		return nil, fmt.Errorf("version %d does not exist for student %s", version, studentID)
	}
	return s.entriesFor(ctx, studentID, version)
}

func (s *Store) entriesFor(ctx context.Context, studentID string, version int) ([]core.PlanEntry, error) {
	if version == 0 {
		return []core.PlanEntry{}, nil
	}

	query := `
		SELECT e.student_id, e.entry_id, e.category, e.text, e.grades, e.url,
		       e.deadline, e.source_session_id, e.source_response_id,
		       e.added_at, e.version
		FROM plan_snapshots s
		JOIN plan_entries e ON e.student_id = s.student_id AND e.entry_id = s.entry_id
		WHERE s.student_id = ? AND s.version = ?
		ORDER BY s.position`

	rows, err := s.db.QueryContext(ctx, query, studentID, version)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []core.PlanEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (core.PlanEntry, error) {
	var (
		e        core.PlanEntry
		category string
		grades   uint8
		deadline sql.NullString
		addedAt  int64
	)
	err := rows.Scan(
		&e.StudentID, &e.EntryID, &category, &e.Text, &grades, &e.URL,
		&deadline, &e.Source.SessionID, &e.Source.ResponseID,
		&addedAt, &e.Version,
	)
	if err != nil {
		return core.PlanEntry{}, fmt.Errorf("scan entry row: %w", err)
	}

	e.Category = core.Category(category)
	e.Grades = core.GradeSetFromBits(grades)
	e.AddedAt = time.Unix(addedAt, 0).UTC()
	if deadline.Valid {
		due, err := time.Parse(time.DateOnly, deadline.String)
		if err == nil {
			e.Deadline = &due
		}
	}
	return e, nil
}

// Versions implements core.PlanStore, oldest first.
func (s *Store) Versions(ctx context.Context, studentID string) ([]core.PlanVersion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT student_id, version, description, changed_at, actor
		 FROM plan_versions WHERE student_id = ? ORDER BY version`,
		studentID)
	if err != nil {
		return nil, fmt.Errorf("query versions: %w", err)
	}
	defer rows.Close()

	versions := []core.PlanVersion{}
	for rows.Next() {
		var (
			v         core.PlanVersion
			changedAt int64
		)
		if err := rows.Scan(&v.StudentID, &v.Version, &v.Description, &changedAt, &v.Actor); err != nil {
			return nil, fmt.Errorf("scan version row: %w", err)
		}
		v.ChangedAt = time.Unix(changedAt, 0).UTC()
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// Apply implements core.PlanStore. The whole mutation runs in one
// transaction; the BaseVersion check inside the transaction turns a lost
// race into core.ErrWriteConflict instead of a duplicate version.
func (s *Store) Apply(ctx context.Context, m core.PlanMutation) (*core.PlanVersion, error) {
	if m.StudentID == "" {
		return nil, fmt.Errorf("student id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM plan_versions WHERE student_id = ?`,
		m.StudentID).Scan(&current)
	if err != nil {
		return nil, fmt.Errorf("read current version: %w", err)
	}
	if m.BaseVersion != current {
		return nil, fmt.Errorf("expected version %d, have %d: %w", m.BaseVersion, current, core.ErrWriteConflict)
	}

	next := current + 1
	now := time.Now().UTC()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO plan_versions (student_id, version, description, changed_at, actor)
		 VALUES (?, ?, ?, ?, ?)`,
		m.StudentID, next, m.Description, now.Unix(), m.Actor)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("version %d already written: %w", next, core.ErrWriteConflict)
		}
		return nil, fmt.Errorf("insert version: %w", err)
	}

	drop := make(map[string]bool, len(m.Deactivate))
	for _, id := range m.Deactivate {
		drop[id] = true
	}

	var active []string
	prev, err := tx.QueryContext(ctx,
		`SELECT entry_id FROM plan_snapshots WHERE student_id = ? AND version = ? ORDER BY position`,
		m.StudentID, current)
	if err != nil {
		return nil, fmt.Errorf("query previous snapshot: %w", err)
	}
	for prev.Next() {
		var id string
		if err := prev.Scan(&id); err != nil {
			prev.Close()
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		if !drop[id] {
			active = append(active, id)
		}
	}
	if err := prev.Err(); err != nil {
		prev.Close()
		return nil, err
	}
	prev.Close()

	for _, id := range m.Reactivate {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM plan_entries WHERE student_id = ? AND entry_id = ?`,
			m.StudentID, id).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("check entry %s: %w", id, err)
		}
		if exists == 0 {
			return nil, fmt.Errorf("cannot reactivate unknown entry %s", id)
		}
		active = append(active, id)
	}

	for _, e := range m.Insert {
		var deadline any
		if e.Deadline != nil {
			deadline = e.Deadline.Format(time.DateOnly)
		}
		// OR IGNORE keeps the insert idempotent under a retried mutation.
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO plan_entries
			 (student_id, entry_id, category, text, grades, url, deadline,
			  source_session_id, source_response_id, added_at, version)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.StudentID, e.EntryID, string(e.Category), e.Text, e.Grades.Bits(),
			e.URL, deadline, e.Source.SessionID, e.Source.ResponseID,
			e.AddedAt.Unix(), next)
		if err != nil {
			return nil, fmt.Errorf("insert entry: %w", err)
		}
		active = append(active, e.EntryID)
	}

	for pos, id := range active {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO plan_snapshots (student_id, version, position, entry_id)
			 VALUES (?, ?, ?, ?)`,
			m.StudentID, next, pos, id)
		if err != nil {
			return nil, fmt.Errorf("insert snapshot row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &core.PlanVersion{
		StudentID:   m.StudentID,
		Version:     next,
		Description: m.Description,
		ChangedAt:   now,
		Actor:       m.Actor,
	}, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
