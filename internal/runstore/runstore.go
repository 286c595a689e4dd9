// Package runstore persists reduction-run history in SQLite: one row per
// run, plus per-phase timings and per-job records for later inspection.
package runstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// nowUTC returns the current UTC time as an ISO 8601 string.
func nowUTC() string { return time.Now().UTC().Format(time.RFC3339) }

// nullStr converts a sql.NullString to a plain string (empty if null).
func nullStr(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

var schema = `
CREATE TABLE IF NOT EXISTS runs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	scene        TEXT NOT NULL,
	node         TEXT NOT NULL,
	package_name TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	started_at   TEXT NOT NULL,
	finished_at  TEXT
);

CREATE TABLE IF NOT EXISTS run_phases (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      INTEGER NOT NULL REFERENCES runs(id),
	phase       TEXT NOT NULL,
	elapsed_ms  INTEGER NOT NULL,
	error       TEXT,
	recorded_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS run_jobs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      INTEGER NOT NULL REFERENCES runs(id),
	phase       TEXT NOT NULL,
	job_id      TEXT NOT NULL,
	dir         TEXT NOT NULL,
	duration_ms INTEGER NOT NULL
);
`

// Run is one recorded reduction run.
type Run struct {
	ID          int64
	Scene       string
	Node        string
	PackageName string
	Status      string
	StartedAt   string
	FinishedAt  string
}

// PhaseRecord is one recorded pipeline phase of a run.
type PhaseRecord struct {
	Phase      string
	ElapsedMS  int64
	Error      string
	RecordedAt string
}

// Store persists run history with SQLite.
type Store struct {
	db *sql.DB
}

// Open opens or creates a SQLite DB at path and applies the schema.
// Creates the parent directory if it does not exist.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// CreateRun inserts a new run in the running status and returns its id.
func (s *Store) CreateRun(scene, node, packageName string) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO runs(scene, node, package_name, status, started_at) VALUES(?, ?, ?, 'running', ?)",
		scene, node, packageName, nowUTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("create run: %w", err)
	}
	return res.LastInsertId()
}

// FinishRun records a run's terminal status.
func (s *Store) FinishRun(runID int64, status string) error {
	_, err := s.db.Exec(
		"UPDATE runs SET status = ?, finished_at = ? WHERE id = ?",
		status, nowUTC(), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run %d: %w", runID, err)
	}
	return nil
}

// RecordPhase appends one phase record to a run.
func (s *Store) RecordPhase(runID int64, phase string, elapsed time.Duration, phaseErr error) error {
	var errStr sql.NullString
	if phaseErr != nil {
		errStr = sql.NullString{String: phaseErr.Error(), Valid: true}
	}
	_, err := s.db.Exec(
		"INSERT INTO run_phases(run_id, phase, elapsed_ms, error, recorded_at) VALUES(?, ?, ?, ?, ?)",
		runID, phase, elapsed.Milliseconds(), errStr, nowUTC(),
	)
	if err != nil {
		return fmt.Errorf("record phase %s for run %d: %w", phase, runID, err)
	}
	return nil
}

// RecordJob appends one finished job to a run.
func (s *Store) RecordJob(runID int64, phase, jobID, dir string, duration time.Duration) error {
	_, err := s.db.Exec(
		"INSERT INTO run_jobs(run_id, phase, job_id, dir, duration_ms) VALUES(?, ?, ?, ?, ?)",
		runID, phase, jobID, dir, duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record job %s for run %d: %w", jobID, runID, err)
	}
	return nil
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns() ([]Run, error) {
	rows, err := s.db.Query(
		"SELECT id, scene, node, package_name, status, started_at, finished_at FROM runs ORDER BY id DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var finished sql.NullString
		if err := rows.Scan(&r.ID, &r.Scene, &r.Node, &r.PackageName, &r.Status, &r.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.FinishedAt = nullStr(finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

// PhasesForRun returns a run's phase records in recording order.
func (s *Store) PhasesForRun(runID int64) ([]PhaseRecord, error) {
	rows, err := s.db.Query(
		"SELECT phase, elapsed_ms, error, recorded_at FROM run_phases WHERE run_id = ? ORDER BY id",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("phases for run %d: %w", runID, err)
	}
	defer rows.Close()

	var out []PhaseRecord
	for rows.Next() {
		var p PhaseRecord
		var errStr sql.NullString
		if err := rows.Scan(&p.Phase, &p.ElapsedMS, &errStr, &p.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan phase: %w", err)
		}
		p.Error = nullStr(errStr)
		out = append(out, p)
	}
	return out, rows.Err()
}
