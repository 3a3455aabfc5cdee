package checkpoint

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/snakada/ecbridge/internal/config"
)

// Ledger records migration run history in SQLite. The durable resume state
// lives in the ID map; the ledger only answers "what ran, when, with what
// counts" for the status and history commands.
type Ledger struct {
	db *sql.DB
}

// Run is one migration invocation.
type Run struct {
	ID          string
	StartedAt   time.Time
	CompletedAt *time.Time
	Status      string
	DryRun      bool
	Config      string
}

// EntityResult holds the per-entity counters of a run.
type EntityResult struct {
	Entity  string
	Created int
	Linked  int
	Skipped int
	Failed  int
}

// New opens (creating if needed) the run ledger under dataDir.
func New(dataDir string) (*Ledger, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "ecbridge.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	l := &Ledger{db: db}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating ledger schema: %w", err)
	}
	return l, nil
}

func (l *Ledger) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		completed_at TEXT,
		status TEXT NOT NULL DEFAULT 'running',
		dry_run INTEGER NOT NULL DEFAULT 0,
		config TEXT
	);

	CREATE TABLE IF NOT EXISTS entity_runs (
		run_id TEXT REFERENCES runs(id),
		entity TEXT NOT NULL,
		created INTEGER DEFAULT 0,
		linked INTEGER DEFAULT 0,
		skipped INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		completed_at TEXT,
		PRIMARY KEY (run_id, entity)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// CreateRun registers a new run. The sanitized config snapshot is stored so a
// past run's settings can be inspected without the original file.
func (l *Ledger) CreateRun(runID string, cfg *config.Config) error {
	snapshot, err := json.Marshal(cfg.Sanitized())
	if err != nil {
		return fmt.Errorf("marshaling config snapshot: %w", err)
	}

	dryRun := 0
	if cfg.Migration.DryRun {
		dryRun = 1
	}
	_, err = l.db.Exec(
		`INSERT INTO runs (id, started_at, status, dry_run, config) VALUES (?, ?, 'running', ?, ?)`,
		runID, time.Now().UTC().Format(time.RFC3339), dryRun, string(snapshot))
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// CompleteRun marks a run finished with the given status
// ("completed", "completed_with_errors", "failed", "cancelled").
func (l *Ledger) CompleteRun(runID, status string) error {
	_, err := l.db.Exec(
		`UPDATE runs SET status = ?, completed_at = ? WHERE id = ?`,
		status, time.Now().UTC().Format(time.RFC3339), runID)
	if err != nil {
		return fmt.Errorf("completing run: %w", err)
	}
	return nil
}

// RecordEntity upserts the counters for one entity of a run.
func (l *Ledger) RecordEntity(runID string, r EntityResult) error {
	_, err := l.db.Exec(
		`INSERT INTO entity_runs (run_id, entity, created, linked, skipped, failed, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id, entity) DO UPDATE SET
		   created = excluded.created,
		   linked = excluded.linked,
		   skipped = excluded.skipped,
		   failed = excluded.failed,
		   completed_at = excluded.completed_at`,
		runID, r.Entity, r.Created, r.Linked, r.Skipped, r.Failed,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("recording %s counters: %w", r.Entity, err)
	}
	return nil
}

// LatestRun returns the most recent run and its entity counters, or
// (nil, nil, nil) when the ledger is empty.
func (l *Ledger) LatestRun() (*Run, []EntityResult, error) {
	row := l.db.QueryRow(
		`SELECT id, started_at, completed_at, status, dry_run, config
		 FROM runs ORDER BY started_at DESC LIMIT 1`)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	results, err := l.entityResults(run.ID)
	if err != nil {
		return nil, nil, err
	}
	return run, results, nil
}

// Runs returns up to limit runs, most recent first.
func (l *Ledger) Runs(limit int) ([]Run, error) {
	rows, err := l.db.Query(
		`SELECT id, started_at, completed_at, status, dry_run, config
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// EntityResults returns a run's per-entity counters.
func (l *Ledger) EntityResults(runID string) ([]EntityResult, error) {
	return l.entityResults(runID)
}

func (l *Ledger) entityResults(runID string) ([]EntityResult, error) {
	rows, err := l.db.Query(
		`SELECT entity, created, linked, skipped, failed
		 FROM entity_runs WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying entity counters: %w", err)
	}
	defer rows.Close()

	var results []EntityResult
	for rows.Next() {
		var r EntityResult
		if err := rows.Scan(&r.Entity, &r.Created, &r.Linked, &r.Skipped, &r.Failed); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		run         Run
		startedAt   string
		completedAt sql.NullString
		dryRun      int
		cfg         sql.NullString
	)
	if err := s.Scan(&run.ID, &startedAt, &completedAt, &run.Status, &dryRun, &cfg); err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	run.StartedAt = t

	if completedAt.Valid {
		t, err := time.Parse(time.RFC3339, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing completed_at: %w", err)
		}
		run.CompletedAt = &t
	}
	run.DryRun = dryRun != 0
	run.Config = cfg.String
	return &run, nil
}
