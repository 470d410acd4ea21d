// Package state persists digest run records in a local SQLite database so
// operators can audit past runs and the scheduler can skip doubled windows.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/theimaginaryfoundation/digest-o-bot/digest/fileutils"
)

// maxNoteLen caps the stored note so a verbose delivery error cannot bloat
// the runs table.
const maxNoteLen = 200

// Run is one recorded pipeline execution.
type Run struct {
	ID          int64
	StartedAt   time.Time
	FinishedAt  time.Time
	WindowHours int
	Messages    int
	Candidates  int
	Bundles     int
	Chunks      int
	Delivered   bool
	Note        string
}

// Store wraps the runs database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	window_hours INTEGER NOT NULL,
	messages INTEGER NOT NULL,
	candidates INTEGER NOT NULL,
	bundles INTEGER NOT NULL,
	chunks INTEGER NOT NULL,
	delivered INTEGER NOT NULL,
	note TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Open opens (creating if needed) the runs database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("state open: path is empty")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("state open: %w", err)
	}
	// modernc sqlite is single-writer; more connections just contend.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("state open: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// RecordRun inserts one run record and returns its id.
func (s *Store) RecordRun(ctx context.Context, run Run) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("record run: store is closed")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (started_at, finished_at, window_hours, messages, candidates, bundles, chunks, delivered, note)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.FinishedAt.UTC().Format(time.RFC3339),
		run.WindowHours,
		run.Messages,
		run.Candidates,
		run.Bundles,
		run.Chunks,
		boolToInt(run.Delivered),
		fileutils.Truncate(run.Note, maxNoteLen),
	)
	if err != nil {
		return 0, fmt.Errorf("record run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("record run: last insert id: %w", err)
	}
	return id, nil
}

// LastRun returns the most recently started run, or ok=false when the store
// is empty.
func (s *Store) LastRun(ctx context.Context) (Run, bool, error) {
	if s == nil || s.db == nil {
		return Run{}, false, errors.New("last run: store is closed")
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, window_hours, messages, candidates, bundles, chunks, delivered, note
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT 1`)

	var run Run
	var started, finished string
	var delivered int
	err := row.Scan(&run.ID, &started, &finished, &run.WindowHours,
		&run.Messages, &run.Candidates, &run.Bundles, &run.Chunks, &delivered, &run.Note)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("last run: %w", err)
	}
	if t, perr := time.Parse(time.RFC3339, started); perr == nil {
		run.StartedAt = t
	}
	if t, perr := time.Parse(time.RFC3339, finished); perr == nil {
		run.FinishedAt = t
	}
	run.Delivered = delivered != 0
	return run, true, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
