package engine

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// History persists benchmark rows in SQLite so runs can be compared over
// time.
type History struct {
	db   *sql.DB
	path string
}

// HistoryEntry is one stored benchmark row.
type HistoryEntry struct {
	ID        int64
	At        time.Time
	Src       string
	Backend   string
	BlockSize int
	Blocks    int64
	Bytes     int64
	Elapsed   time.Duration
	Err       string
}

// Throughput returns bytes per second, or 0 for failed runs.
func (h HistoryEntry) Throughput() float64 {
	if h.Err != "" || h.Elapsed <= 0 {
		return 0
	}
	return float64(h.Bytes) / h.Elapsed.Seconds()
}

// BackendTotal aggregates the successful runs of one backend.
type BackendTotal struct {
	Backend string
	Runs    int64
	Bytes   int64
	Elapsed time.Duration
}

// Throughput returns the mean bytes per second over all runs.
func (b BackendTotal) Throughput() float64 {
	if b.Elapsed <= 0 {
		return 0
	}
	return float64(b.Bytes) / b.Elapsed.Seconds()
}

// DefaultHistoryPath returns $XDG_STATE_HOME/blockio/history.db, falling
// back to ~/.local/state/blockio/history.db.
func DefaultHistoryPath() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "blockio", "history.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "blockio-history.db")
	}
	return filepath.Join(home, ".local", "state", "blockio", "history.db")
}

// OpenHistory opens (or creates) the history database at path. An empty
// path uses DefaultHistoryPath.
func OpenHistory(path string) (*History, error) {
	if path == "" {
		path = DefaultHistoryPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	h := &History{db: db, path: path}
	if err := h.init(); err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

func (h *History) init() error {
	_, err := h.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			at         INTEGER NOT NULL,
			src        TEXT NOT NULL,
			backend    TEXT NOT NULL,
			block_size INTEGER NOT NULL,
			blocks     INTEGER NOT NULL,
			bytes      INTEGER NOT NULL,
			elapsed    INTEGER NOT NULL,
			error      TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS runs_backend ON runs (backend);
	`)
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// Record stores results in a single transaction.
func (h *History) Record(ctx context.Context, src string, at time.Time, results []BenchResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO runs
		(at, src, backend, block_size, blocks, bytes, elapsed, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		var msg string
		if r.Err != nil {
			msg = r.Err.Error()
		}
		if _, err := stmt.ExecContext(ctx, at.UnixNano(), src, r.Method.String(), r.BlockSize,
			r.Blocks, r.Bytes, int64(r.Elapsed), msg); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert %s run %d: %w", r.Method, r.Run, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// List returns up to limit entries, newest first. A non-positive limit
// returns everything.
func (h *History) List(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := h.db.QueryContext(ctx, `SELECT id, at, src, backend, block_size, blocks, bytes, elapsed, error
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var (
			e       HistoryEntry
			at      int64
			elapsed int64
		)
		if err := rows.Scan(&e.ID, &at, &e.Src, &e.Backend, &e.BlockSize, &e.Blocks, &e.Bytes, &elapsed, &e.Err); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.At = time.Unix(0, at)
		e.Elapsed = time.Duration(elapsed)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Totals aggregates successful runs per backend, fastest first.
func (h *History) Totals(ctx context.Context) ([]BackendTotal, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT backend, COUNT(*), SUM(bytes), SUM(elapsed)
		FROM runs WHERE error = '' GROUP BY backend
		ORDER BY CAST(SUM(bytes) AS REAL) / MAX(SUM(elapsed), 1) DESC`)
	if err != nil {
		return nil, fmt.Errorf("query totals: %w", err)
	}
	defer rows.Close()

	var totals []BackendTotal
	for rows.Next() {
		var (
			t       BackendTotal
			elapsed int64
		)
		if err := rows.Scan(&t.Backend, &t.Runs, &t.Bytes, &elapsed); err != nil {
			return nil, fmt.Errorf("scan totals: %w", err)
		}
		t.Elapsed = time.Duration(elapsed)
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// Path returns the database file path.
func (h *History) Path() string {
	return h.path
}

// Close closes the database.
func (h *History) Close() error {
	return h.db.Close()
}
