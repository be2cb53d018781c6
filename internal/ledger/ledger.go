// Package ledger persists run journals to SQLite.
//
// Every run flushes its evidence index, decision trace, and limits into
// four insert-only tables. Nothing is updated or deleted: a second flush
// of the same run adds only what is new, and an evidence id that a run
// already bound to a different artifact path is rejected.
//
// Usage:
//
//	store, err := ledger.Open("tokensmith.db")
//	defer store.Close()
//	err = store.Flush(ctx, snap.RunID, snap)
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yacobolo/tokensmith/internal/tokens"
)

// ErrEvidenceConflict is returned when an evidence id is re-bound to a different path
var ErrEvidenceConflict = errors.New("evidence id already bound to a different path")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id     TEXT PRIMARY KEY,
	flushed_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS evidence (
	run_id TEXT NOT NULL REFERENCES runs(run_id),
	id     TEXT NOT NULL,
	path   TEXT NOT NULL,
	PRIMARY KEY (run_id, id)
);
CREATE TABLE IF NOT EXISTS trace (
	run_id                TEXT NOT NULL REFERENCES runs(run_id),
	seq                   INTEGER NOT NULL,
	category              TEXT NOT NULL,
	conclusion            TEXT NOT NULL,
	evidence_paths        TEXT NOT NULL,
	rejected_alternatives TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);
CREATE TABLE IF NOT EXISTS limits (
	run_id  TEXT NOT NULL REFERENCES runs(run_id),
	kind    TEXT NOT NULL,
	subject TEXT NOT NULL,
	reason  TEXT NOT NULL,
	UNIQUE (run_id, kind, subject, reason)
);
`

const maxRetries = 3

type config struct {
	busyTimeout int
	logger      *slog.Logger
	now         func() time.Time
}

// Option customises Open
type Option func(*config)

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds. Default: 10000.
func WithBusyTimeout(ms int) Option { return func(c *config) { c.busyTimeout = ms } }

// WithLogger sets the logger used for flush progress
func WithLogger(l *slog.Logger) Option { return func(c *config) { c.logger = l } }

// WithClock overrides the flush timestamp source
func WithClock(now func() time.Time) Option { return func(c *config) { c.now = now } }

// Store is a SQLite-backed run ledger
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Open opens (creating if needed) the ledger database at path
func Open(path string, opts ...Option) (*Store, error) {
	cfg := config{busyTimeout: 10_000, now: time.Now}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("ledger: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.busyTimeout),
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("ledger: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: exec schema: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: ping: %w", err)
	}

	return &Store{db: db, logger: cfg.logger, now: cfg.now}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Flush writes a journal snapshot for runID. It is safe to call more
// than once for the same run; only entries not yet stored are added.
func (s *Store) Flush(ctx context.Context, runID string, snap tokens.Snapshot) error {
	if runID == "" {
		return fmt.Errorf("ledger: run id is empty")
	}
	var added [3]int
	err := s.runTx(ctx, func(tx *sql.Tx) error {
		added = [3]int{}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO runs (run_id, flushed_at) VALUES (?, ?) ON CONFLICT (run_id) DO NOTHING`,
			runID, s.now().UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("ledger: insert run: %w", err)
		}

		for _, e := range snap.Evidence {
			n, err := insertEvidence(ctx, tx, runID, e)
			if err != nil {
				return err
			}
			added[0] += n
		}

		for _, t := range snap.Trace {
			paths, err := json.Marshal(t.EvidencePaths)
			if err != nil {
				return fmt.Errorf("ledger: encode trace %d: %w", t.Seq, err)
			}
			res, err := tx.ExecContext(ctx,
				`INSERT INTO trace (run_id, seq, category, conclusion, evidence_paths, rejected_alternatives)
				 VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`,
				runID, t.Seq, string(t.Category), t.Conclusion, string(paths), t.RejectedAlternatives)
			if err != nil {
				return fmt.Errorf("ledger: insert trace %d: %w", t.Seq, err)
			}
			added[1] += affected(res)
		}

		for _, l := range snap.Limits {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO limits (run_id, kind, subject, reason) VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING`,
				runID, string(l.Kind), l.Subject, l.Reason)
			if err != nil {
				return fmt.Errorf("ledger: insert limit: %w", err)
			}
			added[2] += affected(res)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("ledger: flushed run",
		"run_id", runID,
		"evidence", added[0],
		"trace", added[1],
		"limits", added[2])
	return nil
}

func insertEvidence(ctx context.Context, tx *sql.Tx, runID string, e tokens.EvidenceEntry) (int, error) {
	var existing string
	err := tx.QueryRowContext(ctx,
		`SELECT path FROM evidence WHERE run_id = ? AND id = ?`, runID, e.ID).Scan(&existing)
	switch {
	case err == nil:
		if existing != e.Path {
			return 0, fmt.Errorf("ledger: %s in run %s (%s vs %s): %w", e.ID, runID, existing, e.Path, ErrEvidenceConflict)
		}
		return 0, nil
	case errors.Is(err, sql.ErrNoRows):
	default:
		return 0, fmt.Errorf("ledger: lookup evidence %s: %w", e.ID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO evidence (run_id, id, path) VALUES (?, ?, ?)`, runID, e.ID, e.Path); err != nil {
		return 0, fmt.Errorf("ledger: insert evidence %s: %w", e.ID, err)
	}
	return 1, nil
}

func affected(res sql.Result) int {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return int(n)
}

// Runs lists stored run ids in flush order
func (s *Store) Runs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id FROM runs ORDER BY flushed_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("ledger: query runs: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Snapshot reads back everything stored for runID
func (s *Store) Snapshot(ctx context.Context, runID string) (tokens.Snapshot, error) {
	snap := tokens.Snapshot{RunID: runID}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, path FROM evidence WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return snap, fmt.Errorf("ledger: query evidence: %w", err)
	}
	for rows.Next() {
		var e tokens.EvidenceEntry
		if err := rows.Scan(&e.ID, &e.Path); err != nil {
			rows.Close()
			return snap, err
		}
		snap.Evidence = append(snap.Evidence, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return snap, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT seq, category, conclusion, evidence_paths, rejected_alternatives
		 FROM trace WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return snap, fmt.Errorf("ledger: query trace: %w", err)
	}
	for rows.Next() {
		var (
			t     tokens.TraceEntry
			cat   string
			paths string
		)
		if err := rows.Scan(&t.Seq, &cat, &t.Conclusion, &paths, &t.RejectedAlternatives); err != nil {
			rows.Close()
			return snap, err
		}
		t.Category = tokens.TraceCategory(cat)
		if err := json.Unmarshal([]byte(paths), &t.EvidencePaths); err != nil {
			rows.Close()
			return snap, fmt.Errorf("ledger: decode trace %d: %w", t.Seq, err)
		}
		snap.Trace = append(snap.Trace, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return snap, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT kind, subject, reason FROM limits WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return snap, fmt.Errorf("ledger: query limits: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			l    tokens.Limit
			kind string
		)
		if err := rows.Scan(&kind, &l.Subject, &l.Reason); err != nil {
			return snap, err
		}
		l.Kind = tokens.LimitKind(kind)
		snap.Limits = append(snap.Limits, l)
	}
	return snap, rows.Err()
}

// runTx executes fn in a transaction, retrying on SQLITE_BUSY with
// 100/200/300 ms backoff.
func (s *Store) runTx(ctx context.Context, fn func(*sql.Tx) error) error {
	for i := range maxRetries {
		err := s.txOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !isBusy(err) || i == maxRetries-1 {
			return err
		}
		s.logger.Warn("ledger: database busy, retrying", "attempt", i+1)
		t := time.NewTimer(time.Duration(100*(i+1)) * time.Millisecond)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("ledger: context cancelled during retry: %w", ctx.Err())
		case <-t.C:
		}
	}
	return fmt.Errorf("ledger: max retries exceeded")
}

func (s *Store) txOnce(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledger: begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ledger: commit: %w", err)
	}
	return nil
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}
