package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/strata/internal/canon"
	"github.com/roach88/strata/internal/engine"
)

//go:embed schema.sql
var schemaSQL string

const currentSchemaVersion = 1

// Store is a SQLite-backed journal.
type Store struct {
	db *sql.DB
}

// Run describes one recorded run.
type Run struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Fingerprint string `json:"fingerprint"`
}

// Open creates or opens a journal database at path. Use ":memory:" for a
// throwaway journal.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps ":memory:"
	// databases alive for the life of the store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// BeginRun registers a run. Registering an existing ID is a no-op.
func (s *Store) BeginRun(ctx context.Context, id, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, name)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// Append stores e under runID. Duplicate (run, seq) pairs are ignored.
func (s *Store) Append(ctx context.Context, runID string, e engine.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entries (run_id, seq, kind, layer_id, component, key, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`, runID, e.Seq, string(e.Kind), e.LayerID, e.Component, e.Key, e.Detail)
	if err != nil {
		return fmt.Errorf("append entry %d: %w", e.Seq, err)
	}
	return nil
}

// Recorder returns an engine.Journal appending to runID with ctx.
func (s *Store) Recorder(ctx context.Context, runID string) engine.Journal {
	return engine.JournalFunc(func(e engine.Entry) error {
		return s.Append(ctx, runID, e)
	})
}

// Entries returns the entries of runID ordered by seq.
// Returns an empty slice (not nil) if the run has no entries.
func (s *Store) Entries(ctx context.Context, runID string) ([]engine.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, kind, layer_id, component, key, detail
		FROM entries
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []engine.Entry{}
	for rows.Next() {
		var e engine.Entry
		var kind string
		if err := rows.Scan(&e.Seq, &kind, &e.LayerID, &e.Component, &e.Key, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Kind = engine.EntryKind(kind)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// Count returns the number of entries of kind in runID. An empty kind
// counts every entry.
func (s *Store) Count(ctx context.Context, runID string, kind engine.EntryKind) (int, error) {
	query := `SELECT COUNT(*) FROM entries WHERE run_id = ?`
	args := []any{runID}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// Runs lists recorded runs ordered by ID.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, fingerprint FROM runs ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Name, &r.Fingerprint); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Seal computes the run's trace fingerprint, stores it on the run and
// returns it. Layer IDs are left out so runs with different ID generators
// but identical behaviour share a fingerprint.
func (s *Store) Seal(ctx context.Context, runID string) (string, error) {
	entries, err := s.Entries(ctx, runID)
	if err != nil {
		return "", err
	}
	trace := make([]any, len(entries))
	for i, e := range entries {
		trace[i] = map[string]any{
			"seq":       e.Seq,
			"kind":      string(e.Kind),
			"component": e.Component,
			"key":       e.Key,
			"detail":    e.Detail,
		}
	}
	data, err := canon.Marshal(trace)
	if err != nil {
		return "", fmt.Errorf("seal run: %w", err)
	}
	fp := canon.Hash(canon.DomainTrace, data)

	if _, err := s.db.ExecContext(ctx, `UPDATE runs SET fingerprint = ? WHERE id = ?`, fp, runID); err != nil {
		return "", fmt.Errorf("seal run: %w", err)
	}
	return fp, nil
}
