package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const lastSourceKey = "last_source"

// SqliteStorage implements Store using SQLite.
// Thread-safe: sql.DB handles connection pooling and concurrent access.
type SqliteStorage struct {
	db *sql.DB
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteStorage, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	storage := &SqliteStorage{db: db}
	if err := storage.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteStorage, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}
	// Each connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	storage := &SqliteStorage{db: db}
	if err := storage.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// Close closes the database connection.
func (s *SqliteStorage) Close() error {
	return s.db.Close()
}

func (s *SqliteStorage) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			report TEXT NOT NULL,
			system_svg TEXT NOT NULL DEFAULT '',
			user_svg TEXT NOT NULL DEFAULT '',
			diagram_error TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_runs_created
		ON runs(created_at DESC);

		CREATE INDEX IF NOT EXISTS idx_runs_source_fingerprint
		ON runs(source, fingerprint, created_at DESC);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// LastSource returns the last recorded source identifier.
func (s *SqliteStorage) LastSource(ctx context.Context) (string, error) {
	var ref string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM state WHERE key = ?", lastSourceKey).Scan(&ref)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read last source: %w", err)
	}
	return ref, nil
}

// SetLastSource records ref as the last source identifier.
func (s *SqliteStorage) SetLastSource(ctx context.Context, ref string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = datetime('now')`,
		lastSourceKey, ref)
	if err != nil {
		return fmt.Errorf("failed to record last source: %w", err)
	}
	return nil
}

// SaveRun stores run, replacing a run with the same ID.
func (s *SqliteStorage) SaveRun(ctx context.Context, run Run) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
		(id, source, fingerprint, created_at, attempts, report, system_svg, user_svg, diagram_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Source,
		run.Fingerprint,
		run.CreatedAt.UnixNano(),
		run.Attempts,
		run.Report,
		run.SystemSVG,
		run.UserSVG,
		run.DiagramErr,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

const runColumns = "id, source, fingerprint, created_at, attempts, report, system_svg, user_svg, diagram_error"

func scanRun(row interface{ Scan(...any) error }) (Run, error) {
	var run Run
	var created int64
	err := row.Scan(&run.ID, &run.Source, &run.Fingerprint, &created, &run.Attempts,
		&run.Report, &run.SystemSVG, &run.UserSVG, &run.DiagramErr)
	if err != nil {
		return Run{}, err
	}
	run.CreatedAt = time.Unix(0, created)
	return run, nil
}

// GetRun resolves an ID or unique ID prefix.
func (s *SqliteStorage) GetRun(ctx context.Context, idOrPrefix string) (Run, error) {
	if idOrPrefix == "" {
		return Run{}, ErrRunNotFound
	}
	pattern := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(idOrPrefix) + "%"
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE id LIKE ? ESCAPE '\\' ORDER BY id LIMIT 2", pattern)
	if err != nil {
		return Run{}, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var found []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return Run{}, fmt.Errorf("failed to scan run: %w", err)
		}
		if run.ID == idOrPrefix {
			return run, nil
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return Run{}, fmt.Errorf("error iterating runs: %w", err)
	}

	switch len(found) {
	case 0:
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, idOrPrefix)
	case 1:
		return found[0], nil
	default:
		return Run{}, fmt.Errorf("%w: %s", ErrAmbiguousID, idOrPrefix)
	}
}

// FindRun returns the newest run of source with fingerprint.
func (s *SqliteStorage) FindRun(ctx context.Context, source, fingerprint string) (Run, bool, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE source = ? AND fingerprint = ? ORDER BY created_at DESC LIMIT 1",
		source, fingerprint)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("failed to find run: %w", err)
	}
	return run, true, nil
}

// ListRuns returns run summaries, newest first.
func (s *SqliteStorage) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit < 1 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, created_at, system_svg != '' AND user_svg != ''
		FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{} // Start with empty slice, not nil
	for rows.Next() {
		var r RunSummary
		var created int64
		if err := rows.Scan(&r.ID, &r.Source, &created, &r.HasDiagrams); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.CreatedAt = time.Unix(0, created)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// Verify SqliteStorage implements Store
var _ Store = (*SqliteStorage)(nil)
