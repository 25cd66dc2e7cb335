// Package storage keeps repolens state between invocations: the last source
// analyzed and the history of runs.
//
// Implementations:
// - SqliteStorage persists to a database file
// - InMemoryStorage is process-local, for tests and ephemeral use
package storage

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/richinex/repolens/model"
)

var (
	// ErrRunNotFound is returned when no run matches an ID or prefix.
	ErrRunNotFound = errors.New("run not found")

	// ErrAmbiguousID is returned when an ID prefix matches more than one run.
	ErrAmbiguousID = errors.New("run ID prefix is ambiguous")
)

// StateStore remembers the last source identifier. The value is advisory.
type StateStore interface {
	// LastSource returns "" when nothing was recorded.
	LastSource(ctx context.Context) (string, error)
	SetLastSource(ctx context.Context, ref string) error
}

// RunStore keeps finished runs.
type RunStore interface {
	SaveRun(ctx context.Context, run Run) error

	// GetRun resolves a full run ID or a unique prefix of one.
	GetRun(ctx context.Context, idOrPrefix string) (Run, error)

	// FindRun returns the newest run of source with the given fingerprint.
	FindRun(ctx context.Context, source, fingerprint string) (Run, bool, error)

	// ListRuns returns summaries, newest first. A limit below one returns all.
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
}

// Store is the full storage surface.
type Store interface {
	StateStore
	RunStore
	Close() error
}

// Run is one stored pipeline result.
type Run struct {
	ID          string
	Source      string
	Fingerprint string
	CreatedAt   time.Time
	Attempts    int
	Report      string
	SystemSVG   string
	UserSVG     string
	DiagramErr  string
}

// RunSummary is a Run without its content.
type RunSummary struct {
	ID          string
	Source      string
	CreatedAt   time.Time
	HasDiagrams bool
}

// Summary returns the summary of r.
func (r Run) Summary() RunSummary {
	return RunSummary{
		ID:          r.ID,
		Source:      r.Source,
		CreatedAt:   r.CreatedAt,
		HasDiagrams: r.SystemSVG != "" && r.UserSVG != "",
	}
}

// Fingerprint hashes the model name and every file path and content. Two
// runs with equal fingerprints would send the same prompt.
func Fingerprint(modelName string, files []model.SourceFile) string {
	d := xxhash.New()
	var sep [8]byte
	write := func(s string) {
		binary.LittleEndian.PutUint64(sep[:], uint64(len(s)))
		_, _ = d.Write(sep[:])
		_, _ = d.WriteString(s)
	}
	write(modelName)
	for _, f := range files {
		write(f.Path)
		write(f.Content)
	}
	var sum [8]byte
	binary.BigEndian.PutUint64(sum[:], d.Sum64())
	return hex.EncodeToString(sum[:])
}

// Open returns a SQLite store at path, or an in-memory store when path is
// empty or ":memory:".
func Open(path string) (Store, error) {
	if path == "" || path == ":memory:" {
		return NewInMemoryStorage(), nil
	}
	return OpenSqlite(path)
}
