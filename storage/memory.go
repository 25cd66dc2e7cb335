package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/richinex/repolens/internal/dsa"
)

// InMemoryStorage implements Store with maps and a prefix index.
// Data is lost when process terminates.
type InMemoryStorage struct {
	mu         sync.RWMutex
	lastSource string
	runs       *dsa.Trie[Run]
}

// NewInMemoryStorage creates a new in-memory storage.
func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{runs: dsa.NewTrie[Run]()}
}

// LastSource returns the last recorded source identifier.
func (s *InMemoryStorage) LastSource(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSource, nil
}

// SetLastSource records ref.
func (s *InMemoryStorage) SetLastSource(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSource = ref
	return nil
}

// SaveRun stores run, replacing a run with the same ID.
func (s *InMemoryStorage) SaveRun(ctx context.Context, run Run) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs.Insert(run.ID, run)
	return nil
}

// GetRun resolves an ID or unique ID prefix.
func (s *InMemoryStorage) GetRun(ctx context.Context, idOrPrefix string) (Run, error) {
	if idOrPrefix == "" {
		return Run{}, ErrRunNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if run, ok := s.runs.Get(idOrPrefix); ok {
		return run, nil
	}
	switch found := s.runs.WithPrefix(idOrPrefix, 2); len(found) {
	case 0:
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, idOrPrefix)
	case 1:
		return found[0], nil
	default:
		return Run{}, fmt.Errorf("%w: %s", ErrAmbiguousID, idOrPrefix)
	}
}

// FindRun returns the newest run of source with fingerprint.
func (s *InMemoryStorage) FindRun(ctx context.Context, source, fingerprint string) (Run, bool, error) {
	var best Run
	found := false
	for _, r := range s.sorted() {
		if r.Source == source && r.Fingerprint == fingerprint {
			best, found = r, true
			break
		}
	}
	return best, found, nil
}

// ListRuns returns run summaries, newest first.
func (s *InMemoryStorage) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	runs := s.sorted()
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	out := make([]RunSummary, 0, len(runs))
	for _, r := range runs {
		out = append(out, r.Summary())
	}
	return out, nil
}

// sorted returns all runs, newest first.
func (s *InMemoryStorage) sorted() []Run {
	s.mu.RLock()
	runs := s.runs.WithPrefix("", 0)
	s.mu.RUnlock()

	sort.SliceStable(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
	return runs
}

// Close is a no-op.
func (s *InMemoryStorage) Close() error {
	return nil
}

// Verify InMemoryStorage implements Store
var _ Store = (*InMemoryStorage)(nil)
