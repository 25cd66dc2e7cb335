package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/richinex/repolens/model"
)

// Local reads files from a directory tree.
type Local struct {
	root string
	opts Options
}

// NewLocal creates a source for dir, which must exist.
func NewLocal(dir string, opts Options) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRef, dir, err)
	}
	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidRef, dir)
	}
	return &Local{root: abs, opts: opts}, nil
}

// Ref returns the absolute directory path.
func (l *Local) Ref() string {
	return l.root
}

// Fetch walks the directory in lexical order, skipping VCS, dependency and
// build directories.
func (l *Local) Fetch(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{Info: model.RepoInfo{Name: filepath.Base(l.root)}}

	err := filepath.WalkDir(l.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != l.root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		info, err := d.Info()
		if err != nil {
			return err
		}
		if !l.opts.wants(rel, info.Size()) {
			return nil
		}

		b, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", rel, err)
		}
		snap.Files = append(snap.Files, model.SourceFile{
			Name:    d.Name(),
			Path:    rel,
			Content: string(b),
			Size:    info.Size(),
		})
		if l.opts.full(len(snap.Files)) {
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
