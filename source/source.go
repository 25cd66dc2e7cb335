// Package source loads project files from a local directory or a GitHub
// repository.
package source

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/richinex/repolens/model"
)

var (
	// ErrNotFound is returned when the directory or repository does not exist.
	ErrNotFound = errors.New("source not found")

	// ErrInvalidRef is returned for a reference that is neither a directory
	// nor a GitHub repository URL.
	ErrInvalidRef = errors.New("invalid source reference")
)

// Source fetches a snapshot of project files.
type Source interface {
	// Ref identifies the source; passing it to Open yields the same source.
	Ref() string
	Fetch(ctx context.Context) (Snapshot, error)
}

// Snapshot is the result of a fetch. Files keep walk order.
type Snapshot struct {
	Info  model.RepoInfo
	Files []model.SourceFile
}

// Options narrow what a fetch returns.
type Options struct {
	// Include reports whether a file path is wanted. Nil keeps every text file.
	Include func(path string) bool
	// Limit stops the fetch after that many files. Zero means no limit.
	Limit int
	// MaxFileSize skips larger files. Zero means no limit.
	MaxFileSize int64
}

// DefaultMaxFileSize keeps generated or vendored blobs out of a fetch.
const DefaultMaxFileSize = 1 << 20

func (o Options) wants(path string, size int64) bool {
	if isBinary(path) {
		return false
	}
	if o.MaxFileSize > 0 && size > o.MaxFileSize {
		return false
	}
	return o.Include == nil || o.Include(path)
}

func (o Options) full(n int) bool {
	return o.Limit > 0 && n >= o.Limit
}

var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	".tox":         true,
}

// skipped reports whether any directory in path is skipped.
func skipped(path string) bool {
	parts := strings.Split(filepath.ToSlash(path), "/")
	for _, p := range parts[:len(parts)-1] {
		if skipDirs[p] {
			return true
		}
	}
	return false
}

func isBinary(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".ico", ".bmp", ".tiff", ".svg":
		return true
	case ".mp4", ".m4v", ".mov", ".mkv", ".webm", ".avi":
		return true
	case ".mp3", ".wav", ".ogg", ".flac", ".m4a":
		return true
	case ".pdf", ".zip", ".jar", ".gz", ".tgz", ".bz2", ".7z", ".exe", ".dll", ".dylib", ".so", ".woff", ".woff2":
		return true
	case ".pyc", ".pyo", ".whl", ".pkl", ".npy", ".h5":
		return true
	}
	return false
}

// Open returns a GitHub source for a github.com URL and a local source
// otherwise. token may be empty for public repositories.
func Open(ref, token string, opts Options) (Source, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrInvalidRef
	}
	if strings.Contains(ref, "github.com") {
		owner, repo, err := ParseRepoURL(ref)
		if err != nil {
			return nil, err
		}
		return NewGitHub(NewGitHubClient(token), owner, repo, opts), nil
	}
	return NewLocal(ref, opts)
}
