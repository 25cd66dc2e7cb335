package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/google/go-github/v66/github"

	"github.com/richinex/repolens/model"
)

// ErrRateLimited is returned when GitHub rejects requests for rate limiting.
var ErrRateLimited = errors.New("GitHub API rate limit exceeded")

var reRepoURL = regexp.MustCompile(`github\.com[/:]([^/\s]+)/([^/\s#?]+)`)

// ParseRepoURL extracts owner and repository name from a github.com URL.
func ParseRepoURL(raw string) (owner, repo string, err error) {
	m := reRepoURL.FindStringSubmatch(raw)
	if m == nil {
		return "", "", fmt.Errorf("%w: invalid GitHub URL %q", ErrInvalidRef, raw)
	}
	repo = strings.TrimSuffix(m[2], ".git")
	if repo == "" {
		return "", "", fmt.Errorf("%w: invalid GitHub URL %q", ErrInvalidRef, raw)
	}
	return m[1], repo, nil
}

// NewGitHubClient creates an API client, authenticated when token is set.
func NewGitHubClient(token string) *github.Client {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return client
}

// GitHub reads files from the default branch of a repository.
type GitHub struct {
	client *github.Client
	owner  string
	repo   string
	opts   Options
}

// NewGitHub creates a source for owner/repo.
func NewGitHub(client *github.Client, owner, repo string, opts Options) *GitHub {
	return &GitHub{client: client, owner: owner, repo: repo, opts: opts}
}

// Ref returns the repository URL.
func (g *GitHub) Ref() string {
	return "https://github.com/" + g.owner + "/" + g.repo
}

// Fetch lists the repository tree and downloads wanted files in path order.
func (g *GitHub) Fetch(ctx context.Context) (Snapshot, error) {
	r, _, err := g.client.Repositories.Get(ctx, g.owner, g.repo)
	if err != nil {
		return Snapshot{}, g.wrap(err, "get repository")
	}

	snap := Snapshot{Info: model.RepoInfo{
		Name:        r.GetName(),
		Description: r.GetDescription(),
		Language:    r.GetLanguage(),
		Stars:       r.GetStargazersCount(),
		Forks:       r.GetForksCount(),
	}}
	if snap.Info.Language == "" {
		snap.Info.Language = "Unknown"
	}

	branch := r.GetDefaultBranch()
	if branch == "" {
		branch = "HEAD"
	}
	tree, _, err := g.client.Git.GetTree(ctx, g.owner, g.repo, branch, true)
	if err != nil {
		return Snapshot{}, g.wrap(err, "list files")
	}

	entries := make([]*github.TreeEntry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		if e.GetType() != "blob" || skipped(e.GetPath()) {
			continue
		}
		if !g.opts.wants(e.GetPath(), int64(e.GetSize())) {
			continue
		}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].GetPath() < entries[j].GetPath() })

	for _, e := range entries {
		if g.opts.full(len(snap.Files)) {
			break
		}
		f, err := g.file(ctx, e.GetPath())
		if err != nil {
			return Snapshot{}, err
		}
		snap.Files = append(snap.Files, f)
	}
	return snap, nil
}

func (g *GitHub) file(ctx context.Context, p string) (model.SourceFile, error) {
	fc, _, _, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, p, nil)
	if err != nil {
		return model.SourceFile{}, g.wrap(err, "get "+p)
	}
	if fc == nil {
		return model.SourceFile{}, fmt.Errorf("get %s: not a file", p)
	}
	content, err := fc.GetContent()
	if err != nil {
		return model.SourceFile{}, fmt.Errorf("decode %s: %w", p, err)
	}
	return model.SourceFile{
		Name:    path.Base(p),
		Path:    p,
		Content: content,
		Size:    int64(fc.GetSize()),
	}, nil
}

func (g *GitHub) wrap(err error, op string) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%s: %w: %v", op, ErrRateLimited, err)
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w: %s/%s", op, ErrNotFound, g.owner, g.repo)
	}
	return fmt.Errorf("%s %s/%s: %w", op, g.owner, g.repo, err)
}
