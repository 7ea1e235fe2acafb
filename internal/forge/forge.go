// Package forge fetches repository content from GitHub, either through the
// contents API or with a shallow git clone.
package forge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	gogithub "github.com/google/go-github/v69/github"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"fixter/internal/extract"
	"fixter/pkg/logger"
)

// ErrInvalidURL is returned when owner and repository cannot be derived
// from a URL.
var ErrInvalidURL = errors.New("invalid repository url")

// ErrTooManyFiles is returned when a repository holds more matching files
// than Config.MaxFiles.
var ErrTooManyFiles = errors.New("too many matching files")

var (
	ownerRepoRe = regexp.MustCompile(`github\.com[/:]([^/]+)/([^/",.]+)`)
	repoCleanRe = regexp.MustCompile(`[^\w\-.]`)
)

// ParseRepoURL extracts owner and repository name from a GitHub URL.
func ParseRepoURL(raw string) (owner, repo string, err error) {
	clean := strings.TrimSpace(raw)
	if m := ownerRepoRe.FindStringSubmatch(clean); m != nil {
		owner, repo = m[1], m[2]
	} else {
		parts := strings.Split(strings.TrimRight(clean, "/"), "/")
		minParts := 4
		if strings.Contains(clean, "github.com") {
			minParts = 5
		}
		if len(parts) < minParts {
			return "", "", fmt.Errorf("%w: %s", ErrInvalidURL, raw)
		}
		owner, repo = parts[len(parts)-2], parts[len(parts)-1]
	}
	repo = repoCleanRe.ReplaceAllString(strings.ReplaceAll(repo, ".git", ""), "")
	if owner == "" || repo == "" {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidURL, raw)
	}
	return owner, repo, nil
}

// Config configures a Fetcher.
type Config struct {
	Token             string
	BaseURL           string // API root, e.g. https://ghe.example.com/api/v3/
	Concurrency       int
	RequestsPerSecond float64
	MaxFiles          int
	HTTPClient        *http.Client
}

// Fetcher walks repositories through the GitHub contents API.
type Fetcher struct {
	client      *gogithub.Client
	limiter     *rate.Limiter
	concurrency int
	maxFiles    int
}

// NewFetcher creates a Fetcher.
func NewFetcher(cfg Config) (*Fetcher, error) {
	client := gogithub.NewClient(cfg.HTTPClient)
	client.UserAgent = "fixter-content-extractor"
	if cfg.Token != "" {
		client = client.WithAuthToken(cfg.Token)
	}
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parse github base url: %w", err)
		}
		client.BaseURL = u
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Fetcher{
		client:      client,
		limiter:     rate.NewLimiter(limit, 1),
		concurrency: cfg.Concurrency,
		maxFiles:    cfg.MaxFiles,
	}, nil
}

// Fetch returns the content of every file in owner/repo whose name
// matches exts, in depth-first listing order. File paths are relative to
// the repository root.
func (f *Fetcher) Fetch(ctx context.Context, owner, repo string, exts []string) ([]extract.File, error) {
	var paths []string
	if err := f.walk(ctx, owner, repo, "", exts, &paths); err != nil {
		return nil, err
	}

	files := make([]extract.File, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i, p := range paths {
		g.Go(func() error {
			content, err := f.fileContent(gctx, owner, repo, p)
			if err != nil {
				return err
			}
			files[i] = extract.File{Path: p, Content: content}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func (f *Fetcher) walk(ctx context.Context, owner, repo, dir string, exts []string, out *[]string) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return err
	}
	file, entries, resp, err := f.client.Repositories.GetContents(ctx, owner, repo, dir, nil)
	if err != nil {
		return fmt.Errorf("list %s/%s/%s: %w", owner, repo, dir, err)
	}
	checkRateLimit(resp)
	if file != nil {
		entries = []*gogithub.RepositoryContent{file}
	}

	for _, item := range entries {
		p := item.GetPath()
		if p == "" {
			p = strings.TrimPrefix(dir+"/"+item.GetName(), "/")
		}
		switch item.GetType() {
		case "file":
			if !extract.MatchExt(item.GetName(), exts) {
				continue
			}
			if f.maxFiles > 0 && len(*out) >= f.maxFiles {
				return fmt.Errorf("%w: more than %d", ErrTooManyFiles, f.maxFiles)
			}
			*out = append(*out, p)
		case "dir":
			if err := f.walk(ctx, owner, repo, p, exts, out); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *Fetcher) fileContent(ctx context.Context, owner, repo, path string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}
	file, _, resp, err := f.client.Repositories.GetContents(ctx, owner, repo, path, nil)
	if err != nil {
		return "", fmt.Errorf("get %s: %w", path, err)
	}
	checkRateLimit(resp)
	if file == nil {
		return "", fmt.Errorf("get %s: not a file", path)
	}
	content, err := file.GetContent()
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}
	return content, nil
}

func checkRateLimit(resp *gogithub.Response) {
	if resp == nil || resp.Rate.Limit == 0 {
		return
	}
	if resp.Rate.Remaining < 100 {
		logger.Warn().
			Int("remaining", resp.Rate.Remaining).
			Time("reset", resp.Rate.Reset.Time).
			Msg("GitHub rate limit low")
	}
}
