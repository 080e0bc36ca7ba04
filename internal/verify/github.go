// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package verify decides whether a paper's linked repository holds real
// code or a placeholder. Cheap structural rules decide the clear cases;
// an optional language-model classifier breaks ties.
package verify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/pdiddy/paper-radar/internal/httputil"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// githubAPIBase is the GitHub REST endpoint. Declared as a var so tests
// can substitute an httptest server.
var githubAPIBase = "https://api.github.com"

// ErrRepoInaccessible marks a repository that GitHub reports as gone or
// private. The verifier treats it as a placeholder; everything else
// (network failures, rate limiting beyond retries) stays inconclusive.
var ErrRepoInaccessible = errors.New("repository inaccessible")

// RepoSnapshot is the raw evidence fetched for one repository.
type RepoSnapshot struct {
	FileNames  []string
	FileCount  int
	LastCommit time.Time
	Readme     string
}

// GitHubClient fetches repository snapshots from the GitHub API,
// throttled and cached so repeated links inside one run cost one fetch.
type GitHubClient struct {
	client  *http.Client
	token   string
	limiter *rate.Limiter
	cache   *gocache.Cache
}

func NewGitHubClient(client *http.Client, token string, cfg types.VerifierConfig) *GitHubClient {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &GitHubClient{
		client:  client,
		token:   token,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		cache:   gocache.New(ttl, 2*ttl),
	}
}

// Snapshot fetches the repository's file listing, latest commit, and
// README. Results are cached by URL for the configured TTL.
func (g *GitHubClient) Snapshot(ctx context.Context, repoURL string) (*RepoSnapshot, error) {
	if cached, ok := g.cache.Get(repoURL); ok {
		return cached.(*RepoSnapshot), nil
	}

	owner, repo, err := splitRepoURL(repoURL)
	if err != nil {
		return nil, err
	}

	// Probe the repository itself first so a dead link fails fast.
	if _, err := g.get(ctx, fmt.Sprintf("/repos/%s/%s", owner, repo)); err != nil {
		return nil, err
	}

	snap := &RepoSnapshot{}

	contents, err := g.get(ctx, fmt.Sprintf("/repos/%s/%s/contents/", owner, repo))
	if err != nil && !errors.Is(err, ErrRepoInaccessible) {
		return nil, err
	}
	if err == nil {
		var entries []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		}
		if err := json.Unmarshal(contents, &entries); err != nil {
			return nil, fmt.Errorf("parsing contents of %s: %w", repoURL, err)
		}
		for _, e := range entries {
			snap.FileNames = append(snap.FileNames, e.Name)
		}
		snap.FileCount = len(entries)
	}

	commits, err := g.get(ctx, fmt.Sprintf("/repos/%s/%s/commits?per_page=1", owner, repo))
	if err != nil && !errors.Is(err, ErrRepoInaccessible) {
		return nil, err
	}
	if err == nil {
		var parsed []struct {
			Commit struct {
				Committer struct {
					Date time.Time `json:"date"`
				} `json:"committer"`
			} `json:"commit"`
		}
		if err := json.Unmarshal(commits, &parsed); err != nil {
			return nil, fmt.Errorf("parsing commits of %s: %w", repoURL, err)
		}
		if len(parsed) > 0 {
			snap.LastCommit = parsed[0].Commit.Committer.Date
		}
	}

	readme, err := g.get(ctx, fmt.Sprintf("/repos/%s/%s/readme", owner, repo))
	if err != nil && !errors.Is(err, ErrRepoInaccessible) {
		return nil, err
	}
	if err == nil {
		var parsed struct {
			Content  string `json:"content"`
			Encoding string `json:"encoding"`
		}
		if err := json.Unmarshal(readme, &parsed); err != nil {
			return nil, fmt.Errorf("parsing readme of %s: %w", repoURL, err)
		}
		if parsed.Encoding == "base64" {
			if decoded, decErr := base64.StdEncoding.DecodeString(
				strings.ReplaceAll(parsed.Content, "\n", "")); decErr == nil {
				snap.Readme = string(decoded)
			}
		} else {
			snap.Readme = parsed.Content
		}
	}

	g.cache.SetDefault(repoURL, snap)
	return snap, nil
}

// get performs one throttled API call. 404, 403 without a rate-limit
// header, and 410 map to ErrRepoInaccessible.
func (g *GitHubClient) get(ctx context.Context, path string) ([]byte, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, githubAPIBase+path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := httputil.DoWithRetry(ctx, g.client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("GitHub API request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusGone:
		return nil, fmt.Errorf("%s: %w (HTTP %d)", path, ErrRepoInaccessible, resp.StatusCode)
	case http.StatusForbidden:
		// GitHub answers 403 both for blocked repositories and for an
		// exhausted quota. Only the former says anything about the
		// repository itself.
		if resp.Header.Get("X-Ratelimit-Remaining") == "0" {
			return nil, fmt.Errorf("GitHub API quota exhausted for %s", path)
		}
		return nil, fmt.Errorf("%s: %w (HTTP 403)", path, ErrRepoInaccessible)
	default:
		return nil, fmt.Errorf("GitHub API returned HTTP %d for %s", resp.StatusCode, path)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return body, nil
}

// splitRepoURL extracts owner and repo from a GitHub URL.
func splitRepoURL(repoURL string) (owner, repo string, err error) {
	u, err := url.Parse(repoURL)
	if err != nil {
		return "", "", fmt.Errorf("parsing repo url %q: %w", repoURL, err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repo url %q is not owner/repo shaped", repoURL)
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}
