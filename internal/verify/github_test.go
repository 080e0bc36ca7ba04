// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/paper-radar/internal/httputil"
	"github.com/pdiddy/paper-radar/pkg/types"
)

func withGitHubServer(t *testing.T, handler http.HandlerFunc) *GitHubClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	orig := githubAPIBase
	githubAPIBase = srv.URL
	t.Cleanup(func() { githubAPIBase = orig })

	cfg := types.VerifierConfig{RequestsPerSecond: 1000}
	return NewGitHubClient(srv.Client(), "test-token", cfg)
}

func TestSnapshot(t *testing.T) {
	readme := base64.StdEncoding.EncodeToString([]byte("# Widgets\n\nCode coming soon."))
	var sawAuth string

	g := withGitHubServer(t, func(w http.ResponseWriter, r *http.Request) {
		sawAuth = r.Header.Get("Authorization")
		switch r.URL.Path {
		case "/repos/jdoe/widgets":
			io.WriteString(w, `{"full_name": "jdoe/widgets"}`)
		case "/repos/jdoe/widgets/contents/":
			io.WriteString(w, `[
				{"name": "README.md", "type": "file"},
				{"name": "train.py", "type": "file"},
				{"name": "src", "type": "dir"}
			]`)
		case "/repos/jdoe/widgets/commits":
			io.WriteString(w, `[{"commit": {"committer": {"date": "2026-05-20T10:00:00Z"}}}]`)
		case "/repos/jdoe/widgets/readme":
			fmt.Fprintf(w, `{"content": %q, "encoding": "base64"}`, readme)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	})

	snap, err := g.Snapshot(context.Background(), "https://github.com/jdoe/widgets")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if sawAuth != "Bearer test-token" {
		t.Errorf("authorization = %q", sawAuth)
	}
	if snap.FileCount != 3 {
		t.Errorf("file count = %d, want 3", snap.FileCount)
	}
	if len(snap.FileNames) != 3 || snap.FileNames[1] != "train.py" {
		t.Errorf("file names = %v", snap.FileNames)
	}
	want := time.Date(2026, 5, 20, 10, 0, 0, 0, time.UTC)
	if !snap.LastCommit.Equal(want) {
		t.Errorf("last commit = %v, want %v", snap.LastCommit, want)
	}
	if !strings.Contains(snap.Readme, "coming soon") {
		t.Errorf("readme = %q", snap.Readme)
	}
}

func TestSnapshotCaches(t *testing.T) {
	calls := 0
	g := withGitHubServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch {
		case strings.HasSuffix(r.URL.Path, "/contents/"):
			io.WriteString(w, `[]`)
		case strings.HasSuffix(r.URL.Path, "/commits"):
			io.WriteString(w, `[]`)
		default:
			io.WriteString(w, `{}`)
		}
	})

	ctx := context.Background()
	if _, err := g.Snapshot(ctx, "https://github.com/jdoe/widgets"); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	after := calls
	if _, err := g.Snapshot(ctx, "https://github.com/jdoe/widgets"); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if calls != after {
		t.Errorf("second Snapshot hit the API (%d calls, was %d)", calls, after)
	}
}

func TestSnapshotMissingRepo(t *testing.T) {
	g := withGitHubServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := g.Snapshot(context.Background(), "https://github.com/gone/gone")
	if !errors.Is(err, ErrRepoInaccessible) {
		t.Errorf("err = %v, want ErrRepoInaccessible", err)
	}
}

func TestSnapshotExhaustedQuotaIsNotInaccessible(t *testing.T) {
	origDelay := httputil.RetryBaseDelay
	httputil.RetryBaseDelay = time.Millisecond
	t.Cleanup(func() { httputil.RetryBaseDelay = origDelay })

	g := withGitHubServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Ratelimit-Remaining", "0")
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := g.Snapshot(context.Background(), "https://github.com/jdoe/widgets")
	if err == nil {
		t.Fatal("want an error once retries are exhausted")
	}
	if errors.Is(err, ErrRepoInaccessible) {
		t.Fatalf("err = %v; an exhausted quota says nothing about the repository", err)
	}

	// The verdict must stay inconclusive so the next run retries,
	// rather than branding every repository a placeholder.
	v := NewVerifier(g, nil, types.VerifierConfig{})
	got, verr := v.Verify(context.Background(), "https://github.com/jdoe/widgets", paperDate)
	if verr == nil {
		t.Fatal("want the quota error surfaced")
	}
	if got.Verdict != types.VerdictInconclusive {
		t.Errorf("verdict = %q, want inconclusive while rate limited", got.Verdict)
	}
}

func TestSnapshotEmptyRepo(t *testing.T) {
	// GitHub 404s the contents, commits, and readme endpoints of an
	// empty repository even though the repository itself exists.
	g := withGitHubServer(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Count(strings.Trim(r.URL.Path, "/"), "/") == 2 {
			io.WriteString(w, `{"full_name": "jdoe/empty"}`)
			return
		}
		http.NotFound(w, r)
	})

	snap, err := g.Snapshot(context.Background(), "https://github.com/jdoe/empty")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.FileCount != 0 || !snap.LastCommit.IsZero() || snap.Readme != "" {
		t.Errorf("snapshot = %+v, want empty", snap)
	}
}

func TestSplitRepoURL(t *testing.T) {
	tests := []struct {
		url       string
		owner     string
		repo      string
		wantError bool
	}{
		{url: "https://github.com/jdoe/widgets", owner: "jdoe", repo: "widgets"},
		{url: "https://github.com/jdoe/widgets.git", owner: "jdoe", repo: "widgets"},
		{url: "https://github.com/jdoe/widgets/tree/main", owner: "jdoe", repo: "widgets"},
		{url: "https://github.com/jdoe", wantError: true},
		{url: "https://github.com/", wantError: true},
	}
	for _, tt := range tests {
		owner, repo, err := splitRepoURL(tt.url)
		if tt.wantError {
			if err == nil {
				t.Errorf("splitRepoURL(%q): want error", tt.url)
			}
			continue
		}
		if err != nil {
			t.Errorf("splitRepoURL(%q): %v", tt.url, err)
			continue
		}
		if owner != tt.owner || repo != tt.repo {
			t.Errorf("splitRepoURL(%q) = %s/%s, want %s/%s", tt.url, owner, repo, tt.owner, tt.repo)
		}
	}
}
