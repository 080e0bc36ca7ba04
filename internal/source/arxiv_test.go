// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/paper-radar/pkg/types"
)

const arxivResponse = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2301.07041v2</id>
    <title>Scaling Laws
 for Widgets</title>
    <summary>Widgets scale. Code at https://github.com/jdoe/widgets.</summary>
    <published>2026-05-16T09:00:00Z</published>
    <author><name>Jane Doe</name></author>
    <author><name>John Smith</name></author>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2301.08888v1</id>
    <title>Too Early</title>
    <summary>Posted before the deadline.</summary>
    <published>2026-04-01T09:00:00Z</published>
    <author><name>Ann Author</name></author>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2301.09999v1</id>
    <title>Accepted at NeurIPS 2026</title>
    <comment>Accepted at NeurIPS 2026; code: https://github.com/ann/accepted</comment>
    <summary>No link in the abstract.</summary>
    <published>2026-05-17T09:00:00Z</published>
    <author><name>Ann Author</name></author>
  </entry>
</feed>`

func withArxivServer(t *testing.T, handler http.HandlerFunc) *ArxivAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	orig := arxivAPIBase
	arxivAPIBase = srv.URL
	t.Cleanup(func() { arxivAPIBase = orig })

	return &ArxivAdapter{Client: srv.Client(), UserAgent: "paper-radar-test"}
}

func TestArxivFetch(t *testing.T) {
	var query string
	adapter := withArxivServer(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("search_query")
		io.WriteString(w, arxivResponse)
	})

	conf := types.ConferenceConfig{
		Name: "NeurIPS",
		Year: 2026,
		Arxiv: &types.ArxivConfig{
			Categories: []string{"cs.LG", "cs.CV"},
		},
	}
	window := types.CollectionWindow{
		From: time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 5, 18, 0, 0, 0, 0, time.UTC),
	}

	records, err := adapter.Fetch(context.Background(), conf, window)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if !strings.Contains(query, `abs:"NeurIPS 2026"`) {
		t.Errorf("query = %q, want the edition matched in abstracts", query)
	}
	if !strings.Contains(query, "cat:cs.LG OR cat:cs.CV") {
		t.Errorf("query = %q, want category restriction", query)
	}

	// The April entry falls outside the collection window.
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	rec := records[0]
	if rec.ExternalID != "2301.07041" {
		t.Errorf("external id = %q, want version suffix stripped", rec.ExternalID)
	}
	if rec.Title != "Scaling Laws for Widgets" {
		t.Errorf("title = %q, want line breaks collapsed", rec.Title)
	}
	if rec.PDFURL != "https://arxiv.org/pdf/2301.07041" {
		t.Errorf("pdf url = %q", rec.PDFURL)
	}
	if rec.RepoURL != "https://github.com/jdoe/widgets" {
		t.Errorf("repo url = %q, want the abstract link", rec.RepoURL)
	}

	// The comment field outranks the abstract for repo links.
	if got := records[1].RepoURL; got != "https://github.com/ann/accepted" {
		t.Errorf("repo url = %q, want the comment link", got)
	}
}

func TestArxivFetchNoWindow(t *testing.T) {
	adapter := withArxivServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, arxivResponse)
	})

	conf := types.ConferenceConfig{Name: "NeurIPS", Year: 2026, Arxiv: &types.ArxivConfig{}}
	records, err := adapter.Fetch(context.Background(), conf, types.CollectionWindow{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("got %d records, want all 3 without a window", len(records))
	}
}

func TestArxivFetchHTTPError(t *testing.T) {
	adapter := withArxivServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	})

	conf := types.ConferenceConfig{Name: "NeurIPS", Year: 2026, Arxiv: &types.ArxivConfig{}}
	if _, err := adapter.Fetch(context.Background(), conf, types.CollectionWindow{}); err == nil {
		t.Fatal("want error on HTTP 500")
	}
}

func TestExtractArxivIDVariants(t *testing.T) {
	tests := []struct {
		idURL string
		want  string
	}{
		{"http://arxiv.org/abs/2301.07041v1", "2301.07041"},
		{"http://arxiv.org/abs/2301.07041", "2301.07041"},
		{"http://arxiv.org/abs/cs/0301001v2", "cs/0301001"},
		{"http://example.com/nothing", ""},
	}
	for _, tt := range tests {
		if got := extractArxivID(tt.idURL); got != tt.want {
			t.Errorf("extractArxivID(%q) = %q, want %q", tt.idURL, got, tt.want)
		}
	}
}
