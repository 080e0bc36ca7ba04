// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/paper-radar/internal/httputil"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// ArxivAdapter queries the arXiv API for preprints that name the
// conference edition.
type ArxivAdapter struct {
	Client    *http.Client
	UserAgent string
}

func (a *ArxivAdapter) Name() types.Source { return types.SourceArxiv }

// Fetch queries arXiv and returns matching preprints as candidate
// records. When the collection window is set, entries submitted
// outside it are dropped.
func (a *ArxivAdapter) Fetch(ctx context.Context, conf types.ConferenceConfig, window types.CollectionWindow) ([]types.CandidateRecord, error) {
	cfg := conf.Arxiv
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 100
	}

	q := buildArxivQuery(conf.Name, conf.Year, cfg.Categories, cfg.Keywords)
	u := fmt.Sprintf("%s?search_query=%s&start=0&max_results=%d&sortBy=submittedDate&sortOrder=descending",
		arxivAPIBase, url.QueryEscape(q), maxResults)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", a.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, a.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	now := time.Now().UTC()
	var records []types.CandidateRecord
	for _, entry := range feed.Entries {
		arxivID := extractArxivID(entry.ID)
		if arxivID == "" {
			continue
		}
		published, _ := time.Parse(time.RFC3339, entry.Published)
		if !inWindow(published, window) {
			continue
		}

		rec := types.CandidateRecord{
			Source:     types.SourceArxiv,
			ExternalID: arxivID,
			Title:      collapseSpace(entry.Title),
			Abstract:   collapseSpace(entry.Summary),
			PDFURL:     fmt.Sprintf("https://arxiv.org/pdf/%s", arxivID),
			FetchedAt:  now,
		}
		for _, author := range entry.Authors {
			rec.Authors = append(rec.Authors, strings.TrimSpace(author.Name))
		}
		if repo := ExtractRepoURL(entry.Comment); repo != "" {
			rec.RepoURL = repo
		} else if repo := ExtractRepoURL(entry.Summary); repo != "" {
			rec.RepoURL = repo
		}
		records = append(records, rec)
	}
	return records, nil
}

// buildArxivQuery matches the conference name and year in titles,
// abstracts, or comments, restricted to the configured categories,
// with any extra keywords OR-ed in.
func buildArxivQuery(name string, year int, categories, keywords []string) string {
	edition := fmt.Sprintf("%q", fmt.Sprintf("%s %d", name, year))
	terms := []string{
		"abs:" + edition,
		"ti:" + edition,
		"co:" + edition,
	}
	for _, kw := range keywords {
		terms = append(terms, fmt.Sprintf("abs:%q", kw))
	}
	q := "(" + strings.Join(terms, " OR ") + ")"

	if len(categories) > 0 {
		var cats []string
		for _, c := range categories {
			cats = append(cats, "cat:"+c)
		}
		q += " AND (" + strings.Join(cats, " OR ") + ")"
	}
	return q
}

func inWindow(published time.Time, window types.CollectionWindow) bool {
	if window.From.IsZero() && window.To.IsZero() {
		return true
	}
	if published.IsZero() {
		return false
	}
	return !published.Before(window.From) && !published.After(window.To)
}

// collapseSpace trims an Atom text field and folds the line breaks
// arXiv inserts into titles and abstracts.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Comment   string        `xml:"comment"`
	Published string        `xml:"published"`
	Authors   []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" -> "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}
