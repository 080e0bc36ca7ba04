// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/paper-radar/internal/httputil"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// OfficialSiteAdapter scrapes a conference's accepted-papers listing.
// Every conference renders its listing differently, so the page
// structure is configured per conference as CSS selectors.
type OfficialSiteAdapter struct {
	Client    *http.Client
	UserAgent string
}

func (a *OfficialSiteAdapter) Name() types.Source { return types.SourceOfficial }

// Fetch downloads the listing page and extracts one record per item
// selector match. Selectors the conference does not configure yield
// empty fields; href attributes are resolved against the page URL.
func (a *OfficialSiteAdapter) Fetch(ctx context.Context, conf types.ConferenceConfig, _ types.CollectionWindow) ([]types.CandidateRecord, error) {
	cfg := conf.OfficialSite
	if cfg.ListURL == "" || cfg.ItemSelector == "" {
		return nil, fmt.Errorf("official site for %s %d: list_url and item_selector are required", conf.Name, conf.Year)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.ListURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", a.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, a.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", cfg.ListURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: HTTP %d", cfg.ListURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", cfg.ListURL, err)
	}

	base, err := url.Parse(cfg.ListURL)
	if err != nil {
		return nil, fmt.Errorf("parsing list url: %w", err)
	}

	now := time.Now().UTC()
	var records []types.CandidateRecord
	doc.Find(cfg.ItemSelector).Each(func(_ int, item *goquery.Selection) {
		rec := types.CandidateRecord{
			Source:    types.SourceOfficial,
			Title:     selectText(item, cfg.TitleSelector),
			Abstract:  selectText(item, cfg.AbstractSelector),
			FetchedAt: now,
		}
		if rec.Title == "" {
			return
		}
		if line := selectText(item, cfg.AuthorsSelector); line != "" {
			rec.Authors = splitAuthors(line)
		}
		if line := selectText(item, cfg.AffiliationsSelector); line != "" {
			rec.Affiliations = splitAuthors(line)
		}
		rec.PDFURL = selectHref(item, cfg.PDFSelector, base)
		rec.SupplementalURL = selectHref(item, cfg.SupplementalSelector, base)
		if repo := ExtractRepoURL(itemLinks(item)); repo != "" {
			rec.RepoURL = repo
		}
		records = append(records, rec)
	})
	return records, nil
}

func selectText(item *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(item.Find(selector).First().Text())
}

func selectHref(item *goquery.Selection, selector string, base *url.URL) string {
	if selector == "" {
		return ""
	}
	href, ok := item.Find(selector).First().Attr("href")
	if !ok {
		return ""
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// itemLinks concatenates every href in an item so the repository
// extractor can scan links the configured selectors miss.
func itemLinks(item *goquery.Selection) string {
	var b strings.Builder
	item.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok {
			b.WriteString(href)
			b.WriteString("\n")
		}
	})
	return b.String()
}
