// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/paper-radar/internal/httputil"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// openReviewAPIBase is the OpenReview API endpoint. Declared as a var
// so tests can substitute an httptest server.
var openReviewAPIBase = "https://api2.openreview.net"

// OpenReviewAdapter fetches accepted-paper notes for a venue from the
// OpenReview API.
type OpenReviewAdapter struct {
	Client    *http.Client
	UserAgent string
}

func (a *OpenReviewAdapter) Name() types.Source { return types.SourceOpenReview }

// OpenReview API v2 response structures. Note content values are
// wrapped in {"value": ...} objects.
type orNotesResponse struct {
	Notes []orNote `json:"notes"`
	Count int      `json:"count"`
}

type orNote struct {
	ID      string        `json:"id"`
	Content orNoteContent `json:"content"`
}

type orNoteContent struct {
	Title                 orString     `json:"title"`
	Abstract              orString     `json:"abstract"`
	Authors               orStringList `json:"authors"`
	AuthorIDs             orStringList `json:"authorids"`
	PDF                   orString     `json:"pdf"`
	SupplementaryMaterial orString     `json:"supplementary_material"`
	Code                  orString     `json:"code"`
}

type orString struct {
	Value string `json:"value"`
}

type orStringList struct {
	Value []string `json:"value"`
}

type orProfilesResponse struct {
	Profiles []struct {
		Content struct {
			History []struct {
				Institution struct {
					Name string `json:"name"`
				} `json:"institution"`
			} `json:"history"`
		} `json:"content"`
	} `json:"profiles"`
}

// Fetch pages through the venue's notes and converts each into a
// candidate record. Affiliations come from author profile lookups,
// capped per note by MaxAffiliationLookups.
func (a *OpenReviewAdapter) Fetch(ctx context.Context, conf types.ConferenceConfig, _ types.CollectionWindow) ([]types.CandidateRecord, error) {
	cfg := conf.OpenReview
	limit := cfg.Limit
	if limit <= 0 {
		limit = 200
	}

	var records []types.CandidateRecord
	for offset := 0; ; {
		page, count, err := a.fetchNotes(ctx, cfg.VenueID, limit, offset)
		if err != nil {
			return nil, err
		}
		for _, note := range page {
			rec, err := a.noteToRecord(ctx, note, cfg.MaxAffiliationLookups)
			if err != nil {
				return nil, err
			}
			if rec.Title == "" {
				continue
			}
			records = append(records, rec)
		}
		offset += len(page)
		if len(page) == 0 || offset >= count || len(records) >= limit {
			break
		}
	}
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (a *OpenReviewAdapter) fetchNotes(ctx context.Context, venueID string, limit, offset int) ([]orNote, int, error) {
	u := fmt.Sprintf("%s/notes?content.venueid=%s&limit=%d&offset=%d",
		openReviewAPIBase, url.QueryEscape(venueID), limit, offset)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", a.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, a.Client, req, 0)
	if err != nil {
		return nil, 0, fmt.Errorf("OpenReview API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("OpenReview API returned HTTP %d", resp.StatusCode)
	}

	var parsed orNotesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, 0, fmt.Errorf("parsing OpenReview response: %w", err)
	}
	return parsed.Notes, parsed.Count, nil
}

func (a *OpenReviewAdapter) noteToRecord(ctx context.Context, note orNote, maxLookups int) (types.CandidateRecord, error) {
	rec := types.CandidateRecord{
		Source:    types.SourceOpenReview,
		Title:     strings.TrimSpace(note.Content.Title.Value),
		Abstract:  strings.TrimSpace(note.Content.Abstract.Value),
		Authors:   note.Content.Authors.Value,
		FetchedAt: time.Now().UTC(),
	}

	if pdf := note.Content.PDF.Value; pdf != "" {
		rec.PDFURL = openReviewAPIBase + pdf
	}
	if supp := note.Content.SupplementaryMaterial.Value; supp != "" {
		rec.SupplementalURL = openReviewAPIBase + supp
	}
	if repo := ExtractRepoURL(note.Content.Code.Value); repo != "" {
		rec.RepoURL = repo
	} else if repo := ExtractRepoURL(rec.Abstract); repo != "" {
		rec.RepoURL = repo
	}

	for i, authorID := range note.Content.AuthorIDs.Value {
		if i >= maxLookups {
			break
		}
		affiliation, err := a.lookupAffiliation(ctx, authorID)
		if err != nil {
			return rec, err
		}
		rec.Affiliations = append(rec.Affiliations, affiliation)
	}
	return rec, nil
}

// lookupAffiliation resolves an author profile to its most recent
// institution. Profiles without history yield an empty string so the
// affiliation list stays aligned with the author list.
func (a *OpenReviewAdapter) lookupAffiliation(ctx context.Context, authorID string) (string, error) {
	u := fmt.Sprintf("%s/profiles?id=%s", openReviewAPIBase, url.QueryEscape(authorID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", a.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, a.Client, req, 0)
	if err != nil {
		return "", fmt.Errorf("OpenReview profile request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Profile lookups are best effort; a missing profile is not
		// worth failing the whole venue fetch.
		return "", nil
	}

	var parsed orProfilesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("parsing OpenReview profile: %w", err)
	}
	if len(parsed.Profiles) == 0 || len(parsed.Profiles[0].Content.History) == 0 {
		return "", nil
	}
	return parsed.Profiles[0].Content.History[0].Institution.Name, nil
}
