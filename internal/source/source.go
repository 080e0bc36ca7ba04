// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source fetches candidate paper records from the places a
// conference's papers show up: OpenReview, the conference's own site,
// and arXiv. Each adapter returns partial records; the merge engine
// reconciles them.
package source

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// Adapter fetches candidate records for one conference instance.
type Adapter interface {
	Name() types.Source
	Fetch(ctx context.Context, conf types.ConferenceConfig, window types.CollectionWindow) ([]types.CandidateRecord, error)
}

// Ranked pairs an adapter with its priority rank for a conference.
// Rank 0 is the highest authority.
type Ranked struct {
	Adapter Adapter
	Rank    int
}

// DefaultPriority is the source order used when a conference does not
// configure one.
var DefaultPriority = []string{"openreview", "official", "arxiv"}

// ForConference builds the ranked adapter list for a conference from
// its source priority, skipping sources the conference does not
// configure. Ranks follow the priority order, so the first configured
// source gets rank 0.
func ForConference(conf types.ConferenceConfig, client *http.Client, cfg types.SourceConfig) []Ranked {
	priority := conf.SourcePriority
	if len(priority) == 0 {
		priority = DefaultPriority
	}

	var ranked []Ranked
	for _, name := range priority {
		var a Adapter
		switch strings.ToLower(name) {
		case "openreview":
			if conf.OpenReview != nil {
				a = &OpenReviewAdapter{Client: client, UserAgent: cfg.UserAgent}
			}
		case "official":
			if conf.OfficialSite != nil {
				a = &OfficialSiteAdapter{Client: client, UserAgent: cfg.UserAgent}
			}
		case "arxiv":
			if conf.Arxiv != nil {
				a = &ArxivAdapter{Client: client, UserAgent: cfg.UserAgent}
			}
		}
		if a != nil {
			ranked = append(ranked, Ranked{Adapter: a, Rank: len(ranked)})
		}
	}
	return ranked
}

var repoURLRe = regexp.MustCompile(`https?://github\.com/[\w.\-]+/[\w.\-]+`)

// ExtractRepoURL finds the first GitHub repository link in a block of
// text, typically an abstract or a comment field. Trailing punctuation
// from surrounding prose is trimmed.
func ExtractRepoURL(text string) string {
	m := repoURLRe.FindString(text)
	return strings.TrimRight(m, ".,;")
}

// splitAuthors breaks a rendered author line ("A, B and C") into
// individual names.
func splitAuthors(line string) []string {
	line = strings.ReplaceAll(line, " and ", ",")
	line = strings.ReplaceAll(line, ";", ",")
	var authors []string
	for _, part := range strings.Split(line, ",") {
		if name := strings.TrimSpace(part); name != "" {
			authors = append(authors, name)
		}
	}
	return authors
}
