// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package merge folds candidate records from multiple sources into
// canonical papers. Sources are ranked; a lower rank wins a field
// conflict, and every merged field records which source supplied it.
package merge

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// Stream is the output of one source adapter for one conference: the
// records it produced, its priority rank, and the fetch error if the
// source failed. A failed stream is skipped without poisoning the rest
// of the merge.
type Stream struct {
	Source  types.Source
	Rank    int
	Records []types.CandidateRecord
	Err     error
}

// Store is the persistence surface the engine needs. Stored papers are
// folded into the merge so that a field no current source supplies is
// never lost between runs.
type Store interface {
	GetPaper(ctx context.Context, paperKey string) (*types.CanonicalPaper, error)
	GetPaperByTitleKey(ctx context.Context, conference string, year int, titleKey string) (*types.CanonicalPaper, error)
	PutPaper(ctx context.Context, p *types.CanonicalPaper) error
}

// Engine merges ranked source streams into canonical papers.
type Engine struct {
	Matcher Matcher
	Now     func() time.Time
}

func NewEngine() *Engine {
	return &Engine{Matcher: KeyMatcher{}, Now: time.Now}
}

// Merge folds the given streams into canonical papers for one
// conference edition, persists each paper, and returns them sorted by
// title. Streams are processed in ascending rank order; within a
// paper, a field set by a lower-ranked source is never overwritten by
// a higher-ranked one, and on equal rank the first value seen sticks.
func (e *Engine) Merge(ctx context.Context, conference string, year int, streams []Stream, st Store, w io.Writer) ([]*types.CanonicalPaper, error) {
	sort.SliceStable(streams, func(i, j int) bool { return streams[i].Rank < streams[j].Rank })

	byID := make(map[string]*types.CanonicalPaper)
	byTitle := make(map[string]*types.CanonicalPaper)
	var papers []*types.CanonicalPaper

	failed := 0
	for _, stream := range streams {
		if stream.Err != nil {
			failed++
			fmt.Fprintf(w, "warning: source %s failed for %s %d: %v\n", stream.Source, conference, year, stream.Err)
			continue
		}
		for _, rec := range stream.Records {
			if rec.Title == "" {
				fmt.Fprintf(w, "warning: skipping untitled record from %s\n", stream.Source)
				continue
			}
			idKey, titleKey := e.Matcher.Keys(rec)

			p := lookup(byID, byTitle, rec.ExternalID, idKey, titleKey)
			if p == nil {
				p = &types.CanonicalPaper{
					PaperKey:   titleKey,
					TitleKey:   titleKey,
					Conference: conference,
					Year:       year,
					Provenance: make(map[string]types.FieldOrigin),
					CodeStatus: types.CodeUnknown,
				}
				if idKey != "" {
					p.PaperKey = idKey
				}
				if _, taken := byTitle[titleKey]; !taken {
					byTitle[titleKey] = p
				}
				papers = append(papers, p)
			}
			if idKey != "" {
				byID[idKey] = p
				// Upgrade a title-keyed paper to its id key; for a
				// paper already persisted, fillFromStored restores
				// the stored key below.
				if !strings.HasPrefix(p.PaperKey, "id:") {
					p.PaperKey = idKey
				}
			}
			apply(p, rec, stream.Source, stream.Rank)
		}
	}
	if len(streams) > 0 && failed == len(streams) {
		return nil, fmt.Errorf("all %d sources failed for %s %d", failed, conference, year)
	}

	now := e.Now().UTC()
	for _, p := range papers {
		stored, err := e.lookupStored(ctx, st, conference, year, p)
		if err != nil {
			return nil, err
		}
		if stored != nil {
			fillFromStored(p, stored)
		}
		p.UpdatedAt = now
		if err := st.PutPaper(ctx, p); err != nil {
			return nil, fmt.Errorf("persisting paper %s: %w", p.PaperKey, err)
		}
	}

	sort.Slice(papers, func(i, j int) bool { return papers[i].Title < papers[j].Title })
	return papers, nil
}

// lookup finds the in-run paper a record belongs to. A title match that
// already carries a different explicit id is not a match: distinct ids
// are distinct papers, however alike the titles read, and duplication
// is preferred over merging them.
func lookup(byID, byTitle map[string]*types.CanonicalPaper, externalID, idKey, titleKey string) *types.CanonicalPaper {
	if idKey != "" {
		if p, ok := byID[idKey]; ok {
			return p
		}
	}
	p := byTitle[titleKey]
	if p != nil && idConflict(p.ExternalID, externalID) {
		return nil
	}
	return p
}

func idConflict(a, b string) bool {
	return a != "" && b != "" && a != b
}

// apply folds one candidate record into a paper. A field is taken when
// the paper has no value for it yet, or when the recorded origin ranks
// strictly worse than the incoming source. Authors and affiliations
// move together because affiliations are positional.
func apply(p *types.CanonicalPaper, rec types.CandidateRecord, src types.Source, rank int) {
	wins := func(field string) bool {
		origin, ok := p.Provenance[field]
		return !ok || origin.Rank > rank
	}
	take := func(field string) {
		p.Provenance[field] = types.FieldOrigin{Source: src, Rank: rank}
	}

	if rec.ExternalID != "" && p.ExternalID == "" {
		p.ExternalID = rec.ExternalID
	}
	if rec.Title != "" && wins("title") {
		p.Title = rec.Title
		take("title")
	}
	if len(rec.Authors) > 0 && wins("authors") {
		p.Authors = rec.Authors
		p.Affiliations = rec.Affiliations
		take("authors")
	}
	if rec.Abstract != "" && wins("abstract") {
		p.Abstract = rec.Abstract
		take("abstract")
	}
	if rec.PDFURL != "" && wins("pdf_url") {
		p.PDFURL = rec.PDFURL
		take("pdf_url")
	}
	if rec.SupplementalURL != "" && wins("supplemental_url") {
		p.SupplementalURL = rec.SupplementalURL
		take("supplemental_url")
	}
	if rec.RepoURL != "" && wins("repo_url") {
		p.RepoURL = rec.RepoURL
		take("repo_url")
	}
}

// lookupStored finds the persisted counterpart of an in-progress
// paper, matching first on external id, then on the merge key, then on
// the title key. A title-shaped match holding a different explicit id
// is rejected, so two ids never collapse into one stored paper.
func (e *Engine) lookupStored(ctx context.Context, st Store, conference string, year int, p *types.CanonicalPaper) (*types.CanonicalPaper, error) {
	if p.ExternalID != "" {
		stored, err := st.GetPaper(ctx, "id:"+p.ExternalID)
		if err != nil || stored != nil {
			return stored, err
		}
	}
	stored, err := st.GetPaper(ctx, p.PaperKey)
	if err != nil {
		return nil, err
	}
	if stored != nil && !idConflict(stored.ExternalID, p.ExternalID) {
		return stored, nil
	}
	stored, err = st.GetPaperByTitleKey(ctx, conference, year, p.TitleKey)
	if err != nil {
		return nil, err
	}
	if stored != nil && idConflict(stored.ExternalID, p.ExternalID) {
		return nil, nil
	}
	return stored, nil
}

// fillFromStored folds the persisted paper in as the weakest prior
// input: it supplies only fields the current run produced no value
// for, keeping the provenance those fields were stored with. The
// stored keys win so a paper's identity is stable across runs.
func fillFromStored(p, stored *types.CanonicalPaper) {
	p.PaperKey = stored.PaperKey
	p.TitleKey = stored.TitleKey
	if p.ExternalID == "" {
		p.ExternalID = stored.ExternalID
	}
	p.CodeStatus = stored.CodeStatus

	fill := func(field string, set func()) {
		origin, ok := stored.Provenance[field]
		if !ok {
			return
		}
		if _, have := p.Provenance[field]; have {
			return
		}
		set()
		p.Provenance[field] = origin
	}
	fill("title", func() { p.Title = stored.Title })
	fill("authors", func() {
		p.Authors = stored.Authors
		p.Affiliations = stored.Affiliations
	})
	fill("abstract", func() { p.Abstract = stored.Abstract })
	fill("pdf_url", func() { p.PDFURL = stored.PDFURL })
	fill("supplemental_url", func() { p.SupplementalURL = stored.SupplementalURL })
	fill("repo_url", func() { p.RepoURL = stored.RepoURL })
}
