// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package merge

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// fakeStore keeps papers in memory with the same lookup semantics as
// the sqlite store.
type fakeStore struct {
	papers map[string]*types.CanonicalPaper
	puts   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{papers: make(map[string]*types.CanonicalPaper)}
}

func (f *fakeStore) GetPaper(_ context.Context, key string) (*types.CanonicalPaper, error) {
	if p, ok := f.papers[key]; ok {
		c := clonePaper(p)
		return &c, nil
	}
	return nil, nil
}

func (f *fakeStore) GetPaperByTitleKey(_ context.Context, conference string, year int, titleKey string) (*types.CanonicalPaper, error) {
	for _, p := range f.papers {
		if p.Conference == conference && p.Year == year && p.TitleKey == titleKey {
			c := clonePaper(p)
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) PutPaper(_ context.Context, p *types.CanonicalPaper) error {
	c := clonePaper(p)
	f.papers[p.PaperKey] = &c
	f.puts++
	return nil
}

func clonePaper(p *types.CanonicalPaper) types.CanonicalPaper {
	c := *p
	c.Provenance = make(map[string]types.FieldOrigin, len(p.Provenance))
	for k, v := range p.Provenance {
		c.Provenance[k] = v
	}
	return c
}

func testEngine() *Engine {
	e := NewEngine()
	e.Now = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }
	return e
}

func officialStream(recs ...types.CandidateRecord) Stream {
	return Stream{Source: types.SourceOfficial, Rank: 0, Records: recs}
}

func openReviewStream(recs ...types.CandidateRecord) Stream {
	return Stream{Source: types.SourceOpenReview, Rank: 1, Records: recs}
}

func arxivStream(recs ...types.CandidateRecord) Stream {
	return Stream{Source: types.SourceArxiv, Rank: 2, Records: recs}
}

func TestMergeJoinsSourcesByExternalID(t *testing.T) {
	st := newFakeStore()
	streams := []Stream{
		openReviewStream(types.CandidateRecord{
			ExternalID:   "2301.07041",
			Title:        "Scaling Laws for Widgets",
			Authors:      []string{"Jane Doe"},
			Affiliations: []string{"Widget University"},
		}),
		arxivStream(types.CandidateRecord{
			ExternalID: "2301.07041",
			Title:      "Scaling laws for widgets",
			Authors:    []string{"Jane Doe"},
			Abstract:   "Widgets scale.",
			PDFURL:     "https://arxiv.org/pdf/2301.07041",
		}),
	}

	papers, err := testEngine().Merge(context.Background(), "NeurIPS", 2026, streams, st, io.Discard)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(papers) != 1 {
		t.Fatalf("got %d papers, want 1", len(papers))
	}

	p := papers[0]
	if p.PaperKey != "id:2301.07041" {
		t.Errorf("PaperKey = %q", p.PaperKey)
	}
	if p.Title != "Scaling Laws for Widgets" {
		t.Errorf("title = %q, want the higher-priority source's casing", p.Title)
	}
	if p.Abstract != "Widgets scale." {
		t.Errorf("abstract = %q, want the arXiv value filling the gap", p.Abstract)
	}
	if got := p.Provenance["title"].Source; got != types.SourceOpenReview {
		t.Errorf("title provenance = %q, want openreview", got)
	}
	if got := p.Provenance["abstract"].Source; got != types.SourceArxiv {
		t.Errorf("abstract provenance = %q, want arxiv", got)
	}
}

func TestMergeJoinsByTitleWhenOnlyOneSourceHasID(t *testing.T) {
	st := newFakeStore()
	streams := []Stream{
		officialStream(types.CandidateRecord{
			Title:   "Robust Gadget Estimation",
			Authors: []string{"John Smith", "Jane Doe"},
			PDFURL:  "https://conf.example/papers/42.pdf",
		}),
		arxivStream(types.CandidateRecord{
			ExternalID: "2302.00001",
			Title:      "Robust Gadget Estimation!",
			Authors:    []string{"J. Smith"},
			Abstract:   "Gadgets, estimated robustly.",
		}),
	}

	papers, err := testEngine().Merge(context.Background(), "ICML", 2026, streams, st, io.Discard)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(papers) != 1 {
		t.Fatalf("got %d papers, want 1: title punctuation must not split the paper", len(papers))
	}

	p := papers[0]
	if p.ExternalID != "2302.00001" {
		t.Errorf("external id = %q, want the arXiv id attached to the title match", p.ExternalID)
	}
	if p.PDFURL != "https://conf.example/papers/42.pdf" {
		t.Errorf("pdf url = %q, want the official site's", p.PDFURL)
	}
	if p.Abstract != "Gadgets, estimated robustly." {
		t.Errorf("abstract = %q", p.Abstract)
	}
}

func TestMergePriorityInvariant(t *testing.T) {
	// The arXiv stream appears first in the slice but carries the
	// worst rank; its title must not survive.
	st := newFakeStore()
	streams := []Stream{
		arxivStream(types.CandidateRecord{
			ExternalID: "2303.11111",
			Title:      "a preprint title, all lowercase",
			Authors:    []string{"Ann Author"},
		}),
		officialStream(types.CandidateRecord{
			Title:   "A Preprint Title, All Lowercase",
			Authors: []string{"Ann Author"},
		}),
	}

	papers, err := testEngine().Merge(context.Background(), "AAAI", 2026, streams, st, io.Discard)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(papers) != 1 {
		t.Fatalf("got %d papers, want 1", len(papers))
	}
	p := papers[0]
	if p.Title != "A Preprint Title, All Lowercase" {
		t.Errorf("title = %q, want the rank-0 value", p.Title)
	}
	if origin := p.Provenance["title"]; origin.Rank != 0 {
		t.Errorf("title provenance rank = %d, want 0", origin.Rank)
	}
}

func TestMergeSameRankFirstSeenWins(t *testing.T) {
	st := newFakeStore()
	streams := []Stream{
		{Source: types.SourceOpenReview, Rank: 1, Records: []types.CandidateRecord{{
			Title:   "Duplicate Listing",
			Authors: []string{"Bo Li"},
			PDFURL:  "https://a.example/1.pdf",
		}, {
			Title:   "Duplicate Listing",
			Authors: []string{"Bo Li"},
			PDFURL:  "https://a.example/other.pdf",
		}}},
	}

	papers, err := testEngine().Merge(context.Background(), "ICLR", 2026, streams, st, io.Discard)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(papers) != 1 {
		t.Fatalf("got %d papers, want 1", len(papers))
	}
	if got := papers[0].PDFURL; got != "https://a.example/1.pdf" {
		t.Errorf("pdf url = %q, want the first value seen at equal rank", got)
	}
}

func TestMergeAuthorsAndAffiliationsMoveTogether(t *testing.T) {
	st := newFakeStore()
	streams := []Stream{
		officialStream(types.CandidateRecord{
			Title:   "Joint Fields",
			Authors: []string{"Jane Doe", "John Smith"},
		}),
		openReviewStream(types.CandidateRecord{
			Title:        "Joint Fields",
			Authors:      []string{"Jane Doe", "John Smith", "Extra Person"},
			Affiliations: []string{"U1", "U2", "U3"},
		}),
	}

	papers, err := testEngine().Merge(context.Background(), "NeurIPS", 2026, streams, st, io.Discard)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	p := papers[0]
	// The official author list won, so the positional affiliation
	// list from the losing source must not be attached to it.
	if len(p.Authors) != 2 {
		t.Errorf("authors = %v, want the rank-0 list", p.Authors)
	}
	if p.Affiliations != nil {
		t.Errorf("affiliations = %v, want none", p.Affiliations)
	}
}

func TestMergeIdempotent(t *testing.T) {
	st := newFakeStore()
	streams := func() []Stream {
		return []Stream{
			officialStream(types.CandidateRecord{
				Title:   "Run It Twice",
				Authors: []string{"Jane Doe"},
				PDFURL:  "https://conf.example/p/1.pdf",
			}),
			arxivStream(types.CandidateRecord{
				ExternalID: "2304.22222",
				Title:      "Run It Twice",
				Authors:    []string{"Jane Doe"},
				Abstract:   "Twice.",
			}),
		}
	}

	e := testEngine()
	first, err := e.Merge(context.Background(), "NeurIPS", 2026, streams(), st, io.Discard)
	if err != nil {
		t.Fatalf("first Merge: %v", err)
	}
	second, err := e.Merge(context.Background(), "NeurIPS", 2026, streams(), st, io.Discard)
	if err != nil {
		t.Fatalf("second Merge: %v", err)
	}

	if len(st.papers) != 1 {
		t.Fatalf("store holds %d papers, want 1", len(st.papers))
	}
	a, b := first[0], second[0]
	if a.PaperKey != b.PaperKey || a.Title != b.Title || a.Abstract != b.Abstract || a.PDFURL != b.PDFURL {
		t.Errorf("second run differs: %+v vs %+v", a, b)
	}
	for field, origin := range a.Provenance {
		if b.Provenance[field] != origin {
			t.Errorf("provenance for %s changed: %+v vs %+v", field, origin, b.Provenance[field])
		}
	}
}

func TestMergeMonotoneCompleteness(t *testing.T) {
	// Run one: arXiv supplies the abstract. Run two: arXiv is down.
	// The stored abstract must survive with its original provenance.
	st := newFakeStore()
	e := testEngine()

	_, err := e.Merge(context.Background(), "NeurIPS", 2026, []Stream{
		officialStream(types.CandidateRecord{Title: "Sticky Fields", Authors: []string{"Jane Doe"}}),
		arxivStream(types.CandidateRecord{
			ExternalID: "2305.33333",
			Title:      "Sticky Fields",
			Authors:    []string{"Jane Doe"},
			Abstract:   "Fields stick.",
		}),
	}, st, io.Discard)
	if err != nil {
		t.Fatalf("first Merge: %v", err)
	}

	papers, err := e.Merge(context.Background(), "NeurIPS", 2026, []Stream{
		officialStream(types.CandidateRecord{Title: "Sticky Fields", Authors: []string{"Jane Doe"}}),
		{Source: types.SourceArxiv, Rank: 2, Err: fmt.Errorf("arxiv unreachable")},
	}, st, io.Discard)
	if err != nil {
		t.Fatalf("second Merge: %v", err)
	}

	p := papers[0]
	if p.Abstract != "Fields stick." {
		t.Errorf("abstract = %q, want the stored value preserved", p.Abstract)
	}
	if got := p.Provenance["abstract"].Source; got != types.SourceArxiv {
		t.Errorf("abstract provenance = %q, want the original source", got)
	}
	if p.PaperKey != "id:2305.33333" {
		t.Errorf("paper key = %q, want the stored key kept", p.PaperKey)
	}
}

func TestMergeStoredNeverOverwritesFresh(t *testing.T) {
	st := newFakeStore()
	e := testEngine()

	_, err := e.Merge(context.Background(), "NeurIPS", 2026, []Stream{
		arxivStream(types.CandidateRecord{
			ExternalID: "2306.44444",
			Title:      "evolving title v1",
			Authors:    []string{"Jane Doe"},
		}),
	}, st, io.Discard)
	if err != nil {
		t.Fatalf("first Merge: %v", err)
	}

	papers, err := e.Merge(context.Background(), "NeurIPS", 2026, []Stream{
		arxivStream(types.CandidateRecord{
			ExternalID: "2306.44444",
			Title:      "Evolving Title v2",
			Authors:    []string{"Jane Doe"},
		}),
	}, st, io.Discard)
	if err != nil {
		t.Fatalf("second Merge: %v", err)
	}
	if got := papers[0].Title; got != "Evolving Title v2" {
		t.Errorf("title = %q, want the fresh fetch to win over the stored copy", got)
	}
}

func TestMergeDistinctIDsSameTitleStaySeparate(t *testing.T) {
	// Two arXiv entries with the same normalized title and first-author
	// surname but different ids must stay two papers.
	st := newFakeStore()
	streams := []Stream{
		arxivStream(types.CandidateRecord{
			ExternalID: "2401.00001",
			Title:      "Robust Learning",
			Authors:    []string{"Jane Doe"},
			Abstract:   "First result.",
		}, types.CandidateRecord{
			ExternalID: "2405.99999",
			Title:      "Robust Learning",
			Authors:    []string{"Jim Doe"},
			Abstract:   "Second result.",
		}),
	}

	papers, err := testEngine().Merge(context.Background(), "NeurIPS", 2026, streams, st, io.Discard)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(papers) != 2 {
		t.Fatalf("got %d papers, want 2 for distinct ids", len(papers))
	}
	for _, key := range []string{"id:2401.00001", "id:2405.99999"} {
		if _, ok := st.papers[key]; !ok {
			t.Errorf("store is missing %s", key)
		}
	}
	if st.papers["id:2401.00001"].Abstract != "First result." {
		t.Errorf("abstract = %q, fields leaked between distinct-id papers", st.papers["id:2401.00001"].Abstract)
	}
}

func TestMergeStoredDifferentIDIsNotFolded(t *testing.T) {
	st := newFakeStore()
	e := testEngine()

	_, err := e.Merge(context.Background(), "NeurIPS", 2026, []Stream{
		arxivStream(types.CandidateRecord{
			ExternalID: "2401.00001",
			Title:      "Robust Learning",
			Authors:    []string{"Jane Doe"},
			Abstract:   "First result.",
		}),
	}, st, io.Discard)
	if err != nil {
		t.Fatalf("first Merge: %v", err)
	}

	// A later run sees a different paper with a colliding title key.
	papers, err := e.Merge(context.Background(), "NeurIPS", 2026, []Stream{
		arxivStream(types.CandidateRecord{
			ExternalID: "2405.99999",
			Title:      "Robust Learning",
			Authors:    []string{"Jim Doe"},
			Abstract:   "Second result.",
		}),
	}, st, io.Discard)
	if err != nil {
		t.Fatalf("second Merge: %v", err)
	}

	if len(papers) != 1 || papers[0].PaperKey != "id:2405.99999" {
		t.Fatalf("papers = %+v, want a fresh paper keyed by its own id", papers)
	}
	if papers[0].Abstract != "Second result." {
		t.Errorf("abstract = %q, the stored paper must not fold into a different id", papers[0].Abstract)
	}
	if len(st.papers) != 2 {
		t.Errorf("store holds %d papers, want both ids kept", len(st.papers))
	}
}

func TestMergeFailedStreamIsIsolated(t *testing.T) {
	st := newFakeStore()
	var log strings.Builder

	papers, err := testEngine().Merge(context.Background(), "NeurIPS", 2026, []Stream{
		officialStream(types.CandidateRecord{Title: "Survivor", Authors: []string{"Jane Doe"}}),
		{Source: types.SourceOpenReview, Rank: 1, Err: fmt.Errorf("boom")},
	}, st, &log)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(papers) != 1 {
		t.Fatalf("got %d papers, want 1 from the healthy stream", len(papers))
	}
	if !strings.Contains(log.String(), "openreview") {
		t.Errorf("warning log = %q, want the failed source named", log.String())
	}
}

func TestMergeAllStreamsFailed(t *testing.T) {
	st := newFakeStore()
	_, err := testEngine().Merge(context.Background(), "NeurIPS", 2026, []Stream{
		{Source: types.SourceOfficial, Rank: 0, Err: fmt.Errorf("down")},
		{Source: types.SourceArxiv, Rank: 2, Err: fmt.Errorf("down")},
	}, st, io.Discard)
	if err == nil {
		t.Fatal("want an error when every source fails")
	}
	if st.puts != 0 {
		t.Errorf("store received %d writes, want 0", st.puts)
	}
}
