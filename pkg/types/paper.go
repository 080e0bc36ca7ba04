// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Source identifies which adapter supplied a candidate record.
type Source string

const (
	SourceOpenReview Source = "openreview"
	SourceOfficial   Source = "official"
	SourceArxiv      Source = "arxiv"
)

// CandidateRecord is one source's partial view of a paper before merging.
// Optional fields are left empty when the source does not carry them.
// Records are immutable once fetched and are not persisted directly.
type CandidateRecord struct {
	// Source identifies the adapter that produced this record.
	Source Source `json:"source" yaml:"source"`

	// SourceRank is the record's priority rank for this conference.
	// Rank 0 is the highest authority; larger numbers are lower priority.
	SourceRank int `json:"source_rank" yaml:"source_rank"`

	// ExternalID is a cross-source identifier (arXiv ID or DOI) when the
	// source exposes one. Venue-internal IDs do not belong here.
	ExternalID string `json:"external_id,omitempty" yaml:"external_id,omitempty"`

	// Title is the paper title as reported by the source.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Affiliations lists author affiliations, aligned with Authors where
	// the source provides pairing.
	Affiliations []string `json:"affiliations,omitempty" yaml:"affiliations,omitempty"`

	// Abstract is the paper abstract.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// PDFURL points at the paper PDF.
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	// SupplementalURL points at supplementary material.
	SupplementalURL string `json:"supplemental_url,omitempty" yaml:"supplemental_url,omitempty"`

	// RepoURL is a code repository link extracted from the record.
	RepoURL string `json:"repo_url,omitempty" yaml:"repo_url,omitempty"`

	// FetchedAt is when the adapter produced this record.
	FetchedAt time.Time `json:"fetched_at" yaml:"fetched_at"`
}

// FieldOrigin records which source last supplied a canonical field's
// value and at what priority rank.
type FieldOrigin struct {
	Source Source `json:"source" yaml:"source"`
	Rank   int    `json:"rank" yaml:"rank"`
}

// CodeStatus is the repository-authenticity state of a canonical paper.
type CodeStatus string

const (
	CodeUnknown             CodeStatus = "unknown"
	CodeVerifiedPresent     CodeStatus = "verified_present"
	CodeVerifiedPlaceholder CodeStatus = "verified_placeholder"
	CodeNoRepo              CodeStatus = "no_repo"
)

// CanonicalPaper is the deduplicated, merged representation of a paper
// across sources. A field is only overwritten by a record whose rank is
// at least as authoritative as the one recorded in Provenance.
type CanonicalPaper struct {
	// PaperKey is the stable identity: the explicit external ID when one
	// was seen, otherwise the normalized title + first-author surname key.
	PaperKey string `json:"paper_key" yaml:"paper_key"`

	// TitleKey is the normalized title + first-author surname key, kept
	// alongside PaperKey so re-runs that lack the ID-bearing source still
	// converge on the stored record.
	TitleKey string `json:"title_key" yaml:"title_key"`

	// Conference and Year scope the paper to one conference instance.
	Conference string `json:"conference" yaml:"conference"`
	Year       int    `json:"year" yaml:"year"`

	// ExternalID is the cross-source identifier, when any source supplied one.
	ExternalID string `json:"external_id,omitempty" yaml:"external_id,omitempty"`

	Title           string   `json:"title" yaml:"title"`
	Authors         []string `json:"authors,omitempty" yaml:"authors,omitempty"`
	Affiliations    []string `json:"affiliations,omitempty" yaml:"affiliations,omitempty"`
	Abstract        string   `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	PDFURL          string   `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`
	SupplementalURL string   `json:"supplemental_url,omitempty" yaml:"supplemental_url,omitempty"`
	RepoURL         string   `json:"repo_url,omitempty" yaml:"repo_url,omitempty"`

	// Provenance maps a field name ("title", "authors", "abstract",
	// "pdf_url", "supplemental_url", "repo_url") to the source that last
	// supplied its value. Authors and affiliations move as one unit under
	// the "authors" entry so pairings stay consistent.
	Provenance map[string]FieldOrigin `json:"provenance" yaml:"provenance"`

	// CodeStatus is the current repository verification state.
	CodeStatus CodeStatus `json:"code_status" yaml:"code_status"`

	// UpdatedAt is when the record was last written to the store.
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}
