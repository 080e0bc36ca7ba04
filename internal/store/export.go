// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// ExportEntry is one paper in the downstream export: the canonical
// record plus its summary and repository verdict, when available.
type ExportEntry struct {
	types.CanonicalPaper `yaml:",inline"`
	Summary              string                   `yaml:"summary,omitempty"`
	Repository           *types.RepositoryVerdict `yaml:"repository,omitempty"`
}

// Export writes every canonical paper with its verdict and summary as a
// YAML stream. The site generator consumes this file; the store exposes
// no other surface downstream.
func (s *Store) Export(ctx context.Context, w io.Writer) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.paper_key, p.title_key, p.conference, p.year, p.external_id, p.title,
		        p.authors, p.affiliations, p.abstract, p.pdf_url, p.supplemental_url,
		        p.repo_url, p.provenance, p.code_status, p.updated_at
		 FROM papers p ORDER BY p.conference, p.year DESC, p.title ASC`)
	if err != nil {
		return fmt.Errorf("querying papers for export: %w", err)
	}
	defer rows.Close()

	var entries []ExportEntry
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return err
		}
		entries = append(entries, ExportEntry{CanonicalPaper: *p})
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range entries {
		e := &entries[i]

		var tldr string
		switch err := s.db.QueryRowContext(ctx,
			`SELECT tldr FROM summaries WHERE paper_key = ?`, e.PaperKey).Scan(&tldr); err {
		case nil:
			e.Summary = tldr
		case sql.ErrNoRows:
		default:
			return fmt.Errorf("querying summary for %s: %w", e.PaperKey, err)
		}

		if e.RepoURL != "" {
			v, err := s.GetVerdict(ctx, e.RepoURL)
			if err != nil {
				return err
			}
			e.Repository = v
		}
	}

	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	return nil
}
