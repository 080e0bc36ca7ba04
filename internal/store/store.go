// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists deadlines, canonical papers, repository verdicts,
// and summaries in a SQLite database. All writes are keyed upserts, so
// repeated pipeline runs converge instead of duplicating rows.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// Store manages the paper-radar SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at dbPath and ensures the schema exists.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS deadlines (
			conference_id TEXT NOT NULL,
			year INTEGER NOT NULL,
			deadline TEXT NOT NULL,
			lag_days INTEGER NOT NULL DEFAULT 0,
			window_closed INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (conference_id, deadline)
		)`,
		`CREATE TABLE IF NOT EXISTS papers (
			paper_key TEXT PRIMARY KEY,
			title_key TEXT,
			conference TEXT NOT NULL,
			year INTEGER NOT NULL,
			external_id TEXT,
			title TEXT,
			authors TEXT,
			affiliations TEXT,
			abstract TEXT,
			pdf_url TEXT,
			supplemental_url TEXT,
			repo_url TEXT,
			provenance TEXT,
			code_status TEXT NOT NULL DEFAULT 'unknown',
			updated_at TEXT
		)`,
		// Not unique: papers carrying distinct external ids may share
		// a title key and are kept as separate rows.
		`CREATE INDEX IF NOT EXISTS idx_papers_title_key
			ON papers(conference, year, title_key)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_conference ON papers(conference, year)`,
		`CREATE TABLE IF NOT EXISTS verdicts (
			repo_url TEXT PRIMARY KEY,
			has_code_files INTEGER NOT NULL DEFAULT 0,
			has_commits_after_paper INTEGER NOT NULL DEFAULT 0,
			readme_placeholder INTEGER NOT NULL DEFAULT 0,
			file_count INTEGER NOT NULL DEFAULT 0,
			last_commit TEXT,
			verdict TEXT NOT NULL,
			verdict_source TEXT NOT NULL,
			checked_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS summaries (
			paper_key TEXT PRIMARY KEY REFERENCES papers(paper_key) ON DELETE CASCADE,
			tldr TEXT NOT NULL,
			model TEXT,
			created_at TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// --- deadlines ---

// UpsertDeadline inserts or refreshes a deadline occurrence. The
// window_closed flag of an existing row is preserved so a feed refresh
// never re-opens a collected window.
func (s *Store) UpsertDeadline(ctx context.Context, d types.ConferenceDeadline) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deadlines (conference_id, year, deadline, lag_days)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(conference_id, deadline) DO UPDATE SET
			year=excluded.year, lag_days=excluded.lag_days`,
		d.ConferenceID, d.Year, d.Deadline.UTC().Format(time.RFC3339), d.LagDays,
	)
	if err != nil {
		return fmt.Errorf("upserting deadline %s: %w", d.ConferenceID, err)
	}
	return nil
}

// Deadlines returns all tracked deadline occurrences.
func (s *Store) Deadlines(ctx context.Context) ([]types.ConferenceDeadline, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT conference_id, year, deadline, lag_days, window_closed
		 FROM deadlines ORDER BY deadline DESC, conference_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying deadlines: %w", err)
	}
	defer rows.Close()

	var out []types.ConferenceDeadline
	for rows.Next() {
		var d types.ConferenceDeadline
		var deadline string
		var closed int
		if err := rows.Scan(&d.ConferenceID, &d.Year, &deadline, &d.LagDays, &closed); err != nil {
			return nil, fmt.Errorf("scanning deadline: %w", err)
		}
		t, err := time.Parse(time.RFC3339, deadline)
		if err != nil {
			return nil, fmt.Errorf("parsing stored deadline %q: %w", deadline, err)
		}
		d.Deadline = t
		d.WindowClosed = closed != 0
		out = append(out, d)
	}
	return out, rows.Err()
}

// CloseWindow marks a deadline occurrence as collected. Closing an
// already-closed or unknown occurrence is a no-op.
func (s *Store) CloseWindow(ctx context.Context, conferenceID string, deadline time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE deadlines SET window_closed=1 WHERE conference_id=? AND deadline=?`,
		conferenceID, deadline.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("closing window for %s: %w", conferenceID, err)
	}
	return nil
}

// --- papers ---

// GetPaper returns the canonical paper for paperKey, or nil when absent.
func (s *Store) GetPaper(ctx context.Context, paperKey string) (*types.CanonicalPaper, error) {
	return s.getPaperWhere(ctx, `paper_key = ?`, paperKey)
}

// GetPaperByTitleKey returns the canonical paper matching the fuzzy
// title key within one conference instance, or nil when absent.
func (s *Store) GetPaperByTitleKey(ctx context.Context, conference string, year int, titleKey string) (*types.CanonicalPaper, error) {
	return s.getPaperWhere(ctx, `conference = ? AND year = ? AND title_key = ?`, conference, year, titleKey)
}

func (s *Store) getPaperWhere(ctx context.Context, where string, args ...any) (*types.CanonicalPaper, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT paper_key, title_key, conference, year, external_id, title, authors,
		        affiliations, abstract, pdf_url, supplemental_url, repo_url,
		        provenance, code_status, updated_at
		 FROM papers WHERE `+where, args...)

	p, err := scanPaper(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPaper(row rowScanner) (*types.CanonicalPaper, error) {
	var p types.CanonicalPaper
	var authors, affiliations, provenance, updatedAt sql.NullString
	var externalID, title, abstract, pdfURL, suppURL, repoURL sql.NullString

	err := row.Scan(&p.PaperKey, &p.TitleKey, &p.Conference, &p.Year, &externalID,
		&title, &authors, &affiliations, &abstract, &pdfURL, &suppURL, &repoURL,
		&provenance, &p.CodeStatus, &updatedAt)
	if err != nil {
		return nil, err
	}

	p.ExternalID = externalID.String
	p.Title = title.String
	p.Abstract = abstract.String
	p.PDFURL = pdfURL.String
	p.SupplementalURL = suppURL.String
	p.RepoURL = repoURL.String

	if authors.String != "" {
		if err := json.Unmarshal([]byte(authors.String), &p.Authors); err != nil {
			return nil, fmt.Errorf("decoding authors for %s: %w", p.PaperKey, err)
		}
	}
	if affiliations.String != "" {
		if err := json.Unmarshal([]byte(affiliations.String), &p.Affiliations); err != nil {
			return nil, fmt.Errorf("decoding affiliations for %s: %w", p.PaperKey, err)
		}
	}
	p.Provenance = map[string]types.FieldOrigin{}
	if provenance.String != "" {
		if err := json.Unmarshal([]byte(provenance.String), &p.Provenance); err != nil {
			return nil, fmt.Errorf("decoding provenance for %s: %w", p.PaperKey, err)
		}
	}
	if updatedAt.String != "" {
		if t, parseErr := time.Parse(time.RFC3339, updatedAt.String); parseErr == nil {
			p.UpdatedAt = t
		}
	}
	return &p, nil
}

// PutPaper writes a canonical paper keyed by paper_key, replacing any
// existing row.
func (s *Store) PutPaper(ctx context.Context, p *types.CanonicalPaper) error {
	authorsJSON, _ := json.Marshal(p.Authors)
	affiliationsJSON, _ := json.Marshal(p.Affiliations)
	provenanceJSON, _ := json.Marshal(p.Provenance)
	updatedAt := p.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO papers (paper_key, title_key, conference, year, external_id,
		        title, authors, affiliations, abstract, pdf_url, supplemental_url,
		        repo_url, provenance, code_status, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(paper_key) DO UPDATE SET
			title_key=excluded.title_key, conference=excluded.conference,
			year=excluded.year, external_id=excluded.external_id,
			title=excluded.title, authors=excluded.authors,
			affiliations=excluded.affiliations, abstract=excluded.abstract,
			pdf_url=excluded.pdf_url, supplemental_url=excluded.supplemental_url,
			repo_url=excluded.repo_url, provenance=excluded.provenance,
			code_status=excluded.code_status, updated_at=excluded.updated_at`,
		p.PaperKey, p.TitleKey, p.Conference, p.Year, p.ExternalID,
		p.Title, string(authorsJSON), string(affiliationsJSON), p.Abstract,
		p.PDFURL, p.SupplementalURL, p.RepoURL, string(provenanceJSON),
		string(p.CodeStatus), updatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting paper %s: %w", p.PaperKey, err)
	}
	return nil
}

// Papers returns the canonical papers for one conference instance,
// ordered by title for deterministic output.
func (s *Store) Papers(ctx context.Context, conference string, year int) ([]types.CanonicalPaper, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT paper_key, title_key, conference, year, external_id, title, authors,
		        affiliations, abstract, pdf_url, supplemental_url, repo_url,
		        provenance, code_status, updated_at
		 FROM papers WHERE conference = ? AND year = ? ORDER BY title ASC`,
		conference, year)
	if err != nil {
		return nil, fmt.Errorf("querying papers: %w", err)
	}
	defer rows.Close()

	var out []types.CanonicalPaper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// SetCodeStatus updates only the code_status column of a paper.
func (s *Store) SetCodeStatus(ctx context.Context, paperKey string, status types.CodeStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE papers SET code_status=? WHERE paper_key=?`, string(status), paperKey)
	if err != nil {
		return fmt.Errorf("setting code status for %s: %w", paperKey, err)
	}
	return nil
}

// --- verdicts ---

// GetVerdict returns the current verdict for repoURL, or nil when absent.
func (s *Store) GetVerdict(ctx context.Context, repoURL string) (*types.RepositoryVerdict, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT repo_url, has_code_files, has_commits_after_paper, readme_placeholder,
		        file_count, last_commit, verdict, verdict_source, checked_at
		 FROM verdicts WHERE repo_url = ?`, repoURL)

	var v types.RepositoryVerdict
	var hasCode, hasCommits, readmePlaceholder int
	var lastCommit, checkedAt sql.NullString
	err := row.Scan(&v.RepoURL, &hasCode, &hasCommits, &readmePlaceholder,
		&v.Signals.FileCount, &lastCommit, &v.Verdict, &v.Source, &checkedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying verdict for %s: %w", repoURL, err)
	}

	v.Signals.HasCodeFiles = hasCode != 0
	v.Signals.HasCommitsAfterPaper = hasCommits != 0
	v.Signals.ReadmePlaceholder = readmePlaceholder != 0
	if lastCommit.String != "" {
		if t, parseErr := time.Parse(time.RFC3339, lastCommit.String); parseErr == nil {
			v.Signals.LastCommit = t
		}
	}
	if checkedAt.String != "" {
		if t, parseErr := time.Parse(time.RFC3339, checkedAt.String); parseErr == nil {
			v.CheckedAt = t
		}
	}
	return &v, nil
}

// PutVerdict writes a verdict keyed by repo_url, superseding any prior
// verdict for the same repository.
func (s *Store) PutVerdict(ctx context.Context, v types.RepositoryVerdict) error {
	lastCommit := ""
	if !v.Signals.LastCommit.IsZero() {
		lastCommit = v.Signals.LastCommit.UTC().Format(time.RFC3339)
	}
	checkedAt := v.CheckedAt
	if checkedAt.IsZero() {
		checkedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO verdicts (repo_url, has_code_files, has_commits_after_paper,
		        readme_placeholder, file_count, last_commit, verdict, verdict_source, checked_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(repo_url) DO UPDATE SET
			has_code_files=excluded.has_code_files,
			has_commits_after_paper=excluded.has_commits_after_paper,
			readme_placeholder=excluded.readme_placeholder,
			file_count=excluded.file_count, last_commit=excluded.last_commit,
			verdict=excluded.verdict, verdict_source=excluded.verdict_source,
			checked_at=excluded.checked_at`,
		v.RepoURL, boolInt(v.Signals.HasCodeFiles), boolInt(v.Signals.HasCommitsAfterPaper),
		boolInt(v.Signals.ReadmePlaceholder), v.Signals.FileCount, lastCommit,
		string(v.Verdict), string(v.Source), checkedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting verdict for %s: %w", v.RepoURL, err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// --- summaries ---

// PapersWithoutSummary returns up to limit papers for one conference
// instance that have an abstract but no stored summary.
func (s *Store) PapersWithoutSummary(ctx context.Context, conference string, year int, limit int) ([]types.CanonicalPaper, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.paper_key, p.title_key, p.conference, p.year, p.external_id, p.title,
		        p.authors, p.affiliations, p.abstract, p.pdf_url, p.supplemental_url,
		        p.repo_url, p.provenance, p.code_status, p.updated_at
		 FROM papers p
		 LEFT JOIN summaries s ON p.paper_key = s.paper_key
		 WHERE p.conference = ? AND p.year = ? AND s.paper_key IS NULL
		   AND p.abstract IS NOT NULL AND p.abstract != ''
		 ORDER BY p.title ASC LIMIT ?`,
		conference, year, limit)
	if err != nil {
		return nil, fmt.Errorf("querying papers without summary: %w", err)
	}
	defer rows.Close()

	var out []types.CanonicalPaper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// PutSummary stores a generated summary for a paper.
func (s *Store) PutSummary(ctx context.Context, paperKey, tldr, model string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO summaries (paper_key, tldr, model, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(paper_key) DO UPDATE SET
			tldr=excluded.tldr, model=excluded.model, created_at=excluded.created_at`,
		paperKey, tldr, model, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting summary for %s: %w", paperKey, err)
	}
	return nil
}
