// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// SnapshotFetcher fetches repository evidence. *GitHubClient is the
// production implementation.
type SnapshotFetcher interface {
	Snapshot(ctx context.Context, repoURL string) (*RepoSnapshot, error)
}

// Classifier breaks ties the structural rules cannot decide.
type Classifier interface {
	ClassifyRepo(ctx context.Context, signals types.RepoSignals, readme string) (types.Verdict, error)
	Available() bool
}

// Verifier classifies a paper's linked repository as real code or a
// placeholder. Rules decide the clear cases; ambiguous repositories go
// to the classifier when one is configured and stay inconclusive
// otherwise.
type Verifier struct {
	GitHub     SnapshotFetcher
	Classifier Classifier

	Grace               time.Duration
	PlaceholderMaxFiles int
	SubstantialFiles    int
	Now                 func() time.Time
}

func NewVerifier(github SnapshotFetcher, classifier Classifier, cfg types.VerifierConfig) *Verifier {
	graceDays := cfg.GraceDays
	if graceDays <= 0 {
		graceDays = 180
	}
	maxFiles := cfg.PlaceholderMaxFiles
	if maxFiles <= 0 {
		maxFiles = 2
	}
	substantial := cfg.SubstantialFiles
	if substantial <= 0 {
		substantial = 5
	}
	return &Verifier{
		GitHub:              github,
		Classifier:          classifier,
		Grace:               time.Duration(graceDays) * 24 * time.Hour,
		PlaceholderMaxFiles: maxFiles,
		SubstantialFiles:    substantial,
		Now:                 time.Now,
	}
}

// placeholderRe matches README phrasing that promises code instead of
// shipping it.
var placeholderRe = regexp.MustCompile(`(?i)\b(` +
	`code (?:will be|to be|is being) (?:released|available|uploaded)` +
	`|coming soon` +
	`|to be released` +
	`|under construction` +
	`|stay tuned` +
	`|release(?:d|s)? (?:the )?code soon` +
	`|work in progress` +
	`)\b`)

var codeExtensions = map[string]bool{
	".py": true, ".ipynb": true, ".go": true, ".rs": true, ".jl": true,
	".c": true, ".cc": true, ".cpp": true, ".cu": true, ".h": true, ".hpp": true,
	".java": true, ".scala": true, ".kt": true,
	".js": true, ".ts": true, ".sh": true, ".m": true, ".r": true, ".lua": true,
}

// Verify fetches evidence for the repository and produces a verdict.
// An inaccessible repository is a placeholder; a fetch failure leaves
// the verdict inconclusive along with the error so the caller can log
// it and retry on a later run.
func (v *Verifier) Verify(ctx context.Context, repoURL string, paperDate time.Time) (types.RepositoryVerdict, error) {
	verdict := types.RepositoryVerdict{
		RepoURL:   repoURL,
		Source:    types.VerdictByRule,
		CheckedAt: v.Now().UTC(),
	}

	snap, err := v.GitHub.Snapshot(ctx, repoURL)
	if err != nil {
		if errors.Is(err, ErrRepoInaccessible) {
			verdict.Verdict = types.VerdictPlaceholder
			return verdict, nil
		}
		verdict.Verdict = types.VerdictInconclusive
		return verdict, fmt.Errorf("fetching %s: %w", repoURL, err)
	}

	verdict.Signals = types.RepoSignals{
		HasCodeFiles:         hasCodeFiles(snap.FileNames),
		HasCommitsAfterPaper: !snap.LastCommit.IsZero() && snap.LastCommit.After(paperDate),
		ReadmePlaceholder:    placeholderRe.MatchString(snap.Readme),
		FileCount:            snap.FileCount,
		LastCommit:           snap.LastCommit,
	}
	s := verdict.Signals

	switch {
	case s.ReadmePlaceholder && s.FileCount <= v.PlaceholderMaxFiles:
		verdict.Verdict = types.VerdictPlaceholder
	case s.HasCodeFiles && s.FileCount >= v.SubstantialFiles:
		verdict.Verdict = types.VerdictPresent
	case !s.HasCodeFiles && paperDate.Sub(snap.LastCommit) > v.Grace:
		// Nothing but a stale shell: no code and no activity anywhere
		// near the paper.
		verdict.Verdict = types.VerdictPlaceholder
	default:
		return v.classify(ctx, verdict, snap)
	}
	return verdict, nil
}

// classify hands an ambiguous repository to the language-model
// classifier. Without one, or when the call fails, the verdict stays
// inconclusive and a later run retries.
func (v *Verifier) classify(ctx context.Context, verdict types.RepositoryVerdict, snap *RepoSnapshot) (types.RepositoryVerdict, error) {
	verdict.Verdict = types.VerdictInconclusive
	if v.Classifier == nil || !v.Classifier.Available() {
		return verdict, nil
	}

	answer, err := v.Classifier.ClassifyRepo(ctx, verdict.Signals, snap.Readme)
	if err != nil {
		return verdict, fmt.Errorf("classifying %s: %w", verdict.RepoURL, err)
	}
	verdict.Verdict = answer
	verdict.Source = types.VerdictByLLM
	return verdict, nil
}

func hasCodeFiles(names []string) bool {
	for _, name := range names {
		if codeExtensions[strings.ToLower(path.Ext(name))] {
			return true
		}
	}
	return false
}
