// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Verdict is the tri-state authenticity outcome for a repository link.
type Verdict string

const (
	VerdictPresent      Verdict = "present"
	VerdictPlaceholder  Verdict = "placeholder"
	VerdictInconclusive Verdict = "inconclusive"
)

// VerdictSource says whether a verdict came from the rule filter or from
// the external classification service.
type VerdictSource string

const (
	VerdictByRule VerdictSource = "rule"
	VerdictByLLM  VerdictSource = "llm"
)

// RepoSignals are the observable facts a verdict is derived from. The
// verdict is a pure function of these signals, so re-running verification
// against an unchanged repository yields the same verdict.
type RepoSignals struct {
	// HasCodeFiles reports whether the top-level listing contains files
	// with a recognized source-code extension.
	HasCodeFiles bool `json:"has_code_files" yaml:"has_code_files"`

	// HasCommitsAfterPaper reports whether the latest commit postdates
	// the paper's publication date.
	HasCommitsAfterPaper bool `json:"has_commits_after_paper" yaml:"has_commits_after_paper"`

	// ReadmePlaceholder reports whether the README matches known
	// placeholder phrasing ("code coming soon" and variants).
	ReadmePlaceholder bool `json:"readme_placeholder" yaml:"readme_placeholder"`

	// FileCount is the number of top-level entries in the repository.
	FileCount int `json:"file_count" yaml:"file_count"`

	// LastCommit is the latest commit timestamp, zero when unknown.
	LastCommit time.Time `json:"last_commit,omitempty" yaml:"last_commit,omitempty"`
}

// RepositoryVerdict is the outcome of one verification pass for a
// repository URL. A later pass for the same URL supersedes it.
type RepositoryVerdict struct {
	RepoURL string        `json:"repo_url" yaml:"repo_url"`
	Signals RepoSignals   `json:"signals" yaml:"signals"`
	Verdict Verdict       `json:"verdict" yaml:"verdict"`
	Source  VerdictSource `json:"verdict_source" yaml:"verdict_source"`

	// CheckedAt is when the verification pass ran.
	CheckedAt time.Time `json:"checked_at" yaml:"checked_at"`
}

// CodeStatusFor maps a verdict to the canonical paper's code status.
// Inconclusive verdicts leave the status unknown rather than guessing.
func CodeStatusFor(v Verdict) CodeStatus {
	switch v {
	case VerdictPresent:
		return CodeVerifiedPresent
	case VerdictPlaceholder:
		return CodeVerifiedPlaceholder
	default:
		return CodeUnknown
	}
}
