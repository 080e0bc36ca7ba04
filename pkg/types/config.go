// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-radar/0.1").
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
}

// MonitoringConfig holds settings for deadline tracking and run scheduling.
type MonitoringConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// FeedPath is a local deadline feed file (ccf-deadlines YAML layout).
	FeedPath string `yaml:"feed_path" mapstructure:"feed_path"`

	// FeedURL is an HTTP(S) deadline feed, used when FeedPath is empty.
	FeedURL string `yaml:"feed_url" mapstructure:"feed_url"`

	// LagDays is how many days after a deadline collection waits before
	// the conference becomes due (default 3).
	LagDays int `yaml:"lag_days" mapstructure:"lag_days"`

	// MaxConcurrentConferences bounds how many due conferences are
	// processed in parallel (default 2).
	MaxConcurrentConferences int `yaml:"max_concurrent_conferences" mapstructure:"max_concurrent_conferences"`
}

// OpenReviewConfig configures the OpenReview adapter for one conference.
type OpenReviewConfig struct {
	// VenueID is the OpenReview venue (e.g. "ICLR.cc/2025/Conference").
	VenueID string `yaml:"venue_id" mapstructure:"venue_id"`

	// Limit caps the number of notes fetched (default 200).
	Limit int `yaml:"limit" mapstructure:"limit"`

	// MaxAffiliationLookups caps per-author profile requests per note.
	// Zero disables affiliation lookups.
	MaxAffiliationLookups int `yaml:"max_affiliation_lookups" mapstructure:"max_affiliation_lookups"`
}

// OfficialSiteConfig configures the official-site adapter for one
// conference: a listing URL plus CSS selectors for each field. Selectors
// other than ItemSelector are optional; missing ones yield empty fields.
type OfficialSiteConfig struct {
	ListURL              string `yaml:"list_url" mapstructure:"list_url"`
	ItemSelector         string `yaml:"item_selector" mapstructure:"item_selector"`
	TitleSelector        string `yaml:"title_selector" mapstructure:"title_selector"`
	AuthorsSelector      string `yaml:"authors_selector" mapstructure:"authors_selector"`
	AffiliationsSelector string `yaml:"affiliations_selector" mapstructure:"affiliations_selector"`
	AbstractSelector     string `yaml:"abstract_selector" mapstructure:"abstract_selector"`
	PDFSelector          string `yaml:"pdf_selector" mapstructure:"pdf_selector"`
	SupplementalSelector string `yaml:"supplemental_selector" mapstructure:"supplemental_selector"`
}

// ArxivConfig configures the arXiv adapter for one conference.
type ArxivConfig struct {
	// Categories restrict the query (e.g. "cs.LG", "cs.CV").
	Categories []string `yaml:"categories" mapstructure:"categories"`

	// Keywords are additional abstract terms OR-ed into the query.
	Keywords []string `yaml:"keywords" mapstructure:"keywords"`

	// MaxResults caps the feed size (default 100).
	MaxResults int `yaml:"max_results" mapstructure:"max_results"`
}

// ConferenceConfig describes one tracked conference instance.
type ConferenceConfig struct {
	// Name is the conference acronym used to match the deadline feed.
	Name string `yaml:"name" mapstructure:"name"`

	// Year is the conference year.
	Year int `yaml:"year" mapstructure:"year"`

	// SourcePriority orders the adapters from highest to lowest
	// authority. Defaults to openreview, official, arxiv.
	SourcePriority []string `yaml:"source_priority" mapstructure:"source_priority"`

	OpenReview   *OpenReviewConfig   `yaml:"openreview,omitempty" mapstructure:"openreview"`
	OfficialSite *OfficialSiteConfig `yaml:"official_site,omitempty" mapstructure:"official_site"`
	Arxiv        *ArxivConfig        `yaml:"arxiv,omitempty" mapstructure:"arxiv"`
}

// SourceConfig holds shared settings for the source adapters.
type SourceConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`
}

// VerifierConfig holds settings for repository verification.
type VerifierConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// GraceDays is the grace period between a paper's publication date
	// and the repository's latest commit. A codeless repository whose
	// last commit predates publication by more than this is a
	// placeholder (default 180).
	GraceDays int `yaml:"grace_days" mapstructure:"grace_days"`

	// PlaceholderMaxFiles is the file count at or below which a
	// placeholder README alone decides the verdict (default 2).
	PlaceholderMaxFiles int `yaml:"placeholder_max_files" mapstructure:"placeholder_max_files"`

	// SubstantialFiles is the file count from which code is considered
	// substantive without consulting the classifier (default 5).
	SubstantialFiles int `yaml:"substantial_files" mapstructure:"substantial_files"`

	// RequestsPerSecond throttles code-hosting API calls (default 1).
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`

	// Workers bounds concurrent repository verifications (default 4).
	Workers int `yaml:"workers" mapstructure:"workers"`

	// CacheTTL is how long fetched repository signals are reused within
	// a run (default 1h).
	CacheTTL time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// LLMConfig holds settings for the classification/summarization service.
// An empty Provider disables the service: verification degrades to
// rule-only mode and no summaries are generated.
type LLMConfig struct {
	// Provider names the backend; "openai" is supported.
	Provider string `yaml:"provider" mapstructure:"provider"`

	// Model is the model identifier (default gpt-4o-mini).
	Model string `yaml:"model" mapstructure:"model"`

	// APIKey authenticates against the service. Usually supplied via the
	// openai-api-key secret file rather than config.
	APIKey string `yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL overrides the API endpoint (tests, proxies).
	BaseURL string `yaml:"base_url,omitempty" mapstructure:"base_url"`

	// MaxBatchSize caps papers per summarization call (default 10).
	MaxBatchSize int `yaml:"max_batch_size" mapstructure:"max_batch_size"`

	// MaxTokens limits response length (default 1024).
	MaxTokens int `yaml:"max_tokens" mapstructure:"max_tokens"`

	// Timeout is the per-call timeout (default 60s).
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// StorageConfig holds settings for the record store.
type StorageConfig struct {
	// DBPath is the SQLite database file (default "paper-radar.db").
	DBPath string `yaml:"db_path" mapstructure:"db_path"`

	// LockPath is the run-lock file; defaults to DBPath + ".lock".
	LockPath string `yaml:"lock_path" mapstructure:"lock_path"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Monitoring  MonitoringConfig   `yaml:"monitoring" mapstructure:"monitoring"`
	Sources     SourceConfig       `yaml:"sources" mapstructure:"sources"`
	Conferences []ConferenceConfig `yaml:"conferences" mapstructure:"conferences"`
	Verifier    VerifierConfig     `yaml:"verifier" mapstructure:"verifier"`
	LLM         LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Storage     StorageConfig      `yaml:"storage" mapstructure:"storage"`
}
