// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm provides the language-model services the pipeline can
// degrade without: repository classification for repositories the
// rules cannot decide, and one-paragraph paper summaries.
package llm

import (
	"context"
	"fmt"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// Provider is a language-model backend.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// ClassifyRepo decides whether repository evidence describes real
	// code ("present") or a placeholder.
	ClassifyRepo(ctx context.Context, signals types.RepoSignals, readme string) (types.Verdict, error)

	// SummarizeBatch produces a short summary per paper, keyed by
	// PaperKey. Papers the model skips are simply absent from the map.
	SummarizeBatch(ctx context.Context, papers []*types.CanonicalPaper) (map[string]string, error)

	// Available reports whether the provider is configured and usable.
	Available() bool
}

// NewProvider builds the configured provider. An empty provider name
// means the language-model features are disabled; the caller gets nil
// and runs in rule-only mode.
func NewProvider(cfg types.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "openai":
		return newOpenAIProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
