// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/paper-radar/pkg/types"
)

const defaultUserAgent = "paper-radar/0.1"

// loadConfig unmarshals the viper-resolved configuration and fills the
// gaps: defaults for everything tunable, secrets for the credentials.
func loadConfig() (types.PipelineConfig, error) {
	var cfg types.PipelineConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing configuration: %w", err)
	}

	if cfg.Monitoring.LagDays <= 0 {
		cfg.Monitoring.LagDays = 3
	}
	if cfg.Monitoring.MaxConcurrentConferences <= 0 {
		cfg.Monitoring.MaxConcurrentConferences = 2
	}
	if cfg.Sources.Timeout <= 0 {
		cfg.Sources.Timeout = 30 * time.Second
	}
	if cfg.Sources.UserAgent == "" {
		cfg.Sources.UserAgent = defaultUserAgent
	}
	if cfg.Verifier.Timeout <= 0 {
		cfg.Verifier.Timeout = 30 * time.Second
	}
	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = "paper-radar.db"
	}

	cfg.LLM.APIKey = secretDefault("openai-api-key", cfg.LLM.APIKey)
	return cfg, nil
}

// githubToken returns the token for code-hosting API calls, if one was
// provided.
func githubToken() string {
	return secretDefault("github-token", "")
}
