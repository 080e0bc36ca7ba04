// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-radar/internal/deadline"
	"github.com/pdiddy/paper-radar/internal/llm"
	"github.com/pdiddy/paper-radar/internal/pipeline"
	"github.com/pdiddy/paper-radar/internal/store"
	"github.com/pdiddy/paper-radar/internal/verify"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one collection pass over all due conferences",
	Long: `Run refreshes the deadline feed, finds conferences whose collection
window is open, and collects each one: fetch from the configured sources,
merge, verify repository links, and summarize. A conference's window closes
only after its collection succeeds, so failed conferences are retried on
the next run.

Run is safe to schedule repeatedly; a lock file serializes overlapping
invocations and conferences with nothing due exit quickly.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().String("as-of", "", "treat this RFC3339 time as now (replays and testing)")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		return err
	}

	verifierClient := &http.Client{Timeout: cfg.Verifier.Timeout}
	github := verify.NewGitHubClient(verifierClient, githubToken(), cfg.Verifier)

	var classifier verify.Classifier
	if provider != nil {
		classifier = provider
	}
	verifier := verify.NewVerifier(github, classifier, cfg.Verifier)

	tracker := deadline.NewTracker(st, cfg.Monitoring.LagDays)

	p := pipeline.New(cfg, st, tracker, verifier, provider, os.Stdout)
	if asOf, _ := cmd.Flags().GetString("as-of"); asOf != "" {
		now, err := time.Parse(time.RFC3339, asOf)
		if err != nil {
			return fmt.Errorf("parsing --as-of: %w", err)
		}
		p.Now = func() time.Time { return now }
	}

	return p.Run(context.Background())
}
