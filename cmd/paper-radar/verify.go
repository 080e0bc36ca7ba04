// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-radar/internal/llm"
	"github.com/pdiddy/paper-radar/internal/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [repo-url]",
	Short: "Check one repository link for actual code",
	Long: `Verify fetches a repository's file listing, latest commit, and README,
and classifies it as present, placeholder, or inconclusive. This is the
same check "run" applies to every collected paper; the standalone command
exists for spot checks and for tuning thresholds.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().String("paper-date", "", "paper publication date, YYYY-MM-DD (default today)")

	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	paperDate := time.Now().UTC()
	if s, _ := cmd.Flags().GetString("paper-date"); s != "" {
		paperDate, err = time.Parse("2006-01-02", s)
		if err != nil {
			return fmt.Errorf("parsing --paper-date: %w", err)
		}
	}

	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		return err
	}
	var classifier verify.Classifier
	if provider != nil {
		classifier = provider
	}

	client := &http.Client{Timeout: cfg.Verifier.Timeout}
	github := verify.NewGitHubClient(client, githubToken(), cfg.Verifier)
	verifier := verify.NewVerifier(github, classifier, cfg.Verifier)

	verdict, err := verifier.Verify(context.Background(), args[0], paperDate)
	if err != nil {
		return err
	}

	fmt.Printf("Repository: %s\n", verdict.RepoURL)
	fmt.Printf("Verdict:    %s (by %s)\n", verdict.Verdict, verdict.Source)
	fmt.Printf("Files:      %d (code: %t)\n", verdict.Signals.FileCount, verdict.Signals.HasCodeFiles)
	if !verdict.Signals.LastCommit.IsZero() {
		fmt.Printf("Last commit: %s (after paper: %t)\n",
			verdict.Signals.LastCommit.Format("2006-01-02"), verdict.Signals.HasCommitsAfterPaper)
	}
	if verdict.Signals.ReadmePlaceholder {
		fmt.Println("README:     placeholder phrasing detected")
	}
	return nil
}
