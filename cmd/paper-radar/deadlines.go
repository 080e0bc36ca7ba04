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
	"github.com/pdiddy/paper-radar/internal/store"
)

var deadlinesCmd = &cobra.Command{
	Use:   "deadlines",
	Short: "Show tracked conference deadlines and window state",
	Long: `Deadlines lists every tracked deadline occurrence with its collection
window state. With --refresh the deadline feed is reconciled into the
store first, which is what "run" does automatically.`,
	RunE: runDeadlines,
}

func init() {
	deadlinesCmd.Flags().Bool("refresh", false, "reconcile the deadline feed before listing")

	rootCmd.AddCommand(deadlinesCmd)
}

func runDeadlines(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	tracker := deadline.NewTracker(st, cfg.Monitoring.LagDays)

	if refresh, _ := cmd.Flags().GetBool("refresh"); refresh {
		var entries []deadline.FeedEntry
		switch {
		case cfg.Monitoring.FeedPath != "":
			entries, err = deadline.LoadFeed(cfg.Monitoring.FeedPath)
		case cfg.Monitoring.FeedURL != "":
			client := &http.Client{Timeout: cfg.Monitoring.Timeout}
			entries, err = deadline.FetchFeed(ctx, client, cfg.Monitoring.FeedURL)
		default:
			err = fmt.Errorf("no feed_path or feed_url configured")
		}
		if err != nil {
			return err
		}
		if err := tracker.Refresh(ctx, cfg.Conferences, entries, os.Stderr); err != nil {
			return err
		}
	}

	all, err := st.Deadlines(ctx)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Println("No deadlines tracked. Run with --refresh to load the feed.")
		return nil
	}

	now := time.Now()
	fmt.Printf("%-12s  %-6s  %-20s  %-8s  %s\n", "Conference", "Year", "Deadline", "Lag", "State")
	for _, d := range all {
		state := "waiting"
		switch {
		case d.WindowClosed:
			state = "collected"
		case d.DueAt(now):
			state = "due"
		}
		fmt.Printf("%-12s  %-6d  %-20s  %-8s  %s\n",
			d.ConferenceID, d.Year, d.Deadline.Format("2006-01-02 15:04"),
			fmt.Sprintf("%dd", d.LagDays), state)
	}
	return nil
}
