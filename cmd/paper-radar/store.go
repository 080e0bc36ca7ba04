// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-radar/internal/store"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect and export collected papers",
}

var storeListCmd = &cobra.Command{
	Use:   "list [conference] [year]",
	Short: "List collected papers for a conference",
	Args:  cobra.ExactArgs(2),
	RunE:  runStoreList,
}

func runStoreList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	var year int
	if _, err := fmt.Sscanf(args[1], "%d", &year); err != nil {
		return fmt.Errorf("parsing year %q: %w", args[1], err)
	}

	papers, err := st.Papers(context.Background(), args[0], year)
	if err != nil {
		return err
	}
	if len(papers) == 0 {
		fmt.Println("No papers collected.")
		return nil
	}

	for _, p := range papers {
		title := p.Title
		if len(title) > 60 {
			title = title[:57] + "..."
		}
		fmt.Printf("%-62s  %-20s  %s\n", title, p.CodeStatus, p.PaperKey)
	}
	fmt.Printf("\n%d papers\n", len(papers))
	return nil
}

var storeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all papers with verdicts and summaries as YAML",
	Long: `Export writes every canonical paper, joined with its repository
verdict and summary, as a YAML stream on stdout (or --out). The site
generator consumes this file.`,
	RunE: runStoreExport,
}

func runStoreExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	out := os.Stdout
	if path, _ := cmd.Flags().GetString("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return st.Export(context.Background(), out)
}

func init() {
	storeExportCmd.Flags().String("out", "", "write the export to a file instead of stdout")

	storeCmd.AddCommand(storeListCmd)
	storeCmd.AddCommand(storeExportCmd)
	rootCmd.AddCommand(storeCmd)
}
