// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-recommender/internal/library"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show library statistics",
	Long: `Stats fetches the Zotero library (or one collection) and prints summary
counts: total papers, DOI and abstract coverage, and unique authors.`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().Bool("json", false, "output statistics as JSON")

	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	if err := requireLibraryConfig(cfg); err != nil {
		return err
	}
	ctx := context.Background()

	libClient := newLibraryClient(cfg)
	collectionKey, _, err := resolveCollection(ctx, cmd, cfg, libClient, os.Stdout)
	if err != nil {
		return err
	}

	papers, err := libClient.FetchLibrary(ctx, collectionKey, os.Stdout)
	if err != nil {
		return err
	}
	stats := library.Stats(papers)

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	fmt.Printf("Papers:          %d\n", stats.TotalPapers)
	fmt.Printf("With DOI:        %d\n", stats.PapersWithDOI)
	fmt.Printf("With abstract:   %d\n", stats.PapersWithAbstract)
	fmt.Printf("Unique authors:  %d\n", stats.UniqueAuthors)
	return nil
}
