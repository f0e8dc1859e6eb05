// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-recommender/internal/citation"
	"github.com/pdiddy/paper-recommender/internal/recommend"
	"github.com/pdiddy/paper-recommender/internal/reviewed"
	"github.com/pdiddy/paper-recommender/internal/similarity"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Build the embedding profile and citation network",
	Long: `Init fetches the Zotero library, builds the embedding profile and the
citation network, and caches both without running a recommendation. Later
recommend runs reuse the caches, so the first run after a large library
import is best done here.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().Bool("force", false, "rebuild even when cached artifacts exist")
	initCmd.Flags().Int("workers", 0, "concurrent citation-network workers (default 5)")
	initCmd.Flags().Int("max-papers", 0, "cap library papers used for the citation network")
	initCmd.Flags().Int("max-citations", 0, "cap citing works fetched per library paper (default 20, -1 for unlimited)")

	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	if err := requireLibraryConfig(cfg); err != nil {
		return err
	}
	ctx := context.Background()
	out := os.Stdout

	store, err := openCache(cmd, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	revStore, err := reviewed.Open(filepath.Join(cacheDir(cmd, cfg), "reviewed"))
	if err != nil {
		return err
	}
	defer revStore.Close()

	libClient := newLibraryClient(cfg)
	graphClient := newGraphClient(cfg)

	collectionKey, namespace, err := resolveCollection(ctx, cmd, cfg, libClient, out)
	if err != nil {
		return err
	}

	embedder := similarity.NewLocalEmbedder(cfg.Similarity.Model)
	defer embedder.Close()

	engine := similarity.NewEngine(embedder, store, namespace)
	scorer := citation.NewScorer(store, namespace)
	r := recommend.New(libClient, graphClient, graphClient, engine, scorer, revStore)

	force, _ := cmd.Flags().GetBool("force")
	maxPapers, _ := cmd.Flags().GetInt("max-papers")
	workers, _ := cmd.Flags().GetInt("workers")
	if workers == 0 {
		workers = cfg.Citation.MaxWorkers
	}
	maxCitations, _ := cmd.Flags().GetInt("max-citations")
	if maxCitations == 0 {
		maxCitations = cfg.Citation.MaxCitations
	}

	err = r.Initialize(ctx, recommend.InitParams{
		CollectionKey: collectionKey,
		Force:         force,
		MaxPapers:     maxPapers,
		MaxCitations:  maxCitations,
		MaxWorkers:    workers,
	}, out)
	if err != nil {
		return err
	}

	libStats := r.LibraryStats()
	netStats := r.NetworkStats()
	fmt.Fprintf(out, "\nInitialized collection %q:\n", namespace)
	fmt.Fprintf(out, "  Library papers:   %d\n", libStats.TotalPapers)
	fmt.Fprintf(out, "  Papers mapped:    %d\n", netStats.LibraryPapersMapped)
	fmt.Fprintf(out, "  Citing papers:    %d\n", netStats.CitingPapers)
	return nil
}
