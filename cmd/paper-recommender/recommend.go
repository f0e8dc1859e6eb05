// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-recommender/internal/citation"
	"github.com/pdiddy/paper-recommender/internal/journals"
	"github.com/pdiddy/paper-recommender/internal/recommend"
	"github.com/pdiddy/paper-recommender/internal/reviewed"
	"github.com/pdiddy/paper-recommender/internal/similarity"
	"github.com/pdiddy/paper-recommender/pkg/types"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend recent papers based on your library",
	Long: `Recommend fetches your Zotero library, builds (or reuses) the embedding
profile and citation network, discovers papers published in the last --days
days, scores each candidate by content similarity and citation overlap, and
prints the top results.

Both scoring artifacts are cached under the cache directory; use --force to
rebuild them after large library changes.`,
	RunE: runRecommend,
}

func init() {
	recommendCmd.Flags().Int("days", 0, "look-back window in days (default 7)")
	recommendCmd.Flags().Int("top", 0, "number of recommendations to print (default 10)")
	recommendCmd.Flags().Float64("citation-weight", -1, "weight of the citation score (default 0.3)")
	recommendCmd.Flags().Float64("similarity-weight", -1, "weight of the similarity score (default 0.7)")
	recommendCmd.Flags().Float64("min-citation", -1, "drop candidates below this citation score")
	recommendCmd.Flags().Float64("min-similarity", -1, "drop candidates below this similarity score")
	recommendCmd.Flags().Bool("explain", false, "show the library papers behind each recommendation")
	recommendCmd.Flags().String("export", "", "write recommendations to a file (.json, .yaml, or .bib)")
	recommendCmd.Flags().String("journal-file", "", "load the journal filter from a file (one name per line)")
	recommendCmd.Flags().String("custom-journals", "", "comma-separated journal names to filter on")
	recommendCmd.Flags().Bool("no-filter-journals", false, "search all venues instead of the curated journal list")
	recommendCmd.Flags().Bool("extended-journals", false, "use the extended journal list")
	recommendCmd.Flags().Int("workers", 0, "concurrent citation-network workers (default 5)")
	recommendCmd.Flags().Bool("force", false, "rebuild the embedding profile and citation network")
	recommendCmd.Flags().Int("max-papers", 0, "cap library papers used for the citation network")
	recommendCmd.Flags().Int("max-citations", 0, "cap citing works fetched per library paper (default 20, -1 for unlimited)")
	recommendCmd.Flags().Int("max-candidates", 0, "cap discovered candidates before scoring")
	recommendCmd.Flags().Bool("include-reviewed", false, "include papers already marked as reviewed")
	recommendCmd.Flags().Bool("mark-reviewed", false, "mark printed recommendations as reviewed")

	rootCmd.AddCommand(recommendCmd)
}

func runRecommend(cmd *cobra.Command, args []string) error {
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

	opts, err := recommendOptions(cmd, cfg)
	if err != nil {
		return err
	}

	recs, err := r.Recommend(ctx, opts, out)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(out, "No recommendations. Try a wider --days window or --no-filter-journals.")
		return nil
	}

	explain, _ := cmd.Flags().GetBool("explain")
	printRecommendations(ctx, recs, explain, r)

	if exportPath, _ := cmd.Flags().GetString("export"); exportPath != "" {
		if err := recommend.Export(recs, exportPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "\nExported %d recommendations to %s\n", len(recs), exportPath)
	}

	if mark, _ := cmd.Flags().GetBool("mark-reviewed"); mark {
		for _, rec := range recs {
			if err := revStore.Mark(rec); err != nil {
				return fmt.Errorf("marking %s reviewed: %w", rec.OpenAlexID, err)
			}
		}
		fmt.Fprintf(out, "Marked %d papers as reviewed.\n", len(recs))
	}
	return nil
}

// recommendOptions merges run flags over config defaults.
func recommendOptions(cmd *cobra.Command, cfg types.Config) (recommend.Options, error) {
	opts := recommend.Options{
		DaysBack:           cfg.Recommend.DaysBack,
		Top:                cfg.Recommend.Top,
		CitationWeight:     cfg.Recommend.CitationWeight,
		SimilarityWeight:   cfg.Recommend.SimilarityWeight,
		MinCitationScore:   cfg.Recommend.MinCitationScore,
		MinSimilarityScore: cfg.Recommend.MinSimilarityScore,
		FilterJournals:     cfg.Recommend.FilterJournals,
	}

	if days, _ := cmd.Flags().GetInt("days"); days > 0 {
		opts.DaysBack = days
	}
	if top, _ := cmd.Flags().GetInt("top"); top > 0 {
		opts.Top = top
	}
	if w, _ := cmd.Flags().GetFloat64("citation-weight"); w >= 0 {
		opts.CitationWeight = w
	}
	if w, _ := cmd.Flags().GetFloat64("similarity-weight"); w >= 0 {
		opts.SimilarityWeight = w
	}
	if m, _ := cmd.Flags().GetFloat64("min-citation"); m >= 0 {
		opts.MinCitationScore = m
	}
	if m, _ := cmd.Flags().GetFloat64("min-similarity"); m >= 0 {
		opts.MinSimilarityScore = m
	}
	if max, _ := cmd.Flags().GetInt("max-candidates"); max > 0 {
		opts.MaxCandidates = max
	}
	if include, _ := cmd.Flags().GetBool("include-reviewed"); !include {
		opts.ExcludeReviewed = true
	}

	if noFilter, _ := cmd.Flags().GetBool("no-filter-journals"); noFilter {
		opts.FilterJournals = false
		return opts, nil
	}

	switch {
	case flagSet(cmd, "journal-file"):
		path, _ := cmd.Flags().GetString("journal-file")
		names, err := journals.LoadFromFile(path)
		if err != nil {
			return opts, err
		}
		opts.Journals = names
	case flagSet(cmd, "custom-journals"):
		raw, _ := cmd.Flags().GetString("custom-journals")
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				opts.Journals = append(opts.Journals, name)
			}
		}
	default:
		if extended, _ := cmd.Flags().GetBool("extended-journals"); extended {
			opts.Journals = journals.Extended
		} else {
			opts.Journals = journals.Default
		}
	}
	return opts, nil
}

func flagSet(cmd *cobra.Command, name string) bool {
	return cmd.Flags().Changed(name)
}

func printRecommendations(ctx context.Context, recs []types.CandidatePaper, explain bool, r *recommend.Recommender) {
	fmt.Println()
	for i, rec := range recs {
		fmt.Printf("%d. %s\n", i+1, rec.Title)
		if len(rec.Authors) > 0 {
			authors := strings.Join(rec.Authors, ", ")
			if len(rec.Authors) > 5 {
				authors = strings.Join(rec.Authors[:5], ", ") + ", et al."
			}
			fmt.Printf("   %s\n", authors)
		}
		if rec.Journal != "" {
			fmt.Printf("   %s (%s)\n", rec.Journal, rec.PublicationDate)
		}
		fmt.Printf("   combined %.3f  (similarity %.3f, citation %.2f",
			rec.CombinedScore, rec.SimilarityScore, rec.CitationScore)
		if rec.LibraryPapersCited > 0 {
			fmt.Printf(", cites %d library paper(s)", rec.LibraryPapersCited)
		}
		fmt.Println(")")
		if rec.DOI != "" {
			fmt.Printf("   https://doi.org/%s\n", rec.DOI)
		} else if rec.URL != "" {
			fmt.Printf("   %s\n", rec.URL)
		}

		if explain {
			matches, err := r.Explain(ctx, rec)
			if err == nil {
				for _, m := range matches {
					fmt.Printf("   ~ similar to %q (%d, %.3f)\n", m.Title, m.Year, m.Similarity)
				}
			}
		} else if rec.MostSimilarPaper != nil {
			fmt.Printf("   ~ closest library paper: %q (%.3f)\n",
				rec.MostSimilarPaper.Title, rec.MostSimilarPaper.Similarity)
		}
		fmt.Println()
	}
}
