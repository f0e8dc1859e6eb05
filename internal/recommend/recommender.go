// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-recommender/internal/citation"
	"github.com/pdiddy/paper-recommender/internal/graph"
	"github.com/pdiddy/paper-recommender/internal/library"
	"github.com/pdiddy/paper-recommender/internal/similarity"
	"github.com/pdiddy/paper-recommender/pkg/types"
)

// LibrarySource fetches the user's paper library. *library.Client
// satisfies it.
type LibrarySource interface {
	FetchLibrary(ctx context.Context, collectionKey string, w io.Writer) ([]types.LibraryPaper, error)
}

// Discoverer finds recent candidate papers. *graph.Client satisfies it.
type Discoverer interface {
	SearchRecentWorks(ctx context.Context, from time.Time, sourceIDs []string, limit int, w io.Writer) ([]types.CandidatePaper, error)
	ResolveSourceIDs(ctx context.Context, names []string, w io.Writer) []string
}

// ReviewedFilter reports papers the user has already seen.
// *reviewed.Store satisfies it.
type ReviewedFilter interface {
	IsReviewed(paperID string) (bool, error)
}

// Recommender runs the full pipeline: fetch library, build the scoring
// state, discover candidates, score, and rank.
type Recommender struct {
	library    LibrarySource
	discoverer Discoverer
	resolver   graph.Resolver
	engine     *similarity.Engine
	scorer     *citation.Scorer
	reviewed   ReviewedFilter

	papers []types.LibraryPaper
}

// New wires a Recommender. reviewed may be nil to disable the
// already-seen filter.
func New(lib LibrarySource, disc Discoverer, resolver graph.Resolver, engine *similarity.Engine, scorer *citation.Scorer, rev ReviewedFilter) *Recommender {
	return &Recommender{
		library:    lib,
		discoverer: disc,
		resolver:   resolver,
		engine:     engine,
		scorer:     scorer,
		reviewed:   rev,
	}
}

// InitParams controls pipeline initialization.
type InitParams struct {
	// CollectionKey scopes the library fetch to one Zotero collection.
	// Empty fetches the whole library.
	CollectionKey string

	// Force rebuilds the embedding profile and citation network even
	// when cached versions exist.
	Force bool

	// MaxPapers caps how many library papers feed the citation network.
	MaxPapers int

	// MaxCitations caps citing works fetched per library paper.
	MaxCitations int

	// MaxWorkers bounds the citation builder pool.
	MaxWorkers int
}

// Initialize fetches the library and builds the embedding profile and
// citation network, reusing caches where the staleness rules allow.
func (r *Recommender) Initialize(ctx context.Context, params InitParams, w io.Writer) error {
	fmt.Fprintf(w, "fetching library...\n")
	papers, err := r.library.FetchLibrary(ctx, params.CollectionKey, w)
	if err != nil {
		return fmt.Errorf("fetching library: %w", err)
	}
	if len(papers) == 0 {
		return fmt.Errorf("library is empty")
	}
	r.papers = papers

	fmt.Fprintf(w, "building embedding profile...\n")
	if err := r.engine.BuildLibraryProfile(ctx, papers, params.Force, w); err != nil {
		return fmt.Errorf("building embedding profile: %w", err)
	}

	fmt.Fprintf(w, "building citation network...\n")
	err = r.scorer.BuildLibraryNetwork(ctx, r.resolver, papers, citation.BuildParams{
		ForceRebuild: params.Force,
		MaxPapers:    params.MaxPapers,
		MaxCitations: params.MaxCitations,
		MaxWorkers:   params.MaxWorkers,
	}, w)
	if err != nil {
		return fmt.Errorf("building citation network: %w", err)
	}
	return nil
}

// Options controls one recommendation run.
type Options struct {
	// DaysBack bounds candidate discovery to papers published within the
	// window.
	DaysBack int

	// Top truncates the final ranked list. Non-positive keeps all.
	Top int

	// MaxCandidates caps discovery. Non-positive fetches everything in
	// the window.
	MaxCandidates int

	// Journals filters discovery to the named venues when FilterJournals
	// is set.
	FilterJournals bool
	Journals       []string

	// ExcludeReviewed drops papers already marked as seen.
	ExcludeReviewed bool

	CitationWeight     float64
	SimilarityWeight   float64
	MinCitationScore   float64
	MinSimilarityScore float64
}

// Recommend discovers, scores, and ranks candidate papers. Discovery
// failures are logged and yield an empty list rather than an error, so a
// flaky upstream never kills a run that may be driven by cron.
func (r *Recommender) Recommend(ctx context.Context, opts Options, w io.Writer) ([]types.CandidatePaper, error) {
	from := time.Now().AddDate(0, 0, -opts.DaysBack)

	var sourceIDs []string
	if opts.FilterJournals && len(opts.Journals) > 0 {
		fmt.Fprintf(w, "resolving %d journals...\n", len(opts.Journals))
		sourceIDs = r.discoverer.ResolveSourceIDs(ctx, opts.Journals, w)
		fmt.Fprintf(w, "  %d journals resolved\n", len(sourceIDs))
	}

	fmt.Fprintf(w, "discovering recent papers...\n")
	candidates, err := r.discoverer.SearchRecentWorks(ctx, from, sourceIDs, opts.MaxCandidates, w)
	if err != nil {
		fmt.Fprintf(w, "  warning: discovery failed: %v\n", err)
		return nil, nil
	}
	if len(candidates) == 0 {
		fmt.Fprintf(w, "  no recent papers found\n")
		return nil, nil
	}

	if opts.ExcludeReviewed && r.reviewed != nil {
		kept := candidates[:0]
		for _, c := range candidates {
			seen, err := r.reviewed.IsReviewed(c.OpenAlexID)
			if err != nil {
				return nil, fmt.Errorf("checking reviewed papers: %w", err)
			}
			if !seen {
				kept = append(kept, c)
			}
		}
		if dropped := len(candidates) - len(kept); dropped > 0 {
			fmt.Fprintf(w, "  skipping %d already-reviewed papers\n", dropped)
		}
		candidates = kept
	}

	fmt.Fprintf(w, "scoring %d candidates...\n", len(candidates))
	candidates, err = r.engine.ComputeSimilarity(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("computing similarity scores: %w", err)
	}
	candidates, err = r.scorer.ComputeCitationScores(candidates)
	if err != nil {
		return nil, fmt.Errorf("computing citation scores: %w", err)
	}

	ranked := Rank(candidates, RankOptions{
		CitationWeight:     opts.CitationWeight,
		SimilarityWeight:   opts.SimilarityWeight,
		MinCitationScore:   opts.MinCitationScore,
		MinSimilarityScore: opts.MinSimilarityScore,
		Limit:              opts.Top,
	})
	fmt.Fprintf(w, "%d recommendations\n", len(ranked))
	return ranked, nil
}

// Explain returns the library papers most similar to a recommendation,
// for the --explain output.
func (r *Recommender) Explain(ctx context.Context, c types.CandidatePaper) ([]types.MostSimilar, error) {
	return r.engine.MostSimilarLibraryPapers(ctx, c, 2)
}

// LibraryStats summarizes the fetched library.
func (r *Recommender) LibraryStats() library.LibraryStats {
	return library.Stats(r.papers)
}

// NetworkStats summarizes the citation network.
func (r *Recommender) NetworkStats() citation.NetworkStats {
	return r.scorer.Stats()
}

// Export writes recommendations to path as JSON, YAML, or BibTeX, chosen
// by the file extension.
func Export(recommendations []types.CandidatePaper, path string) error {
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(recommendations)
	case ".json", "":
		data, err = json.MarshalIndent(recommendations, "", "  ")
	case ".bib":
		data = encodeBibTeX(recommendations)
	default:
		return fmt.Errorf("unsupported export format %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("encoding recommendations: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// encodeBibTeX renders recommendations as @article entries suitable for
// import into Zotero. The citation key is the first author's last name
// plus the publication year and the rank, so repeated exports stay unique.
func encodeBibTeX(recommendations []types.CandidatePaper) []byte {
	var b strings.Builder
	for i, rec := range recommendations {
		b.WriteString(fmt.Sprintf("@article{%s,\n", bibKey(rec, i+1)))
		b.WriteString(fmt.Sprintf("  title = {%s},\n", rec.Title))
		if len(rec.Authors) > 0 {
			b.WriteString(fmt.Sprintf("  author = {%s},\n", strings.Join(rec.Authors, " and ")))
		}
		if rec.PublicationYear > 0 {
			b.WriteString(fmt.Sprintf("  year = {%d},\n", rec.PublicationYear))
		}
		if rec.Journal != "" {
			b.WriteString(fmt.Sprintf("  journal = {%s},\n", rec.Journal))
		}
		if rec.DOI != "" {
			b.WriteString(fmt.Sprintf("  doi = {%s},\n", rec.DOI))
		}
		if rec.URL != "" {
			b.WriteString(fmt.Sprintf("  url = {%s},\n", rec.URL))
		}
		if rec.Abstract != "" {
			b.WriteString(fmt.Sprintf("  abstract = {%s},\n", rec.Abstract))
		}
		b.WriteString(fmt.Sprintf("  note = {Recommended - Score: %.3f}\n", rec.CombinedScore))
		b.WriteString("}\n\n")
	}
	return []byte(b.String())
}

// bibKey builds a citation key like Smith2026_1.
func bibKey(rec types.CandidatePaper, rank int) string {
	surname := "Unknown"
	if len(rec.Authors) > 0 {
		if parts := strings.Fields(rec.Authors[0]); len(parts) > 0 {
			surname = parts[len(parts)-1]
		}
	}
	year := "XXXX"
	if rec.PublicationYear > 0 {
		year = fmt.Sprintf("%d", rec.PublicationYear)
	}
	return fmt.Sprintf("%s%s_%d", surname, year, rank)
}
