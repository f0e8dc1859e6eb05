// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package citation builds the library citation network and scores
// candidates by how many library papers they cite.
//
// The network maps each citing work id to the set of library papers it
// cites. Building it resolves every library paper to its scholarly-graph
// node (DOI first, title search as fallback) and fetches the works citing
// it. Resolution and fetching run on a bounded worker pool; workers hand
// their per-paper results to a single aggregator over a channel, so the
// shared maps are only ever touched by one goroutine.
package citation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/paper-recommender/internal/cache"
	"github.com/pdiddy/paper-recommender/internal/graph"
	"github.com/pdiddy/paper-recommender/pkg/types"
)

// ErrNetworkNotBuilt is returned when scoring is attempted before the
// citation network has been built or loaded.
var ErrNetworkNotBuilt = errors.New("citation network not built")

// defaultWorkers bounds the resolver pool when config gives no value.
const defaultWorkers = 5

// BuildParams controls a network build.
type BuildParams struct {
	// ForceRebuild ignores any cached network.
	ForceRebuild bool

	// MaxPapers caps how many library papers are processed. Non-positive
	// means all.
	MaxPapers int

	// MaxCitations caps citing works fetched per library paper.
	// Non-positive means unlimited.
	MaxCitations int

	// MaxWorkers bounds the concurrent resolver pool.
	MaxWorkers int
}

// Scorer holds the citation network for one collection.
type Scorer struct {
	store      *cache.Store
	collection string

	// network maps a citing work id to the set of library work ids it cites.
	network map[string]map[string]struct{}

	// idMap maps a library item key to its resolved work id.
	idMap map[string]string
}

// NewScorer builds a Scorer for one cache collection. store may be nil,
// in which case networks are never persisted.
func NewScorer(store *cache.Store, collection string) *Scorer {
	return &Scorer{store: store, collection: collection}
}

// NetworkStats summarizes a built network.
type NetworkStats struct {
	CitingPapers        int `json:"citing_papers" yaml:"citing_papers"`
	LibraryPapersMapped int `json:"library_papers_mapped" yaml:"library_papers_mapped"`
}

// Stats returns summary counts for the current network.
func (s *Scorer) Stats() NetworkStats {
	return NetworkStats{
		CitingPapers:        len(s.network),
		LibraryPapersMapped: len(s.idMap),
	}
}

// paperEdges is one worker's result: a library paper resolved to its work
// id together with the ids of works citing it. note carries a skip or
// failure message for the aggregator to log.
type paperEdges struct {
	itemKey    string
	externalID string
	citing     []string
	note       string
}

// BuildLibraryNetwork builds or loads the citation network for the given
// library papers. A cached network is reused unless params force a
// rebuild or the staleness rules say it no longer covers the request.
func (s *Scorer) BuildLibraryNetwork(ctx context.Context, resolver graph.Resolver, papers []types.LibraryPaper, params BuildParams, w io.Writer) error {
	if params.MaxPapers > 0 && len(papers) > params.MaxPapers {
		papers = papers[:params.MaxPapers]
	}
	maxCitations := params.MaxCitations
	if maxCitations < 0 {
		maxCitations = 0
	}

	if !params.ForceRebuild && s.store != nil {
		edges, idMap, meta, ok, err := s.store.LoadNetwork(ctx, s.collection)
		if err != nil {
			return fmt.Errorf("loading cached network: %w", err)
		}
		if ok {
			rebuild, reasons := needsRebuild(meta, maxCitations, len(papers))
			if !rebuild {
				s.setNetwork(edges, idMap)
				fmt.Fprintf(w, "  loaded cached citation network (%d citing papers)\n", len(edges))
				return nil
			}
			for _, reason := range reasons {
				fmt.Fprintf(w, "  rebuilding citation network: %s\n", reason)
			}
		}
	}

	workers := params.MaxWorkers
	if workers <= 0 {
		workers = defaultWorkers
	}
	fmt.Fprintf(w, "  building citation network for %d papers (%d workers)\n", len(papers), workers)

	results := make(chan paperEdges)
	network := make(map[string]map[string]struct{})
	idMap := make(map[string]string)

	done := make(chan struct{})
	go func() {
		defer close(done)
		processed := 0
		for r := range results {
			processed++
			if r.note != "" {
				fmt.Fprintf(w, "  %s\n", r.note)
			}
			if r.externalID == "" {
				continue
			}
			idMap[r.itemKey] = r.externalID
			for _, citingID := range r.citing {
				set, ok := network[citingID]
				if !ok {
					set = make(map[string]struct{})
					network[citingID] = set
				}
				set[r.externalID] = struct{}{}
			}
			if processed%25 == 0 {
				fmt.Fprintf(w, "  processed %d/%d papers\n", processed, len(papers))
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, paper := range papers {
		paper := paper
		g.Go(func() error {
			result := resolvePaper(gctx, resolver, paper, maxCitations)
			select {
			case results <- result:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}

	err := g.Wait()
	close(results)
	<-done
	if err != nil {
		return fmt.Errorf("building citation network: %w", err)
	}

	s.network = network
	s.idMap = idMap
	fmt.Fprintf(w, "  citation network: %d library papers mapped, %d citing papers\n",
		len(idMap), len(network))

	if s.store != nil {
		edges := make(map[string][]string, len(network))
		for citingID, set := range network {
			for citedID := range set {
				edges[citingID] = append(edges[citingID], citedID)
			}
		}
		meta := cache.NetworkMeta{MaxCitations: maxCitations, NumPapers: len(papers)}
		if err := s.store.SaveNetwork(ctx, s.collection, edges, idMap, meta); err != nil {
			return fmt.Errorf("saving citation network: %w", err)
		}
	}
	return nil
}

// resolvePaper maps one library paper to its work id and citing works.
// Resolution failures never fail the build; they come back as a note.
func resolvePaper(ctx context.Context, resolver graph.Resolver, paper types.LibraryPaper, maxCitations int) paperEdges {
	result := paperEdges{itemKey: paper.Key}

	var work *graph.Work
	var err error
	if paper.DOI != "" {
		work, err = resolver.FindWorkByDOI(ctx, paper.DOI)
		if err != nil {
			result.note = fmt.Sprintf("warning: DOI lookup failed for %q: %v", paper.Title, err)
			return result
		}
	}
	if work == nil && paper.Title != "" {
		work, err = resolver.FindWorkByTitle(ctx, paper.Title)
		if err != nil {
			result.note = fmt.Sprintf("warning: title lookup failed for %q: %v", paper.Title, err)
			return result
		}
	}
	if work == nil {
		result.note = fmt.Sprintf("skipping %q: not found in the scholarly graph", paper.Title)
		return result
	}

	citing, err := resolver.GetCiting(ctx, work.ID, maxCitations)
	if err != nil {
		result.note = fmt.Sprintf("warning: citing lookup failed for %q: %v", paper.Title, err)
		return result
	}

	result.externalID = work.ID
	result.citing = citing
	return result
}

// needsRebuild decides whether a cached network still covers a request,
// returning the reasons when it does not. A cached MaxCitations of zero
// means the cache was built unlimited and satisfies every request.
func needsRebuild(meta cache.NetworkMeta, maxCitations, numPapers int) (bool, []string) {
	var reasons []string

	if meta.NumPapers == 0 {
		reasons = append(reasons, "cached network has no build metadata")
		return true, reasons
	}
	if meta.MaxCitations > 0 {
		if maxCitations <= 0 {
			reasons = append(reasons, fmt.Sprintf(
				"unlimited citations requested but cache was built with a cap of %d", meta.MaxCitations))
		} else if maxCitations > meta.MaxCitations {
			reasons = append(reasons, fmt.Sprintf(
				"requested %d citations per paper but cache was built with %d", maxCitations, meta.MaxCitations))
		}
	}
	growth := numPapers - meta.NumPapers
	threshold := math.Max(5, float64(meta.NumPapers)*0.1)
	if float64(growth) > threshold {
		reasons = append(reasons, fmt.Sprintf(
			"library grew by %d papers since the cache was built (%d -> %d)",
			growth, meta.NumPapers, numPapers))
	}

	return len(reasons) > 0, reasons
}

// setNetwork installs a cached edge list.
func (s *Scorer) setNetwork(edges map[string][]string, idMap map[string]string) {
	network := make(map[string]map[string]struct{}, len(edges))
	for citingID, cited := range edges {
		set := make(map[string]struct{}, len(cited))
		for _, id := range cited {
			set[id] = struct{}{}
		}
		network[citingID] = set
	}
	s.network = network
	s.idMap = idMap
}

// ComputeCitationScores scores candidates by how many distinct library
// papers each one cites, returning an augmented copy of the input.
func (s *Scorer) ComputeCitationScores(candidates []types.CandidatePaper) ([]types.CandidatePaper, error) {
	if len(s.network) == 0 && len(s.idMap) == 0 {
		return nil, ErrNetworkNotBuilt
	}

	scored := make([]types.CandidatePaper, len(candidates))
	copy(scored, candidates)
	for i := range scored {
		count := len(s.network[scored[i].OpenAlexID])
		scored[i].LibraryPapersCited = count
		scored[i].CitationScore = stepScore(count)
	}
	return scored, nil
}

// stepScore converts a cited-library-paper count into a score. One
// citation is a strong signal already, and the value saturates quickly.
func stepScore(count int) float64 {
	switch {
	case count <= 0:
		return 0.0
	case count == 1:
		return 0.5
	case count == 2:
		return 0.75
	default:
		return 1.0
	}
}
