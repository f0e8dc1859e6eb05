// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package recommend fuses the similarity and citation scores into a
// ranked recommendation list and orchestrates the full pipeline.
package recommend

import (
	"sort"

	"github.com/pdiddy/paper-recommender/pkg/types"
)

// RankOptions controls score fusion.
type RankOptions struct {
	// CitationWeight and SimilarityWeight scale the two scores in the
	// combined value. They are used as given, with no normalization.
	CitationWeight   float64
	SimilarityWeight float64

	// MinCitationScore and MinSimilarityScore drop candidates below
	// either floor before ranking.
	MinCitationScore   float64
	MinSimilarityScore float64

	// Limit truncates the ranked list. Non-positive means no truncation.
	Limit int
}

// Rank filters, fuses, and sorts candidates, returning an augmented copy
// ordered by combined score descending. Candidates that tie keep their
// input order.
func Rank(candidates []types.CandidatePaper, opts RankOptions) []types.CandidatePaper {
	ranked := make([]types.CandidatePaper, 0, len(candidates))
	for _, c := range candidates {
		if c.CitationScore < opts.MinCitationScore {
			continue
		}
		if c.SimilarityScore < opts.MinSimilarityScore {
			continue
		}
		c.CombinedScore = opts.CitationWeight*c.CitationScore + opts.SimilarityWeight*c.SimilarityScore
		ranked = append(ranked, c)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CombinedScore > ranked[j].CombinedScore
	})

	if opts.Limit > 0 && len(ranked) > opts.Limit {
		ranked = ranked[:opts.Limit]
	}
	return ranked
}
