// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package similarity scores candidate papers against the user's library
// by embedding both with a sentence-transformer model and taking, for
// each candidate, the maximum cosine similarity against the library
// embedding matrix.
package similarity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/pdiddy/paper-recommender/internal/cache"
	"github.com/pdiddy/paper-recommender/pkg/types"
)

var (
	// ErrNoProfile is returned when scoring is attempted before a library
	// profile has been built or loaded.
	ErrNoProfile = errors.New("library embedding profile not built")

	// ErrNoEligiblePapers is returned when no library paper has any text
	// to embed.
	ErrNoEligiblePapers = errors.New("no library papers with usable text")
)

// embedBatchSize caps how many texts go to the model per call.
const embedBatchSize = 32

// Engine holds the library embedding profile and scores candidates
// against it.
type Engine struct {
	embedder   Embedder
	store      *cache.Store
	collection string

	papers []types.LibraryPaper
	matrix [][]float32
}

// NewEngine builds an Engine for one cache collection. store may be nil,
// in which case profiles are never persisted.
func NewEngine(embedder Embedder, store *cache.Store, collection string) *Engine {
	return &Engine{embedder: embedder, store: store, collection: collection}
}

// ProfileSize returns the number of library papers in the current profile.
func (e *Engine) ProfileSize() int {
	return len(e.papers)
}

// BuildLibraryProfile embeds the library papers that carry text and
// retains the resulting matrix. An existing cached profile is reused
// as-is unless force is set; cache reuse checks presence only, so a
// changed library needs force to re-embed.
func (e *Engine) BuildLibraryProfile(ctx context.Context, papers []types.LibraryPaper, force bool, w io.Writer) error {
	if !force && e.store != nil {
		cached, matrix, ok, err := e.store.LoadProfile(ctx, e.collection)
		if err != nil {
			return fmt.Errorf("loading cached profile: %w", err)
		}
		if ok {
			e.papers = cached
			e.matrix = matrix
			fmt.Fprintf(w, "  loaded cached embedding profile (%d papers)\n", len(cached))
			return nil
		}
	}

	var eligible []types.LibraryPaper
	var texts []string
	for _, paper := range papers {
		if !paper.HasText() {
			continue
		}
		eligible = append(eligible, paper)
		texts = append(texts, embedText(paper.Title, paper.Abstract))
	}
	if len(eligible) == 0 {
		return ErrNoEligiblePapers
	}

	fmt.Fprintf(w, "  embedding %d library papers\n", len(eligible))
	matrix, err := e.embedBatches(ctx, texts)
	if err != nil {
		return err
	}

	e.papers = eligible
	e.matrix = matrix

	if e.store != nil {
		if err := e.store.SaveProfile(ctx, e.collection, eligible, matrix); err != nil {
			return fmt.Errorf("saving profile: %w", err)
		}
	}
	return nil
}

// ComputeSimilarity scores candidates against the library profile,
// returning an augmented copy of the input. Candidates without text pass
// through unscored. The input slice is not modified.
func (e *Engine) ComputeSimilarity(ctx context.Context, candidates []types.CandidatePaper) ([]types.CandidatePaper, error) {
	if len(e.matrix) == 0 {
		return nil, ErrNoProfile
	}

	scored := make([]types.CandidatePaper, len(candidates))
	copy(scored, candidates)

	var texts []string
	var indices []int
	for i, c := range scored {
		if !c.HasText() {
			continue
		}
		texts = append(texts, embedText(c.Title, c.Abstract))
		indices = append(indices, i)
	}
	if len(texts) == 0 {
		return scored, nil
	}

	vectors, err := e.embedBatches(ctx, texts)
	if err != nil {
		return nil, err
	}

	for n, i := range indices {
		best, bestIdx := e.maxSimilarity(vectors[n])
		scored[i].SimilarityScore = clamp01(best)
		if bestIdx >= 0 {
			match := e.papers[bestIdx]
			scored[i].MostSimilarPaper = &types.MostSimilar{
				Title:      match.Title,
				Authors:    match.Authors,
				Year:       match.Year,
				Similarity: clamp01(best),
			}
		}
	}
	return scored, nil
}

// MostSimilarLibraryPapers returns the topK library papers closest to the
// candidate, most similar first. Used by the explain output.
func (e *Engine) MostSimilarLibraryPapers(ctx context.Context, c types.CandidatePaper, topK int) ([]types.MostSimilar, error) {
	if len(e.matrix) == 0 {
		return nil, ErrNoProfile
	}
	if !c.HasText() || topK <= 0 {
		return nil, nil
	}

	vectors, err := e.embedBatches(ctx, []string{embedText(c.Title, c.Abstract)})
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(e.matrix))
	for i, row := range e.matrix {
		scores[i] = cosineSimilarity(vectors[0], row)
	}

	var matches []types.MostSimilar
	used := make(map[int]bool)
	for len(matches) < topK && len(matches) < len(scores) {
		best := -1
		for i, s := range scores {
			if used[i] {
				continue
			}
			if best < 0 || s > scores[best] {
				best = i
			}
		}
		used[best] = true
		paper := e.papers[best]
		matches = append(matches, types.MostSimilar{
			Title:      paper.Title,
			Authors:    paper.Authors,
			Year:       paper.Year,
			Similarity: clamp01(scores[best]),
		})
	}
	return matches, nil
}

// embedBatches runs the embedder over texts in fixed-size batches.
func (e *Engine) embedBatches(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := e.embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding batch: %w", err)
		}
		vectors = append(vectors, batch...)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}
	return vectors, nil
}

// maxSimilarity returns the best cosine similarity against the profile
// matrix and the row index that achieved it.
func (e *Engine) maxSimilarity(v []float32) (float64, int) {
	best := math.Inf(-1)
	bestIdx := -1
	for i, row := range e.matrix {
		if s := cosineSimilarity(v, row); s > best {
			best = s
			bestIdx = i
		}
	}
	return best, bestIdx
}

// embedText joins title and abstract into the text that gets embedded.
func embedText(title, abstract string) string {
	if abstract == "" {
		return title
	}
	if title == "" {
		return abstract
	}
	return title + ". " + abstract
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched or zero-magnitude vectors score zero.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// clamp01 pins a score into [0, 1]. Cosine similarity can drift a hair
// outside the range through floating-point rounding.
func clamp01(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
