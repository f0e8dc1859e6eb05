// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/paper-recommender/internal/citation"
	"github.com/pdiddy/paper-recommender/internal/graph"
	"github.com/pdiddy/paper-recommender/internal/similarity"
	"github.com/pdiddy/paper-recommender/pkg/types"
)

type fakeLibrary struct {
	papers []types.LibraryPaper
}

func (f *fakeLibrary) FetchLibrary(_ context.Context, _ string, _ io.Writer) ([]types.LibraryPaper, error) {
	return f.papers, nil
}

type fakeDiscoverer struct {
	candidates []types.CandidatePaper
	err        error
	gotSources []string
}

func (f *fakeDiscoverer) SearchRecentWorks(_ context.Context, _ time.Time, sourceIDs []string, _ int, _ io.Writer) ([]types.CandidatePaper, error) {
	f.gotSources = sourceIDs
	return f.candidates, f.err
}

func (f *fakeDiscoverer) ResolveSourceIDs(_ context.Context, names []string, _ io.Writer) []string {
	ids := make([]string, len(names))
	for i := range names {
		ids[i] = "S" + names[i]
	}
	return ids
}

type fakeResolver struct{}

func (fakeResolver) FindWorkByDOI(_ context.Context, doi string) (*graph.Work, error) {
	return &graph.Work{ID: "LIB-" + doi}, nil
}

func (fakeResolver) FindWorkByTitle(_ context.Context, title string) (*graph.Work, error) {
	return nil, nil
}

func (fakeResolver) GetCiting(_ context.Context, workID string, _ int) ([]string, error) {
	// Only the first library paper has a citing candidate.
	if workID == "LIB-10.1/one" {
		return []string{"CAND1"}, nil
	}
	return nil, nil
}

// uniformEmbedder gives every text the same vector, so all similarity
// scores come out as 1.
type uniformEmbedder struct{}

func (uniformEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (uniformEmbedder) Close() error { return nil }

type fakeReviewed struct {
	seen map[string]bool
}

func (f *fakeReviewed) IsReviewed(id string) (bool, error) {
	return f.seen[id], nil
}

func newTestRecommender(disc *fakeDiscoverer, rev ReviewedFilter) *Recommender {
	lib := &fakeLibrary{papers: []types.LibraryPaper{
		{Key: "K1", Title: "Library One", DOI: "10.1/one"},
		{Key: "K2", Title: "Library Two", DOI: "10.1/two"},
	}}
	engine := similarity.NewEngine(uniformEmbedder{}, nil, "all")
	scorer := citation.NewScorer(nil, "all")
	return New(lib, disc, fakeResolver{}, engine, scorer, rev)
}

func TestPipeline(t *testing.T) {
	disc := &fakeDiscoverer{candidates: []types.CandidatePaper{
		{OpenAlexID: "CAND1", Title: "Cites the library"},
		{OpenAlexID: "CAND2", Title: "Similar only"},
	}}
	r := newTestRecommender(disc, nil)
	var log bytes.Buffer

	if err := r.Initialize(context.Background(), InitParams{MaxWorkers: 2}, &log); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	recs, err := r.Recommend(context.Background(), Options{
		DaysBack:         7,
		CitationWeight:   0.3,
		SimilarityWeight: 0.7,
	}, &log)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d recommendations, want 2", len(recs))
	}

	// CAND1 cites one library paper on top of full similarity, so it ranks
	// first with 0.3*0.5 + 0.7*1.0.
	if recs[0].OpenAlexID != "CAND1" {
		t.Errorf("first = %q, want CAND1", recs[0].OpenAlexID)
	}
	if recs[0].CombinedScore <= recs[1].CombinedScore {
		t.Errorf("scores not descending: %v, %v", recs[0].CombinedScore, recs[1].CombinedScore)
	}
	if recs[0].LibraryPapersCited != 1 {
		t.Errorf("LibraryPapersCited = %d, want 1", recs[0].LibraryPapersCited)
	}

	stats := r.LibraryStats()
	if stats.TotalPapers != 2 {
		t.Errorf("TotalPapers = %d, want 2", stats.TotalPapers)
	}
	netStats := r.NetworkStats()
	if netStats.LibraryPapersMapped != 2 {
		t.Errorf("LibraryPapersMapped = %d, want 2", netStats.LibraryPapersMapped)
	}
}

func TestRecommendJournalFilter(t *testing.T) {
	disc := &fakeDiscoverer{}
	r := newTestRecommender(disc, nil)
	var log bytes.Buffer
	if err := r.Initialize(context.Background(), InitParams{}, &log); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	_, err := r.Recommend(context.Background(), Options{
		FilterJournals: true,
		Journals:       []string{"Nature", "Cell"},
	}, &log)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(disc.gotSources) != 2 || disc.gotSources[0] != "SNature" {
		t.Errorf("sourceIDs = %v", disc.gotSources)
	}
}

func TestRecommendDiscoveryFailureIsSoft(t *testing.T) {
	disc := &fakeDiscoverer{err: errors.New("upstream down")}
	r := newTestRecommender(disc, nil)
	var log bytes.Buffer
	if err := r.Initialize(context.Background(), InitParams{}, &log); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	recs, err := r.Recommend(context.Background(), Options{}, &log)
	if err != nil {
		t.Fatalf("discovery failure must not be fatal: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("got %d recommendations, want 0", len(recs))
	}
	if !strings.Contains(log.String(), "warning: discovery failed") {
		t.Errorf("missing warning in log: %q", log.String())
	}
}

func TestRecommendExcludesReviewed(t *testing.T) {
	disc := &fakeDiscoverer{candidates: []types.CandidatePaper{
		{OpenAlexID: "CAND1", Title: "Seen before"},
		{OpenAlexID: "CAND2", Title: "Fresh"},
	}}
	rev := &fakeReviewed{seen: map[string]bool{"CAND1": true}}
	r := newTestRecommender(disc, rev)
	var log bytes.Buffer
	if err := r.Initialize(context.Background(), InitParams{}, &log); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	recs, err := r.Recommend(context.Background(), Options{
		ExcludeReviewed:  true,
		SimilarityWeight: 1,
	}, &log)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(recs) != 1 || recs[0].OpenAlexID != "CAND2" {
		t.Errorf("recs = %+v, want only CAND2", recs)
	}
}

func TestExplain(t *testing.T) {
	disc := &fakeDiscoverer{}
	r := newTestRecommender(disc, nil)
	var log bytes.Buffer
	if err := r.Initialize(context.Background(), InitParams{}, &log); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	matches, err := r.Explain(context.Background(),
		types.CandidatePaper{OpenAlexID: "CAND1", Title: "Anything"})
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("got %d matches, want 2", len(matches))
	}
}

func TestExport(t *testing.T) {
	recs := []types.CandidatePaper{
		{OpenAlexID: "W1", Title: "First", CombinedScore: 0.9},
	}

	jsonPath := filepath.Join(t.TempDir(), "recs.json")
	if err := Export(recs, jsonPath); err != nil {
		t.Fatalf("Export json: %v", err)
	}
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	var decoded []types.CandidatePaper
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if len(decoded) != 1 || decoded[0].OpenAlexID != "W1" {
		t.Errorf("decoded = %+v", decoded)
	}

	yamlPath := filepath.Join(t.TempDir(), "recs.yaml")
	if err := Export(recs, yamlPath); err != nil {
		t.Fatalf("Export yaml: %v", err)
	}

	if err := Export(recs, filepath.Join(t.TempDir(), "recs.csv")); err == nil {
		t.Error("expected an error for an unsupported format")
	}
}

func TestExportBibTeX(t *testing.T) {
	recs := []types.CandidatePaper{
		{
			OpenAlexID:      "W1",
			Title:           "Graph Learning At Scale",
			Authors:         []string{"Ada Smith", "Ben Jones"},
			PublicationYear: 2026,
			Journal:         "Nature",
			DOI:             "10.1/x",
			CombinedScore:   0.87,
		},
		{OpenAlexID: "W2", Title: "No Author Known"},
	}

	path := filepath.Join(t.TempDir(), "recs.bib")
	if err := Export(recs, path); err != nil {
		t.Fatalf("Export bib: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)

	for _, want := range []string{
		"@article{Smith2026_1,",
		"title = {Graph Learning At Scale}",
		"author = {Ada Smith and Ben Jones}",
		"year = {2026}",
		"journal = {Nature}",
		"doi = {10.1/x}",
		"note = {Recommended - Score: 0.870}",
		"@article{UnknownXXXX_2,",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("export missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "author = {}") {
		t.Errorf("empty author field emitted:\n%s", out)
	}
}
