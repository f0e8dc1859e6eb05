// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/pdiddy/paper-recommender/internal/cache"
	"github.com/pdiddy/paper-recommender/internal/graph"
	"github.com/pdiddy/paper-recommender/pkg/types"
)

// fakeResolver resolves from fixed maps and records call counts.
type fakeResolver struct {
	mu          sync.Mutex
	byDOI       map[string]*graph.Work
	byTitle     map[string]*graph.Work
	citing      map[string][]string
	failDOI     map[string]bool
	citingCalls int
	lastLimit   int
}

func (f *fakeResolver) FindWorkByDOI(_ context.Context, doi string) (*graph.Work, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDOI[doi] {
		return nil, errors.New("upstream unavailable")
	}
	return f.byDOI[doi], nil
}

func (f *fakeResolver) FindWorkByTitle(_ context.Context, title string) (*graph.Work, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byTitle[title], nil
}

func (f *fakeResolver) GetCiting(_ context.Context, workID string, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.citingCalls++
	f.lastLimit = limit
	ids := f.citing[workID]
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func testLibrary() []types.LibraryPaper {
	return []types.LibraryPaper{
		{Key: "K1", Title: "Paper One", DOI: "10.1/one"},
		{Key: "K2", Title: "Paper Two"},
		{Key: "K3", Title: "Paper Three", DOI: "10.1/three"},
	}
}

func testResolver() *fakeResolver {
	return &fakeResolver{
		byDOI: map[string]*graph.Work{
			"10.1/one":   {ID: "W1", Title: "Paper One"},
			"10.1/three": {ID: "W3", Title: "Paper Three"},
		},
		byTitle: map[string]*graph.Work{
			"Paper Two": {ID: "W2", Title: "Paper Two"},
		},
		citing: map[string][]string{
			"W1": {"C1", "C2"},
			"W2": {"C2"},
			"W3": {"C2", "C3"},
		},
		failDOI: map[string]bool{},
	}
}

func TestBuildLibraryNetwork(t *testing.T) {
	scorer := NewScorer(nil, "all")
	resolver := testResolver()
	var log bytes.Buffer

	err := scorer.BuildLibraryNetwork(context.Background(), resolver, testLibrary(),
		BuildParams{MaxWorkers: 3}, &log)
	if err != nil {
		t.Fatalf("BuildLibraryNetwork: %v", err)
	}

	stats := scorer.Stats()
	if stats.LibraryPapersMapped != 3 {
		t.Errorf("LibraryPapersMapped = %d, want 3", stats.LibraryPapersMapped)
	}
	if stats.CitingPapers != 3 {
		t.Errorf("CitingPapers = %d, want 3", stats.CitingPapers)
	}

	// C2 cites all three library papers.
	if got := len(scorer.network["C2"]); got != 3 {
		t.Errorf("C2 cites %d library papers, want 3", got)
	}
	// Title fallback resolved K2.
	if scorer.idMap["K2"] != "W2" {
		t.Errorf("idMap[K2] = %q, want W2", scorer.idMap["K2"])
	}
}

func TestBuildLibraryNetworkIsolatesFailures(t *testing.T) {
	scorer := NewScorer(nil, "all")
	resolver := testResolver()
	resolver.failDOI["10.1/one"] = true
	var log bytes.Buffer

	err := scorer.BuildLibraryNetwork(context.Background(), resolver, testLibrary(),
		BuildParams{MaxWorkers: 2}, &log)
	if err != nil {
		t.Fatalf("one failing paper must not fail the build: %v", err)
	}

	if scorer.Stats().LibraryPapersMapped != 2 {
		t.Errorf("LibraryPapersMapped = %d, want 2", scorer.Stats().LibraryPapersMapped)
	}
	if _, ok := scorer.idMap["K1"]; ok {
		t.Error("failed paper should not be mapped")
	}
	if !strings.Contains(log.String(), "warning: DOI lookup failed") {
		t.Errorf("missing failure warning in log: %q", log.String())
	}
}

func TestBuildLibraryNetworkSkipsUnresolved(t *testing.T) {
	scorer := NewScorer(nil, "all")
	resolver := testResolver()
	papers := append(testLibrary(),
		types.LibraryPaper{Key: "K4", Title: "Nowhere To Be Found"})
	var log bytes.Buffer

	err := scorer.BuildLibraryNetwork(context.Background(), resolver, papers,
		BuildParams{MaxWorkers: 2}, &log)
	if err != nil {
		t.Fatalf("BuildLibraryNetwork: %v", err)
	}
	if scorer.Stats().LibraryPapersMapped != 3 {
		t.Errorf("LibraryPapersMapped = %d, want 3", scorer.Stats().LibraryPapersMapped)
	}
	if !strings.Contains(log.String(), `skipping "Nowhere To Be Found"`) {
		t.Errorf("missing skip line in log: %q", log.String())
	}
}

func TestBuildLibraryNetworkMaxPapers(t *testing.T) {
	scorer := NewScorer(nil, "all")
	resolver := testResolver()
	var log bytes.Buffer

	err := scorer.BuildLibraryNetwork(context.Background(), resolver, testLibrary(),
		BuildParams{MaxPapers: 1, MaxWorkers: 1}, &log)
	if err != nil {
		t.Fatalf("BuildLibraryNetwork: %v", err)
	}
	if scorer.Stats().LibraryPapersMapped != 1 {
		t.Errorf("LibraryPapersMapped = %d, want 1", scorer.Stats().LibraryPapersMapped)
	}
}

func TestBuildLibraryNetworkCitationLimit(t *testing.T) {
	scorer := NewScorer(nil, "all")
	resolver := testResolver()
	var log bytes.Buffer

	err := scorer.BuildLibraryNetwork(context.Background(), resolver, testLibrary(),
		BuildParams{MaxCitations: 1, MaxWorkers: 1}, &log)
	if err != nil {
		t.Fatalf("BuildLibraryNetwork: %v", err)
	}
	if resolver.lastLimit != 1 {
		t.Errorf("limit passed to GetCiting = %d, want 1", resolver.lastLimit)
	}
}

func TestBuildLibraryNetworkUsesCache(t *testing.T) {
	store, err := cache.Open(t.TempDir())
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	defer store.Close()

	resolver := testResolver()
	var log bytes.Buffer
	papers := testLibrary()

	scorer := NewScorer(store, "all")
	if err := scorer.BuildLibraryNetwork(context.Background(), resolver, papers,
		BuildParams{MaxCitations: 10, MaxWorkers: 2}, &log); err != nil {
		t.Fatalf("first build: %v", err)
	}
	callsAfterBuild := resolver.citingCalls

	// Same request on a fresh scorer loads the cache without touching the
	// resolver.
	scorer2 := NewScorer(store, "all")
	if err := scorer2.BuildLibraryNetwork(context.Background(), resolver, papers,
		BuildParams{MaxCitations: 10, MaxWorkers: 2}, &log); err != nil {
		t.Fatalf("cached build: %v", err)
	}
	if resolver.citingCalls != callsAfterBuild {
		t.Error("cached build should not call the resolver")
	}
	if scorer2.Stats().CitingPapers != scorer.Stats().CitingPapers {
		t.Errorf("cached stats differ: %+v vs %+v", scorer2.Stats(), scorer.Stats())
	}

	// A deeper request than the cache was built with triggers a rebuild.
	scorer3 := NewScorer(store, "all")
	if err := scorer3.BuildLibraryNetwork(context.Background(), resolver, papers,
		BuildParams{MaxCitations: 50, MaxWorkers: 2}, &log); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if resolver.citingCalls == callsAfterBuild {
		t.Error("deeper request should rebuild the network")
	}

	// ForceRebuild bypasses the cache outright.
	callsBeforeForce := resolver.citingCalls
	if err := scorer3.BuildLibraryNetwork(context.Background(), resolver, papers,
		BuildParams{ForceRebuild: true, MaxCitations: 50, MaxWorkers: 2}, &log); err != nil {
		t.Fatalf("forced build: %v", err)
	}
	if resolver.citingCalls == callsBeforeForce {
		t.Error("forced build should call the resolver")
	}
}

func TestNeedsRebuild(t *testing.T) {
	tests := []struct {
		name         string
		meta         cache.NetworkMeta
		maxCitations int
		numPapers    int
		want         bool
	}{
		{
			name:         "same depth same size",
			meta:         cache.NetworkMeta{MaxCitations: 10, NumPapers: 100},
			maxCitations: 10,
			numPapers:    100,
			want:         false,
		},
		{
			name:         "shallower request is covered",
			meta:         cache.NetworkMeta{MaxCitations: 10, NumPapers: 100},
			maxCitations: 5,
			numPapers:    100,
			want:         false,
		},
		{
			name:         "deeper request",
			meta:         cache.NetworkMeta{MaxCitations: 10, NumPapers: 100},
			maxCitations: 25,
			numPapers:    100,
			want:         true,
		},
		{
			name:         "unlimited requested over capped cache",
			meta:         cache.NetworkMeta{MaxCitations: 10, NumPapers: 100},
			maxCitations: 0,
			numPapers:    100,
			want:         true,
		},
		{
			name:         "unlimited cache covers any depth",
			meta:         cache.NetworkMeta{MaxCitations: 0, NumPapers: 100},
			maxCitations: 500,
			numPapers:    100,
			want:         false,
		},
		{
			name:         "growth beyond threshold",
			meta:         cache.NetworkMeta{MaxCitations: 10, NumPapers: 100},
			maxCitations: 10,
			numPapers:    116,
			want:         true,
		},
		{
			name:         "growth within threshold",
			meta:         cache.NetworkMeta{MaxCitations: 10, NumPapers: 100},
			maxCitations: 10,
			numPapers:    105,
			want:         false,
		},
		{
			name:         "small library uses absolute threshold",
			meta:         cache.NetworkMeta{MaxCitations: 10, NumPapers: 10},
			maxCitations: 10,
			numPapers:    15,
			want:         false,
		},
		{
			name:         "small library growth past absolute threshold",
			meta:         cache.NetworkMeta{MaxCitations: 10, NumPapers: 10},
			maxCitations: 10,
			numPapers:    16,
			want:         true,
		},
		{
			name:         "missing metadata",
			meta:         cache.NetworkMeta{},
			maxCitations: 10,
			numPapers:    100,
			want:         true,
		},
		{
			name:         "shrunk library never rebuilds",
			meta:         cache.NetworkMeta{MaxCitations: 10, NumPapers: 100},
			maxCitations: 10,
			numPapers:    50,
			want:         false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reasons := needsRebuild(tt.meta, tt.maxCitations, tt.numPapers)
			if got != tt.want {
				t.Errorf("needsRebuild = %v (reasons %v), want %v", got, reasons, tt.want)
			}
			if got && len(reasons) == 0 {
				t.Error("a rebuild must carry at least one reason")
			}
		})
	}
}

func TestComputeCitationScores(t *testing.T) {
	scorer := NewScorer(nil, "all")
	scorer.setNetwork(map[string][]string{
		"C1": {"W1"},
		"C2": {"W1", "W2"},
		"C3": {"W1", "W2", "W3"},
		"C7": {"W1", "W2", "W3", "W4", "W5", "W6", "W7"},
	}, nil)

	candidates := []types.CandidatePaper{
		{OpenAlexID: "C0"},
		{OpenAlexID: "C1"},
		{OpenAlexID: "C2"},
		{OpenAlexID: "C3"},
		{OpenAlexID: "C7"},
	}
	scored, err := scorer.ComputeCitationScores(candidates)
	if err != nil {
		t.Fatalf("ComputeCitationScores: %v", err)
	}

	wantScores := []float64{0.0, 0.5, 0.75, 1.0, 1.0}
	wantCounts := []int{0, 1, 2, 3, 7}
	for i := range scored {
		if scored[i].CitationScore != wantScores[i] {
			t.Errorf("%s score = %v, want %v", scored[i].OpenAlexID, scored[i].CitationScore, wantScores[i])
		}
		if scored[i].LibraryPapersCited != wantCounts[i] {
			t.Errorf("%s count = %d, want %d", scored[i].OpenAlexID, scored[i].LibraryPapersCited, wantCounts[i])
		}
	}

	// The input slice is untouched.
	if candidates[1].CitationScore != 0 {
		t.Error("input slice was mutated")
	}
}

func TestComputeCitationScoresNotBuilt(t *testing.T) {
	scorer := NewScorer(nil, "all")
	_, err := scorer.ComputeCitationScores([]types.CandidatePaper{{OpenAlexID: "C1"}})
	if !errors.Is(err, ErrNetworkNotBuilt) {
		t.Fatalf("err = %v, want ErrNetworkNotBuilt", err)
	}
}

func TestComputeCitationScoresEmptyNetwork(t *testing.T) {
	// A build where no library paper resolves installs empty maps.
	// Scoring against that network must fail, not return zeros.
	scorer := NewScorer(nil, "all")
	resolver := &fakeResolver{}
	var log bytes.Buffer

	err := scorer.BuildLibraryNetwork(context.Background(), resolver,
		[]types.LibraryPaper{{Key: "K1", Title: "Nowhere To Be Found"}},
		BuildParams{MaxWorkers: 1}, &log)
	if err != nil {
		t.Fatalf("BuildLibraryNetwork: %v", err)
	}

	_, err = scorer.ComputeCitationScores([]types.CandidatePaper{{OpenAlexID: "C1"}})
	if !errors.Is(err, ErrNetworkNotBuilt) {
		t.Fatalf("err = %v, want ErrNetworkNotBuilt", err)
	}
}

func TestComputeCitationScoresUncitedLibrary(t *testing.T) {
	// Papers resolved but nothing cites them yet: a valid network where
	// every candidate legitimately scores zero.
	scorer := NewScorer(nil, "all")
	scorer.setNetwork(map[string][]string{}, map[string]string{"K1": "W1"})

	scored, err := scorer.ComputeCitationScores([]types.CandidatePaper{{OpenAlexID: "C1"}})
	if err != nil {
		t.Fatalf("ComputeCitationScores: %v", err)
	}
	if scored[0].CitationScore != 0 {
		t.Errorf("CitationScore = %v, want 0", scored[0].CitationScore)
	}
}

func TestStepScore(t *testing.T) {
	tests := []struct {
		count int
		want  float64
	}{
		{0, 0.0},
		{1, 0.5},
		{2, 0.75},
		{3, 1.0},
		{7, 1.0},
	}
	for _, tt := range tests {
		if got := stepScore(tt.count); got != tt.want {
			t.Errorf("stepScore(%d) = %v, want %v", tt.count, got, tt.want)
		}
	}
}
