// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paper-recommender
// pipeline: library records fetched from the bibliography provider,
// candidate records discovered through the scholarly graph, and the
// per-stage configuration structs.
package types

// LibraryPaper is one item from the user's reference library. The library
// provider creates these; the scoring stages treat them as read-only. The
// citation network builder records each paper's resolved scholarly-graph
// id in its id map, keyed by Key.
type LibraryPaper struct {
	// Key is the stable bibliography-manager item key. It is the map key
	// used when recording the library-to-graph id mapping.
	Key string `json:"key" yaml:"key"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Abstract is the paper abstract. May be empty.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// Authors lists author display names in source order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Year is the publication year, zero when unknown.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// DOI is the bare DOI without the resolver prefix. May be empty.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// Publication is the journal or venue name.
	Publication string `json:"publication,omitempty" yaml:"publication,omitempty"`

	// ItemType is the bibliography item type (e.g. "journalArticle").
	ItemType string `json:"item_type,omitempty" yaml:"item_type,omitempty"`
}

// HasText reports whether the paper carries any embeddable text.
func (p LibraryPaper) HasText() bool {
	return p.Title != "" || p.Abstract != ""
}

// MostSimilar is a snapshot of the library paper closest to a candidate,
// attached by the similarity engine.
type MostSimilar struct {
	Title      string   `json:"title" yaml:"title"`
	Authors    []string `json:"authors,omitempty" yaml:"authors,omitempty"`
	Year       int      `json:"year,omitempty" yaml:"year,omitempty"`
	Similarity float64  `json:"similarity" yaml:"similarity"`
}

// CandidatePaper is a newly discovered paper under evaluation. The graph
// client fills the metadata fields; the scoring stages return augmented
// copies with the score fields set. Score fields are never assumed
// pre-populated.
type CandidatePaper struct {
	// OpenAlexID is the scholarly-graph work id assigned at discovery.
	OpenAlexID string `json:"openalex_id" yaml:"openalex_id"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Abstract is the paper abstract, reconstructed from the graph API's
	// inverted index. May be empty.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// Authors lists author display names in source order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// DOI is the bare DOI. May be empty.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// Journal is the venue name from the work's primary location.
	Journal string `json:"journal,omitempty" yaml:"journal,omitempty"`

	// PublicationDate is the publication date in YYYY-MM-DD form.
	PublicationDate string `json:"publication_date,omitempty" yaml:"publication_date,omitempty"`

	// PublicationYear is the publication year, zero when unknown.
	PublicationYear int `json:"publication_year,omitempty" yaml:"publication_year,omitempty"`

	// URL is the work's landing URL.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// OpenAccess reports whether an open-access copy exists.
	OpenAccess bool `json:"open_access,omitempty" yaml:"open_access,omitempty"`

	// PDFURL is the open-access PDF URL when OpenAccess is true.
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	// CitedByCount is the work's total citation count in the graph.
	CitedByCount int `json:"cited_by_count,omitempty" yaml:"cited_by_count,omitempty"`

	// SimilarityScore is the maximum cosine similarity to any library
	// paper, in [0,1]. Set by the similarity engine.
	SimilarityScore float64 `json:"similarity_score" yaml:"similarity_score"`

	// MostSimilarPaper identifies the library paper behind SimilarityScore.
	MostSimilarPaper *MostSimilar `json:"most_similar_paper,omitempty" yaml:"most_similar_paper,omitempty"`

	// CitationScore is the citation-network proximity score, in [0,1].
	// Set by the citation scorer.
	CitationScore float64 `json:"citation_score" yaml:"citation_score"`

	// LibraryPapersCited counts the distinct library papers this candidate
	// cites. Set by the citation scorer, zero when none.
	LibraryPapersCited int `json:"library_papers_cited" yaml:"library_papers_cited"`

	// CombinedScore is the weighted fusion score used for final ranking.
	CombinedScore float64 `json:"combined_score" yaml:"combined_score"`
}

// HasText reports whether the candidate carries any embeddable text.
func (p CandidatePaper) HasText() bool {
	return p.Title != "" || p.Abstract != ""
}
