// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout (default 30s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-recommender/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// GraphConfig holds settings for the scholarly-graph (OpenAlex) client.
type GraphConfig struct {
	HTTPConfig `yaml:",inline"`

	// Email is sent as the mailto parameter for polite-pool access.
	Email string `json:"email,omitempty" yaml:"email,omitempty"`

	// RequestsPerSecond caps the collective outbound request rate across
	// all workers (default 10).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`

	// MaxRetries is the number of backoff retries on HTTP 429 (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// LibraryConfig holds settings for the bibliography (Zotero) provider.
type LibraryConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey authenticates against the Zotero API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// UserID is the Zotero user (or group) id.
	UserID string `json:"user_id,omitempty" yaml:"user_id,omitempty"`

	// LibraryType is "user" or "group" (default "user").
	LibraryType string `json:"library_type" yaml:"library_type"`

	// Collection restricts fetches to one collection, by key or by name.
	// Empty means the whole library.
	Collection string `json:"collection,omitempty" yaml:"collection,omitempty"`
}

// SimilarityConfig holds settings for the content similarity engine.
type SimilarityConfig struct {
	// Model is the local sentence-transformer model identifier
	// (default "sentence-transformers/all-MiniLM-L6-v2").
	Model string `json:"model" yaml:"model"`
}

// CitationConfig holds settings for the citation network builder.
type CitationConfig struct {
	// MaxCitations caps the citing works fetched per library paper.
	// Zero or negative means unlimited (default 20).
	MaxCitations int `json:"max_citations" yaml:"max_citations"`

	// MaxWorkers bounds the concurrent per-paper resolution tasks (default 5).
	MaxWorkers int `json:"max_workers" yaml:"max_workers"`
}

// RecommendConfig holds the default knobs for a recommendation run. Every
// field can be overridden per run from the CLI.
type RecommendConfig struct {
	// DaysBack is how far back candidate discovery searches (default 7).
	DaysBack int `json:"days_back" yaml:"days_back"`

	// Top is the number of recommendations to return (default 10).
	Top int `json:"top" yaml:"top"`

	// CitationWeight weighs the citation score in the combined score
	// (default 0.3). Weights need not sum to 1.
	CitationWeight float64 `json:"citation_weight" yaml:"citation_weight"`

	// SimilarityWeight weighs the similarity score (default 0.7).
	SimilarityWeight float64 `json:"similarity_weight" yaml:"similarity_weight"`

	// MinCitationScore drops candidates scoring below it (default 0).
	MinCitationScore float64 `json:"min_citation_score" yaml:"min_citation_score"`

	// MinSimilarityScore drops candidates scoring below it (default 0).
	MinSimilarityScore float64 `json:"min_similarity_score" yaml:"min_similarity_score"`

	// FilterJournals restricts discovery to the curated journal list
	// (default true).
	FilterJournals bool `json:"filter_journals" yaml:"filter_journals"`
}

// CacheConfig holds settings for on-disk caches.
type CacheConfig struct {
	// Dir is the cache directory; it holds the SQLite cache database and
	// the reviewed-papers store (default ".cache").
	Dir string `json:"dir" yaml:"dir"`
}

// Config groups all stage configurations.
type Config struct {
	Graph      GraphConfig      `json:"graph" yaml:"graph"`
	Library    LibraryConfig    `json:"library" yaml:"library"`
	Similarity SimilarityConfig `json:"similarity" yaml:"similarity"`
	Citation   CitationConfig   `json:"citation" yaml:"citation"`
	Recommend  RecommendConfig  `json:"recommend" yaml:"recommend"`
	Cache      CacheConfig      `json:"cache" yaml:"cache"`
}
