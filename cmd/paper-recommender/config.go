// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-recommender/internal/cache"
	"github.com/pdiddy/paper-recommender/internal/graph"
	"github.com/pdiddy/paper-recommender/internal/library"
	"github.com/pdiddy/paper-recommender/pkg/types"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "paper-recommender/0.1"
)

// buildConfig assembles the full configuration from the config file,
// environment, and secrets, in that order of increasing precedence.
func buildConfig() types.Config {
	viper.SetDefault("graph.requests_per_second", 10.0)
	viper.SetDefault("graph.max_retries", 3)
	viper.SetDefault("library.library_type", "users")
	viper.SetDefault("citation.max_citations", 20)
	viper.SetDefault("citation.max_workers", 5)
	viper.SetDefault("recommend.days_back", 7)
	viper.SetDefault("recommend.top", 10)
	viper.SetDefault("recommend.citation_weight", 0.3)
	viper.SetDefault("recommend.similarity_weight", 0.7)
	viper.SetDefault("recommend.filter_journals", true)
	viper.SetDefault("cache.dir", ".cache")

	httpCfg := types.HTTPConfig{
		Timeout:   defaultTimeout,
		UserAgent: defaultUserAgent,
	}

	return types.Config{
		Graph: types.GraphConfig{
			HTTPConfig:        httpCfg,
			Email:             secretDefault("openalex-email", viper.GetString("graph.email")),
			RequestsPerSecond: viper.GetFloat64("graph.requests_per_second"),
			MaxRetries:        viper.GetInt("graph.max_retries"),
		},
		Library: types.LibraryConfig{
			HTTPConfig:  httpCfg,
			APIKey:      secretDefault("zotero-api-key", viper.GetString("library.api_key")),
			UserID:      secretDefault("zotero-user-id", viper.GetString("library.user_id")),
			LibraryType: viper.GetString("library.library_type"),
			Collection:  viper.GetString("library.collection"),
		},
		Similarity: types.SimilarityConfig{
			Model: viper.GetString("similarity.model"),
		},
		Citation: types.CitationConfig{
			MaxCitations: viper.GetInt("citation.max_citations"),
			MaxWorkers:   viper.GetInt("citation.max_workers"),
		},
		Recommend: types.RecommendConfig{
			DaysBack:           viper.GetInt("recommend.days_back"),
			Top:                viper.GetInt("recommend.top"),
			CitationWeight:     viper.GetFloat64("recommend.citation_weight"),
			SimilarityWeight:   viper.GetFloat64("recommend.similarity_weight"),
			MinCitationScore:   viper.GetFloat64("recommend.min_citation_score"),
			MinSimilarityScore: viper.GetFloat64("recommend.min_similarity_score"),
			FilterJournals:     viper.GetBool("recommend.filter_journals"),
		},
		Cache: types.CacheConfig{
			Dir: viper.GetString("cache.dir"),
		},
	}
}

// cacheDir returns the cache directory, letting the flag override config.
func cacheDir(cmd *cobra.Command, cfg types.Config) string {
	if dir, _ := cmd.Flags().GetString("cache-dir"); dir != "" {
		return dir
	}
	return cfg.Cache.Dir
}

// requireLibraryConfig fails early when Zotero credentials are missing.
func requireLibraryConfig(cfg types.Config) error {
	if cfg.Library.APIKey == "" {
		return fmt.Errorf("Zotero API key not configured: add .secrets/zotero-api-key or set library.api_key")
	}
	if cfg.Library.UserID == "" {
		return fmt.Errorf("Zotero user id not configured: add .secrets/zotero-user-id or set library.user_id")
	}
	return nil
}

// resolveCollection maps the --collection flag (a name or a key) to a
// Zotero collection key and a cache namespace. An empty flag means the
// whole library.
func resolveCollection(ctx context.Context, cmd *cobra.Command, cfg types.Config, client *library.Client, w io.Writer) (collectionKey, namespace string, err error) {
	name, _ := cmd.Flags().GetString("collection")
	if name == "" {
		name = cfg.Library.Collection
	}
	if name == "" {
		return "", library.CollectionKey(""), nil
	}

	col, err := client.FindCollectionByName(ctx, name)
	if err != nil {
		return "", "", fmt.Errorf("resolving collection %q: %w", name, err)
	}
	if col == nil {
		return "", "", fmt.Errorf("collection %q not found", name)
	}
	fmt.Fprintf(w, "using collection %q\n", col.Name)
	return col.Key, library.CollectionKey(col.Name), nil
}

// openCache opens the SQLite cache store for the configured directory.
func openCache(cmd *cobra.Command, cfg types.Config) (*cache.Store, error) {
	return cache.Open(cacheDir(cmd, cfg))
}

// newGraphClient builds the OpenAlex client.
func newGraphClient(cfg types.Config) *graph.Client {
	return graph.NewClient(cfg.Graph)
}

// newLibraryClient builds the Zotero client.
func newLibraryClient(cfg types.Config) *library.Client {
	return library.NewClient(cfg.Library)
}
