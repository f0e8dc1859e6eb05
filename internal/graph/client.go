// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package graph implements the scholarly-graph client against the OpenAlex
// API: work resolution by DOI or title, citing-work lookup for the citation
// network builder, and recent-work discovery for the candidate stage.
//
// All outbound calls share one rate limiter so that concurrent builder
// workers collectively stay inside the polite-pool request budget, and all
// calls retry on HTTP 429 with exponential backoff.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/paper-recommender/internal/httputil"
	"github.com/pdiddy/paper-recommender/pkg/types"
)

// Base URLs for the OpenAlex API. Declared as vars so tests can
// substitute httptest servers.
var (
	openAlexWorksBase   = "https://api.openalex.org/works"
	openAlexSourcesBase = "https://api.openalex.org/sources"
)

const openAlexIDPrefix = "https://openalex.org/"

// Work is a resolved scholarly-graph node.
type Work struct {
	// ID is the bare OpenAlex work id (e.g. "W2741809807").
	ID string

	// Title is the work title.
	Title string

	// DOI is the bare DOI, when the work carries one.
	DOI string
}

// Resolver is the collaborator contract the citation network builder
// consumes. *Client satisfies it; tests substitute fakes. Implementations
// must be safe for concurrent use.
type Resolver interface {
	// FindWorkByDOI resolves a DOI to a work. Returns nil when not found.
	FindWorkByDOI(ctx context.Context, doi string) (*Work, error)

	// FindWorkByTitle resolves a title search to its best-matching work.
	// Returns nil when nothing matches.
	FindWorkByTitle(ctx context.Context, title string) (*Work, error)

	// GetCiting returns the ids of works citing the given work, up to
	// limit. A non-positive limit fetches all citing works.
	GetCiting(ctx context.Context, workID string, limit int) ([]string, error)
}

// Client talks to the OpenAlex API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	email      string
	userAgent  string
	maxRetries int
}

// NewClient builds a Client from config, applying defaults: 30 s timeout,
// 10 requests/second, 3 retries.
func NewClient(cfg types.GraphConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		email:      cfg.Email,
		userAgent:  cfg.UserAgent,
		maxRetries: maxRetries,
	}
}

// get performs a rate-limited GET with 429 retry. The caller owns the
// response body.
func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	return httputil.DoWithRetry(ctx, c.httpClient, req, c.maxRetries)
}

// params returns base query parameters, including the polite-pool mailto.
func (c *Client) params() url.Values {
	v := url.Values{}
	if c.email != "" {
		v.Set("mailto", c.email)
	}
	return v
}

// FindWorkByDOI resolves a DOI through the works/doi: endpoint. A 404
// means the DOI is unknown to the graph and resolves to (nil, nil).
func (c *Client) FindWorkByDOI(ctx context.Context, doi string) (*Work, error) {
	doi = strings.TrimPrefix(strings.TrimSpace(doi), "https://doi.org/")
	if doi == "" {
		return nil, nil
	}

	reqURL := openAlexWorksBase + "/doi:" + url.PathEscape(doi)
	if p := c.params().Encode(); p != "" {
		reqURL += "?" + p
	}

	resp, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("OpenAlex DOI lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAlex DOI lookup returned HTTP %d", resp.StatusCode)
	}

	var work openAlexWork
	if err := json.NewDecoder(resp.Body).Decode(&work); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex work: %w", err)
	}
	return workRecord(work), nil
}

// FindWorkByTitle resolves a title through a title.search filter, taking
// the first result.
func (c *Client) FindWorkByTitle(ctx context.Context, title string) (*Work, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, nil
	}

	params := c.params()
	params.Set("filter", "title.search:"+title)
	params.Set("per_page", "1")

	resp, err := c.get(ctx, openAlexWorksBase+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("OpenAlex title search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAlex title search returned HTTP %d", resp.StatusCode)
	}

	var oar openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}
	if len(oar.Results) == 0 {
		return nil, nil
	}
	return workRecord(oar.Results[0]), nil
}

// GetCiting returns ids of works whose reference lists contain workID.
// Results are paged with the cursor API; a non-positive limit follows the
// cursor until exhaustion.
func (c *Client) GetCiting(ctx context.Context, workID string, limit int) ([]string, error) {
	perPage := 200
	if limit > 0 && limit < perPage {
		perPage = limit
	}

	params := c.params()
	params.Set("filter", "cites:"+workID)
	params.Set("per_page", fmt.Sprintf("%d", perPage))
	params.Set("cursor", "*")

	var ids []string
	for {
		resp, err := c.get(ctx, openAlexWorksBase+"?"+params.Encode())
		if err != nil {
			return nil, fmt.Errorf("OpenAlex citing lookup: %w", err)
		}

		var oar openAlexResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&oar)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("OpenAlex citing lookup returned HTTP %d", resp.StatusCode)
		}
		if decodeErr != nil {
			return nil, fmt.Errorf("parsing OpenAlex response: %w", decodeErr)
		}

		for _, work := range oar.Results {
			if id := trimOpenAlexID(work.ID); id != "" {
				ids = append(ids, id)
			}
			if limit > 0 && len(ids) >= limit {
				return ids, nil
			}
		}

		if oar.Meta.NextCursor == "" || len(oar.Results) == 0 {
			return ids, nil
		}
		params.Set("cursor", oar.Meta.NextCursor)
	}
}

// workRecord converts a raw OpenAlex work into the resolved node form.
func workRecord(w openAlexWork) *Work {
	return &Work{
		ID:    trimOpenAlexID(w.ID),
		Title: w.Title,
		DOI:   strings.TrimPrefix(w.DOI, "https://doi.org/"),
	}
}

// trimOpenAlexID strips the canonical URL prefix from an OpenAlex id.
func trimOpenAlexID(id string) string {
	return strings.TrimPrefix(id, openAlexIDPrefix)
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to a list of positions
// where that word appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	// Build position→word map.
	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Meta    openAlexMeta   `json:"meta"`
	Results []openAlexWork `json:"results"`
}

type openAlexMeta struct {
	Count      int    `json:"count"`
	PerPage    int    `json:"per_page"`
	NextCursor string `json:"next_cursor"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DOI                   string               `json:"doi"`
	PublicationDate       string               `json:"publication_date"`
	PublicationYear       int                  `json:"publication_year"`
	CitedByCount          int                  `json:"cited_by_count"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
	PrimaryLocation       *openAlexLocation    `json:"primary_location"`
	OpenAccess            openAlexOpenAccess   `json:"open_access"`
}

type openAlexAuthorship struct {
	Author openAlexAuthor `json:"author"`
}

type openAlexAuthor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type openAlexLocation struct {
	Source *openAlexSource `json:"source"`
}

type openAlexSource struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	ISSNL       string   `json:"issn_l"`
	ISSN        []string `json:"issn"`
	Type        string   `json:"type"`
}

type openAlexOpenAccess struct {
	IsOA     bool   `json:"is_oa"`
	OAStatus string `json:"oa_status"`
	OAURL    string `json:"oa_url"`
}

type openAlexSourcesResponse struct {
	Results []openAlexSource `json:"results"`
}
