// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package library fetches the user's paper library from the Zotero API.
// It pages through top-level items, keeps only the item types that
// represent papers, and normalizes them into LibraryPaper records for the
// scoring stages.
package library

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/paper-recommender/internal/httputil"
	"github.com/pdiddy/paper-recommender/pkg/types"
)

// Base URL for the Zotero API. Declared as a var so tests can substitute
// an httptest server.
var zoteroAPIBase = "https://api.zotero.org"

// pageSize is the Zotero API maximum items per request.
const pageSize = 100

// Item types that count as papers. Everything else (notes, attachments,
// books, web pages) is skipped.
var paperItemTypes = map[string]bool{
	"journalArticle":  true,
	"conferencePaper": true,
	"preprint":        true,
	"report":          true,
}

// Client talks to the Zotero API for one user library.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	userID      string
	libraryType string
	maxRetries  int
}

// NewClient builds a Client from config. LibraryType defaults to "users";
// set it to "groups" for a group library.
func NewClient(cfg types.LibraryConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	libraryType := cfg.LibraryType
	if libraryType == "" {
		libraryType = "users"
	}
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		apiKey:      cfg.APIKey,
		userID:      cfg.UserID,
		libraryType: libraryType,
		maxRetries:  3,
	}
}

// Collection is a Zotero collection reference.
type Collection struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// LibraryStats summarizes a fetched library.
type LibraryStats struct {
	TotalPapers        int `json:"total_papers" yaml:"total_papers"`
	PapersWithDOI      int `json:"papers_with_doi" yaml:"papers_with_doi"`
	PapersWithAbstract int `json:"papers_with_abstract" yaml:"papers_with_abstract"`
	UniqueAuthors      int `json:"unique_authors" yaml:"unique_authors"`
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	reqURL := zoteroAPIBase + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Zotero-API-Key", c.apiKey)
	req.Header.Set("Zotero-API-Version", "3")

	return httputil.DoWithRetry(ctx, c.httpClient, req, c.maxRetries)
}

func (c *Client) libraryPrefix() string {
	return fmt.Sprintf("/%s/%s", c.libraryType, c.userID)
}

// FetchLibrary pages through all top-level paper items, optionally
// restricted to a collection key. Untitled and non-paper items are
// skipped. Progress is logged to w.
func (c *Client) FetchLibrary(ctx context.Context, collectionKey string, w io.Writer) ([]types.LibraryPaper, error) {
	path := c.libraryPrefix() + "/items/top"
	if collectionKey != "" {
		path = c.libraryPrefix() + "/collections/" + collectionKey + "/items/top"
	}

	var papers []types.LibraryPaper
	start := 0
	for {
		params := url.Values{}
		params.Set("format", "json")
		params.Set("limit", strconv.Itoa(pageSize))
		params.Set("start", strconv.Itoa(start))

		resp, err := c.get(ctx, path, params)
		if err != nil {
			return nil, fmt.Errorf("Zotero items request: %w", err)
		}

		var items []zoteroItem
		decodeErr := json.NewDecoder(resp.Body).Decode(&items)
		resp.Body.Close()
		if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("Zotero rejected the API key (HTTP %d)", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("Zotero items request returned HTTP %d", resp.StatusCode)
		}
		if decodeErr != nil {
			return nil, fmt.Errorf("parsing Zotero items: %w", decodeErr)
		}

		for _, item := range items {
			if paper, ok := parseItem(item); ok {
				papers = append(papers, paper)
			}
		}

		if len(items) < pageSize {
			break
		}
		start += pageSize
		fmt.Fprintf(w, "  fetched %d library items so far\n", start)
	}

	fmt.Fprintf(w, "  %d papers in library\n", len(papers))
	return papers, nil
}

// ListCollections returns all collections in the library.
func (c *Client) ListCollections(ctx context.Context) ([]Collection, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(pageSize))

	var collections []Collection
	start := 0
	for {
		params.Set("start", strconv.Itoa(start))
		resp, err := c.get(ctx, c.libraryPrefix()+"/collections", params)
		if err != nil {
			return nil, fmt.Errorf("Zotero collections request: %w", err)
		}

		var raw []zoteroCollection
		decodeErr := json.NewDecoder(resp.Body).Decode(&raw)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("Zotero collections request returned HTTP %d", resp.StatusCode)
		}
		if decodeErr != nil {
			return nil, fmt.Errorf("parsing Zotero collections: %w", decodeErr)
		}

		for _, col := range raw {
			collections = append(collections, Collection{Key: col.Data.Key, Name: col.Data.Name})
		}

		if len(raw) < pageSize {
			return collections, nil
		}
		start += pageSize
	}
}

// FindCollectionByName resolves a collection name to its key, trying an
// exact match first and falling back to a case-insensitive substring
// match. Returns nil when nothing matches.
func (c *Client) FindCollectionByName(ctx context.Context, name string) (*Collection, error) {
	collections, err := c.ListCollections(ctx)
	if err != nil {
		return nil, err
	}

	for i := range collections {
		if collections[i].Name == name {
			return &collections[i], nil
		}
	}
	lower := strings.ToLower(name)
	for i := range collections {
		if strings.Contains(strings.ToLower(collections[i].Name), lower) {
			return &collections[i], nil
		}
	}
	return nil, nil
}

// Stats summarizes a fetched library for the stats command.
func Stats(papers []types.LibraryPaper) LibraryStats {
	stats := LibraryStats{TotalPapers: len(papers)}
	authors := make(map[string]bool)
	for _, paper := range papers {
		if paper.DOI != "" {
			stats.PapersWithDOI++
		}
		if paper.Abstract != "" {
			stats.PapersWithAbstract++
		}
		for _, author := range paper.Authors {
			authors[author] = true
		}
	}
	stats.UniqueAuthors = len(authors)
	return stats
}

// CollectionKey derives the cache namespace for a collection identifier:
// lowercased, with runs of non-alphanumeric characters collapsed to
// underscores. An empty identifier maps to "all".
func CollectionKey(id string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(id)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	key := strings.Trim(b.String(), "_")
	for strings.Contains(key, "__") {
		key = strings.ReplaceAll(key, "__", "_")
	}
	if key == "" {
		return "all"
	}
	return key
}

// parseItem converts a raw Zotero item into a LibraryPaper. ok is false
// for non-paper item types and untitled items.
func parseItem(item zoteroItem) (types.LibraryPaper, bool) {
	data := item.Data
	if !paperItemTypes[data.ItemType] {
		return types.LibraryPaper{}, false
	}
	title := strings.TrimSpace(data.Title)
	if title == "" {
		return types.LibraryPaper{}, false
	}

	paper := types.LibraryPaper{
		Key:         data.Key,
		Title:       title,
		Abstract:    strings.TrimSpace(data.AbstractNote),
		Year:        parseYear(data.Date),
		DOI:         strings.TrimPrefix(strings.TrimSpace(data.DOI), "https://doi.org/"),
		Publication: data.PublicationTitle,
		ItemType:    data.ItemType,
	}

	for _, creator := range data.Creators {
		if creator.CreatorType != "author" && creator.CreatorType != "" {
			continue
		}
		name := creator.Name
		if name == "" {
			name = strings.TrimSpace(creator.FirstName + " " + creator.LastName)
		}
		if name != "" {
			paper.Authors = append(paper.Authors, name)
		}
	}

	return paper, true
}

// parseYear extracts the first four-digit year from a Zotero date string,
// which may be anything from "2024" to "March 15, 2024".
func parseYear(date string) int {
	for i := 0; i+4 <= len(date); i++ {
		if year, err := strconv.Atoi(date[i : i+4]); err == nil && year >= 1000 && year <= 9999 {
			return year
		}
	}
	return 0
}

// Zotero API JSON structures.
type zoteroItem struct {
	Key  string         `json:"key"`
	Data zoteroItemData `json:"data"`
}

type zoteroItemData struct {
	Key              string          `json:"key"`
	ItemType         string          `json:"itemType"`
	Title            string          `json:"title"`
	AbstractNote     string          `json:"abstractNote"`
	Date             string          `json:"date"`
	DOI              string          `json:"DOI"`
	PublicationTitle string          `json:"publicationTitle"`
	Creators         []zoteroCreator `json:"creators"`
}

type zoteroCreator struct {
	CreatorType string `json:"creatorType"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Name        string `json:"name"`
}

type zoteroCollection struct {
	Data struct {
		Key  string `json:"key"`
		Name string `json:"name"`
	} `json:"data"`
}
