// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package library

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/pdiddy/paper-recommender/pkg/types"
)

func testZoteroClient(apiKey string) *Client {
	return NewClient(types.LibraryConfig{
		HTTPConfig: types.HTTPConfig{Timeout: 5 * time.Second},
		APIKey:     apiKey,
		UserID:     "12345",
	})
}

func TestFetchLibraryFiltersItems(t *testing.T) {
	items := []zoteroItem{
		{
			Key: "AAAA1111",
			Data: zoteroItemData{
				Key:              "AAAA1111",
				ItemType:         "journalArticle",
				Title:            "CRISPR screens in primary cells",
				AbstractNote:     "  We describe a method.  ",
				Date:             "March 15, 2024",
				DOI:              "https://doi.org/10.1/x",
				PublicationTitle: "Cell",
				Creators: []zoteroCreator{
					{CreatorType: "author", FirstName: "Grace", LastName: "Hopper"},
					{CreatorType: "author", Name: "The ENCODE Consortium"},
					{CreatorType: "editor", FirstName: "Some", LastName: "Editor"},
				},
			},
		},
		{
			Key:  "BBBB2222",
			Data: zoteroItemData{Key: "BBBB2222", ItemType: "book", Title: "A Book"},
		},
		{
			Key:  "CCCC3333",
			Data: zoteroItemData{Key: "CCCC3333", ItemType: "preprint", Title: "   "},
		},
		{
			Key:  "DDDD4444",
			Data: zoteroItemData{Key: "DDDD4444", ItemType: "preprint", Title: "An Untested Preprint"},
		},
	}

	var gotPath, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("Zotero-API-Key")
		json.NewEncoder(w).Encode(items)
	}))
	defer server.Close()

	orig := zoteroAPIBase
	zoteroAPIBase = server.URL
	defer func() { zoteroAPIBase = orig }()

	var log bytes.Buffer
	papers, err := testZoteroClient("secret-key").FetchLibrary(context.Background(), "", &log)
	if err != nil {
		t.Fatalf("FetchLibrary: %v", err)
	}

	if gotPath != "/users/12345/items/top" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "secret-key" {
		t.Errorf("api key header = %q", gotKey)
	}

	// The book and the untitled preprint are skipped.
	if len(papers) != 2 {
		t.Fatalf("got %d papers, want 2", len(papers))
	}

	first := papers[0]
	if first.Key != "AAAA1111" {
		t.Errorf("Key = %q", first.Key)
	}
	if first.Abstract != "We describe a method." {
		t.Errorf("Abstract = %q, want trimmed", first.Abstract)
	}
	if first.Year != 2024 {
		t.Errorf("Year = %d, want 2024", first.Year)
	}
	if first.DOI != "10.1/x" {
		t.Errorf("DOI = %q, want bare DOI", first.DOI)
	}
	if len(first.Authors) != 2 || first.Authors[1] != "The ENCODE Consortium" {
		t.Errorf("Authors = %v", first.Authors)
	}
}

func TestFetchLibraryPaging(t *testing.T) {
	// First page is full, second is partial, so exactly two requests.
	fullPage := make([]zoteroItem, pageSize)
	for i := range fullPage {
		fullPage[i] = zoteroItem{Data: zoteroItemData{
			ItemType: "journalArticle",
			Title:    "Paper " + strconv.Itoa(i),
		}}
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("start") == "0" {
			json.NewEncoder(w).Encode(fullPage)
			return
		}
		json.NewEncoder(w).Encode(fullPage[:3])
	}))
	defer server.Close()

	orig := zoteroAPIBase
	zoteroAPIBase = server.URL
	defer func() { zoteroAPIBase = orig }()

	var log bytes.Buffer
	papers, err := testZoteroClient("k").FetchLibrary(context.Background(), "", &log)
	if err != nil {
		t.Fatalf("FetchLibrary: %v", err)
	}
	if len(papers) != pageSize+3 {
		t.Errorf("got %d papers, want %d", len(papers), pageSize+3)
	}
}

func TestFetchLibraryCollectionScoped(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode([]zoteroItem{})
	}))
	defer server.Close()

	orig := zoteroAPIBase
	zoteroAPIBase = server.URL
	defer func() { zoteroAPIBase = orig }()

	var log bytes.Buffer
	if _, err := testZoteroClient("k").FetchLibrary(context.Background(), "COLKEY99", &log); err != nil {
		t.Fatalf("FetchLibrary: %v", err)
	}
	if gotPath != "/users/12345/collections/COLKEY99/items/top" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestFetchLibraryBadAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	orig := zoteroAPIBase
	zoteroAPIBase = server.URL
	defer func() { zoteroAPIBase = orig }()

	var log bytes.Buffer
	if _, err := testZoteroClient("bad").FetchLibrary(context.Background(), "", &log); err == nil {
		t.Fatal("expected an error for a rejected API key")
	}
}

func TestFindCollectionByName(t *testing.T) {
	collections := []zoteroCollection{}
	for _, c := range []struct{ key, name string }{
		{"K1", "Machine Learning"},
		{"K2", "Neuroscience Reading"},
		{"K3", "machine learning archive"},
	} {
		var zc zoteroCollection
		zc.Data.Key = c.key
		zc.Data.Name = c.name
		collections = append(collections, zc)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(collections)
	}))
	defer server.Close()

	orig := zoteroAPIBase
	zoteroAPIBase = server.URL
	defer func() { zoteroAPIBase = orig }()

	client := testZoteroClient("k")

	// Exact match wins over substring.
	col, err := client.FindCollectionByName(context.Background(), "Machine Learning")
	if err != nil {
		t.Fatalf("FindCollectionByName: %v", err)
	}
	if col == nil || col.Key != "K1" {
		t.Errorf("col = %+v, want K1", col)
	}

	// Case-insensitive substring fallback.
	col, err = client.FindCollectionByName(context.Background(), "neuro")
	if err != nil {
		t.Fatalf("FindCollectionByName: %v", err)
	}
	if col == nil || col.Key != "K2" {
		t.Errorf("col = %+v, want K2", col)
	}

	// No match.
	col, err = client.FindCollectionByName(context.Background(), "astrophysics")
	if err != nil {
		t.Fatalf("FindCollectionByName: %v", err)
	}
	if col != nil {
		t.Errorf("col = %+v, want nil", col)
	}
}

func TestCollectionKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "all"},
		{"Machine Learning", "machine_learning"},
		{"  Neuro / Bio papers!  ", "neuro_bio_papers"},
		{"___", "all"},
		{"ALL-CAPS-2024", "all_caps_2024"},
	}
	for _, tt := range tests {
		if got := CollectionKey(tt.in); got != tt.want {
			t.Errorf("CollectionKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStats(t *testing.T) {
	papers := []types.LibraryPaper{
		{Title: "A", DOI: "10.1/a", Abstract: "x", Authors: []string{"Ann", "Bob"}},
		{Title: "B", Authors: []string{"Ann"}},
		{Title: "C", DOI: "10.1/c"},
	}
	stats := Stats(papers)
	if stats.TotalPapers != 3 {
		t.Errorf("TotalPapers = %d", stats.TotalPapers)
	}
	if stats.PapersWithDOI != 2 {
		t.Errorf("PapersWithDOI = %d", stats.PapersWithDOI)
	}
	if stats.PapersWithAbstract != 1 {
		t.Errorf("PapersWithAbstract = %d", stats.PapersWithAbstract)
	}
	if stats.UniqueAuthors != 2 {
		t.Errorf("UniqueAuthors = %d", stats.UniqueAuthors)
	}
}

func TestParseYear(t *testing.T) {
	tests := []struct {
		date string
		want int
	}{
		{"2024", 2024},
		{"2024-03-15", 2024},
		{"March 15, 2024", 2024},
		{"", 0},
		{"n.d.", 0},
	}
	for _, tt := range tests {
		if got := parseYear(tt.date); got != tt.want {
			t.Errorf("parseYear(%q) = %d, want %d", tt.date, got, tt.want)
		}
	}
}
