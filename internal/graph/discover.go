// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/paper-recommender/pkg/types"
)

// SearchRecentWorks discovers candidate papers published on or after from,
// optionally restricted to the given source (journal) ids. It pages
// through the cursor API, newest first, until the cursor is exhausted or
// limit results have been collected. A non-positive limit fetches all.
func (c *Client) SearchRecentWorks(ctx context.Context, from time.Time, sourceIDs []string, limit int, w io.Writer) ([]types.CandidatePaper, error) {
	filters := []string{"from_publication_date:" + from.Format("2006-01-02")}
	if len(sourceIDs) > 0 {
		filters = append(filters, "primary_location.source.id:"+strings.Join(sourceIDs, "|"))
	}

	params := c.params()
	params.Set("filter", strings.Join(filters, ","))
	params.Set("sort", "publication_date:desc")
	params.Set("per_page", "200")
	params.Set("cursor", "*")

	var candidates []types.CandidatePaper
	page := 0
	for {
		resp, err := c.get(ctx, openAlexWorksBase+"?"+params.Encode())
		if err != nil {
			return nil, fmt.Errorf("OpenAlex recent-work search: %w", err)
		}

		var oar openAlexResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&oar)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("OpenAlex recent-work search returned HTTP %d", resp.StatusCode)
		}
		if decodeErr != nil {
			return nil, fmt.Errorf("parsing OpenAlex response: %w", decodeErr)
		}

		page++
		if page == 1 {
			fmt.Fprintf(w, "  %d candidate papers available since %s\n",
				oar.Meta.Count, from.Format("2006-01-02"))
		}

		for _, work := range oar.Results {
			candidates = append(candidates, parseCandidate(work))
			if limit > 0 && len(candidates) >= limit {
				return candidates, nil
			}
		}

		if oar.Meta.NextCursor == "" || len(oar.Results) == 0 {
			return candidates, nil
		}
		params.Set("cursor", oar.Meta.NextCursor)
		fmt.Fprintf(w, "  fetched page %d (%d papers so far)\n", page, len(candidates))
	}
}

// FindSourceByName resolves a journal or venue name to its OpenAlex source
// record. Returns nil when nothing matches.
func (c *Client) FindSourceByName(ctx context.Context, name string) (*Source, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	params := c.params()
	params.Set("filter", "display_name.search:"+name)
	params.Set("per_page", "1")

	resp, err := c.get(ctx, openAlexSourcesBase+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("OpenAlex source search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAlex source search returned HTTP %d", resp.StatusCode)
	}

	var osr openAlexSourcesResponse
	if err := json.NewDecoder(resp.Body).Decode(&osr); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}
	if len(osr.Results) == 0 {
		return nil, nil
	}

	s := osr.Results[0]
	return &Source{
		ID:          trimOpenAlexID(s.ID),
		DisplayName: s.DisplayName,
		ISSNL:       s.ISSNL,
		Type:        s.Type,
	}, nil
}

// Source is a resolved journal/venue node.
type Source struct {
	ID          string
	DisplayName string
	ISSNL       string
	Type        string
}

// ResolveSourceIDs maps journal names to OpenAlex source ids. Names that
// fail to resolve are logged and skipped, never fatal.
func (c *Client) ResolveSourceIDs(ctx context.Context, names []string, w io.Writer) []string {
	var ids []string
	for _, name := range names {
		source, err := c.FindSourceByName(ctx, name)
		if err != nil {
			fmt.Fprintf(w, "  warning: source lookup for %q failed: %v\n", name, err)
			continue
		}
		if source == nil {
			fmt.Fprintf(w, "  no source found for %q\n", name)
			continue
		}
		ids = append(ids, source.ID)
	}
	return ids
}

// parseCandidate converts a raw OpenAlex work into a CandidatePaper.
func parseCandidate(w openAlexWork) types.CandidatePaper {
	c := types.CandidatePaper{
		OpenAlexID:      trimOpenAlexID(w.ID),
		Title:           w.Title,
		Abstract:        reconstructAbstract(w.AbstractInvertedIndex),
		DOI:             strings.TrimPrefix(w.DOI, "https://doi.org/"),
		PublicationDate: w.PublicationDate,
		PublicationYear: w.PublicationYear,
		URL:             w.ID,
		CitedByCount:    w.CitedByCount,
		OpenAccess:      w.OpenAccess.IsOA,
		PDFURL:          w.OpenAccess.OAURL,
	}

	for _, authorship := range w.Authorships {
		if authorship.Author.DisplayName != "" {
			c.Authors = append(c.Authors, authorship.Author.DisplayName)
		}
	}

	if w.PrimaryLocation != nil && w.PrimaryLocation.Source != nil {
		c.Journal = w.PrimaryLocation.Source.DisplayName
	}

	return c
}
