// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package discovery streams bibliographic work records from metadata APIs.
// Implements: prd001-discovery (R1-R4);
//
//	docs/ARCHITECTURE § Discovery Crawler.
package discovery

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

// Source streams work records for a query. Discover yields records in API
// order until the result cap is reached, the source is exhausted, or yield
// returns false. Each call runs a fresh crawl; a crawl cannot be resumed.
type Source interface {
	Name() string
	Discover(ctx context.Context, query types.DiscoveryQuery, yield func(types.Paper) bool) error
}

// Collect drains src into a slice. Records yielded before a crawl error
// are returned alongside the error.
func Collect(ctx context.Context, src Source, query types.DiscoveryQuery) ([]types.Paper, error) {
	var papers []types.Paper
	err := src.Discover(ctx, query, func(p types.Paper) bool {
		papers = append(papers, p)
		return true
	})
	return papers, err
}

// FormatTable writes discovered records as a human-readable table to w (R4.2).
func FormatTable(papers []types.Paper, w io.Writer) {
	if len(papers) == 0 {
		fmt.Fprintln(w, "No records found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-4s  %-30s  %s\n", "#", "Title", "Year", "Venue", "DOI")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for i, p := range papers {
		title := p.Title
		if len(title) > 60 {
			title = title[:57] + "..."
		}
		venue := p.Venue
		if len(venue) > 30 {
			venue = venue[:27] + "..."
		}
		year := ""
		if p.Year > 0 {
			year = fmt.Sprintf("%d", p.Year)
		}
		fmt.Fprintf(w, "%-4d  %-60s  %-4s  %-30s  %s\n", i+1, title, year, venue, p.DOI)
	}

	fmt.Fprintf(w, "\n%d records\n", len(papers))
}
