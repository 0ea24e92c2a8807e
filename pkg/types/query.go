// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// DiscoveryQuery holds the parameters of one discovery crawl.
// Per prd001-discovery R1.1-R1.4.
type DiscoveryQuery struct {
	// Keywords are the search terms; blank entries are ignored and an
	// all-blank list omits the search parameter entirely (R1.2).
	Keywords []string

	// MaxResults caps the number of records yielded across all pages.
	MaxResults int

	// PerPage is the requested page size, clamped to 1..200 before use.
	PerPage int

	// OAOnly restricts discovery to open-access works.
	OAOnly bool

	// MinYear keeps only works published on or after January 1 of that year.
	MinYear int
}

// IsEmpty reports whether the query contains no searchable terms (R1.5).
func (q DiscoveryQuery) IsEmpty() bool {
	for _, k := range q.Keywords {
		if strings.TrimSpace(k) != "" {
			return false
		}
	}
	return true
}
