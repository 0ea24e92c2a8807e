// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "sort"

// Priority bands assigned by source mappers, lower is more preferred.
// Per prd002-resolution R2.2: a source's best known open-access copy gets
// PriorityBest, its primary copy PriorityPrimary, and remaining listed
// copies PriorityListed plus their encounter-order offset. Enrichers derive
// their bands from these so combined lists stay consistent.
const (
	PriorityBest    = 0
	PriorityPrimary = 5
	PriorityListed  = 10
)

// Location is one candidate download target for a record. Locations are
// ephemeral values produced by resolution and consumed by the fetch stage;
// they are never persisted independently.
type Location struct {
	// PDFURL is a direct-download URL for the PDF artifact, when offered.
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	// HTMLURL is the landing or full-text HTML URL, used as fallback.
	HTMLURL string `json:"html_url,omitempty" yaml:"html_url,omitempty"`

	// Priority orders candidates; lower values are attempted first.
	Priority int `json:"priority" yaml:"priority"`

	// Source is the tag of the mapper or enricher that produced the entry.
	Source string `json:"source" yaml:"source"`

	// IsOA reports open-access status; nil when the source does not say.
	IsOA *bool `json:"is_oa,omitempty" yaml:"is_oa,omitempty"`

	// License is the license text reported by the source, when any.
	License string `json:"license,omitempty" yaml:"license,omitempty"`
}

// Empty reports whether the location carries no usable URL.
func (l Location) Empty() bool {
	return l.PDFURL == "" && l.HTMLURL == ""
}

// NormalizeLocations drops candidates lacking both URLs and stable-sorts the
// rest ascending by priority, so equal-priority entries keep their relative
// insertion order. Idempotent and pure; the input slice is not modified.
// Per prd002-resolution R2.4.
func NormalizeLocations(locs []Location) []Location {
	out := make([]Location, 0, len(locs))
	for _, l := range locs {
		if l.Empty() {
			continue
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}
