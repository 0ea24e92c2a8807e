// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"encoding/json"
	"testing"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

// --- Source detection ---

func TestDetectOpenAlexByID(t *testing.T) {
	tests := []struct {
		name string
		meta string
		want string
	}{
		{"work url id", `{"id": "https://openalex.org/W123"}`, "openalex"},
		{"uppercase host", `{"id": "HTTPS://OPENALEX.ORG/W123"}`, "openalex"},
		{"foreign id", `{"id": "https://example.org/123"}`, ""},
		{"no id no shape", `{"title": "untagged"}`, ""},
		{"numeric id ignored", `{"id": 42}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewRegistry().Detect(json.RawMessage(tt.meta))
			if got != tt.want {
				t.Errorf("Detect() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectOpenAlexByShape(t *testing.T) {
	tests := []struct {
		name string
		meta string
		want string
	}{
		{"both keys present", `{"authorships": [], "primary_location": null}`, "openalex"},
		{"authorships only", `{"authorships": []}`, ""},
		{"primary_location only", `{"primary_location": {}}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewRegistry().Detect(json.RawMessage(tt.meta))
			if got != tt.want {
				t.Errorf("Detect() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectInvalidJSON(t *testing.T) {
	if got := NewRegistry().Detect(json.RawMessage(`{broken`)); got != "" {
		t.Errorf("Detect() = %q, want empty for invalid metadata", got)
	}
	if got := NewRegistry().Detect(nil); got != "" {
		t.Errorf("Detect() = %q, want empty for nil metadata", got)
	}
}

// --- Registry resolution ---

func TestResolveUnknownSourceIsEmpty(t *testing.T) {
	locs := NewRegistry().Resolve(json.RawMessage(`{"id": "urn:isbn:12345", "title": "A Book"}`))
	if len(locs) != 0 {
		t.Errorf("Resolve() = %v, want empty list for unrecognized source", locs)
	}
}

func TestResolveFirstMatchWins(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Plugin{
		Name:  "catchall",
		Match: func(json.RawMessage) bool { return true },
		Map: func(json.RawMessage) []types.Location {
			return []types.Location{{HTMLURL: "https://catchall.example/x", Priority: 1, Source: "catchall"}}
		},
	})

	// An OpenAlex record resolves through the OpenAlex plugin even though
	// the catch-all also matches.
	meta := json.RawMessage(`{"id": "https://openalex.org/W1", "best_oa_location": {"url": "https://host/w1"}}`)
	locs := reg.Resolve(meta)
	if len(locs) != 1 || locs[0].Source != "openalex" {
		t.Fatalf("Resolve() = %v, want the openalex mapping", locs)
	}

	// A record only the catch-all claims falls through to it.
	locs = reg.Resolve(json.RawMessage(`{"id": "urn:other"}`))
	if len(locs) != 1 || locs[0].Source != "catchall" {
		t.Fatalf("Resolve() = %v, want the catchall mapping", locs)
	}
}

// --- OpenAlex mapper ---

const fullOpenAlexMeta = `{
  "id": "https://openalex.org/W2741809807",
  "best_oa_location": {
    "url_for_pdf": "https://host.example/best.pdf",
    "url": "https://host.example/best",
    "is_oa": true,
    "license": "cc-by"
  },
  "primary_location": {
    "pdf_url": "https://journal.example/primary.pdf",
    "landing_page_url": "https://journal.example/primary",
    "is_oa": false
  },
  "locations": [
    {"url": "https://mirror-a.example/w"},
    {"url_for_pdf": "https://mirror-b.example/w.pdf"}
  ]
}`

func TestMapOpenAlexBands(t *testing.T) {
	locs := NewRegistry().Resolve(json.RawMessage(fullOpenAlexMeta))
	if len(locs) != 4 {
		t.Fatalf("len(locs) = %d, want 4", len(locs))
	}

	best := locs[0]
	if best.Priority != types.PriorityBest {
		t.Errorf("best priority = %d, want %d", best.Priority, types.PriorityBest)
	}
	if best.PDFURL != "https://host.example/best.pdf" || best.HTMLURL != "https://host.example/best" {
		t.Errorf("best urls = (%q, %q)", best.PDFURL, best.HTMLURL)
	}
	if best.IsOA == nil || !*best.IsOA {
		t.Error("best is_oa should be true")
	}
	if best.License != "cc-by" {
		t.Errorf("best license = %q, want cc-by", best.License)
	}

	primary := locs[1]
	if primary.Priority != types.PriorityPrimary {
		t.Errorf("primary priority = %d, want %d", primary.Priority, types.PriorityPrimary)
	}
	// Fallback keys: pdf_url when url_for_pdf is absent, landing_page_url
	// when url is absent.
	if primary.PDFURL != "https://journal.example/primary.pdf" {
		t.Errorf("primary pdf = %q, want pdf_url fallback", primary.PDFURL)
	}
	if primary.HTMLURL != "https://journal.example/primary" {
		t.Errorf("primary html = %q, want landing_page_url fallback", primary.HTMLURL)
	}
	if primary.IsOA == nil || *primary.IsOA {
		t.Error("primary is_oa should be false, not unset")
	}

	if locs[2].Priority != types.PriorityListed || locs[3].Priority != types.PriorityListed+1 {
		t.Errorf("listed priorities = %d, %d; want %d, %d",
			locs[2].Priority, locs[3].Priority, types.PriorityListed, types.PriorityListed+1)
	}
	for i, loc := range locs {
		if loc.Source != "openalex" {
			t.Errorf("locs[%d].Source = %q, want openalex", i, loc.Source)
		}
	}
}

func TestMapOpenAlexPartialRecord(t *testing.T) {
	// Only the listed locations are present.
	meta := json.RawMessage(`{
	  "id": "https://openalex.org/W9",
	  "locations": [{"url": "https://only.example/w"}]
	}`)
	locs := NewRegistry().Resolve(meta)
	if len(locs) != 1 {
		t.Fatalf("len(locs) = %d, want 1", len(locs))
	}
	if locs[0].Priority != types.PriorityListed {
		t.Errorf("priority = %d, want %d", locs[0].Priority, types.PriorityListed)
	}
}

func TestMapOpenAlexDropsURLLessEntries(t *testing.T) {
	// best_oa_location has no urls at all; primary does.
	meta := json.RawMessage(`{
	  "id": "https://openalex.org/W9",
	  "best_oa_location": {"is_oa": true},
	  "primary_location": {"url": "https://journal.example/w"}
	}`)
	locs := NewRegistry().Resolve(meta)
	if len(locs) != 1 {
		t.Fatalf("len(locs) = %d, want 1 (url-less best dropped)", len(locs))
	}
	if locs[0].Priority != types.PriorityPrimary {
		t.Errorf("priority = %d, want %d", locs[0].Priority, types.PriorityPrimary)
	}
}

func TestMapOpenAlexNoLocationsAnywhere(t *testing.T) {
	locs := NewRegistry().Resolve(json.RawMessage(`{"id": "https://openalex.org/W9", "title": "Nothing OA"}`))
	if len(locs) != 0 {
		t.Errorf("locs = %v, want empty", locs)
	}
}

func TestMapOpenAlexDoesNotMutateMeta(t *testing.T) {
	meta := json.RawMessage(fullOpenAlexMeta)
	before := string(meta)
	_ = NewRegistry().Resolve(meta)
	if string(meta) != before {
		t.Error("Resolve must not mutate the metadata blob")
	}
}
