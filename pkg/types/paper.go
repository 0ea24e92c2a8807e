// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the corpus-engine pipeline.
// Implements: prd001-discovery (Paper, R3.1-R3.3);
//
//	prd002-resolution (Location, priority bands, R2.1-R2.4);
//	prd003-fetching (acquisition state, R4.2);
//	prd006-scoring (Score, Kept).
//
// See docs/ARCHITECTURE.md § Data Model.
package types

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Paper is one discovered bibliographic record together with its acquisition
// state. Per prd001-discovery R3.2 a record is created with empty path fields
// and mutated only by the fetch stage; the pipeline never deletes records.
type Paper struct {
	// ID is the stable record identifier: the source's short id when known,
	// otherwise a content hash of the normalized title and year (R3.3).
	ID string `json:"id" yaml:"id"`

	// Title is the work title as returned by the source.
	Title string `json:"title" yaml:"title"`

	// Year is the publication year, zero when the source omits it.
	Year int `json:"year" yaml:"year"`

	// Venue is the display name of the hosting venue, when known.
	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`

	// DOI is the document's DOI as reported by the source, possibly in URL form.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// SourceURL is the landing page reported by the discovery source.
	SourceURL string `json:"source_url,omitempty" yaml:"source_url,omitempty"`

	// PDFPath and HTMLPath are local artifact paths populated by the fetch
	// stage. Either being non-empty marks the record fetched (prd003 R4.2).
	PDFPath  string `json:"pdf_path,omitempty" yaml:"pdf_path,omitempty"`
	HTMLPath string `json:"html_path,omitempty" yaml:"html_path,omitempty"`

	// TextPath is the extracted plain-text path, set by the extraction stage.
	TextPath string `json:"text_path,omitempty" yaml:"text_path,omitempty"`

	// Score is the keyword relevance score in [0, 1]; Kept marks records at
	// or above the configured threshold (prd006-scoring).
	Score float64 `json:"score" yaml:"score"`
	Kept  bool    `json:"kept" yaml:"kept"`

	// Meta retains the raw source metadata for resolution, enrichment, and
	// scoring. All layers treat it as immutable.
	Meta json.RawMessage `json:"meta,omitempty" yaml:"-"`
}

// Fetched reports whether an artifact has already been obtained. Callers use
// it to gate re-fetching (prd003-fetching R4.5).
func (p Paper) Fetched() bool {
	return p.PDFPath != "" || p.HTMLPath != ""
}

// MakeID derives a record identifier from a normalized title and year for
// records whose source supplies no id of its own (prd001-discovery R3.3).
func MakeID(title string, year int) string {
	base := fmt.Sprintf("%s_%d", strings.TrimSpace(title), year)
	sum := sha1.Sum([]byte(base))
	return hex.EncodeToString(sum[:])
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SafeName converts a record id into a filesystem-safe artifact name used
// by the fetch and extraction stages (prd003-fetching R2.7). The OpenAlex
// url prefix is dropped, runs of other characters collapse to "_", and the
// result is capped at 128 bytes. Ids that reduce to nothing fall back to a
// timestamped name.
func SafeName(id string) string {
	s := strings.TrimSpace(id)
	s = strings.ReplaceAll(s, "https://openalex.org/", "")
	s = unsafeChars.ReplaceAllString(s, "_")
	if len(s) > 128 {
		s = s[:128]
	}
	if s == "" {
		return fmt.Sprintf("item_%d", time.Now().Unix())
	}
	return s
}
