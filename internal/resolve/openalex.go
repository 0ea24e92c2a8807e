// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"encoding/json"
	"strings"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

const openAlexSource = "openalex"

// openAlexPlugin recognizes OpenAlex Works records (R2.1-R2.3).
func openAlexPlugin() Plugin {
	return Plugin{Name: openAlexSource, Match: matchOpenAlex, Map: mapOpenAlex}
}

// matchOpenAlex claims records whose id points at openalex.org, or which
// carry both the authorships and primary_location keys.
func matchOpenAlex(meta json.RawMessage) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(meta, &fields); err != nil {
		return false
	}

	var id string
	if raw, ok := fields["id"]; ok {
		// Non-string ids are ignored; the shape check below still applies.
		_ = json.Unmarshal(raw, &id)
	}
	if strings.Contains(strings.ToLower(id), "openalex.org/") {
		return true
	}

	_, hasAuthorships := fields["authorships"]
	_, hasPrimary := fields["primary_location"]
	return hasAuthorships && hasPrimary
}

// sourceLocation is the subset of a location object the mappers read. PDF
// and landing urls appear under different keys depending on the source and
// record age, so each has a fallback key.
type sourceLocation struct {
	URLForPDF      string `json:"url_for_pdf"`
	PDFURL         string `json:"pdf_url"`
	URL            string `json:"url"`
	LandingPageURL string `json:"landing_page_url"`
	IsOA           *bool  `json:"is_oa"`
	License        string `json:"license"`
}

func (l sourceLocation) toLocation(source string, priority int) types.Location {
	pdf := l.URLForPDF
	if pdf == "" {
		pdf = l.PDFURL
	}
	html := l.URL
	if html == "" {
		html = l.LandingPageURL
	}
	return types.Location{
		PDFURL:   pdf,
		HTMLURL:  html,
		Priority: priority,
		Source:   source,
		IsOA:     l.IsOA,
		License:  l.License,
	}
}

type openAlexRecord struct {
	BestOALocation  *sourceLocation  `json:"best_oa_location"`
	PrimaryLocation *sourceLocation  `json:"primary_location"`
	Locations       []sourceLocation `json:"locations"`
}

// mapOpenAlex builds candidates from the three places an OpenAlex record
// lists urls: best_oa_location at band BEST, primary_location at band
// PRIMARY, and each locations[] entry at band LISTED plus its index.
// Entries without urls are dropped during normalization.
func mapOpenAlex(meta json.RawMessage) []types.Location {
	var rec openAlexRecord
	if err := json.Unmarshal(meta, &rec); err != nil {
		return nil
	}

	var out []types.Location
	if rec.BestOALocation != nil {
		out = append(out, rec.BestOALocation.toLocation(openAlexSource, types.PriorityBest))
	}
	if rec.PrimaryLocation != nil {
		out = append(out, rec.PrimaryLocation.toLocation(openAlexSource, types.PriorityPrimary))
	}
	for i, loc := range rec.Locations {
		out = append(out, loc.toLocation(openAlexSource, types.PriorityListed+i))
	}
	return out
}
