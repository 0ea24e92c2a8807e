// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pdiddy/corpus-engine/internal/httputil"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

// unpaywallAPIBase is the Unpaywall DOI endpoint. Declared as a var so
// tests can substitute an httptest server.
var unpaywallAPIBase = "https://api.unpaywall.org/v2/"

const unpaywallSource = "unpaywall"

// Enrichment bands sit one below the matching source bands so an enriched
// candidate never outranks the record's own entry in the same band.
const (
	priorityEnrichedPreferred = types.PriorityBest + 1
	priorityEnrichedFallback  = types.PriorityPrimary + 1
)

// Unpaywall looks up open-access locations by DOI (R3.1-R3.4).
type Unpaywall struct {
	Client *http.Client
	// Limiter spaces lookups. Nil disables pacing.
	Limiter *rate.Limiter
	// Email identifies the caller. Unpaywall rejects anonymous lookups,
	// so an empty email disables enrichment entirely.
	Email string
	// PreferBest places the best_oa_location candidate in the preferred
	// band instead of the fallback band.
	PreferBest bool
}

// NewUnpaywall builds an enricher from cfg with a retrying HTTP client.
func NewUnpaywall(cfg types.ResolveConfig) *Unpaywall {
	return &Unpaywall{
		Client:     httputil.NewClient(cfg.HTTPConfig),
		Email:      cfg.Email,
		PreferBest: cfg.PreferBest,
	}
}

// Enrich appends Unpaywall candidates for the record's DOI and returns the
// renormalized list. Enrichment is skipped when no email is configured or
// the record carries no DOI, and any lookup failure leaves the candidates
// as they were. Enrichment never fails resolution (R3.3, R3.4).
func (u *Unpaywall) Enrich(ctx context.Context, locs []types.Location, paper types.Paper) []types.Location {
	if u == nil || u.Email == "" || strings.TrimSpace(paper.DOI) == "" {
		return locs
	}

	extra := u.lookup(ctx, paper.DOI)
	if len(extra) == 0 {
		return locs
	}

	combined := make([]types.Location, 0, len(locs)+len(extra))
	combined = append(combined, locs...)
	combined = append(combined, extra...)
	return types.NormalizeLocations(combined)
}

// lookup fetches the Unpaywall record for doi. The DOI is normalized to
// lowercase with the https://doi.org/ prefix stripped. Failures of any
// kind return an empty list.
func (u *Unpaywall) lookup(ctx context.Context, doi string) []types.Location {
	norm := strings.ToLower(strings.TrimSpace(doi))
	norm = strings.TrimPrefix(norm, "https://doi.org/")
	if norm == "" {
		return nil
	}

	if u.Limiter != nil {
		if err := u.Limiter.Wait(ctx); err != nil {
			return nil
		}
	}

	params := url.Values{"email": {u.Email}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, unpaywallAPIBase+norm+"?"+params.Encode(), nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Accept", "application/json")

	client := u.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var rec unpaywallRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil
	}

	best := priorityEnrichedFallback
	if u.PreferBest {
		best = priorityEnrichedPreferred
	}

	var out []types.Location
	if rec.BestOALocation != nil {
		out = append(out, rec.BestOALocation.toLocation(unpaywallSource, best))
	}
	for i, loc := range rec.OALocations {
		out = append(out, loc.toLocation(unpaywallSource, types.PriorityListed+i))
	}
	return out
}

type unpaywallRecord struct {
	BestOALocation *sourceLocation  `json:"best_oa_location"`
	OALocations    []sourceLocation `json:"oa_locations"`
}
