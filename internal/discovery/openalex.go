// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/corpus-engine/internal/httputil"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

// openAlexAPIBase is the OpenAlex Works endpoint. Declared as a var so
// tests can substitute an httptest server.
var openAlexAPIBase = "https://api.openalex.org/works"

const (
	defaultMaxResults = 50
	defaultPerPage    = 25
	maxPerPage        = 200
	defaultPageDelay  = 250 * time.Millisecond
)

// OpenAlex crawls the OpenAlex Works API with cursor pagination (R2.1-R2.4).
type OpenAlex struct {
	Client *http.Client
	// Limiter spaces page requests. Nil disables pacing.
	Limiter   *rate.Limiter
	UserAgent string
	// Mailto is sent as a query parameter for polite pool access.
	Mailto string
	// APIKey, when set, is sent as the api_key parameter.
	APIKey string
}

// NewOpenAlex builds a crawler with a retrying HTTP client and a page
// limiter derived from cfg.PageDelay.
func NewOpenAlex(cfg types.DiscoveryConfig) *OpenAlex {
	delay := cfg.PageDelay
	if delay <= 0 {
		delay = defaultPageDelay
	}
	return &OpenAlex{
		Client:    httputil.NewClient(cfg.HTTPConfig),
		Limiter:   rate.NewLimiter(rate.Every(delay), 1),
		UserAgent: cfg.UserAgent,
		Mailto:    cfg.Mailto,
		APIKey:    cfg.APIKey,
	}
}

// Name returns the source identifier.
func (o *OpenAlex) Name() string { return "openalex" }

// Discover pages through Works matching query and streams each record to
// yield. The crawl stops when the result cap is reached, the API returns
// an empty page or no next cursor, or yield returns false. A transport
// error or non-200 status ends the crawl with an error; records already
// yielded stand (R2.4, R2.5).
func (o *OpenAlex) Discover(ctx context.Context, query types.DiscoveryQuery, yield func(types.Paper) bool) error {
	maxResults := query.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	perPage := query.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	params := url.Values{}
	if search := buildSearchExpr(query.Keywords); search != "" {
		params.Set("search", search)
	}
	if filter := buildFilterExpr(query); filter != "" {
		params.Set("filter", filter)
	}
	params.Set("per-page", strconv.Itoa(perPage))
	if o.Mailto != "" {
		params.Set("mailto", o.Mailto)
	}
	if o.APIKey != "" {
		params.Set("api_key", o.APIKey)
	}

	fetched := 0
	cursor := "*"
	for fetched < maxResults && cursor != "" {
		params.Set("cursor", cursor)
		page, err := o.fetchPage(ctx, params)
		if err != nil {
			return err
		}
		if len(page.Results) == 0 {
			return nil
		}

		for _, raw := range page.Results {
			paper, err := buildPaper(raw)
			if err != nil {
				// Records that do not decode as Works are skipped.
				continue
			}
			if !yield(paper) {
				return nil
			}
			fetched++
			if fetched >= maxResults {
				return nil
			}
		}

		cursor = page.Meta.NextCursor
	}
	return nil
}

func (o *OpenAlex) fetchPage(ctx context.Context, params url.Values) (*worksPage, error) {
	if o.Limiter != nil {
		if err := o.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openAlexAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if o.UserAgent != "" {
		req.Header.Set("User-Agent", o.UserAgent)
	}

	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("OpenAlex page request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAlex returned HTTP %d", resp.StatusCode)
	}

	var page worksPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}
	return &page, nil
}

// buildPaper decodes one raw Works record into a Paper, retaining the raw
// bytes as the metadata blob (R3.1-R3.3).
func buildPaper(raw json.RawMessage) (types.Paper, error) {
	var w openAlexWork
	if err := json.Unmarshal(raw, &w); err != nil {
		return types.Paper{}, err
	}

	id := w.ID
	if id == "" {
		id = types.MakeID(w.Title, w.PublicationYear)
	}

	return types.Paper{
		ID:        id,
		Title:     w.Title,
		Year:      w.PublicationYear,
		Venue:     w.HostVenue.DisplayName,
		DOI:       w.DOI,
		SourceURL: w.PrimaryLocation.LandingPageURL,
		Meta:      raw,
	}, nil
}

// buildSearchExpr joins keywords with OR. Multi-word phrases are quoted so
// they match as units; single tokens stay bare. Blank keywords are dropped
// and an empty result omits the search parameter entirely (R2.2).
func buildSearchExpr(keywords []string) string {
	var terms []string
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if len(strings.Fields(kw)) > 1 {
			kw = `"` + kw + `"`
		}
		terms = append(terms, kw)
	}
	return strings.Join(terms, " OR ")
}

// buildFilterExpr assembles the comma-joined OpenAlex filter clause (R2.3).
func buildFilterExpr(query types.DiscoveryQuery) string {
	var parts []string
	if query.OAOnly {
		parts = append(parts, "open_access.is_oa:true")
	}
	if query.MinYear > 0 {
		parts = append(parts, fmt.Sprintf("from_publication_date:%d-01-01", query.MinYear))
	}
	return strings.Join(parts, ",")
}

// OpenAlex API JSON structures. Results stay raw so each record's full
// metadata survives on the Paper.
type worksPage struct {
	Meta    worksMeta         `json:"meta"`
	Results []json.RawMessage `json:"results"`
}

type worksMeta struct {
	Count      int    `json:"count"`
	NextCursor string `json:"next_cursor"`
}

type openAlexWork struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	DOI             string           `json:"doi"`
	PublicationYear int              `json:"publication_year"`
	HostVenue       openAlexVenue    `json:"host_venue"`
	PrimaryLocation openAlexLocation `json:"primary_location"`
}

type openAlexVenue struct {
	DisplayName string `json:"display_name"`
}

type openAlexLocation struct {
	LandingPageURL string `json:"landing_page_url"`
}
