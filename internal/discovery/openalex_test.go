// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

// --- buildSearchExpr ---

func TestBuildSearchExpr(t *testing.T) {
	tests := []struct {
		name     string
		keywords []string
		want     string
	}{
		{"single token stays bare", []string{"erosion"}, "erosion"},
		{"multi-word phrase quoted", []string{"soil carbon"}, `"soil carbon"`},
		{"mixed", []string{"soil carbon", "erosion"}, `"soil carbon" OR erosion`},
		{"blanks dropped", []string{"", "  ", "erosion"}, "erosion"},
		{"surrounding space trimmed", []string{"  erosion  "}, "erosion"},
		{"inner whitespace counts as phrase", []string{"soil\tcarbon"}, "\"soil\tcarbon\""},
		{"empty set", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildSearchExpr(tt.keywords)
			if got != tt.want {
				t.Errorf("buildSearchExpr() = %q, want %q", got, tt.want)
			}
		})
	}
}

// --- buildFilterExpr ---

func TestBuildFilterExpr(t *testing.T) {
	tests := []struct {
		name  string
		query types.DiscoveryQuery
		want  string
	}{
		{"none", types.DiscoveryQuery{}, ""},
		{"oa only", types.DiscoveryQuery{OAOnly: true}, "open_access.is_oa:true"},
		{"min year", types.DiscoveryQuery{MinYear: 2000}, "from_publication_date:2000-01-01"},
		{"both comma-joined", types.DiscoveryQuery{OAOnly: true, MinYear: 2000},
			"open_access.is_oa:true,from_publication_date:2000-01-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildFilterExpr(tt.query)
			if got != tt.want {
				t.Errorf("buildFilterExpr() = %q, want %q", got, tt.want)
			}
		})
	}
}

// --- Mock OpenAlex server ---

const sampleWorksJSON = `{
  "meta": {"count": 2, "next_cursor": ""},
  "results": [
    {
      "id": "https://openalex.org/W2741809807",
      "title": "Attention Is All You Need",
      "doi": "https://doi.org/10.5555/3295222.3295349",
      "publication_year": 2017,
      "host_venue": {"display_name": "NeurIPS"},
      "primary_location": {"landing_page_url": "https://papers.nips.cc/paper/7181"},
      "authorships": [{"author": {"display_name": "Ashish Vaswani"}}],
      "open_access": {"is_oa": true}
    },
    {
      "title": "Untitled Tech Report",
      "publication_year": 2018,
      "host_venue": {},
      "primary_location": {}
    }
  ]
}`

func worksTestServer(statusCode int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		fmt.Fprint(w, body)
	}))
}

func swapAPIBase(t *testing.T, url string) {
	t.Helper()
	old := openAlexAPIBase
	openAlexAPIBase = url
	t.Cleanup(func() { openAlexAPIBase = old })
}

func workJSON(id, title string, year int) string {
	return fmt.Sprintf(`{"id":%q,"title":%q,"publication_year":%d,"host_venue":{"display_name":"Venue"},"primary_location":{"landing_page_url":"https://example.org/landing"}}`,
		id, title, year)
}

// --- Record mapping ---

func TestOpenAlexDiscoverMapsRecords(t *testing.T) {
	ts := worksTestServer(http.StatusOK, sampleWorksJSON)
	defer ts.Close()
	swapAPIBase(t, ts.URL)

	src := &OpenAlex{Client: ts.Client()}
	papers, err := Collect(context.Background(), src, types.DiscoveryQuery{Keywords: []string{"attention"}})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(papers) != 2 {
		t.Fatalf("len(papers) = %d, want 2", len(papers))
	}

	p0 := papers[0]
	if p0.ID != "https://openalex.org/W2741809807" {
		t.Errorf("ID = %q, want OpenAlex work id", p0.ID)
	}
	if p0.Title != "Attention Is All You Need" {
		t.Errorf("Title = %q", p0.Title)
	}
	if p0.Year != 2017 {
		t.Errorf("Year = %d, want 2017", p0.Year)
	}
	if p0.Venue != "NeurIPS" {
		t.Errorf("Venue = %q, want NeurIPS", p0.Venue)
	}
	// DOI is stored as returned by the API, prefix included.
	if p0.DOI != "https://doi.org/10.5555/3295222.3295349" {
		t.Errorf("DOI = %q", p0.DOI)
	}
	if p0.SourceURL != "https://papers.nips.cc/paper/7181" {
		t.Errorf("SourceURL = %q", p0.SourceURL)
	}
	// The raw record rides along untouched, fields the struct ignores included.
	if !strings.Contains(string(p0.Meta), "authorships") || !strings.Contains(string(p0.Meta), "open_access") {
		t.Errorf("Meta should retain the full raw record, got %q", string(p0.Meta))
	}
	if p0.PDFPath != "" || p0.HTMLPath != "" {
		t.Error("discovered records must start with empty acquisition state")
	}

	// Second record has no id → synthesized from title and year.
	p1 := papers[1]
	if len(p1.ID) != 40 {
		t.Errorf("fallback ID = %q, want 40-char digest", p1.ID)
	}
	if p1.ID != types.MakeID("Untitled Tech Report", 2018) {
		t.Errorf("fallback ID = %q, want MakeID(title, year)", p1.ID)
	}
}

// --- Request parameters ---

func TestOpenAlexDiscoverQueryParameters(t *testing.T) {
	var gotQuery, gotAccept, gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAccept = r.Header.Get("Accept")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"meta":{"count":0,"next_cursor":""},"results":[]}`)
	}))
	defer ts.Close()
	swapAPIBase(t, ts.URL)

	src := &OpenAlex{
		Client:    ts.Client(),
		UserAgent: "corpus-engine/1.0",
		Mailto:    "research@example.com",
		APIKey:    "k123",
	}
	q := types.DiscoveryQuery{
		Keywords: []string{"soil carbon", "erosion"},
		OAOnly:   true,
		MinYear:  2000,
		PerPage:  500,
	}
	_, err := Collect(context.Background(), src, q)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	parsed, err := url.ParseQuery(gotQuery)
	if err != nil {
		t.Fatalf("parsing request query: %v", err)
	}
	if got := parsed.Get("search"); got != `"soil carbon" OR erosion` {
		t.Errorf("search = %q, want quoted phrase OR bare token", got)
	}
	if got := parsed.Get("filter"); got != "open_access.is_oa:true,from_publication_date:2000-01-01" {
		t.Errorf("filter = %q", got)
	}
	// Page size is clamped to the API maximum.
	if got := parsed.Get("per-page"); got != "200" {
		t.Errorf("per-page = %q, want 200", got)
	}
	if got := parsed.Get("cursor"); got != "*" {
		t.Errorf("first cursor = %q, want *", got)
	}
	if got := parsed.Get("mailto"); got != "research@example.com" {
		t.Errorf("mailto = %q", got)
	}
	if got := parsed.Get("api_key"); got != "k123" {
		t.Errorf("api_key = %q", got)
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q", gotAccept)
	}
	if gotUA != "corpus-engine/1.0" {
		t.Errorf("User-Agent = %q", gotUA)
	}
}

func TestOpenAlexDiscoverOmitsEmptyParams(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"meta":{"count":0,"next_cursor":""},"results":[]}`)
	}))
	defer ts.Close()
	swapAPIBase(t, ts.URL)

	src := &OpenAlex{Client: ts.Client()}
	_, err := Collect(context.Background(), src, types.DiscoveryQuery{})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	parsed, err := url.ParseQuery(gotQuery)
	if err != nil {
		t.Fatalf("parsing request query: %v", err)
	}
	for _, key := range []string{"search", "filter", "mailto", "api_key"} {
		if parsed.Has(key) {
			t.Errorf("param %q should be omitted when unset, got %q", key, parsed.Get(key))
		}
	}
	if got := parsed.Get("per-page"); got != "25" {
		t.Errorf("per-page = %q, want default 25", got)
	}
}

// --- Pagination ---

func TestOpenAlexDiscoverFollowsCursor(t *testing.T) {
	var cursors []string
	pages := map[string]string{
		"*":  `{"meta":{"count":4,"next_cursor":"c2"},"results":[` + workJSON("https://openalex.org/W1", "One", 2020) + `,` + workJSON("https://openalex.org/W2", "Two", 2020) + `]}`,
		"c2": `{"meta":{"count":4,"next_cursor":""},"results":[` + workJSON("https://openalex.org/W3", "Three", 2021) + `,` + workJSON("https://openalex.org/W4", "Four", 2021) + `]}`,
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cursor := r.URL.Query().Get("cursor")
		cursors = append(cursors, cursor)
		body, ok := pages[cursor]
		if !ok {
			http.Error(w, "unexpected cursor", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	defer ts.Close()
	swapAPIBase(t, ts.URL)

	src := &OpenAlex{Client: ts.Client()}
	papers, err := Collect(context.Background(), src, types.DiscoveryQuery{MaxResults: 10, PerPage: 2})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if len(papers) != 4 {
		t.Fatalf("len(papers) = %d, want 4", len(papers))
	}
	if papers[0].Title != "One" || papers[3].Title != "Four" {
		t.Errorf("records out of order: first %q last %q", papers[0].Title, papers[3].Title)
	}
	if len(cursors) != 2 || cursors[0] != "*" || cursors[1] != "c2" {
		t.Errorf("cursors = %v, want [* c2]", cursors)
	}
}

func TestOpenAlexDiscoverStopsAtMaxResults(t *testing.T) {
	var requests int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		// Every page advertises another cursor; only the cap stops the crawl.
		fmt.Fprintf(w, `{"meta":{"count":100,"next_cursor":"c%d"},"results":[%s,%s]}`,
			requests, workJSON(fmt.Sprintf("https://openalex.org/W%da", requests), "A", 2020),
			workJSON(fmt.Sprintf("https://openalex.org/W%db", requests), "B", 2020))
	}))
	defer ts.Close()
	swapAPIBase(t, ts.URL)

	src := &OpenAlex{Client: ts.Client()}
	papers, err := Collect(context.Background(), src, types.DiscoveryQuery{MaxResults: 3, PerPage: 2})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if len(papers) != 3 {
		t.Errorf("len(papers) = %d, want exactly the cap", len(papers))
	}
	if requests != 2 {
		t.Errorf("requests = %d, want 2 (no page fetched past the cap)", requests)
	}
}

func TestOpenAlexDiscoverStopsWhenCursorAbsent(t *testing.T) {
	// next_cursor missing from meta entirely.
	body := `{"meta":{"count":1},"results":[` + workJSON("https://openalex.org/W1", "Only", 2020) + `]}`
	ts := worksTestServer(http.StatusOK, body)
	defer ts.Close()
	swapAPIBase(t, ts.URL)

	src := &OpenAlex{Client: ts.Client()}
	papers, err := Collect(context.Background(), src, types.DiscoveryQuery{MaxResults: 10})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(papers) != 1 {
		t.Errorf("len(papers) = %d, want 1", len(papers))
	}
}

func TestOpenAlexDiscoverStopsOnEmptyPage(t *testing.T) {
	ts := worksTestServer(http.StatusOK, `{"meta":{"count":0,"next_cursor":"more"},"results":[]}`)
	defer ts.Close()
	swapAPIBase(t, ts.URL)

	src := &OpenAlex{Client: ts.Client()}
	papers, err := Collect(context.Background(), src, types.DiscoveryQuery{MaxResults: 10})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(papers) != 0 {
		t.Errorf("len(papers) = %d, want 0", len(papers))
	}
}

// --- Early stop via yield ---

func TestOpenAlexDiscoverYieldStopsCrawl(t *testing.T) {
	var requests int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"meta":{"count":10,"next_cursor":"c%d"},"results":[%s,%s]}`,
			requests, workJSON("https://openalex.org/W1", "One", 2020),
			workJSON("https://openalex.org/W2", "Two", 2020))
	}))
	defer ts.Close()
	swapAPIBase(t, ts.URL)

	src := &OpenAlex{Client: ts.Client()}
	var seen int
	err := src.Discover(context.Background(), types.DiscoveryQuery{MaxResults: 10}, func(types.Paper) bool {
		seen++
		return false
	})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if seen != 1 {
		t.Errorf("seen = %d, want 1", seen)
	}
	if requests != 1 {
		t.Errorf("requests = %d, want 1", requests)
	}
}

// --- Error cases ---

func TestOpenAlexDiscoverHTTPErrorKeepsYielded(t *testing.T) {
	var requests int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests > 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"meta":{"count":4,"next_cursor":"c2"},"results":[`+workJSON("https://openalex.org/W1", "One", 2020)+`]}`)
	}))
	defer ts.Close()
	swapAPIBase(t, ts.URL)

	src := &OpenAlex{Client: ts.Client()}
	papers, err := Collect(context.Background(), src, types.DiscoveryQuery{MaxResults: 10})
	if err == nil {
		t.Fatal("expected error from second page")
	}
	if !strings.Contains(err.Error(), "HTTP 500") {
		t.Errorf("error = %q, should mention HTTP 500", err)
	}
	// First-page records survive the failed crawl.
	if len(papers) != 1 || papers[0].Title != "One" {
		t.Errorf("papers = %v, want the one record from page 1", papers)
	}
}

func TestOpenAlexDiscoverMalformedJSON(t *testing.T) {
	ts := worksTestServer(http.StatusOK, `{not valid json`)
	defer ts.Close()
	swapAPIBase(t, ts.URL)

	src := &OpenAlex{Client: ts.Client()}
	_, err := Collect(context.Background(), src, types.DiscoveryQuery{})
	if err == nil {
		t.Fatal("expected JSON parse error")
	}
	if !strings.Contains(err.Error(), "parsing") {
		t.Errorf("error = %q, should mention parsing", err)
	}
}

// --- Source name ---

func TestOpenAlexName(t *testing.T) {
	src := &OpenAlex{}
	if src.Name() != "openalex" {
		t.Errorf("Name() = %q, want %q", src.Name(), "openalex")
	}
}

// --- FormatTable ---

func TestFormatTable(t *testing.T) {
	papers := []types.Paper{
		{Title: "Soil Carbon Dynamics", Year: 2019, Venue: "Geoderma", DOI: "https://doi.org/10.1/x"},
		{Title: "Erosion Modelling", Year: 2021, Venue: "Catena"},
	}
	var sb strings.Builder
	FormatTable(papers, &sb)
	out := sb.String()
	if !strings.Contains(out, "Soil Carbon Dynamics") || !strings.Contains(out, "2 records") {
		t.Errorf("table output missing content:\n%s", out)
	}

	sb.Reset()
	FormatTable(nil, &sb)
	if !strings.Contains(sb.String(), "No records found.") {
		t.Errorf("empty table output = %q", sb.String())
	}
}
