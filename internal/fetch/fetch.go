// Package fetch downloads the best available artifact for a record.
// Implements: prd003-fetching (R1-R5);
//
//	docs/ARCHITECTURE § Fetch Executor.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/corpus-engine/internal/httputil"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

const rawDir = "raw"

// Outcome tells what, if anything, a Fetch call produced.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomePDF
	OutcomeHTML
)

func (o Outcome) String() string {
	switch o {
	case OutcomePDF:
		return "pdf"
	case OutcomeHTML:
		return "html"
	default:
		return "none"
	}
}

// Executor walks download candidates in priority order and stores at most
// one artifact per record under RawDir.
type Executor struct {
	Client    *http.Client
	RawDir    string
	UserAgent string
	// HeadCheck enables the content-type probe before PDF downloads.
	HeadCheck bool
}

// NewExecutor builds an executor from cfg with a retrying HTTP client.
// Artifacts land under <corpus dir>/raw.
func NewExecutor(cfg types.FetchConfig) *Executor {
	return &Executor{
		Client:    httputil.NewClient(cfg.HTTPConfig),
		RawDir:    filepath.Join(cfg.CorpusDir, rawDir),
		UserAgent: cfg.UserAgent,
		HeadCheck: cfg.HeadCheck,
	}
}

// Fetch runs two passes over the candidates: PDF first, HTML only when no
// candidate produced a valid PDF (R1.1, R1.2). The first success ends its
// pass. On success the matching path field is set on the returned record;
// with no outcome the record comes back unchanged and nothing is written,
// so a later run may retry it (R4.1-R4.4). Candidate failures are soft;
// the returned error is reserved for setup problems and cancellation.
func (e *Executor) Fetch(ctx context.Context, paper types.Paper, locs []types.Location, w io.Writer) (types.Paper, Outcome, error) {
	if len(locs) == 0 {
		return paper, OutcomeNone, nil
	}

	if err := os.MkdirAll(e.RawDir, 0o755); err != nil {
		return paper, OutcomeNone, fmt.Errorf("creating raw directory: %w", err)
	}

	base := filepath.Join(e.RawDir, types.SafeName(paper.ID))
	fmt.Fprintf(w, "downloading: %s (%d candidates)\n", paper.ID, len(locs))

	for _, loc := range locs {
		if err := ctx.Err(); err != nil {
			return paper, OutcomeNone, err
		}
		if path := e.tryPDF(ctx, loc, base); path != "" {
			fmt.Fprintf(w, "  pdf saved: %s\n", path)
			paper.PDFPath = path
			return paper, OutcomePDF, nil
		}
	}

	for _, loc := range locs {
		if err := ctx.Err(); err != nil {
			return paper, OutcomeNone, err
		}
		if path := e.tryHTML(ctx, loc, base); path != "" {
			fmt.Fprintf(w, "  html saved: %s\n", path)
			paper.HTMLPath = path
			return paper, OutcomeHTML, nil
		}
	}

	fmt.Fprintf(w, "  nothing fetched\n")
	return paper, OutcomeNone, nil
}

// tryPDF downloads loc's PDF url to base+".pdf" and keeps it only when the
// file starts with the PDF magic bytes; anything else is deleted (R2.3).
func (e *Executor) tryPDF(ctx context.Context, loc types.Location, base string) string {
	if loc.PDFURL == "" {
		return ""
	}
	if e.HeadCheck && !e.pdfLike(ctx, loc.PDFURL) {
		return ""
	}

	path := base + ".pdf"
	if !e.download(ctx, loc.PDFURL, path, "application/pdf") {
		return ""
	}
	if !isPDF(path) {
		os.Remove(path)
		return ""
	}
	return path
}

// tryHTML downloads loc's HTML url to base+".html". Any non-empty 200 body
// is accepted (R3.1).
func (e *Executor) tryHTML(ctx context.Context, loc types.Location, base string) string {
	if loc.HTMLURL == "" {
		return ""
	}

	path := base + ".html"
	if !e.download(ctx, loc.HTMLURL, path, "*/*") {
		return ""
	}
	return path
}

// pdfLike probes the content type with a HEAD request. Only a definite
// non-PDF type rules a candidate out; a missing type or a failed probe
// leaves the download attempt in play (R2.2).
func (e *Executor) pdfLike(ctx context.Context, rawURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return false
	}
	e.setHeaders(req, "application/pdf")

	resp, err := e.client().Do(req)
	if err != nil {
		return true
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	ctype := strings.ToLower(resp.Header.Get("Content-Type"))
	if ctype == "" {
		return true
	}
	return strings.Contains(ctype, "application/pdf")
}

// download streams rawURL into destPath via a temp file in the target
// directory, renaming only after a complete, non-empty 200 body. Failed or
// cancelled transfers never leave a file at destPath.
func (e *Executor) download(ctx context.Context, rawURL, destPath, accept string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return false
	}
	e.setHeaders(req, accept)

	resp, err := e.client().Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".fetch-*.tmp")
	if err != nil {
		return false
	}
	tmpPath := tmpFile.Name()

	n, copyErr := io.Copy(tmpFile, resp.Body)
	closeErr := tmpFile.Close()
	if copyErr != nil || closeErr != nil || n == 0 {
		os.Remove(tmpPath)
		return false
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return false
	}
	return true
}

func (e *Executor) setHeaders(req *http.Request, accept string) {
	if e.UserAgent != "" {
		req.Header.Set("User-Agent", e.UserAgent)
	}
	req.Header.Set("Accept", accept)
}

func (e *Executor) client() *http.Client {
	if e.Client != nil {
		return e.Client
	}
	return http.DefaultClient
}

// isPDF reports whether the file starts with the %PDF magic bytes.
func isPDF(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	head := make([]byte, 4)
	if _, err := io.ReadFull(f, head); err != nil {
		return false
	}
	return string(head) == "%PDF"
}
