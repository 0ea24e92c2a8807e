// Package extract derives plain text from fetched artifacts with pluggable
// per-format backends.
// Implements: prd005-extraction (R1, R2, R3);
//
//	docs/ARCHITECTURE § Text Extraction.
package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

// textDir is the subdirectory under the corpus base for extracted text.
const textDir = "text"

// Extractor turns one artifact file into plain text. Backends exist for PDF
// and HTML artifacts.
type Extractor interface {
	// Extract reads the artifact at path and returns its plain text.
	Extract(path string) (string, error)
}

// Status is the per-record outcome of an extraction attempt.
type Status string

const (
	StatusExtracted Status = "extracted"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Summary holds counts from a batch extraction run (R3.2).
type Summary struct {
	Extracted int
	Skipped   int
	Failed    int
}

// Total returns the number of records processed.
func (s Summary) Total() int {
	return s.Extracted + s.Skipped + s.Failed
}

// HasFailures reports whether any records failed extraction.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

// Store is the record source and sink used by Batch.
type Store interface {
	Iterate(ctx context.Context, fn func(types.Paper) bool) error
	Upsert(ctx context.Context, paper types.Paper) error
}

// ExtractPaper extracts text for a single record and writes it to
// corpusDir/text/<safe id>.txt (R1.1). The PDF artifact is preferred; when it
// yields no text or fails to parse, the HTML artifact is tried (R1.3). On
// success the returned record carries the text path.
func ExtractPaper(pdfX, htmlX Extractor, paper types.Paper, corpusDir string, w io.Writer) (types.Paper, Status) {
	name := types.SafeName(paper.ID)

	if strings.TrimSpace(paper.TextPath) != "" {
		fmt.Fprintf(w, "skipped: %s (text exists)\n", name)
		return paper, StatusSkipped
	}
	if !paper.Fetched() {
		fmt.Fprintf(w, "skipped: %s (no artifact)\n", name)
		return paper, StatusSkipped
	}

	outDir := filepath.Join(corpusDir, textDir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", name, err)
		return paper, StatusFailed
	}

	var text string
	var extractErr error
	if paper.PDFPath != "" {
		text, extractErr = pdfX.Extract(paper.PDFPath)
	}
	if text == "" && paper.HTMLPath != "" {
		var htmlErr error
		text, htmlErr = htmlX.Extract(paper.HTMLPath)
		if htmlErr != nil && extractErr == nil {
			extractErr = htmlErr
		}
	}

	if text == "" {
		if extractErr != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", name, extractErr)
		} else {
			fmt.Fprintf(w, "failed:  %s (no text extracted)\n", name)
		}
		return paper, StatusFailed
	}

	outPath := filepath.Join(outDir, name+".txt")
	if err := os.WriteFile(outPath, []byte(text), 0o644); err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", name, err)
		return paper, StatusFailed
	}

	paper.TextPath = outPath
	fmt.Fprintf(w, "extracted: %s (%d chars)\n", name, len(text))
	return paper, StatusExtracted
}

// Batch extracts text for every record that has an artifact but no text yet,
// persisting updated records back to the store (R3.1). limit caps how many
// records are attempted; zero means no cap.
//
// Candidates are collected before any extraction runs: the store serializes
// on a single connection, so upserts cannot proceed while an iterator still
// holds it.
func Batch(ctx context.Context, pdfX, htmlX Extractor, store Store, cfg types.ExtractionConfig, limit int, w io.Writer) (Summary, error) {
	var candidates []types.Paper
	err := store.Iterate(ctx, func(p types.Paper) bool {
		if !p.Fetched() || strings.TrimSpace(p.TextPath) != "" {
			return true
		}
		candidates = append(candidates, p)
		return limit == 0 || len(candidates) < limit
	})
	if err != nil {
		return Summary{}, fmt.Errorf("listing extraction candidates: %w", err)
	}

	var summary Summary
	for _, p := range candidates {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		updated, status := ExtractPaper(pdfX, htmlX, p, cfg.CorpusDir, w)
		switch status {
		case StatusExtracted:
			summary.Extracted++
			if err := store.Upsert(ctx, updated); err != nil {
				return summary, fmt.Errorf("saving %s: %w", updated.ID, err)
			}
		case StatusSkipped:
			summary.Skipped++
		case StatusFailed:
			summary.Failed++
		}
	}

	fmt.Fprintf(w, "\nBatch summary: %d extracted, %d skipped, %d failed (total: %d)\n",
		summary.Extracted, summary.Skipped, summary.Failed, summary.Total())
	return summary, nil
}
