// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor extracts plain text from PDF artifacts page by page (R2.1).
// Pages that fail to decode are skipped; MaxPages caps how many pages are
// read, zero reads the whole document.
type PDFExtractor struct {
	MaxPages int
}

// Extract implements Extractor. The pdf package panics on some malformed
// files, so the whole read runs under a recover and reports those files as
// ordinary errors.
func (e *PDFExtractor) Extract(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parsing %s: %v", path, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	last := reader.NumPage()
	if e.MaxPages > 0 && e.MaxPages < last {
		last = e.MaxPages
	}

	var parts []string
	for i := 1; i <= last; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, pageErr := page.GetPlainText(nil)
		if pageErr != nil || pageText == "" {
			continue
		}
		parts = append(parts, pageText)
	}

	return strings.TrimSpace(strings.Join(parts, "\n")), nil
}
