// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

// exportColumns is the CSV header, ordered for spreadsheet review (R2.2).
var exportColumns = []string{
	"id", "title", "year", "doi", "venue", "source_url",
	"pdf_path", "html_path", "text_path", "score", "kept",
}

// Export writes the corpus to a timestamped file under cfg.OutputDir and
// returns the written path (R1.1). Records are exported most recently
// discovered first; KeptOnly and WithFilesOnly narrow the selection (R1.3).
func (s *Store) Export(ctx context.Context, cfg types.ExportConfig) (string, error) {
	papers, err := s.exportRows(ctx, cfg)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}

	stamp := time.Now().UTC().Format("20060102_150405")
	path := filepath.Join(cfg.OutputDir, fmt.Sprintf("corpus_export_%s.%s", stamp, cfg.Format))

	switch cfg.Format {
	case types.ExportCSV:
		err = writeCSV(path, papers)
	case types.ExportJSONL:
		err = writeJSONL(path, papers)
	case types.ExportYAML:
		err = writeYAML(path, papers)
	default:
		return "", fmt.Errorf("unknown export format %q", cfg.Format)
	}
	if err != nil {
		return "", err
	}
	return path, nil
}

func (s *Store) exportRows(ctx context.Context, cfg types.ExportConfig) ([]types.Paper, error) {
	var papers []types.Paper
	err := s.Iterate(ctx, func(p types.Paper) bool {
		if cfg.KeptOnly && !p.Kept {
			return true
		}
		if cfg.WithFilesOnly && !p.Fetched() {
			return true
		}
		papers = append(papers, p)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	return papers, nil
}

func writeCSV(path string, papers []types.Paper) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	// Leading BOM so spreadsheet tools detect the UTF-8 encoding.
	if _, err := f.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		f.Close()
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(exportColumns); err != nil {
		f.Close()
		return err
	}
	for _, p := range papers {
		kept := "0"
		if p.Kept {
			kept = "1"
		}
		record := []string{
			p.ID, p.Title, strconv.Itoa(p.Year), p.DOI, p.Venue, p.SourceURL,
			p.PDFPath, p.HTMLPath, p.TextPath,
			strconv.FormatFloat(p.Score, 'f', -1, 64), kept,
		}
		if err := w.Write(record); err != nil {
			f.Close()
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// writeJSONL writes one JSON object per line, including the raw source
// metadata, so downstream tooling can re-process records without the
// database (R2.3).
func writeJSONL(path string, papers []types.Paper) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	enc := json.NewEncoder(f)
	for _, p := range papers {
		if err := enc.Encode(p); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return f.Close()
}

func writeYAML(path string, papers []types.Paper) error {
	data, err := yaml.Marshal(papers)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
