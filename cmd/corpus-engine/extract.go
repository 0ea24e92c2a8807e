// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/corpus-engine/internal/extract"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract plain text from fetched artifacts",
	Long: `Extract derives plain text from every fetched artifact that has no text
yet: PDF artifacts through the PDF backend, HTML artifacts through the HTML
backend with boilerplate removal. Text files land under <corpus-dir>/text
and the record's text path is updated.`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().String("corpus-dir", defaultCorpusDir, "base directory for the corpus")
	extractCmd.Flags().Int("limit", 0, "maximum records to attempt (0 = all pending)")
	extractCmd.Flags().Int("max-pdf-pages", 0, "cap on PDF pages read per document (0 = all)")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	corpusDir, _ := cmd.Flags().GetString("corpus-dir")
	limit, _ := cmd.Flags().GetInt("limit")
	maxPages, _ := cmd.Flags().GetInt("max-pdf-pages")

	cfg := types.ExtractionConfig{
		CorpusDir:   corpusDir,
		MaxPDFPages: maxPages,
	}

	pdfX := &extract.PDFExtractor{MaxPages: cfg.MaxPDFPages}
	htmlX := &extract.HTMLExtractor{}

	summary, err := extract.Batch(context.Background(), pdfX, htmlX, store, cfg, limit, os.Stdout)
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d record(s) failed extraction", summary.Failed)
	}
	return nil
}
