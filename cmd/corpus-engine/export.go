// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the corpus index to CSV, JSONL, or YAML",
	Long: `Export writes the corpus records to a timestamped file under the output
directory. JSONL exports include the raw source metadata; CSV exports are
shaped for spreadsheet review. --kept-only and --with-files-only narrow
the selection.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().String("corpus-dir", defaultCorpusDir, "base directory for the corpus")
	exportCmd.Flags().String("format", "csv", "export format: csv, jsonl, or yaml")
	exportCmd.Flags().String("output-dir", "output/export", "directory for export files")
	exportCmd.Flags().Bool("kept-only", false, "export only records marked kept by scoring")
	exportCmd.Flags().Bool("with-files-only", false, "export only records with a fetched artifact")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	format, _ := cmd.Flags().GetString("format")
	outputDir, _ := cmd.Flags().GetString("output-dir")
	keptOnly, _ := cmd.Flags().GetBool("kept-only")
	withFilesOnly, _ := cmd.Flags().GetBool("with-files-only")

	path, err := store.Export(context.Background(), types.ExportConfig{
		OutputDir:     outputDir,
		Format:        types.ExportFormat(format),
		KeptOnly:      keptOnly,
		WithFilesOnly: withFilesOnly,
	})
	if err != nil {
		return err
	}

	fmt.Println("Exported to", path)
	return nil
}
