// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/corpus-engine/internal/corpus"
	"github.com/pdiddy/corpus-engine/internal/discovery"
	"github.com/pdiddy/corpus-engine/internal/pipeline"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

const (
	defaultCorpusDir = "corpus"
	defaultUserAgent = "corpus-engine/0.1"
	defaultTimeout   = 30 * time.Second
)

var discoverCmd = &cobra.Command{
	Use:   "discover [keywords...]",
	Short: "Discover works matching keywords via the OpenAlex API",
	Long: `Discover queries the OpenAlex Works API with the given keywords, pages
through results with cursor pagination, and records every discovered work in
the corpus index with empty acquisition state. Multi-word keywords match as
exact phrases; keywords are combined with OR.

Records already in the corpus keep their fetched artifacts and scores.`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().Int("max-results", 50, "maximum number of records to discover")
	discoverCmd.Flags().Int("per-page", 25, "API page size (1-200)")
	discoverCmd.Flags().Bool("oa-only", false, "restrict to open-access works")
	discoverCmd.Flags().Int("from-year", 0, "only works published on or after this year")
	discoverCmd.Flags().String("mailto", "", "contact email for the OpenAlex polite pool")
	discoverCmd.Flags().Duration("timeout", defaultTimeout, "HTTP request timeout")
	discoverCmd.Flags().String("corpus-dir", defaultCorpusDir, "base directory for the corpus")
	discoverCmd.Flags().Bool("json", false, "output discovered records as JSON")

	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	p := &pipeline.Pipeline{
		Source: discovery.NewOpenAlex(discoveryConfigFromFlags(cmd)),
		Store:  store,
		Log:    newLogger(cmd),
	}

	papers, err := p.Discover(context.Background(), queryFromFlags(cmd, args))
	if err != nil {
		return err
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(papers)
	}
	discovery.FormatTable(papers, os.Stdout)
	return nil
}

// queryFromFlags builds the discovery query shared by discover and harvest.
func queryFromFlags(cmd *cobra.Command, args []string) types.DiscoveryQuery {
	maxResults, _ := cmd.Flags().GetInt("max-results")
	perPage, _ := cmd.Flags().GetInt("per-page")
	oaOnly, _ := cmd.Flags().GetBool("oa-only")
	fromYear, _ := cmd.Flags().GetInt("from-year")

	return types.DiscoveryQuery{
		Keywords:   args,
		MaxResults: maxResults,
		PerPage:    perPage,
		OAOnly:     oaOnly,
		MinYear:    fromYear,
	}
}

func discoveryConfigFromFlags(cmd *cobra.Command) types.DiscoveryConfig {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	mailto, _ := cmd.Flags().GetString("mailto")

	return types.DiscoveryConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: defaultUserAgent,
		},
		Mailto: secretDefault("openalex-email", mailto),
		APIKey: secretDefault("openalex-api-key", ""),
	}
}

func openStore(cmd *cobra.Command) (*corpus.Store, error) {
	dir, _ := cmd.Flags().GetString("corpus-dir")
	if dir == "" {
		dir = defaultCorpusDir
	}
	return corpus.Open(types.StorageConfig{CorpusDir: dir})
}
