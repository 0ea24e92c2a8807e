// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/pdiddy/corpus-engine/internal/discovery"
	"github.com/pdiddy/corpus-engine/internal/fetch"
	"github.com/pdiddy/corpus-engine/internal/pipeline"
	"github.com/pdiddy/corpus-engine/internal/resolve"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

// enrichmentDelay spaces Unpaywall lookups when no discovery crawl shares
// its limiter with the enricher.
const enrichmentDelay = 350 * time.Millisecond

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download full-text artifacts for discovered records",
	Long: `Fetch resolves download candidates for every record without an artifact,
optionally enriches them through Unpaywall, and downloads the best available
copy: PDF preferred, HTML fallback. Records that already carry an artifact
are left alone, so fetch is safe to re-run.`,
	RunE: runFetch,
}

func init() {
	addFetchFlags(fetchCmd)
	fetchCmd.Flags().Int("limit", 0, "maximum records to attempt (0 = all pending)")

	rootCmd.AddCommand(fetchCmd)
}

// addFetchFlags registers the flags shared by fetch and harvest.
func addFetchFlags(cmd *cobra.Command) {
	cmd.Flags().String("corpus-dir", defaultCorpusDir, "base directory for the corpus")
	cmd.Flags().Duration("timeout", 60*time.Second, "HTTP request timeout per download")
	cmd.Flags().Int("workers", 4, "concurrent fetch workers")
	cmd.Flags().Bool("insecure", false, "skip TLS certificate verification")
	cmd.Flags().Bool("no-head-probe", false, "disable the content-type probe before PDF downloads")
	cmd.Flags().String("email", "", "contact email for Unpaywall enrichment (empty disables enrichment)")
	cmd.Flags().Bool("prefer-best", false, "let Unpaywall's best location outrank primary candidates")
}

func runFetch(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")

	p := acquisitionPipeline(cmd, store, nil)
	summary, err := p.FetchPending(context.Background(), limit, os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d record(s) failed fetching", summary.Failed)
	}
	return nil
}

// acquisitionPipeline wires the resolve, enrich, and fetch stages around the
// store. When src is non-nil its page limiter also paces enrichment lookups,
// so both rate-sensitive APIs are spaced across all workers.
func acquisitionPipeline(cmd *cobra.Command, store pipeline.Store, src *discovery.OpenAlex) *pipeline.Pipeline {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	workers, _ := cmd.Flags().GetInt("workers")
	insecure, _ := cmd.Flags().GetBool("insecure")
	noProbe, _ := cmd.Flags().GetBool("no-head-probe")
	email, _ := cmd.Flags().GetString("email")
	preferBest, _ := cmd.Flags().GetBool("prefer-best")
	corpusDir, _ := cmd.Flags().GetString("corpus-dir")

	httpCfg := types.HTTPConfig{
		Timeout:            timeout,
		UserAgent:          defaultUserAgent,
		InsecureSkipVerify: insecure,
	}

	var enricher pipeline.Enricher
	if email = secretDefault("unpaywall-email", email); email != "" {
		uw := resolve.NewUnpaywall(types.ResolveConfig{
			HTTPConfig: httpCfg,
			Email:      email,
			PreferBest: preferBest,
		})
		if src != nil {
			uw.Limiter = src.Limiter
		} else {
			uw.Limiter = rate.NewLimiter(rate.Every(enrichmentDelay), 1)
		}
		enricher = uw
	}

	p := &pipeline.Pipeline{
		Resolver: resolve.NewRegistry(),
		Enricher: enricher,
		Fetcher: fetch.NewExecutor(types.FetchConfig{
			HTTPConfig: httpCfg,
			CorpusDir:  corpusDir,
			HeadCheck:  !noProbe,
		}),
		Store:   store,
		Workers: workers,
		Log:     newLogger(cmd),
	}
	if src != nil {
		p.Source = src
	}
	return p
}
