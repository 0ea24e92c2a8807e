// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/corpus-engine/internal/discovery"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest [keywords...]",
	Short: "Discover and fetch in one streaming run",
	Long: `Harvest streams an OpenAlex crawl straight into the fetch worker pool:
each discovered work is resolved, enriched, fetched, and recorded while the
crawl continues. The queue between the two stages is bounded, so a slow
fetch pool applies backpressure to discovery.

Records fetched on an earlier run are recorded but not downloaded again.`,
	RunE: runHarvest,
}

func init() {
	harvestCmd.Flags().Int("max-results", 50, "maximum number of records to discover")
	harvestCmd.Flags().Int("per-page", 25, "API page size (1-200)")
	harvestCmd.Flags().Bool("oa-only", false, "restrict to open-access works")
	harvestCmd.Flags().Int("from-year", 0, "only works published on or after this year")
	harvestCmd.Flags().String("mailto", "", "contact email for the OpenAlex polite pool")
	harvestCmd.Flags().Int("queue-size", 0, "discovery-to-fetch queue bound (0 = 2 x workers)")
	addFetchFlags(harvestCmd)

	rootCmd.AddCommand(harvestCmd)
}

func runHarvest(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	src := discovery.NewOpenAlex(discoveryConfigFromFlags(cmd))
	p := acquisitionPipeline(cmd, store, src)
	p.QueueSize, _ = cmd.Flags().GetInt("queue-size")

	summary, err := p.Harvest(context.Background(), queryFromFlags(cmd, args), os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d record(s) failed during harvest", summary.Failed)
	}
	return nil
}
