// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/corpus-engine/internal/score"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

var scoreCmd = &cobra.Command{
	Use:   "score [keywords...]",
	Short: "Score corpus records by keyword relevance",
	Long: `Score computes a keyword relevance score in [0, 1] for every record from
its title, abstract, and extracted text, and marks records at or above the
threshold as kept. Keywords come from the arguments, the --keywords flag,
or the scoring.keywords list in the config file, in that order.`,
	RunE: runScore,
}

func init() {
	scoreCmd.Flags().String("corpus-dir", defaultCorpusDir, "base directory for the corpus")
	scoreCmd.Flags().String("keywords", "", "scoring keywords (comma-separated)")
	scoreCmd.Flags().Float64("threshold", 0, "keep threshold in (0, 1] (0 = default 0.5)")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	threshold, _ := cmd.Flags().GetFloat64("threshold")
	cfg := types.ScoringConfig{
		Keywords:      scoringKeywords(cmd, args),
		KeepThreshold: threshold,
	}
	if len(cfg.Keywords) == 0 {
		return fmt.Errorf("no scoring keywords: pass keywords as arguments, --keywords, or set scoring.keywords in the config")
	}

	_, err = score.All(context.Background(), store, cfg, os.Stdout)
	return err
}

// scoringKeywords resolves the keyword list: arguments win, then the
// --keywords flag, then the config file.
func scoringKeywords(cmd *cobra.Command, args []string) []string {
	if len(args) > 0 {
		return args
	}
	if flagVal, _ := cmd.Flags().GetString("keywords"); flagVal != "" {
		return strings.Split(flagVal, ",")
	}
	return viper.GetStringSlice("scoring.keywords")
}
