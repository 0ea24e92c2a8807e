// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show acquisition progress across the corpus",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().String("corpus-dir", defaultCorpusDir, "base directory for the corpus")

	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	st, err := store.Stats(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Records:    %d\n", st.Total)
	fmt.Printf("With PDF:   %d\n", st.WithPDF)
	fmt.Printf("With HTML:  %d\n", st.WithHTML)
	fmt.Printf("With text:  %d\n", st.WithText)
	fmt.Printf("Kept:       %d\n", st.Kept)
	return nil
}
