package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func scoreCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "score",
		Short: "Compute backlink scores from the stored reference edges",
		Long: `Compute backlink scores from the stored reference edges.

Prefetches missing referencer-repository metadata from GitHub, scores
every server's edges by tier and recency, and normalizes the results to
corpus-wide percentiles.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(*envFile, true)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			result, err := client.Scoring.Score(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Scored %d servers (prefetched %d repositories)\n",
				result.Scored, result.Prefetched)
			return nil
		},
	}
}

func rankCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rank",
		Short: "Fold the stored signals into one market rank per server",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(*envFile, true)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			ranked, err := client.Scoring.Rank(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Ranked %d servers\n", ranked)
			return nil
		},
	}
}
