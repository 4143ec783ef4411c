package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func ingestCmd(envFile *string) *cobra.Command {
	var (
		search  string
		curated string
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Mirror the upstream MCP registry into the local catalog",
		Long: `Mirror the upstream MCP registry into the local catalog.

Pages the registry's latest-version listing and upserts every server with
its packages, remotes, environment variables and icons. With --curated,
loads a YAML file of hand-picked backlinks instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(*envFile, true)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()
			ctx := cmd.Context()

			if curated != "" {
				loaded, err := client.Ingest.Curated(ctx, curated)
				if err != nil {
					return err
				}
				fmt.Printf("Loaded %d curated backlinks\n", loaded)
				return nil
			}

			result, err := client.Ingest.Run(ctx, search)
			if err != nil {
				return err
			}
			fmt.Printf("Ingested %d servers (%d failed)\n", result.Saved, result.Failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "Narrow the ingest to servers matching a search term")
	cmd.Flags().StringVar(&curated, "curated", "", "Load curated backlinks from a YAML file")

	return cmd
}
