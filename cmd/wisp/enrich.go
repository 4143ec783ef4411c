package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	wisp "github.com/wisplabs/wisp"
	"github.com/wisplabs/wisp/application/service"
)

func enrichCmd(envFile *string) *cobra.Command {
	var (
		workers []string
		clean   bool
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Fetch external popularity signals for the catalog",
		Long: `Fetch external popularity signals for the catalog.

Runs the enrichment workers in order: github, npm, pypi, docker, glama,
dependents, config_refs, service_cost. Each worker selects its own stale
candidates and records a status per server so permanent failures are not
retried; --clean wipes those statuses first so every server is attempted
again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []wisp.Option
			if limit > 0 {
				opts = append(opts, wisp.WithCodeSearchLimit(limit))
			}
			client, err := newClient(*envFile, true, opts...)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			stats, err := client.Enrich.Run(cmd.Context(), service.EnrichOptions{
				Workers: workers,
				Clean:   clean,
			})
			if err != nil {
				return err
			}

			names := make([]string, 0, len(stats))
			for name := range stats {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				st := stats[name]
				fmt.Printf("%-14s enriched=%d failed=%d skipped=%d\n",
					name, st.Enriched, st.Failed, st.Skipped)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&workers, "worker", nil,
		"Run only the named workers (repeatable)")
	cmd.Flags().BoolVar(&clean, "clean", false,
		"Clear enrichment statuses first, retrying permanent failures")
	cmd.Flags().IntVar(&limit, "limit", 0,
		"Cap the servers handled per run by the code-search worker")

	return cmd
}
