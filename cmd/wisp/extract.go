package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/wisplabs/wisp/application/service"
)

func extractCmd(envFile *string) *cobra.Command {
	var (
		opts    service.ExtractOptions
		timeout float64
		list    bool
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract tool inventories from live servers",
		Long: `Extract tool inventories from live servers.

Connects to every connectable server (remote endpoint, stdio package or
local source), lists its tools, resources and prompts and persists them.
Servers with a prior permanent failure are skipped unless --clean wipes
the statuses first. With --list, prints the connectable servers without
connecting to any of them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(*envFile, true)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()
			ctx := cmd.Context()

			if timeout > 0 {
				opts.Timeout = time.Duration(timeout * float64(time.Second))
			} else {
				opts.Timeout = client.Config().ExtractTimeout()
			}

			if list {
				candidates, err := client.Extraction.Connectable(ctx, opts)
				if err != nil {
					return err
				}
				for _, c := range candidates {
					auth := ""
					if c.RequiresAuth {
						auth = " (requires auth)"
					}
					fmt.Printf("%-60s %s%s\n", c.ServerName, c.Info.Method, auth)
				}
				fmt.Printf("%d connectable servers\n", len(candidates))
				return nil
			}

			stats, err := client.Extraction.Run(ctx, opts)
			if err != nil {
				return err
			}
			fmt.Printf("Attempted %d servers: %d succeeded, %d failed\n",
				stats.Attempted, stats.Succeeded, stats.Failed)
			fmt.Printf("Extracted %d tools, %d resources, %d prompts\n",
				stats.Tools, stats.Resources, stats.Prompts)
			return nil
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "List connectable servers without connecting")
	cmd.Flags().BoolVar(&opts.RemoteOnly, "remote-only", false, "Only servers with a remote endpoint")
	cmd.Flags().BoolVar(&opts.LocalOnly, "local-only", false, "Only servers run locally over stdio")
	cmd.Flags().BoolVar(&opts.SkipAuth, "skip-auth", false, "Skip servers that require secret env vars")
	cmd.Flags().BoolVar(&opts.Clean, "clean", false, "Wipe extraction statuses and retry every server")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Stop after this many candidates")
	cmd.Flags().StringVar(&opts.Query, "query", "", "Only servers whose name contains this term")
	cmd.Flags().Float64Var(&timeout, "timeout", 0, "Per-server session timeout in seconds")

	return cmd
}
