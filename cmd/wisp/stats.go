package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func statsCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print catalog and pipeline statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(*envFile, true)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			overview, err := client.Stats.Overview(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Servers:   %d\n", overview.Servers)
			fmt.Printf("Tools:     %d\n", overview.Tools)
			fmt.Printf("Resources: %d\n", overview.Resources)
			fmt.Printf("Prompts:   %d\n", overview.Prompts)

			fmt.Println("Extraction:")
			printCounts(overview.Extraction)
			fmt.Println("Signals:")
			printCounts(overview.Signals)
			return nil
		},
	}
}

func printCounts(counts map[string]int64) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-16s %d\n", k, counts[k])
	}
}
