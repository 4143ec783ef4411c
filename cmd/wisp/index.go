package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func indexCmd(envFile *string) *cobra.Command {
	var keywordOnly bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Rebuild the search index over the extracted tools",
		Long: `Rebuild the search index over the extracted tools.

Assembles one search document per tool (name, title, description, server
context and market rank) and embeds the documents that still lack a
vector. With --keyword-only, the embedding pass is skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(*envFile, keywordOnly)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			result, err := client.Index.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Indexed %d tools, embedded %d documents\n",
				result.Indexed, result.Embedded)
			return nil
		},
	}

	cmd.Flags().BoolVar(&keywordOnly, "keyword-only", false,
		"Skip the embedding pass")

	return cmd
}
