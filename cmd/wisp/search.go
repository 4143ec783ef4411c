package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func searchCmd(envFile *string) *cobra.Command {
	var (
		page  int
		limit int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a hybrid search against the tool index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(*envFile, false)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			query := strings.Join(args, " ")
			resp, err := client.Retriever.Retrieve(cmd.Context(), query, page, limit)
			if err != nil {
				return err
			}

			fmt.Printf("%d candidates for %q (page %d)\n",
				resp.TotalCandidates, resp.Query, resp.Page)
			for _, r := range resp.Results {
				fmt.Printf("%.3f  %s/%s\n", r.Score, r.Server.Name, r.Name)
				if r.Description != "" {
					fmt.Printf("       %s\n", firstLine(r.Description))
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Result page, starting at 1")
	cmd.Flags().IntVar(&limit, "limit", 10, "Results per page")

	return cmd
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
