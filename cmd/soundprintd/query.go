package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query <path>",
	Short: "Find tracks similar to the given audio file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		c, err := buildComponents(ctx, cfg)
		if err != nil {
			return err
		}
		defer c.store.Close()

		matches, err := c.engine.Query(ctx, args[0])
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		if len(matches) == 0 {
			fmt.Println("no matches above threshold")
			return nil
		}

		for _, m := range matches {
			title := m.Title
			if title == "" {
				title = m.TrackID
			}
			fmt.Printf("%2d. [%s] %-40s artist=%-20s similarity=%.3f overall=%.3f\n",
				m.Rank, m.Source, title, m.Artist, m.Similarity, m.Breakdown.Overall)
		}
		return nil
	},
}
