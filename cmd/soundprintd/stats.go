package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show library and index statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		c, err := buildComponents(ctx, cfg)
		if err != nil {
			return err
		}
		defer c.store.Close()

		count, err := c.store.Count(ctx)
		if err != nil {
			return fmt.Errorf("counting tracks: %w", err)
		}
		s := c.index.Stats()

		fmt.Printf("tracks:     %d\n", count)
		fmt.Printf("indexed:    %d\n", s.TotalItems)
		fmt.Printf("dimensions: %d\n", s.Dimensions)
		fmt.Printf("index type: %s\n", s.IndexType)
		return nil
	},
}
