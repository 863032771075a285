package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soundprint/soundprint/internal/cluster"
	"github.com/soundprint/soundprint/internal/scorer"
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Group the ingested library into similarity clusters",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		c, err := buildComponents(ctx, cfg)
		if err != nil {
			return err
		}
		defer c.store.Close()

		tracks, err := c.store.All(ctx)
		if err != nil {
			return fmt.Errorf("loading tracks: %w", err)
		}

		engine := cluster.New(scorer.New(scorer.DefaultWeights()), 0.75).
			WithCache(buildScoreCache(cfg)).
			WithCacheTTL(cfg.Cache.TTL)
		infos := engine.ClusterLibraryContext(ctx, tracks)
		if len(infos) == 0 {
			fmt.Println("not enough tracks to cluster")
			return nil
		}

		for _, info := range infos {
			fmt.Printf("cluster %d %q (%d tracks): %s\n", info.ID, info.Name, len(info.TrackIDs), info.TopFeatures)
		}
		return nil
	},
}
