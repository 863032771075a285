package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/soundprint/soundprint/internal/ingest"
	"github.com/soundprint/soundprint/internal/progress"
	"github.com/soundprint/soundprint/internal/scanner"
)

var ingestWorkers int

var ingestCmd = &cobra.Command{
	Use:   "ingest [paths...]",
	Short: "Scan paths for audio files and add them to the similarity index",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		c, err := buildComponents(ctx, cfg)
		if err != nil {
			return err
		}
		defer c.store.Close()

		sc := scanner.New(log)
		found := make(chan scanner.FileInfo, 256)

		scanErrCh := make(chan error, 1)
		go func() { scanErrCh <- sc.Scan(ctx, args, found) }()

		var paths []string
		for fi := range found {
			paths = append(paths, fi.Path)
		}
		if err := <-scanErrCh; err != nil {
			return fmt.Errorf("scanning library paths: %w", err)
		}
		if len(paths) == 0 {
			fmt.Println("no supported audio files found")
			return nil
		}

		bar := progressbar.Default(int64(len(paths)), "ingesting")
		emit := progress.EmitterFunc(func(e progress.Event) {
			if e.Stage == progress.StageDone {
				_ = bar.Add(1)
			}
			if e.Err != nil {
				log.Warn("ingest stage failed", zap.String("path", e.Path), zap.String("stage", string(e.Stage)), zap.Error(e.Err))
			}
		})

		workers := ingestWorkers
		if workers <= 0 {
			workers = cfg.WorkerPool.MaxWorkers
		}
		pool := ingest.NewPool(c.engine, ingest.PoolConfig{MaxWorkers: workers}, log)
		if err := pool.Run(ctx, paths, emit); err != nil {
			return fmt.Errorf("ingest run: %w", err)
		}

		status := pool.Status()
		fmt.Printf("ingested %d, failed %d, total %d\n", status.Ingested, status.Failed, status.Total)
		return nil
	},
}

func init() {
	ingestCmd.Flags().IntVar(&ingestWorkers, "workers", 0, "max concurrent ingest workers (0 = NumCPU)")
}
