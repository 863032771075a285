// Package main is the entry point for soundprintd, the audio-similarity
// fingerprinting CLI/daemon, grounded on the teacher's musicd entrypoint
// (cmd/musicd/main.go: flag parsing, signal-driven shutdown, component
// wiring) and generalized to cobra subcommands per SPEC_FULL §1.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/soundprint/soundprint/internal/config"
)

var (
	configDir string
	verbose   bool

	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "soundprintd",
	Short: "Audio similarity fingerprinting engine",
	Long: `soundprintd ingests an audio library into fingerprints and a
similarity index, and answers "what sounds like this" queries against it.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded

		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		}
		built, err := zcfg.Build()
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		log = built
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if log != nil {
		_ = log.Sync()
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", ".", "directory to search for soundprint.yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(clusterCmd)
	rootCmd.AddCommand(statsCmd)
}
