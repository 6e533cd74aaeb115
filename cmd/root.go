// Package cmd implements the progress-service command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/progress-service/internal/config"
	"github.com/JakeFAU/progress-service/internal/logging"
)

// loadRuntime reads configuration from the --config flag and builds the
// process logger, which is also installed as the zap global.
func loadRuntime(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("read --config flag: %w", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return cfg, logger, nil
}

// newRootCmd creates the root command and attaches subcommands.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress-service",
		Short: "HTTP backend for a shared trauma/upper/lower progress counter.",
		Long: `progress-service exposes /getProgress, /updateProgress and /resetProgress
over a single global document stored in Firestore, Postgres, or memory.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().String("config", "", "path to a YAML config file (environment variables always apply)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
