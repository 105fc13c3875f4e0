package main

import (
	"fmt"
	"log/slog"

	"fuellog/internal/config"
	applog "fuellog/internal/log"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// RootCmd is the fuellog binary.
var RootCmd = &cobra.Command{
	Use:     "fuellog",
	Version: Version,
	Short:   "Personal fuel log with efficiency statistics",
	Long: `fuellog records fuel fill-ups and derives distance, consumption and
efficiency statistics from them. Run "fuellog serve" for the dashboard.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.AddCommand(serveCmd, createUserCmd, statsCmd)
}

// loadConfig reads and validates the environment, then builds the logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger, err := applog.New(applog.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}
