package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/geocoder89/eventloop/internal/config"
	"github.com/geocoder89/eventloop/internal/observability"
	"github.com/spf13/cobra"
)

var (
	// databaseURL overrides DATABASE_URL for a single invocation
	databaseURL string

	rootCmd = &cobra.Command{
		Use:           "eventloopctl",
		Short:         "Operational commands for the eventloop service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "postgres URL (default: DATABASE_URL / DB_* env)")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}

func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	if databaseURL != "" {
		cfg.DBURL = databaseURL
	}
	return cfg, observability.NewLogger(cfg.Env), nil
}
