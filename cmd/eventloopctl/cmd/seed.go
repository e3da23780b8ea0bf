package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/eventloop/internal/repo"
	"github.com/geocoder89/eventloop/internal/seed"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create or refresh the default staff and regular accounts",
	Long: `Upserts the accounts configured by SEED_STAFF_* and SEED_USER_*.
Accounts without a password are skipped. Re-running refreshes names,
roles and password hashes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		if cfg.Store == repo.KindMemory {
			return errors.New("seeding an in-memory store from the CLI has no effect; the API seeds itself in memory mode")
		}

		accounts := seed.Accounts(cfg)
		if len(accounts) == 0 {
			return errors.New("no seed accounts configured: set SEED_STAFF_PASSWORD and/or SEED_USER_PASSWORD")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		store, err := repo.Open(ctx, cfg, nil, log)
		if err != nil {
			return err
		}
		defer store.Close()

		return seed.Run(ctx, store.Users, accounts, log)
	},
}
