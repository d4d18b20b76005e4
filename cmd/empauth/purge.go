// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Empauth Contributors

package main

import (
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/empauth/empauth/internal/auth/postgres"
	"github.com/empauth/empauth/internal/store"
)

// NewPurgeCmd creates the purge-reset-tokens subcommand.
func NewPurgeCmd() *cobra.Command {
	return newPurgeCmd(nil)
}

func newPurgeCmd(deps *ServeDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-reset-tokens",
		Short: "Delete expired password reset tokens",
		Long: `Delete password reset tokens whose expiry has passed. The server only
removes an expired token when someone presents it; run this from cron to
keep the table small.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.ValidateDatabase(); err != nil {
				return err
			}

			deps := deps.withDefaults()
			pool, err := deps.PoolFactory(cmd.Context(), cfg.Database.URL, store.ConnectOptions{
				Attempts: cfg.Database.ConnectAttempts,
				Backoff:  cfg.Database.ConnectBackoff.Std(),
			})
			if err != nil {
				return oops.With("operation", "connect to database").Wrap(err)
			}
			defer pool.Close()

			n, err := postgres.NewResetTokenRepository(pool).DeleteExpired(cmd.Context(), time.Now().UTC())
			if err != nil {
				return err
			}
			cmd.Printf("Deleted %d expired reset token(s)\n", n)
			return nil
		},
	}
}
