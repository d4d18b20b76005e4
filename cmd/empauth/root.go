// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Empauth Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/empauth/empauth/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the empauth CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "empauth",
		Short: "empauth - employee account and authentication service",
		Long: `empauth manages employee accounts: signup, bearer-token login,
password change and email-based password reset, backed by PostgreSQL.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/empauth/config.yaml)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewPurgeCmd())
	cmd.AddCommand(NewStatusCmd())

	return cmd
}

// loadConfig loads the configuration for cmd, applying its changed flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(configFile, cmd.Flags())
}
