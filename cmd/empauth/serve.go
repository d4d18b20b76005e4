// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Empauth Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/empauth/empauth/internal/auth"
	"github.com/empauth/empauth/internal/auth/postgres"
	"github.com/empauth/empauth/internal/config"
	"github.com/empauth/empauth/internal/httpapi"
	"github.com/empauth/empauth/internal/logging"
	"github.com/empauth/empauth/internal/mail"
	"github.com/empauth/empauth/internal/observability"
	"github.com/empauth/empauth/internal/store"
	"github.com/empauth/empauth/pkg/errutil"
)

const (
	serviceName     = "empauth"
	shutdownTimeout = 5 * time.Second
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the account API server",
		Long: `Start the HTTP API serving signup, login, profile, password change
and password reset, plus the metrics and health endpoints.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}
}

// runServeWithDeps runs the API server until a signal arrives or ctx is
// cancelled. If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	deps = deps.withDefaults()

	if err := cfg.Validate(); err != nil {
		return oops.With("operation", "validate config").Wrap(err)
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := logging.SetDefault(serviceName, version, cfg.Log.Format, level)

	logger.Info("starting empauth",
		"http_addr", cfg.HTTP.Addr,
		"metrics_addr", cfg.Metrics.Addr,
		"mail_driver", cfg.Mail.Driver,
	)

	if cfg.Database.AutoMigrate {
		if err := autoMigrate(deps, cfg.Database.URL, logger); err != nil {
			return err
		}
	}

	pool, err := deps.PoolFactory(ctx, cfg.Database.URL, store.ConnectOptions{
		Attempts: cfg.Database.ConnectAttempts,
		Backoff:  cfg.Database.ConnectBackoff.Std(),
		Logger:   logger,
	})
	if err != nil {
		return oops.With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	logger.Info("connected to database")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	authMetrics := auth.NewMetrics()
	mailMetrics := mail.NewMetrics()

	var obsServer ObservabilityServer
	var httpMetrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		checker := store.NewChecker(pool, 0)
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, checker.Ready)
		authMetrics.MustRegister(obsServer.Registry())
		mailMetrics.MustRegister(obsServer.Registry())
		httpMetrics = obsServer.Metrics()
	}

	manager, err := newManager(cfg, pool, logger, authMetrics, mailMetrics)
	if err != nil {
		return err
	}

	handler := httpapi.NewHandler(manager,
		httpapi.WithLogger(logger),
		httpapi.WithMetrics(httpMetrics),
	)
	apiServer := httpapi.NewServer(cfg.HTTP.Addr, handler.Routes(), logger)
	apiErrCh, err := apiServer.Start()
	if err != nil {
		return oops.With("operation", "start api server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, apiErrCh, "api", logger)

	if obsServer != nil {
		obsErrCh, err := obsServer.Start()
		if err != nil {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer stopCancel()
			if stopErr := apiServer.Stop(stopCtx); stopErr != nil {
				logger.Warn("failed to stop api server during cleanup", "error", stopErr)
			}
			return oops.With("operation", "start observability server").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability", logger)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("empauth started")
	logger.Info("empauth ready", "http_addr", apiServer.Addr())

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping api server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// autoMigrate applies pending migrations before the pool is opened.
func autoMigrate(deps *ServeDeps, url string, logger *slog.Logger) (err error) {
	migrator, err := deps.MigratorFactory(url)
	if err != nil {
		return oops.With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			errutil.LogError(logger, "failed to close migrator", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.With("operation", "run migrations").Wrap(err)
	}
	logger.Info("database migrations applied")
	return nil
}

// newManager wires the account manager to PostgreSQL and the configured
// mail driver.
func newManager(
	cfg *config.Config,
	db postgres.DB,
	logger *slog.Logger,
	authMetrics *auth.Metrics,
	mailMetrics *mail.Metrics,
) (*auth.Manager, error) {
	users := postgres.NewUserRepository(db)
	tx := postgres.NewTransactor(db)

	mailer, err := newMailer(cfg, logger, mailMetrics)
	if err != nil {
		return nil, err
	}
	composer, err := mail.NewResetComposer(cfg.Reset.LinkBaseURL, cfg.Reset.Subject)
	if err != nil {
		return nil, err
	}

	resets, err := auth.NewResetTokenStore(users, postgres.NewResetTokenRepository(db), tx, mailer, composer,
		auth.WithResetTTL(cfg.Reset.TTL.Std()),
		auth.WithResetLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenIssuer([]byte(cfg.Token.Secret), cfg.Token.TTL.Std(),
		auth.WithTokenIssuer(cfg.Token.Issuer),
	)
	if err != nil {
		return nil, err
	}

	return auth.NewManager(users, auth.NewArgon2idHasher(), tokens, resets, tx,
		auth.WithPasswordPolicy(cfg.PasswordPolicy()),
		auth.WithSessionTTL(cfg.Token.TTL.Std()),
		auth.WithLogger(logger),
		auth.WithMetrics(authMetrics),
	)
}

// newMailer returns the mailer for the configured driver.
func newMailer(cfg *config.Config, logger *slog.Logger, metrics *mail.Metrics) (auth.Mailer, error) {
	switch cfg.Mail.Driver {
	case config.MailDriverSMTP:
		mailer, err := mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		}, mail.WithLogger(logger), mail.WithMetrics(metrics))
		if err != nil {
			return nil, err
		}
		return mailer, nil
	case config.MailDriverLog:
		return mail.NewLogMailer(logger, metrics), nil
	}
	return nil, oops.Code("MAIL_CONFIG_INVALID").With("driver", cfg.Mail.Driver).Errorf("unknown mail driver %q", cfg.Mail.Driver)
}

// monitorServerErrors cancels ctx when a server reports an error. It exits
// when the channel closes or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
