// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Empauth Contributors

// Package store opens the PostgreSQL pool and manages the schema.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Connection defaults.
const (
	DefaultConnectAttempts = 5
	DefaultConnectBackoff  = 500 * time.Millisecond
	maxConnectBackoff      = 10 * time.Second
)

// ConnectOptions controls how Connect waits for the database.
type ConnectOptions struct {
	// Attempts is the number of pings before giving up. Zero uses
	// DefaultConnectAttempts.
	Attempts uint64
	// Backoff is the first delay between pings; it doubles on each retry.
	Backoff time.Duration
	Logger  *slog.Logger
}

func (o ConnectOptions) withDefaults() ConnectOptions {
	if o.Attempts == 0 {
		o.Attempts = DefaultConnectAttempts
	}
	if o.Backoff <= 0 {
		o.Backoff = DefaultConnectBackoff
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// pinger is satisfied by *pgxpool.Pool.
type pinger interface {
	Ping(ctx context.Context) error
}

// Connect creates a pool for databaseURL and pings it until it answers or the
// attempts are exhausted.
func Connect(ctx context.Context, databaseURL string, opts ConnectOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	if err := waitForDatabase(ctx, pool, opts.withDefaults()); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func waitForDatabase(ctx context.Context, db pinger, opts ConnectOptions) error {
	backoff := retry.WithMaxRetries(opts.Attempts-1,
		retry.WithCappedDuration(maxConnectBackoff, retry.NewExponential(opts.Backoff)))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := db.Ping(ctx); err != nil {
			opts.Logger.WarnContext(ctx, "database not ready",
				"attempt", attempt, "max_attempts", opts.Attempts, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping database").
			With("attempts", attempt).
			Wrap(err)
	}
	return nil
}

// Checker reports database readiness.
type Checker struct {
	db      pinger
	timeout time.Duration
}

// NewChecker creates a Checker that pings db with the given timeout.
func NewChecker(db pinger, timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{db: db, timeout: timeout}
}

// Ready reports whether the database answers a ping in time.
func (c *Checker) Ready(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.db.Ping(ctx) == nil
}
