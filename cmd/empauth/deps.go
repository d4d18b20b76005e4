// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Empauth Contributors

package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/empauth/empauth/internal/auth/postgres"
	"github.com/empauth/empauth/internal/observability"
	"github.com/empauth/empauth/internal/store"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// PoolFactory opens the database pool.
	// Default: store.Connect
	PoolFactory func(ctx context.Context, url string, opts store.ConnectOptions) (Pool, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// MigratorFactory opens a migrator for automatic migration on start.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (Migrator, error)
}

// Pool is the subset of *pgxpool.Pool used by serve.
type Pool interface {
	postgres.DB
	Ping(ctx context.Context) error
	Close()
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Registry() prometheus.Registerer
	Metrics() *observability.Metrics
}

// Migrator interface wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	AppliedMigrations() ([]uint, error)
	Close() error
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	if d == nil {
		d = &ServeDeps{}
	}
	if d.PoolFactory == nil {
		d.PoolFactory = func(ctx context.Context, url string, opts store.ConnectOptions) (Pool, error) {
			pool, err := store.Connect(ctx, url, opts)
			if err != nil {
				return nil, err
			}
			return pool, nil
		}
	}
	if d.ObservabilityServerFactory == nil {
		d.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
	if d.MigratorFactory == nil {
		d.MigratorFactory = defaultMigratorFactory
	}
	return d
}

func defaultMigratorFactory(url string) (Migrator, error) {
	m, err := store.NewMigrator(url)
	if err != nil {
		return nil, err
	}
	return m, nil
}
