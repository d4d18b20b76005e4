// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Empauth Contributors

package store

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/empauth/empauth/pkg/errutil"
)

// flakyDB fails the first failures pings.
type flakyDB struct {
	failures int
	calls    int
}

func (f *flakyDB) Ping(context.Context) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("connection refused")
	}
	return nil
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := Connect(context.Background(), "postgres://%zz", ConnectOptions{})
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "DB_CONFIG_INVALID")
}

func TestWaitForDatabase(t *testing.T) {
	t.Run("retries until ping succeeds", func(t *testing.T) {
		var logs bytes.Buffer
		db := &flakyDB{failures: 2}
		opts := ConnectOptions{
			Attempts: 5,
			Backoff:  time.Millisecond,
			Logger:   slog.New(slog.NewTextHandler(&logs, nil)),
		}

		require.NoError(t, waitForDatabase(context.Background(), db, opts))
		assert.Equal(t, 3, db.calls)
		assert.Contains(t, logs.String(), "database not ready")
	})

	t.Run("gives up after attempts", func(t *testing.T) {
		db := &flakyDB{failures: 100}
		opts := ConnectOptions{Attempts: 3, Backoff: time.Millisecond}.withDefaults()

		err := waitForDatabase(context.Background(), db, opts)
		require.Error(t, err)
		assert.Equal(t, 3, db.calls)
		errutil.AssertErrorCode(t, err, "DB_CONNECT_FAILED")
		errutil.AssertErrorContext(t, err, "attempts", 3)
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		db := &flakyDB{failures: 100}

		err := waitForDatabase(ctx, db, ConnectOptions{Attempts: 10, Backoff: time.Hour}.withDefaults())
		require.Error(t, err)
		assert.LessOrEqual(t, db.calls, 1)
	})
}

func TestConnectOptions_Defaults(t *testing.T) {
	opts := ConnectOptions{}.withDefaults()
	assert.Equal(t, uint64(DefaultConnectAttempts), opts.Attempts)
	assert.Equal(t, DefaultConnectBackoff, opts.Backoff)
	assert.NotNil(t, opts.Logger)
}

func TestChecker_Ready(t *testing.T) {
	assert.True(t, NewChecker(&flakyDB{}, 0).Ready(context.Background()))
	assert.False(t, NewChecker(&flakyDB{failures: 1}, time.Second).Ready(context.Background()))
}
