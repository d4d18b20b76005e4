// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Empauth Contributors

package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/empauth/empauth/pkg/errutil"
)

// fakeMigrator records the calls made by the migrate commands.
type fakeMigrator struct {
	upCalled    bool
	upErr       error
	downCalled  bool
	stepsArg    *int
	forceArg    *int
	version     uint
	dirty       bool
	pending     []uint
	closeCalled bool
	closeErr    error
}

func (m *fakeMigrator) Up() error {
	m.upCalled = true
	return m.upErr
}

func (m *fakeMigrator) Down() error {
	m.downCalled = true
	return nil
}

func (m *fakeMigrator) Steps(n int) error {
	m.stepsArg = &n
	return nil
}

func (m *fakeMigrator) Version() (uint, bool, error) { return m.version, m.dirty, nil }

func (m *fakeMigrator) Force(v int) error {
	m.forceArg = &v
	return nil
}

func (m *fakeMigrator) PendingMigrations() ([]uint, error) { return m.pending, nil }
func (m *fakeMigrator) AppliedMigrations() ([]uint, error) { return nil, nil }

func (m *fakeMigrator) Close() error {
	m.closeCalled = true
	return m.closeErr
}

func factoryFor(m *fakeMigrator, gotURL *string) migratorFactory {
	return func(url string) (Migrator, error) {
		if gotURL != nil {
			*gotURL = url
		}
		return m, nil
	}
}

func TestParseVersionArg(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantVersion int
		wantErr     bool
	}{
		{name: "valid integer", input: "3", wantVersion: 3},
		{name: "zero is valid", input: "0", wantVersion: 0},
		{name: "negative is valid", input: "-1", wantVersion: -1},
		{name: "stops at dot", input: "1.5", wantVersion: 1},
		{name: "trailing chars are ignored", input: "3abc", wantVersion: 3},
		{name: "leading whitespace is handled", input: "  42", wantVersion: 42},
		{name: "non-numeric returns error", input: "abc", wantErr: true},
		{name: "empty string returns error", input: "", wantErr: true},
		{name: "whitespace only returns error", input: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, err := parseVersionArg(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, "INVALID_VERSION")
				assert.Equal(t, 0, version)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVersion, version)
		})
	}
}

func TestMigrateCommand_Properties(t *testing.T) {
	cmd := NewMigrateCmd()

	assert.Equal(t, "migrate", cmd.Use)
	assert.Contains(t, cmd.Short, "migration")
	assert.Contains(t, cmd.Long, "PostgreSQL")

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"up", "down", "steps", "status", "force"}, names)
}

func TestMigrateCommand_NoDatabaseURL(t *testing.T) {
	isolateConfig(t, "")
	m := &fakeMigrator{}
	root, _ := testRoot(newMigrateCmd(factoryFor(m, nil)))
	root.SetArgs([]string{"migrate", "up"})

	err := root.Execute()
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.False(t, m.upCalled)
}

func TestMigrateCommand_Up(t *testing.T) {
	for _, args := range [][]string{{"migrate"}, {"migrate", "up"}} {
		isolateConfig(t, "postgres://env/empauth")
		m := &fakeMigrator{}
		var gotURL string
		root, out := testRoot(newMigrateCmd(factoryFor(m, &gotURL)))
		root.SetArgs(args)

		require.NoError(t, root.Execute())
		assert.True(t, m.upCalled)
		assert.True(t, m.closeCalled)
		assert.Equal(t, "postgres://env/empauth", gotURL)
		assert.Contains(t, out.String(), "Migrations completed successfully")
	}
}

func TestMigrateCommand_DatabaseURLFlagBeatsEnv(t *testing.T) {
	isolateConfig(t, "postgres://env/empauth")
	var gotURL string
	root, _ := testRoot(newMigrateCmd(factoryFor(&fakeMigrator{}, &gotURL)))
	root.SetArgs([]string{"migrate", "up", "--database-url", "postgres://flag/empauth"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "postgres://flag/empauth", gotURL)
}

func TestMigrateCommand_UpErrorStillCloses(t *testing.T) {
	isolateConfig(t, "postgres://env/empauth")
	m := &fakeMigrator{upErr: errors.New("column already exists")}
	root, _ := testRoot(newMigrateCmd(factoryFor(m, nil)))
	root.SetArgs([]string{"migrate", "up"})

	err := root.Execute()
	require.Error(t, err)
	assert.True(t, m.closeCalled)
}

func TestMigrateCommand_CloseErrorSurfaced(t *testing.T) {
	isolateConfig(t, "postgres://env/empauth")
	m := &fakeMigrator{closeErr: errors.New("close failed")}
	root, _ := testRoot(newMigrateCmd(factoryFor(m, nil)))
	root.SetArgs([]string{"migrate", "up"})

	assert.ErrorContains(t, root.Execute(), "close failed")
}

func TestMigrateCommand_DownRequiresConfirmation(t *testing.T) {
	isolateConfig(t, "postgres://env/empauth")
	m := &fakeMigrator{}
	root, _ := testRoot(newMigrateCmd(factoryFor(m, nil)))
	root.SetArgs([]string{"migrate", "down"})

	err := root.Execute()
	errutil.AssertErrorCode(t, err, "CONFIRMATION_REQUIRED")
	assert.False(t, m.downCalled)

	root, out := testRoot(newMigrateCmd(factoryFor(m, nil)))
	root.SetArgs([]string{"migrate", "down", "--yes"})
	require.NoError(t, root.Execute())
	assert.True(t, m.downCalled)
	assert.Contains(t, out.String(), "All migrations reverted")
}

func TestMigrateCommand_StepsAndForce(t *testing.T) {
	isolateConfig(t, "postgres://env/empauth")

	m := &fakeMigrator{}
	root, _ := testRoot(newMigrateCmd(factoryFor(m, nil)))
	root.SetArgs([]string{"migrate", "steps", "--", "-1"})
	require.NoError(t, root.Execute())
	require.NotNil(t, m.stepsArg)
	assert.Equal(t, -1, *m.stepsArg)

	m = &fakeMigrator{}
	root, out := testRoot(newMigrateCmd(factoryFor(m, nil)))
	root.SetArgs([]string{"migrate", "force", "1"})
	require.NoError(t, root.Execute())
	require.NotNil(t, m.forceArg)
	assert.Equal(t, 1, *m.forceArg)
	assert.Contains(t, out.String(), "Forced schema version to 1")

	m = &fakeMigrator{}
	root, _ = testRoot(newMigrateCmd(factoryFor(m, nil)))
	root.SetArgs([]string{"migrate", "force", "latest"})
	errutil.AssertErrorCode(t, root.Execute(), "INVALID_VERSION")
	assert.Nil(t, m.forceArg)
}

func TestMigrateCommand_Status(t *testing.T) {
	isolateConfig(t, "postgres://env/empauth")

	t.Run("pending migrations are listed by name", func(t *testing.T) {
		m := &fakeMigrator{version: 1, pending: []uint{2}}
		root, out := testRoot(newMigrateCmd(factoryFor(m, nil)))
		root.SetArgs([]string{"migrate", "status"})

		require.NoError(t, root.Execute())
		assert.Contains(t, out.String(), "Schema version: 1")
		assert.Contains(t, out.String(), "State: clean")
		assert.Contains(t, out.String(), "000002_create_password_reset_tokens")
	})

	t.Run("dirty schema", func(t *testing.T) {
		m := &fakeMigrator{version: 2, dirty: true}
		root, out := testRoot(newMigrateCmd(factoryFor(m, nil)))
		root.SetArgs([]string{"migrate", "status"})

		require.NoError(t, root.Execute())
		assert.Contains(t, out.String(), "dirty")
		assert.Contains(t, out.String(), "No pending migrations")
	})
}
