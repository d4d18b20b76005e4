// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Empauth Contributors

package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/empauth/empauth/pkg/errutil"
)

func TestNewUser(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("KST", 9*3600))

	user, err := NewUser("a@example.com", "E1", "hash", "Ann", "010", now)
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, time.UTC, user.CreatedAt.Location())
	assert.True(t, user.CreatedAt.Equal(now))
	assert.Equal(t, user.CreatedAt, user.UpdatedAt)
	assert.False(t, user.IsDeleted)
	assert.True(t, user.Active())

	tests := []struct {
		name               string
		email, empNo, hash string
		wantMessage        string
	}{
		{"missing email", "", "E1", "h", "email cannot be empty"},
		{"missing employee number", "a@example.com", "", "h", "employee number cannot be empty"},
		{"missing hash", "a@example.com", "E1", "", "password hash cannot be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUser(tt.email, tt.empNo, tt.hash, "", "", now)
			errutil.AssertErrorCode(t, err, "USER_INVALID")
			assert.Contains(t, err.Error(), tt.wantMessage)
		})
	}
}

func TestUser_Active(t *testing.T) {
	var missing *User
	assert.False(t, missing.Active())
	assert.False(t, (&User{IsDeleted: true}).Active())
	assert.True(t, (&User{}).Active())
}
