// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Empauth Contributors

package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/empauth/empauth/internal/auth"
	"github.com/empauth/empauth/pkg/errutil"
)

func TestPasswordPolicy_Validate(t *testing.T) {
	policy := auth.DefaultPasswordPolicy()

	tests := []struct {
		name     string
		password string
		wantOK   bool
	}{
		{"meets every rule", "Aa1!aaaaaa", true},
		{"digits letters and caret", "abcdefgh9^", true},
		{"too short", "Aa1!aaaaa", false},
		{"no digit", "Aaa!aaaaaa", false},
		{"no letter", "1234567!89", false},
		{"no symbol", "Aa1aaaaaaa", false},
		{"symbol outside set", "Aa1?aaaaaa", false},
		{"non-ascii letters do not count", "ééééééé1!!", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Validate(tt.password)
			if tt.wantOK {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, auth.ErrBadRequest)
			errutil.AssertErrorCode(t, err, "AUTH_PASSWORD_POLICY")
			assert.Equal(t, policy.Describe(), auth.PublicMessage(err))
		})
	}
}

func TestPasswordPolicy_Custom(t *testing.T) {
	policy := auth.PasswordPolicy{MinLength: 4, RequireDigit: true, Symbols: "?"}

	assert.NoError(t, policy.Validate("abc1"))
	assert.Error(t, policy.Validate("abcd"))
	assert.Equal(t, "Password must be at least 4 characters long and contain a digit.", policy.Describe())
}

func TestPasswordPolicy_Describe(t *testing.T) {
	assert.Equal(t,
		"Password must be at least 10 characters long and contain a letter, a digit and a symbol (!@#$%^&*).",
		auth.DefaultPasswordPolicy().Describe(),
	)
}
