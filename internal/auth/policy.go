// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Empauth Contributors

package auth

import (
	"fmt"
	"strings"
	"unicode"
)

// DefaultPasswordSymbols is the punctuation set accepted as the symbol class.
const DefaultPasswordSymbols = "!@#$%^&*"

// PasswordPolicy describes the complexity rules a new password must satisfy.
type PasswordPolicy struct {
	MinLength     int
	RequireLetter bool
	RequireDigit  bool
	RequireSymbol bool
	Symbols       string
}

// DefaultPasswordPolicy returns the policy: at least 10 characters with a
// letter, a digit and a symbol from DefaultPasswordSymbols.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:     10,
		RequireLetter: true,
		RequireDigit:  true,
		RequireSymbol: true,
		Symbols:       DefaultPasswordSymbols,
	}
}

// Describe returns a human-readable summary of the policy.
func (p PasswordPolicy) Describe() string {
	var classes []string
	if p.RequireLetter {
		classes = append(classes, "a letter")
	}
	if p.RequireDigit {
		classes = append(classes, "a digit")
	}
	if p.RequireSymbol {
		classes = append(classes, fmt.Sprintf("a symbol (%s)", p.symbols()))
	}

	msg := fmt.Sprintf("Password must be at least %d characters long", p.MinLength)
	if len(classes) > 0 {
		msg += " and contain " + joinAnd(classes)
	}
	return msg + "."
}

// Validate returns a BadRequest error when password does not satisfy the
// policy.
func (p PasswordPolicy) Validate(password string) error {
	var hasLetter, hasDigit, hasSymbol bool
	symbols := p.symbols()
	length := 0
	for _, r := range password {
		length++
		switch {
		case r < unicode.MaxASCII && unicode.IsLetter(r):
			hasLetter = true
		case r < unicode.MaxASCII && unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(symbols, r):
			hasSymbol = true
		}
	}

	ok := length >= p.MinLength &&
		(!p.RequireLetter || hasLetter) &&
		(!p.RequireDigit || hasDigit) &&
		(!p.RequireSymbol || hasSymbol)
	if !ok {
		return fail("AUTH_PASSWORD_POLICY", ErrBadRequest, p.Describe())
	}
	return nil
}

func (p PasswordPolicy) symbols() string {
	if p.Symbols == "" {
		return DefaultPasswordSymbols
	}
	return p.Symbols
}

func joinAnd(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
