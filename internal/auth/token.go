// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Empauth Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// DefaultSessionTTL is the session token lifetime when none is configured.
const DefaultSessionTTL = 120 * time.Minute

// MinSigningSecretLen is the minimum accepted HS256 secret length in bytes.
const MinSigningSecretLen = 32

// SessionToken is a signed bearer token and its absolute expiry.
type SessionToken struct {
	Value     string
	Subject   string
	ExpiresAt time.Time
}

// SessionClaims is the JWT payload of a session token.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 session tokens. Verification is a
// pure cryptographic check and never consults the user store.
type TokenIssuer struct {
	secret     []byte
	issuer     string
	defaultTTL time.Duration
	now        func() time.Time
}

// TokenIssuerOption configures a TokenIssuer.
type TokenIssuerOption func(*TokenIssuer)

// WithTokenIssuer sets the "iss" claim written into and required from tokens.
func WithTokenIssuer(issuer string) TokenIssuerOption {
	return func(t *TokenIssuer) { t.issuer = issuer }
}

// WithTokenClock replaces the wall clock used for issuing and verifying.
func WithTokenClock(now func() time.Time) TokenIssuerOption {
	return func(t *TokenIssuer) { t.now = now }
}

// NewTokenIssuer creates a TokenIssuer. A non-positive defaultTTL falls back
// to DefaultSessionTTL.
func NewTokenIssuer(secret []byte, defaultTTL time.Duration, opts ...TokenIssuerOption) (*TokenIssuer, error) {
	if len(secret) < MinSigningSecretLen {
		return nil, oops.Code("TOKEN_SECRET_INVALID").
			With("min_length", MinSigningSecretLen).
			Errorf("signing secret must be at least %d bytes", MinSigningSecretLen)
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultSessionTTL
	}

	t := &TokenIssuer{
		secret:     append([]byte(nil), secret...),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Issue signs a token for subject that expires ttl from now. A non-positive
// ttl uses the issuer's default.
func (t *TokenIssuer) Issue(subject string, ttl time.Duration) (*SessionToken, error) {
	if subject == "" {
		return nil, oops.Code("TOKEN_SUBJECT_EMPTY").Errorf("token subject cannot be empty")
	}
	if ttl <= 0 {
		ttl = t.defaultTTL
	}

	now := t.now().UTC()
	// exp is stored in whole seconds; round up so the token lives at least ttl.
	expiresAt := now.Add(ttl)
	if whole := expiresAt.Truncate(time.Second); whole.Before(expiresAt) {
		expiresAt = whole.Add(time.Second)
	}
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return nil, oops.Code("TOKEN_SIGN_FAILED").
			With("operation", "sign session token").
			Wrap(err)
	}

	return &SessionToken{
		Value:     signed,
		Subject:   subject,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify validates the signature, expiry and subject of token and returns
// the subject. Every failure is Unauthorized.
func (t *TokenIssuer) Verify(token string) (string, error) {
	if token == "" {
		return "", fail("TOKEN_EMPTY", ErrUnauthorized, "Could not validate credentials")
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return t.now().UTC() }),
	}
	if t.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(t.issuer))
	}

	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, parserOpts...)
	if err != nil || !parsed.Valid {
		code := "TOKEN_INVALID"
		if err != nil && errors.Is(err, jwt.ErrTokenExpired) {
			code = "TOKEN_EXPIRED"
		}
		return "", oops.Code(code).
			With("cause", errString(err)).
			Wrap(newFailure(ErrUnauthorized, "Could not validate credentials"))
	}

	if claims.Subject == "" {
		return "", fail("TOKEN_SUBJECT_MISSING", ErrUnauthorized, "Could not validate credentials")
	}

	return claims.Subject, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
