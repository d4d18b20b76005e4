// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Empauth Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Reset token configuration.
const (
	ResetTokenBytes      = 32               // 32 bytes = 64 hex chars
	DefaultResetTokenTTL = 15 * time.Minute // lifetime of an issued token
)

// ResetToken is a single-use password reset capability. Only the SHA-256
// digest of the bearer string is kept.
type ResetToken struct {
	ID        ulid.ULID
	UserID    ulid.ULID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewResetToken creates a ResetToken for userID that expires at expiresAt.
func NewResetToken(userID ulid.ULID, tokenHash string, createdAt, expiresAt time.Time) (*ResetToken, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("RESET_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if tokenHash == "" {
		return nil, oops.Code("RESET_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if !expiresAt.After(createdAt) {
		return nil, oops.Code("RESET_INVALID_EXPIRY").
			With("created_at", createdAt).
			With("expires_at", expiresAt).
			Errorf("expiry must be after creation")
	}

	return &ResetToken{
		ID:        ulid.Make(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: createdAt.UTC(),
	}, nil
}

// IsExpiredAt reports whether the token has expired at now.
func (r *ResetToken) IsExpiredAt(now time.Time) bool {
	return r.ExpiresAt.Before(now)
}

// GenerateResetToken creates a random bearer string and its digest.
func GenerateResetToken() (token, hash string, err error) {
	tokenBytes := make([]byte, ResetTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("RESET_TOKEN_GENERATE_FAILED").Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	return token, HashResetToken(token), nil
}

// HashResetToken returns the hex SHA-256 digest under which a token is stored.
func HashResetToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// ResetTokenRepository manages reset token persistence. Deleting tokens that
// do not exist is not an error.
type ResetTokenRepository interface {
	// Create stores a new reset token.
	Create(ctx context.Context, token *ResetToken) error

	// GetByTokenHash retrieves a reset token by digest.
	// Returns an error matching ErrNotFound when absent.
	GetByTokenHash(ctx context.Context, tokenHash string) (*ResetToken, error)

	// Delete removes a single reset token.
	Delete(ctx context.Context, id ulid.ULID) error

	// DeleteByUser removes every reset token owned by a user.
	DeleteByUser(ctx context.Context, userID ulid.ULID) (int64, error)

	// DeleteExpired removes tokens that expired before the given time.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
