// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Empauth Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/empauth/empauth/internal/auth"
)

// ResetTokenRepository implements auth.ResetTokenRepository using PostgreSQL.
type ResetTokenRepository struct {
	db DB
}

// NewResetTokenRepository creates a new ResetTokenRepository.
func NewResetTokenRepository(db DB) *ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

// Create stores a new reset token.
func (r *ResetTokenRepository) Create(ctx context.Context, token *auth.ResetToken) error {
	_, err := conn(ctx, r.db).Exec(ctx, `
		INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, token.ID.String(), token.UserID.String(), token.TokenHash, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		return oops.Code("RESET_CREATE_FAILED").
			With("operation", "insert reset token").
			With("user_id", token.UserID.String()).
			Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a reset token by the digest of its secret.
func (r *ResetTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.ResetToken, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM password_reset_tokens
		WHERE token_hash = $1
	`, tokenHash)

	var (
		idStr, userIDStr string
		token            auth.ResetToken
	)
	err := row.Scan(&idStr, &userIDStr, &token.TokenHash, &token.ExpiresAt, &token.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("RESET_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("RESET_GET_FAILED").
			With("operation", "get reset token by hash").
			Wrap(err)
	}

	if token.ID, err = ulid.Parse(idStr); err != nil {
		return nil, oops.Code("RESET_INVALID_ID").With("id", idStr).Wrap(err)
	}
	if token.UserID, err = ulid.Parse(userIDStr); err != nil {
		return nil, oops.Code("RESET_INVALID_USER_ID").With("user_id", userIDStr).Wrap(err)
	}
	return &token, nil
}

// Delete removes a reset token. Deleting an absent token is not an error.
func (r *ResetTokenRepository) Delete(ctx context.Context, id ulid.ULID) error {
	_, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM password_reset_tokens WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("RESET_DELETE_FAILED").
			With("operation", "delete reset token").
			With("id", id.String()).
			Wrap(err)
	}
	return nil
}

// DeleteByUser removes every reset token of a user.
func (r *ResetTokenRepository) DeleteByUser(ctx context.Context, userID ulid.ULID) (int64, error) {
	result, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM password_reset_tokens WHERE user_id = $1`, userID.String())
	if err != nil {
		return 0, oops.Code("RESET_DELETE_FAILED").
			With("operation", "delete reset tokens by user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// DeleteExpired removes tokens that expired before the given time.
func (r *ResetTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM password_reset_tokens WHERE expires_at < $1`, before)
	if err != nil {
		return 0, oops.Code("RESET_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired reset tokens").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

var _ auth.ResetTokenRepository = (*ResetTokenRepository)(nil)
