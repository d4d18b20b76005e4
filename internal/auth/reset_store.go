// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Empauth Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/empauth/empauth/pkg/errutil"
)

const (
	invalidResetTokenMessage = "Invalid or expired reset token."
	resetMailFailedMessage   = "Failed to send password reset email."
)

// ResetTokenStore manages the lifecycle of password reset tokens. A user has
// at most one live token; expired tokens and tokens of deactivated users are
// removed on first access.
type ResetTokenStore struct {
	users    UserRepository
	tokens   ResetTokenRepository
	tx       Transactor
	mailer   Mailer
	composer ResetEmailComposer
	ttl      time.Duration
	now      Clock
	logger   *slog.Logger
}

// ResetStoreOption configures a ResetTokenStore.
type ResetStoreOption func(*ResetTokenStore)

// WithResetTTL sets the lifetime of issued tokens.
func WithResetTTL(ttl time.Duration) ResetStoreOption {
	return func(s *ResetTokenStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithResetClock replaces the wall clock.
func WithResetClock(now Clock) ResetStoreOption {
	return func(s *ResetTokenStore) { s.now = now }
}

// WithResetLogger sets the logger used for delivery and cleanup failures.
func WithResetLogger(logger *slog.Logger) ResetStoreOption {
	return func(s *ResetTokenStore) { s.logger = logger }
}

// NewResetTokenStore creates a ResetTokenStore.
func NewResetTokenStore(
	users UserRepository,
	tokens ResetTokenRepository,
	tx Transactor,
	mailer Mailer,
	composer ResetEmailComposer,
	opts ...ResetStoreOption,
) (*ResetTokenStore, error) {
	switch {
	case users == nil:
		return nil, oops.Code("RESET_STORE_INVALID").Errorf("user repository is required")
	case tokens == nil:
		return nil, oops.Code("RESET_STORE_INVALID").Errorf("reset token repository is required")
	case tx == nil:
		return nil, oops.Code("RESET_STORE_INVALID").Errorf("transactor is required")
	case mailer == nil:
		return nil, oops.Code("RESET_STORE_INVALID").Errorf("mailer is required")
	case composer == nil:
		return nil, oops.Code("RESET_STORE_INVALID").Errorf("reset email composer is required")
	}

	s := &ResetTokenStore{
		users:    users,
		tokens:   tokens,
		tx:       tx,
		mailer:   mailer,
		composer: composer,
		ttl:      DefaultResetTokenTTL,
		now:      utcNow,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the lifetime of issued tokens.
func (s *ResetTokenStore) TTL() time.Duration {
	return s.ttl
}

// Issue replaces any token held by user with a fresh one and mails the reset
// link. If delivery fails the fresh token is deleted again and an Internal
// error is returned.
func (s *ResetTokenStore) Issue(ctx context.Context, user *User) (*ResetToken, error) {
	if user == nil {
		return nil, oops.Code("RESET_ISSUE_FAILED").Errorf("user cannot be nil")
	}

	token, hash, err := GenerateResetToken()
	if err != nil {
		return nil, oops.Code("RESET_ISSUE_FAILED").
			With("operation", "generate token").
			Wrap(err)
	}

	now := s.now().UTC()
	record, err := NewResetToken(user.ID, hash, now, now.Add(s.ttl))
	if err != nil {
		return nil, oops.Code("RESET_ISSUE_FAILED").
			With("operation", "new reset token").
			Wrap(err)
	}

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.users.Lock(ctx, user.ID); err != nil {
			return err
		}
		if _, err := s.tokens.DeleteByUser(ctx, user.ID); err != nil {
			return err
		}
		return s.tokens.Create(ctx, record)
	})
	if err != nil {
		return nil, oops.Code("RESET_ISSUE_FAILED").
			With("operation", "persist reset token").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	if err := s.deliver(ctx, user, token); err != nil {
		s.rollback(ctx, record)
		errutil.LogErrorContext(ctx, s.logger, "password reset email not delivered", err)
		return nil, oops.Code("RESET_MAIL_FAILED").
			With("user_id", user.ID.String()).
			With("cause", err.Error()).
			Wrap(newFailure(errInternal, resetMailFailedMessage))
	}

	return record, nil
}

func (s *ResetTokenStore) deliver(ctx context.Context, user *User, token string) error {
	subject, body, err := s.composer.ComposeReset(user, token, s.ttl)
	if err != nil {
		return oops.Code("RESET_MAIL_COMPOSE_FAILED").Wrap(err)
	}
	return s.mailer.Send(ctx, user.Email, subject, body)
}

func (s *ResetTokenStore) rollback(ctx context.Context, record *ResetToken) {
	if err := s.tokens.Delete(ctx, record.ID); err != nil {
		errutil.LogErrorContext(ctx, s.logger, "failed to remove undelivered reset token",
			oops.With("reset_id", record.ID.String()).Wrap(err))
	}
}

// Verify resolves a bearer reset token to its active owner. The token is
// left in place; Consume removes it after a successful reset.
func (s *ResetTokenStore) Verify(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, fail("RESET_TOKEN_EMPTY", ErrBadRequest, invalidResetTokenMessage)
	}

	record, err := s.tokens.GetByTokenHash(ctx, HashResetToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fail("RESET_TOKEN_NOT_FOUND", ErrBadRequest, invalidResetTokenMessage)
		}
		return nil, oops.Code("RESET_VERIFY_FAILED").
			With("operation", "get reset token").
			Wrap(err)
	}

	if record.IsExpiredAt(s.now().UTC()) {
		if err := s.discard(ctx, record); err != nil {
			return nil, err
		}
		return nil, fail("RESET_TOKEN_EXPIRED", ErrBadRequest, invalidResetTokenMessage)
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("RESET_VERIFY_FAILED").
			With("operation", "get user").
			With("user_id", record.UserID.String()).
			Wrap(err)
	}
	if !user.Active() {
		if err := s.discard(ctx, record); err != nil {
			return nil, err
		}
		return nil, fail("RESET_TOKEN_USER_INVALID", ErrBadRequest, invalidResetTokenMessage)
	}

	return user, nil
}

func (s *ResetTokenStore) discard(ctx context.Context, record *ResetToken) error {
	if err := s.tokens.Delete(ctx, record.ID); err != nil {
		return oops.Code("RESET_VERIFY_FAILED").
			With("operation", "delete reset token").
			With("reset_id", record.ID.String()).
			Wrap(err)
	}
	return nil
}

// Consume deletes every reset token owned by userID and reports how many were
// removed. Consuming when no token exists is a no-op.
func (s *ResetTokenStore) Consume(ctx context.Context, userID ulid.ULID) (int64, error) {
	n, err := s.tokens.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, oops.Code("RESET_CONSUME_FAILED").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return n, nil
}

// PurgeExpired deletes tokens that have already expired and reports how many
// were removed.
func (s *ResetTokenStore) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.tokens.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, oops.Code("RESET_PURGE_FAILED").Wrap(err)
	}
	return n, nil
}
