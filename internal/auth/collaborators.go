// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Empauth Contributors

package auth

import (
	"context"
	"time"
)

// Mailer delivers an HTML message. A returned error is an expected outcome
// and is not retried.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// ResetEmailComposer renders the message carrying a reset link.
type ResetEmailComposer interface {
	ComposeReset(user *User, token string, validFor time.Duration) (subject, htmlBody string, err error)
}

// Transactor runs fn inside a store transaction. Repositories used inside fn
// with the derived context join the transaction.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Clock returns the current time.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }
