// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Empauth Contributors

package mail

import (
	"context"
	"log/slog"

	"github.com/empauth/empauth/internal/auth"
)

// LogMailer records messages in the log instead of sending them. Bodies are
// never logged because reset mails carry a bearer token.
type LogMailer struct {
	logger  *slog.Logger
	metrics *Metrics
}

// NewLogMailer creates a LogMailer. A nil logger uses slog.Default().
func NewLogMailer(logger *slog.Logger, metrics *Metrics) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger, metrics: metrics}
}

// Send logs the recipient and subject.
func (m *LogMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	m.metrics.record(nil)
	m.logger.InfoContext(ctx, "email not sent (log driver)",
		"to", to, "subject", subject, "body_bytes", len(htmlBody))
	return nil
}

var _ auth.Mailer = (*LogMailer)(nil)
