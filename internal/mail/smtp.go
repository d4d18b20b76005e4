// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Empauth Contributors

package mail

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
	"gopkg.in/gomail.v2"

	"github.com/empauth/empauth/internal/auth"
	"github.com/empauth/empauth/pkg/errutil"
)

// SMTPConfig holds the relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// sender is satisfied by *gomail.Dialer.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer sends HTML mail through an SMTP relay. A connection is opened
// per message.
type SMTPMailer struct {
	from    string
	dialer  sender
	logger  *slog.Logger
	metrics *Metrics
}

// SMTPOption configures an SMTPMailer.
type SMTPOption func(*SMTPMailer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SMTPOption {
	return func(m *SMTPMailer) { m.logger = logger }
}

// WithMetrics enables delivery metrics.
func WithMetrics(metrics *Metrics) SMTPOption {
	return func(m *SMTPMailer) { m.metrics = metrics }
}

// NewSMTPMailer creates an SMTPMailer. The relay is not contacted until the
// first Send.
func NewSMTPMailer(cfg SMTPConfig, opts ...SMTPOption) (*SMTPMailer, error) {
	switch {
	case cfg.Host == "":
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("smtp host is required")
	case cfg.Port <= 0:
		return nil, oops.Code("MAIL_CONFIG_INVALID").With("port", cfg.Port).Errorf("smtp port must be positive")
	case cfg.From == "":
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("sender address is required")
	}
	return newSMTPMailer(cfg.From, gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), opts...), nil
}

func newSMTPMailer(from string, dialer sender, opts ...SMTPOption) *SMTPMailer {
	m := &SMTPMailer{
		from:   from,
		dialer: dialer,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Send delivers an HTML message to a single recipient.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("MAIL_SEND_CANCELLED").Wrap(err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	err := m.dialer.DialAndSend(msg)
	m.metrics.record(err)
	if err != nil {
		err = oops.Code("MAIL_SEND_FAILED").With("to", to).Wrap(err)
		errutil.LogErrorContext(ctx, m.logger, "email delivery failed", err)
		return err
	}

	m.logger.InfoContext(ctx, "email sent", "to", to, "subject", subject)
	return nil
}

var _ auth.Mailer = (*SMTPMailer)(nil)
