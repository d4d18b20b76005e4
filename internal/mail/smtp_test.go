// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Empauth Contributors

package mail

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/empauth/empauth/pkg/errutil"
)

type fakeDialer struct {
	err  error
	sent []*gomail.Message
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m...)
	return nil
}

func TestNewSMTPMailer_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  SMTPConfig
	}{
		{"missing host", SMTPConfig{Port: 587, From: "noreply@example.com"}},
		{"bad port", SMTPConfig{Host: "smtp.example.com", From: "noreply@example.com"}},
		{"missing sender", SMTPConfig{Host: "smtp.example.com", Port: 587}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSMTPMailer(tt.cfg)
			errutil.AssertErrorCode(t, err, "MAIL_CONFIG_INVALID")
		})
	}

	m, err := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 587, From: "noreply@example.com"})
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestSMTPMailer_Send(t *testing.T) {
	t.Run("builds an html message", func(t *testing.T) {
		dialer := &fakeDialer{}
		metrics := NewMetrics()
		m := newSMTPMailer("noreply@example.com", dialer, WithMetrics(metrics))

		require.NoError(t, m.Send(context.Background(), "ada@example.com", "Hello", "<p>hi</p>"))
		require.Len(t, dialer.sent, 1)

		msg := dialer.sent[0]
		assert.Equal(t, []string{"noreply@example.com"}, msg.GetHeader("From"))
		assert.Equal(t, []string{"ada@example.com"}, msg.GetHeader("To"))
		assert.Equal(t, []string{"Hello"}, msg.GetHeader("Subject"))

		var raw bytes.Buffer
		_, err := msg.WriteTo(&raw)
		require.NoError(t, err)
		assert.Contains(t, raw.String(), "text/html")
		assert.Contains(t, raw.String(), "<p>hi</p>")

		assert.InDelta(t, 1, testutil.ToFloat64(metrics.Deliveries.WithLabelValues(ResultSent)), 0)
	})

	t.Run("reports relay failures", func(t *testing.T) {
		var logs bytes.Buffer
		metrics := NewMetrics()
		m := newSMTPMailer("noreply@example.com", &fakeDialer{err: errors.New("535 auth failed")},
			WithLogger(slog.New(slog.NewJSONHandler(&logs, nil))), WithMetrics(metrics))

		err := m.Send(context.Background(), "ada@example.com", "Hello", "<p>hi</p>")
		errutil.AssertErrorCode(t, err, "MAIL_SEND_FAILED")
		assert.Contains(t, logs.String(), "email delivery failed")
		assert.NotContains(t, logs.String(), "<p>hi</p>")
		assert.InDelta(t, 1, testutil.ToFloat64(metrics.Deliveries.WithLabelValues(ResultFailed)), 0)
	})

	t.Run("cancelled context", func(t *testing.T) {
		dialer := &fakeDialer{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := newSMTPMailer("noreply@example.com", dialer).Send(ctx, "ada@example.com", "Hello", "")
		errutil.AssertErrorCode(t, err, "MAIL_SEND_CANCELLED")
		assert.Empty(t, dialer.sent)
	})
}

func TestLogMailer_Send(t *testing.T) {
	var logs bytes.Buffer
	metrics := NewMetrics()
	m := NewLogMailer(slog.New(slog.NewTextHandler(&logs, nil)), metrics)

	require.NoError(t, m.Send(context.Background(), "ada@example.com", "Reset", "token=secret"))
	assert.Contains(t, logs.String(), "ada@example.com")
	assert.NotContains(t, logs.String(), "secret")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Deliveries.WithLabelValues(ResultSent)), 0)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.record(errors.New("x")) })
}
