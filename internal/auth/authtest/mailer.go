// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Empauth Contributors

package authtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/empauth/empauth/internal/auth"
)

// Mail is a message captured by Mailer.
type Mail struct {
	To      string
	Subject string
	Body    string
}

// Token extracts the reset token written by Composer.
func (m Mail) Token() string {
	_, after, ok := strings.Cut(m.Body, "token=")
	if !ok {
		return ""
	}
	token, _, _ := strings.Cut(after, " ")
	return token
}

// Mailer records sent messages. When Err is set, Send records nothing and
// returns it.
type Mailer struct {
	mu   sync.Mutex
	sent []Mail
	Err  error
}

var _ auth.Mailer = (*Mailer)(nil)

// Send records the message.
func (m *Mailer) Send(_ context.Context, to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, Mail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

// Sent returns the recorded messages in order.
func (m *Mailer) Sent() []Mail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Mail(nil), m.sent...)
}

// Last returns the most recent message.
func (m *Mailer) Last() (Mail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return Mail{}, false
	}
	return m.sent[len(m.sent)-1], true
}

// MockMailer is a testify mock of auth.Mailer.
type MockMailer struct {
	mock.Mock
}

var _ auth.Mailer = (*MockMailer)(nil)

// Send records the call.
func (m *MockMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	args := m.Called(ctx, to, subject, htmlBody)
	return args.Error(0)
}

// Composer renders a plain reset message of the form
// "token=<token> minutes=<n>".
type Composer struct{}

var _ auth.ResetEmailComposer = Composer{}

// ComposeReset renders the reset message.
func (Composer) ComposeReset(user *auth.User, token string, validFor time.Duration) (string, string, error) {
	return "Password reset for " + user.Name,
		fmt.Sprintf("token=%s minutes=%d", token, int(validFor.Minutes())),
		nil
}
