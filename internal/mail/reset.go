// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Empauth Contributors

package mail

import (
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/empauth/empauth/internal/auth"
)

// Reset email defaults.
const (
	DefaultResetSubject = "Password reset instructions"
	DefaultResetLinkURL = "http://localhost:3000/reset-password"
)

var resetTemplate = template.Must(template.New("reset").Parse(`<p>Hello {{.Name}},</p>
<p>We received a request to reset the password of your account.
Use the link below to choose a new password. The link is valid for {{.Minutes}} minutes.</p>
<p><a href="{{.Link}}">Reset your password</a></p>
<p>If you did not request a reset you can ignore this email.</p>
`))

type resetData struct {
	Name    string
	Link    string
	Minutes int
}

// ResetComposer renders the password reset email.
type ResetComposer struct {
	subject string
	base    *url.URL
}

// NewResetComposer creates a ResetComposer linking to linkBaseURL. Empty
// arguments use the defaults.
func NewResetComposer(linkBaseURL, subject string) (*ResetComposer, error) {
	if linkBaseURL == "" {
		linkBaseURL = DefaultResetLinkURL
	}
	if subject == "" {
		subject = DefaultResetSubject
	}

	base, err := url.Parse(linkBaseURL)
	if err != nil {
		return nil, oops.Code("MAIL_CONFIG_INVALID").With("link_base_url", linkBaseURL).Wrap(err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").
			With("link_base_url", linkBaseURL).
			Errorf("reset link base url must be absolute")
	}
	return &ResetComposer{subject: subject, base: base}, nil
}

// Link returns the reset link for token.
func (c *ResetComposer) Link(token string) string {
	u := *c.base
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// ComposeReset implements auth.ResetEmailComposer.
func (c *ResetComposer) ComposeReset(user *auth.User, token string, validFor time.Duration) (string, string, error) {
	name := user.Name
	if name == "" {
		name = user.Email
	}

	var body strings.Builder
	err := resetTemplate.Execute(&body, resetData{
		Name:    name,
		Link:    c.Link(token),
		Minutes: int(validFor.Round(time.Minute) / time.Minute),
	})
	if err != nil {
		return "", "", oops.Code("MAIL_RENDER_FAILED").Wrap(err)
	}
	return c.subject, body.String(), nil
}

var _ auth.ResetEmailComposer = (*ResetComposer)(nil)
