// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Empauth Contributors

// Package config loads and validates the empauth configuration.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"

	"github.com/empauth/empauth/internal/auth"
	"github.com/empauth/empauth/internal/logging"
	"github.com/empauth/empauth/internal/mail"
	"github.com/empauth/empauth/internal/store"
)

// Mail drivers.
const (
	MailDriverSMTP = "smtp"
	MailDriverLog  = "log"
)

// Duration is a time.Duration written as a Go duration string ("15m").
type Duration time.Duration

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return oops.Code("CONFIG_DURATION_INVALID").With("value", string(text)).Wrap(err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// JSONSchema describes Duration as a duration string.
func (Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
		Description: "Go duration, e.g. 15m or 2h",
	}
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the complete service configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http" json:"http,omitempty"`
	Metrics  MetricsConfig  `koanf:"metrics" json:"metrics,omitempty"`
	Log      LogConfig      `koanf:"log" json:"log,omitempty"`
	Database DatabaseConfig `koanf:"database" json:"database,omitempty"`
	Token    TokenConfig    `koanf:"token" json:"token,omitempty"`
	Reset    ResetConfig    `koanf:"reset" json:"reset,omitempty"`
	Password PasswordConfig `koanf:"password" json:"password,omitempty"`
	Mail     MailConfig     `koanf:"mail" json:"mail,omitempty"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty" jsonschema:"description=API listen address"`
}

// MetricsConfig configures the metrics and health listener. An empty
// address disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// DatabaseConfig configures PostgreSQL access.
type DatabaseConfig struct {
	URL             string   `koanf:"url" json:"url,omitempty"`
	ConnectAttempts uint64   `koanf:"connect_attempts" json:"connect_attempts,omitempty" jsonschema:"minimum=1"`
	ConnectBackoff  Duration `koanf:"connect_backoff" json:"connect_backoff,omitempty"`
	AutoMigrate     bool     `koanf:"auto_migrate" json:"auto_migrate,omitempty" jsonschema:"description=apply pending migrations when serve starts"`
}

// TokenConfig configures session tokens.
type TokenConfig struct {
	Secret string   `koanf:"secret" json:"secret,omitempty"`
	Issuer string   `koanf:"issuer" json:"issuer,omitempty"`
	TTL    Duration `koanf:"ttl" json:"ttl,omitempty"`
}

// ResetConfig configures password reset mails.
type ResetConfig struct {
	TTL         Duration `koanf:"ttl" json:"ttl,omitempty"`
	LinkBaseURL string   `koanf:"link_base_url" json:"link_base_url,omitempty"`
	Subject     string   `koanf:"subject" json:"subject,omitempty"`
}

// PasswordConfig configures the policy applied to changed passwords.
type PasswordConfig struct {
	MinLength     int    `koanf:"min_length" json:"min_length,omitempty" jsonschema:"minimum=1"`
	RequireLetter bool   `koanf:"require_letter" json:"require_letter,omitempty"`
	RequireDigit  bool   `koanf:"require_digit" json:"require_digit,omitempty"`
	RequireSymbol bool   `koanf:"require_symbol" json:"require_symbol,omitempty"`
	Symbols       string `koanf:"symbols" json:"symbols,omitempty"`
}

// MailConfig configures outgoing mail.
type MailConfig struct {
	Driver   string `koanf:"driver" json:"driver,omitempty" jsonschema:"enum=smtp,enum=log"`
	Host     string `koanf:"host" json:"host,omitempty"`
	Port     int    `koanf:"port" json:"port,omitempty" jsonschema:"minimum=1,maximum=65535"`
	Username string `koanf:"username" json:"username,omitempty"`
	Password string `koanf:"password" json:"password,omitempty"`
	From     string `koanf:"from" json:"from,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	policy := auth.DefaultPasswordPolicy()
	return Config{
		HTTP:    HTTPConfig{Addr: ":8000"},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Log:     LogConfig{Format: logging.FormatJSON, Level: "info"},
		Database: DatabaseConfig{
			ConnectAttempts: store.DefaultConnectAttempts,
			ConnectBackoff:  Duration(store.DefaultConnectBackoff),
			AutoMigrate:     true,
		},
		Token: TokenConfig{
			Issuer: "empauth",
			TTL:    Duration(auth.DefaultSessionTTL),
		},
		Reset: ResetConfig{
			TTL:         Duration(auth.DefaultResetTokenTTL),
			LinkBaseURL: mail.DefaultResetLinkURL,
			Subject:     mail.DefaultResetSubject,
		},
		Password: PasswordConfig{
			MinLength:     policy.MinLength,
			RequireLetter: policy.RequireLetter,
			RequireDigit:  policy.RequireDigit,
			RequireSymbol: policy.RequireSymbol,
			Symbols:       policy.Symbols,
		},
		Mail: MailConfig{
			Driver: MailDriverLog,
			Port:   587,
		},
	}
}

// PasswordPolicy returns the configured policy.
func (c *Config) PasswordPolicy() auth.PasswordPolicy {
	return auth.PasswordPolicy{
		MinLength:     c.Password.MinLength,
		RequireLetter: c.Password.RequireLetter,
		RequireDigit:  c.Password.RequireDigit,
		RequireSymbol: c.Password.RequireSymbol,
		Symbols:       c.Password.Symbols,
	}
}

// ValidateDatabase checks the settings needed to reach the database.
func (c *Config) ValidateDatabase() error {
	var errs []error
	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required (or set DATABASE_URL)"))
	}
	if c.Database.ConnectAttempts == 0 {
		errs = append(errs, errors.New("database.connect_attempts must be at least 1"))
	}
	if c.Database.ConnectBackoff <= 0 {
		errs = append(errs, errors.New("database.connect_backoff must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return nil
}

// Validate checks the settings needed to serve requests.
func (c *Config) Validate() error {
	var errs []error
	if err := c.ValidateDatabase(); err != nil {
		errs = append(errs, errors.Unwrap(err))
	}
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	switch c.Log.Format {
	case logging.FormatJSON, logging.FormatText:
	default:
		errs = append(errs, fmt.Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level %q must be debug, info, warn or error", c.Log.Level))
	}
	if len(c.Token.Secret) < auth.MinSigningSecretLen {
		errs = append(errs, fmt.Errorf("token.secret must be at least %d bytes (or set EMPAUTH_TOKEN_SECRET)", auth.MinSigningSecretLen))
	}
	if c.Token.TTL <= 0 {
		errs = append(errs, errors.New("token.ttl must be positive"))
	}
	if c.Reset.TTL <= 0 {
		errs = append(errs, errors.New("reset.ttl must be positive"))
	}
	if c.Password.MinLength < 1 {
		errs = append(errs, errors.New("password.min_length must be at least 1"))
	}
	switch c.Mail.Driver {
	case MailDriverLog:
	case MailDriverSMTP:
		if c.Mail.Host == "" || c.Mail.From == "" {
			errs = append(errs, errors.New("mail.host and mail.from are required for the smtp driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("mail.driver must be 'smtp' or 'log', got %q", c.Mail.Driver))
	}

	if err := errors.Join(errs...); err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return nil
}
