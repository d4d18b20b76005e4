// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Empauth Contributors

package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/empauth/empauth/internal/xdg"
)

// envKeys maps the environment variables read by Load to config keys.
var envKeys = map[string]string{
	"DATABASE_URL":          "database.url",
	"EMPAUTH_TOKEN_SECRET":  "token.secret",
	"EMPAUTH_SMTP_PASSWORD": "mail.password",
}

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"http-addr":    "http.addr",
	"metrics-addr": "metrics.addr",
	"log-format":   "log.format",
	"log-level":    "log.level",
	"database-url": "database.url",
}

// RegisterFlags adds the overridable settings to fs with their defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("http-addr", d.HTTP.Addr, "API listen address")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("database-url", "", "PostgreSQL URL (default: $DATABASE_URL)")
}

// Load builds the configuration from, in increasing precedence, the
// defaults, the YAML file at path, the environment and changed flags in fs.
// An empty path uses the XDG default, which may be absent. fs may be nil.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		var err error
		if path, err = xdg.ConfigFile(); err != nil {
			return nil, err
		}
	}
	if err := loadFile(k, path, explicit); err != nil {
		return nil, err
	}

	envProvider := env.ProviderWithValue("", ".", func(name, value string) (string, any) {
		if value == "" {
			return "", nil
		}
		return envKeys[name], value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "decode").Wrap(err)
	}
	return &cfg, nil
}

// loadFile validates and loads the YAML file at path. A missing default
// file is skipped; a missing explicit file is an error.
func loadFile(k *koanf.Koanf, path string, explicit bool) error {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return nil
	}
	if err != nil {
		return oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
	}

	if strings.TrimSpace(string(data)) == "" {
		return nil
	}
	if err := ValidateSchema(data); err != nil {
		return oops.Code("CONFIG_SCHEMA_INVALID").With("path", path).Wrap(err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
	}
	return nil
}
