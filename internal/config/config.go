// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

// Package config loads the nagolie client configuration.
//
// Values come from three layers: flag defaults, then the YAML config file,
// then flags set explicitly on the command line.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/auth"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/identity"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/logging"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/mailer"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/xdg"
)

// Session backends.
const (
	BackendBolt     = "bbolt"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config is the complete client configuration.
type Config struct {
	Identity IdentityConfig `koanf:"identity"`
	Mail     MailConfig     `koanf:"mail"`
	Reset    ResetConfig    `koanf:"reset"`
	Auth     AuthConfig     `koanf:"auth"`
	Session  SessionConfig  `koanf:"session"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// IdentityConfig locates the identity API.
type IdentityConfig struct {
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
	Retries uint64        `koanf:"retries"`
}

// MailConfig configures email delivery.
type MailConfig struct {
	Endpoint  string        `koanf:"endpoint"`
	ServiceID string        `koanf:"service_id"`
	PublicKey string        `koanf:"public_key"`
	Templates TemplateIDs   `koanf:"templates"`
	DryRun    bool          `koanf:"dry_run"`
	Timeout   time.Duration `koanf:"timeout"`
}

// TemplateIDs are the provider template IDs.
type TemplateIDs struct {
	ResetInstructions string `koanf:"reset_instructions"`
	PasswordChanged   string `koanf:"password_changed"`
}

// ResetConfig configures the password reset flow.
type ResetConfig struct {
	LinkBase string `koanf:"link_base"`
}

// AuthConfig configures login.
type AuthConfig struct {
	RoleFallback string `koanf:"role_fallback"`
}

// SessionConfig selects where the session is kept.
type SessionConfig struct {
	Backend     string `koanf:"backend"`
	Path        string `koanf:"path"`
	RedisURL    string `koanf:"redis_url"`
	RedisPrefix string `koanf:"redis_prefix"`
	PostgresURL string `koanf:"postgres_url"`
	Namespace   string `koanf:"namespace"`
	// TombstonePath is the local file recording logouts that redis or
	// postgres could not apply. Defaults to the XDG data dir.
	TombstonePath string `koanf:"tombstone_path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// MetricsConfig configures the observability endpoint of the shell.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"identity-url":      "identity.base_url",
	"identity-timeout":  "identity.timeout",
	"identity-retries":  "identity.retries",
	"mail-endpoint":     "mail.endpoint",
	"mail-service-id":   "mail.service_id",
	"mail-public-key":   "mail.public_key",
	"mail-dry-run":      "mail.dry_run",
	"reset-link-base":   "reset.link_base",
	"role-fallback":     "auth.role_fallback",
	"session-backend":   "session.backend",
	"session-path":      "session.path",
	"session-redis-url": "session.redis_url",
	"session-pg-url":    "session.postgres_url",
	"log-format":        "log.format",
	"log-level":         "log.level",
	"metrics-addr":      "metrics.addr",
}

// RegisterFlags adds the config flags and their defaults to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("identity-url", "http://localhost:5000", "identity API base URL")
	fs.Duration("identity-timeout", identity.DefaultTimeout, "identity API request timeout")
	fs.Uint64("identity-retries", identity.DefaultRetries, "retries for idempotent identity API reads")
	fs.String("mail-endpoint", mailer.DefaultEndpoint, "EmailJS API endpoint")
	fs.String("mail-service-id", "", "EmailJS service ID")
	fs.String("mail-public-key", "", "EmailJS public key")
	fs.Bool("mail-dry-run", false, "log emails instead of sending them")
	fs.String("reset-link-base", auth.DefaultResetLinkBase, "URL that reset tokens are appended to")
	fs.String("role-fallback", string(auth.FallbackReject), "policy for accounts without a role (reject or admin)")
	fs.String("session-backend", BackendBolt, "session backend (bbolt, redis, postgres or memory)")
	fs.String("session-path", "", "bbolt session file (default: XDG_DATA_HOME/nagolie/session.db)")
	fs.String("session-redis-url", "", "redis URL for the redis session backend")
	fs.String("session-pg-url", "", "PostgreSQL URL for the postgres session backend")
	fs.String("log-format", "text", "log format (json or text)")
	fs.String("log-level", "warn", "log level (debug, info, warn or error)")
	fs.String("metrics-addr", "", "metrics/health HTTP address for the shell (empty = disabled)")
}

// fileDefaults are applied for keys that have no flag.
var fileDefaults = map[string]any{
	"mail.templates.reset_instructions": mailer.TemplateResetInstructions,
	"mail.templates.password_changed":   mailer.TemplatePasswordChanged,
	"mail.timeout":                      mailer.DefaultTimeout.String(),
	"session.redis_prefix":              "nagolie:",
	"session.namespace":                 "default",
}

// Load reads configuration. An empty path uses the XDG config file if it
// exists; an explicit path must exist.
func Load(flags *pflag.FlagSet, path string) (*Config, error) {
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		if p, err := xdg.ConfigFile(); err == nil {
			path = p
		}
	}
	if path != "" {
		err := k.Load(file.Provider(path), yaml.Parser())
		switch {
		case err == nil:
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		case errors.Is(err, fs.ErrNotExist):
			return nil, oops.Code("CONFIG_NOT_FOUND").With("path", path).Wrap(err)
		default:
			return nil, oops.Code("CONFIG_PARSE_FAILED").With("path", path).Wrap(err)
		}
	}

	for key, v := range fileDefaults {
		if !k.Exists(key) {
			_ = k.Set(key, v) //nolint:errcheck // Set only fails for invalid delimiters
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_PARSE_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_PARSE_FAILED").Wrap(err)
	}
	if cfg.Session.Backend == BackendBolt && cfg.Session.Path == "" {
		if p, err := xdg.SessionFile(); err == nil {
			cfg.Session.Path = p
		}
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once. Mail settings are checked
// separately by ValidateMail since only the reset flow sends email.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if u, err := url.Parse(c.Identity.BaseURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		add("identity.base_url must be an absolute http(s) URL, got %q", c.Identity.BaseURL)
	}
	if c.Identity.Timeout <= 0 {
		add("identity.timeout must be positive")
	}

	if _, err := auth.ParseRoleFallback(c.Auth.RoleFallback); err != nil {
		add("auth.role_fallback must be reject or admin, got %q", c.Auth.RoleFallback)
	}
	if c.Reset.LinkBase == "" {
		add("reset.link_base is required")
	}

	switch c.Session.Backend {
	case BackendBolt:
		if c.Session.Path == "" {
			add("session.path is required for the bbolt backend")
		}
	case BackendRedis:
		if c.Session.RedisURL == "" {
			add("session.redis_url is required for the redis backend")
		}
	case BackendPostgres:
		if c.Session.PostgresURL == "" {
			add("session.postgres_url is required for the postgres backend")
		}
	case BackendMemory:
	default:
		add("session.backend must be bbolt, redis, postgres or memory, got %q", c.Session.Backend)
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		add("log.format must be json or text, got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		add("log.level is invalid: %q", c.Log.Level)
	}

	return invalid(problems)
}

// ValidateMail checks the delivery settings.
func (c *Config) ValidateMail() error {
	if c.Mail.DryRun {
		return nil
	}
	var problems []string
	if c.Mail.ServiceID == "" || c.Mail.PublicKey == "" {
		problems = append(problems, "mail.service_id and mail.public_key are required unless mail.dry_run is set")
	}
	if c.Mail.Templates.ResetInstructions == "" || c.Mail.Templates.PasswordChanged == "" {
		problems = append(problems, "mail.templates.reset_instructions and mail.templates.password_changed are required")
	}
	return invalid(problems)
}

func invalid(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return oops.Code("CONFIG_INVALID").
		With("problems", problems).
		Errorf("invalid configuration: %s", strings.Join(problems, "; "))
}

// MailerConfig returns the EmailJS settings.
func (c *Config) MailerConfig() mailer.Config {
	return mailer.Config{
		Endpoint:  c.Mail.Endpoint,
		ServiceID: c.Mail.ServiceID,
		PublicKey: c.Mail.PublicKey,
		Templates: map[string]string{
			mailer.TemplateResetInstructions: c.Mail.Templates.ResetInstructions,
			mailer.TemplatePasswordChanged:   c.Mail.Templates.PasswordChanged,
		},
	}
}
