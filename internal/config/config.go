// Package config loads bequest settings from BEQUEST_* environment variables.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/kelseyhightower/envconfig"

	"github.com/jmcleod/bequest/crypto"
)

// Prefix is prepended to every environment variable name.
const Prefix = "BEQUEST"

// Store backends.
const (
	StoreFile     = "file"
	StoreBolt     = "bolt"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Key derivation functions.
const (
	KDFSHA256   = "sha256"
	KDFArgon2id = "argon2id"
)

// Config holds process-wide settings. Command-line flags override it.
type Config struct {
	DataDir     string `envconfig:"DATA_DIR" default:"./data"`
	Port        int    `envconfig:"PORT" default:"8443"`
	Store       string `envconfig:"STORE" default:"file"`
	PostgresDSN string `envconfig:"POSTGRES_DSN"`
	KDF         string `envconfig:"KDF" default:"sha256"`
	KDFProfile  string `envconfig:"KDF_PROFILE" default:"moderate"`
	Watermark   bool   `envconfig:"WATERMARK" default:"false"`
	TLSCert     string `envconfig:"TLS_CERT"`
	TLSKey      string `envconfig:"TLS_KEY"`
	WebhookURL  string `envconfig:"AUDIT_WEBHOOK_URL"`
	WebhookAuth string `envconfig:"AUDIT_WEBHOOK_AUTH"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"text"`
}

// FromEnv reads the environment without validating, so that command-line
// flags can still override invalid values. On error the returned Config holds
// whatever was parsed before the failure.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return &cfg, fmt.Errorf("processing environment: %w", err)
	}
	return &cfg, nil
}

// Validate checks enumerated settings and cross-field requirements.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreFile, StoreBolt, StoreMemory:
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%s_POSTGRES_DSN is required for the postgres store", Prefix)
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}

	if _, err := c.KeyDeriver(); err != nil {
		return err
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return fmt.Errorf("TLS certificate and key must be set together")
	}
	if c.WebhookURL != "" && !strings.HasPrefix(c.WebhookURL, "https://") && !strings.HasPrefix(c.WebhookURL, "http://") {
		return fmt.Errorf("audit webhook URL must be http or https: %q", c.WebhookURL)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}

// KeyDeriver returns the configured key deriver. Issuer and validator must
// agree on it.
func (c *Config) KeyDeriver() (crypto.KeyDeriver, error) {
	switch c.KDF {
	case KDFSHA256:
		return crypto.SaltedSHA256{}, nil
	case KDFArgon2id:
		d, err := crypto.NewArgon2idDeriver(c.KDFProfile)
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown kdf %q", c.KDF)
	}
}

// Logger builds a slog.Logger writing to w in the configured format.
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
