// Package config loads service settings from a YAML file and ENDORSER_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultDatabase      = "endorser.db"
	DefaultListen        = ":5050"
	DefaultLedgerTimeout = 30 * time.Second
	DefaultLogLevel      = "info"
)

// Config holds every setting of the service.
type Config struct {
	Database string `yaml:"database" validate:"required"`
	Listen   string `yaml:"listen" validate:"required,hostname_port"`
	Ledger   Ledger `yaml:"ledger"`
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`
}

// Ledger configures the agent admin API.
type Ledger struct {
	AdminURL string        `yaml:"admin_url" validate:"omitempty,url"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout" validate:"gte=0"`
}

var validate = validator.New()

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: DefaultDatabase,
		Listen:   DefaultListen,
		Ledger:   Ledger{Timeout: DefaultLedgerTimeout},
		LogLevel: DefaultLogLevel,
	}
}

// Load reads path (if non-empty) over the defaults, then applies
// environment overrides, then validates.
func Load(path string, env func(string) string) (Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		if err := decode(f, &cfg); err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	if env == nil {
		env = os.Getenv
	}
	if err := applyEnv(&cfg, env); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decode parses YAML strictly: unknown keys are errors.
func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config, env func(string) string) error {
	set := func(key string, dst *string) {
		if v := env(key); v != "" {
			*dst = v
		}
	}
	set("ENDORSER_DATABASE", &cfg.Database)
	set("ENDORSER_LISTEN", &cfg.Listen)
	set("ENDORSER_LEDGER_ADMIN_URL", &cfg.Ledger.AdminURL)
	set("ENDORSER_LEDGER_API_KEY", &cfg.Ledger.APIKey)
	set("ENDORSER_LOG_LEVEL", &cfg.LogLevel)

	if v := env("ENDORSER_LEDGER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ENDORSER_LEDGER_TIMEOUT: %w", err)
		}
		cfg.Ledger.Timeout = d
	}
	return nil
}

// Validate checks every field.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level. Unknown values map to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
