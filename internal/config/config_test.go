package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "endorser.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 30*time.Second, cfg.Ledger.Timeout)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
database: /var/lib/endorser/rules.db
listen: 127.0.0.1:8080
ledger:
  admin_url: http://agent:8031
  api_key: change-me
  timeout: 5s
log_level: debug
`)
	cfg, err := Load(path, envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/endorser/rules.db", cfg.Database)
	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, "http://agent:8031", cfg.Ledger.AdminURL)
	assert.Equal(t, "change-me", cfg.Ledger.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Ledger.Timeout)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoad_EmptyFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""), envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	_, err := Load(writeConfig(t, "databse: typo.db\n"), envMap(nil))
	require.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "database: file.db\n")
	cfg, err := Load(path, envMap(map[string]string{
		"ENDORSER_DATABASE":         "env.db",
		"ENDORSER_LEDGER_ADMIN_URL": "http://localhost:8031",
		"ENDORSER_LEDGER_TIMEOUT":   "2s",
		"ENDORSER_LOG_LEVEL":        "warn",
	}))
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.Database)
	assert.Equal(t, "http://localhost:8031", cfg.Ledger.AdminURL)
	assert.Equal(t, 2*time.Second, cfg.Ledger.Timeout)
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
}

func TestLoad_BadEnvTimeout(t *testing.T) {
	_, err := Load("", envMap(map[string]string{"ENDORSER_LEDGER_TIMEOUT": "soon"}))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty database", func(c *Config) { c.Database = "" }},
		{"bad log level", func(c *Config) { c.LogLevel = "chatty" }},
		{"bad admin url", func(c *Config) { c.Ledger.AdminURL = "not a url" }},
		{"negative timeout", func(c *Config) { c.Ledger.Timeout = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), envMap(nil))
	require.Error(t, err)
}
