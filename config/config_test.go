package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitanogama/ocpp-manager/errors"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "data/ocpp.db", cfg.Database.Path)
	assert.Equal(t, 10*time.Second, cfg.Call.Timeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Empty(t, cfg.NATS.URL)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
server:
  addr: ":9090"
nats:
  url: nats://localhost:4222
call:
  timeout: 5s
logging:
  level: debug
  format: text
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Equal(t, 5*time.Second, cfg.Call.Timeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	// Untouched sections keep their defaults.
	assert.Equal(t, "data/ocpp.db", cfg.Database.Path)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, errors.ErrMissingConfig)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeFile(t, "server: [not a mapping")
	_, err := Load(path)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }},
		{"empty db path", func(c *Config) { c.Database.Path = "" }},
		{"zero timeout", func(c *Config) { c.Call.Timeout = 0 }},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad format", func(c *Config) { c.Logging.Format = "logfmt" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), errors.ErrInvalidConfig)
		})
	}
}
