package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cambio.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigMissingFileYieldsDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigParsesValues(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
server {
  address = "0.0.0.0"
  port    = 9000
}

session {
  seats                  = 6
  computer_fill          = true
  deal_delay_ms          = 100
  think_delay_ms         = 400
  restart_delay_ms       = 5000
  interjection_window_ms = 1500
  seed                   = 42
  rules                  = "cambio"
}
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0", cfg.Server.Address)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:9000", cfg.GetServerAddress())

	assert.Equal(t, 6, cfg.Session.Seats)
	assert.True(t, cfg.Session.ComputerFill)
	assert.Equal(t, int64(42), cfg.Session.Seed)
	assert.Equal(t, 100*time.Millisecond, cfg.Session.DealDelay())
	assert.Equal(t, 400*time.Millisecond, cfg.Session.ThinkDelay())
	assert.Equal(t, 5*time.Second, cfg.Session.RestartDelay())
	assert.Equal(t, 1500*time.Millisecond, cfg.Session.Window())
}

func TestLoadConfigFillsOmittedFields(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
server {
  port = 9000
}

session {
  seats = 3
}
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	defaults := DefaultConfig()
	assert.Equal(t, defaults.Server.Address, cfg.Server.Address)
	assert.Equal(t, defaults.Server.LogLevel, cfg.Server.LogLevel)
	assert.Equal(t, defaults.Session.Rules, cfg.Session.Rules)
	assert.Equal(t, defaults.Session.WindowMs, cfg.Session.WindowMs)
	assert.Equal(t, 3, cfg.Session.Seats)
}

func TestLoadConfigRejectsBadHCL(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `server { port = `)
	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"port too low", func(c *Config) { c.Server.Port = 0 }, false},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, false},
		{"too few seats", func(c *Config) { c.Session.Seats = 1 }, false},
		{"too many seats", func(c *Config) { c.Session.Seats = 9 }, false},
		{"unknown rules", func(c *Config) { c.Session.Rules = "poker" }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
