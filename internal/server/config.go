package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config represents the complete server configuration
type Config struct {
	Server  Settings      `hcl:"server,block"`
	Session SessionConfig `hcl:"session,block"`
}

// Settings contains server-level configuration
type Settings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// SessionConfig defines the single long-lived game session
type SessionConfig struct {
	Seats          int    `hcl:"seats,optional"`
	ComputerFill   bool   `hcl:"computer_fill,optional"`
	DealDelayMs    int    `hcl:"deal_delay_ms,optional"`
	ThinkDelayMs   int    `hcl:"think_delay_ms,optional"`
	RestartDelayMs int    `hcl:"restart_delay_ms,optional"`
	WindowMs       int    `hcl:"interjection_window_ms,optional"`
	Seed           int64  `hcl:"seed,optional"`
	Rules          string `hcl:"rules,optional"`
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Server: Settings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Session: SessionConfig{
			Seats:          4,
			ComputerFill:   true,
			DealDelayMs:    300,
			ThinkDelayMs:   1200,
			RestartDelayMs: 10000,
			WindowMs:       2500,
			Rules:          "cambio",
		},
	}
}

// LoadConfig loads server configuration from an HCL file. A missing file
// yields the defaults.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	defaults := DefaultConfig()
	if config.Server.Address == "" {
		config.Server.Address = defaults.Server.Address
	}
	if config.Server.Port == 0 {
		config.Server.Port = defaults.Server.Port
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = defaults.Server.LogLevel
	}
	if config.Session.Seats == 0 {
		config.Session.Seats = defaults.Session.Seats
	}
	if config.Session.DealDelayMs == 0 {
		config.Session.DealDelayMs = defaults.Session.DealDelayMs
	}
	if config.Session.ThinkDelayMs == 0 {
		config.Session.ThinkDelayMs = defaults.Session.ThinkDelayMs
	}
	if config.Session.RestartDelayMs == 0 {
		config.Session.RestartDelayMs = defaults.Session.RestartDelayMs
	}
	if config.Session.WindowMs == 0 {
		config.Session.WindowMs = defaults.Session.WindowMs
	}
	if config.Session.Rules == "" {
		config.Session.Rules = defaults.Session.Rules
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Session.Seats < 2 || c.Session.Seats > 8 {
		return fmt.Errorf("seats must be between 2 and 8, got %d", c.Session.Seats)
	}
	if c.Session.Rules != "cambio" {
		return fmt.Errorf("unknown rules %q", c.Session.Rules)
	}
	return nil
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// DealDelay returns the inter-deal delay as a duration.
func (sc SessionConfig) DealDelay() time.Duration {
	return time.Duration(sc.DealDelayMs) * time.Millisecond
}

// ThinkDelay returns the computer thinking delay as a duration.
func (sc SessionConfig) ThinkDelay() time.Duration {
	return time.Duration(sc.ThinkDelayMs) * time.Millisecond
}

// RestartDelay returns the post-game restart delay as a duration.
func (sc SessionConfig) RestartDelay() time.Duration {
	return time.Duration(sc.RestartDelayMs) * time.Millisecond
}

// Window returns the interjection window as a duration.
func (sc SessionConfig) Window() time.Duration {
	return time.Duration(sc.WindowMs) * time.Millisecond
}
