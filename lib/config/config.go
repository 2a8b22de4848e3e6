// Copyright 2026 The VoiceCode Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "30s" or "2m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the plain time.Duration value.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full client configuration.
type Config struct {
	// Server locates the backend WebSocket endpoint.
	Server ServerConfig `yaml:"server"`

	// Reconnect bounds the exponential-backoff reconnect loop.
	Reconnect ReconnectConfig `yaml:"reconnect"`

	// Keepalive configures the periodic ping frame.
	Keepalive KeepaliveConfig `yaml:"keepalive"`

	// Locks configures the per-session prompt lock safety net.
	Locks LockConfig `yaml:"locks"`

	// Storage configures the local SQLite cache.
	Storage StorageConfig `yaml:"storage"`
}

// ServerConfig locates the backend.
type ServerConfig struct {
	// Host of the backend server.
	Host string `yaml:"host"`

	// Port of the backend server.
	Port int `yaml:"port"`
}

// URL returns the WebSocket endpoint for the configured server.
func (s ServerConfig) URL() string {
	return fmt.Sprintf("ws://%s:%d/ws", s.Host, s.Port)
}

// ReconnectConfig bounds the reconnect loop.
type ReconnectConfig struct {
	// MaxAttempts is the number of consecutive failed connections
	// tolerated before the client gives up and surfaces a permanent
	// disconnected state. Default 20.
	MaxAttempts int `yaml:"max_attempts"`

	// MaxDelay caps the exponential backoff between attempts.
	// Default 30s.
	MaxDelay Duration `yaml:"max_delay"`
}

// KeepaliveConfig configures the ping frame cadence.
type KeepaliveConfig struct {
	// Interval between ping frames while connected. Default 30s.
	Interval Duration `yaml:"interval"`
}

// LockConfig configures the session lock tracker.
type LockConfig struct {
	// Timeout is the safety ceiling after which a session lock is
	// released even without a turn-completion signal. Default 3m.
	Timeout Duration `yaml:"timeout"`
}

// StorageConfig configures local persistence.
type StorageConfig struct {
	// Path to the SQLite database file. The parent directory is
	// created on open.
	Path string `yaml:"path"`
}

// Default returns the baseline configuration. A config file overrides
// these values field by field.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Reconnect: ReconnectConfig{
			MaxAttempts: 20,
			MaxDelay:    Duration(30 * time.Second),
		},
		Keepalive: KeepaliveConfig{
			Interval: Duration(30 * time.Second),
		},
		Locks: LockConfig{
			Timeout: Duration(3 * time.Minute),
		},
		Storage: StorageConfig{
			Path: filepath.Join(home, ".cache", "voicecode", "voicecode.db"),
		},
	}
}

// Load reads the file named by VOICECODE_CONFIG. When the variable is
// unset, the defaults are returned unchanged — the client works out of
// the box against localhost.
func Load() (*Config, error) {
	path := os.Getenv("VOICECODE_CONFIG")
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from an explicit path, merged over the
// defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the client cannot run
// with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Host == "" {
		errs = append(errs, fmt.Errorf("server.host is required"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Reconnect.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("reconnect.max_attempts must be positive"))
	}
	if c.Reconnect.MaxDelay.Std() < time.Second {
		errs = append(errs, fmt.Errorf("reconnect.max_delay must be at least 1s"))
	}
	if c.Keepalive.Interval <= 0 {
		errs = append(errs, fmt.Errorf("keepalive.interval must be positive"))
	}
	if c.Locks.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("locks.timeout must be positive"))
	}
	if c.Storage.Path == "" {
		errs = append(errs, fmt.Errorf("storage.path is required"))
	}

	return errors.Join(errs...)
}
