// Copyright 2026 The Playable Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Playable services.
//
// Configuration is loaded from a single file specified by:
//   - PLAYABLE_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for the preview daemon.
type Config struct {
	// Server configures the HTTP listener.
	Server ServerConfig `yaml:"server"`

	// Store configures blob persistence.
	Store StoreConfig `yaml:"store"`

	// LiveConfig configures editor write debouncing.
	LiveConfig LiveConfigConfig `yaml:"live_config"`

	// Export configures the transcoding targets.
	Export ExportConfig `yaml:"export"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Listen is the address the daemon binds, host:port.
	Listen string `yaml:"listen"`

	// ShutdownTimeout bounds graceful drain on shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StoreConfig configures blob persistence.
type StoreConfig struct {
	// Root is the directory for persisted namespaces. Empty keeps
	// the store purely in memory.
	Root string `yaml:"root"`
}

// LiveConfigConfig configures editor write debouncing.
type LiveConfigConfig struct {
	// DebounceWindow is the quiet period after the last variable
	// write before a reload notification fires.
	DebounceWindow time.Duration `yaml:"debounce_window"`
}

// ExportConfig configures the transcoding targets.
type ExportConfig struct {
	// ZipCeiling is the byte ceiling for zip-folder artifacts.
	// 0 disables enforcement.
	ZipCeiling int64 `yaml:"zip_ceiling"`

	// InlineCeiling is the byte ceiling for inline-html artifacts.
	// 0 disables enforcement.
	InlineCeiling int64 `yaml:"inline_ceiling"`
}

// Default returns the default configuration. These defaults are used
// as a base before loading the config file, so every field has a
// sensible zero-value even when the file only sets a subset.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:          "127.0.0.1:8080",
			ShutdownTimeout: 10 * time.Second,
		},
		LiveConfig: LiveConfigConfig{
			DebounceWindow: 300 * time.Millisecond,
		},
		Export: ExportConfig{
			ZipCeiling: 5 << 20,
		},
	}
}

// Load loads configuration from the PLAYABLE_CONFIG environment
// variable. There are no fallbacks: if PLAYABLE_CONFIG is not set,
// this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("PLAYABLE_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("PLAYABLE_CONFIG environment variable not set; " +
			"set it to the path of your playable.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, merging it
// over the defaults. The config file is the single source of truth;
// environment variables do not override its values.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, fmt.Errorf("server.listen is required"))
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout must not be negative"))
	}
	if c.LiveConfig.DebounceWindow < 0 {
		errs = append(errs, fmt.Errorf("live_config.debounce_window must not be negative"))
	}
	if c.Export.ZipCeiling < 0 {
		errs = append(errs, fmt.Errorf("export.zip_ceiling must not be negative"))
	}
	if c.Export.InlineCeiling < 0 {
		errs = append(errs, fmt.Errorf("export.inline_ceiling must not be negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
