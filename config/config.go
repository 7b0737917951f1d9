// Copyright (C) 2025 the libotr-ng contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package config loads prekey client configuration from YAML with
// environment variable substitution and optional .env files.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration decodes YAML durations given either as Go duration strings
// ("336h") or as integer nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("config: invalid duration: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the root configuration document.
type Config struct {
	Account AccountConfig `yaml:"account"`
	Server  ServerConfig  `yaml:"server"`
	Prekeys PrekeyConfig  `yaml:"prekeys"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// AccountConfig identifies the local account.
type AccountConfig struct {
	Identity    string `yaml:"identity"`
	InstanceTag uint32 `yaml:"instance_tag"`
	Versions    string `yaml:"versions"`
}

// ServerConfig identifies the prekey storage server.
type ServerConfig struct {
	Identity string `yaml:"identity"`
}

// PrekeyConfig holds the prekey publication policy.
type PrekeyConfig struct {
	MaxPublished    uint32   `yaml:"max_published"`
	MinimumStored   uint32   `yaml:"minimum_stored"`
	ProfileLifetime Duration `yaml:"profile_lifetime"`
	ExpirationGrace Duration `yaml:"expiration_grace"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// setDefaults fills zero values with the library defaults.
func setDefaults(cfg *Config) {
	if cfg.Account.Versions == "" {
		cfg.Account.Versions = "4"
	}
	if cfg.Prekeys.MaxPublished == 0 {
		cfg.Prekeys.MaxPublished = 100
	}
	if cfg.Prekeys.MinimumStored == 0 {
		cfg.Prekeys.MinimumStored = 20
	}
	if cfg.Prekeys.ProfileLifetime == 0 {
		cfg.Prekeys.ProfileLifetime = Duration(14 * 24 * time.Hour)
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":9464"
	}
}

// Validate checks the mandatory identity fields.
func (cfg *Config) Validate() error {
	if cfg.Account.Identity == "" {
		return fmt.Errorf("config: account identity is required")
	}
	if cfg.Server.Identity == "" {
		return fmt.Errorf("config: server identity is required")
	}
	if cfg.Account.InstanceTag != 0 && cfg.Account.InstanceTag < 0x100 {
		return fmt.Errorf("config: instance tag %#x below 0x100", cfg.Account.InstanceTag)
	}
	return nil
}

// LoaderOptions configures Load.
type LoaderOptions struct {
	// Path is the YAML file to read.
	Path string
	// EnvFile is an optional .env file loaded before substitution.
	EnvFile string
	// SkipEnvSubstitution disables ${VAR:default} expansion.
	SkipEnvSubstitution bool
	// SkipValidation disables the mandatory-field check.
	SkipValidation bool
}

// Load reads, substitutes, defaults and validates a configuration file.
func Load(opts LoaderOptions) (*Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil {
			return nil, fmt.Errorf("config: loading env file: %w", err)
		}
	}

	raw, err := os.ReadFile(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", opts.Path, err)
	}

	text := string(raw)
	if !opts.SkipEnvSubstitution {
		text = SubstituteEnvVars(text)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(text), cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", opts.Path, err)
	}

	setDefaults(cfg)

	if !opts.SkipValidation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
