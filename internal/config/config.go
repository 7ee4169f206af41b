// Package config loads the safe tool configuration from the environment and
// merges command-line overrides on top of it.
package config

import (
	"errors"
	"fmt"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

const (
	// EnvPrefix is prepended to every environment variable name.
	EnvPrefix = "SAFE_"

	DefaultStorePath = ".safe"
	DefaultLogLevel  = "warn"
	DefaultService   = "safe"
)

var (
	ErrInvalidStorePath = errors.New("invalid store path")
	ErrInvalidLogLevel  = errors.New("invalid log level")
)

// Config holds the tool settings.
type Config struct {
	// StorePath is the record database file.
	// Env: SAFE_STORE
	StorePath string `env:"STORE" envDefault:".safe"`

	// Passphrase skips the interactive prompt when set.
	// Env: SAFE_PASSPHRASE
	Passphrase string `env:"PASSPHRASE"`

	// LogLevel is a zerolog level name.
	// Env: SAFE_LOG_LEVEL
	LogLevel string `env:"LOG_LEVEL" envDefault:"warn"`

	// NoKeyring disables reading and writing cached keys.
	// Env: SAFE_NO_KEYRING
	NoKeyring bool `env:"NO_KEYRING"`

	// KeyringService is the OS keyring service name.
	// Env: SAFE_KEYRING_SERVICE
	KeyringService string `env:"KEYRING_SERVICE" envDefault:"safe"`
}

// Load reads the environment and applies non-zero fields of overrides.
func Load(overrides *Config) (*Config, error) {
	cfg := &Config{}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}

	if overrides != nil {
		if err := mergo.Merge(cfg, overrides, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("error merging configs: %w", err)
		}
	}

	return cfg, cfg.Validate()
}

func parseEnv(cfg *Config) error {
	err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix})
	if err != nil {
		return fmt.Errorf("error getting env configs: %w", err)
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.StorePath == "" {
		return ErrInvalidStorePath
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
	}
	return nil
}

// Level returns the parsed log level.
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.WarnLevel
	}
	return level
}
