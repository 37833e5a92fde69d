package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bgapi-protocol/bgapi-go/pkg/connection"
	"github.com/bgapi-protocol/bgapi-go/pkg/wire"
)

// Config holds the console configuration. Flags override values read from
// the -config file.
type Config struct {
	Address     string                   `yaml:"address"`
	Discover    bool                     `yaml:"discover"`
	Instance    string                   `yaml:"instance"`
	Schema      string                   `yaml:"schema"`
	Capture     string                   `yaml:"capture"`
	LengthMode  string                   `yaml:"length_mode"`
	Timeout     time.Duration            `yaml:"timeout"`
	Backoff     connection.BackoffConfig `yaml:"backoff"`
	MaxAttempts int                      `yaml:"max_attempts"`
	LogLevel    string                   `yaml:"log_level"`
}

var errNoTarget = errors.New("either address or discover must be set")

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Address:    "localhost:4901",
		LengthMode: wire.LengthAdditive.String(),
		Timeout:    time.Second,
		Backoff:    connection.BackoffConfig{Jitter: connection.JitterFactor},
		LogLevel:   "info",
	}
}

// LoadConfig reads a YAML file on top of the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration and returns the parsed length mode.
func (c *Config) Validate() (wire.LengthMode, error) {
	mode, err := wire.ParseLengthMode(c.LengthMode)
	if err != nil {
		return mode, err
	}
	if !c.Discover && c.Address == "" {
		return mode, errNoTarget
	}
	if c.Timeout <= 0 {
		return mode, fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.MaxAttempts < 0 {
		return mode, fmt.Errorf("max_attempts must not be negative, got %d", c.MaxAttempts)
	}
	return mode, nil
}
