package session

import (
	"errors"
	"log/slog"
	"time"

	"github.com/bgapi-protocol/bgapi-go/pkg/log"
	"github.com/bgapi-protocol/bgapi-go/pkg/wire"
)

// Config configures a Session.
type Config struct {
	// LengthMode selects how the header length bits are combined.
	// The zero value is wire.LengthAdditive.
	LengthMode wire.LengthMode

	// ConnectionID tags protocol log events. A random UUID is used if empty.
	ConnectionID string

	// ResponseTimeout bounds each read of Call. Default: 1s.
	ResponseTimeout time.Duration

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// ProtocolLogger receives frame, message and state events (optional).
	ProtocolLogger log.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LengthMode:      wire.LengthAdditive,
		ResponseTimeout: time.Second,
	}
}

// Validate checks the config.
func (c *Config) Validate() error {
	if c.LengthMode != wire.LengthAdditive && c.LengthMode != wire.LengthShifted {
		return ErrInvalidConfig
	}
	if c.ResponseTimeout < 0 {
		return ErrInvalidConfig
	}
	return nil
}

// Session errors.
var (
	ErrInvalidConfig = errors.New("invalid session config")
	ErrNoSchema      = errors.New("session requires a schema")
	ErrNoPort        = errors.New("session requires a port")

	// ErrNotCommand indicates Send with a response or event descriptor.
	ErrNotCommand = errors.New("descriptor is not a command")

	// ErrResponseTimeout indicates Call gave up waiting for the response.
	ErrResponseTimeout = errors.New("response timeout")
)
