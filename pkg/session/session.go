// Package session drives one BGAPI connection: it encodes and transmits
// commands, reassembles and dispatches incoming frames, and tracks whether
// a command is outstanding.
//
// A Session is single-threaded. Transmit, the read calls and every bus
// handler run on the goroutine that calls them; no goroutines are started.
// The busy flag is advisory: nothing stops a caller from sending a second
// command before the first response arrives.
package session

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/bgapi-protocol/bgapi-go/pkg/event"
	"github.com/bgapi-protocol/bgapi-go/pkg/log"
	"github.com/bgapi-protocol/bgapi-go/pkg/schema"
	"github.com/bgapi-protocol/bgapi-go/pkg/transport"
)

// Stats counts session traffic since creation.
type Stats struct {
	FramesOut    uint64
	FramesIn     uint64
	Unhandled    uint64
	DecodeErrors uint64
	Timeouts     uint64
}

// Session is the protocol engine for one transport connection.
type Session struct {
	schema *schema.Schema
	port   transport.Port
	bus    *event.Bus
	reasm  *transport.Reassembler
	config Config
	connID string

	busy    atomic.Bool
	sentAt  time.Time
	backlog []byte
	stats   Stats

	logger   *slog.Logger
	protocol log.Logger
}

// New creates a session over port. The bus gets one channel per descriptor
// of s.
func New(s *schema.Schema, port transport.Port, config Config) (*Session, error) {
	if s == nil {
		return nil, ErrNoSchema
	}
	if port == nil {
		return nil, ErrNoPort
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.ResponseTimeout == 0 {
		config.ResponseTimeout = DefaultConfig().ResponseTimeout
	}

	connID := config.ConnectionID
	if connID == "" {
		connID = uuid.New().String()
	}

	sess := &Session{
		schema:   s,
		port:     port,
		bus:      event.NewBus(s),
		reasm:    transport.NewReassembler(config.LengthMode),
		config:   config,
		connID:   connID,
		logger:   config.Logger,
		protocol: config.ProtocolLogger,
	}
	if sess.protocol != nil {
		sess.reasm.SetLogger(sess.protocol, connID)
	}
	return sess, nil
}

// Schema returns the session schema.
func (s *Session) Schema() *schema.Schema {
	return s.schema
}

// Bus returns the notification bus.
func (s *Session) Bus() *event.Bus {
	return s.bus
}

// ID returns the connection ID used in protocol log events.
func (s *Session) ID() string {
	return s.connID
}

// Port returns the current transport.
func (s *Session) Port() transport.Port {
	return s.port
}

// Busy reports whether a command is outstanding.
func (s *Session) Busy() bool {
	return s.busy.Load()
}

// Stats returns a copy of the traffic counters.
func (s *Session) Stats() Stats {
	return s.stats
}

// Reassembler returns the session reassembler, for inspection.
func (s *Session) Reassembler() *transport.Reassembler {
	return s.reasm
}

// Reset discards any partial frame and unread bytes and clears the busy
// flag without firing notifications. Subscriptions are kept.
func (s *Session) Reset() {
	s.reasm.Reset()
	s.backlog = nil
	s.setBusy(false, "reset")
}

// Attach replaces the transport, for example after a reconnect, and
// resets the session. The previous port is not closed.
func (s *Session) Attach(port transport.Port) error {
	if port == nil {
		return ErrNoPort
	}
	s.port = port
	s.Reset()
	s.debugLog("port attached", "port", portName(port))
	return nil
}

// Close closes the transport.
func (s *Session) Close() error {
	return s.port.Close()
}

func (s *Session) setBusy(busy bool, reason string) {
	old := s.busy.Swap(busy)
	if old == busy || s.protocol == nil {
		return
	}
	s.protocol.Log(log.NewStateEvent(s.connID, log.StateEntityBusy, busyName(old), busyName(busy), reason))
}

func busyName(b bool) string {
	if b {
		return "BUSY"
	}
	return "IDLE"
}

func portName(p transport.Port) string {
	if str, ok := p.(fmt.Stringer); ok {
		return str.String()
	}
	return fmt.Sprintf("%T", p)
}

// debugLog logs a debug message if logging is enabled.
func (s *Session) debugLog(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, append([]any{"conn_id", s.connID}, args...)...)
	}
}

func (s *Session) warnLog(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, append([]any{"conn_id", s.connID}, args...)...)
	}
}
