// Package sim is a network co-processor simulator for tests and manual
// experiments.
//
// A Simulator listens on TCP like a serial-to-TCP bridge. Every command a
// client sends is decoded against the schema and answered with its
// response: by default all fields are zero, or a registered Responder
// supplies the values. The reserved reset command (class 0, index 0) is
// answered with the boot event instead of a response.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/bgapi-protocol/bgapi-go/pkg/codec"
	"github.com/bgapi-protocol/bgapi-go/pkg/log"
	"github.com/bgapi-protocol/bgapi-go/pkg/schema"
	"github.com/bgapi-protocol/bgapi-go/pkg/transport"
	"github.com/bgapi-protocol/bgapi-go/pkg/wire"
)

// Simulator errors.
var (
	ErrNoSchema       = errors.New("no schema")
	ErrNoResponse     = errors.New("command has no response descriptor")
	ErrNotAnEvent     = errors.New("descriptor is not an event")
	ErrUnknownCommand = errors.New("unknown command")
)

// Responder computes the response values for one command, in response
// field order. Returning an error drops the command without a reply.
type Responder func(cmd *codec.Record) ([]any, error)

// Config configures a Simulator.
type Config struct {
	// Address to listen on. Default: ":4901".
	Address string

	// LengthMode for both directions.
	LengthMode wire.LengthMode

	// Boot holds the boot event values. Nil means all zero.
	Boot []any

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// ProtocolLogger receives raw frame events (optional).
	ProtocolLogger log.Logger
}

// Stats counts simulator traffic.
type Stats struct {
	Commands  uint64
	Responses uint64
	Events    uint64
	Dropped   uint64
}

// Simulator answers BGAPI commands over TCP.
type Simulator struct {
	schema *schema.Schema
	config Config
	server *transport.Server
	logger *slog.Logger

	mu         sync.RWMutex
	responders map[schema.Key]Responder

	commands  atomic.Uint64
	responses atomic.Uint64
	events    atomic.Uint64
	dropped   atomic.Uint64
}

// New creates a simulator for s.
func New(s *schema.Schema, config Config) (*Simulator, error) {
	if s == nil {
		return nil, ErrNoSchema
	}
	sim := &Simulator{
		schema:     s,
		config:     config,
		logger:     config.Logger,
		responders: make(map[schema.Key]Responder),
	}
	sim.server = transport.NewServer(transport.ServerConfig{
		Address:    config.Address,
		LengthMode: config.LengthMode,
		Logger:     config.ProtocolLogger,
		OnConnect: func(c *transport.ServerConn) {
			sim.debugLog("client connected", "conn_id", c.ConnID(), "remote", c.RemoteAddr())
		},
		OnDisconnect: func(c *transport.ServerConn) {
			sim.debugLog("client disconnected", "conn_id", c.ConnID())
		},
		OnFrame: sim.handleFrame,
		OnError: func(c *transport.ServerConn, err error) {
			if sim.logger == nil {
				return
			}
			if c == nil {
				sim.logger.Warn("server error", "error", err)
				return
			}
			sim.logger.Warn("connection error", "conn_id", c.ConnID(), "error", err)
		},
	})
	return sim, nil
}

// Handle registers a responder for the named command, replacing any
// previous one.
func (s *Simulator) Handle(command string, r Responder) error {
	desc, err := s.schema.Command(command)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}
	if _, ok := s.schema.ResponseFor(desc); !ok {
		return fmt.Errorf("%w: %s", ErrNoResponse, command)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.responders[desc.Key()] = r
	return nil
}

// Start begins listening.
func (s *Simulator) Start(ctx context.Context) error {
	return s.server.Start(ctx)
}

// Stop closes the listener and all clients.
func (s *Simulator) Stop() error {
	return s.server.Stop()
}

// Addr returns the listen address, or nil before Start.
func (s *Simulator) Addr() net.Addr {
	return s.server.Addr()
}

// Clients returns the number of connected clients.
func (s *Simulator) Clients() int {
	return s.server.ConnectionCount()
}

// Stats returns a snapshot of the counters.
func (s *Simulator) Stats() Stats {
	return Stats{
		Commands:  s.commands.Load(),
		Responses: s.responses.Load(),
		Events:    s.events.Load(),
		Dropped:   s.dropped.Load(),
	}
}

// Emit broadcasts an event to every client.
func (s *Simulator) Emit(desc *schema.MessageDescriptor, values ...any) error {
	if desc.Kind != schema.KindEvent {
		return fmt.Errorf("%w: %s", ErrNotAnEvent, desc)
	}
	data, err := s.encode(desc, values)
	if err != nil {
		return err
	}
	s.server.Broadcast(data)
	s.events.Add(1)
	return nil
}

func (s *Simulator) handleFrame(c *transport.ServerConn, f wire.Frame) {
	s.commands.Add(1)

	if f.Type != wire.TypeCommand {
		s.drop(c, "not a command", "type", f.Type)
		return
	}
	cmd, ok := s.schema.Lookup(schema.Key{Kind: schema.KindCommand, Class: f.Class, Index: f.Index})
	if !ok {
		s.drop(c, "unknown command", "class", f.Class, "index", f.Index)
		return
	}
	rec, err := codec.DecodePayload(cmd, f.Payload)
	if err != nil {
		s.drop(c, "undecodable command", "command", cmd.FullName(), "error", err)
		return
	}
	s.debugLog("command", "conn_id", c.ConnID(), "record", rec)

	if cmd.Class == 0 && cmd.Index == 0 {
		s.boot(c)
		return
	}

	resp, ok := s.schema.ResponseFor(cmd)
	if !ok {
		s.drop(c, "no response descriptor", "command", cmd.FullName())
		return
	}

	values := zeroValues(resp)
	s.mu.RLock()
	r := s.responders[cmd.Key()]
	s.mu.RUnlock()
	if r != nil {
		values, err = r(rec)
		if err != nil {
			s.drop(c, "responder failed", "command", cmd.FullName(), "error", err)
			return
		}
	}

	data, err := s.encode(resp, values)
	if err != nil {
		s.drop(c, "response encoding failed", "command", cmd.FullName(), "error", err)
		return
	}
	if err := c.Send(data); err != nil {
		s.drop(c, "send failed", "error", err)
		return
	}
	s.responses.Add(1)
}

func (s *Simulator) boot(c *transport.ServerConn) {
	desc, ok := s.schema.Event(0, 0)
	if !ok {
		s.drop(c, "schema has no boot event")
		return
	}
	values := s.config.Boot
	if values == nil {
		values = zeroValues(desc)
	}
	data, err := s.encode(desc, values)
	if err != nil {
		s.drop(c, "boot encoding failed", "error", err)
		return
	}
	if err := c.Send(data); err != nil {
		s.drop(c, "send failed", "error", err)
		return
	}
	s.events.Add(1)
}

func (s *Simulator) encode(desc *schema.MessageDescriptor, values []any) ([]byte, error) {
	payload, err := codec.EncodePayload(desc, values...)
	if err != nil {
		return nil, err
	}
	return wire.Frame{
		Type:    desc.MessageType(),
		Class:   desc.Class,
		Index:   desc.Index,
		Payload: payload,
	}.Bytes(s.config.LengthMode)
}

func (s *Simulator) drop(c *transport.ServerConn, reason string, args ...any) {
	s.dropped.Add(1)
	if s.logger != nil {
		s.logger.Warn("frame dropped: "+reason, append([]any{"conn_id", c.ConnID()}, args...)...)
	}
}

// debugLog logs a debug message if logging is enabled.
func (s *Simulator) debugLog(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

// zeroValues returns the zero value of every field of desc.
func zeroValues(desc *schema.MessageDescriptor) []any {
	values := make([]any, len(desc.Fields))
	for i, f := range desc.Fields {
		values[i] = ZeroValue(f.Type)
	}
	return values
}

// ZeroValue returns the zero value the codec uses for a type tag.
func ZeroValue(t wire.TypeTag) any {
	switch t {
	case wire.TypeUint8:
		return uint8(0)
	case wire.TypeInt8:
		return int8(0)
	case wire.TypeUint16:
		return uint16(0)
	case wire.TypeInt16:
		return int16(0)
	case wire.TypeUint32:
		return uint32(0)
	case wire.TypeInt32:
		return int32(0)
	case wire.TypeAddress:
		return wire.Address{}
	default:
		return []byte{}
	}
}
