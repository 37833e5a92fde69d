package session

import (
	"fmt"
	"time"

	"github.com/bgapi-protocol/bgapi-go/pkg/codec"
	"github.com/bgapi-protocol/bgapi-go/pkg/event"
	"github.com/bgapi-protocol/bgapi-go/pkg/log"
	"github.com/bgapi-protocol/bgapi-go/pkg/schema"
)

// Send encodes a command and transmits it.
func (s *Session) Send(desc *schema.MessageDescriptor, args ...any) error {
	if desc.Kind != schema.KindCommand {
		return fmt.Errorf("%w: %s", ErrNotCommand, desc)
	}
	packet, err := codec.EncodeCommandMode(s.config.LengthMode, desc, args...)
	if err != nil {
		return err
	}
	if s.protocol != nil {
		rec, err := codec.NewRecord(desc, args...)
		if err == nil {
			s.protocol.Log(s.messageEvent(log.DirectionOut, rec))
		}
	}
	s.debugLog("send", "command", desc.FullName(), "len", len(packet))
	return s.Transmit(packet)
}

// SendCommand looks a command up by its full name and sends it.
func (s *Session) SendCommand(name string, args ...any) error {
	desc, err := s.schema.Command(name)
	if err != nil {
		return err
	}
	return s.Send(desc, args...)
}

// Transmit writes an encoded command. It fires before-transmit, marks the
// session busy, fires busy, writes, then fires transmit-complete. A
// handler error aborts the sequence where it occurred. A write error
// clears the busy flag without firing idle.
func (s *Session) Transmit(packet []byte) error {
	if err := s.bus.FireLifecycle(event.ChannelBeforeTransmit); err != nil {
		return err
	}

	s.sentAt = time.Now()
	s.setBusy(true, "transmit")
	if err := s.bus.FireLifecycle(event.ChannelBusy); err != nil {
		return err
	}

	if err := s.port.Write(packet); err != nil {
		s.setBusy(false, "write failed")
		if s.protocol != nil {
			s.protocol.Log(log.NewErrorEvent(s.connID, log.LayerTransport, err, "transmit"))
		}
		return fmt.Errorf("transmit: %w", err)
	}
	s.stats.FramesOut++
	if s.protocol != nil {
		e := log.NewFrameEvent(s.connID, log.DirectionOut, packet)
		e.Port = portName(s.port)
		s.protocol.Log(e)
	}

	return s.bus.FireLifecycle(event.ChannelTransmitComplete)
}

// Call sends a command and reads until its response is dispatched. Events
// that arrive meanwhile are dispatched as usual. It fails with
// ErrResponseTimeout if the response has not arrived within
// Config.ResponseTimeout.
func (s *Session) Call(desc *schema.MessageDescriptor, args ...any) (*codec.Record, error) {
	resp, ok := s.schema.ResponseFor(desc)
	if !ok {
		return nil, fmt.Errorf("%w: no response for %s", schema.ErrNotFound, desc)
	}

	var got *codec.Record
	ch := event.ChannelFor(resp)
	id, err := s.bus.Subscribe(ch, func(n event.Notification) error {
		got = n.Record
		return nil
	})
	if err != nil {
		return nil, err
	}
	defer s.bus.Unsubscribe(ch, id)

	if err := s.Send(desc, args...); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(s.config.ResponseTimeout)
	for got == nil {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("%w: %s", ErrResponseTimeout, desc.FullName())
		}
		if err := s.CheckActivity(remaining); err != nil {
			return nil, err
		}
	}
	return got, nil
}

// CallCommand is Call with a command looked up by name.
func (s *Session) CallCommand(name string, args ...any) (*codec.Record, error) {
	desc, err := s.schema.Command(name)
	if err != nil {
		return nil, err
	}
	return s.Call(desc, args...)
}
