// Package codec turns schema descriptors and Go values into BGAPI frames
// and back.
//
// EncodeCommand builds a complete command frame from positional arguments.
// DecodePayload decodes a received payload into a Record keyed by field
// name. Neither function keeps state.
package codec

import (
	"fmt"

	"github.com/bgapi-protocol/bgapi-go/pkg/schema"
	"github.com/bgapi-protocol/bgapi-go/pkg/wire"
)

// EncodeCommand encodes a command frame using the additive length mode.
func EncodeCommand(desc *schema.MessageDescriptor, args ...any) ([]byte, error) {
	return EncodeCommandMode(wire.LengthAdditive, desc, args...)
}

// EncodeCommandMode encodes a command frame: the 4-byte header followed by
// each argument encoded as its field type, in field order.
func EncodeCommandMode(mode wire.LengthMode, desc *schema.MessageDescriptor, args ...any) ([]byte, error) {
	if desc.Kind != schema.KindCommand {
		return nil, fmt.Errorf("%w: %s is not a command", wire.ErrArgumentMismatch, desc)
	}
	payload, err := EncodePayload(desc, args...)
	if err != nil {
		return nil, err
	}
	return wire.Frame{
		Type:    desc.MessageType(),
		Class:   desc.Class,
		Index:   desc.Index,
		Payload: payload,
	}.Bytes(mode)
}

// EncodePayload encodes args against desc's fields without a header. Any
// descriptor kind is accepted, which lets tests and simulators build
// response and event payloads.
func EncodePayload(desc *schema.MessageDescriptor, args ...any) ([]byte, error) {
	if len(args) != len(desc.Fields) {
		return nil, fmt.Errorf("%w: %s takes %d arguments, got %d",
			wire.ErrArgumentMismatch, desc.FullName(), len(desc.Fields), len(args))
	}

	size := 0
	for i, f := range desc.Fields {
		n, err := wire.EncodedSize(f.Type, args[i])
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", desc.FullName(), f.Name, err)
		}
		size += n
	}

	payload := make([]byte, 0, size)
	for i, f := range desc.Fields {
		var err error
		payload, err = wire.AppendValue(payload, f.Type, args[i])
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", desc.FullName(), f.Name, err)
		}
	}
	return payload, nil
}

// EncodeRecord encodes a Record's values in field order. Missing fields
// are an ErrArgumentMismatch.
func EncodeRecord(r *Record) ([]byte, error) {
	args := make([]any, len(r.Message.Fields))
	for i, f := range r.Message.Fields {
		v, ok := r.Values[f.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s missing field %q", wire.ErrArgumentMismatch, r.Message.FullName(), f.Name)
		}
		args[i] = v
	}
	return EncodePayload(r.Message, args...)
}

// DecodePayload decodes payload left to right using desc's fields.
//
// Bytes left over after the last fixed-width field are ignored. A
// uint8array field takes every byte after its length byte.
func DecodePayload(desc *schema.MessageDescriptor, payload []byte) (*Record, error) {
	rec := &Record{
		Message: desc,
		Values:  make(map[string]any, len(desc.Fields)),
	}
	offset := 0
	for _, f := range desc.Fields {
		v, n, err := wire.DecodeValue(f.Type, payload, offset)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", desc.FullName(), f.Name, err)
		}
		rec.Values[f.Name] = v
		offset += n
	}
	return rec, nil
}

// DecodeFrame looks up the descriptor for a frame and decodes its payload.
// Command-type frames are decoded as responses. The boolean is false when
// the schema has no descriptor for the frame.
func DecodeFrame(s *schema.Schema, f wire.Frame) (*Record, bool, error) {
	desc, ok := s.Lookup(KeyForFrame(f))
	if !ok {
		return nil, false, nil
	}
	rec, err := DecodePayload(desc, f.Payload)
	if err != nil {
		return nil, true, err
	}
	return rec, true, nil
}

// KeyForFrame returns the descriptor identity an inbound frame maps to.
func KeyForFrame(f wire.Frame) schema.Key {
	kind := schema.KindResponse
	if f.Type == wire.TypeEvent {
		kind = schema.KindEvent
	}
	return schema.Key{Kind: kind, Class: f.Class, Index: f.Index}
}
