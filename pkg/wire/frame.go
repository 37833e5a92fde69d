package wire

import (
	"fmt"
)

// Header constants.
const (
	// HeaderSize is the size of the fixed frame header.
	HeaderSize = 4

	// MarkerCommand leads command and response frames.
	MarkerCommand byte = 0x20

	// MarkerEvent leads event frames.
	MarkerEvent byte = 0xA0

	// messageTypeBit is bit 7 of byte 0.
	messageTypeBit byte = 0x80

	// markerMask selects the message type and technology bits of byte 0.
	markerMask byte = 0xF8

	// classifyMask is the mask used to tell responses from events.
	classifyMask byte = 0xA0

	// lengthHighMask selects the length high bits of byte 0.
	lengthHighMask byte = 0x07

	// MaxPayloadAdditive is the largest payload LengthAdditive can carry.
	MaxPayloadAdditive = 0xFF

	// MaxPayloadShifted is the largest payload LengthShifted can carry.
	MaxPayloadShifted = 0x7FF
)

// MessageType distinguishes command/response frames from event frames.
type MessageType uint8

const (
	// TypeCommand is a command (outbound) or its response (inbound).
	TypeCommand MessageType = 0
	// TypeEvent is an unsolicited event.
	TypeEvent MessageType = 1
)

// String returns the message type name.
func (m MessageType) String() string {
	switch m {
	case TypeCommand:
		return "COMMAND"
	case TypeEvent:
		return "EVENT"
	default:
		return "UNKNOWN"
	}
}

// Marker returns the leading header byte for the message type.
func (m MessageType) Marker() byte {
	if m == TypeEvent {
		return MarkerEvent
	}
	return MarkerCommand
}

// LengthMode selects how the header length bits are combined.
type LengthMode uint8

const (
	// LengthAdditive computes the frame length as 4 + (byte0&7) + byte1.
	LengthAdditive LengthMode = iota
	// LengthShifted computes the payload length as (byte0&7)<<8 | byte1.
	LengthShifted
)

// String returns the mode name.
func (m LengthMode) String() string {
	switch m {
	case LengthAdditive:
		return "additive"
	case LengthShifted:
		return "shifted"
	default:
		return "unknown"
	}
}

// ParseLengthMode parses "additive" or "shifted".
func ParseLengthMode(s string) (LengthMode, error) {
	switch s {
	case "", "additive":
		return LengthAdditive, nil
	case "shifted":
		return LengthShifted, nil
	default:
		return 0, fmt.Errorf("unknown length mode %q (want additive or shifted)", s)
	}
}

// MaxPayload returns the largest payload the mode can encode.
func (m LengthMode) MaxPayload() int {
	if m == LengthShifted {
		return MaxPayloadShifted
	}
	return MaxPayloadAdditive
}

// IsMarker reports whether b may start a frame.
//
// In additive mode only the exact bytes 0x20 and 0xA0 are accepted. In
// shifted mode the length high bits may be set.
func (m LengthMode) IsMarker(b byte) bool {
	if m == LengthShifted {
		b &= markerMask
	}
	return b == MarkerCommand || b == MarkerEvent
}

// FrameLength returns the total frame length (header included) announced by
// the first two header bytes.
func (m LengthMode) FrameLength(b0, b1 byte) int {
	high := int(b0 & lengthHighMask)
	if m == LengthShifted {
		return HeaderSize + (high<<8 | int(b1))
	}
	return HeaderSize + high + int(b1)
}

// Frame is one complete wire message: header fields plus payload.
type Frame struct {
	Type    MessageType
	Class   uint8
	Index   uint8
	Payload []byte
}

// String returns a short description of the frame.
func (f Frame) String() string {
	return fmt.Sprintf("%s class=%d index=%d len=%d", f.Type, f.Class, f.Index, len(f.Payload))
}

// ClassifyMessageType derives the message type from header byte 0.
func ClassifyMessageType(b0 byte) MessageType {
	if b0&classifyMask == MarkerEvent {
		return TypeEvent
	}
	return TypeCommand
}

// EncodeHeader builds the 4-byte header for a payload of payloadLen bytes.
func EncodeHeader(mode LengthMode, t MessageType, class, index uint8, payloadLen int) ([HeaderSize]byte, error) {
	var h [HeaderSize]byte
	if payloadLen < 0 || payloadLen > mode.MaxPayload() {
		return h, fmt.Errorf("%w: payload of %d bytes exceeds %d (%s length mode)",
			ErrValueOutOfRange, payloadLen, mode.MaxPayload(), mode)
	}
	h[0] = t.Marker()
	if mode == LengthShifted {
		h[0] |= byte(payloadLen>>8) & lengthHighMask
	}
	h[1] = byte(payloadLen)
	h[2] = class
	h[3] = index
	return h, nil
}

// ParseFrame splits a complete buffer into a Frame. The buffer must hold
// exactly the number of bytes its header announces.
func ParseFrame(mode LengthMode, buf []byte) (Frame, error) {
	if len(buf) < HeaderSize {
		return Frame{}, fmt.Errorf("%w: %d bytes is shorter than the header", ErrTruncatedPayload, len(buf))
	}
	if !mode.IsMarker(buf[0]) {
		return Frame{}, fmt.Errorf("%w: leading byte 0x%02x", ErrInvalidHeader, buf[0])
	}
	if want := mode.FrameLength(buf[0], buf[1]); want != len(buf) {
		return Frame{}, fmt.Errorf("%w: header announces %d bytes, have %d", ErrTruncatedPayload, want, len(buf))
	}
	payload := make([]byte, len(buf)-HeaderSize)
	copy(payload, buf[HeaderSize:])
	return Frame{
		Type:    ClassifyMessageType(buf[0]),
		Class:   buf[2],
		Index:   buf[3],
		Payload: payload,
	}, nil
}

// Bytes encodes the frame back into wire form.
func (f Frame) Bytes(mode LengthMode) ([]byte, error) {
	h, err := EncodeHeader(mode, f.Type, f.Class, f.Index, len(f.Payload))
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, HeaderSize+len(f.Payload))
	out = append(out, h[:]...)
	return append(out, f.Payload...), nil
}
