package log

import (
	"time"

	"github.com/bgapi-protocol/bgapi-go/pkg/schema"
)

// Event is one captured protocol event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID identifies the session (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Port describes the transport, e.g. "tcp://10.0.0.5:4901".
	Port string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"` // Raw frame bytes
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"` // Decoded message
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"` // Busy/idle, reassembler, connection
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	DirectionIn  Direction = 0
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which part of the stack captured the event.
type Layer uint8

const (
	// LayerTransport is the byte stream and frame reassembly.
	LayerTransport Layer = 0
	// LayerCodec is payload encoding and decoding.
	LayerCodec Layer = 1
	// LayerSession is dispatch and the busy/idle lifecycle.
	LayerSession Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerCodec:
		return "CODEC"
	case LayerSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	CategoryMessage Category = 0
	CategoryState   Category = 1
	CategoryError   Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame bytes, header included.
type FrameEvent struct {
	// Size is the frame size in bytes.
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// MessageEvent captures a decoded or encoded message.
type MessageEvent struct {
	Kind  schema.Kind `cbor:"1,keyasint"`
	Class uint8       `cbor:"2,keyasint"`
	Index uint8       `cbor:"3,keyasint"`

	// Name is the full message name, empty for unknown frames.
	Name string `cbor:"4,keyasint,omitempty"`

	// Fields holds the field values (addresses as strings).
	Fields map[string]any `cbor:"5,keyasint,omitempty"`

	// Unhandled is set for frames with no matching descriptor.
	Unhandled bool `cbor:"6,keyasint,omitempty"`
}

// StateChangeEvent captures lifecycle transitions.
type StateChangeEvent struct {
	Entity   StateEntity `cbor:"1,keyasint"`
	OldState string      `cbor:"2,keyasint,omitempty"`
	NewState string      `cbor:"3,keyasint"`
	Reason   string      `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what changed state.
type StateEntity uint8

const (
	// StateEntityBusy is the outstanding-command flag.
	StateEntityBusy StateEntity = 0
	// StateEntityReassembler is the frame reassembler.
	StateEntityReassembler StateEntity = 1
	// StateEntityConnection is the transport connection.
	StateEntityConnection StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityBusy:
		return "BUSY"
	case StateEntityReassembler:
		return "REASSEMBLER"
	case StateEntityConnection:
		return "CONNECTION"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	Layer   Layer  `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
