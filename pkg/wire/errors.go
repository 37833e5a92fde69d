package wire

import "errors"

// Codec errors.
var (
	// ErrArgumentMismatch indicates the wrong number of arguments or an
	// argument of the wrong Go type for its field.
	ErrArgumentMismatch = errors.New("argument mismatch")

	// ErrValueOutOfRange indicates a value that does not fit its field type,
	// or a payload too long for the frame length field.
	ErrValueOutOfRange = errors.New("value out of range")

	// ErrTruncatedPayload indicates fewer payload bytes than the fields need.
	ErrTruncatedPayload = errors.New("truncated payload")

	// ErrUnknownType indicates a type name or tag outside the defined set.
	ErrUnknownType = errors.New("unknown field type")

	// ErrInvalidHeader indicates a header that does not start with a
	// recognized marker.
	ErrInvalidHeader = errors.New("invalid frame header")
)
