package wire

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TypeTag identifies the wire type of a message field.
type TypeTag uint8

const (
	TypeUint8 TypeTag = iota + 1
	TypeInt8
	TypeUint16
	TypeInt16
	TypeUint32
	TypeInt32
	TypeAddress
	TypeByteArray
)

// AddressSize is the width of a bd_addr field.
const AddressSize = 6

// MaxByteArrayLen is the largest array that fits behind a one-byte length.
const MaxByteArrayLen = 255

// VariableWidth is returned by Width for types without a fixed size.
const VariableWidth = -1

var typeNames = map[TypeTag]string{
	TypeUint8:     "uint8",
	TypeInt8:      "int8",
	TypeUint16:    "uint16",
	TypeInt16:     "int16",
	TypeUint32:    "uint32",
	TypeInt32:     "int32",
	TypeAddress:   "bd_addr",
	TypeByteArray: "uint8array",
}

// ParseTypeTag converts a schema type name to a TypeTag.
func ParseTypeTag(name string) (TypeTag, error) {
	for tag, n := range typeNames {
		if n == name {
			return tag, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, name)
}

// String returns the schema spelling of the type.
func (t TypeTag) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("TypeTag(%d)", uint8(t))
}

// IsValid returns true if t is one of the defined types.
func (t TypeTag) IsValid() bool {
	return t >= TypeUint8 && t <= TypeByteArray
}

// Width returns the encoded size in bytes, or VariableWidth for byte arrays.
func (t TypeTag) Width() int {
	switch t {
	case TypeUint8, TypeInt8:
		return 1
	case TypeUint16, TypeInt16:
		return 2
	case TypeUint32, TypeInt32:
		return 4
	case TypeAddress:
		return AddressSize
	case TypeByteArray:
		return VariableWidth
	default:
		return 0
	}
}

// Address is a 6-byte Bluetooth device address in wire order.
type Address [AddressSize]byte

// String formats the address as colon-separated hex in wire order.
func (a Address) String() string {
	parts := make([]string, AddressSize)
	for i, b := range a {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(parts, ":")
}

// ParseAddress parses a colon-separated or plain 12-digit hex address.
func ParseAddress(s string) (Address, error) {
	var a Address
	raw, err := hex.DecodeString(strings.ReplaceAll(s, ":", ""))
	if err != nil {
		return a, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if len(raw) != AddressSize {
		return a, fmt.Errorf("%w: address %q has %d bytes", ErrValueOutOfRange, s, len(raw))
	}
	copy(a[:], raw)
	return a, nil
}

// EncodedSize returns the number of bytes value occupies when encoded as t.
func EncodedSize(t TypeTag, value any) (int, error) {
	if t != TypeByteArray {
		if !t.IsValid() {
			return 0, fmt.Errorf("%w: %v", ErrUnknownType, t)
		}
		return t.Width(), nil
	}
	b, ok := value.([]byte)
	if !ok {
		return 0, fmt.Errorf("%w: %s expects []byte, got %T", ErrArgumentMismatch, t, value)
	}
	return 1 + len(b), nil
}

// AppendValue encodes value as t and appends it to buf.
//
// Integer tags accept their exact Go type (uint8 for uint8, int16 for
// int16, ...) as well as any other Go integer, which is range checked.
// bd_addr accepts Address or [6]byte; uint8array accepts []byte.
func AppendValue(buf []byte, t TypeTag, value any) ([]byte, error) {
	switch t {
	case TypeUint8, TypeInt8, TypeUint16, TypeInt16, TypeUint32, TypeInt32:
		n, err := integerArg(t, value)
		if err != nil {
			return buf, err
		}
		return appendInteger(buf, t, n), nil

	case TypeAddress:
		switch v := value.(type) {
		case Address:
			return append(buf, v[:]...), nil
		case [AddressSize]byte:
			return append(buf, v[:]...), nil
		default:
			return buf, fmt.Errorf("%w: %s expects Address, got %T", ErrArgumentMismatch, t, value)
		}

	case TypeByteArray:
		v, ok := value.([]byte)
		if !ok {
			return buf, fmt.Errorf("%w: %s expects []byte, got %T", ErrArgumentMismatch, t, value)
		}
		if len(v) > MaxByteArrayLen {
			return buf, fmt.Errorf("%w: array of %d bytes exceeds %d", ErrValueOutOfRange, len(v), MaxByteArrayLen)
		}
		buf = append(buf, byte(len(v)))
		return append(buf, v...), nil

	default:
		return buf, fmt.Errorf("%w: %v", ErrUnknownType, t)
	}
}

// DecodeValue decodes a t-typed value from data starting at offset and
// returns it with the number of bytes consumed.
//
// A uint8array consumes the length byte and everything after it; the
// length byte's value is not consulted.
func DecodeValue(t TypeTag, data []byte, offset int) (any, int, error) {
	if offset < 0 || offset > len(data) {
		return nil, 0, fmt.Errorf("%w: offset %d outside %d-byte payload", ErrTruncatedPayload, offset, len(data))
	}
	rest := data[offset:]

	if t == TypeByteArray {
		if len(rest) < 1 {
			return nil, 0, fmt.Errorf("%w: %s needs a length byte", ErrTruncatedPayload, t)
		}
		value := make([]byte, len(rest)-1)
		copy(value, rest[1:])
		return value, len(rest), nil
	}

	width := t.Width()
	if width <= 0 {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnknownType, t)
	}
	if len(rest) < width {
		return nil, 0, fmt.Errorf("%w: %s needs %d bytes, %d remain", ErrTruncatedPayload, t, width, len(rest))
	}

	switch t {
	case TypeUint8:
		return rest[0], 1, nil
	case TypeInt8:
		return int8(rest[0]), 1, nil
	case TypeUint16:
		return binary.LittleEndian.Uint16(rest), 2, nil
	case TypeInt16:
		return int16(binary.LittleEndian.Uint16(rest)), 2, nil
	case TypeUint32:
		return binary.LittleEndian.Uint32(rest), 4, nil
	case TypeInt32:
		return int32(binary.LittleEndian.Uint32(rest)), 4, nil
	default: // TypeAddress
		var a Address
		copy(a[:], rest[:AddressSize])
		return a, AddressSize, nil
	}
}

// ParseValue converts text (as typed on a console or stored in a config
// file) into the Go value AppendValue expects for t. Integers accept
// decimal, 0x hex and 0b binary; arrays accept hex with optional colons.
func ParseValue(t TypeTag, s string) (any, error) {
	switch t {
	case TypeUint8, TypeUint16, TypeUint32:
		u, err := strconv.ParseUint(s, 0, t.Width()*8)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %q: %v", ErrValueOutOfRange, t, s, err)
		}
		switch t {
		case TypeUint8:
			return uint8(u), nil
		case TypeUint16:
			return uint16(u), nil
		default:
			return uint32(u), nil
		}
	case TypeInt8, TypeInt16, TypeInt32:
		i, err := strconv.ParseInt(s, 0, t.Width()*8)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %q: %v", ErrValueOutOfRange, t, s, err)
		}
		switch t {
		case TypeInt8:
			return int8(i), nil
		case TypeInt16:
			return int16(i), nil
		default:
			return int32(i), nil
		}
	case TypeAddress:
		return ParseAddress(s)
	case TypeByteArray:
		if s == "" || s == "-" {
			return []byte{}, nil
		}
		b, err := hex.DecodeString(strings.ReplaceAll(strings.TrimPrefix(s, "0x"), ":", ""))
		if err != nil {
			return nil, fmt.Errorf("%w: %s %q: %v", ErrArgumentMismatch, t, s, err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownType, t)
	}
}

// integerArg widens an integer argument to int64 and checks it against the
// range of t. Exact-type values are always in range.
func integerArg(t TypeTag, value any) (int64, error) {
	var n int64
	switch v := value.(type) {
	case uint8:
		n = int64(v)
	case int8:
		n = int64(v)
	case uint16:
		n = int64(v)
	case int16:
		n = int64(v)
	case uint32:
		n = int64(v)
	case int32:
		n = int64(v)
	case int:
		n = int64(v)
	case int64:
		n = v
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %s value %d", ErrValueOutOfRange, t, v)
		}
		n = int64(v)
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %s value %d", ErrValueOutOfRange, t, v)
		}
		n = int64(v)
	default:
		return 0, fmt.Errorf("%w: %s expects an integer, got %T", ErrArgumentMismatch, t, value)
	}

	lo, hi := integerRange(t)
	if n < lo || n > hi {
		return 0, fmt.Errorf("%w: %s value %d not in [%d, %d]", ErrValueOutOfRange, t, n, lo, hi)
	}
	return n, nil
}

func integerRange(t TypeTag) (lo, hi int64) {
	switch t {
	case TypeUint8:
		return 0, math.MaxUint8
	case TypeInt8:
		return math.MinInt8, math.MaxInt8
	case TypeUint16:
		return 0, math.MaxUint16
	case TypeInt16:
		return math.MinInt16, math.MaxInt16
	case TypeUint32:
		return 0, math.MaxUint32
	default: // TypeInt32
		return math.MinInt32, math.MaxInt32
	}
}

func appendInteger(buf []byte, t TypeTag, n int64) []byte {
	switch t.Width() {
	case 1:
		return append(buf, byte(n))
	case 2:
		return binary.LittleEndian.AppendUint16(buf, uint16(n))
	default:
		return binary.LittleEndian.AppendUint32(buf, uint32(n))
	}
}
