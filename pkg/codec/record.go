package codec

import (
	"fmt"
	"strings"

	"github.com/bgapi-protocol/bgapi-go/pkg/schema"
	"github.com/bgapi-protocol/bgapi-go/pkg/wire"
)

// Record is a decoded message: the descriptor it was decoded with and one
// value per field. Values hold the Go types of wire.DecodeValue (uint8,
// int8, uint16, int16, uint32, int32, wire.Address, []byte).
type Record struct {
	Message *schema.MessageDescriptor
	Values  map[string]any
}

// NewRecord builds a record from positional values. It is mainly used to
// construct expected records and simulated device replies.
func NewRecord(desc *schema.MessageDescriptor, values ...any) (*Record, error) {
	if len(values) != len(desc.Fields) {
		return nil, fmt.Errorf("%w: %s has %d fields, got %d values",
			wire.ErrArgumentMismatch, desc.FullName(), len(desc.Fields), len(values))
	}
	r := &Record{Message: desc, Values: make(map[string]any, len(values))}
	for i, f := range desc.Fields {
		r.Values[f.Name] = values[i]
	}
	return r, nil
}

// Get returns the raw value of a field.
func (r *Record) Get(name string) (any, bool) {
	v, ok := r.Values[name]
	return v, ok
}

// Uint returns an unsigned field widened to uint64.
func (r *Record) Uint(name string) (uint64, bool) {
	switch v := r.Values[name].(type) {
	case uint8:
		return uint64(v), true
	case uint16:
		return uint64(v), true
	case uint32:
		return uint64(v), true
	default:
		return 0, false
	}
}

// Int returns a signed field widened to int64.
func (r *Record) Int(name string) (int64, bool) {
	switch v := r.Values[name].(type) {
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	default:
		return 0, false
	}
}

// Bytes returns a uint8array field.
func (r *Record) Bytes(name string) ([]byte, bool) {
	v, ok := r.Values[name].([]byte)
	return v, ok
}

// Address returns a bd_addr field.
func (r *Record) Address(name string) (wire.Address, bool) {
	v, ok := r.Values[name].(wire.Address)
	return v, ok
}

// Args returns the values in field order.
func (r *Record) Args() []any {
	args := make([]any, len(r.Message.Fields))
	for i, f := range r.Message.Fields {
		args[i] = r.Values[f.Name]
	}
	return args
}

// Map returns a copy of the values with addresses rendered as strings,
// suitable for CBOR or JSON encoding.
func (r *Record) Map() map[string]any {
	m := make(map[string]any, len(r.Values))
	for k, v := range r.Values {
		if a, ok := v.(wire.Address); ok {
			m[k] = a.String()
			continue
		}
		m[k] = v
	}
	return m
}

// String formats the record as "name{field=value ...}" in field order.
func (r *Record) String() string {
	var sb strings.Builder
	sb.WriteString(r.Message.FullName())
	sb.WriteByte('{')
	for i, f := range r.Message.Fields {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(f.Name)
		sb.WriteByte('=')
		switch v := r.Values[f.Name].(type) {
		case []byte:
			fmt.Fprintf(&sb, "%x", v)
		default:
			fmt.Fprintf(&sb, "%v", v)
		}
	}
	sb.WriteByte('}')
	return sb.String()
}
