// Package schema holds the in-memory BGAPI message model: command,
// response and event descriptors with their typed fields, plus the named
// constants of the API definition.
//
// A Schema is built once with New, validated, and is read-only afterwards.
// It is safe to share between sessions.
package schema

import (
	"errors"
	"fmt"
	"sort"

	"github.com/bgapi-protocol/bgapi-go/pkg/wire"
)

// Schema errors.
var (
	// ErrByteArrayNotLast indicates a uint8array field that is followed by
	// another field. Arrays decode as "rest of payload" and must come last.
	ErrByteArrayNotLast = errors.New("uint8array field must be last")

	// ErrDuplicateMessage indicates two descriptors with the same identity.
	ErrDuplicateMessage = errors.New("duplicate message identity")

	// ErrDuplicateName indicates two descriptors or constants with the same name.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrInvalidField indicates a field with no name or an unknown type.
	ErrInvalidField = errors.New("invalid field")

	// ErrNotFound indicates a lookup for a message or constant that does not exist.
	ErrNotFound = errors.New("not found")
)

// Kind distinguishes commands, responses and events.
type Kind uint8

const (
	KindCommand Kind = iota
	KindResponse
	KindEvent
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindResponse:
		return "response"
	case KindEvent:
		return "event"
	default:
		return "unknown"
	}
}

// FieldDescriptor names one typed field of a message.
type FieldDescriptor struct {
	Name string
	Type wire.TypeTag
}

// MessageDescriptor defines a message's identity and field layout.
type MessageDescriptor struct {
	Kind Kind

	// ClassName and Name form the message's full name, e.g. "system_hello".
	ClassName string
	Name      string

	Class uint8
	Index uint8

	Fields []FieldDescriptor
}

// FullName returns "<class>_<message>".
func (d *MessageDescriptor) FullName() string {
	if d.ClassName == "" {
		return d.Name
	}
	return d.ClassName + "_" + d.Name
}

// Key returns the dispatch identity of the descriptor.
func (d *MessageDescriptor) Key() Key {
	return Key{Kind: d.Kind, Class: d.Class, Index: d.Index}
}

// MessageType returns the wire message type frames of this kind carry.
func (d *MessageDescriptor) MessageType() wire.MessageType {
	if d.Kind == KindEvent {
		return wire.TypeEvent
	}
	return wire.TypeCommand
}

// String returns e.g. "response system_hello (0/0)".
func (d *MessageDescriptor) String() string {
	return fmt.Sprintf("%s %s (%d/%d)", d.Kind, d.FullName(), d.Class, d.Index)
}

// validate checks the field list.
func (d *MessageDescriptor) validate() error {
	for i, f := range d.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: %s field %d has no name", ErrInvalidField, d, i)
		}
		if !f.Type.IsValid() {
			return fmt.Errorf("%w: %s field %q has type %v", ErrInvalidField, d, f.Name, f.Type)
		}
		if f.Type == wire.TypeByteArray && i != len(d.Fields)-1 {
			return fmt.Errorf("%w: %s field %q", ErrByteArrayNotLast, d, f.Name)
		}
	}
	return nil
}

// Key is the (kind, class, index) identity used for dispatch.
type Key struct {
	Kind  Kind
	Class uint8
	Index uint8
}

// String returns e.g. "event 3/1".
func (k Key) String() string {
	return fmt.Sprintf("%s %d/%d", k.Kind, k.Class, k.Index)
}

// IsSystemReset reports whether the key is the reserved class 0 / index 0
// identity, which always signals that the device is ready for a command.
func (k Key) IsSystemReset() bool {
	return k.Kind != KindCommand && k.Class == 0 && k.Index == 0
}

// ConstantDescriptor is a named enum value from the API definition.
type ConstantDescriptor struct {
	Name  string
	Value int64
}

// Schema is a validated, indexed, immutable set of descriptors.
type Schema struct {
	messages  []*MessageDescriptor
	byKey     map[Key]*MessageDescriptor
	commands  map[string]*MessageDescriptor
	constants []ConstantDescriptor
	constByID map[string]int64
}

// New validates the descriptors and builds the lookup tables.
//
// Descriptors are copied; later changes to the arguments do not affect
// the schema.
func New(messages []MessageDescriptor, constants []ConstantDescriptor) (*Schema, error) {
	s := &Schema{
		messages:  make([]*MessageDescriptor, 0, len(messages)),
		byKey:     make(map[Key]*MessageDescriptor, len(messages)),
		commands:  make(map[string]*MessageDescriptor),
		constants: make([]ConstantDescriptor, 0, len(constants)),
		constByID: make(map[string]int64, len(constants)),
	}

	names := make(map[string]bool)
	for i := range messages {
		d := messages[i]
		d.Fields = append([]FieldDescriptor(nil), d.Fields...)
		if err := d.validate(); err != nil {
			return nil, err
		}

		key := d.Key()
		if existing, ok := s.byKey[key]; ok {
			return nil, fmt.Errorf("%w: %s and %s", ErrDuplicateMessage, existing, &d)
		}
		// Commands and responses share names; only same-kind duplicates clash.
		nameKey := d.Kind.String() + " " + d.FullName()
		if names[nameKey] {
			return nil, fmt.Errorf("%w: %s %q", ErrDuplicateName, d.Kind, d.FullName())
		}
		names[nameKey] = true

		stored := &d
		s.messages = append(s.messages, stored)
		s.byKey[key] = stored
		if d.Kind == KindCommand {
			s.commands[d.FullName()] = stored
		}
	}

	for _, c := range constants {
		if _, ok := s.constByID[c.Name]; ok {
			return nil, fmt.Errorf("%w: constant %q", ErrDuplicateName, c.Name)
		}
		s.constByID[c.Name] = c.Value
		s.constants = append(s.constants, c)
	}

	return s, nil
}

// Lookup returns the descriptor with the given identity.
func (s *Schema) Lookup(key Key) (*MessageDescriptor, bool) {
	d, ok := s.byKey[key]
	return d, ok
}

// Command returns the command descriptor with the given full name.
func (s *Schema) Command(name string) (*MessageDescriptor, error) {
	d, ok := s.commands[name]
	if !ok {
		return nil, fmt.Errorf("%w: command %q", ErrNotFound, name)
	}
	return d, nil
}

// Response returns the response descriptor for class/index.
func (s *Schema) Response(class, index uint8) (*MessageDescriptor, bool) {
	return s.Lookup(Key{Kind: KindResponse, Class: class, Index: index})
}

// Event returns the event descriptor for class/index.
func (s *Schema) Event(class, index uint8) (*MessageDescriptor, bool) {
	return s.Lookup(Key{Kind: KindEvent, Class: class, Index: index})
}

// ResponseFor returns the response descriptor paired with a command.
func (s *Schema) ResponseFor(cmd *MessageDescriptor) (*MessageDescriptor, bool) {
	return s.Response(cmd.Class, cmd.Index)
}

// Messages returns every descriptor in definition order.
func (s *Schema) Messages() []*MessageDescriptor {
	return append([]*MessageDescriptor(nil), s.messages...)
}

// CommandNames returns the sorted full names of all commands.
func (s *Schema) CommandNames() []string {
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Constant returns the value of a named constant.
func (s *Schema) Constant(name string) (int64, error) {
	v, ok := s.constByID[name]
	if !ok {
		return 0, fmt.Errorf("%w: constant %q", ErrNotFound, name)
	}
	return v, nil
}

// Constants returns every constant in definition order.
func (s *Schema) Constants() []ConstantDescriptor {
	return append([]ConstantDescriptor(nil), s.constants...)
}
