// Package event implements the ordered multicast notification bus used by
// a session.
//
// The bus has a fixed table of channels: five lifecycle channels (busy,
// idle, timeout, before-transmit, transmit-complete), an unhandled-frame
// channel, and one channel per message descriptor of the schema it was
// built from. Handlers run synchronously, in subscription order, on the
// goroutine that calls Fire. The first handler error stops delivery and is
// returned to the caller of Fire.
package event

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bgapi-protocol/bgapi-go/pkg/codec"
	"github.com/bgapi-protocol/bgapi-go/pkg/schema"
	"github.com/bgapi-protocol/bgapi-go/pkg/wire"
)

// Bus errors.
var (
	// ErrHandlerNotFound indicates Unsubscribe with an unknown handler ID.
	ErrHandlerNotFound = errors.New("handler not found")

	// ErrUnknownChannel indicates a channel that is not part of the bus.
	ErrUnknownChannel = errors.New("unknown channel")

	// ErrNilHandler indicates Subscribe with a nil handler.
	ErrNilHandler = errors.New("nil handler")
)

// Lifecycle identifies a fixed, non-message channel.
type Lifecycle uint8

const (
	lifecycleNone Lifecycle = iota

	// LifecycleBusy fires after a command is marked outstanding.
	LifecycleBusy
	// LifecycleIdle fires when the outstanding command completes.
	LifecycleIdle
	// LifecycleTimeout fires when a bounded wait expires while busy.
	LifecycleTimeout
	// LifecycleBeforeTransmit fires before a command is written.
	LifecycleBeforeTransmit
	// LifecycleTransmitComplete fires after a command is written.
	LifecycleTransmitComplete
	// LifecycleUnhandled fires for frames no descriptor matches.
	LifecycleUnhandled
)

// String returns the lifecycle name.
func (l Lifecycle) String() string {
	switch l {
	case LifecycleBusy:
		return "busy"
	case LifecycleIdle:
		return "idle"
	case LifecycleTimeout:
		return "timeout"
	case LifecycleBeforeTransmit:
		return "before_transmit"
	case LifecycleTransmitComplete:
		return "transmit_complete"
	case LifecycleUnhandled:
		return "unhandled"
	default:
		return "unknown"
	}
}

// Channel identifies a bus channel: either a lifecycle channel or the
// channel of one message descriptor.
type Channel struct {
	lifecycle Lifecycle
	key       schema.Key
}

// Lifecycle channels.
var (
	ChannelBusy             = Channel{lifecycle: LifecycleBusy}
	ChannelIdle             = Channel{lifecycle: LifecycleIdle}
	ChannelTimeout          = Channel{lifecycle: LifecycleTimeout}
	ChannelBeforeTransmit   = Channel{lifecycle: LifecycleBeforeTransmit}
	ChannelTransmitComplete = Channel{lifecycle: LifecycleTransmitComplete}
	ChannelUnhandled        = Channel{lifecycle: LifecycleUnhandled}
)

var lifecycleChannels = []Channel{
	ChannelBusy,
	ChannelIdle,
	ChannelTimeout,
	ChannelBeforeTransmit,
	ChannelTransmitComplete,
	ChannelUnhandled,
}

// MessageChannel returns the channel for a message identity.
func MessageChannel(key schema.Key) Channel {
	return Channel{key: key}
}

// ChannelFor returns the channel of a descriptor.
func ChannelFor(desc *schema.MessageDescriptor) Channel {
	return MessageChannel(desc.Key())
}

// IsLifecycle reports whether c is a lifecycle channel.
func (c Channel) IsLifecycle() bool {
	return c.lifecycle != lifecycleNone
}

// Key returns the message identity of a message channel.
func (c Channel) Key() schema.Key {
	return c.key
}

// String returns e.g. "idle" or "event 3/0".
func (c Channel) String() string {
	if c.IsLifecycle() {
		return c.lifecycle.String()
	}
	return c.key.String()
}

// Notification is what a handler receives.
type Notification struct {
	Channel Channel

	// Record is set on message channels.
	Record *codec.Record

	// Frame is set on the unhandled channel.
	Frame *wire.Frame
}

// Handler handles one notification. A non-nil error stops delivery to the
// remaining handlers of that Fire call.
type Handler func(Notification) error

// HandlerID identifies a subscription for Unsubscribe.
type HandlerID uint64

// SubscriberError reports a handler failure.
type SubscriberError struct {
	Channel Channel
	Handler HandlerID
	Err     error
}

func (e *SubscriberError) Error() string {
	return fmt.Sprintf("handler %d on %s: %v", e.Handler, e.Channel, e.Err)
}

func (e *SubscriberError) Unwrap() error {
	return e.Err
}

type entry struct {
	id      HandlerID
	handler Handler
}

// Bus is a fixed table of channels with ordered subscribers.
type Bus struct {
	mu       sync.RWMutex
	channels map[Channel][]entry
	nextID   HandlerID
}

// NewBus creates a bus with the lifecycle channels and one channel per
// descriptor in s. A nil schema yields only the lifecycle channels.
func NewBus(s *schema.Schema) *Bus {
	b := &Bus{channels: make(map[Channel][]entry)}
	for _, c := range lifecycleChannels {
		b.channels[c] = nil
	}
	if s != nil {
		for _, d := range s.Messages() {
			b.channels[ChannelFor(d)] = nil
		}
	}
	return b
}

// HasChannel reports whether c is part of the bus.
func (b *Bus) HasChannel(c Channel) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.channels[c]
	return ok
}

// Subscribe appends h to the channel's handlers and returns its ID.
func (b *Bus) Subscribe(c Channel, h Handler) (HandlerID, error) {
	if h == nil {
		return 0, ErrNilHandler
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	handlers, ok := b.channels[c]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownChannel, c)
	}
	b.nextID++
	id := b.nextID
	b.channels[c] = append(handlers, entry{id: id, handler: h})
	return id, nil
}

// Unsubscribe removes the handler with the given ID from the channel.
func (b *Bus) Unsubscribe(c Channel, id HandlerID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	handlers, ok := b.channels[c]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChannel, c)
	}
	for i, e := range handlers {
		if e.id == id {
			// Copy so an in-flight Fire keeps its snapshot.
			updated := make([]entry, 0, len(handlers)-1)
			updated = append(updated, handlers[:i]...)
			b.channels[c] = append(updated, handlers[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: id %d on %s", ErrHandlerNotFound, id, c)
}

// Count returns the number of handlers on a channel.
func (b *Bus) Count(c Channel) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.channels[c])
}

// Fire delivers n to every handler subscribed to n.Channel when Fire was
// called, in subscription order. It stops at the first error and returns
// it as a *SubscriberError. Firing an unknown channel is an error.
func (b *Bus) Fire(n Notification) error {
	b.mu.RLock()
	handlers, ok := b.channels[n.Channel]
	b.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChannel, n.Channel)
	}

	for _, e := range handlers {
		if err := e.handler(n); err != nil {
			return &SubscriberError{Channel: n.Channel, Handler: e.id, Err: err}
		}
	}
	return nil
}

// FireLifecycle fires a lifecycle channel with no payload.
func (b *Bus) FireLifecycle(c Channel) error {
	return b.Fire(Notification{Channel: c})
}
