package log

import (
	"time"
)

// MaxFrameDataSize is the largest frame payload copied into a FrameEvent.
const MaxFrameDataSize = 4096

// Logger receives protocol events. Implementations must be thread-safe and
// should not block.
type Logger interface {
	Log(event Event)
}

// NoopLogger discards all events. Its zero value is ready to use.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// MultiLogger sends every event to each of its loggers in order.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a MultiLogger. Nil loggers are skipped.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			m.loggers = append(m.loggers, l)
		}
	}
	return m
}

// Log sends the event to all configured loggers.
func (m *MultiLogger) Log(event Event) {
	for _, l := range m.loggers {
		l.Log(event)
	}
}

// NewFrameEvent builds a transport-layer event for a raw frame, copying at
// most MaxFrameDataSize bytes.
func NewFrameEvent(connID string, dir Direction, frame []byte) Event {
	data := frame
	truncated := false
	if len(data) > MaxFrameDataSize {
		data = data[:MaxFrameDataSize]
		truncated = true
	}
	return Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    dir,
		Layer:        LayerTransport,
		Category:     CategoryMessage,
		Frame: &FrameEvent{
			Size:      len(frame),
			Data:      append([]byte(nil), data...),
			Truncated: truncated,
		},
	}
}

// NewStateEvent builds a session-layer state change event.
func NewStateEvent(connID string, entity StateEntity, oldState, newState, reason string) Event {
	return Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Layer:        LayerSession,
		Category:     CategoryState,
		StateChange: &StateChangeEvent{
			Entity:   entity,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	}
}

// NewErrorEvent builds an error event.
func NewErrorEvent(connID string, layer Layer, err error, context string) Event {
	return Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Layer:        layer,
		Category:     CategoryError,
		Error: &ErrorEventData{
			Layer:   layer,
			Message: err.Error(),
			Context: context,
		},
	}
}

// Compile-time interface satisfaction checks.
var (
	_ Logger = NoopLogger{}
	_ Logger = (*MultiLogger)(nil)
)
