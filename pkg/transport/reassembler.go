package transport

import (
	"github.com/bgapi-protocol/bgapi-go/pkg/log"
	"github.com/bgapi-protocol/bgapi-go/pkg/wire"
)

// State is the reassembler state.
type State uint8

const (
	// StateIdle holds no partial frame.
	StateIdle State = iota
	// StateAwaitingLength has seen the leading marker byte.
	StateAwaitingLength
	// StateAccumulatingHeader knows the expected frame length and is
	// collecting the class and index bytes.
	StateAccumulatingHeader
	// StateAccumulatingPayload is collecting payload bytes.
	StateAccumulatingPayload
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateAwaitingLength:
		return "AWAITING_LENGTH"
	case StateAccumulatingHeader:
		return "ACCUMULATING_HEADER"
	case StateAccumulatingPayload:
		return "ACCUMULATING_PAYLOAD"
	default:
		return "UNKNOWN"
	}
}

// Reassembler turns a byte stream into frames, one byte at a time.
//
// Outside a frame every byte that is not a frame marker is discarded, so
// the stream resynchronizes on the next marker. Once a marker is accepted
// the reassembler collects exactly the number of bytes the header
// announces. There is no checksum and no abort path: a stream that stops
// mid-frame leaves the reassembler accumulating until Reset.
//
// A Reassembler is not safe for concurrent use.
type Reassembler struct {
	mode      wire.LengthMode
	state     State
	buf       []byte
	expected  int
	discarded uint64

	logger log.Logger
	connID string
}

// NewReassembler creates a reassembler for the given length mode.
func NewReassembler(mode wire.LengthMode) *Reassembler {
	return &Reassembler{
		mode: mode,
		buf:  make([]byte, 0, wire.HeaderSize+wire.MaxPayloadAdditive),
	}
}

// SetLogger reports each completed frame to logger as an inbound frame
// event. Pass nil to disable.
func (r *Reassembler) SetLogger(logger log.Logger, connID string) {
	r.logger = logger
	r.connID = connID
}

// Mode returns the length mode.
func (r *Reassembler) Mode() wire.LengthMode {
	return r.mode
}

// State returns the current state.
func (r *Reassembler) State() State {
	return r.state
}

// Buffered returns the number of bytes of the partial frame.
func (r *Reassembler) Buffered() int {
	return len(r.buf)
}

// Expected returns the total length of the frame being collected, or 0
// before the length byte has been seen.
func (r *Reassembler) Expected() int {
	return r.expected
}

// Discarded returns how many bytes were dropped while looking for a marker.
func (r *Reassembler) Discarded() uint64 {
	return r.discarded
}

// Reset drops any partial frame and returns to StateIdle.
func (r *Reassembler) Reset() {
	r.buf = r.buf[:0]
	r.expected = 0
	r.state = StateIdle
}

// Feed consumes one byte. It returns a frame when b completes one.
func (r *Reassembler) Feed(b byte) (wire.Frame, bool) {
	switch r.state {
	case StateIdle:
		if !r.mode.IsMarker(b) {
			r.discarded++
			return wire.Frame{}, false
		}
		r.buf = append(r.buf[:0], b)
		r.state = StateAwaitingLength
		return wire.Frame{}, false

	case StateAwaitingLength:
		r.buf = append(r.buf, b)
		r.expected = r.mode.FrameLength(r.buf[0], b)
		r.state = StateAccumulatingHeader
		return wire.Frame{}, false

	case StateAccumulatingHeader:
		r.buf = append(r.buf, b)
		if len(r.buf) < wire.HeaderSize {
			return wire.Frame{}, false
		}
		if r.expected > wire.HeaderSize {
			r.state = StateAccumulatingPayload
			return wire.Frame{}, false
		}
		return r.emit()

	default:
		r.buf = append(r.buf, b)
		if len(r.buf) < r.expected {
			return wire.Frame{}, false
		}
		return r.emit()
	}
}

// Write feeds p and returns every frame it completes, in order.
func (r *Reassembler) Write(p []byte) []wire.Frame {
	var frames []wire.Frame
	for _, b := range p {
		if f, ok := r.Feed(b); ok {
			frames = append(frames, f)
		}
	}
	return frames
}

func (r *Reassembler) emit() (wire.Frame, bool) {
	if r.logger != nil {
		r.logger.Log(log.NewFrameEvent(r.connID, log.DirectionIn, r.buf))
	}
	f, err := wire.ParseFrame(r.mode, r.buf)
	r.Reset()
	if err != nil {
		return wire.Frame{}, false
	}
	return f, true
}
