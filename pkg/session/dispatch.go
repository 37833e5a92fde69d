package session

import (
	"time"

	"github.com/bgapi-protocol/bgapi-go/pkg/codec"
	"github.com/bgapi-protocol/bgapi-go/pkg/event"
	"github.com/bgapi-protocol/bgapi-go/pkg/log"
	"github.com/bgapi-protocol/bgapi-go/pkg/schema"
	"github.com/bgapi-protocol/bgapi-go/pkg/wire"
)

// Dispatch decodes a frame and notifies its channel.
//
//   - A frame with no descriptor fires only the unhandled channel.
//   - A payload that fails to decode is dropped: the failure is logged and
//     nil is returned. A partial frame held by the reassembler is kept.
//   - A response, or the system reset identity (class 0, index 0) as a
//     response or event, clears the busy flag after its channel fires and
//     then fires idle once. If a handler fails the flag is still cleared
//     but idle does not fire.
//
// The returned error is always a handler error.
func (s *Session) Dispatch(f wire.Frame) error {
	key := codec.KeyForFrame(f)
	desc, ok := s.schema.Lookup(key)
	if !ok {
		s.stats.Unhandled++
		s.debugLog("unhandled frame", "key", key.String(), "len", len(f.Payload))
		if s.protocol != nil {
			s.protocol.Log(log.Event{
				Timestamp:    time.Now(),
				ConnectionID: s.connID,
				Direction:    log.DirectionIn,
				Layer:        log.LayerCodec,
				Category:     log.CategoryMessage,
				Message: &log.MessageEvent{
					Kind:      key.Kind,
					Class:     key.Class,
					Index:     key.Index,
					Unhandled: true,
				},
			})
		}
		return s.bus.Fire(event.Notification{Channel: event.ChannelUnhandled, Frame: &f})
	}

	rec, err := codec.DecodePayload(desc, f.Payload)
	if err != nil {
		s.stats.DecodeErrors++
		s.warnLog("dropping frame", "message", desc.FullName(), "error", err)
		if s.protocol != nil {
			s.protocol.Log(log.NewErrorEvent(s.connID, log.LayerCodec, err, "decode "+desc.FullName()))
		}
		return nil
	}

	if s.protocol != nil {
		s.protocol.Log(s.messageEvent(log.DirectionIn, rec))
	}

	completes := desc.Kind == schema.KindResponse || key.IsSystemReset()
	fireErr := s.bus.Fire(event.Notification{Channel: event.ChannelFor(desc), Record: rec})
	if !completes {
		return fireErr
	}

	s.setBusy(false, desc.FullName())
	if fireErr != nil {
		return fireErr
	}
	return s.bus.FireLifecycle(event.ChannelIdle)
}

func (s *Session) messageEvent(dir log.Direction, rec *codec.Record) log.Event {
	return log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.connID,
		Direction:    dir,
		Layer:        log.LayerCodec,
		Category:     log.CategoryMessage,
		Message: &log.MessageEvent{
			Kind:   rec.Message.Kind,
			Class:  rec.Message.Class,
			Index:  rec.Message.Index,
			Name:   rec.Message.FullName(),
			Fields: rec.Map(),
		},
	}
}
