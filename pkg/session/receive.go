package session

import (
	"fmt"
	"time"

	"github.com/bgapi-protocol/bgapi-go/pkg/event"
	"github.com/bgapi-protocol/bgapi-go/pkg/log"
)

// CheckActivity reads and dispatches incoming frames.
//
// With a positive timeout it waits up to timeout for each read and keeps
// reading while a command is outstanding. A read that times out while busy
// clears the busy flag and fires idle then timeout. With a zero or
// negative timeout it behaves like Drain.
//
// Every byte read is fed to the reassembler before the busy flag is
// checked, so a chunk that completes a response and starts the next frame
// loses nothing.
func (s *Session) CheckActivity(timeout time.Duration) error {
	if timeout <= 0 {
		return s.Drain()
	}
	if err := s.flushBacklog(); err != nil {
		return err
	}

	for {
		data, err := s.port.ReadBlocking(timeout)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if len(data) == 0 {
			return s.expire()
		}
		if err := s.Feed(data); err != nil {
			return err
		}
		if !s.Busy() {
			return nil
		}
	}
}

// Poll reads and dispatches for at most wait. Unlike CheckActivity, an
// outstanding command times out only once Config.ResponseTimeout has
// passed since it was transmitted, so Poll can be called in a loop with a
// short wait.
func (s *Session) Poll(wait time.Duration) error {
	if err := s.flushBacklog(); err != nil {
		return err
	}
	if s.Busy() {
		remaining := s.config.ResponseTimeout - time.Since(s.sentAt)
		if remaining <= 0 {
			return s.expire()
		}
		if remaining < wait {
			wait = remaining
		}
	}
	if wait <= 0 {
		return s.Drain()
	}

	data, err := s.port.ReadBlocking(wait)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	if len(data) == 0 {
		if s.Busy() && time.Since(s.sentAt) >= s.config.ResponseTimeout {
			return s.expire()
		}
		return nil
	}
	return s.Feed(data)
}

// Drain reads and dispatches every byte already available without
// waiting, then returns.
func (s *Session) Drain() error {
	if err := s.flushBacklog(); err != nil {
		return err
	}
	for {
		data, err := s.port.ReadAvailable()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if len(data) == 0 {
			return nil
		}
		if err := s.Feed(data); err != nil {
			return err
		}
	}
}

// Feed pushes bytes through the reassembler and dispatches each completed
// frame before the next byte is consumed. If a handler fails, Feed returns
// its error and keeps the unconsumed bytes for the next read call.
func (s *Session) Feed(data []byte) error {
	s.backlog = append(s.backlog, data...)
	for len(s.backlog) > 0 {
		b := s.backlog[0]
		s.backlog = s.backlog[1:]

		f, ok := s.reasm.Feed(b)
		if !ok {
			continue
		}
		s.stats.FramesIn++
		if err := s.Dispatch(f); err != nil {
			return err
		}
	}
	s.backlog = nil
	return nil
}

func (s *Session) flushBacklog() error {
	if len(s.backlog) == 0 {
		return nil
	}
	return s.Feed(nil)
}

// expire handles a bounded read that returned no data.
func (s *Session) expire() error {
	if !s.Busy() {
		return nil
	}
	s.stats.Timeouts++
	s.setBusy(false, "timeout")
	s.debugLog("response timeout")
	if s.protocol != nil {
		s.protocol.Log(log.NewErrorEvent(s.connID, log.LayerSession, ErrResponseTimeout, "check activity"))
	}
	if err := s.bus.FireLifecycle(event.ChannelIdle); err != nil {
		return err
	}
	return s.bus.FireLifecycle(event.ChannelTimeout)
}
