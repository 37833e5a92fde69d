package event

import (
	"errors"
	"testing"

	"github.com/bgapi-protocol/bgapi-go/internal/gecko"
	"github.com/bgapi-protocol/bgapi-go/pkg/schema"
)

func TestBusFireOrder(t *testing.T) {
	b := NewBus(nil)

	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		if _, err := b.Subscribe(ChannelIdle, func(Notification) error {
			order = append(order, i)
			return nil
		}); err != nil {
			t.Fatalf("Subscribe failed: %v", err)
		}
	}

	if err := b.FireLifecycle(ChannelIdle); err != nil {
		t.Fatalf("Fire failed: %v", err)
	}
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("order = %v, want [1 2 3]", order)
	}
}

func TestBusFireStopsAtFirstError(t *testing.T) {
	b := NewBus(nil)
	boom := errors.New("boom")

	var calls []string
	if _, err := b.Subscribe(ChannelTimeout, func(Notification) error {
		calls = append(calls, "first")
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	failID, err := b.Subscribe(ChannelTimeout, func(Notification) error {
		calls = append(calls, "second")
		return boom
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Subscribe(ChannelTimeout, func(Notification) error {
		calls = append(calls, "third")
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	err = b.FireLifecycle(ChannelTimeout)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	var subErr *SubscriberError
	if !errors.As(err, &subErr) {
		t.Fatalf("expected *SubscriberError, got %T", err)
	}
	if subErr.Handler != failID || subErr.Channel != ChannelTimeout {
		t.Errorf("SubscriberError = %+v", subErr)
	}
	if len(calls) != 2 {
		t.Errorf("calls = %v, third handler should not run", calls)
	}
}

func TestBusUnsubscribe(t *testing.T) {
	b := NewBus(nil)

	count := 0
	id, err := b.Subscribe(ChannelBusy, func(Notification) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := b.Unsubscribe(ChannelBusy, id); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}
	if err := b.FireLifecycle(ChannelBusy); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("handler ran %d times after unsubscribe", count)
	}

	if err := b.Unsubscribe(ChannelBusy, id); !errors.Is(err, ErrHandlerNotFound) {
		t.Errorf("expected ErrHandlerNotFound, got %v", err)
	}
	// An ID from another channel is not found either.
	other, _ := b.Subscribe(ChannelIdle, func(Notification) error { return nil })
	if err := b.Unsubscribe(ChannelBusy, other); !errors.Is(err, ErrHandlerNotFound) {
		t.Errorf("expected ErrHandlerNotFound, got %v", err)
	}
}

func TestBusUnsubscribeDuringFire(t *testing.T) {
	b := NewBus(nil)

	var secondID HandlerID
	ran := 0
	if _, err := b.Subscribe(ChannelIdle, func(Notification) error {
		return b.Unsubscribe(ChannelIdle, secondID)
	}); err != nil {
		t.Fatal(err)
	}
	secondID, _ = b.Subscribe(ChannelIdle, func(Notification) error {
		ran++
		return nil
	})

	// The snapshot taken by Fire still includes the second handler.
	if err := b.FireLifecycle(ChannelIdle); err != nil {
		t.Fatal(err)
	}
	if ran != 1 {
		t.Errorf("ran = %d, want 1", ran)
	}
	if b.Count(ChannelIdle) != 1 {
		t.Errorf("Count = %d, want 1", b.Count(ChannelIdle))
	}
}

func TestBusMessageChannels(t *testing.T) {
	s := gecko.New()
	b := NewBus(s)

	boot, ok := s.Event(0, 0)
	if !ok {
		t.Fatal("system_boot missing")
	}
	if !b.HasChannel(ChannelFor(boot)) {
		t.Error("bus should have a channel for system_boot")
	}

	unknown := MessageChannel(schema.Key{Kind: schema.KindEvent, Class: 200, Index: 1})
	if b.HasChannel(unknown) {
		t.Error("bus should not have a channel for an unknown key")
	}
	if _, err := b.Subscribe(unknown, func(Notification) error { return nil }); !errors.Is(err, ErrUnknownChannel) {
		t.Errorf("expected ErrUnknownChannel, got %v", err)
	}
	if err := b.Fire(Notification{Channel: unknown}); !errors.Is(err, ErrUnknownChannel) {
		t.Errorf("expected ErrUnknownChannel, got %v", err)
	}
}

func TestBusSubscribeNil(t *testing.T) {
	b := NewBus(nil)
	if _, err := b.Subscribe(ChannelIdle, nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("expected ErrNilHandler, got %v", err)
	}
}

func TestChannelString(t *testing.T) {
	if got := ChannelTransmitComplete.String(); got != "transmit_complete" {
		t.Errorf("String() = %q", got)
	}
	c := MessageChannel(schema.Key{Kind: schema.KindEvent, Class: 3, Index: 0})
	if got := c.String(); got != "event 3/0" {
		t.Errorf("String() = %q", got)
	}
	if c.IsLifecycle() {
		t.Error("message channel reported as lifecycle")
	}
}
