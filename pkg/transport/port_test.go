package transport

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestPipeRoundTrip(t *testing.T) {
	a, b := NewPipe()
	defer a.Close()
	defer b.Close()

	if err := a.Write([]byte{0x20, 0x00, 0x00, 0x00}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := b.ReadBlocking(time.Second)
	if err != nil {
		t.Fatalf("ReadBlocking failed: %v", err)
	}
	if !bytes.Equal(got, []byte{0x20, 0x00, 0x00, 0x00}) {
		t.Errorf("got %x", got)
	}
}

func TestConnPortReadBlockingTimeout(t *testing.T) {
	a, b := NewPipe()
	defer a.Close()
	defer b.Close()

	start := time.Now()
	got, err := b.ReadBlocking(30 * time.Millisecond)
	if err != nil {
		t.Fatalf("ReadBlocking failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %x, want nothing", got)
	}
	if time.Since(start) < 25*time.Millisecond {
		t.Error("ReadBlocking returned before the timeout")
	}
}

func TestConnPortReadAvailable(t *testing.T) {
	a, b := NewPipe()
	defer a.Close()
	defer b.Close()

	got, err := b.ReadAvailable()
	if err != nil || len(got) != 0 {
		t.Fatalf("empty ReadAvailable = %x, %v", got, err)
	}

	if err := a.Write([]byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	// net.Pipe writes complete once the read goroutine has the bytes.
	deadline := time.Now().Add(time.Second)
	var all []byte
	for len(all) < 3 && time.Now().Before(deadline) {
		chunk, err := b.ReadAvailable()
		if err != nil {
			t.Fatal(err)
		}
		all = append(all, chunk...)
	}
	if !bytes.Equal(all, []byte{1, 2, 3}) {
		t.Errorf("got %x", all)
	}
}

func TestConnPortPeerClose(t *testing.T) {
	a, b := NewPipe()
	defer b.Close()

	a.Close()
	if err := a.Write([]byte{1}); !errors.Is(err, ErrPortClosed) {
		t.Errorf("Write after Close: %v", err)
	}

	_, err := b.ReadBlocking(time.Second)
	if !errors.Is(err, ErrPortClosed) {
		t.Errorf("expected ErrPortClosed, got %v", err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
