package wire

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeHeader(t *testing.T) {
	h, err := EncodeHeader(LengthAdditive, TypeCommand, 1, 2, 2)
	if err != nil {
		t.Fatalf("EncodeHeader failed: %v", err)
	}
	if h != [HeaderSize]byte{0x20, 0x02, 0x01, 0x02} {
		t.Errorf("header = % x", h)
	}

	h, err = EncodeHeader(LengthAdditive, TypeEvent, 3, 4, 0)
	if err != nil {
		t.Fatalf("EncodeHeader failed: %v", err)
	}
	if h != [HeaderSize]byte{0xA0, 0x00, 0x03, 0x04} {
		t.Errorf("event header = % x", h)
	}
}

func TestEncodeHeaderLengthLimits(t *testing.T) {
	if _, err := EncodeHeader(LengthAdditive, TypeCommand, 0, 0, 256); !errors.Is(err, ErrValueOutOfRange) {
		t.Errorf("additive 256: expected ErrValueOutOfRange, got %v", err)
	}

	h, err := EncodeHeader(LengthShifted, TypeCommand, 0, 0, 0x312)
	if err != nil {
		t.Fatalf("shifted 0x312 failed: %v", err)
	}
	if h[0] != 0x23 || h[1] != 0x12 {
		t.Errorf("shifted header = % x", h)
	}

	if _, err := EncodeHeader(LengthShifted, TypeCommand, 0, 0, 2048); !errors.Is(err, ErrValueOutOfRange) {
		t.Errorf("shifted 2048: expected ErrValueOutOfRange, got %v", err)
	}
}

func TestFrameLength(t *testing.T) {
	tests := []struct {
		name   string
		mode   LengthMode
		b0, b1 byte
		want   int
	}{
		{"additive empty", LengthAdditive, 0x20, 0x00, 4},
		{"additive low byte", LengthAdditive, 0xA0, 0x10, 20},
		{"additive high bits added", LengthAdditive, 0x22, 0x10, 22},
		{"shifted high bits", LengthShifted, 0x22, 0x10, 4 + 0x210},
		{"shifted max", LengthShifted, 0x27, 0xFF, 4 + 0x7FF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mode.FrameLength(tt.b0, tt.b1); got != tt.want {
				t.Errorf("FrameLength = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIsMarker(t *testing.T) {
	for _, b := range []byte{0x20, 0xA0} {
		if !LengthAdditive.IsMarker(b) || !LengthShifted.IsMarker(b) {
			t.Errorf("0x%02x should be a marker in both modes", b)
		}
	}
	if LengthAdditive.IsMarker(0x21) {
		t.Error("0x21 should not be a marker in additive mode")
	}
	if !LengthShifted.IsMarker(0x21) {
		t.Error("0x21 should be a marker in shifted mode")
	}
	for _, b := range []byte{0x00, 0x10, 0x80, 0xFF, 0x28} {
		if LengthAdditive.IsMarker(b) || LengthShifted.IsMarker(b) {
			t.Errorf("0x%02x should not be a marker", b)
		}
	}
}

func TestClassifyMessageType(t *testing.T) {
	if got := ClassifyMessageType(0x20); got != TypeCommand {
		t.Errorf("0x20 = %v, want COMMAND", got)
	}
	if got := ClassifyMessageType(0xA0); got != TypeEvent {
		t.Errorf("0xA0 = %v, want EVENT", got)
	}
	if got := ClassifyMessageType(0xA3); got != TypeEvent {
		t.Errorf("0xA3 = %v, want EVENT", got)
	}
}

func TestParseFrameRoundTrip(t *testing.T) {
	f := Frame{Type: TypeEvent, Class: 3, Index: 1, Payload: []byte{1, 2, 3}}

	raw, err := f.Bytes(LengthAdditive)
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	if !bytes.Equal(raw, []byte{0xA0, 0x03, 0x03, 0x01, 1, 2, 3}) {
		t.Errorf("raw = % x", raw)
	}

	got, err := ParseFrame(LengthAdditive, raw)
	if err != nil {
		t.Fatalf("ParseFrame failed: %v", err)
	}
	if got.Type != f.Type || got.Class != f.Class || got.Index != f.Index || !bytes.Equal(got.Payload, f.Payload) {
		t.Errorf("ParseFrame = %v, want %v", got, f)
	}
}

func TestParseFrameErrors(t *testing.T) {
	if _, err := ParseFrame(LengthAdditive, []byte{0x20, 0x00}); !errors.Is(err, ErrTruncatedPayload) {
		t.Errorf("short: expected ErrTruncatedPayload, got %v", err)
	}
	if _, err := ParseFrame(LengthAdditive, []byte{0x55, 0x00, 0x00, 0x00}); !errors.Is(err, ErrInvalidHeader) {
		t.Errorf("bad marker: expected ErrInvalidHeader, got %v", err)
	}
	if _, err := ParseFrame(LengthAdditive, []byte{0x20, 0x02, 0x00, 0x00, 0x01}); !errors.Is(err, ErrTruncatedPayload) {
		t.Errorf("length mismatch: expected ErrTruncatedPayload, got %v", err)
	}
}

func TestParseLengthMode(t *testing.T) {
	for in, want := range map[string]LengthMode{"": LengthAdditive, "additive": LengthAdditive, "shifted": LengthShifted} {
		got, err := ParseLengthMode(in)
		if err != nil || got != want {
			t.Errorf("ParseLengthMode(%q) = (%v, %v), want %v", in, got, err, want)
		}
	}
	if _, err := ParseLengthMode("bogus"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
