package codec

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgapi-protocol/bgapi-go/internal/gecko"
	"github.com/bgapi-protocol/bgapi-go/pkg/schema"
	"github.com/bgapi-protocol/bgapi-go/pkg/wire"
)

func TestEncodeCommandResetHasEmptyPayload(t *testing.T) {
	s := gecko.New()
	reset, err := s.Command("system_reset")
	require.NoError(t, err)

	got, err := EncodeCommand(reset)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x20, 0x00, 0x00, 0x00}, got)
}

func TestEncodeCommandUint16LittleEndian(t *testing.T) {
	s := gecko.New()
	cmd, err := s.Command("test_set_value")
	require.NoError(t, err)

	got, err := EncodeCommand(cmd, uint16(0x1234))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x20, 0x02, 0x01, 0x02, 0x34, 0x12}, got)
}

func TestEncodeCommandByteArray(t *testing.T) {
	s := gecko.New()
	cmd, err := s.Command("flash_ps_save")
	require.NoError(t, err)

	got, err := EncodeCommand(cmd, uint16(0x4000), []byte{0xAA, 0xBB, 0xCC})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x20, 0x06, 0x0D, 0x03, 0x00, 0x40, 0x03, 0xAA, 0xBB, 0xCC}, got)
}

func TestEncodeCommandErrors(t *testing.T) {
	s := gecko.New()
	setMode, err := s.Command("le_gap_set_mode")
	require.NoError(t, err)
	psSave, err := s.Command("flash_ps_save")
	require.NoError(t, err)

	tests := []struct {
		name string
		desc *schema.MessageDescriptor
		args []any
		want error
	}{
		{"too few", setMode, []any{uint8(1)}, wire.ErrArgumentMismatch},
		{"too many", setMode, []any{uint8(1), uint8(2), uint8(3)}, wire.ErrArgumentMismatch},
		{"wrong type", setMode, []any{uint8(1), "two"}, wire.ErrArgumentMismatch},
		{"out of range", setMode, []any{uint8(1), 300}, wire.ErrValueOutOfRange},
		{"array too long", psSave, []any{uint16(1), make([]byte, 256)}, wire.ErrValueOutOfRange},
		// 2 + 1 + 253 = 256 bytes does not fit the additive length field.
		{"payload too long", psSave, []any{uint16(1), make([]byte, 253)}, wire.ErrValueOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeCommand(tt.desc, tt.args...)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEncodeCommandRejectsNonCommand(t *testing.T) {
	s := gecko.New()
	boot, ok := s.Event(0, 0)
	require.True(t, ok)

	_, err := EncodeCommand(boot, uint16(1), uint16(0), uint16(0), uint16(0), uint32(0), uint16(0))
	assert.ErrorIs(t, err, wire.ErrArgumentMismatch)
}

func TestEncodeCommandShiftedMode(t *testing.T) {
	s := gecko.New()
	psSave, err := s.Command("flash_ps_save")
	require.NoError(t, err)

	got, err := EncodeCommandMode(wire.LengthShifted, psSave, uint16(1), make([]byte, 253))
	require.NoError(t, err)
	assert.Equal(t, byte(0x21), got[0])
	assert.Equal(t, byte(0x00), got[1])
	assert.Len(t, got, wire.HeaderSize+256)
}

func TestDecodeByteArrayIgnoresLengthByte(t *testing.T) {
	s := gecko.New()
	psSave, err := s.Command("flash_ps_save")
	require.NoError(t, err)

	payload, err := EncodePayload(psSave, uint16(7), []byte{0xAA, 0xBB, 0xCC})
	require.NoError(t, err)

	// Corrupt the length byte: the value is still the rest of the payload.
	payload[2] = 0x01
	rec, err := DecodePayload(psSave, payload)
	require.NoError(t, err)

	data, ok := rec.Bytes("value")
	require.True(t, ok)
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC}, data)
}

func TestDecodePayloadTruncated(t *testing.T) {
	s := gecko.New()
	boot, ok := s.Event(0, 0)
	require.True(t, ok)

	_, err := DecodePayload(boot, []byte{0x01, 0x00, 0x02})
	assert.ErrorIs(t, err, wire.ErrTruncatedPayload)
}

func TestDecodePayloadIgnoresTrailingBytes(t *testing.T) {
	s := gecko.New()
	hello, ok := s.Response(0, 1)
	require.True(t, ok)

	rec, err := DecodePayload(hello, []byte{0x00, 0x00, 0xFF})
	require.NoError(t, err)
	v, ok := rec.Uint("result")
	require.True(t, ok)
	assert.Equal(t, uint64(0), v)
}

func TestRoundTripEveryDescriptor(t *testing.T) {
	s := gecko.New()
	rng := rand.New(rand.NewSource(1))

	for _, desc := range s.Messages() {
		t.Run(desc.String(), func(t *testing.T) {
			for i := 0; i < 20; i++ {
				args := randomArgs(rng, desc)

				payload, err := EncodePayload(desc, args...)
				require.NoError(t, err)

				rec, err := DecodePayload(desc, payload)
				require.NoError(t, err)
				assert.Equal(t, args, rec.Args())
			}
		})
	}
}

func TestDecodeFrame(t *testing.T) {
	s := gecko.New()

	rec, found, err := DecodeFrame(s, wire.Frame{Type: wire.TypeCommand, Class: 1, Index: 2, Payload: []byte{0x34, 0x12}})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, schema.KindResponse, rec.Message.Kind)
	v, _ := rec.Uint("result")
	assert.Equal(t, uint64(0x1234), v)

	_, found, err = DecodeFrame(s, wire.Frame{Type: wire.TypeEvent, Class: 99, Index: 0})
	assert.NoError(t, err)
	assert.False(t, found)

	_, found, err = DecodeFrame(s, wire.Frame{Type: wire.TypeCommand, Class: 1, Index: 2, Payload: []byte{0x34}})
	assert.True(t, found)
	assert.True(t, errors.Is(err, wire.ErrTruncatedPayload))
}

func TestRecordHelpers(t *testing.T) {
	s := gecko.New()
	scan, ok := s.Event(3, 0)
	require.True(t, ok)

	addr := wire.Address{1, 2, 3, 4, 5, 6}
	rec, err := NewRecord(scan, int8(-60), uint8(0), addr, uint8(1), uint8(0xFF), []byte{0x02, 0x01, 0x06})
	require.NoError(t, err)

	rssi, ok := rec.Int("rssi")
	require.True(t, ok)
	assert.Equal(t, int64(-60), rssi)

	got, ok := rec.Address("address")
	require.True(t, ok)
	assert.Equal(t, addr, got)

	_, ok = rec.Uint("rssi")
	assert.False(t, ok)

	m := rec.Map()
	assert.Equal(t, "01:02:03:04:05:06", m["address"])

	assert.Equal(t, "le_gap_scan_response{rssi=-60 packet_type=0 address=01:02:03:04:05:06 address_type=1 bonding=255 data=020106}", rec.String())

	payload, err := EncodeRecord(rec)
	require.NoError(t, err)
	back, err := DecodePayload(scan, payload)
	require.NoError(t, err)
	assert.Equal(t, rec.Values, back.Values)

	_, err = NewRecord(scan, int8(1))
	assert.ErrorIs(t, err, wire.ErrArgumentMismatch)

	delete(rec.Values, "bonding")
	_, err = EncodeRecord(rec)
	assert.ErrorIs(t, err, wire.ErrArgumentMismatch)
}

func randomArgs(rng *rand.Rand, desc *schema.MessageDescriptor) []any {
	args := make([]any, len(desc.Fields))
	for i, f := range desc.Fields {
		switch f.Type {
		case wire.TypeUint8:
			args[i] = uint8(rng.Uint32())
		case wire.TypeInt8:
			args[i] = int8(rng.Uint32())
		case wire.TypeUint16:
			args[i] = uint16(rng.Uint32())
		case wire.TypeInt16:
			args[i] = int16(rng.Uint32())
		case wire.TypeUint32:
			args[i] = rng.Uint32()
		case wire.TypeInt32:
			args[i] = int32(rng.Uint32())
		case wire.TypeAddress:
			var a wire.Address
			rng.Read(a[:])
			args[i] = a
		case wire.TypeByteArray:
			b := make([]byte, rng.Intn(64))
			rng.Read(b)
			args[i] = b
		}
	}
	return args
}
