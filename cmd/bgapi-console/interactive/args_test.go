package interactive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgapi-protocol/bgapi-go/internal/gecko"
	"github.com/bgapi-protocol/bgapi-go/pkg/codec"
	"github.com/bgapi-protocol/bgapi-go/pkg/wire"
)

func TestParseArgs(t *testing.T) {
	s := gecko.New()

	tests := []struct {
		name    string
		command string
		words   []string
		want    []any
	}{
		{"decimal", "test_set_value", []string{"42"}, []any{uint16(42)}},
		{"hex", "test_set_value", []string{"0x2a"}, []any{uint16(42)}},
		{"signed", "test_calibrate", []string{"-3", "-200", "70000"}, []any{int8(-3), int16(-200), int32(70000)}},
		{"constant", "le_gap_set_mode", []string{"le_gap_address_type_random_address", "2"}, []any{uint8(1), uint8(2)}},
		{"array", "flash_ps_save", []string{"0x4000", "0102ff"}, []any{uint16(0x4000), []byte{0x01, 0x02, 0xff}}},
		{"no args", "system_hello", nil, []any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc, err := s.Command(tt.command)
			require.NoError(t, err)
			got, err := ParseArgs(s, desc, tt.words)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseArgsErrors(t *testing.T) {
	s := gecko.New()
	desc, err := s.Command("test_set_value")
	require.NoError(t, err)

	_, err = ParseArgs(s, desc, nil)
	assert.ErrorIs(t, err, wire.ErrArgumentMismatch)

	_, err = ParseArgs(s, desc, []string{"no_such_constant"})
	assert.Error(t, err)

	_, err = ParseArgs(s, desc, []string{"70000"})
	assert.Error(t, err)
}

func TestSignature(t *testing.T) {
	s := gecko.New()
	desc, err := s.Command("flash_ps_save")
	require.NoError(t, err)
	assert.Equal(t, "key:uint16 value:uint8array", Signature(desc))

	hello, err := s.Command("system_hello")
	require.NoError(t, err)
	assert.Equal(t, "no arguments", Signature(hello))
}

func TestFormatRecord(t *testing.T) {
	s := gecko.New()
	cmd, err := s.Command("system_get_bt_address")
	require.NoError(t, err)
	resp, ok := s.ResponseFor(cmd)
	require.True(t, ok)

	payload, err := codec.EncodePayload(resp, wire.Address{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	rec, err := codec.DecodePayload(resp, payload)
	require.NoError(t, err)

	out := FormatRecord(rec)
	assert.Contains(t, out, "system_get_bt_address")
	assert.Contains(t, out, "address")
}

func TestMatchNames(t *testing.T) {
	names := []string{"system_reset", "flash_ps_save", "system_hello"}
	assert.Equal(t, []string{"system_hello", "system_reset"}, MatchNames(names, "system_"))
	assert.Len(t, MatchNames(names, ""), 3)
	assert.Empty(t, MatchNames(names, "le_"))
}
