package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgapi-protocol/bgapi-go/internal/gecko"
	"github.com/bgapi-protocol/bgapi-go/pkg/codec"
	"github.com/bgapi-protocol/bgapi-go/pkg/event"
	"github.com/bgapi-protocol/bgapi-go/pkg/session"
	"github.com/bgapi-protocol/bgapi-go/pkg/transport"
	"github.com/bgapi-protocol/bgapi-go/pkg/wire"
)

func startSim(t *testing.T, cfg Config) *Simulator {
	t.Helper()
	if cfg.Address == "" {
		cfg.Address = "127.0.0.1:0"
	}
	s, err := New(gecko.New(), cfg)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func dialSession(t *testing.T, s *Simulator, mode wire.LengthMode) *session.Session {
	t.Helper()
	port, err := transport.DialTCP(s.Addr().String(), time.Second)
	require.NoError(t, err)

	cfg := session.DefaultConfig()
	cfg.LengthMode = mode
	sess, err := session.New(gecko.New(), port, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })
	return sess
}

func TestZeroValueResponse(t *testing.T) {
	s := startSim(t, Config{})
	sess := dialSession(t, s, wire.LengthAdditive)

	rec, err := sess.CallCommand("system_get_bt_address")
	require.NoError(t, err)
	addr, ok := rec.Address("address")
	require.True(t, ok)
	assert.Equal(t, wire.Address{}, addr)
	assert.False(t, sess.Busy())

	assert.Equal(t, uint64(1), s.Stats().Responses)
}

func TestResponder(t *testing.T) {
	s := startSim(t, Config{})
	require.NoError(t, s.Handle("test_set_value", func(cmd *codec.Record) ([]any, error) {
		v, _ := cmd.Uint("value")
		return []any{uint16(v + 1)}, nil
	}))
	sess := dialSession(t, s, wire.LengthAdditive)

	rec, err := sess.CallCommand("test_set_value", uint16(41))
	require.NoError(t, err)
	v, _ := rec.Uint("result")
	assert.Equal(t, uint64(42), v)
}

func TestResponderFailureDropsCommand(t *testing.T) {
	s := startSim(t, Config{})
	require.NoError(t, s.Handle("system_hello", func(*codec.Record) ([]any, error) {
		return nil, errors.New("ignored")
	}))
	sess := dialSession(t, s, wire.LengthAdditive)

	_, err := sess.CallCommand("system_hello")
	assert.ErrorIs(t, err, session.ErrResponseTimeout)
	assert.Equal(t, uint64(1), s.Stats().Dropped)
}

func TestHandleErrors(t *testing.T) {
	s, err := New(gecko.New(), Config{})
	require.NoError(t, err)

	err = s.Handle("no_such_command", func(*codec.Record) ([]any, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrUnknownCommand)

	_, err = New(nil, Config{})
	assert.ErrorIs(t, err, ErrNoSchema)
}

func TestResetEmitsBoot(t *testing.T) {
	s := startSim(t, Config{Boot: []any{uint16(2), uint16(13), uint16(0), uint16(1), uint32(0), uint16(3)}})
	sess := dialSession(t, s, wire.LengthAdditive)

	boot, ok := sess.Schema().Event(0, 0)
	require.True(t, ok)

	var got *codec.Record
	idle := 0
	_, err := sess.Bus().Subscribe(event.ChannelFor(boot), func(n event.Notification) error {
		got = n.Record
		return nil
	})
	require.NoError(t, err)
	_, err = sess.Bus().Subscribe(event.ChannelIdle, func(event.Notification) error {
		idle++
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, sess.SendCommand("system_reset"))
	require.True(t, sess.Busy())

	deadline := time.Now().Add(2 * time.Second)
	for got == nil && time.Now().Before(deadline) {
		require.NoError(t, sess.CheckActivity(100*time.Millisecond))
	}
	require.NotNil(t, got)

	major, _ := got.Uint("major")
	minor, _ := got.Uint("minor")
	assert.Equal(t, uint64(2), major)
	assert.Equal(t, uint64(13), minor)
	assert.False(t, sess.Busy())
	assert.Equal(t, 1, idle)
}

func TestEmitBroadcastsEvent(t *testing.T) {
	s := startSim(t, Config{})
	sess := dialSession(t, s, wire.LengthAdditive)

	// Connection setup is asynchronous on the server side.
	require.Eventually(t, func() bool { return s.Clients() == 1 }, time.Second, 10*time.Millisecond)

	scan, ok := sess.Schema().Event(3, 0)
	require.True(t, ok)
	var got *codec.Record
	_, err := sess.Bus().Subscribe(event.ChannelFor(scan), func(n event.Notification) error {
		got = n.Record
		return nil
	})
	require.NoError(t, err)

	addr := wire.Address{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	require.NoError(t, s.Emit(scan, int8(-70), uint8(0), addr, uint8(0), uint8(0xFF), []byte{0x02, 0x01, 0x06}))

	deadline := time.Now().Add(2 * time.Second)
	for got == nil && time.Now().Before(deadline) {
		require.NoError(t, sess.CheckActivity(100*time.Millisecond))
	}
	require.NotNil(t, got)
	rssi, _ := got.Int("rssi")
	assert.Equal(t, int64(-70), rssi)

	hello, err := sess.Schema().Command("system_hello")
	require.NoError(t, err)
	assert.ErrorIs(t, s.Emit(hello), ErrNotAnEvent)
}

func TestShiftedLengthMode(t *testing.T) {
	s := startSim(t, Config{LengthMode: wire.LengthShifted})
	require.NoError(t, s.Handle("flash_ps_load", func(cmd *codec.Record) ([]any, error) {
		return []any{uint16(0), make([]byte, 255)}, nil
	}))
	sess := dialSession(t, s, wire.LengthShifted)

	rec, err := sess.CallCommand("flash_ps_load", uint16(0x4000))
	require.NoError(t, err)
	data, ok := rec.Bytes("value")
	require.True(t, ok)
	assert.Len(t, data, 255)
}

func TestUnknownCommandDropped(t *testing.T) {
	s := startSim(t, Config{})
	port, err := transport.DialTCP(s.Addr().String(), time.Second)
	require.NoError(t, err)
	defer port.Close()

	require.NoError(t, port.Write([]byte{0x20, 0x00, 0x63, 0x01}))
	assert.Eventually(t, func() bool { return s.Stats().Dropped == 1 }, time.Second, 10*time.Millisecond)
}
