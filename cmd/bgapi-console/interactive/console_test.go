package interactive

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgapi-protocol/bgapi-go/internal/gecko"
	"github.com/bgapi-protocol/bgapi-go/pkg/codec"
	"github.com/bgapi-protocol/bgapi-go/pkg/event"
	"github.com/bgapi-protocol/bgapi-go/pkg/session"
	"github.com/bgapi-protocol/bgapi-go/pkg/sim"
	"github.com/bgapi-protocol/bgapi-go/pkg/transport"
	"github.com/bgapi-protocol/bgapi-go/pkg/wire"
)

// syncBuffer is written by the session goroutine and read by the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

func newTestConsole(t *testing.T) (*Console, *sim.Simulator, *syncBuffer) {
	t.Helper()
	s, err := sim.New(gecko.New(), sim.Config{Address: "127.0.0.1:0"})
	require.NoError(t, err)
	require.NoError(t, s.Handle("test_set_value", func(cmd *codec.Record) ([]any, error) {
		v, _ := cmd.Uint("value")
		return []any{uint16(v * 2)}, nil
	}))
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop() })

	port, err := transport.DialTCP(s.Addr().String(), time.Second)
	require.NoError(t, err)
	sess, err := session.New(gecko.New(), port, session.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })

	out := &syncBuffer{}
	c, err := New(sess, nil, out)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	t.Cleanup(func() {
		cancel()
		<-c.Done()
	})
	return c, s, out
}

func TestExecuteCall(t *testing.T) {
	c, _, out := newTestConsole(t)

	assert.False(t, c.Execute("call test_set_value 21"))
	assert.Contains(t, out.String(), "response test_set_value")
	assert.Contains(t, out.String(), "42 (0x2a)")
}

func TestExecuteCallErrors(t *testing.T) {
	c, _, out := newTestConsole(t)

	c.Execute("call")
	assert.Contains(t, out.String(), "usage")

	out.Reset()
	c.Execute("call no_such_command")
	assert.Contains(t, out.String(), "Error:")

	out.Reset()
	c.Execute("call test_set_value")
	assert.Contains(t, out.String(), "argument mismatch")
}

func TestExecuteResetPrintsBoot(t *testing.T) {
	c, _, out := newTestConsole(t)

	assert.False(t, c.Execute("reset"))
	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "event system_boot")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestExecuteQuietHidesEvents(t *testing.T) {
	c, s, out := newTestConsole(t)
	require.Eventually(t, func() bool { return s.Clients() == 1 }, time.Second, 10*time.Millisecond)

	c.Execute("quiet")
	scan, ok := gecko.New().Event(3, 0)
	require.True(t, ok)
	require.NoError(t, s.Emit(scan, int8(-50), uint8(0), wire.Address{}, uint8(0), uint8(0), []byte{}))

	time.Sleep(100 * time.Millisecond)
	c.Execute("status")
	assert.NotContains(t, out.String(), "le_gap_scan_response")
	assert.Contains(t, out.String(), "Busy:        false")
}

func TestExecuteListAndDescribe(t *testing.T) {
	c, _, out := newTestConsole(t)

	c.Execute("list system_")
	assert.Contains(t, out.String(), "system_hello")
	assert.NotContains(t, out.String(), "flash_ps_save")

	out.Reset()
	c.Execute("describe test_calibrate")
	assert.Contains(t, out.String(), "offset:int8 gain:int16 delta:int32")
	assert.Contains(t, out.String(), "returns: result:uint16 temperature:int8")

	out.Reset()
	c.Execute("const le_gap_")
	assert.Contains(t, out.String(), "le_gap_address_type_random_address")
}

func TestExecuteUnknownAndQuit(t *testing.T) {
	c, _, out := newTestConsole(t)

	assert.False(t, c.Execute(""))
	assert.False(t, c.Execute("frobnicate"))
	assert.Contains(t, out.String(), "Unknown command: frobnicate")
	assert.True(t, c.Execute("quit"))
}

func TestSendWaitsForResponseTimeout(t *testing.T) {
	local, peer := transport.NewPipe()
	t.Cleanup(func() {
		_ = local.Close()
		_ = peer.Close()
	})

	cfg := session.DefaultConfig()
	cfg.ResponseTimeout = time.Second
	sess, err := session.New(gecko.New(), local, cfg)
	require.NoError(t, err)

	// The device answers system_hello well after one poll interval.
	go func() {
		r := transport.NewReassembler(wire.LengthAdditive)
		for {
			data, err := peer.ReadBlocking(time.Second)
			if err != nil {
				return
			}
			for _, f := range r.Write(data) {
				time.Sleep(3 * pollInterval)
				_ = peer.Write([]byte{0x20, 0x02, f.Class, f.Index, 0x00, 0x00})
			}
		}
	}()

	idle := 0
	_, err = sess.Bus().Subscribe(event.ChannelIdle, func(event.Notification) error {
		idle++
		return nil
	})
	require.NoError(t, err)

	out := &syncBuffer{}
	c, err := New(sess, nil, out)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	t.Cleanup(func() {
		cancel()
		<-c.Done()
	})

	c.Execute("send system_hello")
	require.Eventually(t, func() bool {
		busy := true
		_ = c.do(func() { busy = sess.Busy() })
		return !busy
	}, 2*time.Second, 20*time.Millisecond)

	var idleCount int
	var st session.Stats
	require.NoError(t, c.do(func() {
		idleCount = idle
		st = sess.Stats()
	}))
	assert.Equal(t, 1, idleCount)
	assert.NotContains(t, out.String(), "response timeout")
	assert.Zero(t, st.Timeouts)
}
