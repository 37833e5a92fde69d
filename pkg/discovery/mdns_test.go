package discovery

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/enbility/zeroconf/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgapi-protocol/bgapi-go/pkg/wire"
)

type fakeRegistration struct {
	mu       sync.Mutex
	text     []string
	shutdown bool
}

func (r *fakeRegistration) SetText(text []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.text = text
}

func (r *fakeRegistration) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shutdown = true
}

type registerCall struct {
	instance, service, domain string
	port                      int
	text                      []string
	reg                       *fakeRegistration
}

func testAdvertiser(t *testing.T) (*MDNSAdvertiser, *[]registerCall) {
	t.Helper()
	a, err := NewMDNSAdvertiser(DefaultAdvertiserConfig())
	require.NoError(t, err)

	var calls []registerCall
	a.register = func(instance, service, domain string, port int, text []string, _ []net.Interface, _ ...zeroconf.ServerOption) (registration, error) {
		reg := &fakeRegistration{text: text}
		calls = append(calls, registerCall{instance, service, domain, port, text, reg})
		return reg, nil
	}
	return a, &calls
}

func newEntry(instance string, port int, text []string, addrs ...string) *zeroconf.ServiceEntry {
	e := &zeroconf.ServiceEntry{}
	e.Instance = instance
	e.HostName = instance + ".local."
	e.Port = port
	e.Text = text
	for _, a := range addrs {
		ip := net.ParseIP(a)
		if ip.To4() != nil {
			e.AddrIPv4 = append(e.AddrIPv4, ip)
		} else {
			e.AddrIPv6 = append(e.AddrIPv6, ip)
		}
	}
	return e
}

// scriptedBrowser returns a browser whose browse function replays the given
// steps, then blocks until the context ends.
func scriptedBrowser(t *testing.T, steps func(ctx context.Context, entries, removed chan *zeroconf.ServiceEntry)) *MDNSBrowser {
	t.Helper()
	b, err := NewMDNSBrowser(DefaultBrowserConfig())
	require.NoError(t, err)

	b.browse = func(ctx context.Context, service, domain string, entries, removed chan *zeroconf.ServiceEntry, _ ...zeroconf.ClientOption) error {
		assert.Equal(t, ServiceType, service)
		assert.Equal(t, Domain, domain)
		steps(ctx, entries, removed)
		<-ctx.Done()
		return ctx.Err()
	}
	return b
}

func send(ctx context.Context, ch chan *zeroconf.ServiceEntry, e *zeroconf.ServiceEntry) {
	select {
	case ch <- e:
	case <-ctx.Done():
	}
}

func TestBridgeTXT(t *testing.T) {
	info := &BridgeInfo{DeviceName: "Lab NCP", APIVersion: "7.2", LengthMode: wire.LengthShifted}
	strs := TXTRecordsToStrings(EncodeBridgeTXT(info))
	assert.Equal(t, []string{"api=7.2", "dn=Lab NCP", "len=shifted", "txtvers=1"}, strs)

	back, err := DecodeBridgeTXT(StringsToTXTRecords(strs))
	require.NoError(t, err)
	assert.Equal(t, info.DeviceName, back.DeviceName)
	assert.Equal(t, info.APIVersion, back.APIVersion)
	assert.Equal(t, wire.LengthShifted, back.LengthMode)

	// Minimal records default to additive.
	back, err = DecodeBridgeTXT(StringsToTXTRecords([]string{"flag"}))
	require.NoError(t, err)
	assert.Equal(t, wire.LengthAdditive, back.LengthMode)

	_, err = DecodeBridgeTXT(TXTRecordMap{TXTKeyLengthMode: "sideways"})
	assert.ErrorIs(t, err, ErrInvalidTXTRecord)

	_, err = DecodeBridgeTXT(TXTRecordMap{TXTKeyVersion: "9"})
	assert.ErrorIs(t, err, ErrInvalidTXTRecord)
}

func TestValidateInstanceName(t *testing.T) {
	assert.NoError(t, ValidateInstanceName("bgapi-ncp"))
	assert.ErrorIs(t, ValidateInstanceName(""), ErrInvalidInstanceName)

	long := make([]byte, MaxInstanceNameLen+1)
	for i := range long {
		long[i] = 'a'
	}
	assert.ErrorIs(t, ValidateInstanceName(string(long)), ErrInstanceNameTooLong)
}

func TestBridgeServiceAddress(t *testing.T) {
	svc := &BridgeService{Host: "ncp.local.", Port: 5000}
	assert.Equal(t, "ncp.local.:5000", svc.Address())

	svc.Addresses = []string{"fe80::1"}
	svc.Port = 0
	assert.Equal(t, "[fe80::1]:4901", svc.Address())
}

func TestAdvertiserLifecycle(t *testing.T) {
	a, calls := testAdvertiser(t)
	ctx := context.Background()

	err := a.Advertise(ctx, &BridgeInfo{InstanceName: "ncp-1", DeviceName: "bench"})
	require.NoError(t, err)
	require.Len(t, *calls, 1)

	c := (*calls)[0]
	assert.Equal(t, "ncp-1", c.instance)
	assert.Equal(t, ServiceType, c.service)
	assert.Equal(t, Domain, c.domain)
	assert.Equal(t, DefaultPort, c.port)
	assert.Contains(t, c.text, "dn=bench")
	assert.Equal(t, 1, a.Active())

	require.NoError(t, a.Update(&BridgeInfo{InstanceName: "ncp-1", DeviceName: "renamed"}))
	assert.Contains(t, c.reg.text, "dn=renamed")

	// Re-advertising the same instance replaces the registration.
	require.NoError(t, a.Advertise(ctx, &BridgeInfo{InstanceName: "ncp-1", Port: 6000}))
	require.Len(t, *calls, 2)
	assert.True(t, c.reg.shutdown)
	assert.Equal(t, 6000, (*calls)[1].port)
	assert.Equal(t, 1, a.Active())

	require.NoError(t, a.Stop("ncp-1"))
	assert.True(t, (*calls)[1].reg.shutdown)
	assert.ErrorIs(t, a.Stop("ncp-1"), ErrNotAdvertising)
	assert.ErrorIs(t, a.Update(&BridgeInfo{InstanceName: "ncp-1"}), ErrNotAdvertising)
}

func TestAdvertiserStopAll(t *testing.T) {
	a, calls := testAdvertiser(t)
	ctx := context.Background()

	require.NoError(t, a.Advertise(ctx, &BridgeInfo{InstanceName: "a"}))
	require.NoError(t, a.Advertise(ctx, &BridgeInfo{InstanceName: "b"}))
	a.StopAll()

	assert.Equal(t, 0, a.Active())
	for _, c := range *calls {
		assert.True(t, c.reg.shutdown, c.instance)
	}
}

func TestAdvertiserErrors(t *testing.T) {
	a, calls := testAdvertiser(t)
	err := a.Advertise(context.Background(), &BridgeInfo{})
	assert.ErrorIs(t, err, ErrInvalidInstanceName)
	assert.Empty(t, *calls)

	boom := errors.New("no multicast")
	a.register = func(string, string, string, int, []string, []net.Interface, ...zeroconf.ServerOption) (registration, error) {
		return nil, boom
	}
	err = a.Advertise(context.Background(), &BridgeInfo{InstanceName: "x"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, a.Active())
}

func TestBrowseAggregatesAddresses(t *testing.T) {
	b := scriptedBrowser(t, func(ctx context.Context, entries, _ chan *zeroconf.ServiceEntry) {
		send(ctx, entries, newEntry("ncp-1", 4901, []string{"len=shifted"}, "10.0.0.5"))
		send(ctx, entries, newEntry("ncp-1", 4901, []string{"len=shifted"}, "fe80::5"))
		send(ctx, entries, newEntry("ncp-2", 4902, nil, "10.0.0.6"))
	})
	defer b.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	results, err := b.Browse(ctx)
	require.NoError(t, err)

	first := <-results
	require.NotNil(t, first)
	assert.Equal(t, "ncp-1", first.InstanceName)
	assert.Equal(t, wire.LengthShifted, first.LengthMode)
	assert.Equal(t, []string{"10.0.0.5"}, first.Addresses)
	assert.Equal(t, "10.0.0.5:4901", first.Address())

	// The duplicate for ncp-1 is merged, not emitted.
	second := <-results
	require.NotNil(t, second)
	assert.Equal(t, "ncp-2", second.InstanceName)
	assert.Equal(t, wire.LengthAdditive, second.LengthMode)
}

func TestBrowseSkipsInvalidTXT(t *testing.T) {
	b := scriptedBrowser(t, func(ctx context.Context, entries, _ chan *zeroconf.ServiceEntry) {
		send(ctx, entries, newEntry("bad", 4901, []string{"len=sideways"}, "10.0.0.7"))
		send(ctx, entries, newEntry("good", 4901, nil, "10.0.0.8"))
	})
	defer b.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	svc, err := b.FindFirst(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "good", svc.InstanceName)
}

func TestBrowseReemitsAfterRemoval(t *testing.T) {
	b := scriptedBrowser(t, func(ctx context.Context, entries, removed chan *zeroconf.ServiceEntry) {
		send(ctx, entries, newEntry("ncp-1", 4901, nil, "10.0.0.5"))
		send(ctx, removed, newEntry("ncp-1", 4901, nil, "10.0.0.5"))
		send(ctx, entries, newEntry("ncp-1", 4901, nil, "10.0.0.9"))
	})
	defer b.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	results, err := b.Browse(ctx)
	require.NoError(t, err)

	first := <-results
	require.NotNil(t, first)
	again := <-results
	require.NotNil(t, again)
	assert.Equal(t, "ncp-1", again.InstanceName)
	assert.Equal(t, []string{"10.0.0.9"}, again.Addresses)
}

func TestFindFirstByName(t *testing.T) {
	b := scriptedBrowser(t, func(ctx context.Context, entries, _ chan *zeroconf.ServiceEntry) {
		send(ctx, entries, newEntry("other", 4901, nil, "10.0.0.1"))
		send(ctx, entries, newEntry("wanted", 5001, nil, "10.0.0.2"))
	})
	defer b.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	svc, err := b.FindFirst(ctx, "wanted")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2:5001", svc.Address())
}

func TestFindFirstTimeout(t *testing.T) {
	b := scriptedBrowser(t, func(context.Context, chan *zeroconf.ServiceEntry, chan *zeroconf.ServiceEntry) {})
	defer b.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := b.FindFirst(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolver(t *testing.T) {
	b := scriptedBrowser(t, func(ctx context.Context, entries, _ chan *zeroconf.ServiceEntry) {
		send(ctx, entries, newEntry("ncp-1", 4901, nil, "192.168.1.20"))
	})
	defer b.Stop()

	addr, err := b.Resolver("ncp-1")(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.20:4901", addr)

	b.config.BrowseTimeout = 20 * time.Millisecond
	_, err = b.Resolver("missing")(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBrowserStop(t *testing.T) {
	b := scriptedBrowser(t, func(context.Context, chan *zeroconf.ServiceEntry, chan *zeroconf.ServiceEntry) {})

	results, err := b.Browse(context.Background())
	require.NoError(t, err)

	b.Stop()
	select {
	case _, ok := <-results:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("results not closed after Stop")
	}

	_, err = b.Browse(context.Background())
	assert.ErrorIs(t, err, ErrBrowserStopped)
}
