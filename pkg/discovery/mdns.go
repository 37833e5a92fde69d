package discovery

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/enbility/zeroconf/v3"
)

// registration is an active zeroconf advertisement.
type registration interface {
	SetText(text []string)
	Shutdown()
}

type registerFunc func(instance, service, domain string, port int, text []string, ifaces []net.Interface, opts ...zeroconf.ServerOption) (registration, error)

type browseFunc func(ctx context.Context, service, domain string, entries, removed chan *zeroconf.ServiceEntry, opts ...zeroconf.ClientOption) error

func zeroconfRegister(instance, service, domain string, port int, text []string, ifaces []net.Interface, opts ...zeroconf.ServerOption) (registration, error) {
	server, err := zeroconf.Register(instance, service, domain, port, text, ifaces, opts...)
	if err != nil {
		return nil, err
	}
	return server, nil
}

func zeroconfBrowse(ctx context.Context, service, domain string, entries, removed chan *zeroconf.ServiceEntry, opts ...zeroconf.ClientOption) error {
	return zeroconf.Browse(ctx, service, domain, entries, removed, opts...)
}

// MDNSAdvertiser implements the Advertiser interface using zeroconf.
type MDNSAdvertiser struct {
	config   AdvertiserConfig
	register registerFunc

	mu      sync.Mutex
	servers map[string]registration // keyed by instance name
}

// NewMDNSAdvertiser creates a new mDNS advertiser.
func NewMDNSAdvertiser(config AdvertiserConfig) (*MDNSAdvertiser, error) {
	return &MDNSAdvertiser{
		config:   config,
		register: zeroconfRegister,
		servers:  make(map[string]registration),
	}, nil
}

// Advertise starts advertising a bridge.
func (a *MDNSAdvertiser) Advertise(ctx context.Context, info *BridgeInfo) error {
	if err := ValidateInstanceName(info.InstanceName); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if server, exists := a.servers[info.InstanceName]; exists {
		server.Shutdown()
		delete(a.servers, info.InstanceName)
	}

	port := int(info.Port)
	if port == 0 {
		port = DefaultPort
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	server, err := a.register(
		info.InstanceName,
		ServiceType,
		Domain,
		port,
		TXTRecordsToStrings(EncodeBridgeTXT(info)),
		selectInterfaces(a.config.Interface),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", info.InstanceName, err)
	}

	a.servers[info.InstanceName] = server
	return nil
}

// Update replaces the TXT records of an active advertisement.
func (a *MDNSAdvertiser) Update(info *BridgeInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	server, exists := a.servers[info.InstanceName]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotAdvertising, info.InstanceName)
	}
	server.SetText(TXTRecordsToStrings(EncodeBridgeTXT(info)))
	return nil
}

// Stop stops advertising one instance.
func (a *MDNSAdvertiser) Stop(instanceName string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	server, exists := a.servers[instanceName]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotAdvertising, instanceName)
	}
	server.Shutdown()
	delete(a.servers, instanceName)
	return nil
}

// StopAll stops all advertisements.
func (a *MDNSAdvertiser) StopAll() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for name, server := range a.servers {
		server.Shutdown()
		delete(a.servers, name)
	}
}

// Active returns the number of active advertisements.
func (a *MDNSAdvertiser) Active() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.servers)
}

// MDNSBrowser implements the Browser interface using zeroconf.
type MDNSBrowser struct {
	config BrowserConfig
	browse browseFunc

	mu      sync.Mutex
	stopped bool
	cancels map[int]context.CancelFunc
	nextID  int
}

// NewMDNSBrowser creates a new mDNS browser.
func NewMDNSBrowser(config BrowserConfig) (*MDNSBrowser, error) {
	if config.BrowseTimeout <= 0 {
		config.BrowseTimeout = BrowseTimeout
	}
	return &MDNSBrowser{
		config:  config,
		browse:  zeroconfBrowse,
		cancels: make(map[int]context.CancelFunc),
	}, nil
}

// Browse searches for bridges.
// Services are aggregated by instance name: addresses from multiple
// interfaces are combined into a single entry, and an instance whose last
// address is removed is forgotten so that it is emitted again if it returns.
func (b *MDNSBrowser) Browse(ctx context.Context) (<-chan *BridgeService, error) {
	ctx, done, err := b.track(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan *BridgeService)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(out)
		defer done()

		services := make(map[string]*BridgeService)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				svc := entryToBridge(entry)
				if svc == nil {
					continue
				}

				if existing, found := services[svc.InstanceName]; found {
					existing.Addresses = mergeAddresses(existing.Addresses, svc.Addresses)
					continue
				}
				services[svc.InstanceName] = svc
				select {
				case out <- svc.clone():
				case <-ctx.Done():
					return
				}

			case entry, ok := <-removed:
				if !ok {
					removed = nil
					continue
				}
				if existing, found := services[entry.Instance]; found {
					existing.Addresses = removeAddresses(existing.Addresses, entry)
					if len(existing.Addresses) == 0 {
						delete(services, entry.Instance)
					}
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = b.browse(ctx, ServiceType, Domain, entries, removed, b.browserOptions()...)
	}()

	return out, nil
}

// FindFirst returns the first bridge with the given instance name, or any
// bridge when instanceName is empty.
func (b *MDNSBrowser) FindFirst(ctx context.Context, instanceName string) (*BridgeService, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}

	for {
		select {
		case svc, ok := <-results:
			if !ok {
				return nil, ErrNotFound
			}
			if instanceName == "" || svc.InstanceName == instanceName {
				return svc, nil
			}
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrNotFound, ctx.Err())
		}
	}
}

// Resolver returns a function that finds a bridge and returns its dial
// address. Each call browses for at most the configured BrowseTimeout.
func (b *MDNSBrowser) Resolver(instanceName string) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, b.config.BrowseTimeout)
		defer cancel()

		svc, err := b.FindFirst(ctx, instanceName)
		if err != nil {
			return "", err
		}
		return svc.Address(), nil
	}
}

// Stop stops all active browsing operations. Later calls to Browse fail.
func (b *MDNSBrowser) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopped = true
	for id, cancel := range b.cancels {
		cancel()
		delete(b.cancels, id)
	}
}

func (b *MDNSBrowser) track(ctx context.Context) (context.Context, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		return nil, nil, ErrBrowserStopped
	}
	ctx, cancel := context.WithCancel(ctx)
	b.nextID++
	id := b.nextID
	b.cancels[id] = cancel

	return ctx, func() {
		cancel()
		b.mu.Lock()
		delete(b.cancels, id)
		b.mu.Unlock()
	}, nil
}

func (b *MDNSBrowser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if ifaces := selectInterfaces(b.config.Interface); ifaces != nil {
		opts = append(opts, zeroconf.SelectIfaces(ifaces))
	}
	return opts
}

// selectInterfaces returns nil (all interfaces) unless name resolves.
func selectInterfaces(name string) []net.Interface {
	if name == "" {
		return nil
	}
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

func entryToBridge(entry *zeroconf.ServiceEntry) *BridgeService {
	info, err := DecodeBridgeTXT(StringsToTXTRecords(entry.Text))
	if err != nil {
		return nil
	}

	return &BridgeService{
		InstanceName: entry.Instance,
		Host:         entry.HostName,
		Port:         uint16(entry.Port),
		Addresses:    entryAddresses(entry),
		DeviceName:   info.DeviceName,
		APIVersion:   info.APIVersion,
		LengthMode:   info.LengthMode,
	}
}

func (s *BridgeService) clone() *BridgeService {
	c := *s
	c.Addresses = append([]string(nil), s.Addresses...)
	return &c
}

func entryAddresses(entry *zeroconf.ServiceEntry) []string {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}
	return addrs
}

func mergeAddresses(existing, added []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}
	for _, addr := range added {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

func removeAddresses(addresses []string, entry *zeroconf.ServiceEntry) []string {
	toRemove := make(map[string]bool)
	for _, addr := range entryAddresses(entry) {
		toRemove[addr] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}

// Compile-time interface satisfaction checks.
var (
	_ Advertiser = (*MDNSAdvertiser)(nil)
	_ Browser    = (*MDNSBrowser)(nil)
)
