package discovery

import (
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/bgapi-protocol/bgapi-go/pkg/transport"
	"github.com/bgapi-protocol/bgapi-go/pkg/wire"
)

// Service identification.
const (
	// ServiceType is the DNS-SD service type of a TCP-attached NCP bridge.
	ServiceType = "_bgapi._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// DefaultPort is used when an advertisement carries no port.
	DefaultPort = transport.DefaultPort
)

// TXT record keys.
const (
	TXTKeyVersion    = "txtvers"
	TXTKeyDeviceName = "dn"
	TXTKeyAPIVersion = "api"
	TXTKeyLengthMode = "len"
)

// TXTVersion is the TXT record layout version written by this package.
const TXTVersion = "1"

// Timing.
const (
	// BrowseTimeout is the default timeout for mDNS browsing.
	BrowseTimeout = 10 * time.Second

	// DefaultTTL is the default record TTL for advertisements.
	DefaultTTL = 120 * time.Second
)

const (
	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63
)

// Discovery errors.
var (
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrInvalidInstanceName = errors.New("invalid instance name")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrBrowserStopped      = errors.New("browser stopped")
	ErrNotFound            = errors.New("service not found")
	ErrNotAdvertising      = errors.New("not advertising")
)

// TXTRecordMap is a decoded set of TXT key/value pairs.
type TXTRecordMap map[string]string

// BridgeInfo describes a bridge to advertise.
type BridgeInfo struct {
	// InstanceName is the DNS-SD instance, e.g. "bgapi-ncp-01".
	InstanceName string

	// Port is the TCP port. Zero means DefaultPort.
	Port uint16

	// DeviceName is a human-readable name.
	DeviceName string

	// APIVersion is the schema version served by the bridge.
	APIVersion string

	// LengthMode is the frame length convention the bridge speaks.
	LengthMode wire.LengthMode
}

// BridgeService is a bridge found by browsing.
type BridgeService struct {
	InstanceName string
	Host         string
	Port         uint16

	// Addresses holds IPv4 addresses first, then IPv6.
	Addresses []string

	DeviceName string
	APIVersion string
	LengthMode wire.LengthMode
}

// Address returns a dialable "host:port" for the service, preferring the
// first resolved address over the host name.
func (s *BridgeService) Address() string {
	port := s.Port
	if port == 0 {
		port = DefaultPort
	}
	host := s.Host
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}
	return net.JoinHostPort(host, strconv.Itoa(int(port)))
}
