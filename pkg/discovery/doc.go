// Package discovery finds and advertises TCP-attached BGAPI bridges over
// mDNS/DNS-SD.
//
// A bridge exposes a serial NCP on a TCP port and advertises the service
// type _bgapi._tcp. Instance names are free-form labels of at most 63
// bytes. TXT records:
//
//	txtvers  layout version, currently "1"
//	dn       device name (optional)
//	api      schema version served (optional)
//	len      frame length convention, "additive" or "shifted"
//
// A missing len key means additive. Browsing aggregates the addresses of an
// instance seen on several interfaces and emits each instance once.
// MDNSBrowser.Resolver adapts a browser to the resolve hook of a
// reconnecting dialer.
package discovery
