// Package transport moves BGAPI frames over byte streams.
//
// A Reassembler splits an unframed byte stream into wire.Frame values. The
// stream carries no checksum and no delimiter: frames are found by their
// leading marker byte (0x20 for commands and responses, 0xA0 for events)
// and their announced length.
//
//	┌────────────────────────────────┐
//	│  Frame: 4-byte header+payload  │
//	├────────────────────────────────┤
//	│  UART, or TCP via a bridge     │
//	└────────────────────────────────┘
//
// Port is the byte transport a session drives. ConnPort adapts any
// net.Conn, NewPipe returns an in-memory pair, and Server accepts TCP
// clients on the device side of a serial-to-TCP bridge.
package transport
