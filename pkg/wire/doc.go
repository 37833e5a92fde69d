// Package wire defines the BGAPI binary wire format: the primitive field
// types, their little-endian encodings and the 4-byte frame header.
//
// # Frame Layout
//
//	byte 0:  [7]   message type (0 = command/response, 1 = event)
//	         [6:3] technology type (0100 = Blue Gecko)
//	         [2:0] payload length, high bits
//	byte 1:  payload length, low 8 bits
//	byte 2:  class ID
//	byte 3:  command or event ID
//	byte 4+: payload
//
// Command and response frames therefore start with 0x20 and event frames
// with 0xA0.
//
// # Length Modes
//
// Existing peers compute the frame length as 4 + (byte0 & 0x07) + byte1.
// LengthAdditive reproduces that arithmetic and is the default.
// LengthShifted treats the three high bits as bits 8-10 of an 11-bit
// payload length, which is required to carry payloads above 255 bytes but
// is not understood by peers that use the additive form.
//
// # Field Types
//
// Multi-byte integers are little-endian. bd_addr values are six raw bytes
// copied without reordering. uint8array values are a one-byte length
// followed by the data; when decoding, the length byte is skipped and the
// rest of the payload is taken as the value, so an array must be the last
// field of a message.
package wire
