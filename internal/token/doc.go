// Package token owns the two transaction propagation wire formats.
//
// Propagation token (transmitter form):
//
//	offset 0   4-byte major version (little-endian)
//	offset 4   4-byte minor version (little-endian)
//	offset 8   16-byte transaction id
//	offset 24  coordinator payload
//
// Export cookie:
//
//	offset 0   16-byte signature
//	offset 16  16-byte transaction id
//	offset 32  whereabouts, then coordinator payload
//
// Offsets and minimum lengths are part of the compatibility contract with
// other processes. Functions here are pure: every decoded slice is an owned
// copy and every encoded buffer is freshly allocated, so no result aliases
// caller memory.
package token
