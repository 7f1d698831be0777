// Package blob implements the on-media format of the environment: the codec
// between name/value records and the packed payload, and the CRC-32 header
// that guards it.
//
// Layout of one copy of size L:
//
//	redundant:      [0..4) crc32 LE | [4..5) flag | [5..L) payload
//	non-redundant:  [0..4) crc32 LE | [4..L) payload
//
// The payload is a list of NUL terminated "name=value" records followed by an
// empty record. Unused capacity is zero filled. The checksum covers the
// payload only, so flipping the copy flag never invalidates a copy.
//
// All functions are pure: they work on byte slices and never touch a medium.
// Decoding walks the payload with explicit bounds and cannot read past its
// end; a missing terminator is reported as RetCTruncated instead.
package blob
