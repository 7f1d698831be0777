package blob

import (
	"encoding/binary"
	"fmt"
	"github.com/ValentinKolb/envstore/lib/common"
	"hash/crc32"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	ChecksumSize = 4            // CRC-32 at the start of every copy
	FlagSize     = 1            // copy flag, redundant mode only
	FlagOffset   = ChecksumSize // offset of the copy flag inside a copy
)

// Flag marks a copy as authoritative or superseded in redundant mode.
type Flag byte

const (
	FlagObsolete Flag = 0x00
	FlagActive   Flag = 0x01
)

// Known reports whether f is one of the defined flag values.
func (f Flag) Known() bool {
	return f == FlagActive || f == FlagObsolete
}

func (f Flag) String() string {
	switch f {
	case FlagActive:
		return "active"
	case FlagObsolete:
		return "obsolete"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(f))
	}
}

// --------------------------------------------------------------------------
// Checksum
// --------------------------------------------------------------------------

// Checksum computes the CRC-32 (IEEE) over payload exactly as stored.
func Checksum(payload []byte) uint32 {
	return crc32.ChecksumIEEE(payload)
}

// Verify reports whether stored matches the checksum of payload.
func Verify(stored uint32, payload []byte) bool {
	return Checksum(payload) == stored
}

// --------------------------------------------------------------------------
// Layout
// --------------------------------------------------------------------------

// Layout describes the on-media shape of one environment copy.
type Layout struct {
	Size      int  // total length L of a copy
	Redundant bool // whether the copy flag byte is present
}

// HeaderSize returns the number of bytes before the payload.
func (l Layout) HeaderSize() int {
	if l.Redundant {
		return ChecksumSize + FlagSize
	}
	return ChecksumSize
}

// Capacity returns the payload capacity of a copy.
func (l Layout) Capacity() int {
	return l.Size - l.HeaderSize()
}

// Validate checks that the layout can hold at least an empty environment.
func (l Layout) Validate() error {
	if l.Capacity() < 1 {
		return common.Errorf(common.RetCInternalError, "environment size %d leaves no room for a payload", l.Size)
	}
	return nil
}

// Pack builds a full copy from a payload of Capacity bytes.
// The flag is ignored in non-redundant layouts.
func (l Layout) Pack(payload []byte, flag Flag) ([]byte, error) {
	if len(payload) != l.Capacity() {
		return nil, common.Errorf(common.RetCInternalError, "payload is %d bytes, layout expects %d", len(payload), l.Capacity())
	}

	raw := make([]byte, l.Size)
	binary.LittleEndian.PutUint32(raw[0:ChecksumSize], Checksum(payload))
	if l.Redundant {
		raw[FlagOffset] = byte(flag)
	}
	copy(raw[l.HeaderSize():], payload)
	return raw, nil
}

// Blob is a parsed view of one raw copy. Payload references the raw buffer.
type Blob struct {
	Checksum uint32
	Flag     Flag // FlagActive for non-redundant layouts
	Payload  []byte
}

// Unpack splits raw into header fields and payload without verifying anything
// but the length.
func (l Layout) Unpack(raw []byte) (Blob, error) {
	if len(raw) != l.Size {
		return Blob{}, common.Errorf(common.RetCTruncated, "copy is %d bytes, layout expects %d", len(raw), l.Size)
	}

	b := Blob{
		Checksum: binary.LittleEndian.Uint32(raw[0:ChecksumSize]),
		Flag:     FlagActive,
		Payload:  raw[l.HeaderSize():],
	}
	if l.Redundant {
		b.Flag = Flag(raw[FlagOffset])
	}
	return b, nil
}

// Valid reports whether the stored checksum matches the payload.
func (b Blob) Valid() bool {
	return Verify(b.Checksum, b.Payload)
}

// Records verifies the checksum and decodes the payload.
func (b Blob) Records() ([]Record, error) {
	if !b.Valid() {
		return nil, common.Errorf(common.RetCChecksumMismatch, "stored crc 0x%08x, computed 0x%08x", b.Checksum, Checksum(b.Payload))
	}
	return Decode(b.Payload)
}
