// Package sbt implements the Self-describing Binary Trace container
// format: a fixed 64-byte header, a metadata section, a string table, a
// device info table, and a variable-length event stream. Encoding is done
// with encoding/binary over fixed-size structs, the same low-level framing
// technique used by perf.data-style readers (aclements-go-perf's perffile
// format) and by length-prefixed block protocols (DataExMachina's framing
// package) among the retrieved references — no generic serialization
// library fits a format whose byte layout is specified field by field, so
// this is one of the few packages in tracesmith that leans on
// encoding/binary instead of a third-party codec.
package sbt

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the fixed on-disk size of Header in bytes.
const HeaderSize = 64

var magic = [4]byte{'S', 'B', 'T', 0}

// Flag bits within Header.Flags.
const (
	FlagHasStringTable uint32 = 1 << 0
	FlagEventsSorted   uint32 = 1 << 1
)

// VersionMajor/VersionMinor are the format version this package writes.
const (
	VersionMajor uint16 = 1
	VersionMinor uint16 = 0
)

// Header is the fixed 64-byte SBT header.
type Header struct {
	Magic             [4]byte
	VersionMajor      uint16
	VersionMinor      uint16
	HeaderSize        uint32
	Flags             uint32
	EventCount        uint64
	MetadataOffset    uint64
	StringTableOffset uint64
	DeviceInfoOffset  uint64
	EventsOffset      uint64
}

// encodedSize is the wire size of the fields above, before the zero pad
// to HeaderSize: 4 + 2+2+4+4 + 8*5 = 56 bytes, padded to 64.
const encodedSize = 4 + 2 + 2 + 4 + 4 + 8*5

func init() {
	if encodedSize > HeaderSize {
		panic("sbt: header field layout exceeds HeaderSize")
	}
}

// MarshalBinary encodes h as the 64-byte little-endian header.
func (h Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint16(buf[4:6], h.VersionMajor)
	binary.LittleEndian.PutUint16(buf[6:8], h.VersionMinor)
	binary.LittleEndian.PutUint32(buf[8:12], h.HeaderSize)
	binary.LittleEndian.PutUint32(buf[12:16], h.Flags)
	binary.LittleEndian.PutUint64(buf[16:24], h.EventCount)
	binary.LittleEndian.PutUint64(buf[24:32], h.MetadataOffset)
	binary.LittleEndian.PutUint64(buf[32:40], h.StringTableOffset)
	binary.LittleEndian.PutUint64(buf[40:48], h.DeviceInfoOffset)
	binary.LittleEndian.PutUint64(buf[48:56], h.EventsOffset)
	// buf[56:64] stays zero: the reserved pad.
	return buf, nil
}

// UnmarshalBinary decodes a 64-byte header from buf.
func (h *Header) UnmarshalBinary(buf []byte) error {
	if len(buf) < HeaderSize {
		return fmt.Errorf("sbt: header buffer too short: %d bytes", len(buf))
	}
	copy(h.Magic[:], buf[0:4])
	h.VersionMajor = binary.LittleEndian.Uint16(buf[4:6])
	h.VersionMinor = binary.LittleEndian.Uint16(buf[6:8])
	h.HeaderSize = binary.LittleEndian.Uint32(buf[8:12])
	h.Flags = binary.LittleEndian.Uint32(buf[12:16])
	h.EventCount = binary.LittleEndian.Uint64(buf[16:24])
	h.MetadataOffset = binary.LittleEndian.Uint64(buf[24:32])
	h.StringTableOffset = binary.LittleEndian.Uint64(buf[32:40])
	h.DeviceInfoOffset = binary.LittleEndian.Uint64(buf[40:48])
	h.EventsOffset = binary.LittleEndian.Uint64(buf[48:56])
	return nil
}

// Valid reports whether h has the expected magic, a supported header size,
// and a version this reader understands.
func (h Header) Valid() bool {
	if h.Magic != magic {
		return false
	}
	if h.HeaderSize != HeaderSize {
		return false
	}
	if h.VersionMajor != VersionMajor {
		return false
	}
	return true
}
