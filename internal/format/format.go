// Package format implements the on-disk container framing: a fixed 30-byte
// global header, a stream of chunk records (each a 17-byte header plus
// payload), and an optional trailing chunk index for O(1) random access.
package format

import (
	"encoding/binary"

	"github.com/FairForge/hlc/internal/checksum"
	"github.com/FairForge/hlc/internal/herrors"
	"github.com/FairForge/hlc/internal/transform"
)

const (
	Magic   = "HLC1"
	Version = 1

	GlobalHeaderSize    = 30
	ChunkHeaderSize     = 17
	ChunkIndexEntrySize = 16
)

// Flags is the global header's bitmask: bit0 signals a trailing chunk
// index, bits1-31 are reserved and must be zero.
type Flags uint32

const (
	HasChunkIndex Flags = 1 << 0
	reservedFlagsMask Flags = ^Flags(HasChunkIndex)
)

// GlobalHeader is the fixed 30-byte container preamble.
type GlobalHeader struct {
	ChecksumType   checksum.Type
	ChunkCount     uint32
	OriginalSize   uint64
	CompressedSize uint64
	Flags          Flags
}

// MarshalBinary encodes h into the fixed 30-byte wire layout.
func (h GlobalHeader) MarshalBinary() []byte {
	b := make([]byte, GlobalHeaderSize)
	copy(b[0:4], Magic)
	b[4] = Version
	b[5] = byte(h.ChecksumType)
	binary.LittleEndian.PutUint32(b[6:10], h.ChunkCount)
	binary.LittleEndian.PutUint64(b[10:18], h.OriginalSize)
	binary.LittleEndian.PutUint64(b[18:26], h.CompressedSize)
	binary.LittleEndian.PutUint32(b[26:30], uint32(h.Flags))
	return b
}

// UnmarshalGlobalHeader validates and decodes a 30-byte buffer.
func UnmarshalGlobalHeader(b []byte) (GlobalHeader, error) {
	var h GlobalHeader
	if len(b) < GlobalHeaderSize {
		return h, herrors.New(herrors.Truncated, "format: global header shorter than 30 bytes")
	}
	if string(b[0:4]) != Magic {
		return h, herrors.New(herrors.InvalidFormat, "format: bad magic")
	}
	if b[4] != Version {
		return h, herrors.New(herrors.InvalidFormat, "format: unsupported version")
	}
	ct := checksum.Type(b[5])
	if !ct.Valid() {
		return h, herrors.New(herrors.InvalidFormat, "format: unknown checksum_type")
	}
	flags := Flags(binary.LittleEndian.Uint32(b[26:30]))
	if flags&reservedFlagsMask != 0 {
		return h, herrors.New(herrors.InvalidFormat, "format: reserved global flag bits set")
	}
	h.ChecksumType = ct
	h.ChunkCount = binary.LittleEndian.Uint32(b[6:10])
	h.OriginalSize = binary.LittleEndian.Uint64(b[10:18])
	h.CompressedSize = binary.LittleEndian.Uint64(b[18:26])
	h.Flags = flags
	return h, nil
}

// ChunkHeader is the fixed 17-byte per-chunk record header.
type ChunkHeader struct {
	TransformFlags transform.Flags
	OriginalSize   uint32
	CompressedSize uint32
	Checksum       checksum.Digest
}

// MarshalBinary encodes h into the fixed 17-byte wire layout.
func (h ChunkHeader) MarshalBinary() []byte {
	b := make([]byte, ChunkHeaderSize)
	b[0] = byte(h.TransformFlags)
	binary.LittleEndian.PutUint32(b[1:5], h.OriginalSize)
	binary.LittleEndian.PutUint32(b[5:9], h.CompressedSize)
	copy(b[9:17], h.Checksum[:])
	return b
}

// UnmarshalChunkHeader validates and decodes a 17-byte buffer.
func UnmarshalChunkHeader(b []byte) (ChunkHeader, error) {
	var h ChunkHeader
	if len(b) < ChunkHeaderSize {
		return h, herrors.New(herrors.Truncated, "format: chunk header shorter than 17 bytes")
	}
	flags := transform.Flags(b[0])
	if !flags.Valid() {
		return h, herrors.New(herrors.InvalidFormat, "format: invalid transform_flags")
	}
	h.TransformFlags = flags
	h.OriginalSize = binary.LittleEndian.Uint32(b[1:5])
	h.CompressedSize = binary.LittleEndian.Uint32(b[5:9])
	copy(h.Checksum[:], b[9:17])
	return h, nil
}

// IndexEntry is one 16-byte record in the optional trailing chunk index.
type IndexEntry struct {
	Offset         uint64
	CompressedSize uint32
	OriginalSize   uint32
}

// MarshalBinary encodes e into the fixed 16-byte wire layout.
func (e IndexEntry) MarshalBinary() []byte {
	b := make([]byte, ChunkIndexEntrySize)
	binary.LittleEndian.PutUint64(b[0:8], e.Offset)
	binary.LittleEndian.PutUint32(b[8:12], e.CompressedSize)
	binary.LittleEndian.PutUint32(b[12:16], e.OriginalSize)
	return b
}

// UnmarshalIndexEntry decodes a 16-byte buffer.
func UnmarshalIndexEntry(b []byte) (IndexEntry, error) {
	var e IndexEntry
	if len(b) < ChunkIndexEntrySize {
		return e, herrors.New(herrors.Truncated, "format: chunk index entry shorter than 16 bytes")
	}
	e.Offset = binary.LittleEndian.Uint64(b[0:8])
	e.CompressedSize = binary.LittleEndian.Uint32(b[8:12])
	e.OriginalSize = binary.LittleEndian.Uint32(b[12:16])
	return e, nil
}

// ChunkRecord pairs a decoded header with its payload bytes.
type ChunkRecord struct {
	Header  ChunkHeader
	Payload []byte
}
