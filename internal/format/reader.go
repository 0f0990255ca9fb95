package format

import (
	"io"

	"github.com/FairForge/hlc/internal/herrors"
)

// Reader streams chunk records out of a container sequentially, after
// validating the global header.
type Reader struct {
	r         io.Reader
	Header    GlobalHeader
	remaining uint32
}

// NewReader reads and validates the 30-byte global header from r.
func NewReader(r io.Reader) (*Reader, error) {
	buf := make([]byte, GlobalHeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, herrors.Wrap(herrors.Truncated, "format: short global header", err)
		}
		return nil, herrors.Wrap(herrors.IoError, "format: read global header", err)
	}
	h, err := UnmarshalGlobalHeader(buf)
	if err != nil {
		return nil, err
	}
	return &Reader{r: r, Header: h, remaining: h.ChunkCount}, nil
}

// Next reads the next chunk record. It returns io.EOF once chunk_count
// records have been consumed.
func (rd *Reader) Next() (ChunkRecord, error) {
	if rd.remaining == 0 {
		return ChunkRecord{}, io.EOF
	}
	hb := make([]byte, ChunkHeaderSize)
	if _, err := io.ReadFull(rd.r, hb); err != nil {
		return ChunkRecord{}, herrors.Wrap(herrors.Truncated, "format: short chunk header", err)
	}
	h, err := UnmarshalChunkHeader(hb)
	if err != nil {
		return ChunkRecord{}, err
	}
	payload := make([]byte, h.CompressedSize)
	if _, err := io.ReadFull(rd.r, payload); err != nil {
		return ChunkRecord{}, herrors.Wrap(herrors.Truncated, "format: short chunk payload", err)
	}
	rd.remaining--
	return ChunkRecord{Header: h, Payload: payload}, nil
}

// ReadIndex reads the trailing chunk index from a random-access source,
// given the total container size and the chunk count from the global
// header. Entries are returned in index order.
func ReadIndex(ra io.ReaderAt, containerSize int64, chunkCount uint32) ([]IndexEntry, error) {
	n := int64(chunkCount) * ChunkIndexEntrySize
	start := containerSize - n
	if chunkCount > 0 && start < GlobalHeaderSize {
		return nil, herrors.New(herrors.InvalidFormat, "format: chunk index does not fit container")
	}
	buf := make([]byte, n)
	if n > 0 {
		if _, err := ra.ReadAt(buf, start); err != nil {
			return nil, herrors.Wrap(herrors.IoError, "format: read chunk index", err)
		}
	}
	entries := make([]IndexEntry, chunkCount)
	for i := range entries {
		e, err := UnmarshalIndexEntry(buf[i*ChunkIndexEntrySize:])
		if err != nil {
			return nil, err
		}
		entries[i] = e
	}
	return entries, nil
}

// ReadChunkAt performs an O(1) random-access read of the chunk record
// located at entry's offset.
func ReadChunkAt(ra io.ReaderAt, entry IndexEntry) (ChunkRecord, error) {
	hb := make([]byte, ChunkHeaderSize)
	if _, err := ra.ReadAt(hb, int64(entry.Offset)); err != nil {
		return ChunkRecord{}, herrors.Wrap(herrors.IoError, "format: read chunk header at offset", err)
	}
	h, err := UnmarshalChunkHeader(hb)
	if err != nil {
		return ChunkRecord{}, err
	}
	payload := make([]byte, h.CompressedSize)
	if _, err := ra.ReadAt(payload, int64(entry.Offset)+ChunkHeaderSize); err != nil {
		return ChunkRecord{}, herrors.Wrap(herrors.IoError, "format: read chunk payload at offset", err)
	}
	return ChunkRecord{Header: h, Payload: payload}, nil
}
