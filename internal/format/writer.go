package format

import (
	"bytes"
	"io"

	"github.com/FairForge/hlc/internal/checksum"
	"github.com/FairForge/hlc/internal/herrors"
)

// Writer assembles a container from chunk records written in index order.
// Totals needed for the global header (chunk_count, original_size,
// compressed_size) are only known once every chunk has been written, so
// Writer buffers chunk record bytes in memory and flushes header, records,
// and the optional trailing index together on Close. This works uniformly
// whether the destination is seekable or not.
type Writer struct {
	dst          io.Writer
	checksumType checksum.Type
	writeIndex   bool

	buf        bytes.Buffer
	index      []IndexEntry
	chunkCount uint32
	origSize   uint64
	closed     bool
}

// NewWriter returns a Writer that frames chunk records with checksumType
// and, if writeIndex is set, appends a trailing chunk index on Close.
func NewWriter(dst io.Writer, checksumType checksum.Type, writeIndex bool) *Writer {
	return &Writer{dst: dst, checksumType: checksumType, writeIndex: writeIndex}
}

// WriteChunk appends one chunk record. Records must be supplied in
// ascending index order; Writer does not reorder.
func (w *Writer) WriteChunk(rec ChunkRecord) error {
	offset := uint64(GlobalHeaderSize) + uint64(w.buf.Len())
	hb := rec.Header.MarshalBinary()
	w.buf.Write(hb)
	w.buf.Write(rec.Payload)

	w.index = append(w.index, IndexEntry{
		Offset:         offset,
		CompressedSize: rec.Header.CompressedSize,
		OriginalSize:   rec.Header.OriginalSize,
	})
	w.chunkCount++
	w.origSize += uint64(rec.Header.OriginalSize)
	return nil
}

// Close writes the global header, every buffered chunk record, and the
// optional trailing index to the destination, in that order. After Close,
// the Writer must not be reused.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	var flags Flags
	if w.writeIndex {
		flags |= HasChunkIndex
	}
	header := GlobalHeader{
		ChecksumType:   w.checksumType,
		ChunkCount:     w.chunkCount,
		OriginalSize:   w.origSize,
		CompressedSize: uint64(w.buf.Len()),
		Flags:          flags,
	}
	if _, err := w.dst.Write(header.MarshalBinary()); err != nil {
		return herrors.Wrap(herrors.IoError, "format: write global header", err)
	}
	if _, err := w.dst.Write(w.buf.Bytes()); err != nil {
		return herrors.Wrap(herrors.IoError, "format: write chunk records", err)
	}
	if w.writeIndex {
		for _, e := range w.index {
			if _, err := w.dst.Write(e.MarshalBinary()); err != nil {
				return herrors.Wrap(herrors.IoError, "format: write chunk index", err)
			}
		}
	}
	return nil
}
