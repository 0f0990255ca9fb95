package format

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FairForge/hlc/internal/checksum"
	"github.com/FairForge/hlc/internal/transform"
)

func TestGlobalHeaderRoundTrip(t *testing.T) {
	h := GlobalHeader{
		ChecksumType:   checksum.SHA256,
		ChunkCount:     3,
		OriginalSize:   12345,
		CompressedSize: 6789,
		Flags:          HasChunkIndex,
	}
	b := h.MarshalBinary()
	require.Len(t, b, GlobalHeaderSize)

	got, err := UnmarshalGlobalHeader(b)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestGlobalHeaderRejectsBadMagic(t *testing.T) {
	h := GlobalHeader{ChecksumType: checksum.CRC32}
	b := h.MarshalBinary()
	b[0] = 'X'
	_, err := UnmarshalGlobalHeader(b)
	assert.Error(t, err, "expected error for corrupted magic")
}

func TestGlobalHeaderRejectsReservedFlagBits(t *testing.T) {
	h := GlobalHeader{ChecksumType: checksum.CRC32, Flags: 1 << 5}
	b := h.MarshalBinary()
	_, err := UnmarshalGlobalHeader(b)
	assert.Error(t, err, "expected error for reserved flag bits set")
}

func TestChunkHeaderRoundTrip(t *testing.T) {
	h := ChunkHeader{
		TransformFlags: transform.Flags(0).With(transform.RLE).With(transform.Dict),
		OriginalSize:   4096,
		CompressedSize: 1024,
		Checksum:       checksum.Sum(checksum.CRC32, []byte("hello")),
	}
	b := h.MarshalBinary()
	require.Len(t, b, ChunkHeaderSize)

	got, err := UnmarshalChunkHeader(b)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestWriterReaderRoundTrip(t *testing.T) {
	var out bytes.Buffer
	w := NewWriter(&out, checksum.CRC32, true)

	records := []ChunkRecord{
		{
			Header: ChunkHeader{
				OriginalSize:   5,
				CompressedSize: 5,
				Checksum:       checksum.Sum(checksum.CRC32, []byte("abcde")),
			},
			Payload: []byte("abcde"),
		},
		{
			Header: ChunkHeader{
				TransformFlags: transform.StoredRawBit,
				OriginalSize:   3,
				CompressedSize: 3,
				Checksum:       checksum.Sum(checksum.CRC32, []byte("xyz")),
			},
			Payload: []byte("xyz"),
		},
	}
	for _, r := range records {
		require.NoError(t, w.WriteChunk(r))
	}
	require.NoError(t, w.Close())

	rd, err := NewReader(bytes.NewReader(out.Bytes()))
	require.NoError(t, err)
	assert.EqualValues(t, 2, rd.Header.ChunkCount)
	assert.EqualValues(t, 8, rd.Header.OriginalSize)

	var got []ChunkRecord
	for {
		rec, err := rd.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, rec)
	}
	require.Len(t, got, 2)
	for i, rec := range got {
		assert.Truef(t, bytes.Equal(rec.Payload, records[i].Payload), "record %d payload mismatch", i)
	}
}

func TestWriterEmptyContainer(t *testing.T) {
	var out bytes.Buffer
	w := NewWriter(&out, checksum.CRC32, false)
	require.NoError(t, w.Close())
	require.Equal(t, GlobalHeaderSize, out.Len())

	rd, err := NewReader(bytes.NewReader(out.Bytes()))
	require.NoError(t, err)
	assert.Zero(t, rd.Header.ChunkCount)
	assert.Zero(t, rd.Header.OriginalSize)

	_, err = rd.Next()
	assert.Equal(t, io.EOF, err)
}

func TestIndexRoundTrip(t *testing.T) {
	var out bytes.Buffer
	w := NewWriter(&out, checksum.CRC32, true)
	payload := []byte("0123456789")
	rec := ChunkRecord{
		Header: ChunkHeader{
			OriginalSize:   10,
			CompressedSize: 10,
			Checksum:       checksum.Sum(checksum.CRC32, payload),
		},
		Payload: payload,
	}
	require.NoError(t, w.WriteChunk(rec))
	require.NoError(t, w.Close())

	data := out.Bytes()
	entries, err := ReadIndex(bytes.NewReader(data), int64(len(data)), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got, err := ReadChunkAt(bytes.NewReader(data), entries[0])
	require.NoError(t, err)
	assert.True(t, bytes.Equal(got.Payload, payload), "random-access read payload mismatch")
}
