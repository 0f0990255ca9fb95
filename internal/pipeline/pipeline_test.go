package pipeline

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FairForge/hlc/internal/checksum"
	"github.com/FairForge/hlc/internal/entropy"
	"github.com/FairForge/hlc/internal/format"
)

func TestEncodeDecodeRoundTripRepetitive(t *testing.T) {
	raw := bytes.Repeat([]byte{0x41}, 4096)
	cfg := Config{ChecksumType: checksum.CRC32, Mode: entropy.Balanced}

	rec, err := EncodeChunk(0, raw, cfg)
	require.NoError(t, err)
	assert.EqualValues(t, len(raw), rec.Header.OriginalSize)

	decoded, err := DecodeChunk(0, rec, cfg.ChecksumType)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(decoded, raw), "round trip mismatch")
}

func TestEncodeDecodeRoundTripRandomFallsBackToStoredRaw(t *testing.T) {
	raw := make([]byte, 8192)
	_, err := rand.Read(raw)
	require.NoError(t, err)

	cfg := Config{ChecksumType: checksum.SHA256, Mode: entropy.Max}

	rec, err := EncodeChunk(0, raw, cfg)
	require.NoError(t, err)
	assert.True(t, rec.Header.TransformFlags.StoredRaw(), "expected random data to fall back to stored-raw")
	assert.True(t, bytes.Equal(rec.Payload, raw), "stored-raw payload must equal the original chunk bytes")

	decoded, err := DecodeChunk(0, rec, cfg.ChecksumType)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(decoded, raw), "round trip mismatch on stored-raw chunk")
}

func TestEncodeDecodeRoundTripDeltaRamp(t *testing.T) {
	raw := make([]byte, 256*16)
	for i := range raw {
		raw[i] = byte(i % 256)
	}
	cfg := Config{ChecksumType: checksum.CRC32, Mode: entropy.Balanced}

	rec, err := EncodeChunk(0, raw, cfg)
	require.NoError(t, err)
	decoded, err := DecodeChunk(0, rec, cfg.ChecksumType)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(decoded, raw), "round trip mismatch")
}

func TestDecodeDetectsChecksumMismatch(t *testing.T) {
	raw := bytes.Repeat([]byte{0x42}, 2048)
	cfg := Config{ChecksumType: checksum.CRC32, Mode: entropy.Balanced}
	rec, err := EncodeChunk(0, raw, cfg)
	require.NoError(t, err)
	rec.Header.Checksum[7] ^= 0xFF

	_, err = DecodeChunk(0, rec, cfg.ChecksumType)
	assert.Error(t, err, "expected checksum mismatch error")
}

func TestDecodeDetectsLengthMismatch(t *testing.T) {
	raw := bytes.Repeat([]byte{0x43}, 2048)
	cfg := Config{ChecksumType: checksum.CRC32, Mode: entropy.Balanced}
	rec, err := EncodeChunk(0, raw, cfg)
	require.NoError(t, err)
	rec.Header.OriginalSize++

	_, err = DecodeChunk(0, rec, cfg.ChecksumType)
	assert.Error(t, err, "expected length mismatch error")
}

func TestDecodeRejectsInvalidTransformFlags(t *testing.T) {
	rec := format.ChunkRecord{
		Header: format.ChunkHeader{TransformFlags: 0b0000_1000}, // reserved bit set
	}
	_, err := DecodeChunk(0, rec, checksum.CRC32)
	assert.Error(t, err, "expected error for reserved transform_flags bit set")
}
