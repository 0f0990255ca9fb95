package chunker

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reassemble(chunks []Chunk) []byte {
	var out []byte
	for _, c := range chunks {
		out = append(out, c.Data...)
	}
	return out
}

func TestSplitFixedBasic(t *testing.T) {
	data := make([]byte, 3*1024)
	_, err := rand.Read(data)
	require.NoError(t, err)

	chunks, err := Split(data, Config{Policy: Fixed, Size: 1024})
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	for i, c := range chunks[:len(chunks)-1] {
		assert.Lenf(t, c.Data, 1024, "chunk %d size", i)
		assert.Equal(t, i, c.Index)
	}
	assert.True(t, bytes.Equal(reassemble(chunks), data), "reassembled data doesn't match original")
}

func TestSplitFixedShortLast(t *testing.T) {
	data := make([]byte, 2500)
	_, err := rand.Read(data)
	require.NoError(t, err)

	chunks, err := Split(data, Config{Policy: Fixed, Size: 1024})
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[2].Data, 452)
}

func TestSplitEmptyInput(t *testing.T) {
	chunks, err := Split(nil, Config{Policy: Fixed, Size: 1024})
	require.NoError(t, err)
	assert.Len(t, chunks, 0)
}

func TestSplitAdaptiveBounds(t *testing.T) {
	cfg := Config{Policy: Adaptive, Min: 256, Target: 1024, Max: 4096}

	// Homogeneous data should run to the max before closing (low entropy
	// variance never exceeds tau).
	homogeneous := bytes.Repeat([]byte{0x42}, 20000)
	chunks, err := Split(homogeneous, cfg)
	require.NoError(t, err)

	for i, c := range chunks {
		assert.LessOrEqualf(t, len(c.Data), cfg.Max, "chunk %d exceeds max", i)
		if i < len(chunks)-1 {
			assert.GreaterOrEqualf(t, len(c.Data), cfg.Min, "non-final chunk %d is below min", i)
		}
	}
	assert.True(t, bytes.Equal(reassemble(chunks), homogeneous), "reassembled data doesn't match original")
}

func TestSplitAdaptiveDeterministic(t *testing.T) {
	data := make([]byte, 50*1024)
	_, err := rand.Read(data)
	require.NoError(t, err)

	cfg := Config{Policy: Adaptive, Min: 512, Target: 2048, Max: 8192}

	c1, err := Split(data, cfg)
	require.NoError(t, err)
	c2, err := Split(data, cfg)
	require.NoError(t, err)

	require.Len(t, c2, len(c1))
	for i := range c1 {
		assert.Truef(t, bytes.Equal(c1[i].Data, c2[i].Data), "chunk %d differs across identical runs", i)
	}
}

func TestSplitAdaptiveCoversWholeInput(t *testing.T) {
	data := make([]byte, 100_000)
	_, err := rand.Read(data)
	require.NoError(t, err)

	cfg := Config{Policy: Adaptive, Min: 1024, Target: 8192, Max: 64 * 1024}
	chunks, err := Split(data, cfg)
	require.NoError(t, err)
	require.True(t, bytes.Equal(reassemble(chunks), data), "adaptive chunking must cover the entire input")

	var offset int64
	for i, c := range chunks {
		assert.Equalf(t, offset, c.Offset, "chunk %d offset", i)
		offset += int64(len(c.Data))
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cases := []Config{
		{Policy: Fixed, Size: 0},
		{Policy: Adaptive, Min: 100, Max: 50},
		{Policy: "bogus"},
	}
	for _, c := range cases {
		assert.Errorf(t, c.Validate(), "expected validation error for %+v", c)
	}
}

func TestExactlyMaxSizeSingleChunk(t *testing.T) {
	cfg := Config{Policy: Adaptive, Min: 256, Target: 512, Max: 4096}
	data := make([]byte, cfg.Max)
	_, err := rand.Read(data)
	require.NoError(t, err)

	chunks, err := Split(data, cfg)
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}
