package analyzer

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FairForge/hlc/internal/transform"
)

func TestAnalyzeEmpty(t *testing.T) {
	p := Analyze(nil)
	assert.Zero(t, p.Flags)
	assert.False(t, p.StoreRaw)
}

func TestAnalyzeSelectsRLEOnLongRuns(t *testing.T) {
	data := bytes.Repeat([]byte{0x41}, 4096)
	p := Analyze(data)
	assert.True(t, p.Flags.Has(transform.RLE), "expected RLE to be selected for a long constant run")
	assert.False(t, p.StoreRaw, "a highly compressible chunk should not be marked store_raw")
}

func TestAnalyzeSelectsDeltaOnConstantStride(t *testing.T) {
	data := make([]byte, 256*16)
	for i := range data {
		data[i] = byte(i % 256)
	}
	p := Analyze(data)
	assert.True(t, p.Flags.Has(transform.Delta), "expected Delta to be selected for a constant-stride ramp")
}

func TestAnalyzeSelectsDictOnRepeatedPattern(t *testing.T) {
	data := bytes.Repeat([]byte("abcdefgh"), 1024)
	p := Analyze(data)
	assert.True(t, p.Flags.Has(transform.Dict), "expected Dict to be selected for a repeating 8-byte pattern")
}

func TestAnalyzeStoreRawOnRandomData(t *testing.T) {
	data := make([]byte, 8192)
	_, err := rand.Read(data)
	require.NoError(t, err)

	p := Analyze(data)
	assert.True(t, p.StoreRaw, "expected store_raw on high-entropy random data with no repetition")
	assert.Falsef(t, p.Flags.Has(transform.RLE) || p.Flags.Has(transform.Dict), "did not expect RLE/Dict selected on random data: %+v", p.Flags)
}

func TestAnalyzeSampledLargeChunk(t *testing.T) {
	data := make([]byte, 20*1024)
	for i := 0; i < sampleSize; i++ {
		data[i] = 0x7A
	}
	_, err := rand.Read(data[sampleSize:])
	require.NoError(t, err)

	p := Analyze(data)
	assert.True(t, p.Flags.Has(transform.RLE), "expected the leading sample's long run to drive RLE selection")
}

func TestAnalyzeDeterministic(t *testing.T) {
	data := make([]byte, 5000)
	_, err := rand.Read(data)
	require.NoError(t, err)

	p1 := Analyze(data)
	p2 := Analyze(data)
	assert.Equal(t, p1, p2, "analyzer must be deterministic")
}
