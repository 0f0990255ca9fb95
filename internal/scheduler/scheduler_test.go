package scheduler

import (
	"context"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FairForge/hlc/internal/checksum"
	"github.com/FairForge/hlc/internal/chunker"
	"github.com/FairForge/hlc/internal/entropy"
	"github.com/FairForge/hlc/internal/format"
	"github.com/FairForge/hlc/internal/pipeline"
)

func makeChunks(t *testing.T, n, size int) []chunker.Chunk {
	t.Helper()
	chunks := make([]chunker.Chunk, n)
	for i := 0; i < n; i++ {
		data := make([]byte, size)
		_, err := rand.Read(data)
		require.NoError(t, err)
		chunks[i] = chunker.Chunk{Index: i, Offset: int64(i * size), Data: data}
	}
	return chunks
}

func runOrdered(t *testing.T, chunks []chunker.Chunk, threads int) []format.ChunkRecord {
	t.Helper()
	cfg := pipeline.Config{ChecksumType: checksum.CRC32, Mode: entropy.Balanced}
	var got []format.ChunkRecord
	err := Run(context.Background(), chunks, threads, cfg, func(rec format.ChunkRecord) error {
		got = append(got, rec)
		return nil
	})
	require.NoError(t, err)
	return got
}

func TestRunEmitsInAscendingOrder(t *testing.T) {
	chunks := makeChunks(t, 50, 256)
	for _, threads := range []int{1, 4, 16} {
		got := runOrdered(t, chunks, threads)
		require.Lenf(t, got, len(chunks), "threads=%d", threads)
		for i, rec := range got {
			decoded, err := pipeline.DecodeChunk(i, rec, checksum.CRC32)
			require.NoErrorf(t, err, "threads=%d chunk %d", threads, i)
			assert.Equalf(t, string(chunks[i].Data), string(decoded), "threads=%d: chunk %d payload doesn't match source chunk %d", threads, i, i)
		}
	}
}

func TestRunDeterministicAcrossThreadCounts(t *testing.T) {
	chunks := makeChunks(t, 30, 512)
	single := runOrdered(t, chunks, 1)
	multi := runOrdered(t, chunks, 8)
	require.Equal(t, len(single), len(multi))
	for i := range single {
		assert.Equalf(t, single[i].Header, multi[i].Header, "chunk %d header differs between thread counts", i)
		assert.Equalf(t, string(single[i].Payload), string(multi[i].Payload), "chunk %d payload differs between thread counts", i)
	}
}

func TestRunPropagatesEmitError(t *testing.T) {
	chunks := makeChunks(t, 10, 128)
	cfg := pipeline.Config{ChecksumType: checksum.CRC32, Mode: entropy.Balanced}
	boom := errors.New("emit failed")
	emitted := 0
	err := Run(context.Background(), chunks, 4, cfg, func(rec format.ChunkRecord) error {
		emitted++
		if emitted == 3 {
			return boom
		}
		return nil
	})
	assert.Error(t, err, "expected an error to propagate")
}

func TestRunRejectsNonPositiveThreads(t *testing.T) {
	chunks := makeChunks(t, 1, 64)
	cfg := pipeline.Config{ChecksumType: checksum.CRC32, Mode: entropy.Balanced}
	err := Run(context.Background(), chunks, 0, cfg, func(format.ChunkRecord) error { return nil })
	assert.Error(t, err, "expected error for zero threads")
}

func TestRunEmptyInput(t *testing.T) {
	cfg := pipeline.Config{ChecksumType: checksum.CRC32, Mode: entropy.Balanced}
	called := false
	err := Run(context.Background(), nil, 4, cfg, func(format.ChunkRecord) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called, "emit should never be called for zero chunks")
}
