// Package scheduler runs a bounded worker pool over a chunk sequence,
// processing chunks in parallel but emitting their results in strict
// ascending index order via a reorder buffer and a monotonic writer
// cursor. Container bytes produced this way are identical to a
// single-threaded run of the same input and configuration.
package scheduler

import (
	"context"
	"sync"

	"github.com/FairForge/hlc/internal/chunker"
	"github.com/FairForge/hlc/internal/format"
	"github.com/FairForge/hlc/internal/herrors"
	"github.com/FairForge/hlc/internal/pipeline"
)

// Emit is called once per chunk, strictly in ascending index order.
type Emit func(format.ChunkRecord) error

// Run dispatches chunks across threads workers, each running
// pipeline.EncodeChunk, and hands completed records to emit in index
// order. On the first worker or emit error, no further chunks are
// admitted to the pool; workers already in flight finish their current
// chunk and their results are discarded. Run returns that first error.
func Run(ctx context.Context, chunks []chunker.Chunk, threads int, cfg pipeline.Config, emit Emit) error {
	if threads <= 0 {
		return herrors.New(herrors.ConfigError, "scheduler: threads must be positive")
	}
	n := len(chunks)
	if n == 0 {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	capacity := 2 * threads
	jobs := make(chan chunker.Chunk, capacity)

	type result struct {
		index int
		rec   format.ChunkRecord
		err   error
	}
	results := make(chan result, capacity)

	var wg sync.WaitGroup
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				rec, err := pipeline.EncodeChunk(c.Index, c.Data, cfg)
				select {
				case results <- result{index: c.Index, rec: rec, err: err}:
				case <-runCtx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, c := range chunks {
			select {
			case jobs <- c:
			case <-runCtx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	reorder := make(map[int]result, capacity)
	nextToEmit := 0
	var firstErr error

	for r := range results {
		if r.err != nil && firstErr == nil {
			firstErr = r.err
			cancel()
		}
		reorder[r.index] = r
		for {
			ready, ok := reorder[nextToEmit]
			if !ok {
				break
			}
			delete(reorder, nextToEmit)
			nextToEmit++
			if firstErr != nil {
				continue
			}
			if ready.err != nil {
				firstErr = ready.err
				cancel()
				continue
			}
			if err := emit(ready.rec); err != nil {
				firstErr = err
				cancel()
			}
		}
	}

	if firstErr != nil {
		return firstErr
	}
	if nextToEmit != n {
		return herrors.New(herrors.ResourceExhausted, "scheduler: drained fewer chunks than were submitted")
	}
	return nil
}
