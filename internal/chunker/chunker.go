// Package chunker splits an input stream into bounded, independent chunks
// under one of two policies: Fixed (every chunk exactly chunk_size bytes
// except possibly the last) and Adaptive (entropy-variance-driven early
// close within [chunk_size_min, chunk_size_max]).
//
// Adaptive boundary decisions run entirely on fixed-point (Q16.16) integer
// arithmetic rather than floating point, so chunk boundaries are bit-
// identical across platforms and Go versions.
package chunker

import (
	"math/bits"

	"github.com/FairForge/hlc/internal/herrors"
)

// Policy selects the chunking strategy.
type Policy string

const (
	Fixed    Policy = "fixed"
	Adaptive Policy = "adaptive"
)

// Chunk is a contiguous, non-overlapping byte slice with a monotonic
// 0-based index and its starting byte offset in the original stream.
type Chunk struct {
	Index  int
	Offset int64
	Data   []byte
}

// Config configures either chunking policy. Fixed uses Size only; Adaptive
// closes chunks using Min/Max/Tau. Target is defaulted and validated to lie
// within [Min, Max], but does not affect where adaptive chunks close.
type Config struct {
	Policy Policy

	// Fixed policy.
	Size int

	// Adaptive policy bounds (defaults: 1 KiB min / 64 KiB max).
	Min    int
	Target int
	Max    int

	// Tau is the fixed-point threshold (Q16.16, i.e. bits * 65536) on the
	// mean absolute deviation of the running entropy estimate, above which
	// an adaptive chunk closes early. Zero selects DefaultTau.
	Tau uint64
}

const (
	DefaultAdaptiveMin    = 1024
	DefaultAdaptiveMax    = 64 * 1024
	DefaultAdaptiveTarget = 8 * 1024
	// DefaultTau is tuned so that genuinely homogeneous regions (constant
	// or near-constant byte-frequency blocks) stay together, while a shift
	// from, say, text to compiled binary content trips an early close.
	DefaultTau uint64 = 1 << 15 // 0.5 bits in Q16.16

	// adaptiveBlock is the granularity at which the rolling entropy
	// estimate is resampled. It is an internal tuning constant, not a
	// configuration surface.
	adaptiveBlock = 256
)

// Validate rejects configurations that cannot produce a well-formed chunk
// sequence.
func (c Config) Validate() error {
	switch c.Policy {
	case Fixed:
		if c.Size <= 0 {
			return herrors.New(herrors.ConfigError, "chunker: fixed chunk size must be positive")
		}
	case Adaptive:
		if c.Min <= 0 || c.Max <= 0 {
			return herrors.New(herrors.ConfigError, "chunker: adaptive chunk_size_min/max must be positive")
		}
		if c.Min > c.Max {
			return herrors.New(herrors.ConfigError, "chunker: chunk_size_min must be <= chunk_size_max")
		}
		if c.Target != 0 && (c.Target < c.Min || c.Target > c.Max) {
			return herrors.New(herrors.ConfigError, "chunker: chunk_size_tgt must be within [min, max]")
		}
	default:
		return herrors.New(herrors.ConfigError, "chunker: unknown policy")
	}
	return nil
}

// WithDefaults fills zero-valued adaptive fields with their defaults.
func (c Config) WithDefaults() Config {
	if c.Policy == Adaptive {
		if c.Min == 0 {
			c.Min = DefaultAdaptiveMin
		}
		if c.Max == 0 {
			c.Max = DefaultAdaptiveMax
		}
		if c.Target == 0 {
			c.Target = DefaultAdaptiveTarget
		}
		if c.Tau == 0 {
			c.Tau = DefaultTau
		}
	}
	return c
}

// Split splits data into chunks per c's policy. It is a pure function of
// data and c: identical inputs always produce identical chunk boundaries.
func Split(data []byte, c Config) ([]Chunk, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c = c.WithDefaults()
	if len(data) == 0 {
		return nil, nil
	}
	switch c.Policy {
	case Fixed:
		return splitFixed(data, c.Size), nil
	case Adaptive:
		return splitAdaptive(data, c), nil
	default:
		return nil, herrors.New(herrors.ConfigError, "chunker: unknown policy")
	}
}

func splitFixed(data []byte, size int) []Chunk {
	var chunks []Chunk
	var offset int64
	index := 0
	for offset < int64(len(data)) {
		end := offset + int64(size)
		if end > int64(len(data)) {
			end = int64(len(data))
		}
		chunks = append(chunks, Chunk{Index: index, Offset: offset, Data: data[offset:end]})
		offset = end
		index++
	}
	return chunks
}

func splitAdaptive(data []byte, c Config) []Chunk {
	var chunks []Chunk
	start := 0
	index := 0
	n := len(data)

	for start < n {
		end := adaptiveChunkEnd(data, start, c)
		chunks = append(chunks, Chunk{Index: index, Offset: int64(start), Data: data[start:end]})
		start = end
		index++
	}
	return chunks
}

// adaptiveChunkEnd finds the close point for a chunk starting at start,
// scanning forward in adaptiveBlock-sized increments, maintaining a running
// mean/variance of the fixed-point entropy estimate over blocks seen so
// far, and closing as soon as that variance exceeds c.Tau once the chunk
// has reached c.Min bytes. If no close point is found by c.Max, it closes
// at c.Max (or at the end of data, whichever is smaller).
func adaptiveChunkEnd(data []byte, start int, c Config) int {
	n := len(data)
	hardMax := start + c.Max
	if hardMax > n {
		hardMax = n
	}
	minEnd := start + c.Min
	if minEnd > hardMax {
		return hardMax
	}

	var histogram [256]uint32
	var windowLen uint32
	var sumE, sumE2 uint64 // Q16.16 entropy values and their absolute deviations from the running mean
	var blocks uint64

	pos := start
	for pos < hardMax {
		blockEnd := pos + adaptiveBlock
		if blockEnd > hardMax {
			blockEnd = hardMax
		}
		for i := pos; i < blockEnd; i++ {
			histogram[data[i]]++
			windowLen++
		}
		pos = blockEnd

		e := fixedEntropyQ16(histogram[:], windowLen)
		blocks++
		sumE += e
		// variance accumulator via sum of squared deviation is avoided
		// (would need wide intermediates); instead track sum of |delta|
		// from the running mean, a cheap fixed-point proxy for variance
		// that stays monotonic and entirely integer.
		mean := sumE / blocks
		var dev uint64
		if e > mean {
			dev = e - mean
		} else {
			dev = mean - e
		}
		sumE2 += dev

		if pos-start >= c.Min {
			variance := sumE2 / blocks
			if variance > c.Tau {
				return pos
			}
		}
	}
	return hardMax
}

// fixedEntropyQ16 computes a Q16.16 fixed-point estimate of the Shannon
// entropy (bits/byte) of the byte histogram seen so far, using only
// integer arithmetic (via log2Q16) so the result is bit-identical across
// platforms.
func fixedEntropyQ16(histogram []uint32, total uint32) uint64 {
	if total == 0 {
		return 0
	}
	logTotal := log2Q16(total)
	var acc uint64
	for _, c := range histogram {
		if c == 0 {
			continue
		}
		logC := log2Q16(c)
		var diff uint64
		if logTotal > logC {
			diff = uint64(logTotal - logC)
		}
		acc += uint64(c) * diff
	}
	return acc / uint64(total)
}

// log2Q16 returns floor(log2(x)) in the integer part and a linearly
// interpolated fractional part, both packed into a Q16.16 fixed-point
// value. It is a cheap, deterministic, monotonic stand-in for a true
// log2 — adequate for a heuristic chunk-boundary decision, never used for
// anything that must be exact.
func log2Q16(x uint32) uint32 {
	if x == 0 {
		return 0
	}
	msb := uint32(bits.Len32(x) - 1)
	if msb == 0 {
		return 0
	}
	rem := x - (1 << msb)
	frac := (rem << 16) >> msb
	return msb<<16 + frac
}
