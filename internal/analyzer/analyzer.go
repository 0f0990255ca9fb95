// Package analyzer inspects a chunk's raw bytes and decides which
// reversible transforms are worth applying before entropy coding, plus
// whether the chunk looks incompressible enough to skip transformation and
// entropy coding entirely (store_raw).
//
// Every statistic is computed with fixed-point (Q16.16) integer arithmetic
// so the resulting Plan depends only on the chunk bytes and the configured
// thresholds, never on floating-point rounding behavior.
package analyzer

import (
	"math/bits"

	"github.com/cespare/xxhash/v2"

	"github.com/FairForge/hlc/internal/transform"
)

const (
	q16One = 1 << 16

	// sampleThreshold: chunks longer than this are analyzed via a bounded
	// leading sample instead of their full length.
	sampleThreshold = 16 * 1024
	sampleSize      = 4 * 1024

	runScoreThresholdQ16   = q16One / 4        // 0.25
	deltaMarginQ16         = q16One / 4        // 0.25 bits/byte
	repetitionThresholdQ16 = q16One / 10       // 0.10
	incompressibleHQ16     = 7*q16One + 45875  // ~7.7 bits/byte (0.7*65536≈45875)
	incompressibleRepQ16   = q16One * 2 / 100  // 0.02

	repetitionTableSize = 2048
	minMatchLen          = 4

	// runQualifyingMin is the shortest run counted toward the run-coverage
	// score: shorter runs cost more to RLE-encode (tag+value+count) than
	// they save, so they shouldn't count as evidence RLE is worthwhile.
	runQualifyingMin = 4
)

// Plan is the outcome of analyzing one chunk: the set of transforms worth
// applying, and whether the chunk should bypass transformation and entropy
// coding entirely.
type Plan struct {
	Flags    transform.Flags
	StoreRaw bool
}

// Analyze computes statistics over data (or a bounded leading sample of it,
// for chunks above sampleThreshold) and returns the resulting Plan.
func Analyze(data []byte) Plan {
	if len(data) == 0 {
		return Plan{}
	}

	sample := data
	if len(data) > sampleThreshold {
		sample = data[:sampleSize]
	}
	l := len(sample)

	histRaw := histogram(sample)
	hRaw := entropyQ16(histRaw, uint32(l))

	longestRun, qualifyingRunBytes := runStats(sample)
	runScore := runScoreQ16(qualifyingRunBytes, l)
	runSelected := runScore >= runScoreThresholdQ16 || longestRun >= maxInt(16, l/64)

	delta := deltaOf(sample)
	histDelta := histogram(delta)
	hDelta := entropyQ16(histDelta, uint32(l))
	deltaSelected := hDelta+deltaMarginQ16 < hRaw

	repScore := repetitionScoreQ16(sample)
	dictSelected := repScore >= repetitionThresholdQ16

	var flags transform.Flags
	if runSelected {
		flags = flags.With(transform.RLE)
	}
	if deltaSelected {
		flags = flags.With(transform.Delta)
	}
	if dictSelected {
		flags = flags.With(transform.Dict)
	}

	storeRaw := hRaw > incompressibleHQ16 && repScore < incompressibleRepQ16 && !runSelected

	return Plan{Flags: flags, StoreRaw: storeRaw}
}

func histogram(data []byte) [256]uint32 {
	var h [256]uint32
	for _, b := range data {
		h[b]++
	}
	return h
}

// entropyQ16 computes a Q16.16 fixed-point zero-order Shannon entropy
// estimate (bits/byte) from a byte histogram, using only integer
// arithmetic via log2Q16.
func entropyQ16(histogram [256]uint32, total uint32) uint64 {
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

// log2Q16 returns a Q16.16 fixed-point estimate of log2(x): the integer
// part is exact (floor(log2(x))), the fractional part is linearly
// interpolated between the surrounding powers of two.
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

// runStats scans data's maximal byte runs once, returning the longest run
// seen and the total number of bytes covered by runs at least
// runQualifyingMin long. Summing every run's length (qualifying or not)
// always reconstructs len(data), so that sum alone carries no signal; only
// counting qualifying runs does.
func runStats(data []byte) (longest, qualifyingBytes int) {
	n := len(data)
	i := 0
	for i < n {
		j := i + 1
		for j < n && data[j] == data[i] {
			j++
		}
		runLen := j - i
		if runLen > longest {
			longest = runLen
		}
		if runLen >= runQualifyingMin {
			qualifyingBytes += runLen
		}
		i = j
	}
	return longest, qualifyingBytes
}

// runScoreQ16 is the fraction, in Q16.16, of data's bytes covered by
// qualifying runs (length >= runQualifyingMin).
func runScoreQ16(qualifyingBytes, l int) uint64 {
	if l == 0 {
		return 0
	}
	return (uint64(qualifyingBytes) << 16) / uint64(l)
}

func deltaOf(data []byte) []byte {
	if len(data) == 0 {
		return nil
	}
	out := make([]byte, len(data))
	out[0] = data[0]
	for i := 1; i < len(data); i++ {
		out[i] = data[i] - data[i-1]
	}
	return out
}

// repetitionScoreQ16 estimates the fraction of 4-byte substrings that
// collide, by hash, with an earlier one in a small direct-mapped table of
// repetitionTableSize entries (no chaining: a new entry simply overwrites
// an older one in its bucket).
func repetitionScoreQ16(data []byte) uint64 {
	n := len(data)
	windows := n - minMatchLen + 1
	if windows <= 0 {
		return 0
	}

	var table [repetitionTableSize]uint64
	var seen [repetitionTableSize]bool
	var dup int

	for i := 0; i < windows; i++ {
		h := xxhash.Sum64(data[i : i+minMatchLen])
		bucket := h % repetitionTableSize
		if seen[bucket] && table[bucket] == h {
			dup++
		}
		table[bucket] = h
		seen[bucket] = true
	}

	return (uint64(dup) << 16) / uint64(windows)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
