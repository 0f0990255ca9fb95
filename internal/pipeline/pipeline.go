// Package pipeline implements the per-chunk worker: analyze, apply the
// selected transforms in canonical order, hand the result to the entropy
// stage, fall back to storing the chunk raw when the entropy stage expands
// it too far, checksum, and assemble the wire ChunkRecord. Decode reverses
// every step and verifies the result against the stored checksum.
package pipeline

import (
	"github.com/FairForge/hlc/internal/analyzer"
	"github.com/FairForge/hlc/internal/checksum"
	"github.com/FairForge/hlc/internal/entropy"
	"github.com/FairForge/hlc/internal/format"
	"github.com/FairForge/hlc/internal/herrors"
	"github.com/FairForge/hlc/internal/transform"
)

// DefaultExpansionThresholdPerMille is the default store_raw_expansion_threshold
// (2%), expressed as parts-per-thousand to keep the fallback decision
// integer-only.
const DefaultExpansionThresholdPerMille = 20

// Config carries the per-operation settings a chunk worker needs. It is
// the same for every chunk in one compress/decompress run.
type Config struct {
	ChecksumType              checksum.Type
	Mode                      entropy.Mode
	ExpansionThresholdPerMille uint32
}

// WithDefaults fills zero-valued fields with their defaults.
func (c Config) WithDefaults() Config {
	if c.ExpansionThresholdPerMille == 0 {
		c.ExpansionThresholdPerMille = DefaultExpansionThresholdPerMille
	}
	return c
}

// EncodeChunk runs one raw chunk through analysis, transforms, entropy
// coding, and framing, producing the wire ChunkRecord for index.
func EncodeChunk(index int, raw []byte, cfg Config) (format.ChunkRecord, error) {
	cfg = cfg.WithDefaults()
	sum := checksum.Sum(cfg.ChecksumType, raw)

	plan := analyzer.Analyze(raw)

	if plan.StoreRaw {
		return storedRawRecord(raw, sum), nil
	}

	stageOutput := raw
	flags := plan.Flags
	for _, id := range plan.Flags.Selected() {
		tr := transform.ByID(id)
		out, profitable := tr.Encode(stageOutput)
		if !profitable {
			flags = flags.Without(id)
			continue
		}
		stageOutput = out
	}

	backend := entropy.Get(cfg.Mode)
	defer entropy.Put(cfg.Mode, backend)
	compressed, err := backend.Encode(stageOutput)
	if err != nil {
		return format.ChunkRecord{}, herrors.Wrap(herrors.IoError, "pipeline: entropy encode", err).WithChunk(index)
	}

	if expands(len(raw), len(compressed), cfg.ExpansionThresholdPerMille) {
		return storedRawRecord(raw, sum), nil
	}

	header := format.ChunkHeader{
		TransformFlags: flags,
		OriginalSize:   uint32(len(raw)),
		CompressedSize: uint32(len(compressed)),
		Checksum:       sum,
	}
	return format.ChunkRecord{Header: header, Payload: compressed}, nil
}

func storedRawRecord(raw []byte, sum checksum.Digest) format.ChunkRecord {
	cp := make([]byte, len(raw))
	copy(cp, raw)
	header := format.ChunkHeader{
		TransformFlags: transform.StoredRawBit,
		OriginalSize:   uint32(len(raw)),
		CompressedSize: uint32(len(cp)),
		Checksum:       sum,
	}
	return format.ChunkRecord{Header: header, Payload: cp}
}

// expands reports whether compressedLen exceeds originalLen by more than
// thresholdPerMille parts per thousand.
func expands(originalLen, compressedLen int, thresholdPerMille uint32) bool {
	limit := uint64(originalLen) * uint64(1000+thresholdPerMille) / 1000
	return uint64(compressedLen) > limit
}

// DecodeChunk inverts EncodeChunk: entropy-decodes the payload (unless
// stored raw), applies inverse transforms in reverse canonical order, and
// verifies the checksum and length against the header.
func DecodeChunk(index int, rec format.ChunkRecord, checksumType checksum.Type) ([]byte, error) {
	h := rec.Header
	if !h.TransformFlags.Valid() {
		return nil, herrors.New(herrors.InvalidFormat, "pipeline: invalid transform_flags").WithChunk(index)
	}

	var data []byte
	if h.TransformFlags.StoredRaw() {
		data = rec.Payload
	} else {
		decoded, err := entropy.DecodeAny(rec.Payload)
		if err != nil {
			return nil, herrors.Wrap(herrors.CorruptPayload, "pipeline: entropy decode", err).WithChunk(index)
		}
		data = decoded

		selected := transform.Plan{Flags: h.TransformFlags}.Selected()
		for i := len(selected) - 1; i >= 0; i-- {
			tr := transform.ByID(selected[i])
			out, err := tr.Decode(data)
			if err != nil {
				return nil, herrors.Wrap(herrors.CorruptPayload, "pipeline: inverse transform", err).WithChunk(index)
			}
			data = out
		}
	}

	if uint32(len(data)) != h.OriginalSize {
		return nil, herrors.New(herrors.CorruptPayload, "pipeline: decoded length mismatch").WithChunk(index)
	}
	if !checksum.Verify(checksumType, data, h.Checksum) {
		return nil, herrors.New(herrors.CorruptPayload, "pipeline: checksum mismatch").WithChunk(index)
	}
	return data, nil
}
