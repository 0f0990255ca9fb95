package transform

import (
	"encoding/binary"
	"fmt"

	"github.com/FairForge/hlc/internal/herrors"
)

// rleTransform implements run-length encoding: the payload is a sequence of
// tagged records, each either a literal run (raw bytes) or a repeat run (one
// value repeated N times), both length-prefixed with a varint so no escape
// byte is needed in the literal stream.
type rleTransform struct{}

func (rleTransform) ID() ID { return RLE }

const (
	rleTagLiteral = 0x00
	rleTagRepeat  = 0x01
	// minRunLen is the shortest run worth encoding as a repeat record: tag
	// + value + 1-byte varint count is 3 bytes, so runs shorter than that
	// cost more than they save.
	minRunLen = 4
)

func (rleTransform) Encode(data []byte) ([]byte, bool) {
	if len(data) == 0 {
		return nil, true
	}

	out := make([]byte, 0, len(data))
	var varintBuf [binary.MaxVarintLen64]byte

	flushLiteral := func(lit []byte) {
		if len(lit) == 0 {
			return
		}
		out = append(out, rleTagLiteral)
		n := binary.PutUvarint(varintBuf[:], uint64(len(lit)))
		out = append(out, varintBuf[:n]...)
		out = append(out, lit...)
	}

	i := 0
	litStart := 0
	for i < len(data) {
		j := i + 1
		for j < len(data) && data[j] == data[i] {
			j++
		}
		runLen := j - i
		if runLen >= minRunLen {
			flushLiteral(data[litStart:i])
			out = append(out, rleTagRepeat, data[i])
			n := binary.PutUvarint(varintBuf[:], uint64(runLen))
			out = append(out, varintBuf[:n]...)
			i = j
			litStart = i
		} else {
			i = j
		}
	}
	flushLiteral(data[litStart:])

	return out, len(out) < len(data)
}

func (rleTransform) Decode(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	out := make([]byte, 0, len(data))
	r := data
	for len(r) > 0 {
		tag := r[0]
		r = r[1:]
		switch tag {
		case rleTagLiteral:
			n, sz := binary.Uvarint(r)
			if sz <= 0 {
				return nil, herrors.Wrap(herrors.CorruptPayload, "rle: bad literal length varint", fmt.Errorf("size=%d", sz))
			}
			r = r[sz:]
			if uint64(len(r)) < n {
				return nil, herrors.New(herrors.CorruptPayload, "rle: literal run truncated")
			}
			out = append(out, r[:n]...)
			r = r[n:]
		case rleTagRepeat:
			if len(r) < 1 {
				return nil, herrors.New(herrors.CorruptPayload, "rle: missing repeat value")
			}
			value := r[0]
			r = r[1:]
			n, sz := binary.Uvarint(r)
			if sz <= 0 {
				return nil, herrors.Wrap(herrors.CorruptPayload, "rle: bad repeat count varint", fmt.Errorf("size=%d", sz))
			}
			r = r[sz:]
			for k := uint64(0); k < n; k++ {
				out = append(out, value)
			}
		default:
			return nil, herrors.New(herrors.CorruptPayload, fmt.Sprintf("rle: unknown record tag %d", tag))
		}
	}
	return out, nil
}
