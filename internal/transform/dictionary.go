package transform

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/FairForge/hlc/internal/herrors"
)

// dictTransform implements chunk-local LZ-style dictionary coding: a sliding
// window no larger than dictWindow, literal bytes and (offset, length)
// back-reference tokens, minimum match length 4, and a bounded search depth
// of dictSearchDepth probes per position. The window never spans chunk
// boundaries, so every chunk decodes independently of its neighbors.
//
// Candidate positions for a given 4-byte prefix are hashed with xxhash
// instead of a hand-rolled rolling hash.
type dictTransform struct{}

func (dictTransform) ID() ID { return Dict }

const (
	dictTagLiteral      = 0x00
	dictTagMatch        = 0x01
	dictMinMatch        = 4
	dictWindow          = 32 * 1024
	dictSearchDepth     = 16
	dictMaxChainPerHash = dictSearchDepth
)

func dictHash4(b []byte) uint64 {
	return xxhash.Sum64(b[:4])
}

func (dictTransform) Encode(data []byte) ([]byte, bool) {
	n := len(data)
	if n == 0 {
		return nil, true
	}

	table := make(map[uint64][]int, n/8+1)
	out := make([]byte, 0, n)
	var varintBuf [binary.MaxVarintLen64]byte

	litStart := 0
	flushLiteral := func(end int) {
		if end <= litStart {
			return
		}
		out = append(out, dictTagLiteral)
		m := binary.PutUvarint(varintBuf[:], uint64(end-litStart))
		out = append(out, varintBuf[:m]...)
		out = append(out, data[litStart:end]...)
	}

	insert := func(pos int) {
		if pos+4 > n {
			return
		}
		h := dictHash4(data[pos:])
		chain := table[h]
		chain = append(chain, pos)
		if len(chain) > dictMaxChainPerHash {
			chain = chain[len(chain)-dictMaxChainPerHash:]
		}
		table[h] = chain
	}

	i := 0
	for i < n {
		if i+dictMinMatch > n {
			insert(i)
			i++
			continue
		}

		h := dictHash4(data[i:])
		candidates := table[h]

		bestLen := 0
		bestOff := 0
		probes := 0
		for k := len(candidates) - 1; k >= 0 && probes < dictSearchDepth; k-- {
			cand := candidates[k]
			probes++
			if i-cand > dictWindow {
				continue
			}
			matchLen := 0
			maxLen := n - i
			for matchLen < maxLen && data[cand+matchLen] == data[i+matchLen] {
				matchLen++
			}
			if matchLen > bestLen {
				bestLen = matchLen
				bestOff = i - cand
			}
		}

		if bestLen >= dictMinMatch {
			flushLiteral(i)
			out = append(out, dictTagMatch)
			m := binary.PutUvarint(varintBuf[:], uint64(bestOff))
			out = append(out, varintBuf[:m]...)
			m = binary.PutUvarint(varintBuf[:], uint64(bestLen))
			out = append(out, varintBuf[:m]...)

			end := i + bestLen
			for ; i < end; i++ {
				insert(i)
			}
			litStart = i
		} else {
			insert(i)
			i++
		}
	}
	flushLiteral(n)

	return out, len(out) < n
}

func (dictTransform) Decode(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	out := make([]byte, 0, len(data))
	r := data
	for len(r) > 0 {
		tag := r[0]
		r = r[1:]
		switch tag {
		case dictTagLiteral:
			n, sz := binary.Uvarint(r)
			if sz <= 0 {
				return nil, herrors.Wrap(herrors.CorruptPayload, "dict: bad literal length varint", fmt.Errorf("size=%d", sz))
			}
			r = r[sz:]
			if uint64(len(r)) < n {
				return nil, herrors.New(herrors.CorruptPayload, "dict: literal run truncated")
			}
			out = append(out, r[:n]...)
			r = r[n:]
		case dictTagMatch:
			off, sz := binary.Uvarint(r)
			if sz <= 0 {
				return nil, herrors.New(herrors.CorruptPayload, "dict: bad match offset varint")
			}
			r = r[sz:]
			length, sz2 := binary.Uvarint(r)
			if sz2 <= 0 {
				return nil, herrors.New(herrors.CorruptPayload, "dict: bad match length varint")
			}
			r = r[sz2:]

			if off == 0 || int(off) > len(out) {
				return nil, herrors.New(herrors.CorruptPayload, "dict: match offset out of range")
			}
			start := len(out) - int(off)
			for k := uint64(0); k < length; k++ {
				out = append(out, out[start+int(k)])
			}
		default:
			return nil, herrors.New(herrors.CorruptPayload, fmt.Sprintf("dict: unknown record tag %d", tag))
		}
	}
	return out, nil
}
