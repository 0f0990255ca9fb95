// Package transform implements the three reversible byte->byte codecs
// applied before entropy coding (RLE, Delta, Dictionary), each exposing a
// one-shot encode/decode pair; Encode also reports whether its output is
// profitable.
package transform

import "fmt"

// ID identifies one of the three transforms in the canonical set. The
// numeric value doubles as the bit position in the on-wire transform_flags
// bitmask.
type ID uint8

const (
	RLE   ID = 0
	Delta ID = 1
	Dict  ID = 2
)

func (id ID) String() string {
	switch id {
	case RLE:
		return "rle"
	case Delta:
		return "delta"
	case Dict:
		return "dict"
	default:
		return fmt.Sprintf("transform(%d)", uint8(id))
	}
}

// bit returns the on-wire flag bit for this transform.
func (id ID) bit() Flags {
	return Flags(1 << uint8(id))
}

// Flags is the on-wire transform_flags byte: bits0-2 name the canonical
// transform set, bits3-6 are reserved (must be zero), bit7 marks the chunk
// as stored raw.
type Flags uint8

const (
	StoredRawBit Flags = 1 << 7
	reservedMask Flags = 0b0111_1000
	knownMask    Flags = Flags(1<<0 | 1<<1 | 1<<2)
)

// Has reports whether transform id's bit is set.
func (f Flags) Has(id ID) bool { return f&id.bit() != 0 }

// With returns a copy of f with id's bit set.
func (f Flags) With(id ID) Flags { return f | id.bit() }

// Without returns a copy of f with id's bit cleared.
func (f Flags) Without(id ID) Flags { return f &^ id.bit() }

// StoredRaw reports whether the stored-raw escape bit is set.
func (f Flags) StoredRaw() bool { return f&StoredRawBit != 0 }

// Valid reports whether f is well-formed: reserved bits zero, and stored-raw
// implying an empty transform set.
func (f Flags) Valid() bool {
	if f&reservedMask != 0 {
		return false
	}
	if f.StoredRaw() && f&knownMask != 0 {
		return false
	}
	return true
}

// Plan is the ordered sequence of transforms selected for a chunk. On the
// wire it is carried as Flags plus the fixed canonical order below; Plan is
// the in-memory convenience view used by the analyzer and pipeline.
type Plan struct {
	Flags Flags
}

// CanonicalOrder is the fixed application order used on encode; decode runs
// it in reverse. Fixing one order eliminates wire-format ambiguity about
// which transform ran first.
var CanonicalOrder = []ID{RLE, Delta, Dict}

// Selected returns the transforms in p, in canonical encode order.
func (p Plan) Selected() []ID {
	out := make([]ID, 0, len(CanonicalOrder))
	for _, id := range CanonicalOrder {
		if p.Flags.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

// Transform is the interface every reversible byte codec implements.
// Encode must satisfy Decode(Encode(x)) == x for all x, including empty
// input, and must never mutate x.
type Transform interface {
	ID() ID
	// Encode returns the encoded bytes and whether encoding was profitable
	// (RLE and Dict: strictly shorter than the input; Delta, which preserves
	// length, always reports profitable). An unprofitable result is still a valid decodable encoding; callers that
	// care about size fall back to the identity transform instead of using
	// it.
	Encode(data []byte) (out []byte, profitable bool)
	Decode(data []byte) ([]byte, error)
}

// ByID returns the stateless Transform implementation for id.
func ByID(id ID) Transform {
	switch id {
	case RLE:
		return rleTransform{}
	case Delta:
		return deltaTransform{}
	case Dict:
		return dictTransform{}
	default:
		panic(fmt.Sprintf("transform: unknown id %d", id))
	}
}
