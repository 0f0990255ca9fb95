package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSumCRC32Deterministic(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	d1 := Sum(CRC32, data)
	d2 := Sum(CRC32, data)
	assert.Equal(t, d1, d2, "CRC32 sum not deterministic")
	assert.Truef(t, d1[0] == 0 && d1[1] == 0 && d1[2] == 0 && d1[3] == 0, "CRC32 digest not left-zero-padded: %v", d1)
}

func TestSumSHA256Deterministic(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	d1 := Sum(SHA256, data)
	d2 := Sum(SHA256, data)
	assert.Equal(t, d1, d2, "SHA256 sum not deterministic")
}

func TestVerify(t *testing.T) {
	data := []byte("payload bytes")
	for _, typ := range []Type{CRC32, SHA256} {
		d := Sum(typ, data)
		assert.Truef(t, Verify(typ, data, d), "Verify failed for type %v on matching data", typ)
		assert.Falsef(t, Verify(typ, []byte("different bytes"), d), "Verify succeeded for type %v on mismatched data", typ)
	}
}

func TestEmptyInput(t *testing.T) {
	for _, typ := range []Type{CRC32, SHA256} {
		d := Sum(typ, nil)
		assert.Truef(t, Verify(typ, []byte{}, d), "empty input checksum should verify against empty slice for type %v", typ)
	}
}

func TestParseType(t *testing.T) {
	cases := map[string]Type{"crc32": CRC32, "": CRC32, "sha256": SHA256}
	for s, want := range cases {
		got, ok := ParseType(s)
		assert.Truef(t, ok, "ParseType(%q) failed", s)
		assert.Equalf(t, want, got, "ParseType(%q)", s)
	}
	_, ok := ParseType("md5")
	assert.False(t, ok, "ParseType(\"md5\") should fail")
}
