// Package entropy wraps the general-purpose entropy stage as an opaque
// byte->byte codec. A Backend is selected by Mode; zstd backs the balanced
// and max modes, snappy backs the fast mode. Encoders and decoders are
// built lazily and cached for reuse across many chunks.
package entropy

import (
	"fmt"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// Mode selects the level/backend mapping.
type Mode string

const (
	Balanced Mode = "balanced"
	Max      Mode = "max"
	// Fast selects the snappy backend instead of zstd, for workloads where
	// entropy-stage latency matters more than compression ratio.
	Fast Mode = "fast"
)

// LevelForMode maps a mode to a zstd compression level: balanced -> a
// moderate level (3), max -> a high level (19).
func LevelForMode(m Mode) (int, error) {
	switch m {
	case Balanced:
		return 3, nil
	case Max:
		return 19, nil
	case Fast:
		return 1, nil // unused by the snappy backend, kept for symmetry
	default:
		return 0, fmt.Errorf("entropy: unknown mode %q", m)
	}
}

// Backend is the opaque byte->byte codec interface: the concrete zstd or
// snappy implementation is a collaborator, swappable without touching
// callers.
type Backend interface {
	Encode(data []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
	Name() string
}

// NewBackend builds the Backend for the given mode.
func NewBackend(mode Mode) (Backend, error) {
	switch mode {
	case Balanced, Max:
		level, err := LevelForMode(mode)
		if err != nil {
			return nil, err
		}
		return newZstdBackend(level)
	case Fast:
		return snappyBackend{}, nil
	default:
		return nil, fmt.Errorf("entropy: unknown mode %q", mode)
	}
}

// zstdBackend wraps a klauspost/compress/zstd encoder/decoder pair, each
// created lazily and cached via sync.Once.
type zstdBackend struct {
	level       int
	encoder     *zstd.Encoder
	decoder     *zstd.Decoder
	encoderOnce sync.Once
	decoderOnce sync.Once
	encoderErr  error
	decoderErr  error
}

func newZstdBackend(level int) (*zstdBackend, error) {
	if level < 1 || level > 22 {
		return nil, fmt.Errorf("entropy: zstd level must be 1-22, got %d", level)
	}
	return &zstdBackend{level: level}, nil
}

func (b *zstdBackend) getEncoder() (*zstd.Encoder, error) {
	b.encoderOnce.Do(func() {
		b.encoder, b.encoderErr = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(b.level)),
			zstd.WithEncoderConcurrency(1),
		)
	})
	return b.encoder, b.encoderErr
}

func (b *zstdBackend) getDecoder() (*zstd.Decoder, error) {
	b.decoderOnce.Do(func() {
		b.decoder, b.decoderErr = zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxMemory(256*1024*1024),
		)
	})
	return b.decoder, b.decoderErr
}

func (b *zstdBackend) Encode(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	enc, err := b.getEncoder()
	if err != nil {
		return nil, fmt.Errorf("entropy: get zstd encoder: %w", err)
	}
	return enc.EncodeAll(data, make([]byte, 0, len(data))), nil
}

func (b *zstdBackend) Decode(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	dec, err := b.getDecoder()
	if err != nil {
		return nil, fmt.Errorf("entropy: get zstd decoder: %w", err)
	}
	return dec.DecodeAll(data, nil)
}

func (b *zstdBackend) Name() string { return "zstd" }

// snappyBackend wraps golang/snappy's block API, the fastest backend in
// the pack at the cost of ratio.
type snappyBackend struct{}

func (snappyBackend) Encode(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	return snappy.Encode(nil, data), nil
}

func (snappyBackend) Decode(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	return snappy.Decode(nil, data)
}

func (snappyBackend) Name() string { return "snappy" }

// pooled backends for concurrent chunk workers, one pool per mode.
var backendPools sync.Map // Mode -> *sync.Pool

func pool(mode Mode) *sync.Pool {
	if p, ok := backendPools.Load(mode); ok {
		return p.(*sync.Pool)
	}
	p := &sync.Pool{New: func() interface{} {
		b, _ := NewBackend(mode)
		return b
	}}
	actual, _ := backendPools.LoadOrStore(mode, p)
	return actual.(*sync.Pool)
}

// Get returns a pooled Backend for mode; Put returns it for reuse.
func Get(mode Mode) Backend    { return pool(mode).Get().(Backend) }
func Put(mode Mode, b Backend) { pool(mode).Put(b) }

// zstdFrameMagic is the little-endian magic number every zstd frame opens
// with, letting a decoder tell zstd and snappy payloads apart without a
// side channel.
var zstdFrameMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// DecodeAny decodes a payload produced by either backend, detecting which
// one was used from the leading bytes rather than requiring the caller to
// know the mode a chunk was encoded with.
func DecodeAny(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var mode Mode = Fast
	if len(data) >= 4 && string(data[:4]) == string(zstdFrameMagic) {
		mode = Balanced
	}
	b := Get(mode)
	defer Put(mode, b)
	return b.Decode(data)
}
