package memo

import (
	"encoding/binary"
	"math"

	"github.com/zeebo/xxh3"
)

// Hasher builds argument hashes for cache keys.
type Hasher struct {
	h   *xxh3.Hasher
	buf [8]byte
}

// NewHasher returns an empty hasher.
func NewHasher() *Hasher { return &Hasher{h: xxh3.New()} }

// String hashes s together with its length so that adjacent strings
// cannot run into each other.
func (h *Hasher) String(s string) *Hasher {
	h.Uint64(uint64(len(s)))
	h.h.WriteString(s)
	return h
}

// Uint64 hashes v.
func (h *Hasher) Uint64(v uint64) *Hasher {
	binary.LittleEndian.PutUint64(h.buf[:], v)
	h.h.Write(h.buf[:])
	return h
}

// Int hashes v.
func (h *Hasher) Int(v int) *Hasher { return h.Uint64(uint64(v)) }

// Float hashes v by its bit pattern.
func (h *Hasher) Float(v float64) *Hasher { return h.Uint64(math.Float64bits(v)) }

// Bool hashes v.
func (h *Hasher) Bool(v bool) *Hasher {
	if v {
		return h.Uint64(1)
	}
	return h.Uint64(0)
}

// Sum returns the hash of everything written.
func (h *Hasher) Sum() uint64 { return h.h.Sum64() }

// HashString hashes a single string.
func HashString(s string) uint64 { return xxh3.HashString(s) }

// HashBytes hashes a byte slice.
func HashBytes(b []byte) uint64 { return xxh3.Hash(b) }
