package symbols

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
)

// HashString hashes an identifier.
func HashString(s string) uint64 {
	return xxhash.Sum64String(s)
}

// Mix is the splitmix64 finalizer.  Summing mixed hashes gives an
// order-independent combination that doesn't cancel the way XOR does
// for repeated entries.
func Mix(h uint64) uint64 {
	h ^= h >> 30
	h *= 0xbf58476d1ce4e5b9
	h ^= h >> 27
	h *= 0x94d049bb133111eb
	h ^= h >> 31
	return h
}

// Combine is an order-dependent combination of two hashes.
func Combine(seed, h uint64) uint64 {
	return seed ^ (h + 0x9e3779b97f4a7c15 + (seed << 6) + (seed >> 2))
}

// Hash depends only on the kind and the value.
func (v Value) Hash() uint64 {
	var buf [9]byte
	buf[0] = byte(v.kind)
	switch v.kind {
	case Int:
		binary.LittleEndian.PutUint64(buf[1:], uint64(v.i))
	case Bool:
		if v.b {
			buf[1] = 1
		}
	case String:
		return Combine(uint64(String), HashString(v.s))
	default:
		f := v.f
		if f == 0 {
			f = 0 // -0
		}
		binary.LittleEndian.PutUint64(buf[1:], math.Float64bits(f))
	}
	return xxhash.Sum64(buf[:])
}

// HashEntry combines an identifier with its value.
func HashEntry(name string, v Value) uint64 {
	return Mix(Combine(HashString(name), v.Hash()))
}

// Hash is independent of map iteration order.
func (t Table) Hash() uint64 {
	var h uint64
	for k, v := range t {
		h += HashEntry(k, v)
	}
	return h
}
