// Package filterhash derives the independent index streams the bloom-family
// filters need from a single 128-bit digest of an item, using the
// Kirsch-Mitzenmacher double-hashing trick instead of k independent hash
// functions.
package filterhash

import (
	"github.com/spaolacci/murmur3"
)

// positiveMask clears the sign bit of a 64-bit value so it can be used with
// the unsigned mod operations the filters perform, without ever flipping a
// negative stride when treated as a signed/unsigned boundary value.
const positiveMask = 0x7FFFFFFFFFFFFFFF

// seed is the fixed murmur3 seed used across the whole filter family. Every
// filter that must agree on bit positions (merge operands, reopened
// file-mapped vectors) relies on this being constant.
const seed uint32 = 0

// Digest is the 128-bit hash of an item, split into two 64-bit halves.
type Digest struct {
	H1 uint64
	H2 uint64
}

// Sum computes the 128-bit digest of data using MurmurHash3 x64 128 with the
// package-wide seed.
func Sum(data []byte) Digest {
	h1, h2 := murmur3.Sum128WithSeed(data, seed)

	return Digest{H1: h1, H2: h2}
}

// SumSeed computes the 128-bit digest of data using an explicit seed. Used by
// tests that need to reproduce the published test vectors at seeds other than
// the package default.
func SumSeed(data []byte, s uint32) Digest {
	h1, h2 := murmur3.Sum128WithSeed(data, s)

	return Digest{H1: h1, H2: h2}
}

// Indices fills dst with k non-negative 64-bit indices derived from data via
// dst[i] = (h1 + i*h2) with every entry masked positive, so dst[0] is h1
// masked positive. dst must have length k.
func Indices(data []byte, dst []uint64) {
	d := Sum(data)
	IndicesFromDigest(d, dst)
}

// IndicesFromDigest is Indices for a digest already computed, so callers that
// need the raw digest (e.g. fingerprint derivation) don't hash twice.
func IndicesFromDigest(d Digest, dst []uint64) {
	for i := range dst {
		dst[i] = (d.H1 + uint64(i)*d.H2) & positiveMask
	}
}

// Fingerprint derives a non-zero value fitting in bitsPerTag bits (1..63)
// from a 64-bit hash, re-mixing via a 32-bit round if the masked value is
// zero. The sentinel tag 0 always means "empty slot", so a fingerprint must
// never take that value.
func Fingerprint(h uint64, bitsPerTag uint) uint64 {
	mask := uint64(1)<<bitsPerTag - 1

	tag := h & mask
	for tag == 0 {
		h = uint64(remix(uint32(h)))
		tag = h & mask
	}

	return tag
}

// remix re-mixes a 32-bit value using murmur3's own finalizer so the
// fingerprint re-mix loop in Fingerprint terminates with overwhelming
// probability without re-hashing the original item.
func remix(x uint32) uint32 {
	const (
		c1 = 0x85ebca6b
		c2 = 0xc2b2ae35
	)

	x ^= x >> 16
	x *= c1
	x ^= x >> 13
	x *= c2
	x ^= x >> 16

	return x
}
