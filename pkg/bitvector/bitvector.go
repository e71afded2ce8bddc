// Package bitvector implements the contiguous, word-packed bit array that
// every filter variant stores its state in, with three interchangeable
// backings: heap-resident words, anonymous off-heap memory, and a
// read-write memory-mapped file.
package bitvector

import (
	"errors"
	"fmt"
	"math/bits"
)

// bitsPerWord is the width of each storage word. Bit index i lives in word
// i>>6, bit i&63, little-endian within the word.
const bitsPerWord = 64

// ErrIncompatibleMerge is returned by PutAll when the operand has a different
// backing kind, a different bitSize, or is nil.
var ErrIncompatibleMerge = errors.New("bitvector: incompatible merge operand")

// ErrIndexOutOfRange is returned by Get/Set/Unset when the index is not in
// [0, BitSize()).
var ErrIndexOutOfRange = errors.New("bitvector: index out of range")

// ErrInvalidArgument is returned by constructors on bad parameters.
var ErrInvalidArgument = errors.New("bitvector: invalid argument")

// Vector is the contract every backing satisfies. All operations are
// index-safe: implementations must validate i against BitSize().
type Vector interface {
	// Get reports whether bit i is set.
	Get(i uint64) (bool, error)
	// Set sets bit i, returning true iff it transitioned 0->1.
	Set(i uint64) (bool, error)
	// Unset clears bit i, returning true iff it transitioned 1->0.
	Unset(i uint64) (bool, error)
	// Cardinality returns the number of set bits.
	Cardinality() uint64
	// BitSize returns the total number of addressable bits.
	BitSize() uint64
	// Clear zeroes every bit.
	Clear()
	// PutAll ORs other's words into this vector in place. Returns
	// ErrIncompatibleMerge if the backings or sizes don't match.
	PutAll(other Vector) error
	// Words exposes the underlying word slice for same-kind merges and
	// cardinality recomputation. Callers outside this package should treat
	// it as read-only.
	Words() []uint64
	// Close releases any resources (off-heap memory, file mappings).
	// Idempotent.
	Close() error
}

func wordIndex(i uint64) uint64 { return i / bitsPerWord }
func bitOffset(i uint64) uint   { return uint(i % bitsPerWord) }

func wordsFor(bitSize uint64) uint64 {
	return (bitSize + bitsPerWord - 1) / bitsPerWord
}

func checkRange(i, bitSize uint64) error {
	if i >= bitSize {
		return fmt.Errorf("%w: index %d, bitSize %d", ErrIndexOutOfRange, i, bitSize)
	}

	return nil
}

// popcount recomputes the number of set bits across every word in words.
func popcount(words []uint64) uint64 {
	var total uint64
	for _, w := range words {
		total += uint64(bits.OnesCount64(w))
	}

	return total
}
