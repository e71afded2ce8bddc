package bitvector

import "sync/atomic"

// Heap is a BitVector backed by a plain Go-owned word slice. Close is a
// no-op; the garbage collector reclaims the slice.
type Heap struct {
	words       []uint64
	bitSize     uint64
	cardinality atomic.Uint64
}

// NewHeap allocates a zeroed heap-backed vector of bitSize bits.
func NewHeap(bitSize uint64) (*Heap, error) {
	if bitSize == 0 {
		return nil, ErrInvalidArgument
	}

	return &Heap{
		words:   make([]uint64, wordsFor(bitSize)),
		bitSize: bitSize,
	}, nil
}

// Get reports whether bit i is set.
func (h *Heap) Get(i uint64) (bool, error) {
	if err := checkRange(i, h.bitSize); err != nil {
		return false, err
	}

	return h.words[wordIndex(i)]&(1<<bitOffset(i)) != 0, nil
}

// Set sets bit i, returning true iff it transitioned 0->1.
func (h *Heap) Set(i uint64) (bool, error) {
	if err := checkRange(i, h.bitSize); err != nil {
		return false, err
	}

	mask := uint64(1) << bitOffset(i)
	w := wordIndex(i)

	if h.words[w]&mask != 0 {
		return false, nil
	}

	h.words[w] |= mask
	h.cardinality.Add(1)

	return true, nil
}

// Unset clears bit i, returning true iff it transitioned 1->0.
func (h *Heap) Unset(i uint64) (bool, error) {
	if err := checkRange(i, h.bitSize); err != nil {
		return false, err
	}

	mask := uint64(1) << bitOffset(i)
	w := wordIndex(i)

	if h.words[w]&mask == 0 {
		return false, nil
	}

	h.words[w] &^= mask
	h.cardinality.Add(^uint64(0)) // -1

	return true, nil
}

// Cardinality returns the number of set bits.
func (h *Heap) Cardinality() uint64 { return h.cardinality.Load() }

// BitSize returns the total number of addressable bits.
func (h *Heap) BitSize() uint64 { return h.bitSize }

// Clear zeroes every bit.
func (h *Heap) Clear() {
	for i := range h.words {
		h.words[i] = 0
	}

	h.cardinality.Store(0)
}

// PutAll ORs other's words into this vector in place.
func (h *Heap) PutAll(other Vector) error {
	if other == nil {
		return ErrIncompatibleMerge
	}

	o, ok := other.(*Heap)
	if !ok || o.bitSize != h.bitSize {
		return ErrIncompatibleMerge
	}

	words := o.Words()
	for i := range h.words {
		h.words[i] |= words[i]
	}

	h.cardinality.Store(popcount(h.words))

	return nil
}

// Words exposes the underlying word slice.
func (h *Heap) Words() []uint64 { return h.words }

// Close is a no-op for heap-backed vectors.
func (h *Heap) Close() error { return nil }
