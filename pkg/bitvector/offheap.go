package bitvector

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// OffHeap is a BitVector backed by an anonymous mmap allocation outside the
// Go heap, zeroed at creation. Grounded on the direct golang.org/x/sys/unix
// mmap usage in rpcpool-yellowstone-faithful's bucketteer package.
type OffHeap struct {
	raw         []byte
	words       []uint64
	bitSize     uint64
	cardinality atomic.Uint64
}

// NewOffHeap allocates bitSize bits of anonymous, zeroed off-heap memory.
func NewOffHeap(bitSize uint64) (*OffHeap, error) {
	if bitSize == 0 {
		return nil, ErrInvalidArgument
	}

	byteLen := int(wordsFor(bitSize)) * 8

	raw, err := unix.Mmap(-1, 0, byteLen, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("bitvector: anonymous mmap: %w", err)
	}

	return &OffHeap{
		raw:     raw,
		words:   bytesToWords(raw),
		bitSize: bitSize,
	}, nil
}

// Get reports whether bit i is set.
func (o *OffHeap) Get(i uint64) (bool, error) {
	if err := checkRange(i, o.bitSize); err != nil {
		return false, err
	}

	return o.words[wordIndex(i)]&(1<<bitOffset(i)) != 0, nil
}

// Set sets bit i, returning true iff it transitioned 0->1.
func (o *OffHeap) Set(i uint64) (bool, error) {
	if err := checkRange(i, o.bitSize); err != nil {
		return false, err
	}

	mask := uint64(1) << bitOffset(i)
	w := wordIndex(i)

	if o.words[w]&mask != 0 {
		return false, nil
	}

	o.words[w] |= mask
	o.cardinality.Add(1)

	return true, nil
}

// Unset clears bit i, returning true iff it transitioned 1->0.
func (o *OffHeap) Unset(i uint64) (bool, error) {
	if err := checkRange(i, o.bitSize); err != nil {
		return false, err
	}

	mask := uint64(1) << bitOffset(i)
	w := wordIndex(i)

	if o.words[w]&mask == 0 {
		return false, nil
	}

	o.words[w] &^= mask
	o.cardinality.Add(^uint64(0))

	return true, nil
}

// Cardinality returns the number of set bits.
func (o *OffHeap) Cardinality() uint64 { return o.cardinality.Load() }

// BitSize returns the total number of addressable bits.
func (o *OffHeap) BitSize() uint64 { return o.bitSize }

// Clear zeroes every bit.
func (o *OffHeap) Clear() {
	for i := range o.words {
		o.words[i] = 0
	}

	o.cardinality.Store(0)
}

// PutAll ORs other's words into this vector in place.
func (o *OffHeap) PutAll(other Vector) error {
	if other == nil {
		return ErrIncompatibleMerge
	}

	ov, ok := other.(*OffHeap)
	if !ok || ov.bitSize != o.bitSize {
		return ErrIncompatibleMerge
	}

	words := ov.Words()
	for i := range o.words {
		o.words[i] |= words[i]
	}

	o.cardinality.Store(popcount(o.words))

	return nil
}

// Words exposes the underlying word slice.
func (o *OffHeap) Words() []uint64 { return o.words }

// Close unmaps the anonymous allocation. Idempotent.
func (o *OffHeap) Close() error {
	if o.raw == nil {
		return nil
	}

	raw := o.raw
	o.raw = nil
	o.words = nil

	if err := unix.Munmap(raw); err != nil {
		return fmt.Errorf("bitvector: munmap: %w", err)
	}

	return nil
}

// bytesToWords reinterprets a byte slice backed by mmap as a uint64 slice,
// the same unsafe-reinterpretation technique bucketteer uses to view its
// memory-mapped region as typed records without copying.
func bytesToWords(raw []byte) []uint64 {
	if len(raw) == 0 {
		return nil
	}

	return unsafe.Slice((*uint64)(unsafe.Pointer(&raw[0])), len(raw)/8)
}
