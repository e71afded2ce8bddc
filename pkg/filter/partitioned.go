package filter

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/Sumatoshi-tech/bloomkit/pkg/bitvector"
	"github.com/Sumatoshi-tech/bloomkit/pkg/filterhash"
	"github.com/Sumatoshi-tech/bloomkit/pkg/striped"
)

// Partitioned is a bloom filter in which the k hashes each land in their own
// equal-sized slice of the bit array, rather than anywhere in one shared
// array. It is the building block ScalableFilter stacks members from.
type Partitioned struct {
	vector    bitvector.Vector
	locks     *striped.Locks
	k         uint
	sliceSize uint64
	numItems  atomic.Uint64
}

// NewPartitionedWithEstimates sizes and allocates a Partitioned filter for n
// expected items at false-positive rate fpp. The total bit count is aligned
// up to a multiple of k so it divides evenly into k equal slices.
func NewPartitionedWithEstimates(n uint64, fpp float64, backing bitvector.Backing, filePath string) (*Partitioned, error) {
	if n == 0 || fpp <= 0 || fpp >= 1 {
		return nil, ErrInvalidArgument
	}

	m := OptimalNumOfBits(n, fpp)
	k := OptimalNumOfHashFunctions(n, m)
	m = AlignUp(m, uint64(k))

	vec, err := bitvector.Open(backing, m, filePath)
	if err != nil {
		return nil, err
	}

	return NewPartitioned(vec, k), nil
}

// NewPartitioned wraps an already k-aligned vector as a Partitioned filter.
func NewPartitioned(vector bitvector.Vector, k uint) *Partitioned {
	return &Partitioned{
		vector:    vector,
		locks:     striped.New(),
		k:         k,
		sliceSize: vector.BitSize() / uint64(k),
	}
}

// BitSize returns the size of the backing vector in bits.
func (p *Partitioned) BitSize() uint64 { return p.vector.BitSize() }

// SliceSize returns m, the per-hash-function slice width in bits.
func (p *Partitioned) SliceSize() uint64 { return p.sliceSize }

// HashCount returns k.
func (p *Partitioned) HashCount() uint { return p.k }

// NumItems returns the approximate number of items inserted.
func (p *Partitioned) NumItems() uint64 { return p.numItems.Load() }

func (p *Partitioned) indices(data []byte) []uint64 {
	idx := make([]uint64, p.k)
	filterhash.Indices(data, idx)

	for i := range idx {
		idx[i] = uint64(i)*p.sliceSize + idx[i]%p.sliceSize
	}

	return idx
}

// Put inserts data, setting one bit per slice. Returns true iff at least one
// bit transitioned 0->1, and increments numItems on that transition.
func (p *Partitioned) Put(data []byte) (bool, error) {
	idx := p.indices(data)

	stripes := striped.StripesFor(idx)
	p.locks.LockStripes(stripes)
	defer p.locks.UnlockStripes(stripes)

	any := false

	for _, i := range idx {
		ok, err := p.vector.Set(i)
		if err != nil {
			return false, err
		}

		if ok {
			any = true
		}
	}

	if any {
		p.numItems.Add(1)
	}

	return any, nil
}

// MightContain reports whether data may have been inserted.
func (p *Partitioned) MightContain(data []byte) (bool, error) {
	idx := p.indices(data)

	stripes := striped.StripesFor(idx)
	p.locks.RLockStripes(stripes)
	defer p.locks.RUnlockStripes(stripes)

	for _, i := range idx {
		ok, err := p.vector.Get(i)
		if err != nil {
			return false, err
		}

		if !ok {
			return false, nil
		}
	}

	return true, nil
}

// Remove is unsupported: a slice bit may be shared by other items mapped to
// the same slot within its slice.
func (p *Partitioned) Remove(_ []byte) (bool, error) {
	return false, ErrUnsupportedOperation
}

// EstimatedFillRatio estimates how saturated the filter is, using the
// corrected bloom fill-ratio formula 1 - exp(-numItems/sliceSize) (the
// source computes 1 - exp(+numItems/sliceSize), which is negative for any
// nonzero numItems and so never reports "full" -- see DESIGN.md).
func (p *Partitioned) EstimatedFillRatio() float64 {
	return 1 - math.Exp(-float64(p.numItems.Load())/float64(p.sliceSize))
}

// ExpectedFPP returns (cardinality/bitSize)^k, the same estimator as the
// classic variant.
func (p *Partitioned) ExpectedFPP() float64 {
	fillRatio := float64(p.vector.Cardinality()) / float64(p.vector.BitSize())

	return pow(fillRatio, p.k)
}

// Clear zeroes the backing vector and resets numItems under a global stripe
// lock.
func (p *Partitioned) Clear() {
	p.locks.LockAll()
	defer p.locks.UnlockAll()

	p.vector.Clear()
	p.numItems.Store(0)
}

// MergeInPlace ORs other's bits into this filter. Requires the same bitSize
// and k; numItems is not merged (it is an insertion-count approximation, not
// derivable from the merged bits).
func (p *Partitioned) MergeInPlace(other *Partitioned) error {
	if other == nil || other.k != p.k || other.vector.BitSize() != p.vector.BitSize() {
		return ErrIncompatibleMerge
	}

	p.locks.LockAll()
	defer p.locks.UnlockAll()

	if err := p.vector.PutAll(other.vector); err != nil {
		return fmt.Errorf("partitioned: %w: %w", ErrIncompatibleMerge, err)
	}

	return nil
}

// Close releases the backing vector's resources.
func (p *Partitioned) Close() error {
	return p.vector.Close()
}
