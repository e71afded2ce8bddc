package filter

import (
	"fmt"

	"github.com/Sumatoshi-tech/bloomkit/pkg/bitvector"
	"github.com/Sumatoshi-tech/bloomkit/pkg/filterhash"
	"github.com/Sumatoshi-tech/bloomkit/pkg/striped"
)

// Classic is the textbook bloom filter: k bits in one shared vector, derived
// from the Kirsch-Mitzenmacher double-hashing trick in pkg/filterhash.
type Classic struct {
	vector bitvector.Vector
	locks  *striped.Locks
	k      uint
}

// NewClassicWithEstimates sizes and allocates a Classic filter for n expected
// items at false-positive rate fpp, using the requested backing.
func NewClassicWithEstimates(n uint64, fpp float64, backing bitvector.Backing, filePath string) (*Classic, error) {
	if n == 0 || fpp <= 0 || fpp >= 1 {
		return nil, ErrInvalidArgument
	}

	m := OptimalNumOfBits(n, fpp)
	k := OptimalNumOfHashFunctions(n, m)

	vec, err := bitvector.Open(backing, m, filePath)
	if err != nil {
		return nil, err
	}

	return NewClassic(vec, k), nil
}

// NewClassic wraps an already-sized vector as a Classic filter with k hash
// functions.
func NewClassic(vector bitvector.Vector, k uint) *Classic {
	return &Classic{
		vector: vector,
		locks:  striped.New(),
		k:      k,
	}
}

// BitSize returns the size of the backing vector in bits.
func (c *Classic) BitSize() uint64 { return c.vector.BitSize() }

// HashCount returns k, the number of bits set per inserted item.
func (c *Classic) HashCount() uint { return c.k }

// Cardinality returns the number of set bits.
func (c *Classic) Cardinality() uint64 { return c.vector.Cardinality() }

func (c *Classic) indices(data []byte) []uint64 {
	idx := make([]uint64, c.k)
	filterhash.Indices(data, idx)

	m := c.vector.BitSize()
	for i := range idx {
		idx[i] %= m
	}

	return idx
}

// Put inserts data, setting its k bits. Returns true iff at least one bit
// transitioned 0->1.
func (c *Classic) Put(data []byte) (bool, error) {
	idx := c.indices(data)

	stripes := striped.StripesFor(idx)
	c.locks.LockStripes(stripes)
	defer c.locks.UnlockStripes(stripes)

	any := false

	for _, i := range idx {
		ok, err := c.vector.Set(i)
		if err != nil {
			return false, err
		}

		if ok {
			any = true
		}
	}

	return any, nil
}

// MightContain reports whether data may have been inserted, short-circuiting
// false on the first unset bit.
func (c *Classic) MightContain(data []byte) (bool, error) {
	idx := c.indices(data)

	stripes := striped.StripesFor(idx)
	c.locks.RLockStripes(stripes)
	defer c.locks.RUnlockStripes(stripes)

	for _, i := range idx {
		ok, err := c.vector.Get(i)
		if err != nil {
			return false, err
		}

		if !ok {
			return false, nil
		}
	}

	return true, nil
}

// Remove is unsupported for the classic filter: a set bit may be shared by
// other inserted items, so clearing it would introduce false negatives.
func (c *Classic) Remove(_ []byte) (bool, error) {
	return false, ErrUnsupportedOperation
}

// ExpectedFPP returns (cardinality/bitSize)^k.
func (c *Classic) ExpectedFPP() float64 {
	fillRatio := float64(c.vector.Cardinality()) / float64(c.vector.BitSize())

	return pow(fillRatio, c.k)
}

// Clear zeroes the backing vector under a global stripe lock.
func (c *Classic) Clear() {
	c.locks.LockAll()
	defer c.locks.UnlockAll()

	c.vector.Clear()
}

// MergeInPlace ORs other's bits into this filter. Requires the same variant,
// bitSize, and k.
func (c *Classic) MergeInPlace(other *Classic) error {
	if other == nil || other.k != c.k || other.vector.BitSize() != c.vector.BitSize() {
		return ErrIncompatibleMerge
	}

	c.locks.LockAll()
	defer c.locks.UnlockAll()

	if err := c.vector.PutAll(other.vector); err != nil {
		return fmt.Errorf("classic: %w: %w", ErrIncompatibleMerge, err)
	}

	return nil
}

// Close releases the backing vector's resources.
func (c *Classic) Close() error {
	return c.vector.Close()
}

// pow is a tiny integer-exponent power helper so ExpectedFPP doesn't pull in
// math.Pow for a non-negative integer k.
func pow(base float64, exp uint) float64 {
	result := 1.0
	for range exp {
		result *= base
	}

	return result
}
