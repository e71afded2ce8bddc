package filter

import (
	"math"

	"github.com/Sumatoshi-tech/bloomkit/pkg/bitvector"
	"github.com/Sumatoshi-tech/bloomkit/pkg/bucketset"
	"github.com/Sumatoshi-tech/bloomkit/pkg/filterhash"
	"github.com/Sumatoshi-tech/bloomkit/pkg/striped"
)

// stableTagsPerBucket is fixed: a stable filter's buckets hold exactly one
// counter each.
const stableTagsPerBucket = 1

// stableSeed keeps the decrement pivot PRNG deterministic across runs of the
// same process, matching the cuckoo filter's fixed-seed rationale.
const stableSeed = 0x9e3779b97f4a7c15

// Stable is an insert-evict bloom filter: every Put decrements a band of P
// adjacent counters before saturating its own k target buckets, trading
// false negatives for a bounded steady-state false-positive rate.
type Stable struct {
	buckets *bucketset.Set
	locks   *striped.Locks
	rng     *splitmix64
	k       uint
	d       uint
	p       uint64
	maxVal  uint64
}

// NewStableWithEstimates sizes and allocates a Stable filter for n expected
// items at false-positive rate fpp, with bitsPerBucket d-bit counters.
func NewStableWithEstimates(n uint64, fpp float64, d uint, backing bitvector.Backing, filePath string) (*Stable, error) {
	if n == 0 || fpp <= 0 || fpp >= 1 || d == 0 || d >= 64 {
		return nil, ErrInvalidArgument
	}

	m := OptimalNumOfBits(n, fpp)
	k := OptimalNumOfHashFunctions(n, m)

	p := computeDecrementCount(k, m, d, fpp)

	vec, err := bitvector.Open(backing, m*uint64(d), filePath)
	if err != nil {
		return nil, err
	}

	bs, err := bucketset.New(vec, d, stableTagsPerBucket, m)
	if err != nil {
		_ = vec.Close()

		return nil, err
	}

	return NewStable(bs, k, d, p), nil
}

// NewStable wraps an already-sized bucket set as a Stable filter.
func NewStable(buckets *bucketset.Set, k uint, d uint, p uint64) *Stable {
	return &Stable{
		buckets: buckets,
		locks:   striped.New(),
		rng:     newSplitmix64(stableSeed),
		k:       k,
		d:       d,
		p:       p,
		maxVal:  1<<d - 1,
	}
}

// NumBuckets returns m.
func (s *Stable) NumBuckets() uint64 { return s.buckets.NumBuckets() }

// HashCount returns k.
func (s *Stable) HashCount() uint { return s.k }

// DecrementCount returns P, the number of adjacent buckets decremented per
// insertion.
func (s *Stable) DecrementCount() uint64 { return s.p }

func (s *Stable) targetBuckets(data []byte) []uint64 {
	idx := make([]uint64, s.k)
	filterhash.Indices(data, idx)

	m := s.buckets.NumBuckets()
	for i := range idx {
		idx[i] %= m
	}

	return idx
}

// Put decrements a band of P adjacent buckets starting at a random pivot,
// then saturates the k target buckets to their maximum value.
func (s *Stable) Put(data []byte) error {
	m := s.buckets.NumBuckets()
	pivot := s.rng.uint64n(m)

	decrementIdx := make([]uint64, 0, s.p)
	for j := range s.p {
		decrementIdx = append(decrementIdx, (pivot+j)%m)
	}

	targets := s.targetBuckets(data)

	touched := append(append([]uint64{}, decrementIdx...), targets...)

	stripes := striped.StripesFor(touched)
	s.locks.LockStripes(stripes)
	defer s.locks.UnlockStripes(stripes)

	for _, idx := range decrementIdx {
		val, err := s.buckets.ReadTag(idx, 0)
		if err != nil {
			return err
		}

		if val > 0 {
			if err := s.buckets.WriteTag(idx, 0, val-1); err != nil {
				return err
			}
		}
	}

	for _, idx := range targets {
		if err := s.buckets.WriteTag(idx, 0, s.maxVal); err != nil {
			return err
		}
	}

	return nil
}

// MightContain reports true iff all k target buckets are nonzero.
func (s *Stable) MightContain(data []byte) (bool, error) {
	targets := s.targetBuckets(data)

	stripes := striped.StripesFor(targets)
	s.locks.RLockStripes(stripes)
	defer s.locks.RUnlockStripes(stripes)

	for _, idx := range targets {
		val, err := s.buckets.ReadTag(idx, 0)
		if err != nil {
			return false, err
		}

		if val == 0 {
			return false, nil
		}
	}

	return true, nil
}

// Remove is unsupported: stable filters only ever evict via the random
// decrement walk.
func (s *Stable) Remove(_ []byte) (bool, error) {
	return false, ErrUnsupportedOperation
}

// ExpectedFPP returns (1 - stablePoint)^k.
func (s *Stable) ExpectedFPP() float64 {
	return pow(1-s.stablePoint(), s.k)
}

func (s *Stable) stablePoint() float64 {
	m := float64(s.buckets.NumBuckets())
	k := float64(s.k)

	denom := float64(s.p) * (1/k - 1/m)
	base := 1 / (1 + 1/denom)

	return math.Pow(base, float64(s.maxVal))
}

// Clear zeroes every bucket under a global stripe lock.
func (s *Stable) Clear() {
	s.locks.LockAll()
	defer s.locks.UnlockAll()

	s.buckets.Vector().Clear()
}

// MergeInPlace is unsupported for stable filters: merging counter buckets
// via OR would corrupt the saturating-counter semantics (the spec only
// requires matching bitSize/k for the contract, but the source never
// implements this merge, so bit-wise OR of counters is not meaningful here).
func (s *Stable) MergeInPlace(_ *Stable) error {
	return ErrUnsupportedOperation
}

// Close releases the backing bucket set's resources.
func (s *Stable) Close() error {
	return s.buckets.Close()
}

// computeDecrementCount solves the stable-point equation for P given a
// target false-positive rate, clamping to 1 if the inversion yields a
// non-positive or non-finite result or rounds to zero.
func computeDecrementCount(k uint, m uint64, d uint, targetFPP float64) uint64 {
	kf := float64(k)
	mf := float64(m)
	maxVal := float64(uint64(1)<<d - 1)

	stablePointTarget := 1 - math.Pow(targetFPP, 1/kf)
	if stablePointTarget <= 0 || stablePointTarget >= 1 {
		return 1
	}

	a := math.Pow(stablePointTarget, 1/maxVal)
	if a <= 0 || a >= 1 {
		return 1
	}

	denom := (1 - a) * (1/kf - 1/mf)
	if denom <= 0 {
		return 1
	}

	p := a / denom
	if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
		return 1
	}

	rounded := uint64(math.Round(p))
	if rounded == 0 {
		return 1
	}

	return rounded
}
