package filter

import (
	"log/slog"
	"math"

	"github.com/Sumatoshi-tech/bloomkit/pkg/bitvector"
	"github.com/Sumatoshi-tech/bloomkit/pkg/bucketset"
	"github.com/Sumatoshi-tech/bloomkit/pkg/filterhash"
	"github.com/Sumatoshi-tech/bloomkit/pkg/striped"
)

// maxKick bounds the eviction chain a Put may walk before giving up and
// reporting the filter full.
const maxKick = 500

// cuckooAltConst is the odd multiplier used to derive the alternate bucket
// from a tag, matching the classic partial-key cuckoo hashing trick.
const cuckooAltConst = 0x5bd1e995

// cuckooSeed keeps the eviction-choice PRNG deterministic per process.
const cuckooSeed = 0x2545f4914f6cdd1d

// Cuckoo is a two-choice bucketed filter storing tag fingerprints instead of
// single bits. Unlike Classic, Partitioned and Stable it supports Remove.
type Cuckoo struct {
	buckets         *bucketset.Set
	locks           *striped.Locks
	rng             *splitmix64
	bitsPerTag      uint
	tagsPerBucket   uint
	count           atomicCounter
	evictionFailure atomicCounter
}

// NewCuckooWithEstimates sizes and allocates a Cuckoo filter for n expected
// items at false-positive rate fpp, choosing tagsPerBucket, bitsPerTag and
// numBuckets per the load-factor table for each bucket width.
func NewCuckooWithEstimates(n uint64, fpp float64, backing bitvector.Backing, filePath string) (*Cuckoo, error) {
	if n == 0 || fpp <= 0 || fpp >= 1 {
		return nil, ErrInvalidArgument
	}

	const cuckooMinFPP = 1.0 / (1 << 60)
	if fpp < cuckooMinFPP {
		fpp = cuckooMinFPP
	}

	tagsPerBucket, loadFactor := cuckooBucketWidth(fpp)

	bitsPerTag := uint(math.Ceil(math.Log2(1/fpp+3) / loadFactor))
	if bitsPerTag == 0 {
		bitsPerTag = 1
	} else if bitsPerTag > 63 {
		bitsPerTag = 63
	}

	numBuckets := cuckooNumBuckets(n, loadFactor, uint64(tagsPerBucket))

	vec, err := bitvector.Open(backing, numBuckets*uint64(bitsPerTag)*uint64(tagsPerBucket), filePath)
	if err != nil {
		return nil, err
	}

	bs, err := bucketset.New(vec, bitsPerTag, tagsPerBucket, numBuckets)
	if err != nil {
		_ = vec.Close()

		return nil, err
	}

	return NewCuckoo(bs), nil
}

// NewCuckoo wraps an already-sized bucket set as a Cuckoo filter.
func NewCuckoo(buckets *bucketset.Set) *Cuckoo {
	return &Cuckoo{
		buckets:       buckets,
		locks:         striped.New(),
		rng:           newSplitmix64(cuckooSeed),
		bitsPerTag:    buckets.BitsPerTag(),
		tagsPerBucket: buckets.TagsPerBucket(),
	}
}

func cuckooBucketWidth(fpp float64) (tagsPerBucket uint, loadFactor float64) {
	const (
		lowFPP    = 1e-5
		mediumFPP = 2e-3

		loadFactor2 = 0.84
		loadFactor4 = 0.955
		loadFactor8 = 0.98
	)

	switch {
	case fpp <= lowFPP:
		return 8, loadFactor8
	case fpp <= mediumFPP:
		return 4, loadFactor4
	default:
		return 2, loadFactor2
	}
}

func cuckooNumBuckets(n uint64, loadFactor float64, tagsPerBucket uint64) uint64 {
	raw := uint64(math.Ceil(math.Ceil(float64(n)/loadFactor) / float64(tagsPerBucket)))
	if raw == 0 {
		raw = 1
	}

	if raw%2 != 0 {
		raw++
	}

	return raw
}

// NumBuckets returns m.
func (c *Cuckoo) NumBuckets() uint64 { return c.buckets.NumBuckets() }

// TagsPerBucket returns b.
func (c *Cuckoo) TagsPerBucket() uint { return c.tagsPerBucket }

// BitsPerTag returns t.
func (c *Cuckoo) BitsPerTag() uint { return c.bitsPerTag }

// Count returns the number of successful Puts minus successful Removes. A Put
// whose tag is already present in its primary bucket counts again without
// storing a second copy, so Count can exceed the number of stored tags.
func (c *Cuckoo) Count() uint64 { return c.count.load() }

// altIndex computes the alternate bucket for (b, tag), guaranteeing
// altIndex(altIndex(b, tag), tag) == b because numBuckets is always even and
// the per-tag delta is always odd.
func (c *Cuckoo) altIndex(b uint64, tag uint64) uint64 {
	m := c.buckets.NumBuckets()

	// delta is reduced mod m up front so the add/subtract below never leaves
	// uint64 range; m is even, so the reduction preserves delta's parity and
	// the invariant holds for every bitsPerTag the sizing table produces.
	delta := ((tag * cuckooAltConst) | 1) % m

	if b%2 == 0 {
		return (b + delta) % m
	}

	return (b + m - delta) % m
}

func (c *Cuckoo) primaryAndTag(data []byte) (bucketIdx uint64, tag uint64) {
	d := filterhash.Sum(data)

	bucketIdx = d.H1 % c.buckets.NumBuckets()
	tag = filterhash.Fingerprint(d.H2, c.bitsPerTag)

	return bucketIdx, tag
}

// Put inserts data's fingerprint into its primary bucket, evicting existing
// tags along an alternate-index chain of up to maxKick steps if both
// candidate slots are full. Returns false (not an error) if the chain is
// exhausted without finding room.
func (c *Cuckoo) Put(data []byte) (bool, error) {
	bucketIdx, tag := c.primaryAndTag(data)

	if ok, err := c.tryAppend(bucketIdx, tag); err != nil {
		return false, err
	} else if ok {
		c.count.add(1)

		return true, nil
	}

	current := c.altIndex(bucketIdx, tag)

	for range maxKick {
		ok, evicted, err := c.tryAppendOrEvict(current, tag)
		if err != nil {
			return false, err
		}

		if ok {
			c.count.add(1)

			return true, nil
		}

		tag = evicted
		current = c.altIndex(current, tag)
	}

	c.evictionFailure.add(1)
	slog.Warn("cuckoo filter eviction chain exhausted, insert dropped", "maxKick", maxKick)

	return false, nil
}

// EvictionFailures returns the number of Put calls that exhausted the
// eviction chain without finding room.
func (c *Cuckoo) EvictionFailures() uint64 { return c.evictionFailure.load() }

func (c *Cuckoo) tryAppend(bucketIdx uint64, tag uint64) (bool, error) {
	c.locks.Lock(bucketIdx)
	defer c.locks.Unlock(bucketIdx)

	return c.buckets.Append(bucketIdx, tag)
}

// tryAppendOrEvict tries to append tag to bucketIdx; if full, it swaps tag
// with the fingerprint held at a random position and returns the evicted
// fingerprint so the caller can continue the chain.
func (c *Cuckoo) tryAppendOrEvict(bucketIdx uint64, tag uint64) (ok bool, evicted uint64, err error) {
	c.locks.Lock(bucketIdx)
	defer c.locks.Unlock(bucketIdx)

	ok, err = c.buckets.Append(bucketIdx, tag)
	if err != nil {
		return false, 0, err
	}

	if ok {
		return true, 0, nil
	}

	pos := uint(c.rng.intn(int(c.tagsPerBucket)))

	held, err := c.buckets.ReadTag(bucketIdx, pos)
	if err != nil {
		return false, 0, err
	}

	if err := c.buckets.WriteTag(bucketIdx, pos, tag); err != nil {
		return false, 0, err
	}

	return false, held, nil
}

// MightContain reports whether data's fingerprint appears in its primary or
// alternate bucket.
func (c *Cuckoo) MightContain(data []byte) (bool, error) {
	bucketIdx, tag := c.primaryAndTag(data)
	altIdx := c.altIndex(bucketIdx, tag)

	stripes := striped.StripesFor([]uint64{bucketIdx, altIdx})
	c.locks.RLockStripes(stripes)
	defer c.locks.RUnlockStripes(stripes)

	if pos, err := c.buckets.CheckTag(bucketIdx, tag); err != nil {
		return false, err
	} else if pos >= 0 {
		return true, nil
	}

	pos, err := c.buckets.CheckTag(altIdx, tag)
	if err != nil {
		return false, err
	}

	return pos >= 0, nil
}

// Remove locates data's fingerprint in its primary or alternate bucket and
// clears it, decrementing count. May produce false negatives if the same
// fingerprint had been inserted twice under the same tag.
func (c *Cuckoo) Remove(data []byte) (bool, error) {
	bucketIdx, tag := c.primaryAndTag(data)
	altIdx := c.altIndex(bucketIdx, tag)

	stripes := striped.StripesFor([]uint64{bucketIdx, altIdx})
	c.locks.LockStripes(stripes)
	defer c.locks.UnlockStripes(stripes)

	if pos, err := c.buckets.CheckTag(bucketIdx, tag); err != nil {
		return false, err
	} else if pos >= 0 {
		if err := c.buckets.DeleteTag(bucketIdx, uint(pos)); err != nil {
			return false, err
		}

		c.count.sub(1)

		return true, nil
	}

	pos, err := c.buckets.CheckTag(altIdx, tag)
	if err != nil {
		return false, err
	}

	if pos < 0 {
		return false, nil
	}

	if err := c.buckets.DeleteTag(altIdx, uint(pos)); err != nil {
		return false, err
	}

	c.count.sub(1)

	return true, nil
}

// ExpectedFPP returns 1 - ((2^t - 2)/(2^t - 1))^(2*b*L), where L is the
// current load factor count/(numBuckets*tagsPerBucket).
func (c *Cuckoo) ExpectedFPP() float64 {
	t := float64(c.bitsPerTag)
	b := float64(c.tagsPerBucket)
	load := float64(c.count.load()) / (float64(c.buckets.NumBuckets()) * b)

	base := (math.Pow(2, t) - 2) / (math.Pow(2, t) - 1)

	return 1 - math.Pow(base, 2*b*load)
}

// Clear zeroes every bucket and resets count under a global stripe lock.
func (c *Cuckoo) Clear() {
	c.locks.LockAll()
	defer c.locks.UnlockAll()

	c.buckets.Vector().Clear()
	c.count.store(0)
}

// MergeInPlace is unsupported: two cuckoo filters' tag tables cannot be
// unioned by OR-ing their underlying bits without corrupting per-bucket
// fingerprint occupancy.
func (c *Cuckoo) MergeInPlace(_ *Cuckoo) error {
	return ErrUnsupportedOperation
}

// Close releases the backing bucket set's resources.
func (c *Cuckoo) Close() error {
	return c.buckets.Close()
}
