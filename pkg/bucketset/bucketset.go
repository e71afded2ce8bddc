// Package bucketset layers a fixed-width tag/bucket record structure on top
// of a bitvector.Vector, the record layout stable and cuckoo filters pack
// their counters and fingerprints into.
package bucketset

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/bloomkit/pkg/bitvector"
)

// ErrInvalidArgument is returned when bitsPerTag, tagsPerBucket, or
// numBuckets are out of range, or the backing vector is too small.
var ErrInvalidArgument = errors.New("bucketset: invalid argument")

// emptyTag is the sentinel value meaning "slot holds nothing". Writers must
// never store this value as a real tag.
const emptyTag = 0

// Set is a logical view over a bitvector.Vector: numBuckets buckets of
// tagsPerBucket slots each, every slot bitsPerTag bits wide.
type Set struct {
	vector        bitvector.Vector
	bitsPerTag    uint
	tagsPerBucket uint
	numBuckets    uint64
}

// New wraps vector as a bucket set with the given geometry. vector must have
// at least bitsPerTag*tagsPerBucket*numBuckets bits. tagsPerBucket is not
// restricted to a fixed enum here: StableFilter and CuckooFilter each
// enforce their own domain-specific bucket widths (1 and {2,4,8}
// respectively) when they construct a Set.
func New(vector bitvector.Vector, bitsPerTag uint, tagsPerBucket uint, numBuckets uint64) (*Set, error) {
	if vector == nil || bitsPerTag < 1 || bitsPerTag > 63 || tagsPerBucket < 1 || numBuckets == 0 {
		return nil, ErrInvalidArgument
	}

	required := uint64(bitsPerTag) * uint64(tagsPerBucket) * numBuckets
	if vector.BitSize() < required {
		return nil, fmt.Errorf("%w: vector has %d bits, need %d", ErrInvalidArgument, vector.BitSize(), required)
	}

	return &Set{
		vector:        vector,
		bitsPerTag:    bitsPerTag,
		tagsPerBucket: tagsPerBucket,
		numBuckets:    numBuckets,
	}, nil
}

// NumBuckets returns the number of buckets.
func (s *Set) NumBuckets() uint64 { return s.numBuckets }

// TagsPerBucket returns the slot count per bucket.
func (s *Set) TagsPerBucket() uint { return s.tagsPerBucket }

// BitsPerTag returns the slot width in bits.
func (s *Set) BitsPerTag() uint { return s.bitsPerTag }

// Vector returns the underlying bit vector.
func (s *Set) Vector() bitvector.Vector { return s.vector }

func (s *Set) slotStart(b uint64, p uint) uint64 {
	return b*uint64(s.tagsPerBucket)*uint64(s.bitsPerTag) + uint64(p)*uint64(s.bitsPerTag)
}

// ReadTag reads the bitsPerTag-bit value at bucket b, position p, big-endian
// within the slot: the bit written first (highest bit of the tag) occupies
// the lowest bit index of the slot.
func (s *Set) ReadTag(b uint64, p uint) (uint64, error) {
	start := s.slotStart(b, p)

	var tag uint64

	for i := range s.bitsPerTag {
		bit, err := s.vector.Get(start + uint64(i))
		if err != nil {
			return 0, err
		}

		if bit {
			tag |= 1 << (s.bitsPerTag - 1 - i)
		}
	}

	return tag, nil
}

// WriteTag overwrites the slot at bucket b, position p with tag, setting or
// clearing each bit individually.
func (s *Set) WriteTag(b uint64, p uint, tag uint64) error {
	start := s.slotStart(b, p)

	for i := range s.bitsPerTag {
		bitSet := tag&(1<<(s.bitsPerTag-1-i)) != 0

		var err error
		if bitSet {
			_, err = s.vector.Set(start + uint64(i))
		} else {
			_, err = s.vector.Unset(start + uint64(i))
		}

		if err != nil {
			return err
		}
	}

	return nil
}

// DeleteTag clears the slot at bucket b, position p (equivalent to
// WriteTag(b, p, 0)).
func (s *Set) DeleteTag(b uint64, p uint) error {
	return s.WriteTag(b, p, emptyTag)
}

// CheckTag returns the lowest position in bucket b holding tag, or -1 if not
// found.
func (s *Set) CheckTag(b uint64, tag uint64) (int, error) {
	for p := range s.tagsPerBucket {
		got, err := s.ReadTag(b, p)
		if err != nil {
			return -1, err
		}

		if got == tag {
			return int(p), nil
		}
	}

	return -1, nil
}

// GetFreePosInBucket returns the first empty (tag == 0) slot in bucket b, or
// -1 if the bucket is full.
func (s *Set) GetFreePosInBucket(b uint64) (int, error) {
	return s.CheckTag(b, emptyTag)
}

// Append writes tag into the first empty slot of bucket b. If tag is already
// present it returns true without writing (idempotent). It returns false if
// the bucket has no empty slot.
func (s *Set) Append(b uint64, tag uint64) (bool, error) {
	pos, err := s.CheckTag(b, tag)
	if err != nil {
		return false, err
	}

	if pos >= 0 {
		return true, nil
	}

	free, err := s.GetFreePosInBucket(b)
	if err != nil {
		return false, err
	}

	if free < 0 {
		return false, nil
	}

	if err := s.WriteTag(b, uint(free), tag); err != nil {
		return false, err
	}

	return true, nil
}

// PutAll delegates to the underlying vector's PutAll.
func (s *Set) PutAll(other *Set) error {
	if other == nil {
		return bitvector.ErrIncompatibleMerge
	}

	return s.vector.PutAll(other.vector)
}

// Close releases the underlying vector.
func (s *Set) Close() error {
	return s.vector.Close()
}
