// Package scalable implements a growable composite over a sequence of
// partitioned bloom filters, each one tighter than the last, so the overall
// false-positive rate stays close to the original target regardless of how
// many items are actually inserted.
package scalable

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/Sumatoshi-tech/bloomkit/pkg/bitvector"
	"github.com/Sumatoshi-tech/bloomkit/pkg/filter"
)

// Filter holds an ordered sequence of Partitioned members, newest first. The
// head (members[0]) is the only one ever written to; once its fill ratio
// crosses pratio a new, tighter member is promoted to head.
type Filter struct {
	mu       sync.Mutex
	members  atomic.Pointer[[]*filter.Partitioned]
	n0       uint64
	fpp0     float64
	pratio   float64
	backing  bitvector.Backing
	filePath string
}

// New builds a Scalable filter whose first member targets n0 items at fpp0,
// growing by pratio whenever the active member's fill ratio reaches pratio.
// pratio doubles as both the fill-ratio growth trigger and the per-level
// false-positive tightening factor, as the source does.
func New(n0 uint64, fpp0 float64, pratio float64, backing bitvector.Backing, filePath string) (*Filter, error) {
	if n0 == 0 || fpp0 <= 0 || fpp0 >= 1 || pratio <= 0 || pratio >= 1 {
		return nil, filter.ErrInvalidArgument
	}

	first, err := filter.NewPartitionedWithEstimates(n0, fpp0, backing, filePath)
	if err != nil {
		return nil, err
	}

	members := []*filter.Partitioned{first}

	f := &Filter{
		n0:       n0,
		fpp0:     fpp0,
		pratio:   pratio,
		backing:  backing,
		filePath: filePath,
	}
	f.members.Store(&members)

	return f, nil
}

func (f *Filter) snapshot() []*filter.Partitioned {
	return *f.members.Load()
}

// Put delegates to the active (head) member, promoting a new, tighter member
// first if the head has grown too full. The promotion check is a
// double-checked-promotion: an unguarded peek decides whether to take the
// lock, then the lock holder rechecks before allocating.
func (f *Filter) Put(data []byte) (bool, error) {
	for {
		members := f.snapshot()
		head := members[0]

		if head.EstimatedFillRatio() >= f.pratio {
			f.grow(members)

			continue
		}

		return head.Put(data)
	}
}

func (f *Filter) grow(observed []*filter.Partitioned) {
	f.mu.Lock()
	defer f.mu.Unlock()

	current := f.snapshot()
	if len(current) != len(observed) || current[0] != observed[0] {
		return
	}

	if current[0].EstimatedFillRatio() < f.pratio {
		return
	}

	level := len(current)
	newFPP := f.fpp0 * math.Pow(f.pratio, float64(level))

	newMember, err := filter.NewPartitionedWithEstimates(f.n0, newFPP, f.backing, "")
	if err != nil {
		// Growth failure leaves the existing head in place; further inserts
		// keep landing on the (now overfull) head rather than panicking.
		return
	}

	grown := make([]*filter.Partitioned, 0, len(current)+1)
	grown = append(grown, newMember)
	grown = append(grown, current...)

	f.members.Store(&grown)
}

// MightContain iterates every member, newest first, returning true on the
// first hit.
func (f *Filter) MightContain(data []byte) (bool, error) {
	for _, m := range f.snapshot() {
		ok, err := m.MightContain(data)
		if err != nil {
			return false, err
		}

		if ok {
			return true, nil
		}
	}

	return false, nil
}

// Remove is unsupported: the underlying Partitioned members don't support it
// either.
func (f *Filter) Remove(_ []byte) (bool, error) {
	return false, filter.ErrUnsupportedOperation
}

// MergeInPlace is unsupported: merging two independently grown member
// sequences has no well-defined semantics.
func (f *Filter) MergeInPlace(_ *Filter) error {
	return filter.ErrUnsupportedOperation
}

// ExpectedFPP returns 1 - Π(1 - fpp_i) across all members.
func (f *Filter) ExpectedFPP() float64 {
	members := f.snapshot()

	complement := 1.0
	for _, m := range members {
		complement *= 1 - m.ExpectedFPP()
	}

	return 1 - complement
}

// NumMembers returns how many partitioned members currently exist.
func (f *Filter) NumMembers() int {
	return len(f.snapshot())
}

// Clear closes every member but the oldest (the one built at level 0, the
// original fpp0), then clears that one in place and discards the rest.
func (f *Filter) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	current := f.snapshot()
	oldest := current[len(current)-1]

	for _, m := range current[:len(current)-1] {
		if err := m.Close(); err != nil {
			return err
		}
	}

	oldest.Clear()

	remaining := []*filter.Partitioned{oldest}
	f.members.Store(&remaining)

	return nil
}

// Close closes every member.
func (f *Filter) Close() error {
	var firstErr error

	for _, m := range f.snapshot() {
		if err := m.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
