// Package probfilter is the public façade over pkg/filter and pkg/scalable:
// one handle type so external collaborators (a CLI, an RPC server) don't
// need to import the variant packages or switch on their concrete types
// themselves.
package probfilter

import (
	"errors"

	"github.com/Sumatoshi-tech/bloomkit/pkg/bitvector"
	"github.com/Sumatoshi-tech/bloomkit/pkg/filter"
	"github.com/Sumatoshi-tech/bloomkit/pkg/scalable"
)

// Variant selects which underlying filter a Handle wraps.
type Variant int

// Supported variants.
const (
	Classic Variant = iota
	Partitioned
	Stable
	Cuckoo
	Scalable
)

// Options carries every builder parameter across all variants; fields not
// relevant to the chosen Variant are ignored.
type Options struct {
	N             uint64
	FPP           float64
	Backing       bitvector.Backing
	FilePath      string
	BitsPerBucket uint    // Stable only.
	PRatio        float64 // Scalable only; defaults to 0.9 if zero.
}

const defaultScalablePRatio = 0.9

// Handle wraps exactly one concrete filter, selected at Create time.
type Handle struct {
	variant     Variant
	classic     *filter.Classic
	partitioned *filter.Partitioned
	stable      *filter.Stable
	cuckoo      *filter.Cuckoo
	scalable    *scalable.Filter
}

// Create builds a new Handle for the requested variant.
func Create(variant Variant, opts Options) (*Handle, error) {
	switch variant {
	case Classic:
		c, err := filter.NewClassicWithEstimates(opts.N, opts.FPP, opts.Backing, opts.FilePath)
		if err != nil {
			return nil, err
		}

		return &Handle{variant: variant, classic: c}, nil

	case Partitioned:
		p, err := filter.NewPartitionedWithEstimates(opts.N, opts.FPP, opts.Backing, opts.FilePath)
		if err != nil {
			return nil, err
		}

		return &Handle{variant: variant, partitioned: p}, nil

	case Stable:
		s, err := filter.NewStableWithEstimates(opts.N, opts.FPP, opts.BitsPerBucket, opts.Backing, opts.FilePath)
		if err != nil {
			return nil, err
		}

		return &Handle{variant: variant, stable: s}, nil

	case Cuckoo:
		c, err := filter.NewCuckooWithEstimates(opts.N, opts.FPP, opts.Backing, opts.FilePath)
		if err != nil {
			return nil, err
		}

		return &Handle{variant: variant, cuckoo: c}, nil

	case Scalable:
		pratio := opts.PRatio
		if pratio == 0 {
			pratio = defaultScalablePRatio
		}

		s, err := scalable.New(opts.N, opts.FPP, pratio, opts.Backing, opts.FilePath)
		if err != nil {
			return nil, err
		}

		return &Handle{variant: variant, scalable: s}, nil

	default:
		return nil, filter.ErrInvalidArgument
	}
}

// Variant reports which variant this handle wraps.
func (h *Handle) Variant() Variant { return h.variant }

// Put inserts data into the underlying filter.
func (h *Handle) Put(data []byte) (bool, error) {
	switch h.variant {
	case Classic:
		return h.classic.Put(data)
	case Partitioned:
		return h.partitioned.Put(data)
	case Stable:
		return true, h.stable.Put(data)
	case Cuckoo:
		return h.cuckoo.Put(data)
	case Scalable:
		return h.scalable.Put(data)
	default:
		return false, filter.ErrInvalidArgument
	}
}

// MightContain reports whether data may have been inserted.
func (h *Handle) MightContain(data []byte) (bool, error) {
	switch h.variant {
	case Classic:
		return h.classic.MightContain(data)
	case Partitioned:
		return h.partitioned.MightContain(data)
	case Stable:
		return h.stable.MightContain(data)
	case Cuckoo:
		return h.cuckoo.MightContain(data)
	case Scalable:
		return h.scalable.MightContain(data)
	default:
		return false, filter.ErrInvalidArgument
	}
}

// Remove deletes data, where supported. Only Cuckoo supports removal; every
// other variant returns ErrUnsupportedOperation.
func (h *Handle) Remove(data []byte) (bool, error) {
	switch h.variant {
	case Classic:
		return h.classic.Remove(data)
	case Partitioned:
		return h.partitioned.Remove(data)
	case Stable:
		return h.stable.Remove(data)
	case Cuckoo:
		return h.cuckoo.Remove(data)
	case Scalable:
		return h.scalable.Remove(data)
	default:
		return false, filter.ErrInvalidArgument
	}
}

// Clear empties the underlying filter.
func (h *Handle) Clear() error {
	switch h.variant {
	case Classic:
		h.classic.Clear()
		return nil
	case Partitioned:
		h.partitioned.Clear()
		return nil
	case Stable:
		h.stable.Clear()
		return nil
	case Cuckoo:
		h.cuckoo.Clear()
		return nil
	case Scalable:
		return h.scalable.Clear()
	default:
		return filter.ErrInvalidArgument
	}
}

// MergeInPlace merges other into h in place. Both handles must wrap the same
// variant; Stable, Cuckoo and Scalable never support merging.
func (h *Handle) MergeInPlace(other *Handle) error {
	if other == nil || other.variant != h.variant {
		return filter.ErrIncompatibleMerge
	}

	switch h.variant {
	case Classic:
		return h.classic.MergeInPlace(other.classic)
	case Partitioned:
		return h.partitioned.MergeInPlace(other.partitioned)
	case Stable:
		return h.stable.MergeInPlace(other.stable)
	case Cuckoo:
		return h.cuckoo.MergeInPlace(other.cuckoo)
	case Scalable:
		return h.scalable.MergeInPlace(other.scalable)
	default:
		return filter.ErrIncompatibleMerge
	}
}

// ExpectedFPP returns the filter's estimated current false-positive rate.
func (h *Handle) ExpectedFPP() float64 {
	switch h.variant {
	case Classic:
		return h.classic.ExpectedFPP()
	case Partitioned:
		return h.partitioned.ExpectedFPP()
	case Stable:
		return h.stable.ExpectedFPP()
	case Cuckoo:
		return h.cuckoo.ExpectedFPP()
	case Scalable:
		return h.scalable.ExpectedFPP()
	default:
		return 0
	}
}

// Cardinality returns the number of set bits or stored tags, where the
// underlying variant exposes one. Partitioned, Stable and Scalable don't
// expose a single scalar cardinality and return 0.
func (h *Handle) Cardinality() uint64 {
	switch h.variant {
	case Classic:
		return h.classic.Cardinality()
	case Cuckoo:
		return h.cuckoo.Count()
	default:
		return 0
	}
}

// BitSize returns the backing vector's size in bits, where the underlying
// variant exposes one. Stable, Cuckoo and Scalable don't expose a single
// scalar bit size and return 0.
func (h *Handle) BitSize() uint64 {
	switch h.variant {
	case Classic:
		return h.classic.BitSize()
	case Partitioned:
		return h.partitioned.BitSize()
	default:
		return 0
	}
}

// EvictionFailures returns the number of Put calls that exhausted the
// cuckoo eviction chain. Zero for every other variant.
func (h *Handle) EvictionFailures() uint64 {
	if h.variant == Cuckoo {
		return h.cuckoo.EvictionFailures()
	}

	return 0
}

// Close releases the underlying filter's resources.
func (h *Handle) Close() error {
	switch h.variant {
	case Classic:
		return h.classic.Close()
	case Partitioned:
		return h.partitioned.Close()
	case Stable:
		return h.stable.Close()
	case Cuckoo:
		return h.cuckoo.Close()
	case Scalable:
		return h.scalable.Close()
	default:
		return errors.New("probfilter: unknown variant")
	}
}
