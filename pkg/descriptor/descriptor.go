// Package descriptor describes a filter's build parameters so a caller can
// reconstruct a handle (variant, fpp, n, k, bitsPerTag, file path) across
// process restarts. It is metadata only: it never encodes bit state, which
// lives in the mmap'd vector file itself.
package descriptor

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/bloomkit/pkg/persist"
)

// Variant identifies which filter kind a Descriptor describes.
type Variant string

// Supported variants.
const (
	VariantClassic     Variant = "classic"
	VariantPartitioned Variant = "partitioned"
	VariantStable      Variant = "stable"
	VariantCuckoo      Variant = "cuckoo"
	VariantScalable    Variant = "scalable"
)

// HashSelector names the hashing scheme a filter was built with. Only one
// exists today, but the field keeps the descriptor format stable if a second
// is ever added.
type HashSelector string

// Murmur3_128 is the only supported hash selector.
const Murmur3_128 HashSelector = "murmur3_128"

// ErrUnknownVariant is returned when decoding a descriptor naming a variant
// this package does not recognize.
var ErrUnknownVariant = errors.New("descriptor: unknown variant")

// Descriptor captures the parameters a builder needs to reconstruct a filter
// handle, matching the YAML sidecar schema documented alongside the
// file-mapped persistence format.
type Descriptor struct {
	Variant       Variant      `yaml:"variant"`
	FPP           float64      `yaml:"fpp"`
	N             uint64       `yaml:"n"`
	BitsPerBucket uint         `yaml:"bitsPerBucket,omitempty"`
	OffHeap       bool         `yaml:"offHeap"`
	FilePath      string       `yaml:"filePath,omitempty"`
	HashSelector  HashSelector `yaml:"hashSelector"`
}

// Validate checks that Variant names a known variant and the numeric fields
// are within range.
func (d Descriptor) Validate() error {
	switch d.Variant {
	case VariantClassic, VariantPartitioned, VariantStable, VariantCuckoo, VariantScalable:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownVariant, d.Variant)
	}

	if d.FPP <= 0 || d.FPP >= 1 {
		return fmt.Errorf("descriptor: fpp out of range: %v", d.FPP)
	}

	if d.N == 0 {
		return errors.New("descriptor: n must be positive")
	}

	if d.Variant == VariantStable && (d.BitsPerBucket == 0 || d.BitsPerBucket >= 64) {
		return fmt.Errorf("descriptor: bitsPerBucket out of range: %d", d.BitsPerBucket)
	}

	if d.OffHeap && d.FilePath == "" {
		return errors.New("descriptor: offHeap requires filePath")
	}

	return nil
}

// Store persists d as a YAML sidecar named basename+".yaml" under dir.
func Store(dir, basename string, d Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}

	return persist.SaveState(dir, basename, persist.NewYAMLCodec(), &d)
}

// Load reads a YAML sidecar named basename+".yaml" under dir.
func Load(dir, basename string) (Descriptor, error) {
	var d Descriptor

	if err := persist.LoadState(dir, basename, persist.NewYAMLCodec(), &d); err != nil {
		return Descriptor{}, err
	}

	if err := d.Validate(); err != nil {
		return Descriptor{}, err
	}

	return d, nil
}
