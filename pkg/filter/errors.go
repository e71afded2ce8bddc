// Package filter implements the four bloom-family variants (classic,
// partitioned, stable, cuckoo) as thin algorithms over a bitvector.Vector or
// bucketset.Set, each guarded by a striped.Locks array for concurrent
// insertion and query.
package filter

import "errors"

// ErrInvalidArgument is returned by constructors on bad fpp, capacity, or
// bucket-width parameters.
var ErrInvalidArgument = errors.New("filter: invalid argument")

// ErrIncompatibleMerge is returned by MergeInPlace when the operand is nil,
// a different variant, or sized/parameterized differently.
var ErrIncompatibleMerge = errors.New("filter: incompatible merge operand")

// ErrUnsupportedOperation is returned for combinations the spec declares
// unsupported: Remove on classic/partitioned/stable, MergeInPlace on
// stable/cuckoo.
var ErrUnsupportedOperation = errors.New("filter: unsupported operation")
