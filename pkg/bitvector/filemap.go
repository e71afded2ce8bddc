package bitvector

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/edsrzf/mmap-go"
)

// FileMapped is a BitVector backed by a read-write memory-mapped file. The
// on-disk layout is a raw little-endian word array with no header, so
// reopening an existing file of the same bitSize restores prior state (the
// persistence format named in the spec's external interfaces section).
type FileMapped struct {
	file        *os.File
	mapping     mmap.MMap
	words       []uint64
	bitSize     uint64
	cardinality atomic.Uint64
}

// OpenFileMapped opens (creating if necessary) path, extends it to the byte
// length required for bitSize bits, and maps it read-write. If the file
// already held bitSize bits' worth of data, that state is preserved and the
// cardinality is recomputed from it; otherwise the extended region reads as
// zero.
func OpenFileMapped(path string, bitSize uint64) (*FileMapped, error) {
	if bitSize == 0 || path == "" {
		return nil, ErrInvalidArgument
	}

	byteLen := int64(wordsFor(bitSize)) * 8

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("bitvector: open file-mapped backing: %w", err)
	}

	if truncErr := growFile(file, byteLen); truncErr != nil {
		file.Close()

		return nil, truncErr
	}

	m, err := mmap.MapRegion(file, int(byteLen), mmap.RDWR, 0, 0)
	if err != nil {
		file.Close()

		return nil, fmt.Errorf("bitvector: mmap file: %w", err)
	}

	words := bytesToWords([]byte(m))

	fm := &FileMapped{
		file:    file,
		mapping: m,
		words:   words,
		bitSize: bitSize,
	}
	fm.cardinality.Store(popcount(fm.words))

	return fm, nil
}

func growFile(file *os.File, byteLen int64) error {
	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("bitvector: stat file-mapped backing: %w", err)
	}

	if info.Size() >= byteLen {
		return nil
	}

	if err := file.Truncate(byteLen); err != nil {
		return fmt.Errorf("bitvector: extend file-mapped backing: %w", err)
	}

	return nil
}

// Get reports whether bit i is set.
func (f *FileMapped) Get(i uint64) (bool, error) {
	if err := checkRange(i, f.bitSize); err != nil {
		return false, err
	}

	return f.words[wordIndex(i)]&(1<<bitOffset(i)) != 0, nil
}

// Set sets bit i, returning true iff it transitioned 0->1.
func (f *FileMapped) Set(i uint64) (bool, error) {
	if err := checkRange(i, f.bitSize); err != nil {
		return false, err
	}

	mask := uint64(1) << bitOffset(i)
	w := wordIndex(i)

	if f.words[w]&mask != 0 {
		return false, nil
	}

	f.words[w] |= mask
	f.cardinality.Add(1)

	return true, nil
}

// Unset clears bit i, returning true iff it transitioned 1->0.
func (f *FileMapped) Unset(i uint64) (bool, error) {
	if err := checkRange(i, f.bitSize); err != nil {
		return false, err
	}

	mask := uint64(1) << bitOffset(i)
	w := wordIndex(i)

	if f.words[w]&mask == 0 {
		return false, nil
	}

	f.words[w] &^= mask
	f.cardinality.Add(^uint64(0))

	return true, nil
}

// Cardinality returns the number of set bits.
func (f *FileMapped) Cardinality() uint64 { return f.cardinality.Load() }

// BitSize returns the total number of addressable bits.
func (f *FileMapped) BitSize() uint64 { return f.bitSize }

// Clear zeroes every bit.
func (f *FileMapped) Clear() {
	for i := range f.words {
		f.words[i] = 0
	}

	f.cardinality.Store(0)
}

// PutAll ORs other's words into this vector in place.
func (f *FileMapped) PutAll(other Vector) error {
	if other == nil {
		return ErrIncompatibleMerge
	}

	ov, ok := other.(*FileMapped)
	if !ok || ov.bitSize != f.bitSize {
		return ErrIncompatibleMerge
	}

	words := ov.Words()
	for i := range f.words {
		f.words[i] |= words[i]
	}

	f.cardinality.Store(popcount(f.words))

	return nil
}

// Words exposes the underlying word slice.
func (f *FileMapped) Words() []uint64 { return f.words }

// Close unmaps the file and closes the descriptor. Idempotent; secondary
// errors while tearing down are collected but don't prevent the remaining
// steps from running, so a Close call never leaks the file descriptor.
func (f *FileMapped) Close() error {
	if f.file == nil {
		return nil
	}

	var unmapErr, closeErr error

	if f.mapping != nil {
		unmapErr = f.mapping.Unmap()
		f.mapping = nil
		f.words = nil
	}

	closeErr = f.file.Close()
	f.file = nil

	if unmapErr != nil {
		return fmt.Errorf("bitvector: unmap file: %w", unmapErr)
	}

	if closeErr != nil {
		return fmt.Errorf("bitvector: close file: %w", closeErr)
	}

	return nil
}
