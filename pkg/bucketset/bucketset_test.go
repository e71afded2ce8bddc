package bucketset_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/bloomkit/pkg/bitvector"
	"github.com/Sumatoshi-tech/bloomkit/pkg/bucketset"
)

func newSet(t *testing.T, bitsPerTag uint, tagsPerBucket uint, numBuckets uint64) *bucketset.Set {
	t.Helper()

	vec, err := bitvector.NewHeap(bitsPerTag * tagsPerBucket * uint(numBuckets))
	require.NoError(t, err)

	t.Cleanup(func() { _ = vec.Close() })

	s, err := bucketset.New(vec, bitsPerTag, tagsPerBucket, numBuckets)
	require.NoError(t, err)

	return s
}

func TestSet_AppendCheckDelete(t *testing.T) {
	t.Parallel()

	s := newSet(t, 31, 7, 13)

	const tag = uint64(1<<31 - 1)

	ok, err := s.Append(10, tag)
	require.NoError(t, err)
	assert.True(t, ok)

	pos, err := s.CheckTag(10, tag)
	require.NoError(t, err)
	assert.Equal(t, 0, pos)

	got, err := s.ReadTag(10, 0)
	require.NoError(t, err)
	assert.Equal(t, tag, got)

	require.NoError(t, s.DeleteTag(10, 0))

	pos, err = s.CheckTag(10, tag)
	require.NoError(t, err)
	assert.Equal(t, -1, pos)
}

func TestSet_AppendIdempotent(t *testing.T) {
	t.Parallel()

	s := newSet(t, 8, 4, 4)

	ok, err := s.Append(0, 42)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Append(0, 42)
	require.NoError(t, err)
	assert.True(t, ok, "re-adding an already-present tag is idempotent")

	pos, err := s.CheckTag(0, 42)
	require.NoError(t, err)
	assert.Equal(t, 0, pos)
}

func TestSet_AppendFullBucket(t *testing.T) {
	t.Parallel()

	s := newSet(t, 8, 2, 1)

	ok, err := s.Append(0, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Append(0, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Append(0, 3)
	require.NoError(t, err)
	assert.False(t, ok, "bucket is full")
}

func TestSet_WriteTagRoundTrip(t *testing.T) {
	t.Parallel()

	s := newSet(t, 16, 4, 8)

	for p := range uint(4) {
		tag := uint64(1000 + p)
		require.NoError(t, s.WriteTag(3, p, tag))
	}

	for p := range uint(4) {
		want := uint64(1000 + p)
		got, err := s.ReadTag(3, p)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestSet_GetFreePosInBucket(t *testing.T) {
	t.Parallel()

	s := newSet(t, 8, 4, 2)

	free, err := s.GetFreePosInBucket(1)
	require.NoError(t, err)
	assert.Equal(t, 0, free)

	require.NoError(t, s.WriteTag(1, 0, 5))

	free, err = s.GetFreePosInBucket(1)
	require.NoError(t, err)
	assert.Equal(t, 1, free)
}

func TestNew_ValidatesGeometry(t *testing.T) {
	t.Parallel()

	vec, err := bitvector.NewHeap(64)
	require.NoError(t, err)

	t.Cleanup(func() { _ = vec.Close() })

	_, err = bucketset.New(vec, 0, 4, 1)
	require.ErrorIs(t, err, bucketset.ErrInvalidArgument)

	_, err = bucketset.New(vec, 64, 4, 1)
	require.ErrorIs(t, err, bucketset.ErrInvalidArgument)

	_, err = bucketset.New(vec, 8, 4, 100)
	require.ErrorIs(t, err, bucketset.ErrInvalidArgument, "vector too small for requested geometry")
}
