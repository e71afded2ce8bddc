package filter_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/bloomkit/pkg/bitvector"
	"github.com/Sumatoshi-tech/bloomkit/pkg/filter"
)

func newPartitioned(t *testing.T, n uint64, fpp float64) *filter.Partitioned {
	t.Helper()

	p, err := filter.NewPartitionedWithEstimates(n, fpp, bitvector.BackingHeap, "")
	require.NoError(t, err)

	t.Cleanup(func() { _ = p.Close() })

	return p
}

func TestPartitioned_PutThenMightContain(t *testing.T) {
	p := newPartitioned(t, 1000, 0.01)

	ok, err := p.Put([]byte("alpha"))
	require.NoError(t, err)
	assert.True(t, ok)

	found, err := p.MightContain([]byte("alpha"))
	require.NoError(t, err)
	assert.True(t, found)

	found, err = p.MightContain([]byte("never-inserted"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPartitioned_BitSizeDividesEvenlyIntoSlices(t *testing.T) {
	p := newPartitioned(t, 1000, 0.01)

	assert.Equal(t, p.BitSize(), p.SliceSize()*uint64(p.HashCount()))
}

func TestPartitioned_RemoveUnsupported(t *testing.T) {
	p := newPartitioned(t, 100, 0.01)

	_, err := p.Remove([]byte("x"))
	require.ErrorIs(t, err, filter.ErrUnsupportedOperation)
}

func TestPartitioned_MergeRoundTrip(t *testing.T) {
	a := newPartitioned(t, 1000, 0.01)
	b := newPartitioned(t, 1000, 0.01)

	_, err := a.Put([]byte("from-a"))
	require.NoError(t, err)

	_, err = b.Put([]byte("from-b"))
	require.NoError(t, err)

	require.NoError(t, a.MergeInPlace(b))

	found, err := a.MightContain([]byte("from-a"))
	require.NoError(t, err)
	assert.True(t, found)

	found, err = a.MightContain([]byte("from-b"))
	require.NoError(t, err)
	assert.True(t, found)
}

func TestPartitioned_MergeIncompatibleBitSize(t *testing.T) {
	a := newPartitioned(t, 1000, 0.01)
	b := newPartitioned(t, 50, 0.2)

	err := a.MergeInPlace(b)
	require.ErrorIs(t, err, filter.ErrIncompatibleMerge)
}

func TestPartitioned_NumItemsTracksInserts(t *testing.T) {
	p := newPartitioned(t, 1000, 0.01)

	assert.Zero(t, p.NumItems())

	ok, err := p.Put([]byte("alpha"))
	require.NoError(t, err)
	require.True(t, ok)

	assert.EqualValues(t, 1, p.NumItems())

	// Re-inserting the same item must not transition every slice bit, so the
	// counter only advances on a genuine first insert.
	ok, err = p.Put([]byte("alpha"))
	require.NoError(t, err)

	if !ok {
		assert.EqualValues(t, 1, p.NumItems())
	}
}

func TestPartitioned_EstimatedFillRatioGrowsWithInserts(t *testing.T) {
	p := newPartitioned(t, 2000, 0.01)

	empty := p.EstimatedFillRatio()
	assert.Zero(t, empty)

	for i := range 500 {
		_, err := p.Put(fmt.Appendf(nil, "item-%d", i))
		require.NoError(t, err)
	}

	filled := p.EstimatedFillRatio()
	assert.Greater(t, filled, 0.0)
	assert.LessOrEqual(t, filled, 1.0)
}

func TestPartitioned_ExpectedFPPWithinReason(t *testing.T) {
	p := newPartitioned(t, 1000, 0.01)

	fpp := p.ExpectedFPP()
	assert.GreaterOrEqual(t, fpp, 0.0)
	assert.LessOrEqual(t, fpp, 1.0)
}

func TestPartitioned_ClearEmptiesFilter(t *testing.T) {
	p := newPartitioned(t, 100, 0.01)

	_, err := p.Put([]byte("beta"))
	require.NoError(t, err)

	p.Clear()

	found, err := p.MightContain([]byte("beta"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, p.NumItems())
	assert.Zero(t, p.EstimatedFillRatio())
}

func TestPartitioned_ManyInsertsStayQueryable(t *testing.T) {
	p := newPartitioned(t, 2000, 0.01)

	for i := range 500 {
		_, err := p.Put(fmt.Appendf(nil, "item-%d", i))
		require.NoError(t, err)
	}

	hits := 0

	for i := range 500 {
		ok, err := p.MightContain(fmt.Appendf(nil, "item-%d", i))
		require.NoError(t, err)

		if ok {
			hits++
		}
	}

	assert.Equal(t, 500, hits)
}
