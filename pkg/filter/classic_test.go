package filter_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/bloomkit/pkg/bitvector"
	"github.com/Sumatoshi-tech/bloomkit/pkg/filter"
)

func newClassic(t *testing.T, n uint64, fpp float64) *filter.Classic {
	t.Helper()

	c, err := filter.NewClassicWithEstimates(n, fpp, bitvector.BackingHeap, "")
	require.NoError(t, err)

	t.Cleanup(func() { _ = c.Close() })

	return c
}

func TestClassic_PutThenMightContain(t *testing.T) {
	c := newClassic(t, 1000, 0.01)

	ok, err := c.Put([]byte("alpha"))
	require.NoError(t, err)
	assert.True(t, ok)

	found, err := c.MightContain([]byte("alpha"))
	require.NoError(t, err)
	assert.True(t, found)

	found, err = c.MightContain([]byte("never-inserted"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClassic_PutExistingReturnsFalse(t *testing.T) {
	c := newClassic(t, 1000, 0.01)

	first, err := c.Put([]byte("repeat"))
	require.NoError(t, err)
	assert.True(t, first)

	second, err := c.Put([]byte("repeat"))
	require.NoError(t, err)
	assert.False(t, second)
}

func TestClassic_RemoveUnsupported(t *testing.T) {
	c := newClassic(t, 100, 0.01)

	_, err := c.Remove([]byte("x"))
	require.ErrorIs(t, err, filter.ErrUnsupportedOperation)
}

func TestClassic_MergeRoundTrip(t *testing.T) {
	a := newClassic(t, 1000, 0.01)
	bb := newClassic(t, 1000, 0.01)

	_, err := a.Put([]byte("from-a"))
	require.NoError(t, err)

	_, err = bb.Put([]byte("from-b"))
	require.NoError(t, err)

	require.NoError(t, a.MergeInPlace(bb))

	found, err := a.MightContain([]byte("from-a"))
	require.NoError(t, err)
	assert.True(t, found)

	found, err = a.MightContain([]byte("from-b"))
	require.NoError(t, err)
	assert.True(t, found)
}

func TestClassic_MergeIncompatibleBitSize(t *testing.T) {
	a := newClassic(t, 1000, 0.01)
	b := newClassic(t, 50, 0.2)

	err := a.MergeInPlace(b)
	require.ErrorIs(t, err, filter.ErrIncompatibleMerge)
}

func TestClassic_ExpectedFPPWithinReason(t *testing.T) {
	c := newClassic(t, 1000, 0.01)

	fpp := c.ExpectedFPP()
	assert.GreaterOrEqual(t, fpp, 0.0)
	assert.LessOrEqual(t, fpp, 1.0)

	for i := range 500 {
		_, err := c.Put(fmt.Appendf(nil, "item-%d", i))
		require.NoError(t, err)
	}

	assert.Greater(t, c.ExpectedFPP(), 0.0)
}

func TestClassic_ClearEmptiesFilter(t *testing.T) {
	c := newClassic(t, 100, 0.01)

	_, err := c.Put([]byte("beta"))
	require.NoError(t, err)

	c.Clear()

	found, err := c.MightContain([]byte("beta"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, c.Cardinality())
}

func TestClassic_ManyInsertsStayQueryable(t *testing.T) {
	c := newClassic(t, 2000, 0.01)

	for i := range 500 {
		_, err := c.Put(fmt.Appendf(nil, "item-%d", i))
		require.NoError(t, err)
	}

	hits := 0

	for i := range 500 {
		ok, err := c.MightContain(fmt.Appendf(nil, "item-%d", i))
		require.NoError(t, err)

		if ok {
			hits++
		}
	}

	assert.Equal(t, 500, hits)
}
