package filter_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/bloomkit/pkg/bitvector"
	"github.com/Sumatoshi-tech/bloomkit/pkg/filter"
)

func newCuckoo(t *testing.T, n uint64, fpp float64) *filter.Cuckoo {
	t.Helper()

	c, err := filter.NewCuckooWithEstimates(n, fpp, bitvector.BackingHeap, "")
	require.NoError(t, err)

	t.Cleanup(func() { _ = c.Close() })

	return c
}

func TestCuckoo_PutMightContainRemove(t *testing.T) {
	c := newCuckoo(t, 1000, 0.01)

	ok, err := c.Put([]byte("gamma"))
	require.NoError(t, err)
	assert.True(t, ok)

	found, err := c.MightContain([]byte("gamma"))
	require.NoError(t, err)
	assert.True(t, found)

	removed, err := c.Remove([]byte("gamma"))
	require.NoError(t, err)
	assert.True(t, removed)

	found, err = c.MightContain([]byte("gamma"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCuckoo_RemoveMissingReturnsFalse(t *testing.T) {
	c := newCuckoo(t, 100, 0.01)

	removed, err := c.Remove([]byte("nope"))
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestCuckoo_MergeUnsupported(t *testing.T) {
	a := newCuckoo(t, 100, 0.01)
	b := newCuckoo(t, 100, 0.01)

	require.ErrorIs(t, a.MergeInPlace(b), filter.ErrUnsupportedOperation)
}

func TestCuckoo_InsertAllThenRemoveAll(t *testing.T) {
	c := newCuckoo(t, 10000, 0.01)

	items := make([][]byte, 0, 10000)
	for i := range 10000 {
		items = append(items, fmt.Appendf(nil, "key-%d", i))
	}

	inserted := 0

	for _, item := range items {
		ok, err := c.Put(item)
		require.NoError(t, err)

		if ok {
			inserted++
		}
	}

	hits := 0

	for _, item := range items {
		ok, err := c.MightContain(item)
		require.NoError(t, err)

		if ok {
			hits++
		}
	}

	assert.GreaterOrEqual(t, hits, inserted)

	removed := 0

	for _, item := range items {
		ok, err := c.Remove(item)
		require.NoError(t, err)

		if ok {
			removed++
		}
	}

	assert.Greater(t, removed, 0)
}

func TestCuckoo_ExpectedFPPWithinRange(t *testing.T) {
	c := newCuckoo(t, 1000, 0.01)

	for i := range 200 {
		_, err := c.Put(fmt.Appendf(nil, "fpp-%d", i))
		require.NoError(t, err)
	}

	fpp := c.ExpectedFPP()
	assert.GreaterOrEqual(t, fpp, 0.0)
	assert.LessOrEqual(t, fpp, 1.0)
}

func TestCuckoo_ClearEmptiesFilter(t *testing.T) {
	c := newCuckoo(t, 100, 0.01)

	_, err := c.Put([]byte("delta"))
	require.NoError(t, err)

	c.Clear()

	found, err := c.MightContain([]byte("delta"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, uint64(0), c.Count())
}
