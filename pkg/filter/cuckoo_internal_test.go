package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/bloomkit/pkg/bitvector"
	"github.com/Sumatoshi-tech/bloomkit/pkg/bucketset"
)

func TestCuckoo_AltIndexIsInvolution(t *testing.T) {
	vec, err := bitvector.NewHeap(64 * 2 * 4)
	require.NoError(t, err)

	bs, err := bucketset.New(vec, 4, 2, 64)
	require.NoError(t, err)

	c := NewCuckoo(bs)
	t.Cleanup(func() { _ = c.Close() })

	for b := uint64(0); b < c.buckets.NumBuckets(); b++ {
		for tag := uint64(1); tag < 50; tag++ {
			alt := c.altIndex(b, tag)
			back := c.altIndex(alt, tag)
			assert.Equal(t, b, back, "bucket=%d tag=%d", b, tag)
		}
	}
}
