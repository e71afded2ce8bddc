package filterhash_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/bloomkit/pkg/filterhash"
)

func TestSum_Vectors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		wantH uint64
		wantL uint64
	}{
		{"hell", "hell", 0x629942693e10f867, 0x92db0b82baeb5347},
		{"hello", "hello", 0xa78ddff5adae8d10, 0x128900ef20900135},
		{"pangram", "The quick brown fox jumps over the lazy dog", 0xe34bbc7bbc071b6c, 0x7a433ca9c49a9347},
		{"pangram_cog", "The quick brown fox jumps over the lazy cog", 0x658ca970ff85269a, 0x43fee3eaa68e5c3e},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := filterhash.Sum([]byte(tt.input))
			assert.Equal(t, tt.wantH, d.H1, "h1 mismatch")
			assert.Equal(t, tt.wantL, d.H2, "h2 mismatch")
		})
	}
}

func TestSumSeed_Vectors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		seed  uint32
		wantH uint64
		wantL uint64
	}{
		{"hello_space_seed2", "hello ", 2, 0x8a486b23f422e826, 0xf962a2c58947765f},
		{"hello_w_seed3", "hello w", 3, 0x2ea59f466f6bed8c, 0xc610990acc428a17},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := filterhash.SumSeed([]byte(tt.input), tt.seed)
			assert.Equal(t, tt.wantH, d.H1, "h1 mismatch")
			assert.Equal(t, tt.wantL, d.H2, "h2 mismatch")
		})
	}
}

func TestIndices_AllPositive(t *testing.T) {
	t.Parallel()

	dst := make([]uint64, 8)
	filterhash.Indices([]byte("any item"), dst)

	for i, v := range dst {
		require.LessOrEqual(t, v, uint64(0x7FFFFFFFFFFFFFFF), "index %d not masked positive", i)
	}
}

func TestIndices_FirstIsH1Masked(t *testing.T) {
	t.Parallel()

	data := []byte("hello")
	d := filterhash.Sum(data)

	dst := make([]uint64, 4)
	filterhash.Indices(data, dst)

	assert.Equal(t, d.H1&0x7FFFFFFFFFFFFFFF, dst[0])
}

func TestFingerprint_NeverZero(t *testing.T) {
	t.Parallel()

	for i := range 1000 {
		d := filterhash.Sum([]byte{byte(i), byte(i >> 8)})
		fp := filterhash.Fingerprint(d.H1, 8)
		require.NotZero(t, fp)
		require.Less(t, fp, uint64(1<<8))
	}
}
