package filtermetrics_test

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/bloomkit/pkg/bitvector"
	"github.com/Sumatoshi-tech/bloomkit/pkg/filtermetrics"
	"github.com/Sumatoshi-tech/bloomkit/pkg/probfilter"
)

func TestRegister_ExposesGauges(t *testing.T) {
	handle, err := probfilter.Create(probfilter.Classic, probfilter.Options{
		N: 1000, FPP: 0.01, Backing: bitvector.BackingHeap,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = handle.Close() })

	_, err = handle.Put([]byte("iota"))
	require.NoError(t, err)

	reg := prometheus.NewRegistry()

	_, err = filtermetrics.Register(reg, "test-filter", handle)
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg,
		"probfilter_cardinality",
		"probfilter_load_factor",
		"probfilter_expected_fpp",
		"probfilter_cuckoo_eviction_failures_total",
	)
	require.NoError(t, err)
	require.Equal(t, 4, count)
}

func TestRegister_DuplicateNameConflicts(t *testing.T) {
	handle, err := probfilter.Create(probfilter.Classic, probfilter.Options{
		N: 100, FPP: 0.01, Backing: bitvector.BackingHeap,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = handle.Close() })

	reg := prometheus.NewRegistry()

	_, err = filtermetrics.Register(reg, "dup", handle)
	require.NoError(t, err)

	_, err = filtermetrics.Register(reg, "dup", handle)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "register filter metric"))
}
