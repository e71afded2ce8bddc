// Package filtermetrics exposes Prometheus collectors for a probfilter
// handle's runtime state: cardinality, load factor, estimated false-positive
// rate, and cuckoo eviction-failure counts. Collectors are registered
// against a caller-supplied registry rather than the global default, the
// same collaborator-owned-registry pattern the teacher's observability
// package uses for its Prometheus bridge.
package filtermetrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Sumatoshi-tech/bloomkit/pkg/probfilter"
)

const namespace = "probfilter"

// Metrics holds the gauges tracking one handle's runtime state.
type Metrics struct {
	cardinality      prometheus.GaugeFunc
	loadFactor       prometheus.GaugeFunc
	expectedFPP      prometheus.GaugeFunc
	evictionFailures prometheus.GaugeFunc
}

// Register builds and registers gauges for handle, labeled by name, against
// reg. The returned Metrics must not be registered again.
func Register(reg prometheus.Registerer, name string, handle *probfilter.Handle) (*Metrics, error) {
	labels := prometheus.Labels{"filter": name}

	m := &Metrics{
		cardinality: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Name:        "cardinality",
				Help:        "Number of set bits or stored tags in the filter.",
				ConstLabels: labels,
			},
			func() float64 { return float64(handle.Cardinality()) },
		),
		loadFactor: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Name:        "load_factor",
				Help:        "Cardinality divided by backing bit size, where the variant exposes one.",
				ConstLabels: labels,
			},
			func() float64 { return loadFactor(handle) },
		),
		expectedFPP: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Name:        "expected_fpp",
				Help:        "Estimated current false-positive probability.",
				ConstLabels: labels,
			},
			func() float64 { return handle.ExpectedFPP() },
		),
		evictionFailures: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Name:        "cuckoo_eviction_failures_total",
				Help:        "Number of cuckoo Put calls that exhausted the eviction chain.",
				ConstLabels: labels,
			},
			func() float64 { return float64(handle.EvictionFailures()) },
		),
	}

	collectors := []prometheus.Collector{m.cardinality, m.loadFactor, m.expectedFPP, m.evictionFailures}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register filter metric: %w", err)
		}
	}

	return m, nil
}

func loadFactor(handle *probfilter.Handle) float64 {
	bitSize := handle.BitSize()
	if bitSize == 0 {
		return 0
	}

	return float64(handle.Cardinality()) / float64(bitSize)
}
