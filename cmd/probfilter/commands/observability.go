package commands

import (
	"os"

	"github.com/Sumatoshi-tech/bloomkit/pkg/observability"
	"github.com/Sumatoshi-tech/bloomkit/pkg/version"
)

// initObservability builds the tracer, meter, and logger for a CLI
// invocation. OTLP export activates only when OTEL_EXPORTER_OTLP_ENDPOINT is
// set; otherwise Init returns no-op providers with zero overhead.
func initObservability(mode observability.AppMode) (observability.Providers, error) {
	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = version.Version
	cfg.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	cfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	cfg.OTLPInsecure = os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true"
	cfg.Mode = mode
	cfg.LogJSON = true

	if os.Getenv("PROBFILTER_DEBUG_TRACE") == "true" {
		cfg.DebugTrace = true
	}

	return observability.Init(cfg)
}
