// Command probfilter is a small CLI demonstrating the probfilter façade: it
// builds a filter from flags or a config file, streams newline-delimited
// items from stdin into it, and reports the filter's estimated
// false-positive rate and cardinality.
package main

import (
	"log/slog"
	"os"

	"github.com/Sumatoshi-tech/bloomkit/cmd/probfilter/commands"
	"github.com/Sumatoshi-tech/bloomkit/pkg/observability"
	"github.com/Sumatoshi-tech/bloomkit/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	inner := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	slog.SetDefault(slog.New(observability.NewTracingHandler(inner, "probfilter", "", observability.ModeCLI)))

	if err := commands.NewRootCommand().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
