// Package commands provides CLI command implementations for the probfilter
// binary.
package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/bloomkit/internal/config"
	"github.com/Sumatoshi-tech/bloomkit/pkg/bitvector"
	"github.com/Sumatoshi-tech/bloomkit/pkg/observability"
	"github.com/Sumatoshi-tech/bloomkit/pkg/probfilter"
)

// opPut is the RED-metrics/span operation name for the put command.
const opPut = "put"

// PutCommand holds the flags for the put command.
type PutCommand struct {
	configPath string
	variant    string
	fpp        float64
	capacity   uint64
	offHeap    bool
	filePath   string
}

// NewPutCommand creates and configures the put command, which streams
// newline-delimited items from stdin into a freshly built filter and reports
// its estimated false-positive rate and cardinality once stdin closes.
func NewPutCommand() *cobra.Command {
	pc := &PutCommand{}

	cobraCmd := &cobra.Command{
		Use:   "put",
		Short: "Insert newline-delimited stdin items into a filter",
		Long:  "Build a filter from flags or config, insert every line read from stdin, then report its stats",
		RunE:  pc.Run,
	}

	cobraCmd.Flags().StringVar(&pc.configPath, "config", "", "Path to a probfilter config file")
	cobraCmd.Flags().StringVar(&pc.variant, "variant", "", "Filter variant: classic, partitioned, stable, cuckoo, scalable")
	cobraCmd.Flags().Float64Var(&pc.fpp, "fpp", 0, "Target false-positive rate")
	cobraCmd.Flags().Uint64Var(&pc.capacity, "capacity", 0, "Expected item count")
	cobraCmd.Flags().BoolVar(&pc.offHeap, "off-heap", false, "Use off-heap or file-mapped backing")
	cobraCmd.Flags().StringVar(&pc.filePath, "file", "", "File path for file-mapped backing (requires --off-heap)")

	return cobraCmd
}

// Run executes the put command.
func (pc *PutCommand) Run(cobraCmd *cobra.Command, _ []string) error {
	providers, err := initObservability(observability.ModeCLI)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	defer func() {
		if shutdownErr := providers.Shutdown(context.Background()); shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	red, err := observability.NewREDMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	ctx, span := providers.Tracer.Start(cobraCmd.Context(), opPut)
	defer span.End()

	doneInflight := red.TrackInflight(ctx, opPut)
	defer doneInflight()

	start := time.Now()

	inserted, cardinality, expectedFPP, runErr := pc.run(cobraCmd)

	status := "ok"
	if runErr != nil {
		status = "error"
	}

	red.RecordRequest(ctx, opPut, status, time.Since(start))

	if runErr != nil {
		return runErr
	}

	out := cobraCmd.OutOrStdout()
	fmt.Fprintf(out, "inserted=%d cardinality=%d expectedFpp=%.6f\n", inserted, cardinality, expectedFPP)

	return nil
}

func (pc *PutCommand) run(cobraCmd *cobra.Command) (inserted, cardinality uint64, expectedFPP float64, err error) {
	cfg, err := config.Load(pc.configPath)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("load config: %w", err)
	}

	pc.applyFlagOverrides(cfg)

	handle, err := buildHandle(cfg)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("build filter: %w", err)
	}
	defer func() {
		if closeErr := handle.Close(); closeErr != nil {
			slog.Warn("close filter", "error", closeErr)
		}
	}()

	inserted, err = streamPuts(cobraCmd.InOrStdin(), handle)
	if err != nil {
		return inserted, 0, 0, fmt.Errorf("insert items: %w", err)
	}

	return inserted, handle.Cardinality(), handle.ExpectedFPP(), nil
}

func (pc *PutCommand) applyFlagOverrides(cfg *config.Config) {
	if pc.variant != "" {
		cfg.Filter.Variant = pc.variant
	}

	if pc.fpp != 0 {
		cfg.Filter.FPP = pc.fpp
	}

	if pc.capacity != 0 {
		cfg.Filter.Capacity = pc.capacity
	}

	if pc.offHeap {
		cfg.Filter.OffHeap = true
	}

	if pc.filePath != "" {
		cfg.Filter.FilePath = pc.filePath
	}
}

func buildHandle(cfg *config.Config) (*probfilter.Handle, error) {
	variant, err := parseVariant(cfg.Filter.Variant)
	if err != nil {
		return nil, err
	}

	backing := bitvector.BackingHeap
	if cfg.Filter.OffHeap {
		backing = bitvector.BackingOffHeap

		if cfg.Filter.FilePath != "" {
			backing = bitvector.BackingFileMapped
		}
	}

	return probfilter.Create(variant, probfilter.Options{
		N:             cfg.Filter.Capacity,
		FPP:           cfg.Filter.FPP,
		Backing:       backing,
		FilePath:      cfg.Filter.FilePath,
		BitsPerBucket: cfg.Filter.BitsPerBucket,
		PRatio:        cfg.Filter.PRatio,
	})
}

func parseVariant(name string) (probfilter.Variant, error) {
	switch name {
	case "classic":
		return probfilter.Classic, nil
	case "partitioned":
		return probfilter.Partitioned, nil
	case "stable":
		return probfilter.Stable, nil
	case "cuckoo":
		return probfilter.Cuckoo, nil
	case "scalable":
		return probfilter.Scalable, nil
	default:
		return 0, fmt.Errorf("%w: %q", config.ErrInvalidVariant, name)
	}
}

func streamPuts(r io.Reader, handle *probfilter.Handle) (uint64, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var inserted uint64

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		ok, err := handle.Put(line)
		if err != nil {
			return inserted, err
		}

		if ok {
			inserted++
		}
	}

	if err := scanner.Err(); err != nil && err != io.EOF {
		return inserted, fmt.Errorf("scan stdin: %w", err)
	}

	return inserted, nil
}
