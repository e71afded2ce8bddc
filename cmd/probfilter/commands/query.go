package commands

import (
	"bufio"
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/bloomkit/internal/config"
	"github.com/Sumatoshi-tech/bloomkit/pkg/observability"
)

// opQuery is the RED-metrics/span operation name for the query command.
const opQuery = "query"

// QueryCommand holds the flags for the query command.
type QueryCommand struct {
	configPath string
	variant    string
}

// NewQueryCommand creates and configures the query command, which reports
// whether each line read from stdin might be a member of a filter built
// fresh from config — useful mainly for smoke-testing a configuration, since
// a fresh filter never contains anything.
func NewQueryCommand() *cobra.Command {
	qc := &QueryCommand{}

	cobraCmd := &cobra.Command{
		Use:   "query",
		Short: "Report MightContain for each stdin line against a freshly built filter",
		RunE:  qc.Run,
	}

	cobraCmd.Flags().StringVar(&qc.configPath, "config", "", "Path to a probfilter config file")
	cobraCmd.Flags().StringVar(&qc.variant, "variant", "", "Filter variant override")

	return cobraCmd
}

// Run executes the query command.
func (qc *QueryCommand) Run(cobraCmd *cobra.Command, _ []string) error {
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

	ctx, span := providers.Tracer.Start(cobraCmd.Context(), opQuery)
	defer span.End()

	doneInflight := red.TrackInflight(ctx, opQuery)
	defer doneInflight()

	start := time.Now()
	runErr := qc.run(cobraCmd)

	status := "ok"
	if runErr != nil {
		status = "error"
	}

	red.RecordRequest(ctx, opQuery, status, time.Since(start))

	return runErr
}

func (qc *QueryCommand) run(cobraCmd *cobra.Command) error {
	cfg, err := config.Load(qc.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if qc.variant != "" {
		cfg.Filter.Variant = qc.variant
	}

	handle, err := buildHandle(cfg)
	if err != nil {
		return fmt.Errorf("build filter: %w", err)
	}
	defer func() { _ = handle.Close() }()

	out := cobraCmd.OutOrStdout()
	scanner := bufio.NewScanner(cobraCmd.InOrStdin())

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		present, err := handle.MightContain(line)
		if err != nil {
			return fmt.Errorf("query item: %w", err)
		}

		fmt.Fprintf(out, "%s\t%t\n", line, present)
	}

	return scanner.Err()
}
