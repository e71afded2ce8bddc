package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/bloomkit/pkg/observability"
	"github.com/Sumatoshi-tech/bloomkit/pkg/version"
)

// NewRootCommand assembles the probfilter root command and its subcommands.
func NewRootCommand() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "probfilter",
		Short: "Build and exercise probabilistic membership filters from the command line",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if verbose {
				inner := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
				slog.SetDefault(slog.New(observability.NewTracingHandler(inner, "probfilter", "", observability.ModeCLI)))
			}
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug-level logging")

	rootCmd.AddCommand(NewPutCommand())
	rootCmd.AddCommand(NewQueryCommand())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cobraCmd.OutOrStdout(), "probfilter %s (commit %s, built %s)\n",
				version.Version, version.Commit, version.Date)
			return err
		},
	}
}
