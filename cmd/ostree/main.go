// Package main provides the entry point for the ostree CLI tool.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/ostree/internal/verify"
	"github.com/Sumatoshi-tech/ostree/pkg/version"
)

// exitCodeValidationFailure is the exit code when verify finds a divergence.
const exitCodeValidationFailure = 2

func main() {
	version.InitBinaryVersion()

	err := newRootCmd().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		if errors.Is(err, verify.ErrDivergence) {
			os.Exit(exitCodeValidationFailure)
		}

		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var noColor bool

	rootCmd := &cobra.Command{
		Use:   "ostree",
		Short: "ostree - AVL order-statistics tree toolkit",
		Long: `ostree exercises an AVL-balanced order-statistics tree.

Commands:
  verify    Randomized differential check against a sorted-slice oracle
  bench     Throughput and shape report
  show      Render a tree built from integer arguments`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if noColor {
				color.NoColor = true //nolint:reassign // intentional override of library global
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String(flagConfig, "", "path to a YAML config file (default: ./ostree.yaml)")
	flags.String(flagLogLevel, "info", "log level: debug, info, warn, error")
	flags.String(flagLogFormat, "text", "log format: text, json")
	flags.String(flagOTLP, "", "OTLP gRPC collector address for spans and metrics (e.g. localhost:4317)")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(verifyCmd())
	rootCmd.AddCommand(benchCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
