package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/ostree/internal/bench"
	"github.com/Sumatoshi-tech/ostree/pkg/config"
	"github.com/Sumatoshi-tech/ostree/pkg/observability"
)

const (
	// metricPrefix selects the tree series from the Prometheus registry.
	metricPrefix = "ostree_"

	// benchTreeName labels the benchmarked tree in logs and metrics.
	benchTreeName = "bench"
)

func benchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure tree throughput on a random workload",
		Long: `Insert a random permutation of N values, run rank, neighbour and
membership queries over all of them, iterate the tree and remove half of the
values. Reports per-phase throughput, the final shape and the metrics
collected through the Prometheus registry.

Examples:
  ostree bench
  ostree bench --n 5000000 --format yaml`,
		Args: cobra.NoArgs,
		RunE: runBench,
	}

	flags := cmd.Flags()
	flags.Int("n", config.DefaultBenchSize, "number of values")
	flags.Int64("seed", config.DefaultBenchSeed, "random seed")
	flags.String("format", config.DefaultBenchFormat, "output format: table, yaml, json")

	return cmd
}

func runBench(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd,
		keyedFlag{flag: "n", key: "bench.n"},
		keyedFlag{flag: "seed", key: "bench.seed"},
		keyedFlag{flag: "format", key: "bench.format"},
	)
	if err != nil {
		return err
	}

	providers, err := initObservability(cmd, cfg, observability.ModeBench)
	if err != nil {
		return err
	}

	defer func() { _ = providers.Shutdown(context.WithoutCancel(cmd.Context())) }()

	ctx, span := providers.Tracer.Start(cmd.Context(), "bench")
	defer span.End()

	ctx = observability.WithRunAttrs(ctx, slog.String("tree", benchTreeName), slog.Int64("seed", cfg.Bench.Seed))

	runner := bench.NewRunner(bench.Options{N: cfg.Bench.N, Seed: cfg.Bench.Seed}, providers.Logger)

	treeMetrics, err := observability.NewTreeMetrics(providers.Meter, benchTreeName, runner.Tree())
	if err != nil {
		return fmt.Errorf("create tree metrics: %w", err)
	}

	defer func() { _ = treeMetrics.Close() }()

	providers.Logger.InfoContext(ctx, "bench started", "n", cfg.Bench.N)

	report, err := runner.WithRecorder(treeMetrics).Run(ctx)
	if err != nil {
		return fmt.Errorf("bench: %w", err)
	}

	report.Metrics, err = observability.Gather(providers.Registry, metricPrefix)
	if err != nil {
		return err
	}

	providers.Logger.InfoContext(ctx, "bench finished", "height", report.Height, "len", report.Len)

	return writeBenchReport(cmd.OutOrStdout(), report, cfg.Bench.Format)
}

func writeBenchReport(w io.Writer, report *bench.Report, format string) error {
	switch format {
	case config.FormatYAML:
		return marshalAndWrite(report, yaml.Marshal, w, "yaml")
	case config.FormatJSON:
		return marshalAndWrite(report, func(v any) ([]byte, error) {
			data, err := json.MarshalIndent(v, "", "  ")

			return append(data, '\n'), err
		}, w, "json")
	default:
		renderBenchTable(w, report)

		return nil
	}
}

// marshalAndWrite marshals data and writes the result to writer.
func marshalAndWrite(data any, marshal func(any) ([]byte, error), writer io.Writer, label string) error {
	encoded, err := marshal(data)
	if err != nil {
		return fmt.Errorf("%s encode: %w", label, err)
	}

	_, writeErr := writer.Write(encoded)
	if writeErr != nil {
		return fmt.Errorf("%s write: %w", label, writeErr)
	}

	return nil
}
