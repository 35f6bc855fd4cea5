package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/ostree/internal/verify"
	"github.com/Sumatoshi-tech/ostree/pkg/config"
	"github.com/Sumatoshi-tech/ostree/pkg/observability"
)

func verifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the tree against a sorted-slice oracle",
		Long: `Apply a random sequence of Add and Remove operations to the tree and to a
sorted-slice oracle, comparing every result. At each checkpoint the tree
invariants are validated and rank and neighbour queries are compared.

Exits with status 2 when the tree diverges from the oracle.

Examples:
  ostree verify
  ostree verify --ops 1000000 --seed 42 --max-value 5000
  ostree verify --check-every 1 --ops 20000`,
		Args: cobra.NoArgs,
		RunE: runVerify,
	}

	flags := cmd.Flags()
	flags.Int("ops", config.DefaultVerifyOps, "number of Add/Remove operations")
	flags.Int64("seed", config.DefaultVerifySeed, "random seed")
	flags.Int("max-value", config.DefaultVerifyMaxValue, "values are drawn from [0, max-value)")
	flags.Float64("remove-ratio", config.DefaultVerifyRemoveRatio, "share of operations that are removals")
	flags.Int("check-every", config.DefaultVerifyCheckEvery, "operations between full checkpoints")

	return cmd
}

func runVerify(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd,
		keyedFlag{flag: "ops", key: "verify.ops"},
		keyedFlag{flag: "seed", key: "verify.seed"},
		keyedFlag{flag: "max-value", key: "verify.max_value"},
		keyedFlag{flag: "remove-ratio", key: "verify.remove_ratio"},
		keyedFlag{flag: "check-every", key: "verify.check_every"},
	)
	if err != nil {
		return err
	}

	providers, err := initObservability(cmd, cfg, observability.ModeVerify)
	if err != nil {
		return err
	}

	defer func() { _ = providers.Shutdown(context.WithoutCancel(cmd.Context())) }()

	opts := verify.Options{
		Ops:         cfg.Verify.Ops,
		Seed:        cfg.Verify.Seed,
		MaxValue:    cfg.Verify.MaxValue,
		RemoveRatio: cfg.Verify.RemoveRatio,
		CheckEvery:  cfg.Verify.CheckEvery,
	}

	ctx, span := providers.Tracer.Start(cmd.Context(), "verify")
	defer span.End()

	ctx = observability.WithRunAttrs(ctx, slog.String("tree", "verify"), slog.Int64("seed", opts.Seed))

	providers.Logger.InfoContext(ctx, "verify started",
		"ops", opts.Ops, "max_value", opts.MaxValue,
		"remove_ratio", opts.RemoveRatio, "check_every", opts.CheckEvery)

	res, runErr := verify.NewRunner(opts, providers.Logger).Run(ctx)

	out := cmd.OutOrStdout()

	switch {
	case errors.Is(runErr, verify.ErrDivergence):
		renderDivergence(out, res.Divergence)
		renderVerifySummary(out, res)

		return runErr
	case runErr != nil:
		return fmt.Errorf("verify: %w", runErr)
	}

	renderVerifyPass(out, res)
	renderVerifySummary(out, res)

	return nil
}
