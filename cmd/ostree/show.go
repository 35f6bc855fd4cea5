package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/ostree/pkg/observability"
	"github.com/Sumatoshi-tech/ostree/pkg/ostree"
)

// errInvalidValue is returned for an argument that is not an integer.
var errInvalidValue = errors.New("invalid value")

func showCmd() *cobra.Command {
	var remove []int

	cmd := &cobra.Command{
		Use:   "show [values...]",
		Short: "Render a tree built from integer arguments",
		Long: `Insert the integer arguments in order, remove the values given with
--remove, then print the tree drawing, the sorted sequence and a rank table.

Examples:
  ostree show 5 3 8 1 4 7 9
  ostree show 1 2 3 4 5 6 7 --remove 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, args, remove)
		},
	}

	cmd.Flags().IntSliceVar(&remove, "remove", nil, "values to remove after insertion")

	return cmd
}

func runShow(cmd *cobra.Command, args []string, remove []int) error {
	values, err := parseValues(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	providers, err := initObservability(cmd, cfg, observability.ModeShow)
	if err != nil {
		return err
	}

	defer func() { _ = providers.Shutdown(context.WithoutCancel(cmd.Context())) }()

	tree := ostree.NewOrdered[int]()
	added := 0

	for _, v := range values {
		if tree.Add(v) {
			added++
		}
	}

	removed := 0

	for _, v := range remove {
		if tree.Remove(v) {
			removed++
		}
	}

	providers.Logger.DebugContext(cmd.Context(), "tree built",
		"args", len(values), "added", added, "removed", removed, "len", tree.Len())

	if err := tree.Validate(); err != nil {
		return fmt.Errorf("show: %w", err)
	}

	renderShow(cmd.OutOrStdout(), tree)

	return nil
}

func parseValues(args []string) ([]int, error) {
	values := make([]int, 0, len(args))

	for _, arg := range args {
		v, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", errInvalidValue, arg)
		}

		values = append(values, v)
	}

	return values, nil
}
