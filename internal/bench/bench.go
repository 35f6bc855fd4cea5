// Package bench measures the throughput of the order-statistics tree on a
// random workload.
package bench

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/Sumatoshi-tech/ostree/pkg/observability"
	"github.com/Sumatoshi-tech/ostree/pkg/ostree"
)

// Phase names, in execution order.
const (
	PhaseAdd         = "add"
	PhaseContains    = "contains"
	PhaseAt          = "at"
	PhaseRank        = "rank"
	PhasePredecessor = "predecessor"
	PhaseSuccessor   = "successor"
	PhaseIterate     = "iterate"
	PhaseRemove      = "remove"
)

// Recorder receives the measurement of every phase.
// *observability.TreeMetrics implements it.
type Recorder interface {
	RecordOps(ctx context.Context, op string, count int, duration time.Duration)
}

// Options configures a benchmark run.
type Options struct {
	N    int
	Seed int64
}

// Phase is the measurement of one operation kind.
type Phase struct {
	Name      string        `json:"name"           yaml:"name"`
	Ops       int           `json:"ops"            yaml:"ops"`
	Duration  time.Duration `json:"duration_ns"    yaml:"duration"`
	OpsPerSec float64       `json:"ops_per_second" yaml:"ops_per_second"`
}

// Report is the outcome of a run.
type Report struct {
	N       int                    `json:"n"                 yaml:"n"`
	Seed    int64                  `json:"seed"              yaml:"seed"`
	Phases  []Phase                `json:"phases"            yaml:"phases"`
	Height  int                    `json:"height"            yaml:"height"`
	Len     int                    `json:"len"               yaml:"len"`
	Stats   ostree.Stats           `json:"stats"             yaml:"stats"`
	Metrics []observability.Sample `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// Runner executes benchmark phases against one tree.
type Runner struct {
	tree     *ostree.Tree[int]
	recorder Recorder
	logger   *slog.Logger
	opts     Options
}

// NewRunner creates a runner with an empty tree.
func NewRunner(opts Options, logger *slog.Logger) *Runner {
	return &Runner{
		tree:   ostree.NewOrdered[int](),
		logger: logger,
		opts:   opts,
	}
}

// Tree returns the tree under measurement, for metric registration.
func (r *Runner) Tree() *ostree.Tree[int] {
	return r.tree
}

// WithRecorder attaches a recorder that receives every phase.
func (r *Runner) WithRecorder(recorder Recorder) *Runner {
	r.recorder = recorder

	return r
}

// Run inserts a random permutation of [0, N), queries it and removes every
// second value. The tree is left holding the surviving half.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	rng := rand.New(rand.NewSource(r.opts.Seed)) //nolint:gosec // reproducible workload.
	values := rng.Perm(r.opts.N)
	probes := rng.Perm(r.opts.N)
	tree := r.tree

	report := &Report{N: r.opts.N, Seed: r.opts.Seed}

	phases := []struct {
		run  func() (int, error)
		name string
	}{
		{name: PhaseAdd, run: func() (int, error) {
			for _, v := range values {
				tree.Add(v)
			}

			return len(values), nil
		}},
		{name: PhaseContains, run: func() (int, error) {
			for _, v := range probes {
				tree.Contains(v)
			}

			return len(probes), nil
		}},
		{name: PhaseAt, run: func() (int, error) {
			for _, v := range probes {
				if _, err := tree.At(v); err != nil {
					return 0, fmt.Errorf("at %d: %w", v, err)
				}
			}

			return len(probes), nil
		}},
		{name: PhaseRank, run: func() (int, error) {
			for _, v := range probes {
				tree.Rank(v)
			}

			return len(probes), nil
		}},
		{name: PhasePredecessor, run: func() (int, error) {
			for _, v := range probes {
				tree.PredecessorOr(v, -1)
			}

			return len(probes), nil
		}},
		{name: PhaseSuccessor, run: func() (int, error) {
			for _, v := range probes {
				tree.SuccessorOr(v, -1)
			}

			return len(probes), nil
		}},
		{name: PhaseIterate, run: func() (int, error) {
			count := 0
			for range tree.All() {
				count++
			}

			return count, nil
		}},
		{name: PhaseRemove, run: func() (int, error) {
			count := 0

			for idx := 0; idx < len(values); idx += 2 {
				tree.Remove(values[idx])
				count++
			}

			return count, nil
		}},
	}

	for _, phase := range phases {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("bench interrupted before %s: %w", phase.name, err)
		}

		start := time.Now()
		ops, err := phase.run()
		elapsed := time.Since(start)

		if err != nil {
			return report, fmt.Errorf("phase %s: %w", phase.name, err)
		}

		report.Phases = append(report.Phases, Phase{
			Name:      phase.name,
			Ops:       ops,
			Duration:  elapsed,
			OpsPerSec: opsPerSecond(ops, elapsed),
		})

		if r.recorder != nil {
			r.recorder.RecordOps(ctx, phase.name, ops, elapsed)
		}

		r.logger.DebugContext(ctx, "phase done", "phase", phase.name, "ops", ops, "elapsed", elapsed)
	}

	report.Height = tree.Height()
	report.Len = tree.Len()
	report.Stats = tree.Stats()

	return report, nil
}

func opsPerSecond(ops int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}

	return float64(ops) / elapsed.Seconds()
}
