// Package verify drives an ordered set through a random sequence of
// insertions and removals and compares every answer with a sorted-slice
// oracle.
package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"strconv"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Sumatoshi-tech/ostree/pkg/ostree"
)

var (
	// ErrDivergence is returned by Run when the set and the oracle disagree.
	ErrDivergence = errors.New("set diverged from oracle")

	// ErrInvalidOptions is returned by Run for options that cannot drive a run.
	ErrInvalidOptions = errors.New("invalid verify options")
)

const (
	// probesPerCheckpoint is the number of random rank and neighbour queries
	// compared at each checkpoint.
	probesPerCheckpoint = 64

	// cancelCheckStride bounds how many steps run between context checks
	// when checkpoints are sparse.
	cancelCheckStride = 256
)

// Set is the ordered integer set under test. *ostree.Tree[int] implements it.
type Set interface {
	Add(value int) bool
	Remove(value int) bool
	Contains(value int) bool
	Len() int
	Values() []int
	At(index int) (int, error)
	Rank(value int) int
	Predecessor(value int) (int, bool)
	Successor(value int) (int, bool)
	Validate() error
}

// shapeReporter is implemented by sets that expose balancing statistics.
type shapeReporter interface {
	Height() int
	Stats() ostree.Stats
}

// Options configures a run. Values are drawn from [0, MaxValue), so MaxValue
// must be positive; RemoveRatio must lie in [0, 1]. A CheckEvery below 1
// means every step.
type Options struct {
	Ops         int
	Seed        int64
	MaxValue    int
	RemoveRatio float64
	CheckEvery  int
}

// Divergence describes the first disagreement between set and oracle.
type Divergence struct {
	Step     int    `json:"step"     yaml:"step"`
	Op       string `json:"op"       yaml:"op"`
	Value    int    `json:"value"    yaml:"value"`
	Reason   string `json:"reason"   yaml:"reason"`
	Expected []int  `json:"expected" yaml:"expected"`
	Actual   []int  `json:"actual"   yaml:"actual"`
}

// Diff returns a line diff from the oracle contents to the set contents, one
// value per line.
func (d *Divergence) Diff() []diffmatchpatch.Diff {
	dmp := diffmatchpatch.New()
	src, dst, lines := dmp.DiffLinesToChars(joinLines(d.Expected), joinLines(d.Actual))
	diffs := dmp.DiffMain(src, dst, false)

	return dmp.DiffCharsToLines(diffs, lines)
}

func joinLines(values []int) string {
	var sb strings.Builder

	for _, v := range values {
		sb.WriteString(strconv.Itoa(v))
		sb.WriteByte('\n')
	}

	return sb.String()
}

// Result summarizes a run.
type Result struct {
	Ops         int          `json:"ops"                  yaml:"ops"`
	Adds        int          `json:"adds"                 yaml:"adds"`
	Removes     int          `json:"removes"              yaml:"removes"`
	Checkpoints int          `json:"checkpoints"          yaml:"checkpoints"`
	Len         int          `json:"len"                  yaml:"len"`
	Height      int          `json:"height"               yaml:"height"`
	Stats       ostree.Stats `json:"stats"                yaml:"stats"`
	Divergence  *Divergence  `json:"divergence,omitempty" yaml:"divergence,omitempty"`
}

// Runner executes one randomized differential run.
type Runner struct {
	logger *slog.Logger
	newSet func() Set
	opts   Options
}

// NewRunner creates a runner checking *ostree.Tree[int].
func NewRunner(opts Options, logger *slog.Logger) *Runner {
	return &Runner{
		opts:   opts,
		logger: logger,
		newSet: func() Set { return ostree.NewOrdered[int]() },
	}
}

// WithSet replaces the set under test.
func (r *Runner) WithSet(factory func() Set) *Runner {
	r.newSet = factory

	return r
}

// Run applies the operation sequence. On divergence it returns the partial
// result together with an error wrapping ErrDivergence.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if err := r.opts.validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(r.opts.Seed)) //nolint:gosec // reproducible sequences, not security.
	set := r.newSet()
	orc := &oracle{data: []int{}}
	res := &Result{}

	checkEvery := max(r.opts.CheckEvery, 1)

	for step := 1; step <= r.opts.Ops; step++ {
		op, value := r.nextOp(rng, orc)

		checkpointDue := step%checkEvery == 0 || step == r.opts.Ops

		div := r.apply(set, orc, res, op, value)
		if div == nil && checkpointDue {
			div = r.checkpoint(ctx, rng, set, orc)
			res.Checkpoints++
		}

		if div != nil {
			div.Step, div.Op, div.Value = step, op, value
			res.Divergence = div
			r.finish(res, set)

			r.logger.ErrorContext(ctx, "divergence", "step", step, "op", op, "value", value, "reason", div.Reason)

			return res, fmt.Errorf("%w at step %d: %s", ErrDivergence, step, div.Reason)
		}

		if checkpointDue || step%cancelCheckStride == 0 {
			if err := ctx.Err(); err != nil {
				r.finish(res, set)

				return res, fmt.Errorf("verify interrupted at step %d: %w", step, err)
			}
		}
	}

	r.finish(res, set)
	r.logger.InfoContext(ctx, "verify finished",
		"ops", res.Ops, "adds", res.Adds, "removes", res.Removes,
		"checkpoints", res.Checkpoints, "len", res.Len, "height", res.Height)

	return res, nil
}

func (o Options) validate() error {
	switch {
	case o.Ops < 0:
		return fmt.Errorf("%w: ops %d is negative", ErrInvalidOptions, o.Ops)
	case o.MaxValue <= 0:
		return fmt.Errorf("%w: max value %d must be positive", ErrInvalidOptions, o.MaxValue)
	case o.RemoveRatio < 0 || o.RemoveRatio > 1:
		return fmt.Errorf("%w: remove ratio %g outside [0, 1]", ErrInvalidOptions, o.RemoveRatio)
	}

	return nil
}

const (
	opAdd    = "add"
	opRemove = "remove"
)

// nextOp picks the next mutation. Removals prefer present values so the
// tree does not stay empty for high remove ratios.
func (r *Runner) nextOp(rng *rand.Rand, orc *oracle) (string, int) {
	if rng.Float64() >= r.opts.RemoveRatio {
		return opAdd, rng.Intn(r.opts.MaxValue)
	}

	if len(orc.data) > 0 && rng.Intn(2) == 0 {
		return opRemove, orc.data[rng.Intn(len(orc.data))]
	}

	return opRemove, rng.Intn(r.opts.MaxValue)
}

func (r *Runner) apply(set Set, orc *oracle, res *Result, op string, value int) *Divergence {
	res.Ops++

	var expected, got bool

	switch op {
	case opAdd:
		expected, got = orc.Add(value), set.Add(value)
		if got {
			res.Adds++
		}
	default:
		expected, got = orc.Remove(value), set.Remove(value)
		if got {
			res.Removes++
		}
	}

	switch {
	case expected != got:
		return orc.divergence(set, fmt.Sprintf("%s returned %t, expected %t", op, got, expected))
	case set.Len() != len(orc.data):
		return orc.divergence(set, fmt.Sprintf("len %d, expected %d", set.Len(), len(orc.data)))
	case set.Contains(value) != (op == opAdd):
		return orc.divergence(set, fmt.Sprintf("contains(%d) is %t after %s", value, op != opAdd, op))
	}

	return nil
}

// checkpoint runs the full comparison: invariants, contents, rank and
// neighbour queries.
func (r *Runner) checkpoint(ctx context.Context, rng *rand.Rand, set Set, orc *oracle) *Divergence {
	if err := set.Validate(); err != nil {
		return orc.divergence(set, err.Error())
	}

	if !slices.Equal(set.Values(), orc.data) {
		return orc.divergence(set, "contents differ")
	}

	for range probesPerCheckpoint {
		if div := probe(rng.Intn(r.opts.MaxValue+1)-1, set, orc); div != nil {
			return div
		}

		if len(orc.data) == 0 {
			continue
		}

		idx := rng.Intn(len(orc.data))

		got, err := set.At(idx)
		if err != nil || got != orc.data[idx] {
			return orc.divergence(set, fmt.Sprintf("at(%d) = %d (%v), expected %d", idx, got, err, orc.data[idx]))
		}
	}

	if _, err := set.At(len(orc.data)); !errors.Is(err, ostree.ErrIndexOutOfRange) {
		return orc.divergence(set, fmt.Sprintf("at(%d) past the end returned %v", len(orc.data), err))
	}

	r.logger.DebugContext(ctx, "checkpoint passed", "len", len(orc.data))

	return nil
}

func probe(value int, set Set, orc *oracle) *Divergence {
	if got, expected := set.Rank(value), orc.Rank(value); got != expected {
		return orc.divergence(set, fmt.Sprintf("rank(%d) = %d, expected %d", value, got, expected))
	}

	got, ok := set.Predecessor(value)
	expected, expectedOK := orc.Predecessor(value)

	if ok != expectedOK || got != expected {
		return orc.divergence(set, fmt.Sprintf("predecessor(%d) = %d/%t, expected %d/%t", value, got, ok, expected, expectedOK))
	}

	got, ok = set.Successor(value)
	expected, expectedOK = orc.Successor(value)

	if ok != expectedOK || got != expected {
		return orc.divergence(set, fmt.Sprintf("successor(%d) = %d/%t, expected %d/%t", value, got, ok, expected, expectedOK))
	}

	return nil
}

func (r *Runner) finish(res *Result, set Set) {
	res.Len = set.Len()

	if shape, ok := set.(shapeReporter); ok {
		res.Height = shape.Height()
		res.Stats = shape.Stats()
	}
}
