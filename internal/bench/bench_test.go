package bench_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/ostree/internal/bench"
	"github.com/Sumatoshi-tech/ostree/pkg/observability"
)

const (
	testN    = 1000
	testSeed = 3
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordedPhase struct {
	op    string
	count int
}

type fakeRecorder struct {
	phases []recordedPhase
}

func (f *fakeRecorder) RecordOps(_ context.Context, op string, count int, _ time.Duration) {
	f.phases = append(f.phases, recordedPhase{op: op, count: count})
}

// TestRun_Phases verifies the phase sequence and the final tree shape.
func TestRun_Phases(t *testing.T) {
	t.Parallel()

	recorder := &fakeRecorder{}
	runner := bench.NewRunner(bench.Options{N: testN, Seed: testSeed}, discardLogger()).WithRecorder(recorder)

	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	names := make([]string, 0, len(report.Phases))
	for _, phase := range report.Phases {
		names = append(names, phase.Name)

		assert.Positive(t, phase.Ops, phase.Name)
		assert.GreaterOrEqual(t, phase.OpsPerSec, 0.0, phase.Name)
	}

	assert.Equal(t, []string{
		bench.PhaseAdd, bench.PhaseContains, bench.PhaseAt, bench.PhaseRank,
		bench.PhasePredecessor, bench.PhaseSuccessor, bench.PhaseIterate, bench.PhaseRemove,
	}, names)

	assert.Equal(t, testN, report.N)
	assert.Equal(t, testN/2, report.Len)
	assert.Equal(t, testN, report.Phases[6].Ops)
	assert.Equal(t, testN/2, report.Phases[7].Ops)
	assert.LessOrEqual(t, report.Height, 14)
	assert.Equal(t, report.Len, report.Stats.Slots)
	assert.Equal(t, testN/2, report.Stats.FreeSlots)

	require.Len(t, recorder.phases, len(names))
	assert.Equal(t, recordedPhase{op: bench.PhaseAdd, count: testN}, recorder.phases[0])

	require.NoError(t, runner.Tree().Validate())
}

// TestRun_Cancelled verifies that a cancelled context stops before any phase.
func TestRun_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := bench.NewRunner(bench.Options{N: testN, Seed: testSeed}, discardLogger()).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Phases)
}

// TestRun_TreeMetrics verifies the run feeds the Prometheus registry.
func TestRun_TreeMetrics(t *testing.T) {
	t.Parallel()

	mp, registry, err := observability.NewPrometheusMeterProvider(nil)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, mp.Shutdown(context.Background())) })

	runner := bench.NewRunner(bench.Options{N: testN, Seed: testSeed}, discardLogger())

	tm, err := observability.NewTreeMetrics(mp.Meter("bench"), "bench", runner.Tree())
	require.NoError(t, err)

	_, err = runner.WithRecorder(tm).Run(context.Background())
	require.NoError(t, err)

	samples, err := observability.Gather(registry, "ostree_")
	require.NoError(t, err)

	opsByPhase := make(map[string]float64)

	for _, s := range samples {
		if s.Labels["tree"] == "bench" && strings.HasPrefix(s.Name, "ostree_ops") {
			opsByPhase[s.Labels["op"]] = s.Value
		}
	}

	assert.InDelta(t, testN, opsByPhase[bench.PhaseAdd], 0)
	assert.InDelta(t, testN/2, opsByPhase[bench.PhaseRemove], 0)
}
