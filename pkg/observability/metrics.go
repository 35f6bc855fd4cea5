package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/ostree/pkg/ostree"
	"github.com/Sumatoshi-tech/ostree/pkg/safeconv"
)

const (
	metricTreeSize       = "ostree.tree.size"
	metricTreeHeight     = "ostree.tree.height"
	metricArenaSlots     = "ostree.arena.slots"
	metricArenaFreeSlots = "ostree.arena.free_slots"
	metricRotationsTotal = "ostree.rotations"
	metricOpsTotal       = "ostree.ops"
	metricOpDuration     = "ostree.op.duration"

	attrTree = "tree"
	attrOp   = "op"
	attrKind = "kind"

	kindSingle = "single"
	kindDouble = "double"
)

// durationBucketBoundaries covers 1µs to 10s: single lookups up to bulk
// loads of millions of values.
var durationBucketBoundaries = []float64{
	0.000001, 0.00001, 0.0001, 0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10,
}

// TreeSource is the read-only view of a tree that TreeMetrics observes.
// Every *ostree.Tree[T] satisfies it.
type TreeSource interface {
	Len() int
	Height() int
	Stats() ostree.Stats
}

// TreeMetrics holds the OTel instruments describing one tree. Shape gauges
// and rotation counters are observed from the source on every collection;
// operation counts and durations are recorded by the caller.
type TreeMetrics struct {
	registration metric.Registration
	opsTotal     metric.Int64Counter
	opDuration   metric.Float64Histogram
	treeAttr     attribute.KeyValue
}

// NewTreeMetrics creates instruments for src, labelled with name.
func NewTreeMetrics(mt metric.Meter, name string, src TreeSource) (*TreeMetrics, error) {
	size, err := mt.Int64ObservableGauge(metricTreeSize,
		metric.WithDescription("Number of values stored in the tree"),
		metric.WithUnit("{value}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricTreeSize, err)
	}

	height, err := mt.Int64ObservableGauge(metricTreeHeight,
		metric.WithDescription("Height of the tree root"),
		metric.WithUnit("{level}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricTreeHeight, err)
	}

	slots, err := mt.Int64ObservableGauge(metricArenaSlots,
		metric.WithDescription("Live node slots in the tree arena"),
		metric.WithUnit("{slot}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricArenaSlots, err)
	}

	freeSlots, err := mt.Int64ObservableGauge(metricArenaFreeSlots,
		metric.WithDescription("Released node slots waiting for reuse"),
		metric.WithUnit("{slot}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricArenaFreeSlots, err)
	}

	rotations, err := mt.Int64ObservableCounter(metricRotationsTotal,
		metric.WithDescription("Rebalancing steps performed, by kind"),
		metric.WithUnit("{rotation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRotationsTotal, err)
	}

	opsTotal, err := mt.Int64Counter(metricOpsTotal,
		metric.WithDescription("Tree operations performed, by operation"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricOpsTotal, err)
	}

	opDuration, err := mt.Float64Histogram(metricOpDuration,
		metric.WithDescription("Duration of a batch of tree operations in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricOpDuration, err)
	}

	treeAttr := attribute.String(attrTree, name)
	treeOpt := metric.WithAttributes(treeAttr)
	singleOpt := metric.WithAttributes(treeAttr, attribute.String(attrKind, kindSingle))
	doubleOpt := metric.WithAttributes(treeAttr, attribute.String(attrKind, kindDouble))

	registration, err := mt.RegisterCallback(func(_ context.Context, obs metric.Observer) error {
		stats := src.Stats()

		obs.ObserveInt64(size, int64(src.Len()), treeOpt)
		obs.ObserveInt64(height, int64(src.Height()), treeOpt)
		obs.ObserveInt64(slots, int64(stats.Slots), treeOpt)
		obs.ObserveInt64(freeSlots, int64(stats.FreeSlots), treeOpt)
		obs.ObserveInt64(rotations, safeconv.ClampUint64ToInt64(stats.SingleRotations), singleOpt)
		obs.ObserveInt64(rotations, safeconv.ClampUint64ToInt64(stats.DoubleRotations), doubleOpt)

		return nil
	}, size, height, slots, freeSlots, rotations)
	if err != nil {
		return nil, fmt.Errorf("register tree callback: %w", err)
	}

	return &TreeMetrics{
		registration: registration,
		opsTotal:     opsTotal,
		opDuration:   opDuration,
		treeAttr:     treeAttr,
	}, nil
}

// RecordOps records a batch of count operations of kind op that took duration.
func (tm *TreeMetrics) RecordOps(ctx context.Context, op string, count int, duration time.Duration) {
	attrs := metric.WithAttributes(tm.treeAttr, attribute.String(attrOp, op))

	tm.opsTotal.Add(ctx, int64(count), attrs)
	tm.opDuration.Record(ctx, duration.Seconds(), attrs)
}

// Close stops observing the tree.
func (tm *TreeMetrics) Close() error {
	err := tm.registration.Unregister()
	if err != nil {
		return fmt.Errorf("unregister tree callback: %w", err)
	}

	return nil
}
