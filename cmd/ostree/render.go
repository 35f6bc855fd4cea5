package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Sumatoshi-tech/ostree/internal/bench"
	"github.com/Sumatoshi-tech/ostree/internal/verify"
	"github.com/Sumatoshi-tech/ostree/pkg/ostree"
)

// noNeighbour is printed for a missing predecessor or successor.
const noNeighbour = "-"

func newTable(w io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false

	return tbl
}

func renderVerifyPass(w io.Writer, res *verify.Result) {
	color.New(color.FgGreen).Fprintf(w, "PASS: %s operations, %s checkpoints\n",
		humanize.Comma(int64(res.Ops)), humanize.Comma(int64(res.Checkpoints)))
}

func renderDivergence(w io.Writer, div *verify.Divergence) {
	color.New(color.FgRed).Fprintf(w, "FAIL at step %s: %s %d\n", humanize.Comma(int64(div.Step)), div.Op, div.Value)
	color.New(color.FgYellow).Fprintf(w, "  %s\n", div.Reason)

	fmt.Fprintf(w, "\nContents (- oracle only, + tree only):\n")

	matching := 0

	for _, d := range div.Diff() {
		lines := strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n")

		switch d.Type {
		case diffmatchpatch.DiffDelete:
			for _, line := range lines {
				color.New(color.FgRed).Fprintf(w, "  - %s\n", line)
			}
		case diffmatchpatch.DiffInsert:
			for _, line := range lines {
				color.New(color.FgGreen).Fprintf(w, "  + %s\n", line)
			}
		case diffmatchpatch.DiffEqual:
			matching += len(lines)
		}
	}

	fmt.Fprintf(w, "  (%s matching values)\n\n", humanize.Comma(int64(matching)))
}

func renderVerifySummary(w io.Writer, res *verify.Result) {
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"Metric", "Value"})
	tbl.AppendRows([]table.Row{
		{"Operations", humanize.Comma(int64(res.Ops))},
		{"Inserted", humanize.Comma(int64(res.Adds))},
		{"Removed", humanize.Comma(int64(res.Removes))},
		{"Values", humanize.Comma(int64(res.Len))},
		{"Height", res.Height},
		{"Single rotations", humanize.Comma(int64(res.Stats.SingleRotations))},
		{"Double rotations", humanize.Comma(int64(res.Stats.DoubleRotations))},
	})
	tbl.Render()
}

func renderBenchTable(w io.Writer, report *bench.Report) {
	fmt.Fprintf(w, "Benchmark: %s values, seed %d\n", humanize.Comma(int64(report.N)), report.Seed)

	phases := newTable(w)
	phases.AppendHeader(table.Row{"Phase", "Ops", "Time", "Ops/sec"})

	for _, phase := range report.Phases {
		phases.AppendRow(table.Row{
			phase.Name,
			humanize.Comma(int64(phase.Ops)),
			phase.Duration.Round(time.Microsecond).String(),
			humanize.CommafWithDigits(phase.OpsPerSec, 0),
		})
	}

	phases.Render()

	shape := newTable(w)
	shape.AppendHeader(table.Row{"Shape", "Value"})
	shape.AppendRows([]table.Row{
		{"Values", humanize.Comma(int64(report.Len))},
		{"Height", report.Height},
		{"Single rotations", humanize.Comma(int64(report.Stats.SingleRotations))},
		{"Double rotations", humanize.Comma(int64(report.Stats.DoubleRotations))},
		{"Arena slots", humanize.Comma(int64(report.Stats.Slots))},
		{"Free slots", humanize.Comma(int64(report.Stats.FreeSlots))},
	})
	shape.Render()

	if len(report.Metrics) == 0 {
		return
	}

	metrics := newTable(w)
	metrics.AppendHeader(table.Row{"Metric", "Labels", "Value"})

	for _, sample := range report.Metrics {
		metrics.AppendRow(table.Row{sample.Name, sample.LabelString(), strconv.FormatFloat(sample.Value, 'g', -1, 64)})
	}

	metrics.AppendFooter(table.Row{fmt.Sprintf("Total: %d series", len(report.Metrics))})
	metrics.Render()
}

func renderShow(w io.Writer, tree *ostree.Tree[int]) {
	fmt.Fprintln(w, tree.PrettyPrint())
	fmt.Fprintf(w, "Values: %v\n", tree.Values())

	if tree.Len() == 0 {
		return
	}

	minValue, _ := tree.Min()
	maxValue, _ := tree.Max()
	fmt.Fprintf(w, "Len: %d  Height: %d  Min: %d  Max: %d\n", tree.Len(), tree.Height(), minValue, maxValue)

	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"Index", "Value", "Rank", "Predecessor", "Successor"})

	for idx, v := range tree.Enumerate() {
		tbl.AppendRow(table.Row{idx, v, tree.Rank(v), neighbour(tree.Predecessor(v)), neighbour(tree.Successor(v))})
	}

	tbl.Render()
}

func neighbour(value int, ok bool) string {
	if !ok {
		return noNeighbour
	}

	return strconv.Itoa(value)
}
