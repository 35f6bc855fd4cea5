package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/ostree/internal/bench"
	"github.com/Sumatoshi-tech/ostree/pkg/config"
)

// runCLI executes the root command and returns stdout, stderr and the error.
func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	rootCmd := newRootCmd()

	var outBuf, errBuf bytes.Buffer

	rootCmd.SetOut(&outBuf)
	rootCmd.SetErr(&errBuf)
	rootCmd.SetArgs(args)

	err = rootCmd.Execute()

	return outBuf.String(), errBuf.String(), err
}

func TestCLI_HelpAndSubcommands(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantOut string
		args    []string
		wantErr bool
	}{
		{wantOut: "AVL-balanced order-statistics tree", args: []string{"--help"}},
		{wantOut: "sorted-slice oracle", args: []string{"verify", "--help"}},
		{wantOut: "per-phase throughput", args: []string{"bench", "--help"}},
		{wantOut: "rank table", args: []string{"show", "--help"}},
		{wantOut: "ostree dev", args: []string{"version"}},
		{args: []string{"unknown"}, wantErr: true},
	}

	for _, tc := range tests {
		out, _, err := runCLI(t, tc.args...)

		if tc.wantErr {
			require.Error(t, err, "args %v", tc.args)

			continue
		}

		require.NoError(t, err, "args %v", tc.args)
		assert.Contains(t, out, tc.wantOut, "args %v", tc.args)
	}
}

func TestCLI_Show(t *testing.T) {
	t.Parallel()

	out, _, err := runCLI(t, "show", "5", "3", "8", "1", "4", "7", "9")
	require.NoError(t, err)

	assert.Contains(t, out, "┌──5 h=3 n=7")
	assert.Contains(t, out, "Values: [1 3 4 5 7 8 9]")
	assert.Contains(t, out, "Len: 7  Height: 3  Min: 1  Max: 9")
	assert.Contains(t, out, "Predecessor")
}

func TestCLI_ShowRemove(t *testing.T) {
	t.Parallel()

	out, _, err := runCLI(t, "show", "5", "3", "8", "1", "4", "7", "9", "--remove", "5,8")
	require.NoError(t, err)
	assert.Contains(t, out, "Values: [1 3 4 7 9]")
}

func TestCLI_ShowEmpty(t *testing.T) {
	t.Parallel()

	out, _, err := runCLI(t, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "empty")
	assert.Contains(t, out, "Values: []")
}

func TestCLI_ShowInvalidValue(t *testing.T) {
	t.Parallel()

	_, _, err := runCLI(t, "show", "1", "two")
	require.ErrorIs(t, err, errInvalidValue)
}

func TestCLI_VerifyPass(t *testing.T) {
	t.Parallel()

	out, _, err := runCLI(t, "verify", "--ops", "2000", "--max-value", "200", "--check-every", "50")
	require.NoError(t, err)

	assert.Contains(t, out, "PASS: 2,000 operations, 40 checkpoints")
	assert.Contains(t, out, "Double rotations")
}

func TestCLI_VerifyLogsJSON(t *testing.T) {
	t.Parallel()

	_, logs, err := runCLI(t, "verify", "--ops", "100", "--log-format", "json")
	require.NoError(t, err)

	var record map[string]any

	first, _, _ := bytes.Cut([]byte(logs), []byte("\n"))
	require.NoError(t, json.Unmarshal(first, &record))

	assert.Equal(t, "verify started", record["msg"])
	assert.Equal(t, "verify", record["mode"])
	assert.Equal(t, "verify", record["tree"])
	assert.InDelta(t, 1, record["seed"], 0)
	assert.NotEmpty(t, record["trace_id"])
}

func TestCLI_VerifyInvalidFlag(t *testing.T) {
	t.Parallel()

	_, _, err := runCLI(t, "verify", "--remove-ratio", "2")
	require.ErrorIs(t, err, config.ErrInvalidRemoveRatio)
}

func TestCLI_VerifyConfigFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ostree.yaml")
	require.NoError(t, os.WriteFile(path, []byte("verify:\n  ops: 300\n  check_every: 100\n"), 0o600))

	out, _, err := runCLI(t, "verify", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "PASS: 300 operations, 3 checkpoints")

	// Flags win over the file.
	out, _, err = runCLI(t, "verify", "--config", path, "--ops", "200")
	require.NoError(t, err)
	assert.Contains(t, out, "PASS: 200 operations, 2 checkpoints")
}

func TestCLI_BenchTable(t *testing.T) {
	t.Parallel()

	out, _, err := runCLI(t, "bench", "--n", "2000")
	require.NoError(t, err)

	assert.Contains(t, out, "Benchmark: 2,000 values")
	assert.Contains(t, out, "Ops/sec")
	assert.Contains(t, out, "Arena slots")
	assert.Contains(t, out, "ostree_tree_size")
}

func TestCLI_BenchYAML(t *testing.T) {
	t.Parallel()

	out, _, err := runCLI(t, "bench", "--n", "2000", "--format", "yaml")
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))

	assert.Equal(t, 2000, report["n"])
	assert.Equal(t, 1000, report["len"])

	phases, ok := report["phases"].([]any)
	require.True(t, ok)
	assert.Len(t, phases, 8)
	assert.NotEmpty(t, report["metrics"])
}

func TestCLI_BenchJSON(t *testing.T) {
	t.Parallel()

	out, _, err := runCLI(t, "bench", "--n", "2000", "--format", "json", "--seed", "9")
	require.NoError(t, err)

	var report bench.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))

	assert.Equal(t, int64(9), report.Seed)
	assert.Equal(t, 1000, report.Len)
	assert.Equal(t, 1000, report.Stats.FreeSlots)
	assert.Len(t, report.Phases, 8)
}

func TestCLI_BenchInvalidFormat(t *testing.T) {
	t.Parallel()

	_, _, err := runCLI(t, "bench", "--format", "csv")
	require.ErrorIs(t, err, config.ErrInvalidFormat)
}
