package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidvella/chemio/cancellation"
)

const smiles = `# solvents
CCO ethanol
C
c1ccccc1 benzene
`

func writeInput(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "in.smi")
	require.NoError(t, os.WriteFile(path, []byte(smiles), 0o644))
	return path
}

func runCLI(t *testing.T, ctx context.Context, args ...string) (int, string, string) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	code := run(ctx, args, &stdout, &stderr, cancellation.New())
	return code, stdout.String(), stderr.String()
}

func TestRunConvert(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir)
	out := filepath.Join(dir, "out.jsonl")

	code, stdout, stderr := runCLI(t, context.Background(), "-ordered", "-o", out, in)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "3 records processed, 0 failed\n", stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"ethanol","smiles":"CCO"}
{"smiles":"C"}
{"name":"benzene","smiles":"c1ccccc1"}
`, string(data))
}

func TestRunNamedFilter(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir)
	out := filepath.Join(dir, "out.smi")

	code, _, stderr := runCLI(t, context.Background(), "-named", "-ordered", "-workers", "2", "-o", out, in)
	require.Equal(t, 0, code, stderr)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "CCO ethanol\nc1ccccc1 benzene\n", string(data))
}

func TestRunConfigFile(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir)
	out := filepath.Join(dir, "out.dat")
	metrics := filepath.Join(dir, "chemconv.prom")

	cfg := filepath.Join(dir, "chemconv.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
workers: 0
ordered: true
output_format: jsonl
log_level: quiet
metrics:
  textfile: `+metrics+`
`), 0o644))

	code, _, stderr := runCLI(t, context.Background(), "-config", cfg, "-o", out, in)
	require.Equal(t, 0, code, stderr)
	assert.Empty(t, stderr)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(data), "\n"))

	prom, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "chemio_records_total")
}

func TestRunFlagOverridesConfig(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir)
	out := filepath.Join(dir, "out.dat")

	cfg := filepath.Join(dir, "chemconv.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("output_format: jsonl\n"), 0o644))

	code, _, stderr := runCLI(t, context.Background(), "-config", cfg, "-out-format", "smiles", "-ordered", "-o", out, in)
	require.Equal(t, 0, code, stderr)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "CCO ethanol\n"))
}

func TestRunFailures(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir)

	tests := []struct {
		name string
		args []string
		code int
	}{
		{name: "help", args: []string{"-h"}, code: 0},
		{name: "no inputs", args: []string{"-o", filepath.Join(dir, "x.smi")}, code: 1},
		{name: "unknown flag", args: []string{"-bogus", in}, code: 1},
		{name: "bad log level", args: []string{"-log-level", "loud", in}, code: 1},
		{name: "missing config", args: []string{"-config", filepath.Join(dir, "none.yaml"), in}, code: 1},
		{name: "missing input", args: []string{filepath.Join(dir, "none.smi")}, code: 1},
		{name: "unknown output", args: []string{"-o", filepath.Join(dir, "out.xyz"), in}, code: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := runCLI(t, context.Background(), tt.args...)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestRunCancelled(t *testing.T) {
	in := writeInput(t, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	code, _, stderr := runCLI(t, ctx, in)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "cancelled")
}

func TestRunDirectoryInput(t *testing.T) {
	dir := t.TempDir()
	inDir := filepath.Join(dir, "in")
	require.NoError(t, os.Mkdir(inDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(inDir, "a.smi"), []byte("CCO ethanol\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(inDir, "b.smi"), []byte("C methane\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(inDir, "notes.txt"), []byte("not a molecule\n"), 0o644))
	out := filepath.Join(dir, "out.smi")

	code, stdout, stderr := runCLI(t, context.Background(), "-pattern", "*.smi", "-ordered", "-o", out, inDir)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "2 records processed, 0 failed\n", stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "CCO ethanol\nC methane\n", string(data))
}

func TestRunMerge(t *testing.T) {
	dir := t.TempDir()

	a := filepath.Join(dir, "a.smi")
	b := filepath.Join(dir, "b.smi")
	require.NoError(t, os.WriteFile(a, []byte("CCO ethanol\nc1ccccc1 benzene\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("C methane\nOCC ethanol\n"), 0o644))

	tables := []string{filepath.Join(dir, "a.sst"), filepath.Join(dir, "b.sst.gz")}
	for i, in := range []string{a, b} {
		code, _, stderr := runCLI(t, context.Background(), "-o", tables[i], in)
		require.Equal(t, 0, code, stderr)
	}

	out := filepath.Join(dir, "merged.smi")
	code, stdout, stderr := runCLI(t, context.Background(), "-merge", "-o", out, tables[0], tables[1])
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "4 records merged\n", stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "c1ccccc1 benzene\nCCO ethanol\nOCC ethanol\nC methane\n", string(data))

	code, stdout, stderr = runCLI(t, context.Background(), "-merge", "-unique", "-o", out, tables[0], tables[1])
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "3 records merged\n", stdout)

	code, _, _ = runCLI(t, context.Background(), "-merge", tables[0])
	assert.Equal(t, 1, code)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	code, _, _ = runCLI(t, ctx, "-merge", "-o", out, tables[0])
	assert.Equal(t, 2, code)
}
