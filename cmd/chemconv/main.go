// Command chemconv converts and filters molecule files.
//
//	chemconv [flags] -o OUTPUT INPUT...
//	chemconv -merge [-unique] -o OUTPUT TABLE.sst...
//
// Input formats are resolved by name (-in-format), extension or content;
// the output format by name (-out-format) or extension. Files ending in .gz
// or .lz4 are compressed transparently. Input directories stand for the
// files they contain that match -pattern.
//
// With -merge the inputs are sorted molecule tables, written to the output
// in key order.
//
// Exit codes: 0 success, 1 failure, 2 cancelled by a signal.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/davidvella/chemio"
	"github.com/davidvella/chemio/cancellation"
	"github.com/davidvella/chemio/chem"
	"github.com/davidvella/chemio/config"
	"github.com/davidvella/chemio/console"
	chemerrors "github.com/davidvella/chemio/errors"
	"github.com/davidvella/chemio/format"
	"github.com/davidvella/chemio/registry"
	"github.com/davidvella/chemio/scanner"
	"github.com/davidvella/chemio/storage/local"
	"github.com/davidvella/chemio/storage/pebble"
)

func main() {
	cancel := cancellation.Default()
	stop := cancellation.Notify(cancel)

	code := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, cancel)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, cancel *cancellation.Flag) int {
	cfg, cli, err := parseArgs(args, stderr)
	if errors.Is(err, errHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "chemconv: %v\n", err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	con := console.NewLogConsole(logger, cfg.Level())
	con.SetProgressInterval(cfg.ProgressInterval)

	reg := registry.New[chem.Molecule]()
	chem.Register(reg, chem.WithDatabaseOptions(pebble.StorageOptions{
		BatchSize:    cfg.Database.BatchSize,
		CacheSize:    cfg.Database.CacheSize,
		MaxOpenFiles: cfg.Database.MaxOpenFiles,
	}))

	promReg := prometheus.NewRegistry()
	metrics, err := scanner.NewMetrics(promReg)
	if err != nil {
		fmt.Fprintf(stderr, "chemconv: %v\n", err)
		return 1
	}

	inputs, err := expandInputs(ctx, reg, cli.inputs, cli.pattern)
	if err != nil {
		fmt.Fprintf(stderr, "chemconv: %v\n", err)
		return 1
	}

	if cli.merge {
		return runMerge(ctx, reg, inputs, cfg, cli, stdout, stderr, cancel)
	}

	res := chemio.Process(ctx, reg, inputs, cli.output, newHandler(cli),
		chemio.WithWorkers(cfg.Workers),
		chemio.WithStrict(cfg.Strict),
		chemio.WithOrderedOutput(cfg.Ordered),
		chemio.WithInputFormat(cfg.InputFormat),
		chemio.WithOutputFormat(cfg.OutputFormat),
		chemio.WithLabel("chemconv"),
		chemio.WithProgressQuantum(cfg.ProgressQuantum),
		chemio.WithConsole(con),
		chemio.WithCancellation(cancel),
		chemio.WithMetrics(metrics),
	)

	if cfg.Metrics.Textfile != "" {
		if err := prometheus.WriteToTextfile(cfg.Metrics.Textfile, promReg); err != nil {
			logger.Error("writing metrics failed", "path", cfg.Metrics.Textfile, "error", err)
		}
	}

	if !res.Success() {
		fmt.Fprintf(stderr, "chemconv: %s: %v\n", res.Status, res.Err)
		return res.ExitCode()
	}
	fmt.Fprintf(stdout, "%d records processed, %d failed\n", res.Processed, res.Failed)
	return 0
}

func newHandler(cli parsedCLI) chemio.Handler[chem.Molecule] {
	if !cli.named {
		return chemio.Keep[chem.Molecule]()
	}
	return chemio.HandlerFunc[chem.Molecule](func(_ context.Context, _ int64, m *chem.Molecule) (bool, error) {
		return m.Name != "", nil
	})
}

func runMerge(
	ctx context.Context,
	reg *registry.Registry[chem.Molecule],
	inputs []string,
	cfg *config.Config,
	cli parsedCLI,
	stdout, stderr io.Writer,
	cancel *cancellation.Flag,
) int {
	n, err := mergeTables(ctx, reg, inputs, cli.output, cfg.OutputFormat, cli.unique, cancel)
	switch {
	case err == nil:
	case chemerrors.IsDecode(err) && !cfg.Strict:
		fmt.Fprintf(stderr, "chemconv: skipped undecodable records: %v\n", err)
	case chemerrors.IsCancelled(err):
		fmt.Fprintf(stderr, "chemconv: cancelled: %v\n", err)
		return 2
	default:
		fmt.Fprintf(stderr, "chemconv: failed: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "%d records merged\n", n)
	return 0
}

// expandInputs replaces directories by the files they contain that match
// pattern. Directories named like a registered format, such as databases,
// are inputs themselves.
func expandInputs(ctx context.Context, reg *registry.Registry[chem.Molecule], args []string, pattern string) ([]string, error) {
	var inputs []string
	for _, arg := range args {
		fi, err := os.Stat(arg)
		if err != nil || !fi.IsDir() {
			inputs = append(inputs, arg)
			continue
		}
		if _, ok := reg.InputHandlerByFileExtension(format.Ext(arg)); ok {
			inputs = append(inputs, arg)
			continue
		}
		files, err := local.NewLocalStorage(arg).List(ctx, pattern)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", arg, err)
		}
		inputs = append(inputs, files...)
	}
	if len(inputs) == 0 {
		return nil, errors.New("no input files")
	}
	return inputs, nil
}
