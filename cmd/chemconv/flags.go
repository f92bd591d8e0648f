package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/davidvella/chemio/config"
)

var errHelp = errors.New("help requested")

type parsedCLI struct {
	inputs  []string
	output  string
	pattern string
	named   bool
	merge   bool
	unique  bool
}

// parseArgs loads the configuration and applies the command line on top of
// it. Only flags given explicitly override configured values.
func parseArgs(args []string, stderr io.Writer) (*config.Config, parsedCLI, error) {
	var (
		cli        parsedCLI
		configPath string
		defaults   = config.Default()

		fs           = flag.NewFlagSet("chemconv", flag.ContinueOnError)
		workers      = fs.Int("workers", defaults.Workers, "number of worker goroutines (0 = single threaded)")
		strict       = fs.Bool("strict", false, "fail on undecodable input records")
		ordered      = fs.Bool("ordered", false, "keep output records in input order")
		inputFormat  = fs.String("in-format", "", "input format name")
		outputFormat = fs.String("out-format", "", "output format name")
		logLevel     = fs.String("log-level", defaults.LogLevel, "quiet, error, info, verbose or debug")
	)
	fs.SetOutput(stderr)
	fs.StringVar(&configPath, "config", "", "YAML configuration file")
	fs.StringVar(&cli.output, "o", "", "output file (empty to only validate the inputs)")
	fs.BoolVar(&cli.named, "named", false, "drop molecules without a name")
	fs.StringVar(&cli.pattern, "pattern", "", "file name pattern selecting the files of input directories")
	fs.BoolVar(&cli.merge, "merge", false, "merge sorted tables (.sst) into the output in key order")
	fs.BoolVar(&cli.unique, "unique", false, "with -merge, keep only the first molecule of every key")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: chemconv [flags] -o OUTPUT INPUT...")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, cli, errHelp
		}
		return nil, cli, err
	}
	cli.inputs = fs.Args()
	if len(cli.inputs) == 0 {
		fs.Usage()
		return nil, cli, errors.New("no input files")
	}

	loader := config.NewLoader()
	if configPath != "" {
		loader.AddLayer(configPath)
	}
	loader.EnableValidation(false)
	cfg, err := loader.Load()
	if err != nil {
		return nil, cli, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "workers":
			cfg.Workers = *workers
		case "strict":
			cfg.Strict = *strict
		case "ordered":
			cfg.Ordered = *ordered
		case "in-format":
			cfg.InputFormat = *inputFormat
		case "out-format":
			cfg.OutputFormat = *outputFormat
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, cli, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, cli, nil
}
