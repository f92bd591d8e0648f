package chemio

import (
	"runtime"

	"github.com/davidvella/chemio/cancellation"
	"github.com/davidvella/chemio/console"
	"github.com/davidvella/chemio/scanner"
)

// options defines all configuration options for a run.
type options struct {
	// Input options
	inputFormat string // Forced input format name
	parallelism int    // Maximum number of files opened at once

	// Output options
	outputFormat string // Forced output format name
	ordered      bool   // Keep output in input order
	appendOutput bool   // Append to an existing output

	// Scanner options
	workers int
	strict  bool
	label   string
	quantum int
	console console.Console
	flag    *cancellation.Flag
	metrics *scanner.Metrics
}

// Option is a function that configures a run.
type Option func(*options)

// WithInputFormat forces the format of every input instead of resolving it
// from the file name or content.
func WithInputFormat(name string) Option {
	return func(o *options) {
		o.inputFormat = name
	}
}

// WithParallelOpen sets the maximum number of inputs opened concurrently.
func WithParallelOpen(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.parallelism = n
		}
	}
}

// WithOutputFormat forces the output format instead of resolving it from
// the file name.
func WithOutputFormat(name string) Option {
	return func(o *options) {
		o.outputFormat = name
	}
}

// WithOrderedOutput writes output records in input order instead of
// completion order.
func WithOrderedOutput(ordered bool) Option {
	return func(o *options) {
		o.ordered = ordered
	}
}

// WithAppend appends to an existing output instead of truncating it.
func WithAppend(appendOutput bool) Option {
	return func(o *options) {
		o.appendOutput = appendOutput
	}
}

// WithWorkers sets the number of worker goroutines. Zero processes every
// record on the calling goroutine.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.workers = n
		}
	}
}

// WithStrict makes undecodable input records fail the run.
func WithStrict(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

// WithLabel names the run in progress reports and metrics.
func WithLabel(label string) Option {
	return func(o *options) {
		o.label = label
	}
}

// WithProgressQuantum sets the number of progress steps reported per run.
func WithProgressQuantum(quantum int) Option {
	return func(o *options) {
		if quantum > 0 {
			o.quantum = quantum
		}
	}
}

// WithConsole sets the console receiving status, progress and statistics.
func WithConsole(c console.Console) Option {
	return func(o *options) {
		if c != nil {
			o.console = c
		}
	}
}

// WithCancellation sets the cancellation flag observed by the run.
func WithCancellation(f *cancellation.Flag) Option {
	return func(o *options) {
		if f != nil {
			o.flag = f
		}
	}
}

// WithMetrics records the run in m.
func WithMetrics(m *scanner.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// defaultOptions returns the default configuration.
func defaultOptions() options {
	return options{
		parallelism: runtime.GOMAXPROCS(0),
		workers:     runtime.GOMAXPROCS(0),
		label:       "process",
		quantum:     scanner.DefaultQuantum,
		console:     console.Nop(),
		flag:        cancellation.Default(),
	}
}

func (o options) scannerOptions() []scanner.Option {
	return []scanner.Option{
		scanner.WithWorkers(o.workers),
		scanner.WithStrict(o.strict),
		scanner.WithLabel(o.label),
		scanner.WithProgressQuantum(o.quantum),
		scanner.WithConsole(o.console),
		scanner.WithCancellation(o.flag),
		scanner.WithMetrics(o.metrics),
	}
}
