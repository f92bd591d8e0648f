package scanner

import (
	"runtime"

	"github.com/davidvella/chemio/cancellation"
	"github.com/davidvella/chemio/console"
)

// options defines the configuration of a scanner.
type options struct {
	workers int
	strict  bool
	label   string
	quantum int
	console console.Console
	flag    *cancellation.Flag
	metrics *Metrics
	onSkip  func(idx int64) error
}

// Option configures a Scanner.
type Option func(*options)

// WithWorkers sets the number of worker goroutines. Zero runs every record
// on the goroutine calling Run.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.workers = n
		}
	}
}

// WithStrict makes undecodable records fail the run instead of being
// skipped.
func WithStrict(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

// WithLabel names the run in progress reports, statistics and metrics.
func WithLabel(label string) Option {
	return func(o *options) {
		o.label = label
	}
}

// WithProgressQuantum sets how many distinct progress values a run reports.
func WithProgressQuantum(quantum int) Option {
	return func(o *options) {
		o.quantum = quantum
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

// WithCancellation sets the flag observed by workers. It defaults to the
// process-wide flag.
func WithCancellation(f *cancellation.Flag) Option {
	return func(o *options) {
		if f != nil {
			o.flag = f
		}
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithOnSkip sets a function called with the index of every claimed record
// that produced no successful result. An error returned by fn fails the run.
func WithOnSkip(fn func(idx int64) error) Option {
	return func(o *options) {
		o.onSkip = fn
	}
}

func defaultOptions() options {
	return options{
		workers: runtime.GOMAXPROCS(0),
		label:   "scan",
		quantum: DefaultQuantum,
		console: console.Nop(),
		flag:    cancellation.Default(),
	}
}
