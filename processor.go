// Package chemio runs a record handler over a set of input files and writes
// the kept records to one output file.
//
// Inputs are resolved through a registry by format name, file extension or
// content, opened concurrently and read as one compound stream. A scanner
// distributes the records over worker goroutines; failures, cancellation
// and progress are handled as described in package scanner.
package chemio

import (
	"context"

	"github.com/google/uuid"

	"github.com/davidvella/chemio/compound"
	"github.com/davidvella/chemio/console"
	"github.com/davidvella/chemio/errors"
	"github.com/davidvella/chemio/handler"
	"github.com/davidvella/chemio/registry"
	"github.com/davidvella/chemio/scanner"
)

const component = "chemio"

// output is where a run stores the records its handler keeps.
type output[T any] interface {
	keep(idx int64, rec T) error
	drop(idx int64) error
	Close() error
}

type unordered[T any] struct {
	w *scanner.LockedWriter[T]
}

func (u unordered[T]) keep(_ int64, rec T) error { return u.w.Write(rec) }
func (u unordered[T]) drop(int64) error          { return nil }
func (u unordered[T]) Close() error              { return u.w.Close() }

type ordered[T any] struct {
	w *scanner.OrderedWriter[T]
}

func (o ordered[T]) keep(idx int64, rec T) error { return o.w.WriteAt(idx, rec) }
func (o ordered[T]) drop(idx int64) error        { return o.w.Skip(idx) }
func (o ordered[T]) Close() error                { return o.w.Close() }

// Process runs h over every record of inputs and writes the records h keeps
// to outputPath. An empty outputPath runs h without writing anything.
//
// Failures to open the inputs or the output are reported in the result like
// failures of the run itself.
func Process[T any](
	ctx context.Context,
	reg *registry.Registry[T],
	inputs []string,
	outputPath string,
	h Handler[T],
	opts ...Option,
) scanner.Result {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	o.console.Status(console.LevelVerbose, "opening inputs", "label", o.label, "inputs", len(inputs))
	in, err := compound.OpenAll(ctx, reg, inputs,
		compound.WithFormat(o.inputFormat),
		compound.WithParallelism(o.parallelism),
		compound.WithIOCallback(o.flag.Callback()),
	)
	if err != nil {
		return setupFailure(o, errors.Wrap(err, component, "Process", "open inputs"))
	}
	defer in.Close()

	var out output[T]
	if outputPath != "" {
		out, err = openOutput(reg, outputPath, o)
		if err != nil {
			return setupFailure(o, errors.Wrap(err, component, "Process", "open output"))
		}
	}

	sopts := o.scannerOptions()
	if out != nil {
		// Records the scanner gives up on leave a gap in ordered output.
		sopts = append(sopts, scanner.WithOnSkip(out.drop))
	}

	res := scanner.New[T](in, sopts...).Run(ctx, func(ctx context.Context, idx int64, rec *T) error {
		keep, err := h.Handle(ctx, idx, rec)
		if err != nil || out == nil {
			return err
		}
		if keep {
			return out.keep(idx, *rec)
		}
		return out.drop(idx)
	})

	if out != nil {
		if err := out.Close(); err != nil {
			o.console.Status(console.LevelError, "closing output failed", "label", o.label, "output", outputPath, "error", err)
			if res.Success() {
				res.Status = scanner.StatusFailed
				res.Err = errors.Wrap(err, component, "Process", "close output")
			}
		}
	}
	return res
}

func openOutput[T any](reg *registry.Registry[T], path string, o options) (output[T], error) {
	mode := handler.ModeDefaultWrite
	if o.appendOutput {
		mode = handler.ModeWrite | handler.ModeAppend
	}

	w, err := reg.OpenOutput(path, o.outputFormat, mode)
	if err != nil {
		return nil, err
	}
	if o.ordered {
		return ordered[T]{w: scanner.NewOrderedWriter[T](w, 0)}, nil
	}
	return unordered[T]{w: scanner.NewLockedWriter[T](w)}, nil
}

// setupFailure reports a run that could not start.
func setupFailure(o options, err error) scanner.Result {
	res := scanner.Result{RunID: uuid.NewString(), Status: scanner.StatusFailed, Err: err}
	if errors.IsCancelled(err) {
		res.Status = scanner.StatusCancelled
	}

	o.console.Status(console.LevelError, "run could not start", "label", o.label, "error", err)
	o.console.Statistics(console.Stats{Label: o.label, Status: res.Status.String(), Err: err})
	return res
}
