package main

import (
	"context"
	"errors"

	"github.com/davidvella/chemio/cancellation"
	"github.com/davidvella/chemio/chem"
	chemerrors "github.com/davidvella/chemio/errors"
	"github.com/davidvella/chemio/handler"
	"github.com/davidvella/chemio/registry"
	"github.com/davidvella/chemio/sstable"
)

var errNoMergeOutput = errors.New("-merge needs an output file")

// mergeTables merges sorted molecule tables into output in key order.
func mergeTables(
	ctx context.Context,
	reg *registry.Registry[chem.Molecule],
	inputs []string,
	output, outputFormat string,
	unique bool,
	cancel *cancellation.Flag,
) (n int64, err error) {
	if output == "" {
		return 0, errNoMergeOutput
	}

	ctx, stop := cancel.Context(ctx)
	defer stop()

	sources := make([]*sstable.Source[chem.Molecule], 0, len(inputs))
	defer func() {
		for _, src := range sources {
			err = errors.Join(err, src.Close())
		}
	}()
	for _, path := range inputs {
		src, err := chem.OpenTable(path)
		if err != nil {
			return 0, err
		}
		sources = append(sources, src)
	}

	w, err := reg.OpenOutput(output, outputFormat, handler.ModeDefaultWrite)
	if err != nil {
		return 0, err
	}

	var opts []sstable.MergeOption
	if unique {
		opts = append(opts, sstable.WithUnique())
	}
	n, err = sstable.Merge[chem.Molecule](ctx, w, sources, opts...)
	if cerr := w.Close(); cerr != nil && err == nil {
		err = chemerrors.Wrap(cerr, "chemconv", "merge", "close output")
	}
	return n, err
}
