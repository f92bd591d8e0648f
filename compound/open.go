package compound

import (
	"context"
	"runtime"

	"github.com/davidvella/chemio/errors"
	"github.com/davidvella/chemio/record"
	"github.com/davidvella/chemio/registry"
	"golang.org/x/sync/errgroup"
)

type openOptions struct {
	formatName  string
	parallelism int
	callbacks   []record.IOCallback
}

// OpenOption configures OpenAll.
type OpenOption func(*openOptions)

// WithFormat forces the input format name instead of resolving it per path.
func WithFormat(name string) OpenOption {
	return func(o *openOptions) {
		o.formatName = name
	}
}

// WithParallelism bounds the number of files opened and counted at once.
func WithParallelism(n int) OpenOption {
	return func(o *openOptions) {
		if n > 0 {
			o.parallelism = n
		}
	}
}

// WithIOCallback subscribes cb on every member before its records are
// counted, e.g. to abort counting on cancellation.
func WithIOCallback(cb record.IOCallback) OpenOption {
	return func(o *openOptions) {
		o.callbacks = append(o.callbacks, cb)
	}
}

// OpenAll resolves and opens every path through reg, counts the records of
// all files concurrently and returns them as one compound reader in path
// order. If any path fails, every reader opened so far is closed.
func OpenAll[T any](ctx context.Context, reg *registry.Registry[T], paths []string, opts ...OpenOption) (*Reader[T], error) {
	o := openOptions{parallelism: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(&o)
	}

	readers := make([]record.Reader[T], len(paths))
	closeAll := func() {
		for _, r := range readers {
			if r != nil {
				_ = r.Close()
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.parallelism)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return errors.Wrap(err, component, "OpenAll", "open "+path)
			}

			r, err := reg.OpenInput(path, o.formatName)
			if err != nil {
				return errors.Wrap(err, component, "OpenAll", "open "+path)
			}
			readers[i] = r

			for _, cb := range o.callbacks {
				r.RegisterIOCallback(cb)
			}
			if _, err := r.NumRecords(); err != nil {
				return errors.Wrap(err, component, "OpenAll", "count "+path)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		closeAll()
		return nil, err
	}

	c := &Reader[T]{}
	for _, r := range readers {
		if err := c.AddReader(r); err != nil {
			closeAll()
			return nil, err
		}
	}
	return c, nil
}
