package chemio

import (
	"context"
)

// Handler processes one record of a run. It may modify rec in place and
// reports whether rec is written to the output.
//
// Returning an error wrapping scanner.ErrSkip counts the record as failed
// and continues the run; any other error stops it.
type Handler[T any] interface {
	Handle(ctx context.Context, idx int64, rec *T) (keep bool, err error)
}

// HandlerFunc is a function type that implements Handler.
type HandlerFunc[T any] func(ctx context.Context, idx int64, rec *T) (bool, error)

// Handle calls the function.
func (f HandlerFunc[T]) Handle(ctx context.Context, idx int64, rec *T) (bool, error) {
	return f(ctx, idx, rec)
}

// Keep is a Handler writing every record unchanged.
func Keep[T any]() Handler[T] {
	return HandlerFunc[T](func(context.Context, int64, *T) (bool, error) {
		return true, nil
	})
}
