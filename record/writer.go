package record

import (
	"fmt"

	"github.com/davidvella/chemio/errors"
)

const writerComponent = "Writer"

// StreamWriter implements Writer on top of a Sink.
type StreamWriter[T any] struct {
	Callbacks

	sink  Sink[T]
	count int64
	state State
	ok    bool
	err   error
}

// NewStreamWriter returns a writer appending to sink.
func NewStreamWriter[T any](sink Sink[T]) *StreamWriter[T] {
	return &StreamWriter[T]{
		sink: sink,
		ok:   true,
	}
}

func (w *StreamWriter[T]) Good() bool         { return w.state == StateOpen && w.ok }
func (w *StreamWriter[T]) State() State       { return w.state }
func (w *StreamWriter[T]) RecordIndex() int64 { return w.count }
func (w *StreamWriter[T]) NumRecords() int64  { return w.count }

// Err returns the error that moved the writer to StateFailed, if any.
func (w *StreamWriter[T]) Err() error {
	return w.err
}

func (w *StreamWriter[T]) Write(obj T) error {
	if err := w.checkUsable(); err != nil {
		return err
	}

	if err := w.sink.Encode(obj); err != nil {
		return w.fail(err, "Write", fmt.Sprintf("write record %d", w.count))
	}

	w.count++
	w.ok = true
	return nil
}

func (w *StreamWriter[T]) Flush() error {
	if err := w.checkUsable(); err != nil {
		return err
	}
	if err := w.sink.Flush(); err != nil {
		return w.fail(err, "Flush", "flush sink")
	}
	return nil
}

// Close finalizes the sink. Progress callbacks may abort a long finalization,
// in which case the output is left incomplete and ErrCancelled is returned.
// Closing a failed writer still releases the sink and returns the failure.
func (w *StreamWriter[T]) Close() error {
	if w.state == StateClosed {
		return nil
	}

	failed := w.err
	if w.state != StateFailed {
		failed = nil
	}

	err := w.sink.Close(func(fraction float64) bool {
		return w.NotifyIOCallbacks(w, fraction) == Continue
	})
	w.state = StateClosed
	w.ClearIOCallbacks()
	switch {
	case err == nil:
		return failed
	case failed == nil:
		return errors.Wrap(err, writerComponent, "Close", "close sink")
	}
	return errors.Join(failed, errors.Wrap(err, writerComponent, "Close", "close sink"))
}

func (w *StreamWriter[T]) checkUsable() error {
	switch w.state {
	case StateClosed:
		return errors.Wrap(errors.ErrClosed, writerComponent, "check", "")
	case StateFailed:
		return w.err
	}
	return nil
}

func (w *StreamWriter[T]) fail(err error, operation, action string) error {
	w.ok = false
	if errors.IsDecode(err) {
		return errors.Wrap(err, writerComponent, operation, action)
	}

	w.state = StateFailed
	w.err = errors.WrapIO(err, writerComponent, operation, action)
	return w.err
}
