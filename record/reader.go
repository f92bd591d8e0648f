package record

import (
	"fmt"

	"github.com/davidvella/chemio/errors"
)

const readerComponent = "Reader"

// IndexedReader implements Reader on top of a Source. It owns the cursor, the
// cached record count, the stream state and the progress subscriptions.
type IndexedReader[T any] struct {
	Callbacks

	src    Source[T]
	cursor int64
	count  int64
	state  State
	ok     bool
	err    error
	owner  any
}

// NewIndexedReader returns a reader positioned at record 0.
func NewIndexedReader[T any](src Source[T]) *IndexedReader[T] {
	return &IndexedReader[T]{
		src:   src,
		count: -1,
		ok:    true,
	}
}

// Source returns the underlying source.
func (r *IndexedReader[T]) Source() Source[T] {
	return r.src
}

func (r *IndexedReader[T]) Good() bool         { return r.state == StateOpen && r.ok }
func (r *IndexedReader[T]) State() State       { return r.state }
func (r *IndexedReader[T]) RecordIndex() int64 { return r.cursor }
func (r *IndexedReader[T]) Owner() any         { return r.owner }
func (r *IndexedReader[T]) SetOwner(owner any) { r.owner = owner }

// Err returns the error that moved the reader to StateFailed, if any.
func (r *IndexedReader[T]) Err() error {
	return r.err
}

func (r *IndexedReader[T]) Read(obj *T, opts ...ReadOption) error {
	return r.readAt(r.cursor, obj, opts)
}

func (r *IndexedReader[T]) ReadAt(idx int64, obj *T, opts ...ReadOption) error {
	if idx < 0 {
		r.ok = false
		return errors.WrapContract(errors.ErrIndexOutOfRange, readerComponent, "ReadAt",
			fmt.Sprintf("validate index %d", idx))
	}
	return r.readAt(idx, obj, opts)
}

func (r *IndexedReader[T]) readAt(idx int64, obj *T, opts []ReadOption) error {
	if err := r.checkUsable(); err != nil {
		return err
	}

	if err := DecodeInto(r.src, idx, obj, opts...); err != nil {
		return r.fail(err, "Read", fmt.Sprintf("read record %d", idx))
	}

	r.cursor = idx + 1
	r.ok = true
	return nil
}

func (r *IndexedReader[T]) Skip() error {
	if err := r.checkUsable(); err != nil {
		return err
	}

	exists, err := r.src.Has(r.cursor)
	if err != nil {
		return r.fail(err, "Skip", fmt.Sprintf("locate record %d", r.cursor))
	}
	if !exists {
		r.ok = false
		return errors.Wrap(errors.ErrOutOfRecords, readerComponent, "Skip",
			fmt.Sprintf("locate record %d", r.cursor))
	}

	r.cursor++
	r.ok = true
	return nil
}

func (r *IndexedReader[T]) HasMoreData() bool {
	if r.state != StateOpen {
		return false
	}

	exists, err := r.src.Has(r.cursor)
	if err != nil {
		_ = r.fail(err, "HasMoreData", fmt.Sprintf("locate record %d", r.cursor))
		return false
	}
	return exists
}

func (r *IndexedReader[T]) SetRecordIndex(idx int64) error {
	if err := r.checkUsable(); err != nil {
		return err
	}

	valid := idx == 0
	if idx > 0 {
		exists, err := r.src.Has(idx - 1)
		if err != nil {
			return r.fail(err, "SetRecordIndex", fmt.Sprintf("locate record %d", idx-1))
		}
		valid = exists
	}
	if !valid {
		r.ok = false
		return errors.WrapContract(errors.ErrIndexOutOfRange, readerComponent, "SetRecordIndex",
			fmt.Sprintf("validate index %d", idx))
	}

	r.cursor = idx
	r.ok = true
	return nil
}

func (r *IndexedReader[T]) NumRecords() (int64, error) {
	if r.count >= 0 {
		return r.count, nil
	}
	if err := r.checkUsable(); err != nil {
		return 0, err
	}

	count, err := r.src.Count(func(fraction float64) bool {
		return r.NotifyIOCallbacks(r, fraction) == Continue
	})
	if err != nil {
		return 0, r.fail(err, "NumRecords", "count records")
	}

	r.count = count
	return count, nil
}

// Close closes the source and drops all progress subscriptions.
func (r *IndexedReader[T]) Close() error {
	if r.state == StateClosed {
		return nil
	}

	r.state = StateClosed
	r.owner = nil
	r.ClearIOCallbacks()
	if err := r.src.Close(); err != nil {
		return errors.WrapIO(err, readerComponent, "Close", "close source")
	}
	return nil
}

func (r *IndexedReader[T]) checkUsable() error {
	switch r.state {
	case StateClosed:
		return errors.Wrap(errors.ErrClosed, readerComponent, "check", "")
	case StateFailed:
		return r.err
	}
	return nil
}

// fail records the outcome of a failed operation. Only infrastructure errors
// are terminal; decode, range and cancellation failures leave the reader usable.
func (r *IndexedReader[T]) fail(err error, operation, action string) error {
	r.ok = false
	switch errors.Classify(err) {
	case errors.ClassDecode, errors.ClassContract, errors.ClassCancelled:
		return errors.Wrap(err, readerComponent, operation, action)
	}
	if errors.Is(err, errors.ErrOutOfRecords) {
		return errors.Wrap(err, readerComponent, operation, action)
	}

	r.state = StateFailed
	r.err = errors.WrapIO(err, readerComponent, operation, action)
	return r.err
}
