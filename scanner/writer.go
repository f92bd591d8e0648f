package scanner

import (
	"fmt"
	"sync"

	"github.com/davidvella/chemio/errors"
	"github.com/davidvella/chemio/priority"
	"github.com/davidvella/chemio/record"
)

// LockedWriter shares one writer between workers. Its lock is distinct from
// the cursor lock of the scanner, so readers and writers do not contend.
type LockedWriter[T any] struct {
	mu sync.Mutex
	w  record.Writer[T]
}

var _ record.Writer[struct{}] = (*LockedWriter[struct{}])(nil)

func NewLockedWriter[T any](w record.Writer[T]) *LockedWriter[T] {
	return &LockedWriter[T]{w: w}
}

func (l *LockedWriter[T]) Write(obj T) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.w.Write(obj)
}

func (l *LockedWriter[T]) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.w.Flush()
}

func (l *LockedWriter[T]) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.w.Close()
}

func (l *LockedWriter[T]) NumRecords() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.w.NumRecords()
}

func (l *LockedWriter[T]) RecordIndex() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.w.RecordIndex()
}

func (l *LockedWriter[T]) Good() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.w.Good()
}

func (l *LockedWriter[T]) State() record.State {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.w.State()
}

func (l *LockedWriter[T]) RegisterIOCallback(cb record.IOCallback) record.CallbackID {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.w.RegisterIOCallback(cb)
}

func (l *LockedWriter[T]) UnregisterIOCallback(id record.CallbackID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.w.UnregisterIOCallback(id)
}

type pending[T any] struct {
	idx  int64
	rec  T
	skip bool
}

// OrderedWriter writes records in record index order although workers
// complete them in any order. Every index from the first one on must be
// either written or skipped; records behind a gap are buffered until the
// gap is filled or the writer is closed.
type OrderedWriter[T any] struct {
	mu      sync.Mutex
	w       record.Writer[T]
	next    int64
	pending *priority.Queue[int64, pending[T]]
	err     error // first write failure
}

// NewOrderedWriter returns a writer expecting index first next.
func NewOrderedWriter[T any](w record.Writer[T], first int64) *OrderedWriter[T] {
	return &OrderedWriter[T]{
		w:    w,
		next: first,
		pending: priority.NewQueue[int64, pending[T]](func(a, b pending[T]) bool {
			return a.idx < b.idx
		}),
	}
}

// WriteAt queues rec as the output of record idx.
func (o *OrderedWriter[T]) WriteAt(idx int64, rec T) error {
	return o.add(pending[T]{idx: idx, rec: rec}, "WriteAt")
}

// Skip marks record idx as producing no output.
func (o *OrderedWriter[T]) Skip(idx int64) error {
	return o.add(pending[T]{idx: idx, skip: true}, "Skip")
}

func (o *OrderedWriter[T]) add(p pending[T], operation string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if p.idx < o.next || o.pending.Contains(p.idx) {
		return errors.WrapContract(errors.ErrInvalidPosition, "OrderedWriter", operation,
			fmt.Sprintf("accept record %d", p.idx))
	}

	o.pending.Set(p.idx, p)
	return o.release(func(idx int64) bool { return idx == o.next })
}

func (o *OrderedWriter[T]) release(accept func(idx int64) bool) error {
	for idx, p := range o.pending.PopWhile(func(idx int64, _ pending[T]) bool { return accept(idx) }) {
		if !p.skip {
			if err := o.w.Write(p.rec); err != nil {
				err = errors.Wrap(err, "OrderedWriter", "release", fmt.Sprintf("write record %d", idx))
				if o.err == nil {
					o.err = err
				}
				return err
			}
		}
		o.next = idx + 1
	}
	return nil
}

// Pending returns the number of buffered records.
func (o *OrderedWriter[T]) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.pending.Len()
}

// NumRecords returns the number of records written to the underlying writer.
func (o *OrderedWriter[T]) NumRecords() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.w.NumRecords()
}

// Close writes the buffered records in index order, skipping over gaps, and
// closes the underlying writer. It returns the first write failure of the
// writer's lifetime, even one already reported to WriteAt or Skip.
func (o *OrderedWriter[T]) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.err == nil {
		_ = o.release(func(int64) bool { return true })
	}
	err := o.err
	if cerr := o.w.Close(); cerr != nil && !errors.Is(err, cerr) {
		err = errors.Join(err, cerr)
	}
	return err
}
