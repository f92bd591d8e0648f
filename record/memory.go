package record

import (
	"sync"

	"github.com/davidvella/chemio/errors"
)

// MemorySource serves records from a slice.
type MemorySource[T any] struct {
	records []T
}

// NewMemoryReader returns a reader over a copy of records.
func NewMemoryReader[T any](records ...T) *IndexedReader[T] {
	return NewIndexedReader[T](&MemorySource[T]{records: append([]T(nil), records...)})
}

func (m *MemorySource[T]) Decode(idx int64, obj *T) error {
	if idx < 0 || idx >= int64(len(m.records)) {
		return errors.ErrOutOfRecords
	}
	*obj = m.records[idx]
	return nil
}

func (m *MemorySource[T]) Has(idx int64) (bool, error) {
	return idx >= 0 && idx < int64(len(m.records)), nil
}

func (m *MemorySource[T]) Count(progress ProgressFunc) (int64, error) {
	if !progress(1) {
		return 0, errors.ErrCancelled
	}
	return int64(len(m.records)), nil
}

func (m *MemorySource[T]) Close() error { return nil }

// MemorySink collects written records. It is safe for concurrent use.
type MemorySink[T any] struct {
	mu      sync.Mutex
	records []T
	closed  bool
}

// NewMemoryWriter returns a writer collecting into a new MemorySink.
func NewMemoryWriter[T any]() (*StreamWriter[T], *MemorySink[T]) {
	sink := &MemorySink[T]{}
	return NewStreamWriter[T](sink), sink
}

func (m *MemorySink[T]) Encode(obj T) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = append(m.records, obj)
	return nil
}

func (m *MemorySink[T]) Flush() error { return nil }

func (m *MemorySink[T]) Close(ProgressFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// Records returns a copy of the collected records.
func (m *MemorySink[T]) Records() []T {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]T(nil), m.records...)
}

// Closed reports whether the writer owning the sink was closed.
func (m *MemorySink[T]) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.closed
}
