package record

import (
	"fmt"
)

// State is the lifecycle state of a reader or writer.
type State int

const (
	// StateOpen is the state of a usable stream.
	StateOpen State = iota
	// StateClosed is entered by Close. It is terminal.
	StateClosed
	// StateFailed is entered on an infrastructure failure. It is terminal.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Action is returned by progress callbacks to continue or abort the
// operation that reported progress.
type Action int

const (
	Continue Action = iota
	Abort
)

// CallbackID identifies a registered IOCallback.
type CallbackID uint64

// IOCallback receives progress notifications in [0, 1] during potentially
// long operations such as record counting.
type IOCallback func(s Stream, progress float64) Action

// ProgressFunc is handed to sources and sinks by the generic readers and
// writers. It returns false when the operation must abort.
type ProgressFunc func(fraction float64) bool

// Stream is the part of the contract shared by readers and writers.
type Stream interface {
	// Good reports whether the stream is open and its most recent operation succeeded.
	Good() bool
	State() State
	// RecordIndex returns the cursor position.
	RecordIndex() int64
	RegisterIOCallback(cb IOCallback) CallbackID
	UnregisterIOCallback(id CallbackID) bool
	// Close releases the underlying resources. It is idempotent.
	Close() error
}

// Reader is the uniform record-indexed input contract.
//
// Readers are not safe for concurrent use; callers sharing a reader between
// goroutines serialize access themselves.
type Reader[T any] interface {
	Stream
	// Read reads the record at the cursor into obj and advances the cursor.
	Read(obj *T, opts ...ReadOption) error
	// ReadAt reads record idx into obj and moves the cursor to idx+1.
	ReadAt(idx int64, obj *T, opts ...ReadOption) error
	// Skip advances the cursor without materializing the record.
	Skip() error
	HasMoreData() bool
	// SetRecordIndex moves the cursor to idx in [0, NumRecords].
	SetRecordIndex(idx int64) error
	// NumRecords returns the record count. It may require a full scan on first call.
	NumRecords() (int64, error)
	// Owner returns the compound reader this reader belongs to, if any.
	Owner() any
	SetOwner(owner any)
}

// Writer is the uniform record output contract.
type Writer[T any] interface {
	Stream
	Write(obj T) error
	// NumRecords returns the number of records written so far.
	NumRecords() int64
	Flush() error
}

// Source is the format specific part of a Reader: random access decoding
// plus record counting.
type Source[T any] interface {
	// Decode decodes record idx into obj. It returns an error matching
	// errors.ErrOutOfRecords when idx is past the last record.
	Decode(idx int64, obj *T) error
	// Has reports whether record idx exists, scanning no further than needed.
	Has(idx int64) (bool, error)
	// Count returns the number of records, reporting scan progress.
	Count(progress ProgressFunc) (int64, error)
	Close() error
}

// Sink is the format specific part of a Writer.
type Sink[T any] interface {
	Encode(obj T) error
	Flush() error
	// Close finishes the output, reporting progress for long finalizations.
	Close(progress ProgressFunc) error
}

// Appender is implemented by record types that can merge a decoded record
// into an existing value. It is used by reads with Overwrite(false).
type Appender[T any] interface {
	Append(other T)
}

type readOptions struct {
	overwrite bool
}

// ReadOption configures a single read.
type ReadOption func(*readOptions)

// Overwrite controls whether a read replaces the content of the target
// object (the default) or appends to it.
func Overwrite(overwrite bool) ReadOption {
	return func(o *readOptions) {
		o.overwrite = overwrite
	}
}

func applyReadOptions(opts []ReadOption) readOptions {
	o := readOptions{overwrite: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// DecodeInto decodes record idx from src into obj honoring the read options.
// Without overwrite the record is merged through Appender when *T implements
// it and assigned otherwise.
func DecodeInto[T any](src Source[T], idx int64, obj *T, opts ...ReadOption) error {
	o := applyReadOptions(opts)
	if o.overwrite {
		return src.Decode(idx, obj)
	}

	var tmp T
	if err := src.Decode(idx, &tmp); err != nil {
		return err
	}
	Merge(obj, tmp)
	return nil
}

// Merge appends v into obj when *T implements Appender and assigns it otherwise.
func Merge[T any](obj *T, v T) {
	if a, ok := any(obj).(Appender[T]); ok {
		a.Append(v)
		return
	}
	*obj = v
}

// IsOverwrite reports whether opts request an overwriting read.
func IsOverwrite(opts ...ReadOption) bool {
	return applyReadOptions(opts).overwrite
}
