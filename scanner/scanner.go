// Package scanner drives worker goroutines over one shared record reader.
//
// Workers claim the next record under a single cursor lock, process it
// outside the lock and loop until the reader is exhausted, a failure was
// recorded or cancellation is observed. Each record index is claimed by
// exactly one worker; completion order is not input order, see
// OrderedWriter.
//
// Failures follow a first-error-wins policy through ErrorSlot. Undecodable
// records are logged and skipped unless the scanner is strict. The
// cancellation flag is polled before every claim and aborts record counting
// through an IO callback subscribed on the reader.
//
// Basic usage:
//
//	s := scanner.New[chem.Molecule](reader, scanner.WithWorkers(4))
//	res := s.Run(ctx, func(ctx context.Context, idx int64, m *chem.Molecule) error {
//	    return out.Write(*m)
//	})
//	os.Exit(res.ExitCode())
package scanner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/davidvella/chemio/cancellation"
	"github.com/davidvella/chemio/console"
	"github.com/davidvella/chemio/errors"
	"github.com/davidvella/chemio/record"
	"github.com/google/uuid"
)

const component = "Scanner"

// ErrSkip is returned by a ProcessFunc to count its record as failed
// without failing the run.
var ErrSkip = errors.New("skip record")

// ProcessFunc handles one claimed record. It runs outside the cursor lock
// and may be called concurrently.
type ProcessFunc[T any] func(ctx context.Context, idx int64, rec *T) error

// Status is the state of a run.
type Status int32

const (
	StatusIdle Status = iota
	StatusRunning
	StatusCompleted
	StatusCancelled
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int32(s))
}

// Result summarises a finished run.
type Result struct {
	RunID     string
	Status    Status
	Err       error
	Processed int64
	Failed    int64
	Elapsed   time.Duration
}

// Success reports whether the run completed without failure or cancellation.
func (r Result) Success() bool {
	return r.Status == StatusCompleted
}

// ExitCode maps the result to a process exit code: 0 on success, 2 when
// cancelled and 1 otherwise.
func (r Result) ExitCode() int {
	switch r.Status {
	case StatusCompleted:
		return 0
	case StatusCancelled:
		return 2
	}
	return 1
}

type errorer interface {
	Err() error
}

// Scanner runs a ProcessFunc over every record of a reader. A scanner runs
// once.
type Scanner[T any] struct {
	reader record.Reader[T]
	opts   options

	status    atomic.Int32
	cursor    sync.Mutex
	slot      ErrorSlot
	throttle  *Throttle
	total     int64
	processed atomic.Int64
	failed    atomic.Int64
	cancelled atomic.Bool
	onSkip    func(idx int64) error
}

// New returns a scanner over reader. The reader must not be used by anyone
// else while the scanner runs.
func New[T any](reader record.Reader[T], opts ...Option) *Scanner[T] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s := &Scanner[T]{reader: reader, opts: o, onSkip: o.onSkip}
	s.throttle = NewThrottle(o.quantum, func(fraction float64) {
		s.opts.console.Progress(s.opts.label, fraction)
		s.opts.metrics.setProgress(s.opts.label, fraction)
	})
	return s
}

// Status returns the current state.
func (s *Scanner[T]) Status() Status {
	return Status(s.status.Load())
}

// ErrorSlot returns the failure slot of the run.
func (s *Scanner[T]) ErrorSlot() *ErrorSlot {
	return &s.slot
}

// Flag returns the cancellation flag observed by the workers.
func (s *Scanner[T]) Flag() *cancellation.Flag {
	return s.opts.flag
}

// Run processes every record with fn and blocks until all workers exit.
func (s *Scanner[T]) Run(ctx context.Context, fn ProcessFunc[T]) Result {
	res := Result{RunID: uuid.NewString()}
	if !s.status.CompareAndSwap(int32(StatusIdle), int32(StatusRunning)) {
		res.Status = StatusFailed
		res.Err = errors.WrapContract(errors.ErrAlreadyStarted, component, "Run", "start run")
		return res
	}

	start := time.Now()
	c := s.opts.console
	c.Status(console.LevelVerbose, "scan started", "label", s.opts.label, "run_id", res.RunID, "workers", s.opts.workers)

	id := s.reader.RegisterIOCallback(s.opts.flag.Callback())
	defer s.reader.UnregisterIOCallback(id)

	total, err := s.reader.NumRecords()
	if err != nil {
		if errors.IsCancelled(err) {
			s.cancelled.Store(true)
		} else {
			s.slot.Set(errors.Wrap(err, component, "Run", "count records"))
		}
	} else {
		s.total = total
		s.throttle.Update(s.fraction())
		s.spawn(ctx, fn)
	}

	res.Status = s.finalStatus(ctx)
	res.Err = s.slot.Err()
	if res.Status == StatusCancelled {
		res.Err = errors.ErrCancelled
	}
	res.Processed = s.processed.Load()
	res.Failed = s.failed.Load()
	res.Elapsed = time.Since(start)

	if res.Status == StatusCompleted {
		s.throttle.Update(1)
	}
	s.status.Store(int32(res.Status))
	s.opts.metrics.runFinished(s.opts.label, res.Status)
	c.Statistics(console.Stats{
		Label:     s.opts.label,
		Processed: res.Processed,
		Failed:    res.Failed,
		Elapsed:   res.Elapsed,
		Status:    res.Status.String(),
		Err:       s.slot.Err(),
	})
	return res
}

func (s *Scanner[T]) spawn(ctx context.Context, fn ProcessFunc[T]) {
	if s.opts.workers == 0 {
		s.work(ctx, fn)
		return
	}

	var wg sync.WaitGroup
	for range s.opts.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.work(ctx, fn)
		}()
	}
	wg.Wait()
}

func (s *Scanner[T]) finalStatus(ctx context.Context) Status {
	switch {
	case s.slot.Has():
		return StatusFailed
	case s.cancelled.Load(), s.opts.flag.IsSet(), ctx.Err() != nil:
		return StatusCancelled
	}
	return StatusCompleted
}

func (s *Scanner[T]) work(ctx context.Context, fn ProcessFunc[T]) {
	for {
		idx, rec, ok := s.claim(ctx)
		if !ok {
			return
		}
		s.process(ctx, fn, idx, rec)
	}
}

func (s *Scanner[T]) stopped(ctx context.Context) bool {
	return s.cancelled.Load() || s.opts.flag.IsSet() || ctx.Err() != nil || s.slot.Has()
}

// claim reads the next record under the cursor lock. Undecodable records
// are passed over unless the scanner is strict.
func (s *Scanner[T]) claim(ctx context.Context) (int64, *T, bool) {
	s.cursor.Lock()
	defer s.cursor.Unlock()

	for {
		if s.stopped(ctx) {
			return 0, nil, false
		}
		if !s.reader.HasMoreData() {
			s.checkReader()
			return 0, nil, false
		}

		idx := s.reader.RecordIndex()
		rec := new(T)
		err := s.reader.Read(rec)
		switch {
		case err == nil:
			return idx, rec, true
		case errors.IsDecode(err):
			if !s.skipUndecodable(idx, err) {
				return 0, nil, false
			}
		case errors.IsCancelled(err):
			s.cancelled.Store(true)
			return 0, nil, false
		case errors.Is(err, errors.ErrOutOfRecords):
			return 0, nil, false
		default:
			s.slot.Set(errors.Wrap(err, component, "claim", fmt.Sprintf("read record %d", idx)))
			return 0, nil, false
		}
	}
}

func (s *Scanner[T]) skipUndecodable(idx int64, err error) bool {
	s.recordFailure(idx)

	if s.opts.strict {
		s.slot.Set(errors.Wrap(err, component, "claim", fmt.Sprintf("decode record %d", idx)))
		return false
	}

	s.opts.console.Status(console.LevelError, "skipping undecodable record",
		"label", s.opts.label, "index", idx, "error", err)
	if err := s.reader.SetRecordIndex(idx + 1); err != nil {
		s.slot.Set(errors.Wrap(err, component, "claim", fmt.Sprintf("advance past record %d", idx)))
		return false
	}
	return true
}

// checkReader records the failure of a reader that stopped reporting data
// because it failed.
func (s *Scanner[T]) checkReader() {
	if s.reader.State() != record.StateFailed {
		return
	}
	err := errors.WrapIO(errors.ErrIO, component, "claim", "read input")
	if e, ok := s.reader.(errorer); ok && e.Err() != nil {
		err = e.Err()
	}
	s.slot.Set(err)
}

func (s *Scanner[T]) process(ctx context.Context, fn ProcessFunc[T], idx int64, rec *T) {
	start := time.Now()
	err := call(ctx, fn, idx, rec)

	switch {
	case err == nil:
		s.processed.Add(1)
		s.opts.metrics.recordProcessed(s.opts.label, time.Since(start).Seconds())
	case errors.Is(err, ErrSkip):
		s.recordFailure(idx)
		s.opts.console.Status(console.LevelVerbose, "record skipped",
			"label", s.opts.label, "index", idx, "error", err)
	case errors.IsCancelled(err) && (ctx.Err() != nil || s.opts.flag.IsSet()):
		s.recordFailure(idx)
	default:
		s.recordFailure(idx)
		s.slot.Set(errors.Wrap(err, component, "process", fmt.Sprintf("process record %d", idx)))
	}

	s.throttle.Update(s.fraction())
}

func (s *Scanner[T]) recordFailure(idx int64) {
	s.failed.Add(1)
	s.opts.metrics.recordFailed(s.opts.label)
	if s.onSkip == nil {
		return
	}
	if err := s.onSkip(idx); err != nil {
		s.slot.Set(errors.Wrap(err, component, "skip", fmt.Sprintf("release record %d", idx)))
	}
}

func (s *Scanner[T]) fraction() float64 {
	if s.total == 0 {
		return 1
	}
	return float64(s.processed.Load()+s.failed.Load()) / float64(s.total)
}

// call runs fn, turning a panic into an error.
func call[T any](ctx context.Context, fn ProcessFunc[T], idx int64, rec *T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing record %d: %v", idx, r)
		}
	}()
	return fn(ctx, idx, rec)
}
