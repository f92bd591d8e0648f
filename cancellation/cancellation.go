// Package cancellation provides the cooperative cancellation flag shared by
// scanning workers, record counting and signal handlers.
//
// A Flag only ever moves from unset to set. Workers poll it at the top of
// every iteration and readers observe it through the IO callback returned by
// Callback, so long counting scans stop as soon as it is raised.
package cancellation

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/davidvella/chemio/record"
)

// Signals are the process signals that raise the flag installed by Notify.
var Signals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT}

// Flag is a monotonic cancellation flag. The zero value is unset and ready
// to use.
type Flag struct {
	set  atomic.Bool
	once sync.Once
	done chan struct{}
}

// New returns an unset flag.
func New() *Flag {
	return &Flag{}
}

var process = New()

// Default returns the process-wide flag raised by Notify.
func Default() *Flag {
	return process
}

// Set raises the flag. It reports whether this call raised it.
func (f *Flag) Set() bool {
	if !f.set.CompareAndSwap(false, true) {
		return false
	}
	close(f.doneChan())
	return true
}

// IsSet reports whether the flag was raised.
func (f *Flag) IsSet() bool {
	return f.set.Load()
}

// Done returns a channel closed once the flag is raised.
func (f *Flag) Done() <-chan struct{} {
	return f.doneChan()
}

func (f *Flag) doneChan() chan struct{} {
	f.once.Do(func() {
		f.done = make(chan struct{})
	})
	return f.done
}

// Callback returns an IO callback aborting the reporting operation once the
// flag is raised.
func (f *Flag) Callback() record.IOCallback {
	return func(record.Stream, float64) record.Action {
		if f.IsSet() {
			return record.Abort
		}
		return record.Continue
	}
}

// Context returns a context cancelled when the flag is raised or parent ends.
func (f *Flag) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-f.Done():
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// Notify raises f when one of Signals is delivered to the process. The
// returned stop function restores default signal handling.
func Notify(f *Flag) (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, Signals...)

	quit := make(chan struct{})
	go func() {
		select {
		case <-ch:
			f.Set()
		case <-quit:
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(quit)
		})
	}
}
