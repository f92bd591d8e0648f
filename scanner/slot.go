package scanner

import (
	"sync"
	"sync/atomic"
)

// ErrorSlot retains the first error reported during a run. Later reports
// are ignored. It is safe for concurrent use and guarded independently of
// the cursor lock.
type ErrorSlot struct {
	mu  sync.Mutex
	err error
	set atomic.Bool
}

// Set stores err unless an error is already stored. It reports whether err
// was stored. Nil errors are ignored.
func (s *ErrorSlot) Set(err error) bool {
	if err == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return false
	}
	s.err = err
	s.set.Store(true)
	return true
}

// Has reports whether an error was stored.
func (s *ErrorSlot) Has() bool {
	return s.set.Load()
}

// Err returns the stored error.
func (s *ErrorSlot) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.err
}

// Message returns the text of the stored error, or "" when empty.
func (s *ErrorSlot) Message() string {
	if err := s.Err(); err != nil {
		return err.Error()
	}
	return ""
}
