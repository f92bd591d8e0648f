// Package registry keeps the ordered lists of input and output handlers
// registered for one record type.
//
// Lookups scan the handlers in registration order and return the first
// match, comparing names, extensions and MIME types case-insensitively.
// Duplicate registrations of a format are legal; the earliest one wins
// until it is unregistered.
//
// The registry stores the handler values it is given but does not own them:
// unregistering a handler never closes or alters it.
//
// Basic usage:
//
//	reg := registry.Default[chem.Molecule]()
//	reg.RegisterInputHandler(smilesInput)
//
//	h, ok := reg.InputHandlerByFileExtension("SMI")
//	if !ok {
//	    // unsupported format
//	}
package registry

import (
	"iter"
	"reflect"
	"sync"

	"github.com/davidvella/chemio/errors"
	"github.com/davidvella/chemio/format"
	"github.com/davidvella/chemio/handler"
)

// Token identifies one registration. Tokens stay valid while the entry is
// registered, independent of removals of other entries.
type Token uint64

type formatted interface {
	Format() format.Format
}

type entry[H formatted] struct {
	token Token
	h     H
}

// handlerList is an ordered handler list. The enclosing Registry guards it.
type handlerList[H formatted] struct {
	entries []entry[H]
}

func (l *handlerList[H]) add(tok Token, h H) {
	l.entries = append(l.entries, entry[H]{token: tok, h: h})
}

func (l *handlerList[H]) removeAt(i int) {
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
}

func (l *handlerList[H]) find(match func(f format.Format) bool) (H, bool) {
	for _, e := range l.entries {
		if match(e.h.Format()) {
			return e.h, true
		}
	}
	var zero H
	return zero, false
}

func (l *handlerList[H]) indexOf(pred func(e entry[H]) bool) int {
	for i, e := range l.entries {
		if pred(e) {
			return i
		}
	}
	return -1
}

func (l *handlerList[H]) snapshot() []H {
	hs := make([]H, len(l.entries))
	for i, e := range l.entries {
		hs[i] = e.h
	}
	return hs
}

// sameHandler compares handler references without panicking on
// non-comparable dynamic types.
func sameHandler(a, b any) bool {
	ta := reflect.TypeOf(a)
	if ta == nil || ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}

// Registry holds the input and output handlers for records of type T. It is
// safe for concurrent use.
type Registry[T any] struct {
	mu        sync.RWMutex
	lastToken Token
	inputs    handlerList[handler.InputHandler[T]]
	outputs   handlerList[handler.OutputHandler[T]]
}

// New returns an empty registry.
func New[T any]() *Registry[T] {
	return &Registry[T]{}
}

var defaults sync.Map // reflect.Type -> *Registry[T]

// Default returns the process-wide registry for record type T. It is created
// on first use and never torn down; it only shrinks through explicit
// unregistration.
func Default[T any]() *Registry[T] {
	key := reflect.TypeFor[T]()
	if r, ok := defaults.Load(key); ok {
		return r.(*Registry[T])
	}
	r, _ := defaults.LoadOrStore(key, New[T]())
	return r.(*Registry[T])
}

func (r *Registry[T]) nextToken() Token {
	r.lastToken++
	return r.lastToken
}

// RegisterInputHandler appends h to the input handlers.
func (r *Registry[T]) RegisterInputHandler(h handler.InputHandler[T]) Token {
	r.mu.Lock()
	defer r.mu.Unlock()

	tok := r.nextToken()
	r.inputs.add(tok, h)
	return tok
}

// RegisterOutputHandler appends h to the output handlers.
func (r *Registry[T]) RegisterOutputHandler(h handler.OutputHandler[T]) Token {
	r.mu.Lock()
	defer r.mu.Unlock()

	tok := r.nextToken()
	r.outputs.add(tok, h)
	return tok
}

// UnregisterInputHandlerByFormat removes the first input handler for f and
// reports whether one was removed.
func (r *Registry[T]) UnregisterInputHandlerByFormat(f format.Format) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return removeFirst(&r.inputs, func(e entry[handler.InputHandler[T]]) bool {
		return e.h.Format().Equal(f)
	})
}

// UnregisterOutputHandlerByFormat removes the first output handler for f and
// reports whether one was removed.
func (r *Registry[T]) UnregisterOutputHandlerByFormat(f format.Format) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return removeFirst(&r.outputs, func(e entry[handler.OutputHandler[T]]) bool {
		return e.h.Format().Equal(f)
	})
}

// UnregisterInputHandler removes the first registration of h and reports
// whether it was registered.
func (r *Registry[T]) UnregisterInputHandler(h handler.InputHandler[T]) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return removeFirst(&r.inputs, func(e entry[handler.InputHandler[T]]) bool {
		return sameHandler(e.h, h)
	})
}

// UnregisterOutputHandler removes the first registration of h and reports
// whether it was registered.
func (r *Registry[T]) UnregisterOutputHandler(h handler.OutputHandler[T]) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return removeFirst(&r.outputs, func(e entry[handler.OutputHandler[T]]) bool {
		return sameHandler(e.h, h)
	})
}

// UnregisterInputHandlerAt removes the input handler at position i.
// Later handlers shift down by one.
func (r *Registry[T]) UnregisterInputHandlerAt(i int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return removeAt(&r.inputs, i, "UnregisterInputHandlerAt")
}

// UnregisterOutputHandlerAt removes the output handler at position i.
func (r *Registry[T]) UnregisterOutputHandlerAt(i int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return removeAt(&r.outputs, i, "UnregisterOutputHandlerAt")
}

// UnregisterInputHandlerToken removes the input registration identified by tok.
func (r *Registry[T]) UnregisterInputHandlerToken(tok Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return removeToken(&r.inputs, tok, "UnregisterInputHandlerToken")
}

// UnregisterOutputHandlerToken removes the output registration identified by tok.
func (r *Registry[T]) UnregisterOutputHandlerToken(tok Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return removeToken(&r.outputs, tok, "UnregisterOutputHandlerToken")
}

func removeFirst[H formatted](l *handlerList[H], pred func(entry[H]) bool) bool {
	i := l.indexOf(pred)
	if i < 0 {
		return false
	}
	l.removeAt(i)
	return true
}

func removeAt[H formatted](l *handlerList[H], i int, operation string) error {
	if i < 0 || i >= len(l.entries) {
		return errors.WrapContract(errors.ErrIndexOutOfRange, "Registry", operation, "validate position")
	}
	l.removeAt(i)
	return nil
}

func removeToken[H formatted](l *handlerList[H], tok Token, operation string) error {
	i := l.indexOf(func(e entry[H]) bool { return e.token == tok })
	if i < 0 {
		return errors.WrapContract(errors.ErrInvalidPosition, "Registry", operation, "validate token")
	}
	l.removeAt(i)
	return nil
}

// NumInputHandlers returns the number of registered input handlers.
func (r *Registry[T]) NumInputHandlers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.inputs.entries)
}

// NumOutputHandlers returns the number of registered output handlers.
func (r *Registry[T]) NumOutputHandlers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.outputs.entries)
}

// InputHandler returns the input handler at position i.
func (r *Registry[T]) InputHandler(i int) (handler.InputHandler[T], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i < 0 || i >= len(r.inputs.entries) {
		return nil, errors.WrapContract(errors.ErrIndexOutOfRange, "Registry", "InputHandler", "validate position")
	}
	return r.inputs.entries[i].h, nil
}

// OutputHandler returns the output handler at position i.
func (r *Registry[T]) OutputHandler(i int) (handler.OutputHandler[T], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i < 0 || i >= len(r.outputs.entries) {
		return nil, errors.WrapContract(errors.ErrIndexOutOfRange, "Registry", "OutputHandler", "validate position")
	}
	return r.outputs.entries[i].h, nil
}

// InputHandlers iterates over a snapshot of the input handlers in
// registration order. Registrations made during iteration are not observed.
func (r *Registry[T]) InputHandlers() iter.Seq2[int, handler.InputHandler[T]] {
	r.mu.RLock()
	hs := r.inputs.snapshot()
	r.mu.RUnlock()

	return func(yield func(int, handler.InputHandler[T]) bool) {
		for i, h := range hs {
			if !yield(i, h) {
				return
			}
		}
	}
}

// OutputHandlers iterates over a snapshot of the output handlers in
// registration order.
func (r *Registry[T]) OutputHandlers() iter.Seq2[int, handler.OutputHandler[T]] {
	r.mu.RLock()
	hs := r.outputs.snapshot()
	r.mu.RUnlock()

	return func(yield func(int, handler.OutputHandler[T]) bool) {
		for i, h := range hs {
			if !yield(i, h) {
				return
			}
		}
	}
}

func (r *Registry[T]) findInput(match func(format.Format) bool) (handler.InputHandler[T], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.inputs.find(match)
}

func (r *Registry[T]) findOutput(match func(format.Format) bool) (handler.OutputHandler[T], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.outputs.find(match)
}

// InputHandlerByFormat returns the first input handler registered for f.
func (r *Registry[T]) InputHandlerByFormat(f format.Format) (handler.InputHandler[T], bool) {
	return r.findInput(f.Equal)
}

// InputHandlerByName returns the first input handler whose format is called name.
func (r *Registry[T]) InputHandlerByName(name string) (handler.InputHandler[T], bool) {
	return r.findInput(func(f format.Format) bool { return f.HasName(name) })
}

// InputHandlerByFileExtension returns the first input handler claiming ext.
func (r *Registry[T]) InputHandlerByFileExtension(ext string) (handler.InputHandler[T], bool) {
	return r.findInput(func(f format.Format) bool { return f.HasExtension(ext) })
}

// InputHandlerByMIMEType returns the first input handler accepting mimeType.
func (r *Registry[T]) InputHandlerByMIMEType(mimeType string) (handler.InputHandler[T], bool) {
	return r.findInput(func(f format.Format) bool { return f.HasMIMEType(mimeType) })
}

// OutputHandlerByFormat returns the first output handler registered for f.
func (r *Registry[T]) OutputHandlerByFormat(f format.Format) (handler.OutputHandler[T], bool) {
	return r.findOutput(f.Equal)
}

// OutputHandlerByName returns the first output handler whose format is called name.
func (r *Registry[T]) OutputHandlerByName(name string) (handler.OutputHandler[T], bool) {
	return r.findOutput(func(f format.Format) bool { return f.HasName(name) })
}

// OutputHandlerByFileExtension returns the first output handler claiming ext.
func (r *Registry[T]) OutputHandlerByFileExtension(ext string) (handler.OutputHandler[T], bool) {
	return r.findOutput(func(f format.Format) bool { return f.HasExtension(ext) })
}

// OutputHandlerByMIMEType returns the first output handler accepting mimeType.
func (r *Registry[T]) OutputHandlerByMIMEType(mimeType string) (handler.OutputHandler[T], bool) {
	return r.findOutput(func(f format.Format) bool { return f.HasMIMEType(mimeType) })
}
