// Package errors provides the error taxonomy shared by the chemio packages.
// It includes error classes, standard error variables, and helpers for
// consistent wrapping and classification across registries, readers, writers
// and the scanning pipeline.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Class represents the classification of an error for handling purposes.
type Class int

const (
	// ClassUnknown is the class of errors that carry no chemio classification.
	ClassUnknown Class = iota
	// ClassNotFound represents failed lookups; callers may try another strategy.
	ClassNotFound
	// ClassContract represents programming contract violations (bad index, bad position).
	ClassContract
	// ClassIO represents failures opening, reading or writing the underlying stream.
	ClassIO
	// ClassDecode represents structurally invalid record content.
	ClassDecode
	// ClassCancelled represents cooperative cancellation; it is not a failure.
	ClassCancelled
)

// String returns the string representation of the Class.
func (c Class) String() string {
	switch c {
	case ClassNotFound:
		return "not_found"
	case ClassContract:
		return "contract"
	case ClassIO:
		return "io"
	case ClassDecode:
		return "decode"
	case ClassCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Standard error variables.
var (
	// Lookup errors
	ErrNotFound    = errors.New("not found")
	ErrUnsupported = errors.New("operation not supported by format")

	// Contract errors
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrInvalidPosition = errors.New("invalid position")

	// Stream errors
	ErrIO           = errors.New("i/o error")
	ErrDecode       = errors.New("decode error")
	ErrOutOfRecords = errors.New("out of records")
	ErrClosed       = errors.New("stream closed")

	// Run control
	ErrCancelled      = errors.New("cancelled")
	ErrAlreadyStarted = errors.New("already started")
)

// ClassifiedError wraps an error with its classification and origin.
type ClassifiedError struct {
	Class     Class
	Err       error
	Component string
	Operation string
	Action    string
}

// Error implements the error interface using the
// "component.operation: action failed: cause" layout.
func (ce *ClassifiedError) Error() string {
	switch {
	case ce.Component == "" && ce.Operation == "":
		return ce.Err.Error()
	case ce.Action == "":
		return fmt.Sprintf("%s.%s: %v", ce.Component, ce.Operation, ce.Err)
	default:
		return fmt.Sprintf("%s.%s: %s failed: %v", ce.Component, ce.Operation, ce.Action, ce.Err)
	}
}

// Unwrap returns the underlying error.
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// Classify returns the class of err. Classified errors keep their class through
// wrapping chains; standard variables map to their natural class.
func Classify(err error) Class {
	if err == nil {
		return ClassUnknown
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) && ce.Class != ClassUnknown {
		return ce.Class
	}

	switch {
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return ClassCancelled
	case errors.Is(err, ErrNotFound):
		return ClassNotFound
	case errors.Is(err, ErrIndexOutOfRange), errors.Is(err, ErrInvalidPosition):
		return ClassContract
	case errors.Is(err, ErrDecode):
		return ClassDecode
	case errors.Is(err, ErrIO), errors.Is(err, ErrClosed), errors.Is(err, ErrUnsupported):
		return ClassIO
	}
	return ClassUnknown
}

// IsNotFound reports whether err is a failed lookup.
func IsNotFound(err error) bool { return Classify(err) == ClassNotFound }

// IsContract reports whether err is a contract violation.
func IsContract(err error) bool { return Classify(err) == ClassContract }

// IsIO reports whether err is an infrastructure failure.
func IsIO(err error) bool { return Classify(err) == ClassIO }

// IsDecode reports whether err is a per-record decode failure.
func IsDecode(err error) bool { return Classify(err) == ClassDecode }

// IsCancelled reports whether err stems from cooperative cancellation.
func IsCancelled(err error) bool { return Classify(err) == ClassCancelled }

func wrap(class Class, err error, component, operation, action string) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Component: component,
		Operation: operation,
		Action:    action,
	}
}

// Wrap adds component context to err while preserving its classification.
func Wrap(err error, component, operation, action string) error {
	return wrap(Classify(err), err, component, operation, action)
}

// WrapNotFound wraps err as a failed lookup.
func WrapNotFound(err error, component, operation, action string) error {
	return wrap(ClassNotFound, err, component, operation, action)
}

// WrapContract wraps err as a contract violation.
func WrapContract(err error, component, operation, action string) error {
	return wrap(ClassContract, err, component, operation, action)
}

// WrapIO wraps err as an infrastructure failure.
func WrapIO(err error, component, operation, action string) error {
	return wrap(ClassIO, err, component, operation, action)
}

// WrapDecode wraps err as a per-record decode failure.
func WrapDecode(err error, component, operation, action string) error {
	return wrap(ClassDecode, err, component, operation, action)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool { return errors.As(err, target) }

// New returns an error that formats as the given text.
func New(text string) error { return errors.New(text) }

// Join returns an error that wraps the given errors.
func Join(errs ...error) error { return errors.Join(errs...) }
