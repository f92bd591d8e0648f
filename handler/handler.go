// Package handler defines the factory capabilities format plugins provide:
// an InputHandler builds readers and an OutputHandler builds writers for
// one format.
//
// Handlers are immutable and stateless with respect to the readers and
// writers they create, so they can be shared between concurrently running
// tasks. Each creation yields an independent instance.
package handler

import (
	"io"

	"github.com/davidvella/chemio/errors"
	"github.com/davidvella/chemio/format"
	"github.com/davidvella/chemio/record"
	"github.com/davidvella/chemio/storage/local"
)

// OpenMode is a bit set describing how a path is opened.
type OpenMode int

const (
	ModeRead OpenMode = 1 << iota
	ModeWrite
	ModeAppend
	ModeTruncate

	// ModeDefaultWrite truncates an existing output file.
	ModeDefaultWrite = ModeWrite | ModeTruncate
)

// Has reports whether every bit of flag is set in m.
func (m OpenMode) Has(flag OpenMode) bool {
	return m&flag == flag
}

// InputHandler creates readers for one format.
type InputHandler[T any] interface {
	Format() format.Format
	// NewReader binds a reader to r. Structural mismatches may only be
	// detected on the first read.
	NewReader(r io.Reader) (record.Reader[T], error)
	OpenReader(path string, mode OpenMode) (record.Reader[T], error)
}

// OutputHandler creates writers for one format.
type OutputHandler[T any] interface {
	Format() format.Format
	NewWriter(w io.Writer) (record.Writer[T], error)
	OpenWriter(path string, mode OpenMode) (record.Writer[T], error)
}

// Detector is implemented by input handlers that can recognise their format
// from the first bytes of a stream. It is used when probing. known is false
// when the handler cannot tell from the header alone.
type Detector interface {
	Detect(header []byte) (match, known bool)
}

// Input builds an InputHandler from a stream factory.
type Input[T any] struct {
	Fmt format.Format
	// New binds a reader to a stream. It owns the stream if it implements io.Closer.
	New func(r io.Reader) (record.Reader[T], error)
	// Open overrides path based opening. Defaults to local.Open followed by New.
	Open func(path string, mode OpenMode) (record.Reader[T], error)
	// DetectFunc optionally recognises the format from a stream header.
	DetectFunc func(header []byte) bool
}

func (h *Input[T]) Format() format.Format {
	return h.Fmt
}

func (h *Input[T]) NewReader(r io.Reader) (record.Reader[T], error) {
	if h.New == nil {
		return nil, errors.Wrap(errors.ErrUnsupported, "InputHandler", "NewReader", h.Fmt.Name()+" from stream")
	}
	rd, err := h.New(r)
	if err != nil {
		return nil, errors.WrapIO(err, "InputHandler", "NewReader", "create "+h.Fmt.Name()+" reader")
	}
	return rd, nil
}

func (h *Input[T]) OpenReader(path string, mode OpenMode) (record.Reader[T], error) {
	if h.Open != nil {
		rd, err := h.Open(path, mode)
		if err != nil {
			return nil, errors.WrapIO(err, "InputHandler", "OpenReader", "open "+path)
		}
		return rd, nil
	}

	rc, err := local.Open(path)
	if err != nil {
		return nil, errors.WrapIO(err, "InputHandler", "OpenReader", "open "+path)
	}
	rd, err := h.NewReader(rc)
	if err != nil {
		_ = rc.Close()
		return nil, err
	}
	return rd, nil
}

func (h *Input[T]) Detect(header []byte) (match, known bool) {
	if h.DetectFunc == nil {
		return false, false
	}
	return h.DetectFunc(header), true
}

// Output builds an OutputHandler from a stream factory.
type Output[T any] struct {
	Fmt format.Format
	// New binds a writer to a stream. It owns the stream if it implements io.Closer.
	New func(w io.Writer) (record.Writer[T], error)
	// Open overrides path based opening. Defaults to local.Create followed by New.
	Open func(path string, mode OpenMode) (record.Writer[T], error)
}

func (h *Output[T]) Format() format.Format {
	return h.Fmt
}

func (h *Output[T]) NewWriter(w io.Writer) (record.Writer[T], error) {
	if h.New == nil {
		return nil, errors.Wrap(errors.ErrUnsupported, "OutputHandler", "NewWriter", h.Fmt.Name()+" to stream")
	}
	wr, err := h.New(w)
	if err != nil {
		return nil, errors.WrapIO(err, "OutputHandler", "NewWriter", "create "+h.Fmt.Name()+" writer")
	}
	return wr, nil
}

func (h *Output[T]) OpenWriter(path string, mode OpenMode) (record.Writer[T], error) {
	if h.Open != nil {
		wr, err := h.Open(path, mode)
		if err != nil {
			return nil, errors.WrapIO(err, "OutputHandler", "OpenWriter", "open "+path)
		}
		return wr, nil
	}

	wc, err := local.Create(path, mode.Has(ModeAppend))
	if err != nil {
		return nil, errors.WrapIO(err, "OutputHandler", "OpenWriter", "create "+path)
	}
	wr, err := h.NewWriter(wc)
	if err != nil {
		_ = wc.Close()
		return nil, err
	}
	return wr, nil
}
