package registry

import (
	"fmt"
	"io"

	"github.com/davidvella/chemio/errors"
	"github.com/davidvella/chemio/format"
	"github.com/davidvella/chemio/handler"
	"github.com/davidvella/chemio/record"
	"github.com/davidvella/chemio/storage/local"
)

const probeHeaderSize = 512

// ResolveInput finds the input handler for path. An explicit format name
// takes precedence, then the file extension (ignoring compression suffixes),
// then probing the file content against every handler in order.
func (r *Registry[T]) ResolveInput(path, formatName string) (handler.InputHandler[T], error) {
	if formatName != "" {
		if h, ok := r.InputHandlerByName(formatName); ok {
			return h, nil
		}
		return nil, errors.WrapNotFound(fmt.Errorf("unsupported input format %q: %w", formatName, errors.ErrNotFound),
			"Registry", "ResolveInput", "lookup by name")
	}

	if ext := format.Ext(path); ext != "" {
		if h, ok := r.InputHandlerByFileExtension(ext); ok {
			return h, nil
		}
	}

	if path == "-" {
		return nil, errors.WrapNotFound(fmt.Errorf("format of stdin must be given explicitly: %w", errors.ErrNotFound),
			"Registry", "ResolveInput", "lookup by extension")
	}

	rc, err := local.Open(path)
	if err != nil {
		return nil, errors.WrapIO(err, "Registry", "ResolveInput", "open for probing")
	}
	defer rc.Close()

	rs, err := local.Seekable(rc)
	if err != nil {
		return nil, errors.WrapIO(err, "Registry", "ResolveInput", "open for probing")
	}

	h, err := r.Probe(rs)
	if err != nil {
		return nil, errors.Wrap(err, "Registry", "ResolveInput", "probe "+path)
	}
	return h, nil
}

// ResolveOutput finds the output handler for path by explicit format name
// or by file extension.
func (r *Registry[T]) ResolveOutput(path, formatName string) (handler.OutputHandler[T], error) {
	if formatName != "" {
		if h, ok := r.OutputHandlerByName(formatName); ok {
			return h, nil
		}
		return nil, errors.WrapNotFound(fmt.Errorf("unsupported output format %q: %w", formatName, errors.ErrNotFound),
			"Registry", "ResolveOutput", "lookup by name")
	}

	ext := format.Ext(path)
	if h, ok := r.OutputHandlerByFileExtension(ext); ok && ext != "" {
		return h, nil
	}
	return nil, errors.WrapNotFound(fmt.Errorf("no output format for %q: %w", path, errors.ErrNotFound),
		"Registry", "ResolveOutput", "lookup by extension")
}

// Probe returns the first input handler accepting the data of rs. Handlers
// implementing handler.Detector decide from the stream header; the others
// must successfully read the first record. rs is rewound before returning.
func (r *Registry[T]) Probe(rs io.ReadSeeker) (handler.InputHandler[T], error) {
	header := make([]byte, probeHeaderSize)
	n, err := io.ReadFull(rs, header)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, errors.WrapIO(err, "Registry", "Probe", "read header")
	}
	header = header[:n]

	for _, h := range r.InputHandlers() {
		if d, ok := h.(handler.Detector); ok {
			if match, known := d.Detect(header); known {
				if match {
					return h, rewind(rs)
				}
				continue
			}
		}

		if err := rewind(rs); err != nil {
			return nil, err
		}
		if accepts[T](h, rs) {
			return h, rewind(rs)
		}
	}

	return nil, errors.WrapNotFound(fmt.Errorf("no handler accepts the data: %w", errors.ErrNotFound),
		"Registry", "Probe", "probe handlers")
}

// noClose hides the Close method of the probed stream from trial readers.
type noClose struct {
	io.ReadSeeker
}

func accepts[T any](h handler.InputHandler[T], rs io.ReadSeeker) bool {
	rd, err := h.NewReader(noClose{rs})
	if err != nil {
		return false
	}
	defer rd.Close()

	var v T
	return rd.Read(&v) == nil
}

func rewind(rs io.ReadSeeker) error {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return errors.WrapIO(err, "Registry", "Probe", "rewind stream")
	}
	return nil
}

// OpenInput resolves the input handler for path and opens a reader on it.
func (r *Registry[T]) OpenInput(path, formatName string) (record.Reader[T], error) {
	h, err := r.ResolveInput(path, formatName)
	if err != nil {
		return nil, err
	}
	return h.OpenReader(path, handler.ModeRead)
}

// OpenOutput resolves the output handler for path and opens a writer on it.
func (r *Registry[T]) OpenOutput(path, formatName string, mode handler.OpenMode) (record.Writer[T], error) {
	h, err := r.ResolveOutput(path, formatName)
	if err != nil {
		return nil, err
	}
	return h.OpenWriter(path, mode)
}
