package chem

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	chemerrors "github.com/davidvella/chemio/errors"
	"github.com/davidvella/chemio/record"
	"github.com/davidvella/chemio/storage/local"
)

// progressEvery is the number of lines scanned between progress reports.
const progressEvery = 1024

// parseFunc decodes one non-blank line.
type parseFunc[T any] func(line []byte, obj *T) error

// formatFunc encodes one record as a single line without terminator.
type formatFunc[T any] func(obj T) ([]byte, error)

// lineSource serves one record per line. Blank lines and lines starting
// with '#' are not records. The line offset table is built lazily.
type lineSource[T any] struct {
	rs     io.ReadSeeker
	br     *bufio.Reader
	closer io.Closer
	parse  parseFunc[T]
	name   string

	offsets  []int64
	next     int64
	complete bool
	size     int64
}

func newLineSource[T any](r io.Reader, name string, parse parseFunc[T]) (*lineSource[T], error) {
	closer, _ := r.(io.Closer)

	rs, err := local.Seekable(r)
	if err != nil {
		return nil, err
	}
	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to determine stream size: %w", err)
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind stream: %w", err)
	}

	return &lineSource[T]{
		rs:     rs,
		br:     bufio.NewReader(rs),
		closer: closer,
		parse:  parse,
		name:   name,
		size:   size,
	}, nil
}

func isRecordLine(line []byte) bool {
	line = bytes.TrimSpace(line)
	return len(line) > 0 && line[0] != '#'
}

func (s *lineSource[T]) scanTo(idx int64, progress record.ProgressFunc) error {
	if s.complete || int64(len(s.offsets)) > idx {
		return nil
	}
	if _, err := s.rs.Seek(s.next, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to line at offset %d: %w", s.next, err)
	}
	s.br.Reset(s.rs)

	lines := 0
	for !s.complete && int64(len(s.offsets)) <= idx {
		line, err := s.br.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("error reading line at offset %d: %w", s.next, err)
		}
		if isRecordLine(line) {
			s.offsets = append(s.offsets, s.next)
		}
		s.next += int64(len(line))
		if err != nil {
			s.complete = true
		}

		lines++
		if progress != nil && lines%progressEvery == 0 && s.size > 0 {
			if !progress(float64(s.next) / float64(s.size)) {
				return chemerrors.ErrCancelled
			}
		}
	}
	return nil
}

func (s *lineSource[T]) Decode(idx int64, obj *T) error {
	if idx < 0 {
		return chemerrors.ErrOutOfRecords
	}
	if err := s.scanTo(idx, nil); err != nil {
		return err
	}
	if idx >= int64(len(s.offsets)) {
		return chemerrors.ErrOutOfRecords
	}

	offset := s.offsets[idx]
	if _, err := s.rs.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to record %d: %w", idx, err)
	}
	s.br.Reset(s.rs)

	line, err := s.br.ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("error reading record %d: %w", idx, err)
	}

	if err := s.parse(bytes.TrimSpace(line), obj); err != nil {
		return chemerrors.WrapDecode(err, s.name, "Decode", fmt.Sprintf("parse record %d", idx))
	}
	return nil
}

func (s *lineSource[T]) Has(idx int64) (bool, error) {
	if idx < 0 {
		return false, nil
	}
	if err := s.scanTo(idx, nil); err != nil {
		return false, err
	}
	return idx < int64(len(s.offsets)), nil
}

func (s *lineSource[T]) Count(progress record.ProgressFunc) (int64, error) {
	if err := s.scanTo(int64(^uint64(0)>>1), progress); err != nil {
		return 0, err
	}
	if !progress(1) {
		return 0, chemerrors.ErrCancelled
	}
	return int64(len(s.offsets)), nil
}

func (s *lineSource[T]) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// lineSink writes one record per line.
type lineSink[T any] struct {
	bw     *bufio.Writer
	closer io.Closer
	format formatFunc[T]
	name   string
}

func newLineSink[T any](w io.Writer, name string, format formatFunc[T]) *lineSink[T] {
	closer, _ := w.(io.Closer)
	return &lineSink[T]{bw: bufio.NewWriter(w), closer: closer, format: format, name: name}
}

func (s *lineSink[T]) Encode(obj T) error {
	line, err := s.format(obj)
	if err != nil {
		return chemerrors.WrapDecode(err, s.name, "Encode", "format record")
	}
	if _, err := s.bw.Write(line); err != nil {
		return err
	}
	return s.bw.WriteByte('\n')
}

func (s *lineSink[T]) Flush() error {
	return s.bw.Flush()
}

func (s *lineSink[T]) Close(record.ProgressFunc) error {
	err := s.bw.Flush()
	if s.closer != nil {
		err = errors.Join(err, s.closer.Close())
	}
	return err
}
