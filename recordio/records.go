package recordio

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	chemerrors "github.com/davidvella/chemio/errors"
	"github.com/davidvella/chemio/codec"
	"github.com/davidvella/chemio/format"
	"github.com/davidvella/chemio/handler"
	"github.com/davidvella/chemio/record"
	"github.com/davidvella/chemio/storage/local"
)

// progressEvery is the number of frames scanned between progress reports.
const progressEvery = 1024

type frame struct {
	offset int64
	length int64
}

// Source decodes records from a recordio stream. The frame table is built
// lazily: reads extend it as far as they need and counting completes it.
type Source[T any] struct {
	rs     io.ReadSeeker
	closer io.Closer
	codec  codec.Codec[T]

	frames   []frame
	next     int64
	complete bool
	size     int64
}

// NewSource returns a source reading r. Streams that cannot seek are
// buffered in memory. The source closes r if it is an io.Closer.
func NewSource[T any](r io.Reader, c codec.Codec[T]) (*Source[T], error) {
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

	return &Source[T]{rs: rs, closer: closer, codec: c, size: size}, nil
}

// scanTo extends the frame table until it holds idx or the input ends.
func (s *Source[T]) scanTo(idx int64, progress record.ProgressFunc) error {
	for !s.complete && int64(len(s.frames)) <= idx {
		if _, err := s.rs.Seek(s.next, io.SeekStart); err != nil {
			return fmt.Errorf("failed to seek to frame %d: %w", len(s.frames), err)
		}

		length, err := readHeader(s.rs)
		if errors.Is(err, io.EOF) {
			s.complete = true
			break
		}
		if err != nil {
			return fmt.Errorf("corrupt frame %d at offset %d: %w", len(s.frames), s.next, err)
		}

		end := s.next + HeaderSize + length
		if end > s.size {
			return fmt.Errorf("corrupt frame %d at offset %d: %w", len(s.frames), s.next, io.ErrUnexpectedEOF)
		}

		s.frames = append(s.frames, frame{offset: s.next + HeaderSize, length: length})
		s.next = end

		if progress != nil && len(s.frames)%progressEvery == 0 && s.size > 0 {
			if !progress(float64(s.next) / float64(s.size)) {
				return chemerrors.ErrCancelled
			}
		}
	}
	return nil
}

func (s *Source[T]) Decode(idx int64, obj *T) error {
	if idx < 0 {
		return chemerrors.ErrOutOfRecords
	}
	if err := s.scanTo(idx, nil); err != nil {
		return err
	}
	if idx >= int64(len(s.frames)) {
		return chemerrors.ErrOutOfRecords
	}

	f := s.frames[idx]
	if _, err := s.rs.Seek(f.offset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to record %d: %w", idx, err)
	}
	payload := make([]byte, f.length)
	if _, err := io.ReadFull(s.rs, payload); err != nil {
		return fmt.Errorf("error reading record %d: %w", idx, err)
	}

	if err := s.codec.Unmarshal(payload, obj); err != nil {
		return chemerrors.WrapDecode(err, "recordio", "Decode", fmt.Sprintf("unmarshal record %d", idx))
	}
	return nil
}

func (s *Source[T]) Has(idx int64) (bool, error) {
	if idx < 0 {
		return false, nil
	}
	if err := s.scanTo(idx, nil); err != nil {
		return false, err
	}
	return idx < int64(len(s.frames)), nil
}

func (s *Source[T]) Count(progress record.ProgressFunc) (int64, error) {
	if err := s.scanTo(int64(^uint64(0)>>1), progress); err != nil {
		return 0, err
	}
	if !progress(1) {
		return 0, chemerrors.ErrCancelled
	}
	return int64(len(s.frames)), nil
}

func (s *Source[T]) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// Sink encodes records as frames.
type Sink[T any] struct {
	bw     *bufio.Writer
	closer io.Closer
	codec  codec.Codec[T]
}

// NewSink returns a sink writing to w. The sink closes w if it is an
// io.Closer.
func NewSink[T any](w io.Writer, c codec.Codec[T]) *Sink[T] {
	closer, _ := w.(io.Closer)
	return &Sink[T]{bw: bufio.NewWriter(w), closer: closer, codec: c}
}

func (s *Sink[T]) Encode(obj T) error {
	payload, err := s.codec.Marshal(obj)
	if err != nil {
		return chemerrors.WrapDecode(err, "recordio", "Encode", "marshal record")
	}
	_, err = Write(s.bw, payload)
	return err
}

func (s *Sink[T]) Flush() error {
	return s.bw.Flush()
}

func (s *Sink[T]) Close(record.ProgressFunc) error {
	err := s.bw.Flush()
	if s.closer != nil {
		err = errors.Join(err, s.closer.Close())
	}
	return err
}

// NewReader returns a record reader over r.
func NewReader[T any](r io.Reader, c codec.Codec[T]) (*record.IndexedReader[T], error) {
	src, err := NewSource(r, c)
	if err != nil {
		return nil, err
	}
	return record.NewIndexedReader[T](src), nil
}

// NewWriter returns a record writer appending frames to w.
func NewWriter[T any](w io.Writer, c codec.Codec[T]) *record.StreamWriter[T] {
	return record.NewStreamWriter[T](NewSink(w, c))
}

// InputHandler returns an input handler reading format f with codec c.
// Streams are recognised by the frame magic.
func InputHandler[T any](f format.Format, c codec.Codec[T]) *handler.Input[T] {
	return &handler.Input[T]{
		Fmt: f,
		New: func(r io.Reader) (record.Reader[T], error) {
			return NewReader(r, c)
		},
		DetectFunc: func(header []byte) bool {
			return bytes.HasPrefix(header, MagicBytes)
		},
	}
}

// OutputHandler returns an output handler writing format f with codec c.
func OutputHandler[T any](f format.Format, c codec.Codec[T]) *handler.Output[T] {
	return &handler.Output[T]{
		Fmt: f,
		New: func(w io.Writer) (record.Writer[T], error) {
			return NewWriter(w, c), nil
		},
	}
}
