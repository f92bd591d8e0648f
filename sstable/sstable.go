package sstable

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"
	"sort"

	"github.com/google/btree"

	chemerrors "github.com/davidvella/chemio/errors"
	"github.com/davidvella/chemio/codec"
	"github.com/davidvella/chemio/format"
	"github.com/davidvella/chemio/handler"
	"github.com/davidvella/chemio/record"
	"github.com/davidvella/chemio/recordio"
	"github.com/davidvella/chemio/storage/local"
)

// Common errors that can be returned by SSTable operations.
var (
	ErrTableClosed    = errors.New("sstable: table already closed")
	ErrKeyNotFound    = fmt.Errorf("sstable: key not found: %w", chemerrors.ErrNotFound)
	ErrCorruptedTable = errors.New("sstable: corrupted table data")
)

// File format constants.
const (
	magicHeader    = int64(0x53535442) // "SSTB" in hex
	magicFooter    = int64(0x454E4442) // "ENDB" in hex
	formatVersion  = int64(2)
	headerSize     = int64(16)
	footerSize     = int64(16)
	defaultBufSize = 52 * 1024
	btreeDegree    = 32
	progressEvery  = 1024
)

// KeyFunc extracts the sort key of a record.
type KeyFunc[T any] func(rec T) string

type indexEntry struct {
	key    string
	offset int64
}

// Source reads a table. The index is loaded when the source is created, so
// counting is free and every record is reachable by position or key.
type Source[T any] struct {
	rs     io.ReadSeeker
	buf    *BufferReaderSeeker
	closer io.Closer
	codec  codec.Codec[T]
	closed bool
	index  []indexEntry
}

// NewSource loads the table read from r. Streams that cannot seek are
// buffered in memory. The source closes r if it is an io.Closer.
func NewSource[T any](r io.Reader, c codec.Codec[T]) (*Source[T], error) {
	closer, _ := r.(io.Closer)

	rs, err := local.Seekable(r)
	if err != nil {
		return nil, err
	}

	s := &Source[T]{
		rs:     rs,
		buf:    NewReadSeeker(rs, defaultBufSize),
		closer: closer,
		codec:  c,
	}
	if err := s.loadTable(); err != nil {
		return nil, fmt.Errorf("sstable: failed to load table: %w", err)
	}
	return s, nil
}

func (s *Source[T]) loadTable() error {
	size, err := s.rs.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	if size < headerSize+footerSize {
		return ErrCorruptedTable
	}

	if err := s.checkHeader(); err != nil {
		return err
	}

	indexOffset, err := s.extractIndexOffset()
	if err != nil {
		return err
	}
	if indexOffset < headerSize || indexOffset > size-footerSize {
		return ErrCorruptedTable
	}

	return s.readIndex(indexOffset, size-footerSize)
}

func (s *Source[T]) checkHeader() error {
	if _, err := s.buf.Seek(0, io.SeekStart); err != nil {
		return err
	}

	header, err := readInt64(s.buf)
	if err != nil {
		return fmt.Errorf("sstable: invalid header: %w", err)
	}
	if header != magicHeader {
		return ErrCorruptedTable
	}

	version, err := readInt64(s.buf)
	if err != nil {
		return fmt.Errorf("sstable: invalid version: %w", err)
	}
	if version != formatVersion {
		return fmt.Errorf("sstable: unsupported version %d", version)
	}
	return nil
}

// extractIndexOffset reads the index offset from the footer.
func (s *Source[T]) extractIndexOffset() (int64, error) {
	if _, err := s.buf.Seek(-footerSize, io.SeekEnd); err != nil {
		return 0, err
	}

	indexOffset, err := readInt64(s.buf)
	if err != nil {
		return 0, err
	}

	footer, err := readInt64(s.buf)
	if err != nil {
		return 0, err
	}
	if footer != magicFooter {
		return 0, ErrCorruptedTable
	}
	return indexOffset, nil
}

func (s *Source[T]) readIndex(indexOffset, dataEnd int64) error {
	if _, err := s.buf.Seek(indexOffset, io.SeekStart); err != nil {
		return err
	}

	count, err := readInt64(s.buf)
	if err != nil {
		return fmt.Errorf("sstable: invalid index count: %w", err)
	}
	// Every entry takes at least 16 bytes.
	if count < 0 || count > (dataEnd-indexOffset)/16 {
		return ErrCorruptedTable
	}

	s.index = make([]indexEntry, 0, count)
	for i := int64(0); i < count; i++ {
		key, err := readString(s.buf)
		if err != nil {
			return fmt.Errorf("sstable: invalid index key: %w", err)
		}
		offset, err := readInt64(s.buf)
		if err != nil {
			return fmt.Errorf("sstable: invalid index offset: %w", err)
		}
		if offset < headerSize || offset >= indexOffset {
			return ErrCorruptedTable
		}
		s.index = append(s.index, indexEntry{key: key, offset: offset})
	}
	return nil
}

func (s *Source[T]) Decode(idx int64, obj *T) error {
	if s.closed {
		return ErrTableClosed
	}
	if idx < 0 || idx >= int64(len(s.index)) {
		return chemerrors.ErrOutOfRecords
	}
	return s.decodeAt(s.index[idx].offset, obj)
}

func (s *Source[T]) decodeAt(offset int64, obj *T) error {
	if _, err := s.buf.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("sstable: seek error: %w", err)
	}

	payload, err := recordio.ReadFrame(s.buf)
	if err != nil {
		return fmt.Errorf("sstable: record parse error: %w", err)
	}

	if err := s.codec.Unmarshal(payload, obj); err != nil {
		return chemerrors.WrapDecode(err, "sstable", "Decode", fmt.Sprintf("unmarshal record at offset %d", offset))
	}
	return nil
}

func (s *Source[T]) Has(idx int64) (bool, error) {
	return idx >= 0 && idx < int64(len(s.index)), nil
}

func (s *Source[T]) Count(progress record.ProgressFunc) (int64, error) {
	if !progress(1) {
		return 0, chemerrors.ErrCancelled
	}
	return int64(len(s.index)), nil
}

// Get decodes the first record stored under key.
func (s *Source[T]) Get(key string, obj *T) error {
	if s.closed {
		return ErrTableClosed
	}

	i := s.search(key)
	if i == len(s.index) || s.index[i].key != key {
		return ErrKeyNotFound
	}
	return s.decodeAt(s.index[i].offset, obj)
}

// search performs a binary search over the index for the first entry not
// less than key.
func (s *Source[T]) search(key string) int {
	return sort.Search(len(s.index), func(i int) bool {
		return s.index[i].key >= key
	})
}

// Key returns the key of record idx.
func (s *Source[T]) Key(idx int64) (string, error) {
	if idx < 0 || idx >= int64(len(s.index)) {
		return "", chemerrors.ErrOutOfRecords
	}
	return s.index[idx].key, nil
}

// Keys iterates over the record positions and keys in table order.
func (s *Source[T]) Keys() iter.Seq2[int64, string] {
	return func(yield func(int64, string) bool) {
		for i, e := range s.index {
			if !yield(int64(i), e.key) {
				return
			}
		}
	}
}

func (s *Source[T]) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

type item struct {
	key     string
	seq     uint64
	payload []byte
}

// itemLess orders by key and keeps duplicate keys in insertion order.
func itemLess(a, b item) bool {
	if a.key != b.key {
		return a.key < b.key
	}
	return a.seq < b.seq
}

// Sink collects encoded records in a btree and writes the sorted table
// when closed. Nothing reaches the underlying stream before Close.
type Sink[T any] struct {
	w      io.Writer
	closer io.Closer
	codec  codec.Codec[T]
	key    KeyFunc[T]
	items  *btree.BTreeG[item]
	seq    uint64
	closed bool
}

// NewSink returns a sink writing the table to w. The sink closes w if it is
// an io.Closer.
func NewSink[T any](w io.Writer, c codec.Codec[T], key KeyFunc[T]) *Sink[T] {
	closer, _ := w.(io.Closer)
	return &Sink[T]{
		w:      w,
		closer: closer,
		codec:  c,
		key:    key,
		items:  btree.NewG[item](btreeDegree, itemLess),
	}
}

func (s *Sink[T]) Encode(obj T) error {
	if s.closed {
		return ErrTableClosed
	}

	payload, err := s.codec.Marshal(obj)
	if err != nil {
		return chemerrors.WrapDecode(err, "sstable", "Encode", "marshal record")
	}

	s.items.ReplaceOrInsert(item{key: s.key(obj), seq: s.seq, payload: payload})
	s.seq++
	return nil
}

// Flush is a no-op: records are only sorted and written on Close.
func (s *Sink[T]) Flush() error {
	return nil
}

func (s *Sink[T]) Close(progress record.ProgressFunc) error {
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.writeTable(progress)
	s.items.Clear(false)
	if s.closer != nil {
		err = errors.Join(err, s.closer.Close())
	}
	return err
}

func (s *Sink[T]) writeTable(progress record.ProgressFunc) error {
	buf := bufio.NewWriterSize(s.w, defaultBufSize)

	if err := writeHeader(buf); err != nil {
		return fmt.Errorf("sstable: failed to write header: %w", err)
	}

	var (
		total  = s.items.Len()
		index  = make([]indexEntry, 0, total)
		offset = headerSize
		err    error
	)
	s.items.Ascend(func(it item) bool {
		n, werr := recordio.Write(buf, it.payload)
		if werr != nil {
			err = werr
			return false
		}
		index = append(index, indexEntry{key: it.key, offset: offset})
		offset += n

		if progress != nil && len(index)%progressEvery == 0 {
			if !progress(float64(len(index)) / float64(total)) {
				err = chemerrors.ErrCancelled
				return false
			}
		}
		return true
	})
	if err != nil {
		return err
	}

	if err := writeIndex(buf, index, offset); err != nil {
		return fmt.Errorf("sstable: failed to write index: %w", err)
	}
	return buf.Flush()
}

// writeHeader writes the SSTable header.
func writeHeader(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, magicHeader); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, formatVersion)
}

// writeIndex writes the dense index followed by the footer.
func writeIndex(w io.Writer, index []indexEntry, indexOffset int64) error {
	if err := binary.Write(w, binary.LittleEndian, int64(len(index))); err != nil {
		return err
	}
	for _, e := range index {
		if err := writeString(w, e.key); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, e.offset); err != nil {
			return err
		}
	}

	if err := binary.Write(w, binary.LittleEndian, indexOffset); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, magicFooter)
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, int64(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readInt64(r io.Reader) (int64, error) {
	var v int64
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readString(r io.Reader) (string, error) {
	n, err := readInt64(r)
	if err != nil {
		return "", err
	}
	if n < 0 || n > recordio.MaxPayloadSize {
		return "", ErrCorruptedTable
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

// NewReader returns a record reader over the table read from r.
func NewReader[T any](r io.Reader, c codec.Codec[T]) (*record.IndexedReader[T], error) {
	src, err := NewSource(r, c)
	if err != nil {
		return nil, err
	}
	return record.NewIndexedReader[T](src), nil
}

// NewWriter returns a record writer producing a table on w, sorted by key.
func NewWriter[T any](w io.Writer, c codec.Codec[T], key KeyFunc[T]) *record.StreamWriter[T] {
	return record.NewStreamWriter[T](NewSink(w, c, key))
}

// Detect reports whether header starts with the table magic.
func Detect(header []byte) bool {
	return len(header) >= 8 && int64(binary.LittleEndian.Uint64(header)) == magicHeader
}

// InputHandler returns an input handler reading format f with codec c.
func InputHandler[T any](f format.Format, c codec.Codec[T]) *handler.Input[T] {
	return &handler.Input[T]{
		Fmt: f,
		New: func(r io.Reader) (record.Reader[T], error) {
			return NewReader(r, c)
		},
		DetectFunc: Detect,
	}
}

// OutputHandler returns an output handler writing format f with codec c,
// sorting records by key.
func OutputHandler[T any](f format.Format, c codec.Codec[T], key KeyFunc[T]) *handler.Output[T] {
	return &handler.Output[T]{
		Fmt: f,
		New: func(w io.Writer) (record.Writer[T], error) {
			return NewWriter(w, c, key), nil
		},
	}
}
