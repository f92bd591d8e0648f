// Package pebble stores records in a Pebble database directory. Records are
// kept under big-endian index keys so iteration order is record order, and
// the record count is kept under a metadata key.
//
// A database is a directory, so the format only supports path based opening;
// binding a reader or writer to a stream returns errors.ErrUnsupported.
package pebble

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/cockroachdb/pebble"

	chemerrors "github.com/davidvella/chemio/errors"
	"github.com/davidvella/chemio/codec"
	"github.com/davidvella/chemio/format"
	"github.com/davidvella/chemio/handler"
	"github.com/davidvella/chemio/record"
)

var (
	ErrNotDatabase = errors.New("pebble: not a record database")
	ErrCorrupted   = errors.New("pebble: record missing from database")
)

// Key layout.
var (
	recordPrefix = []byte("r/")
	countKey     = []byte("m/count")
)

// StorageOptions configures the database.
type StorageOptions struct {
	// BatchSize is the number of records committed per batch.
	BatchSize    int
	CacheSize    int64
	MaxOpenFiles int
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() StorageOptions {
	return StorageOptions{
		BatchSize:    1000,
		CacheSize:    8 << 20,
		MaxOpenFiles: 100,
	}
}

func (o StorageOptions) withDefaults() StorageOptions {
	d := DefaultOptions()
	if o.BatchSize <= 0 {
		o.BatchSize = d.BatchSize
	}
	if o.CacheSize <= 0 {
		o.CacheSize = d.CacheSize
	}
	if o.MaxOpenFiles <= 0 {
		o.MaxOpenFiles = d.MaxOpenFiles
	}
	return o
}

func recordKey(idx int64) []byte {
	key := make([]byte, len(recordPrefix)+8)
	copy(key, recordPrefix)
	binary.BigEndian.PutUint64(key[len(recordPrefix):], uint64(idx))
	return key
}

func encodeCount(n int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(n))
	return b
}

func open(path string, opts StorageOptions, readOnly bool) (*pebble.DB, *pebble.Cache, error) {
	cache := pebble.NewCache(opts.CacheSize)
	db, err := pebble.Open(path, &pebble.Options{
		Cache:            cache,
		MaxOpenFiles:     opts.MaxOpenFiles,
		ReadOnly:         readOnly,
		ErrorIfNotExists: readOnly,
	})
	if err != nil {
		cache.Unref()
		return nil, nil, err
	}
	return db, cache, nil
}

func readCount(db *pebble.DB) (int64, bool, error) {
	value, closer, err := db.Get(countKey)
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to load record count: %w", err)
	}
	defer closer.Close()

	if len(value) != 8 {
		return 0, false, ErrNotDatabase
	}
	return int64(binary.BigEndian.Uint64(value)), true, nil
}

// Source reads records from a database opened read-only.
type Source[T any] struct {
	db    *pebble.DB
	cache *pebble.Cache
	codec codec.Codec[T]
	count int64
}

// OpenSource opens the database at path for reading.
func OpenSource[T any](path string, c codec.Codec[T], opts StorageOptions) (*Source[T], error) {
	db, cache, err := open(path, opts.withDefaults(), true)
	if err != nil {
		return nil, err
	}

	count, ok, err := readCount(db)
	if err == nil && !ok {
		err = ErrNotDatabase
	}
	if err != nil {
		_ = db.Close()
		cache.Unref()
		return nil, err
	}

	return &Source[T]{db: db, cache: cache, codec: c, count: count}, nil
}

func (s *Source[T]) Decode(idx int64, obj *T) error {
	if idx < 0 || idx >= s.count {
		return chemerrors.ErrOutOfRecords
	}

	value, closer, err := s.db.Get(recordKey(idx))
	if errors.Is(err, pebble.ErrNotFound) {
		return fmt.Errorf("record %d: %w", idx, ErrCorrupted)
	}
	if err != nil {
		return fmt.Errorf("failed to load record %d: %w", idx, err)
	}
	defer closer.Close()

	if err := s.codec.Unmarshal(value, obj); err != nil {
		return chemerrors.WrapDecode(err, "pebble", "Decode", fmt.Sprintf("unmarshal record %d", idx))
	}
	return nil
}

func (s *Source[T]) Has(idx int64) (bool, error) {
	return idx >= 0 && idx < s.count, nil
}

func (s *Source[T]) Count(progress record.ProgressFunc) (int64, error) {
	if !progress(1) {
		return 0, chemerrors.ErrCancelled
	}
	return s.count, nil
}

func (s *Source[T]) Close() error {
	err := s.db.Close()
	s.cache.Unref()
	return err
}

// Sink writes records in batches. The record count is committed with every
// batch, so a flushed database is readable even if the sink is never closed.
type Sink[T any] struct {
	db        *pebble.DB
	cache     *pebble.Cache
	codec     codec.Codec[T]
	batch     *pebble.Batch
	batchSize int
	count     int64
}

// CreateSink opens the database at path for writing. Without appendMode an
// existing database is removed first; with it, records are added after the
// existing ones.
func CreateSink[T any](path string, c codec.Codec[T], opts StorageOptions, appendMode bool) (*Sink[T], error) {
	opts = opts.withDefaults()

	if !appendMode {
		if err := os.RemoveAll(path); err != nil {
			return nil, fmt.Errorf("failed to truncate database: %w", err)
		}
	}

	db, cache, err := open(path, opts, false)
	if err != nil {
		return nil, err
	}

	count, _, err := readCount(db)
	if err != nil {
		_ = db.Close()
		cache.Unref()
		return nil, err
	}

	return &Sink[T]{
		db:        db,
		cache:     cache,
		codec:     c,
		batch:     db.NewBatch(),
		batchSize: opts.BatchSize,
		count:     count,
	}, nil
}

func (s *Sink[T]) Encode(obj T) error {
	value, err := s.codec.Marshal(obj)
	if err != nil {
		return chemerrors.WrapDecode(err, "pebble", "Encode", "marshal record")
	}

	if err := s.batch.Set(recordKey(s.count), value, nil); err != nil {
		return err
	}
	s.count++

	if int(s.batch.Count()) >= s.batchSize {
		return s.commit(pebble.NoSync)
	}
	return nil
}

func (s *Sink[T]) commit(opts *pebble.WriteOptions) error {
	if err := s.batch.Set(countKey, encodeCount(s.count), nil); err != nil {
		return err
	}
	if err := s.batch.Commit(opts); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	s.batch.Reset()
	return nil
}

func (s *Sink[T]) Flush() error {
	return s.commit(pebble.Sync)
}

func (s *Sink[T]) Close(record.ProgressFunc) error {
	err := errors.Join(s.commit(pebble.Sync), s.batch.Close(), s.db.Close())
	s.cache.Unref()
	return err
}

// InputHandler returns a path-only input handler for format f.
func InputHandler[T any](f format.Format, c codec.Codec[T], opts StorageOptions) *handler.Input[T] {
	return &handler.Input[T]{
		Fmt: f,
		Open: func(path string, _ handler.OpenMode) (record.Reader[T], error) {
			src, err := OpenSource(path, c, opts)
			if err != nil {
				return nil, err
			}
			return record.NewIndexedReader[T](src), nil
		},
	}
}

// OutputHandler returns a path-only output handler for format f.
func OutputHandler[T any](f format.Format, c codec.Codec[T], opts StorageOptions) *handler.Output[T] {
	return &handler.Output[T]{
		Fmt: f,
		Open: func(path string, mode handler.OpenMode) (record.Writer[T], error) {
			sink, err := CreateSink(path, c, opts, mode.Has(handler.ModeAppend))
			if err != nil {
				return nil, err
			}
			return record.NewStreamWriter[T](sink), nil
		},
	}
}
