package pebble

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/davidvella/chemio/codec"
	"github.com/davidvella/chemio/errors"
	"github.com/davidvella/chemio/format"
	"github.com/davidvella/chemio/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEvent represents test data
type TestEvent struct {
	ID     string
	Value  float64
	Labels map[string]string
}

var dbFormat = format.New("MDB", "record database", "application/x-chemio-pebble", []string{"mdb"}, true)

func writeEvents(t *testing.T, path string, appendMode bool, opts StorageOptions, events ...TestEvent) {
	t.Helper()

	sink, err := CreateSink[TestEvent](path, codec.Gob[TestEvent]{}, opts, appendMode)
	require.NoError(t, err)
	for _, e := range events {
		require.NoError(t, sink.Encode(e))
	}
	require.NoError(t, sink.Close(nil))
}

func TestStorage_BasicOperations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.mdb")
	events := []TestEvent{
		{ID: "1", Value: 100, Labels: map[string]string{"region": "us"}},
		{ID: "2", Value: 200},
		{ID: "3", Value: 300},
	}
	writeEvents(t, path, false, StorageOptions{BatchSize: 2}, events...)

	src, err := OpenSource[TestEvent](path, codec.Gob[TestEvent]{}, StorageOptions{})
	require.NoError(t, err)
	defer src.Close()

	n, err := src.Count(func(float64) bool { return true })
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	for i, want := range events {
		var got TestEvent
		require.NoError(t, src.Decode(int64(i), &got))
		assert.Equal(t, want, got)
	}

	var got TestEvent
	assert.ErrorIs(t, src.Decode(3, &got), errors.ErrOutOfRecords)

	ok, err := src.Has(2)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStorage_AppendAndTruncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.mdb")

	writeEvents(t, path, false, StorageOptions{}, TestEvent{ID: "1"})
	writeEvents(t, path, true, StorageOptions{}, TestEvent{ID: "2"})

	src, err := OpenSource[TestEvent](path, codec.Gob[TestEvent]{}, StorageOptions{})
	require.NoError(t, err)
	var got TestEvent
	require.NoError(t, src.Decode(1, &got))
	assert.Equal(t, "2", got.ID)
	require.NoError(t, src.Close())

	writeEvents(t, path, false, StorageOptions{}, TestEvent{ID: "3"})

	src, err = OpenSource[TestEvent](path, codec.Gob[TestEvent]{}, StorageOptions{})
	require.NoError(t, err)
	defer src.Close()
	assert.Equal(t, int64(1), src.count)
}

func TestStorage_OpenMissing(t *testing.T) {
	_, err := OpenSource[TestEvent](filepath.Join(t.TempDir(), "missing.mdb"), codec.Gob[TestEvent]{}, StorageOptions{})
	assert.Error(t, err)
}

func TestStorage_NotRecordDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.mdb")
	db, cache, err := open(path, DefaultOptions(), false)
	require.NoError(t, err)
	require.NoError(t, db.Close())
	cache.Unref()

	_, err = OpenSource[TestEvent](path, codec.Gob[TestEvent]{}, StorageOptions{})
	assert.ErrorIs(t, err, ErrNotDatabase)
}

func TestStorage_FlushMakesRecordsVisible(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.mdb")

	sink, err := CreateSink[TestEvent](path, codec.Gob[TestEvent]{}, StorageOptions{}, false)
	require.NoError(t, err)
	require.NoError(t, sink.Encode(TestEvent{ID: "1"}))
	require.NoError(t, sink.Flush())

	count, ok, err := readCount(sink.db)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1), count)
	require.NoError(t, sink.Close(nil))
}

func TestHandlers(t *testing.T) {
	in := InputHandler[TestEvent](dbFormat, codec.JSON[TestEvent]{}, StorageOptions{})
	out := OutputHandler[TestEvent](dbFormat, codec.JSON[TestEvent]{}, StorageOptions{})
	path := filepath.Join(t.TempDir(), "events.mdb")

	w, err := out.OpenWriter(path, handler.ModeDefaultWrite)
	require.NoError(t, err)
	require.NoError(t, w.Write(TestEvent{ID: "a", Value: 1}))
	require.NoError(t, w.Write(TestEvent{ID: "b", Value: 2}))
	assert.Equal(t, int64(2), w.NumRecords())
	require.NoError(t, w.Close())

	r, err := in.OpenReader(path, handler.ModeRead)
	require.NoError(t, err)
	defer r.Close()

	var ids []string
	for r.HasMoreData() {
		var e TestEvent
		require.NoError(t, r.Read(&e))
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"a", "b"}, ids)

	_, err = in.NewReader(nil)
	assert.ErrorIs(t, err, errors.ErrUnsupported)
	_, err = out.NewWriter(io.Discard)
	assert.ErrorIs(t, err, errors.ErrUnsupported)
}
