package record_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/davidvella/chemio/errors"
	"github.com/davidvella/chemio/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tags struct {
	Names []string
}

func (t *tags) Append(o tags) {
	t.Names = append(t.Names, o.Names...)
}

// fakeSource serves n records named "r<i>" with configurable failures.
type fakeSource struct {
	n         int64
	decodeBad map[int64]bool
	ioFailAt  int64
	steps     int
	closed    int
}

func (f *fakeSource) Decode(idx int64, obj *tags) error {
	if f.ioFailAt >= 0 && idx == f.ioFailAt {
		return stderrors.New("disk on fire")
	}
	if idx >= f.n {
		return errors.ErrOutOfRecords
	}
	if f.decodeBad[idx] {
		return errors.WrapDecode(fmt.Errorf("record %d: %w", idx, errors.ErrDecode), "fake", "Decode", "")
	}
	*obj = tags{Names: []string{fmt.Sprintf("r%d", idx)}}
	return nil
}

func (f *fakeSource) Has(idx int64) (bool, error) {
	return idx >= 0 && idx < f.n, nil
}

func (f *fakeSource) Count(progress record.ProgressFunc) (int64, error) {
	steps := f.steps
	if steps == 0 {
		steps = 1
	}
	for i := 1; i <= steps; i++ {
		if !progress(float64(i) / float64(steps)) {
			return 0, errors.ErrCancelled
		}
	}
	return f.n, nil
}

func (f *fakeSource) Close() error {
	f.closed++
	return nil
}

func newFake(n int64) *fakeSource {
	return &fakeSource{n: n, ioFailAt: -1, decodeBad: map[int64]bool{}}
}

func TestIndexedReaderSequential(t *testing.T) {
	r := record.NewIndexedReader[tags](newFake(3))

	var got []string
	for r.HasMoreData() {
		var v tags
		require.NoError(t, r.Read(&v))
		got = append(got, v.Names...)
	}

	assert.Equal(t, []string{"r0", "r1", "r2"}, got)
	assert.Equal(t, int64(3), r.RecordIndex())
	assert.True(t, r.Good())

	var v tags
	err := r.Read(&v)
	assert.ErrorIs(t, err, errors.ErrOutOfRecords)
	assert.False(t, r.Good())
	assert.Equal(t, record.StateOpen, r.State())
	assert.Equal(t, int64(3), r.RecordIndex())
}

func TestIndexedReaderRandomAccess(t *testing.T) {
	r := record.NewIndexedReader[tags](newFake(5))

	var v tags
	require.NoError(t, r.ReadAt(3, &v))
	assert.Equal(t, []string{"r3"}, v.Names)
	assert.Equal(t, int64(4), r.RecordIndex())

	require.NoError(t, r.Skip())
	assert.Equal(t, int64(5), r.RecordIndex())
	assert.ErrorIs(t, r.Skip(), errors.ErrOutOfRecords)

	err := r.ReadAt(-1, &v)
	assert.True(t, errors.IsContract(err))
}

func TestIndexedReaderSetRecordIndex(t *testing.T) {
	r := record.NewIndexedReader[tags](newFake(4))

	require.NoError(t, r.SetRecordIndex(4))
	assert.Equal(t, int64(4), r.RecordIndex())
	assert.False(t, r.HasMoreData())

	require.NoError(t, r.SetRecordIndex(1))

	err := r.SetRecordIndex(5)
	assert.ErrorIs(t, err, errors.ErrIndexOutOfRange)
	assert.Equal(t, int64(1), r.RecordIndex())

	err = r.SetRecordIndex(-2)
	assert.ErrorIs(t, err, errors.ErrIndexOutOfRange)
	assert.Equal(t, int64(1), r.RecordIndex())
}

func TestIndexedReaderAppend(t *testing.T) {
	r := record.NewIndexedReader[tags](newFake(2))

	var v tags
	require.NoError(t, r.Read(&v))
	require.NoError(t, r.Read(&v, record.Overwrite(false)))
	assert.Equal(t, []string{"r0", "r1"}, v.Names)

	require.NoError(t, r.ReadAt(0, &v))
	assert.Equal(t, []string{"r0"}, v.Names)
}

func TestIndexedReaderDecodeErrorIsRecoverable(t *testing.T) {
	src := newFake(3)
	src.decodeBad[1] = true
	r := record.NewIndexedReader[tags](src)

	var v tags
	require.NoError(t, r.Read(&v))

	err := r.Read(&v)
	assert.True(t, errors.IsDecode(err))
	assert.False(t, r.Good())
	assert.Equal(t, int64(1), r.RecordIndex())

	require.NoError(t, r.SetRecordIndex(r.RecordIndex()+1))
	require.NoError(t, r.Read(&v))
	assert.Equal(t, []string{"r2"}, v.Names)
	assert.True(t, r.Good())
}

func TestIndexedReaderIOErrorIsTerminal(t *testing.T) {
	src := newFake(3)
	src.ioFailAt = 1
	r := record.NewIndexedReader[tags](src)

	var v tags
	require.NoError(t, r.Read(&v))

	err := r.Read(&v)
	require.Error(t, err)
	assert.True(t, errors.IsIO(err))
	assert.Equal(t, record.StateFailed, r.State())
	assert.False(t, r.HasMoreData())

	assert.Equal(t, err, r.ReadAt(0, &v))
	assert.Equal(t, err, r.Err())
}

func TestIndexedReaderNumRecordsProgress(t *testing.T) {
	src := newFake(7)
	src.steps = 4
	r := record.NewIndexedReader[tags](src)

	var seen []float64
	id := r.RegisterIOCallback(func(s record.Stream, progress float64) record.Action {
		assert.Same(t, r, s)
		seen = append(seen, progress)
		return record.Continue
	})

	n, err := r.NumRecords()
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, []float64{0.25, 0.5, 0.75, 1}, seen)

	// cached: no second scan
	n, err = r.NumRecords()
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Len(t, seen, 4)

	assert.True(t, r.UnregisterIOCallback(id))
	assert.False(t, r.UnregisterIOCallback(id))
}

func TestIndexedReaderNumRecordsAbort(t *testing.T) {
	src := newFake(7)
	src.steps = 10
	r := record.NewIndexedReader[tags](src)

	calls := 0
	r.RegisterIOCallback(func(record.Stream, float64) record.Action {
		calls++
		if calls == 3 {
			return record.Abort
		}
		return record.Continue
	})

	_, err := r.NumRecords()
	assert.True(t, errors.IsCancelled(err))
	assert.Equal(t, 3, calls)
	assert.Equal(t, record.StateOpen, r.State())
}

func TestIndexedReaderClose(t *testing.T) {
	src := newFake(2)
	r := record.NewIndexedReader[tags](src)
	r.RegisterIOCallback(func(record.Stream, float64) record.Action { return record.Continue })
	r.SetOwner("compound")

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	assert.Equal(t, 1, src.closed)
	assert.Equal(t, 0, r.NumIOCallbacks())
	assert.Nil(t, r.Owner())
	assert.Equal(t, record.StateClosed, r.State())

	var v tags
	assert.ErrorIs(t, r.Read(&v), errors.ErrClosed)
	assert.False(t, r.HasMoreData())
}

func TestMemoryReader(t *testing.T) {
	r := record.NewMemoryReader("a", "b")

	n, err := r.NumRecords()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var s string
	require.NoError(t, r.ReadAt(1, &s))
	assert.Equal(t, "b", s)

	// strings do not implement Appender: appending reads assign
	require.NoError(t, r.ReadAt(0, &s, record.Overwrite(false)))
	assert.Equal(t, "a", s)
}
