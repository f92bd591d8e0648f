package record_test

import (
	stderrors "errors"
	"testing"

	"github.com/davidvella/chemio/errors"
	"github.com/davidvella/chemio/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSink struct {
	encodeErr error
	closeSeen []float64
}

func (f *failingSink) Encode(string) error { return f.encodeErr }
func (f *failingSink) Flush() error        { return nil }

func (f *failingSink) Close(progress record.ProgressFunc) error {
	for _, p := range []float64{0.5, 1} {
		f.closeSeen = append(f.closeSeen, p)
		if !progress(p) {
			return errors.ErrCancelled
		}
	}
	return nil
}

func TestStreamWriter(t *testing.T) {
	w, sink := record.NewMemoryWriter[string]()

	require.NoError(t, w.Write("CCO"))
	require.NoError(t, w.Write("c1ccccc1"))
	require.NoError(t, w.Flush())

	assert.Equal(t, int64(2), w.NumRecords())
	assert.Equal(t, int64(2), w.RecordIndex())
	assert.True(t, w.Good())

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.True(t, sink.Closed())
	assert.Equal(t, []string{"CCO", "c1ccccc1"}, sink.Records())
	assert.ErrorIs(t, w.Write("C"), errors.ErrClosed)
}

func TestStreamWriterEncodeFailures(t *testing.T) {
	t.Run("decode class keeps writer open", func(t *testing.T) {
		sink := &failingSink{encodeErr: errors.WrapDecode(stderrors.New("unencodable"), "x", "y", "")}
		w := record.NewStreamWriter[string](sink)

		err := w.Write("C")
		assert.True(t, errors.IsDecode(err))
		assert.False(t, w.Good())
		assert.Equal(t, record.StateOpen, w.State())
	})

	t.Run("io failure is terminal", func(t *testing.T) {
		sink := &failingSink{encodeErr: stderrors.New("broken pipe")}
		w := record.NewStreamWriter[string](sink)

		err := w.Write("C")
		assert.True(t, errors.IsIO(err))
		assert.Equal(t, record.StateFailed, w.State())
		assert.Equal(t, err, w.Write("C"))
		assert.Equal(t, err, w.Err())
	})
}

func TestStreamWriterCloseAfterFailure(t *testing.T) {
	sink := &failingSink{encodeErr: stderrors.New("broken pipe")}
	w := record.NewStreamWriter[string](sink)

	writeErr := w.Write("C")
	require.Error(t, writeErr)

	err := w.Close()
	assert.ErrorIs(t, err, writeErr)
	assert.True(t, errors.IsIO(err))
	assert.Equal(t, []float64{0.5, 1}, sink.closeSeen)
	assert.Equal(t, record.StateClosed, w.State())
	require.NoError(t, w.Close())
}

func TestStreamWriterCloseAbort(t *testing.T) {
	sink := &failingSink{}
	w := record.NewStreamWriter[string](sink)
	w.RegisterIOCallback(func(_ record.Stream, p float64) record.Action {
		if p >= 1 {
			return record.Abort
		}
		return record.Continue
	})

	err := w.Close()
	assert.True(t, errors.IsCancelled(err))
	assert.Equal(t, []float64{0.5, 1}, sink.closeSeen)
	assert.Equal(t, record.StateClosed, w.State())
}
