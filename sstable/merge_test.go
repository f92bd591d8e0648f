package sstable_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidvella/chemio/codec"
	"github.com/davidvella/chemio/errors"
	"github.com/davidvella/chemio/record"
	"github.com/davidvella/chemio/sstable"
)

func mergeIDs(t *testing.T, opts []sstable.MergeOption, tables ...[]byte) ([]entry, error) {
	t.Helper()

	var sources []*sstable.Source[entry]
	for _, data := range tables {
		src := openSource(t, data)
		t.Cleanup(func() { _ = src.Close() })
		sources = append(sources, src)
	}

	w, sink := record.NewMemoryWriter[entry]()
	n, err := sstable.Merge[entry](context.Background(), w, sources, opts...)
	got := sink.Records()
	assert.Equal(t, int64(len(got)), n)
	return got, err
}

func ids(entries []entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestMergeOrdersAcrossTables(t *testing.T) {
	a := writeTable(t, newTestEntry("d", nil), newTestEntry("a", nil))
	b := writeTable(t, newTestEntry("c", nil), newTestEntry("b", nil), newTestEntry("e", nil))
	empty := writeTable(t)

	got, err := mergeIDs(t, nil, a, empty, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids(got))
}

func TestMergeDuplicateKeys(t *testing.T) {
	a := writeTable(t, newTestEntry("k", []byte("a1")), newTestEntry("k", []byte("a2")))
	b := writeTable(t, newTestEntry("k", []byte("b1")), newTestEntry("j", []byte("b0")))

	tests := []struct {
		name string
		opts []sstable.MergeOption
		want []string
	}{
		{name: "keep all", want: []string{"b0", "a1", "a2", "b1"}},
		{name: "unique", opts: []sstable.MergeOption{sstable.WithUnique()}, want: []string{"b0", "a1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mergeIDs(t, tt.opts, a, b)
			require.NoError(t, err)

			var data []string
			for _, e := range got {
				data = append(data, string(e.Data))
			}
			assert.Equal(t, tt.want, data)
		})
	}
}

func TestMergeManyTables(t *testing.T) {
	var (
		tables [][]byte
		want   []string
	)
	for i := range 5 {
		var recs []entry
		for j := i; j < 100; j += 5 {
			id := fmt.Sprintf("key%03d", j)
			recs = append(recs, newTestEntry(id, nil))
			want = append(want, id)
		}
		tables = append(tables, writeTable(t, recs...))
	}

	got, err := mergeIDs(t, nil, tables...)
	require.NoError(t, err)
	assert.Len(t, got, 100)
	assert.IsIncreasing(t, ids(got))
	assert.ElementsMatch(t, want, ids(got))
}

func TestMergeSkipsUndecodable(t *testing.T) {
	var buf bytes.Buffer
	w := sstable.NewWriter[entry](&buf, codec.JSON[entry]{}, byID)
	require.NoError(t, w.Write(newTestEntry("b", nil)))
	require.NoError(t, w.Close())

	good := writeTable(t, newTestEntry("a", nil), newTestEntry("c", nil))

	got, err := mergeIDs(t, nil, good, buf.Bytes())
	assert.True(t, errors.IsDecode(err))
	assert.Equal(t, []string{"a", "c"}, ids(got))
}

func TestMergeCancelled(t *testing.T) {
	src := openSource(t, writeTable(t, newTestEntry("a", nil)))
	defer src.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w, sink := record.NewMemoryWriter[entry]()
	_, err := sstable.Merge[entry](ctx, w, []*sstable.Source[entry]{src})
	assert.True(t, errors.IsCancelled(err))
	assert.Empty(t, sink.Records())
}
