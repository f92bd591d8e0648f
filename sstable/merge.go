package sstable

import (
	"context"
	"iter"

	chemerrors "github.com/davidvella/chemio/errors"
	"github.com/davidvella/chemio/loser"
	"github.com/davidvella/chemio/record"
)

type mergeOptions struct {
	unique bool
}

// MergeOption configures Merge.
type MergeOption func(*mergeOptions)

// WithUnique keeps only the first record of every key. Records of earlier
// sources win over later ones.
func WithUnique() MergeOption {
	return func(o *mergeOptions) {
		o.unique = true
	}
}

// cursor is the position of one record in one source.
type cursor struct {
	key string
	src int
	idx int64
}

func (s *Source[T]) cursors(src int) iter.Seq[cursor] {
	return func(yield func(cursor) bool) {
		for idx, key := range s.Keys() {
			if !yield(cursor{key: key, src: src, idx: idx}) {
				return
			}
		}
	}
}

// Merge writes the records of sources to w in key order and returns the
// number of records written. Records with equal keys keep source order. w
// is not closed.
//
// Undecodable records are skipped and the first such failure is returned
// once every other record was written. The merge stops at the first write
// failure or when ctx is done.
func Merge[T any](ctx context.Context, w record.Writer[T], sources []*Source[T], opts ...MergeOption) (int64, error) {
	var o mergeOptions
	for _, opt := range opts {
		opt(&o)
	}

	seqs := make([]iter.Seq[cursor], len(sources))
	for i, s := range sources {
		seqs[i] = s.cursors(i)
	}
	tree := loser.New(seqs, func(a, b cursor) bool { return a.key < b.key })

	var (
		written     int64
		lastKey     string
		started     bool
		firstDecode error
	)
	for c := range tree.All() {
		if err := ctx.Err(); err != nil {
			return written, chemerrors.Wrap(err, "sstable", "Merge", "merge tables")
		}
		if o.unique && started && c.key == lastKey {
			continue
		}
		started, lastKey = true, c.key

		var rec T
		if err := sources[c.src].Decode(c.idx, &rec); err != nil {
			if chemerrors.IsDecode(err) {
				if firstDecode == nil {
					firstDecode = err
				}
				continue
			}
			return written, chemerrors.WrapIO(err, "sstable", "Merge", "read record")
		}
		if err := w.Write(rec); err != nil {
			return written, chemerrors.Wrap(err, "sstable", "Merge", "write record")
		}
		written++
	}
	return written, firstDecode
}
