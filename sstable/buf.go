package sstable

import (
	"bufio"
	"io"
)

// BufferReaderSeeker adds read buffering to an [io.ReadSeeker]. Forward
// seeks that land inside the buffered window are served without touching
// the underlying stream.
type BufferReaderSeeker struct {
	reader *bufio.Reader
	rs     io.ReadSeeker
	// pos is the logical position of the next byte returned by Read.
	pos int64
	// valid is false until pos is known.
	valid bool
}

func NewReadSeeker(r io.ReadSeeker, size int) *BufferReaderSeeker {
	return &BufferReaderSeeker{
		reader: bufio.NewReaderSize(r, size),
		rs:     r,
	}
}

func (r *BufferReaderSeeker) Read(p []byte) (n int, err error) {
	n, err = r.reader.Read(p)
	r.pos += int64(n)
	return n, err
}

func (r *BufferReaderSeeker) Seek(offset int64, whence int) (int64, error) {
	if whence == io.SeekStart && r.valid {
		if ahead := offset - r.pos; ahead >= 0 && ahead <= int64(r.reader.Buffered()) {
			if _, err := r.reader.Discard(int(ahead)); err != nil {
				return r.pos, err
			}
			r.pos = offset
			return offset, nil
		}
	}

	pos, err := r.rs.Seek(offset, whence)
	if err != nil {
		r.valid = false
		return pos, err
	}

	r.reader.Reset(r.rs)
	r.pos = pos
	r.valid = true
	return pos, nil
}
