// Package local opens and creates record files on the local filesystem.
//
// Compression is transparent: files ending in ".gz" or ".lz4" (or starting
// with the gzip or lz4 frame magic when read) are decompressed on read and
// compressed on write. The path "-" stands for stdin or stdout.
package local

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pierrec/lz4/v4"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// Compression identifies a stream compression.
type Compression int

const (
	None Compression = iota
	Gzip
	LZ4
)

// CompressionFor returns the compression implied by the suffix of path.
func CompressionFor(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return Gzip
	case ".lz4":
		return LZ4
	}
	return None
}

// multiCloser closes the decompressor before the file it reads from.
type multiCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiCloser) Close() error {
	var err error
	for _, c := range m.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

type multiWriteCloser struct {
	io.Writer
	closers []io.Closer
}

func (m *multiWriteCloser) Close() error {
	var err error
	for _, c := range m.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Open opens path for reading. Uncompressed regular files are returned as
// *os.File so callers can seek them.
func Open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}

	sig := make([]byte, len(lz4Magic))
	n, _ := io.ReadFull(file, sig)
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to rewind file %s: %w", path, err)
	}
	sig = sig[:n]

	compression := CompressionFor(path)
	switch {
	case bytes.HasPrefix(sig, gzipMagic):
		compression = Gzip
	case bytes.HasPrefix(sig, lz4Magic):
		compression = LZ4
	}

	switch compression {
	case Gzip:
		gr, err := gzip.NewReader(file)
		if err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("failed to read gzip header of %s: %w", path, err)
		}
		return &multiCloser{Reader: gr, closers: []io.Closer{gr, file}}, nil
	case LZ4:
		return &multiCloser{Reader: lz4.NewReader(file), closers: []io.Closer{file}}, nil
	}
	return file, nil
}

// Create opens path for writing, truncating it unless appendMode is set.
// Compression is chosen from the path suffix.
func Create(path string, appendMode bool) (io.WriteCloser, error) {
	if path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}

	flag := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		flag = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}

	file, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}

	switch CompressionFor(path) {
	case Gzip:
		gw := gzip.NewWriter(file)
		return &multiWriteCloser{Writer: gw, closers: []io.Closer{gw, file}}, nil
	case LZ4:
		lw := lz4.NewWriter(file)
		return &multiWriteCloser{Writer: lw, closers: []io.Closer{lw, file}}, nil
	}
	return file, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// Seekable returns r as an io.ReadSeeker. Streams that cannot seek, such as
// decompressors and stdin, are read into memory.
func Seekable(r io.Reader) (io.ReadSeeker, error) {
	switch v := r.(type) {
	case *os.File:
		if isRegular(v) {
			return v, nil
		}
	case io.ReadSeeker:
		return v, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to buffer stream: %w", err)
	}
	return bytes.NewReader(data), nil
}

func isRegular(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode().IsRegular()
}

// Storage resolves record files below a root directory.
type Storage struct {
	dir string
}

func NewLocalStorage(dir string) *Storage {
	return &Storage{dir: dir}
}

// List returns the regular files in the storage directory whose names
// match pattern (filepath.Match syntax; empty matches everything), sorted.
func (s *Storage) List(_ context.Context, pattern string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if pattern != "" {
			ok, err := filepath.Match(pattern, entry.Name())
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
			}
			if !ok {
				continue
			}
		}
		files = append(files, filepath.Join(s.dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Open opens a file of the storage directory for reading.
func (s *Storage) Open(_ context.Context, name string) (io.ReadCloser, error) {
	return Open(filepath.Join(s.dir, filepath.Base(name)))
}

// Create creates a file in the storage directory.
func (s *Storage) Create(_ context.Context, name string, appendMode bool) (io.WriteCloser, error) {
	return Create(filepath.Join(s.dir, filepath.Base(name)), appendMode)
}
