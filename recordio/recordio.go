package recordio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"
)

var (
	LengthSize = int64(binary.Size(uint64(0)))
	// MagicBytes identify the start of every frame (REC).
	MagicBytes = []byte{0x52, 0x45, 0x43}
	// HeaderSize is the size of the frame header preceding each payload.
	HeaderSize = int64(len(MagicBytes)) + LengthSize

	ErrInvalidMagicBytes = errors.New("invalid magic bytes - not a valid recordio file")
	ErrFrameTooLarge     = errors.New("frame length exceeds limit")
)

// MaxPayloadSize bounds the payload length accepted when reading a frame.
const MaxPayloadSize = 1 << 30

// Write writes payload as one frame and returns the number of bytes written.
func Write(w io.Writer, payload []byte) (int64, error) {
	var total int64

	n, err := w.Write(MagicBytes)
	total += int64(n)
	if err != nil {
		return total, fmt.Errorf("failed to write magic bytes: %w", err)
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(payload))); err != nil {
		return total, fmt.Errorf("error writing payload length: %w", err)
	}
	total += LengthSize

	n, err = w.Write(payload)
	total += int64(n)
	if err != nil {
		return total, fmt.Errorf("error writing payload: %w", err)
	}
	return total, nil
}

// readHeader reads a frame header and returns the payload length. A clean
// end of input before the header yields io.EOF.
func readHeader(r io.Reader) (int64, error) {
	magic := make([]byte, len(MagicBytes))
	if _, err := io.ReadFull(r, magic); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, io.EOF
		}
		return 0, fmt.Errorf("failed to read magic bytes: %w", err)
	}
	if !bytes.Equal(magic, MagicBytes) {
		return 0, ErrInvalidMagicBytes
	}

	var length uint64
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return 0, fmt.Errorf("error reading payload length: %w", err)
	}
	if length > MaxPayloadSize {
		return 0, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, length)
	}
	return int64(length), nil
}

// ReadFrame reads one frame and returns its payload. It returns io.EOF when
// r is exhausted at a frame boundary.
func ReadFrame(r io.Reader) ([]byte, error) {
	length, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("error reading payload: %w", err)
	}
	return payload, nil
}

// Seq iterates over the payloads of r until the end of input or the first
// malformed frame.
func Seq(r io.Reader) iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		for {
			payload, err := ReadFrame(r)
			if err != nil {
				return
			}
			if !yield(payload) {
				return
			}
		}
	}
}

// Size returns the number of bytes a frame holding payload occupies.
func Size(payload []byte) int64 {
	return HeaderSize + int64(len(payload))
}
