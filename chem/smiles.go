package chem

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/davidvella/chemio/record"
)

var (
	ErrEmptySmiles   = errors.New("smiles: empty structure")
	ErrInvalidSmiles = errors.New("smiles: invalid character")
	ErrInvalidName   = errors.New("smiles: name contains a line break")
)

// smilesAlphabet holds every character that may appear in a SMILES string.
const smilesAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789[]()=#@+-/\\%.:*$~"

// ParseSmilesLine parses "SMILES [name]". The name is the rest of the line
// after the first run of whitespace.
func ParseSmilesLine(line string) (Molecule, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Molecule{}, ErrEmptySmiles
	}

	smiles, name := line, ""
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		smiles, name = line[:i], strings.TrimSpace(line[i+1:])
	}
	if i := strings.IndexFunc(smiles, func(r rune) bool { return !strings.ContainsRune(smilesAlphabet, r) }); i >= 0 {
		return Molecule{}, fmt.Errorf("%w %q at position %d", ErrInvalidSmiles, smiles[i], i)
	}

	return Molecule{Smiles: smiles, Name: name}, nil
}

// FormatSmilesLine formats m as "SMILES name". Properties are not stored.
func FormatSmilesLine(m Molecule) (string, error) {
	if m.Smiles == "" {
		return "", ErrEmptySmiles
	}
	if strings.ContainsAny(m.Name, "\r\n") {
		return "", ErrInvalidName
	}
	if m.Name == "" {
		return m.Smiles, nil
	}
	return m.Smiles + " " + m.Name, nil
}

// DetectSmiles reports whether header is text whose first record line is a
// valid SMILES line.
func DetectSmiles(header []byte) bool {
	if bytes.IndexByte(header, 0) >= 0 {
		return false
	}
	for len(header) > 0 {
		line, rest, _ := bytes.Cut(header, []byte{'\n'})
		if isRecordLine(line) {
			_, err := ParseSmilesLine(string(line))
			return err == nil
		}
		header = rest
	}
	return false
}

// NewSmilesReader returns a reader over a SMILES file read from r.
func NewSmilesReader(r io.Reader) (*record.IndexedReader[Molecule], error) {
	src, err := newLineSource(r, "smiles", func(line []byte, m *Molecule) error {
		parsed, err := ParseSmilesLine(string(line))
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record.NewIndexedReader[Molecule](src), nil
}

// NewSmilesWriter returns a writer producing a SMILES file on w.
func NewSmilesWriter(w io.Writer) *record.StreamWriter[Molecule] {
	return record.NewStreamWriter[Molecule](newLineSink(w, "smiles", func(m Molecule) ([]byte, error) {
		line, err := FormatSmilesLine(m)
		return []byte(line), err
	}))
}
