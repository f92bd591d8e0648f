// Package format describes storage formats that record handlers implement.
//
// A Format is an immutable value: a symbolic name that identifies the format
// (compared case-insensitively), a human readable description, a MIME type,
// the file-name extensions commonly used for it and whether a single file can
// hold more than one record.
//
// Basic usage:
//
//	var SMILES = format.New("SMILES", "Daylight SMILES string",
//	    "chemical/x-daylight-smiles", []string{"smi", "smiles"}, true)
//
//	if SMILES.HasExtension("SMI") {
//	    // ...
//	}
package format

import (
	"path/filepath"
	"slices"
	"strings"
)

// Format is an immutable description of one storage format.
type Format struct {
	name        string
	description string
	mimeType    string
	extensions  []string
	multiRecord bool
}

// New returns a format descriptor. Leading dots are stripped from extensions.
func New(name, description, mimeType string, extensions []string, multiRecord bool) Format {
	exts := make([]string, 0, len(extensions))
	for _, e := range extensions {
		exts = append(exts, strings.TrimPrefix(e, "."))
	}
	return Format{
		name:        name,
		description: description,
		mimeType:    mimeType,
		extensions:  exts,
		multiRecord: multiRecord,
	}
}

func (f Format) Name() string        { return f.name }
func (f Format) Description() string { return f.description }
func (f Format) MIMEType() string    { return f.mimeType }
func (f Format) MultiRecord() bool   { return f.multiRecord }

// Extensions returns a copy of the registered extension aliases in order.
func (f Format) Extensions() []string {
	return slices.Clone(f.extensions)
}

// IsZero reports whether f is the zero Format.
func (f Format) IsZero() bool {
	return f.name == ""
}

// Equal reports whether f and o name the same format.
func (f Format) Equal(o Format) bool {
	return strings.EqualFold(f.name, o.name)
}

// HasName reports whether name matches the format name, ignoring case.
func (f Format) HasName(name string) bool {
	return strings.EqualFold(f.name, name)
}

// HasMIMEType reports whether mimeType matches the format MIME type, ignoring case.
func (f Format) HasMIMEType(mimeType string) bool {
	return f.mimeType != "" && strings.EqualFold(f.mimeType, mimeType)
}

// HasExtension reports whether ext is one of the format extensions, ignoring
// case and an optional leading dot.
func (f Format) HasExtension(ext string) bool {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return false
	}
	for _, e := range f.extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

func (f Format) String() string {
	return f.name
}

// compressionSuffixes are transparently handled by storage/local and never
// identify a record format on their own.
var compressionSuffixes = []string{".gz", ".lz4"}

// Ext returns the format-relevant extension of path without the leading dot.
// Compression suffixes are skipped, so "mols.smi.gz" yields "smi".
func Ext(path string) string {
	base := filepath.Base(path)
	for {
		ext := filepath.Ext(base)
		if ext == "" {
			return ""
		}
		if !slices.ContainsFunc(compressionSuffixes, func(s string) bool { return strings.EqualFold(s, ext) }) {
			return strings.TrimPrefix(ext, ".")
		}
		base = strings.TrimSuffix(base, ext)
	}
}
