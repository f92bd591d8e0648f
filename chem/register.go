package chem

import (
	"encoding/json"
	"io"

	"github.com/davidvella/chemio/codec"
	chemerrors "github.com/davidvella/chemio/errors"
	"github.com/davidvella/chemio/format"
	"github.com/davidvella/chemio/handler"
	"github.com/davidvella/chemio/record"
	"github.com/davidvella/chemio/recordio"
	"github.com/davidvella/chemio/registry"
	"github.com/davidvella/chemio/sstable"
	"github.com/davidvella/chemio/storage/local"
	"github.com/davidvella/chemio/storage/pebble"
)

// Molecule formats.
var (
	SMILES    = format.New("SMILES", "Daylight SMILES string", "chemical/x-daylight-smiles", []string{"smi", "smiles"}, true)
	JSONLines = format.New("JSONL", "JSON lines", "application/jsonl", []string{"jsonl", "ndjson"}, true)
	RecordIO  = format.New("REC", "framed binary records", "application/x-chemio-recordio", []string{"rec"}, true)
	SSTable   = format.New("SST", "sorted molecule table", "application/x-chemio-sstable", []string{"sst"}, true)
	Database  = format.New("MDB", "molecule database", "application/x-chemio-pebble", []string{"mdb"}, true)
)

type registerOptions struct {
	database pebble.StorageOptions
}

// RegisterOption configures Register.
type RegisterOption func(*registerOptions)

// WithDatabaseOptions sets the options of the molecule database format.
func WithDatabaseOptions(opts pebble.StorageOptions) RegisterOption {
	return func(o *registerOptions) {
		o.database = opts
	}
}

// NewJSONLinesReader returns a reader over JSON lines read from r.
func NewJSONLinesReader(r io.Reader) (*record.IndexedReader[Molecule], error) {
	src, err := newLineSource(r, "jsonl", func(line []byte, m *Molecule) error {
		var v Molecule
		if err := json.Unmarshal(line, &v); err != nil {
			return err
		}
		*m = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record.NewIndexedReader[Molecule](src), nil
}

// NewJSONLinesWriter returns a writer producing JSON lines on w.
func NewJSONLinesWriter(w io.Writer) *record.StreamWriter[Molecule] {
	return record.NewStreamWriter[Molecule](newLineSink(w, "jsonl", func(m Molecule) ([]byte, error) {
		return json.Marshal(m)
	}))
}

func isJSONObject(header []byte) bool {
	for _, b := range header {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b == '{'
	}
	return false
}

// OpenTable opens a molecule table written by the SSTable output handler.
func OpenTable(path string) (*sstable.Source[Molecule], error) {
	rc, err := local.Open(path)
	if err != nil {
		return nil, chemerrors.WrapIO(err, "chem", "OpenTable", "open "+path)
	}
	src, err := sstable.NewSource[Molecule](rc, codec.Gob[Molecule]{})
	if err != nil {
		_ = rc.Close()
		return nil, chemerrors.WrapIO(err, "chem", "OpenTable", "load "+path)
	}
	return src, nil
}

// Register adds the input and output handlers of every molecule format to
// reg.
func Register(reg *registry.Registry[Molecule], opts ...RegisterOption) {
	o := registerOptions{database: pebble.DefaultOptions()}
	for _, opt := range opts {
		opt(&o)
	}

	gob := codec.Gob[Molecule]{}

	reg.RegisterInputHandler(&handler.Input[Molecule]{
		Fmt: SMILES,
		New: func(r io.Reader) (record.Reader[Molecule], error) {
			return NewSmilesReader(r)
		},
		DetectFunc: DetectSmiles,
	})
	reg.RegisterOutputHandler(&handler.Output[Molecule]{
		Fmt: SMILES,
		New: func(w io.Writer) (record.Writer[Molecule], error) {
			return NewSmilesWriter(w), nil
		},
	})

	reg.RegisterInputHandler(&handler.Input[Molecule]{
		Fmt: JSONLines,
		New: func(r io.Reader) (record.Reader[Molecule], error) {
			return NewJSONLinesReader(r)
		},
		DetectFunc: isJSONObject,
	})
	reg.RegisterOutputHandler(&handler.Output[Molecule]{
		Fmt: JSONLines,
		New: func(w io.Writer) (record.Writer[Molecule], error) {
			return NewJSONLinesWriter(w), nil
		},
	})

	reg.RegisterInputHandler(recordio.InputHandler[Molecule](RecordIO, gob))
	reg.RegisterOutputHandler(recordio.OutputHandler[Molecule](RecordIO, gob))

	reg.RegisterInputHandler(sstable.InputHandler[Molecule](SSTable, gob))
	reg.RegisterOutputHandler(sstable.OutputHandler[Molecule](SSTable, gob, Molecule.Key))

	reg.RegisterInputHandler(pebble.InputHandler[Molecule](Database, gob, o.database))
	reg.RegisterOutputHandler(pebble.OutputHandler[Molecule](Database, gob, o.database))
}
