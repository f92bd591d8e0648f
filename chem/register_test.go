package chem_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/davidvella/chemio/chem"
	"github.com/davidvella/chemio/handler"
	"github.com/davidvella/chemio/registry"
	"github.com/davidvella/chemio/storage/pebble"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var library = []chem.Molecule{
	{Name: "toluene", Smiles: "Cc1ccccc1"},
	{Name: "benzene", Smiles: "c1ccccc1"},
	{Name: "ethanol", Smiles: "CCO"},
}

func newRegistry(t *testing.T) *registry.Registry[chem.Molecule] {
	t.Helper()

	reg := registry.New[chem.Molecule]()
	chem.Register(reg, chem.WithDatabaseOptions(pebble.StorageOptions{BatchSize: 2}))
	return reg
}

func roundTrip(t *testing.T, reg *registry.Registry[chem.Molecule], path, formatName string) []chem.Molecule {
	t.Helper()

	w, err := reg.OpenOutput(path, formatName, handler.ModeDefaultWrite)
	require.NoError(t, err)
	for _, m := range library {
		require.NoError(t, w.Write(m))
	}
	require.NoError(t, w.Close())

	r, err := reg.OpenInput(path, formatName)
	require.NoError(t, err)
	defer r.Close()

	var got []chem.Molecule
	for r.HasMoreData() {
		var m chem.Molecule
		require.NoError(t, r.Read(&m))
		got = append(got, m)
	}
	return got
}

func TestRegisterFormats(t *testing.T) {
	reg := newRegistry(t)
	assert.Equal(t, 5, reg.NumInputHandlers())
	assert.Equal(t, 5, reg.NumOutputHandlers())

	for _, ext := range []string{"smi", "SMILES", "jsonl", "rec", "sst", "mdb"} {
		_, ok := reg.InputHandlerByFileExtension(ext)
		assert.True(t, ok, ext)
	}
	_, ok := reg.OutputHandlerByMIMEType("chemical/x-daylight-smiles")
	assert.True(t, ok)
}

func TestRoundTrip(t *testing.T) {
	sorted := []chem.Molecule{library[1], library[2], library[0]}

	tests := []struct {
		file string
		want []chem.Molecule
	}{
		{file: "lib.smi", want: library},
		{file: "lib.smi.gz", want: library},
		{file: "lib.jsonl", want: library},
		{file: "lib.rec.lz4", want: library},
		{file: "lib.sst", want: sorted},
		{file: "lib.mdb", want: library},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			reg := newRegistry(t)
			path := filepath.Join(t.TempDir(), tt.file)
			assert.Equal(t, tt.want, roundTrip(t, reg, path, ""))
		})
	}
}

func TestProbeByContent(t *testing.T) {
	reg := newRegistry(t)
	dir := t.TempDir()

	tests := []struct {
		source string
		want   string
	}{
		{source: "lib.smi", want: "SMILES"},
		{source: "lib.jsonl", want: "JSONL"},
		{source: "lib.rec", want: "REC"},
		{source: "lib.sst", want: "SST"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			src := filepath.Join(dir, tt.source)
			roundTrip(t, reg, src, "")

			// Same content without a recognisable extension.
			data, err := os.ReadFile(src)
			require.NoError(t, err)
			path := filepath.Join(dir, tt.want+".data")
			require.NoError(t, os.WriteFile(path, data, 0o600))

			h, err := reg.ResolveInput(path, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, h.Format().Name())
		})
	}
}

func TestExplicitFormat(t *testing.T) {
	reg := newRegistry(t)
	path := filepath.Join(t.TempDir(), "lib.txt")
	assert.Equal(t, library, roundTrip(t, reg, path, "smiles"))
}
