package chem_test

import (
	"testing"

	"github.com/davidvella/chemio/chem"
	"github.com/davidvella/chemio/record"
	"github.com/stretchr/testify/assert"
)

func TestMoleculeAppend(t *testing.T) {
	m := chem.Molecule{Name: "ethanol", Properties: map[string]string{"mw": "46.07"}}
	m.Append(chem.Molecule{
		Name:       "other",
		Smiles:     "CCO",
		Properties: map[string]string{"mw": "46.068", "logp": "-0.31"},
	})

	assert.Equal(t, "ethanol", m.Name)
	assert.Equal(t, "CCO", m.Smiles)
	assert.Equal(t, map[string]string{"mw": "46.068", "logp": "-0.31"}, m.Properties)
}

func TestMoleculeAppendRead(t *testing.T) {
	r := record.NewMemoryReader(
		chem.Molecule{Smiles: "CCO", Properties: map[string]string{"a": "1"}},
		chem.Molecule{Name: "ethanol", Properties: map[string]string{"b": "2"}},
	)

	var m chem.Molecule
	assert.NoError(t, r.Read(&m))
	assert.NoError(t, r.Read(&m, record.Overwrite(false)))

	assert.Equal(t, "ethanol", m.Name)
	assert.Equal(t, "CCO", m.Smiles)
	assert.Len(t, m.Properties, 2)
}

func TestMoleculeKeyAndProperties(t *testing.T) {
	m := chem.Molecule{Smiles: "C"}
	assert.Equal(t, "C", m.Key())

	m.Name = "methane"
	assert.Equal(t, "methane", m.Key())

	_, ok := m.Property("mw")
	assert.False(t, ok)
	m.SetProperty("mw", "16.04")
	v, ok := m.Property("mw")
	assert.True(t, ok)
	assert.Equal(t, "16.04", v)
}
