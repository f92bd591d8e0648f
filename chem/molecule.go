// Package chem provides the molecule record type and registers the molecule
// formats: a line-oriented SMILES format, JSON lines, framed recordio files,
// sorted tables and the pebble record database.
//
// Basic usage:
//
//	reg := registry.Default[chem.Molecule]()
//	chem.Register(reg)
//
//	r, err := reg.OpenInput("library.smi.gz", "")
package chem

import "maps"

// Molecule is one structure record.
type Molecule struct {
	Name       string            `json:"name,omitempty"`
	Smiles     string            `json:"smiles"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Append merges other into m: empty identity fields are filled from other
// and the properties of other are added, replacing equal keys.
func (m *Molecule) Append(other Molecule) {
	if m.Name == "" {
		m.Name = other.Name
	}
	if m.Smiles == "" {
		m.Smiles = other.Smiles
	}
	if len(other.Properties) == 0 {
		return
	}
	if m.Properties == nil {
		m.Properties = make(map[string]string, len(other.Properties))
	}
	maps.Copy(m.Properties, other.Properties)
}

// Key returns the sort key used by sorted tables.
func (m Molecule) Key() string {
	if m.Name != "" {
		return m.Name
	}
	return m.Smiles
}

// Property returns the value of property name.
func (m Molecule) Property(name string) (string, bool) {
	v, ok := m.Properties[name]
	return v, ok
}

// SetProperty sets property name to value.
func (m *Molecule) SetProperty(name, value string) {
	if m.Properties == nil {
		m.Properties = make(map[string]string)
	}
	m.Properties[name] = value
}
