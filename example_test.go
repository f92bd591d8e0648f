package chemio_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/davidvella/chemio"
	"github.com/davidvella/chemio/chem"
	"github.com/davidvella/chemio/registry"
)

// ExampleProcess converts a SMILES file to JSON lines, dropping molecules
// without a name.
func ExampleProcess() {
	dir, err := os.MkdirTemp("", "chemio-*")
	if err != nil {
		fmt.Printf("Failed to create temp dir: %v\n", err)
		return
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "library.smi")
	if err := os.WriteFile(in, []byte("CCO ethanol\nC\nc1ccccc1 benzene\n"), 0o600); err != nil {
		fmt.Printf("Failed to write input: %v\n", err)
		return
	}
	out := filepath.Join(dir, "library.jsonl")

	reg := registry.New[chem.Molecule]()
	chem.Register(reg)

	named := chemio.HandlerFunc[chem.Molecule](func(_ context.Context, _ int64, m *chem.Molecule) (bool, error) {
		m.SetProperty("heavy_atoms", fmt.Sprint(strings.Count(strings.ToUpper(m.Smiles), "C")))
		return m.Name != "", nil
	})

	res := chemio.Process(context.Background(), reg, []string{in}, out, named,
		chemio.WithWorkers(2),
		chemio.WithOrderedOutput(true),
	)
	fmt.Printf("status=%s processed=%d\n", res.Status, res.Processed)

	data, err := os.ReadFile(out)
	if err != nil {
		fmt.Printf("Failed to read output: %v\n", err)
		return
	}
	fmt.Print(string(data))

	// Output:
	// status=completed processed=3
	// {"name":"ethanol","smiles":"CCO","properties":{"heavy_atoms":"2"}}
	// {"name":"benzene","smiles":"c1ccccc1","properties":{"heavy_atoms":"6"}}
}
