package interpreter_test

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/trustfall/trustfall-go/internal/ir"
)

type scenario struct {
	Name  string           `yaml:"name"`
	Query string           `yaml:"query"`
	Args  map[string]any   `yaml:"args"`
	Rows  []map[string]any `yaml:"rows"`
}

// Fixture-driven scenarios: each entry pins query text, bindings and the
// exact row sequence.
func TestExecute_Scenarios(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("testdata", "scenarios.yaml"))
	if err != nil {
		t.Fatalf("read fixtures: %v", err)
	}
	var scenarios []scenario
	if err := yaml.Unmarshal(raw, &scenarios); err != nil {
		t.Fatalf("parse fixtures: %v", err)
	}
	if len(scenarios) == 0 {
		t.Fatal("no scenarios loaded")
	}

	for _, sc := range scenarios {
		t.Run(sc.Name, func(t *testing.T) {
			args := map[string]ir.Value{}
			for name, rawValue := range sc.Args {
				v, err := ir.FromAny(rawValue)
				if err != nil {
					t.Fatalf("argument %s: %v", name, err)
				}
				args[name] = v
			}
			got := runRows(t, sc.Query, args)
			if len(got) != len(sc.Rows) {
				t.Fatalf("row count = %d, want %d: %v", len(got), len(sc.Rows), got)
			}
			for i, wantRow := range sc.Rows {
				gotRow := got[i]
				if len(gotRow) != len(wantRow) {
					t.Fatalf("row %d = %v, want %v", i, gotRow, wantRow)
				}
				for name, rawWant := range wantRow {
					want, err := ir.FromAny(rawWant)
					if err != nil {
						t.Fatalf("row %d output %s: %v", i, name, err)
					}
					gotValue, err := ir.FromAny(gotRow[name])
					if err != nil {
						t.Fatalf("row %d output %s: %v", i, name, err)
					}
					if !gotValue.Equal(want) {
						t.Fatalf("row %d output %s = %s, want %s", i, name, gotValue, want)
					}
				}
			}
		})
	}
}
