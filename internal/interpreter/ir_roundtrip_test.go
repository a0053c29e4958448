package interpreter_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/trustfall/trustfall-go/internal/ir"
)

// The IR is the interchange format between frontend and interpreter:
// serializing a compiled query and executing the deserialized form must
// change nothing.
func TestExecute_IRSurvivesJSONRoundTrip(t *testing.T) {
	query := `
{
    Number(min: 1, max: 11) {
        ... on Composite {
            value @output
            primeFactor @fold @transform(op: "count") @filter(op: ">=", value: ["$n"]) @output {
                value @output(name: "factors")
            }
        }
    }
}`
	args := map[string]ir.Value{"n": ir.Int64(1)}

	compiled := compileNumbers(t, query)
	data, err := json.Marshal(compiled)
	if err != nil {
		t.Fatalf("marshal IR: %v", err)
	}
	var decoded ir.Query
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal IR: %v", err)
	}

	direct := runCompiled(t, compiled, args)
	roundTripped := runCompiled(t, &decoded, args)
	if diff := cmp.Diff(direct, roundTripped); diff != "" {
		t.Fatalf("rows diverged after IR round trip (-direct +decoded):\n%s", diff)
	}
	if len(direct) == 0 {
		t.Fatal("expected rows from the round-trip query")
	}
}
