package frontend

import (
	"strings"
	"testing"

	"github.com/trustfall/trustfall-go/internal/ir"
	"github.com/trustfall/trustfall-go/internal/schema"
)

const testSDL = `
schema { query: RootSchemaQuery }
directive @filter(op: String!, value: [String!]) repeatable on FIELD | INLINE_FRAGMENT
directive @tag(name: String) on FIELD
directive @output(name: String) on FIELD
directive @optional on FIELD
directive @recurse(depth: Int!) on FIELD
directive @fold on FIELD
directive @transform(op: String!) on FIELD

type RootSchemaQuery {
    Number(min: Int = 0, max: Int!): [Number!]
}

interface Number {
    value: Int
    name: String
    vowelsInName: [String]
    successor: Number!
    multiple(max: Int!): [Composite!]
    primeFactor: [Prime!]
}

type Prime implements Number {
    value: Int
    name: String
    vowelsInName: [String]
    successor: Number!
    multiple(max: Int!): [Composite!]
    primeFactor: [Prime!]
}

type Composite implements Number {
    value: Int
    name: String
    vowelsInName: [String]
    successor: Number!
    multiple(max: Int!): [Composite!]
    primeFactor: [Prime!]
}
`

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.Parse("test", testSDL)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	return s
}

func mustCompile(t *testing.T, query string) *ir.Query {
	t.Helper()
	q, err := Parse(testSchema(t), query)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return q
}

func expectCompileError(t *testing.T, query, fragment string) {
	t.Helper()
	_, err := Parse(testSchema(t), query)
	if err == nil {
		t.Fatalf("expected compile error containing %q", fragment)
	}
	ce, ok := err.(*CompileError)
	if !ok {
		t.Fatalf("expected *CompileError, got %T: %v", err, err)
	}
	if !strings.Contains(ce.Message, fragment) {
		t.Fatalf("error %q does not mention %q", ce.Message, fragment)
	}
}

func TestParse_SimpleEdgeAndOutputs(t *testing.T) {
	q := mustCompile(t, `
{
    Number(max: 5) {
        value @output
        successor {
            value @output(name: "next")
        }
    }
}`)
	if q.RootName != "Number" {
		t.Fatalf("root name = %q", q.RootName)
	}
	if got, _ := q.RootParameters["min"].AsInt64(); got != 0 {
		t.Fatalf("min default not applied: %s", q.RootParameters["min"])
	}
	comp := q.RootComponent
	if comp.Root != 1 || len(comp.Vertices) != 2 || len(comp.Edges) != 1 {
		t.Fatalf("unexpected component shape: root=%d vertices=%d edges=%d", comp.Root, len(comp.Vertices), len(comp.Edges))
	}
	edge := comp.Edges[1]
	if edge.FromVid != 1 || edge.ToVid != 2 || edge.EdgeName != "successor" {
		t.Fatalf("edge = %+v", edge)
	}
	value := comp.Outputs["value"]
	if value == nil || value.ContextField == nil || value.ContextField.Vid != 1 {
		t.Fatalf("value output = %+v", value)
	}
	next := comp.Outputs["next"]
	if next == nil || next.ContextField == nil || next.ContextField.Vid != 2 {
		t.Fatalf("next output = %+v", next)
	}
}

func TestParse_CoercionVertex(t *testing.T) {
	q := mustCompile(t, `
{
    Number(max: 5) {
        ... on Composite {
            value @output
        }
    }
}`)
	root := q.RootComponent.Vertices[q.RootComponent.Root]
	if root.TypeName != "Composite" || root.CoercedFrom != "Number" {
		t.Fatalf("coerced vertex = %+v", root)
	}
}

func TestParse_FilterVariableInference(t *testing.T) {
	q := mustCompile(t, `
{
    Number(max: 11) {
        value @output @filter(op: ">=", value: ["$min"])
        vowelsInName @filter(op: "contains", value: ["$vowel"])
        name @filter(op: "one_of", value: ["$names"])
    }
}`)
	if got := q.Variables["min"].String(); got != "Int" {
		t.Fatalf("min inferred as %q", got)
	}
	if got := q.Variables["vowel"].String(); got != "String" {
		t.Fatalf("vowel inferred as %q", got)
	}
	if got := q.Variables["names"].String(); got != "[String]!" {
		t.Fatalf("names inferred as %q", got)
	}
	root := q.RootComponent.Vertices[q.RootComponent.Root]
	if len(root.Filters) != 3 {
		t.Fatalf("expected 3 filters, got %d", len(root.Filters))
	}
}

func TestParse_TagAndFilter(t *testing.T) {
	q := mustCompile(t, `
{
    Number(max: 3) {
        value @output @tag
        successor {
            value @output(name: "next") @filter(op: ">", value: ["%value"])
        }
    }
}`)
	succ := q.RootComponent.Vertices[2]
	if len(succ.Filters) != 1 {
		t.Fatalf("successor filters = %+v", succ.Filters)
	}
	operand := succ.Filters[0].Operand
	if operand == nil || operand.Kind != ir.OperandTag || operand.Tag == nil || operand.Tag.Vid != 1 {
		t.Fatalf("tag operand = %+v", operand)
	}
}

func TestParse_FoldWithCountOutputAndPostFilter(t *testing.T) {
	q := mustCompile(t, `
{
    Number(max: 12) {
        value @output
        primeFactor @fold @transform(op: "count") @filter(op: ">=", value: ["$n"]) @output {
            value @output(name: "factors")
        }
    }
}`)
	comp := q.RootComponent
	if len(comp.Folds) != 1 {
		t.Fatalf("folds = %d", len(comp.Folds))
	}
	var fold *ir.Fold
	for _, f := range comp.Folds {
		fold = f
	}
	if fold.EdgeName != "primeFactor" || len(fold.PostFilters) != 1 {
		t.Fatalf("fold = %+v", fold)
	}
	if fold.Component.Outputs["factors"] == nil {
		t.Fatal("fold component should declare the factors output")
	}
	if ref := comp.Outputs["factors"]; ref == nil || ref.FoldedContextField == nil || ref.FoldedContextField.Eid != fold.Eid {
		t.Fatalf("outer factors ref = %+v", ref)
	}
	if ref := comp.Outputs["primeFactorcount"]; ref == nil || ref.FoldCount == nil {
		t.Fatalf("count output ref = %+v", ref)
	}
	if got := q.Variables["n"].String(); got != "Int!" {
		t.Fatalf("count filter variable inferred as %q", got)
	}
}

func TestParse_RecurseDepth(t *testing.T) {
	q := mustCompile(t, `
{
    Number(max: 1) {
        successor @recurse(depth: 2) {
            value @output
        }
    }
}`)
	edge := q.RootComponent.Edges[1]
	if edge.Recursive == nil || edge.Recursive.Depth != 2 {
		t.Fatalf("recursion = %+v", edge.Recursive)
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name     string
		query    string
		fragment string
	}{
		{
			"unknown field",
			`{ Number(max: 1) { bogus @output } }`,
			"unknown field",
		},
		{
			"unknown root edge",
			`{ Bogus { value @output } }`,
			"unknown root edge",
		},
		{
			"missing required parameter",
			`{ Number { value @output } }`,
			"requires parameter",
		},
		{
			"duplicate output",
			`{ Number(max: 1) { value @output successor { value @output } } }`,
			"duplicate output",
		},
		{
			"optional fold conflict",
			`{ Number(max: 1) { primeFactor @fold @optional { value @output } } }`,
			"@optional cannot combine",
		},
		{
			"undeclared tag",
			`{ Number(max: 1) { value @output @filter(op: "=", value: ["%missing"]) } }`,
			"undeclared tag",
		},
		{
			"literal filter operand",
			`{ Number(max: 1) { value @output @filter(op: "=", value: ["3"]) } }`,
			"must start with",
		},
		{
			"contains on scalar",
			`{ Number(max: 1) { value @output @filter(op: "contains", value: ["$x"]) } }`,
			"not a list",
		},
		{
			"bad coercion",
			`{ Number(max: 1) { ... on RootSchemaQuery { value @output } } }`,
			"cannot coerce",
		},
		{
			"transform without fold",
			`{ Number(max: 1) { value @output successor @transform(op: "count") @output(name: "c") { value @output(name: "v") } } }`,
			"requires @fold",
		},
		{
			"no outputs",
			`{ Number(max: 1) { value } }`,
			"no outputs",
		},
		{
			"recurse depth zero",
			`{ Number(max: 1) { successor @recurse(depth: 0) { value @output } } }`,
			"positive integer",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			expectCompileError(t, tc.query, tc.fragment)
		})
	}
}

func TestParse_ConflictingVariableTypes(t *testing.T) {
	expectCompileError(t, `
{
    Number(max: 1) {
        value @output @filter(op: "=", value: ["$x"])
        name @filter(op: "=", value: ["$x"])
    }
}`, "conflicting types")
}

func TestParse_TagScopedToFold(t *testing.T) {
	expectCompileError(t, `
{
    Number(max: 4) {
        value @output
        primeFactor @fold {
            value @output(name: "factors") @tag(name: "inner")
        }
        successor {
            value @output(name: "next") @filter(op: "=", value: ["%inner"])
        }
    }
}`, "undeclared tag")
}
