package schema

import (
	"testing"
)

const testSDL = `
schema {
    query: RootSchemaQuery
}

type RootSchemaQuery {
    Number(min: Int = 0, max: Int!): [Number!]
}

interface Named {
    name: String
}

interface Number implements Named {
    name: String
    value: Int
    successor: Number!
}

type Prime implements Number & Named {
    value: Int
}
`

func mustParse(t *testing.T) *Schema {
	t.Helper()
	s, err := Parse("test", testSDL)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return s
}

func TestParse_RootAndLookups(t *testing.T) {
	s := mustParse(t)
	if s.QueryTypeName != "RootSchemaQuery" {
		t.Fatalf("query type = %q", s.QueryTypeName)
	}
	root := s.QueryType()
	f := root.Field("Number")
	if f == nil {
		t.Fatal("root edge Number missing")
	}
	if !s.IsEdge(f) {
		t.Fatal("Number should be an edge")
	}
	min := f.Argument("min")
	if min == nil || min.Default == nil {
		t.Fatal("min should have a default")
	}
	if got, _ := min.Default.AsInt64(); got != 0 {
		t.Fatalf("min default = %d", got)
	}
	if max := f.Argument("max"); max == nil || max.Type.Nullable {
		t.Fatal("max should be a required argument")
	}
}

func TestParse_InterfaceFieldInheritance(t *testing.T) {
	s := mustParse(t)
	prime := s.Type("Prime")
	// name and successor are copied from Number, which declares both.
	for _, field := range []string{"value", "name", "successor"} {
		if prime.Field(field) == nil {
			t.Fatalf("Prime should inherit field %q", field)
		}
	}
	valueField := s.Type("Prime").Field("value")
	if s.IsEdge(valueField) {
		t.Fatal("value is a property, not an edge")
	}
}

func TestIsSubtype(t *testing.T) {
	s := mustParse(t)
	cases := []struct {
		parent, child string
		want          bool
	}{
		{"Number", "Prime", true},
		{"Named", "Prime", true},
		{"Named", "Number", true},
		{"Prime", "Number", false},
		{"Number", "Number", true},
		{"Prime", "Prime", true},
	}
	for _, tc := range cases {
		if got := s.IsSubtype(tc.parent, tc.child); got != tc.want {
			t.Fatalf("IsSubtype(%s, %s) = %v, want %v", tc.parent, tc.child, got, tc.want)
		}
	}
}

func TestParse_PossibleTypes(t *testing.T) {
	s := mustParse(t)
	number := s.Type("Number")
	found := false
	for _, name := range number.PossibleTypes {
		if name == "Prime" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Number possible types %v should include Prime", number.PossibleTypes)
	}
}

func TestParse_UnknownFieldType(t *testing.T) {
	_, err := Parse("bad", `
type RootSchemaQuery { thing: Missing! }
schema { query: RootSchemaQuery }
`)
	if err == nil {
		t.Fatal("expected unresolved type error")
	}
}

func TestParse_MissingQueryType(t *testing.T) {
	_, err := Parse("bad", `type Something { value: Int }`)
	if err == nil {
		t.Fatal("expected missing query type error")
	}
}
