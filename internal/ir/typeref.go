package ir

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TypeRef is a possibly wrapped schema type reference, e.g. `[String!]`.
type TypeRef struct {
	Named    string   // base type name; empty when ListOf is set
	ListOf   *TypeRef // non-nil for list types
	Nullable bool
}

// NamedType builds a nullable reference to name.
func NamedType(name string) *TypeRef { return &TypeRef{Named: name, Nullable: true} }

// NonNull returns a non-nullable copy of t.
func NonNull(t *TypeRef) *TypeRef {
	c := *t
	c.Nullable = false
	return &c
}

// ListOfType builds a nullable list of elem.
func ListOfType(elem *TypeRef) *TypeRef { return &TypeRef{ListOf: elem, Nullable: true} }

func (t *TypeRef) IsList() bool { return t != nil && t.ListOf != nil }

// BaseNamed returns the innermost named type.
func (t *TypeRef) BaseNamed() string {
	for t.ListOf != nil {
		t = t.ListOf
	}
	return t.Named
}

func (t *TypeRef) String() string {
	var b strings.Builder
	t.write(&b)
	return b.String()
}

func (t *TypeRef) write(b *strings.Builder) {
	if t.ListOf != nil {
		b.WriteByte('[')
		t.ListOf.write(b)
		b.WriteByte(']')
	} else {
		b.WriteString(t.Named)
	}
	if !t.Nullable {
		b.WriteByte('!')
	}
}

// ParseTypeRef parses the SDL-style type string form, e.g. "[Int!]!".
func ParseTypeRef(s string) (*TypeRef, error) {
	t, rest, err := parseTypeRef(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	if rest != "" {
		return nil, fmt.Errorf("trailing input %q in type %q", rest, s)
	}
	return t, nil
}

func parseTypeRef(s string) (*TypeRef, string, error) {
	if s == "" {
		return nil, "", fmt.Errorf("empty type")
	}
	var t *TypeRef
	if s[0] == '[' {
		elem, rest, err := parseTypeRef(s[1:])
		if err != nil {
			return nil, "", err
		}
		if rest == "" || rest[0] != ']' {
			return nil, "", fmt.Errorf("unterminated list type")
		}
		t = ListOfType(elem)
		s = rest[1:]
	} else {
		i := 0
		for i < len(s) && s[i] != '!' && s[i] != ']' {
			i++
		}
		name := strings.TrimSpace(s[:i])
		if name == "" {
			return nil, "", fmt.Errorf("missing type name")
		}
		t = NamedType(name)
		s = s[i:]
	}
	if strings.HasPrefix(s, "!") {
		t.Nullable = false
		s = s[1:]
	}
	return t, s, nil
}

func (t *TypeRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TypeRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTypeRef(s)
	if err != nil {
		return err
	}
	*t = *parsed
	return nil
}

// Conforms reports whether v is an acceptable binding for t. Scalar names
// map onto value kinds: Int accepts Int64/Uint64, Float additionally
// accepts them via conversion, ID accepts strings and integers, String,
// Boolean and DateTime accept only their own kind, and any other name
// accepts strings and enums.
func (t *TypeRef) Conforms(v Value) bool {
	if v.IsNull() {
		return t.Nullable
	}
	if t.ListOf != nil {
		items, ok := v.AsList()
		if !ok {
			return false
		}
		for _, item := range items {
			if !t.ListOf.Conforms(item) {
				return false
			}
		}
		return true
	}
	switch t.Named {
	case "Int":
		return v.Kind() == KindInt64 || v.Kind() == KindUint64
	case "Float":
		return v.Kind() == KindFloat64 || v.Kind() == KindInt64 || v.Kind() == KindUint64
	case "String":
		return v.Kind() == KindString
	case "Boolean":
		return v.Kind() == KindBoolean
	case "ID":
		return v.Kind() == KindString || v.Kind() == KindInt64 || v.Kind() == KindUint64
	case "DateTime":
		return v.Kind() == KindDateTime
	default:
		return v.Kind() == KindEnum || v.Kind() == KindString
	}
}
