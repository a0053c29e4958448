// Package schema models a Trustfall schema: a GraphQL-shaped type system
// with a root query type whose fields are the starting edges. It is
// consumed by the frontend only; the interpreter sees IR.
package schema

import (
	"fmt"

	"github.com/trustfall/trustfall-go/internal/ir"
)

// Schema is the complete parsed schema.
type Schema struct {
	QueryTypeName string
	Types         map[string]*Type
}

// TypeKind is the kind of a named type.
type TypeKind string

const (
	TypeKindScalar    TypeKind = "SCALAR"
	TypeKindObject    TypeKind = "OBJECT"
	TypeKindInterface TypeKind = "INTERFACE"
	TypeKindEnum      TypeKind = "ENUM"
)

// Type is a named type.
type Type struct {
	Name          string
	Kind          TypeKind
	Fields        []*Field // OBJECT and INTERFACE
	Interfaces    []string // interfaces this type implements
	PossibleTypes []string // for INTERFACE: implementing object/interface names
	EnumValues    []string
}

// Field is a property or edge on an object or interface type.
type Field struct {
	Name      string
	Type      *ir.TypeRef
	Arguments []*Argument
}

// Argument is a declared field parameter.
type Argument struct {
	Name    string
	Type    *ir.TypeRef
	Default *ir.Value
}

// QueryType returns the root query type.
func (s *Schema) QueryType() *Type { return s.Types[s.QueryTypeName] }

// Type returns the named type, or nil.
func (s *Schema) Type(name string) *Type { return s.Types[name] }

// Field returns the named field of t, searching the type itself only;
// interface fields are copied onto implementers at build time.
func (t *Type) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Argument returns the named argument of f, or nil.
func (f *Field) Argument(name string) *Argument {
	for _, a := range f.Arguments {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// IsEdge reports whether f points at an object or interface type, i.e.
// expands to neighbor vertices rather than resolving to a property value.
func (s *Schema) IsEdge(f *Field) bool {
	t := s.Types[f.Type.BaseNamed()]
	return t != nil && (t.Kind == TypeKindObject || t.Kind == TypeKindInterface)
}

// IsSubtype reports whether child is parent or implements it.
func (s *Schema) IsSubtype(parent, child string) bool {
	if parent == child {
		return true
	}
	c := s.Types[child]
	if c == nil {
		return false
	}
	for _, iface := range c.Interfaces {
		if s.IsSubtype(parent, iface) {
			return true
		}
	}
	return false
}

// CoercionExists reports whether a `... on target` coercion from a vertex
// typed from is well formed: target must be a strict or non-strict
// subtype of from.
func (s *Schema) CoercionExists(from, target string) bool {
	return s.IsSubtype(from, target)
}

func (s *Schema) validate() error {
	if s.QueryType() == nil {
		return fmt.Errorf("schema has no query type %q", s.QueryTypeName)
	}
	for _, t := range s.Types {
		for _, f := range t.Fields {
			base := f.Type.BaseNamed()
			if s.Types[base] == nil && !builtinScalar(base) {
				return fmt.Errorf("type %s: field %s references unknown type %s", t.Name, f.Name, base)
			}
			for _, a := range f.Arguments {
				base := a.Type.BaseNamed()
				if s.Types[base] == nil && !builtinScalar(base) {
					return fmt.Errorf("type %s: field %s: argument %s references unknown type %s", t.Name, f.Name, a.Name, base)
				}
			}
		}
	}
	return nil
}

func builtinScalar(name string) bool {
	switch name {
	case "Int", "Float", "String", "Boolean", "ID", "DateTime":
		return true
	}
	return false
}
