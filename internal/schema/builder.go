package schema

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/trustfall/trustfall-go/internal/ir"
	"github.com/trustfall/trustfall-go/internal/language"
)

// Parse parses and validates an SDL schema document.
func Parse(name, sdl string) (*Schema, error) {
	doc, err := language.ParseSchema(name, sdl)
	if err != nil {
		return nil, err
	}
	return build(doc)
}

func build(doc *language.SchemaDocument) (*Schema, error) {
	s := &Schema{
		QueryTypeName: "Query",
		Types:         make(map[string]*Type),
	}
	for _, sd := range doc.Schema {
		for _, op := range sd.OperationTypes {
			if op.Operation == ast.Query {
				s.QueryTypeName = op.Type
			}
		}
	}
	for _, def := range doc.Definitions {
		switch def.Kind {
		case language.Object, language.Interface:
			t, err := buildCompositeType(def)
			if err != nil {
				return nil, err
			}
			s.Types[t.Name] = t
		case language.Enum:
			t := &Type{Name: def.Name, Kind: TypeKindEnum}
			for _, ev := range def.EnumValues {
				t.EnumValues = append(t.EnumValues, ev.Name)
			}
			s.Types[t.Name] = t
		case language.Scalar:
			s.Types[def.Name] = &Type{Name: def.Name, Kind: TypeKindScalar}
		default:
			return nil, fmt.Errorf("unsupported definition kind %s for type %s", def.Kind, def.Name)
		}
	}
	inheritInterfaceFields(s)
	computePossibleTypes(s)
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func buildCompositeType(def *language.Definition) (*Type, error) {
	kind := TypeKindObject
	if def.Kind == language.Interface {
		kind = TypeKindInterface
	}
	t := &Type{Name: def.Name, Kind: kind, Interfaces: def.Interfaces}
	for _, fd := range def.Fields {
		f, err := buildField(def.Name, fd)
		if err != nil {
			return nil, err
		}
		t.Fields = append(t.Fields, f)
	}
	return t, nil
}

func buildField(typeName string, fd *language.FieldDefinition) (*Field, error) {
	f := &Field{Name: fd.Name, Type: typeRefFromAST(fd.Type)}
	for _, ad := range fd.Arguments {
		arg := &Argument{Name: ad.Name, Type: typeRefFromAST(ad.Type)}
		if ad.DefaultValue != nil {
			v, err := ValueFromAST(ad.DefaultValue)
			if err != nil {
				return nil, fmt.Errorf("type %s: field %s: argument %s: %w", typeName, fd.Name, ad.Name, err)
			}
			arg.Default = &v
		}
		f.Arguments = append(f.Arguments, arg)
	}
	return f, nil
}

// inheritInterfaceFields copies interface field declarations onto
// implementers that do not redeclare them, so field lookup never needs to
// chase the interface chain.
func inheritInterfaceFields(s *Schema) {
	var fill func(t *Type, seen map[string]bool)
	fill = func(t *Type, seen map[string]bool) {
		for _, ifaceName := range t.Interfaces {
			iface := s.Types[ifaceName]
			if iface == nil || seen[ifaceName] {
				continue
			}
			seen[ifaceName] = true
			fill(iface, seen)
			for _, f := range iface.Fields {
				if t.Field(f.Name) == nil {
					t.Fields = append(t.Fields, f)
				}
			}
		}
	}
	for _, t := range s.Types {
		fill(t, map[string]bool{})
	}
}

func computePossibleTypes(s *Schema) {
	names := make([]string, 0, len(s.Types))
	for name := range s.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t := s.Types[name]
		if t.Kind != TypeKindObject && t.Kind != TypeKindInterface {
			continue
		}
		for _, ifaceName := range allInterfaces(s, t, map[string]bool{}) {
			iface := s.Types[ifaceName]
			if iface != nil && iface.Kind == TypeKindInterface {
				iface.PossibleTypes = append(iface.PossibleTypes, t.Name)
			}
		}
	}
}

func allInterfaces(s *Schema, t *Type, seen map[string]bool) []string {
	var out []string
	for _, name := range t.Interfaces {
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
		if iface := s.Types[name]; iface != nil {
			out = append(out, allInterfaces(s, iface, seen)...)
		}
	}
	return out
}

func typeRefFromAST(t *language.Type) *ir.TypeRef {
	var ref *ir.TypeRef
	if t.Elem != nil {
		ref = ir.ListOfType(typeRefFromAST(t.Elem))
	} else {
		ref = ir.NamedType(t.NamedType)
	}
	ref.Nullable = !t.NonNull
	return ref
}

// ValueFromAST converts a constant AST value into an ir.Value. Variable
// references are rejected; the caller substitutes them first.
func ValueFromAST(v *language.Value) (ir.Value, error) {
	switch v.Kind {
	case language.NullValue:
		return ir.Null, nil
	case language.IntValue:
		i, err := strconv.ParseInt(v.Raw, 10, 64)
		if err == nil {
			return ir.Int64(i), nil
		}
		u, uerr := strconv.ParseUint(v.Raw, 10, 64)
		if uerr != nil {
			return ir.Null, fmt.Errorf("invalid integer literal %q", v.Raw)
		}
		return ir.Uint64(u), nil
	case language.FloatValue:
		f, err := strconv.ParseFloat(v.Raw, 64)
		if err != nil {
			return ir.Null, fmt.Errorf("invalid float literal %q", v.Raw)
		}
		return ir.Float64(f), nil
	case language.StringValue, language.BlockValue:
		return ir.String(v.Raw), nil
	case language.BooleanValue:
		return ir.Boolean(v.Raw == "true"), nil
	case language.EnumValue:
		return ir.Enum(v.Raw), nil
	case language.ListValue:
		items := make([]ir.Value, 0, len(v.Children))
		for _, child := range v.Children {
			item, err := ValueFromAST(child.Value)
			if err != nil {
				return ir.Null, err
			}
			items = append(items, item)
		}
		return ir.List(items...), nil
	case language.Variable:
		return ir.Null, fmt.Errorf("variable reference $%s where a constant value is required", v.Raw)
	default:
		return ir.Null, fmt.Errorf("unsupported value kind %d", v.Kind)
	}
}
