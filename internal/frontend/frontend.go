// Package frontend compiles a parsed query document against a schema into
// the IR executed by the interpreter. It resolves the Trustfall directive
// set (@output, @filter, @tag, @optional, @recurse, @fold, @transform),
// assigns vertex and edge ids, infers variable types from filter usage,
// and validates every schema reference.
package frontend

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/trustfall/trustfall-go/internal/ir"
	"github.com/trustfall/trustfall-go/internal/language"
	"github.com/trustfall/trustfall-go/internal/schema"
)

// Parse compiles queryText against s.
func Parse(s *schema.Schema, queryText string) (*ir.Query, error) {
	doc, err := language.ParseQuery(queryText)
	if err != nil {
		return nil, &CompileError{Message: err.Error()}
	}
	return compile(s, doc)
}

type compiler struct {
	schema  *schema.Schema
	nextVid ir.Vid
	nextEid ir.Eid

	variables map[string]*ir.TypeRef
	tags      map[string]*ir.ContextField
	outputs   map[string]bool // query-wide output name uniqueness
}

func compile(s *schema.Schema, doc *language.QueryDocument) (*ir.Query, error) {
	if len(doc.Operations) != 1 {
		return nil, &CompileError{Message: fmt.Sprintf("expected exactly one operation, found %d", len(doc.Operations))}
	}
	op := doc.Operations[0]
	if op.Operation != ast.Query {
		return nil, errAt(op.Position, "only query operations are supported")
	}
	if len(op.SelectionSet) != 1 {
		return nil, errAt(op.Position, "query must have exactly one root edge")
	}
	rootField, ok := op.SelectionSet[0].(*language.Field)
	if !ok {
		return nil, errAt(op.Position, "query root must be a field")
	}

	c := &compiler{
		schema:    s,
		nextVid:   1,
		nextEid:   1,
		variables: make(map[string]*ir.TypeRef),
		tags:      make(map[string]*ir.ContextField),
		outputs:   make(map[string]bool),
	}

	queryType := s.QueryType()
	rootDef := queryType.Field(rootField.Name)
	if rootDef == nil {
		return nil, errAt(rootField.Position, "unknown root edge %q on type %s", rootField.Name, queryType.Name)
	}
	if !s.IsEdge(rootDef) {
		return nil, errAt(rootField.Position, "root field %q does not produce vertices", rootField.Name)
	}
	if len(rootField.Directives) > 0 {
		return nil, errAt(rootField.Position, "directives are not supported on the root edge")
	}
	params, err := c.edgeParameters(rootDef, rootField)
	if err != nil {
		return nil, err
	}

	component := newComponent()
	rootVid, err := c.compileVertex(component, rootDef.Type.BaseNamed(), rootField.SelectionSet, rootField.Position)
	if err != nil {
		return nil, err
	}
	component.Root = rootVid

	if len(c.outputs) == 0 {
		return nil, errAt(op.Position, "query produces no outputs")
	}
	return &ir.Query{
		RootName:       rootField.Name,
		RootParameters: params,
		RootComponent:  component,
		Variables:      c.variables,
	}, nil
}

func newComponent() *ir.Component {
	return &ir.Component{
		Vertices: make(map[ir.Vid]*ir.Vertex),
		Edges:    make(map[ir.Eid]*ir.Edge),
		Folds:    make(map[ir.Eid]*ir.Fold),
		Outputs:  make(map[string]*ir.FieldRef),
	}
}

// compileVertex builds the vertex for a selection set, handling a leading
// `... on T` coercion, and then compiles its properties and edges.
func (c *compiler) compileVertex(comp *ir.Component, declaredType string, sels language.SelectionSet, pos *language.Position) (ir.Vid, error) {
	typeName := declaredType
	coercedFrom := ""
	for {
		frag := soleInlineFragment(sels)
		if frag == nil {
			break
		}
		target := frag.TypeCondition
		if !c.schema.CoercionExists(typeName, target) {
			return 0, errAt(frag.Position, "cannot coerce %s to %s", typeName, target)
		}
		if coercedFrom == "" {
			coercedFrom = declaredType
		}
		typeName = target
		sels = frag.SelectionSet
	}
	vertexType := c.schema.Type(typeName)
	if vertexType == nil {
		return 0, errAt(pos, "unknown type %q", typeName)
	}

	vid := c.nextVid
	c.nextVid++
	vertex := &ir.Vertex{Vid: vid, TypeName: typeName, CoercedFrom: coercedFrom}
	comp.Vertices[vid] = vertex

	if len(sels) == 0 {
		return 0, errAt(pos, "vertex of type %s has no selections", typeName)
	}
	for _, sel := range sels {
		field, ok := sel.(*language.Field)
		if !ok {
			return 0, errAt(pos, "type coercion must be the only selection in its scope")
		}
		if field.Alias != "" && field.Alias != field.Name {
			return 0, errAt(field.Position, "field aliases are not supported")
		}
		def := vertexType.Field(field.Name)
		if def == nil {
			return 0, errAt(field.Position, "unknown field %q on type %s", field.Name, typeName)
		}
		if c.schema.IsEdge(def) {
			if err := c.compileEdge(comp, vertex, def, field); err != nil {
				return 0, err
			}
		} else {
			if err := c.compileProperty(comp, vertex, def, field); err != nil {
				return 0, err
			}
		}
	}
	return vid, nil
}

func soleInlineFragment(sels language.SelectionSet) *language.InlineFragment {
	if len(sels) != 1 {
		return nil
	}
	frag, _ := sels[0].(*language.InlineFragment)
	return frag
}

func (c *compiler) compileProperty(comp *ir.Component, vertex *ir.Vertex, def *schema.Field, field *language.Field) error {
	if len(field.SelectionSet) != 0 {
		return errAt(field.Position, "property field %q cannot have selections", field.Name)
	}
	if len(field.Arguments) != 0 {
		return errAt(field.Position, "property field %q does not take arguments", field.Name)
	}
	for _, d := range field.Directives {
		switch d.Name {
		case "output":
			name, err := nameArgument(d, field.Name)
			if err != nil {
				return err
			}
			if err := c.registerOutput(comp, name, &ir.FieldRef{ContextField: &ir.ContextField{
				Vid:       vertex.Vid,
				FieldName: field.Name,
				FieldType: def.Type,
			}}, d.Position); err != nil {
				return err
			}
		case "tag":
			name, err := nameArgument(d, field.Name)
			if err != nil {
				return err
			}
			if _, exists := c.tags[name]; exists {
				return errAt(d.Position, "duplicate tag %q", name)
			}
			c.tags[name] = &ir.ContextField{Vid: vertex.Vid, FieldName: field.Name, FieldType: def.Type}
		case "filter":
			filter, err := c.buildFilter(def.Type, field.Name, d)
			if err != nil {
				return err
			}
			vertex.Filters = append(vertex.Filters, filter)
		case "optional", "recurse", "fold", "transform":
			return errAt(d.Position, "@%s applies to edges, not property field %q", d.Name, field.Name)
		default:
			return errAt(d.Position, "unknown directive @%s", d.Name)
		}
	}
	return nil
}

func (c *compiler) compileEdge(comp *ir.Component, from *ir.Vertex, def *schema.Field, field *language.Field) error {
	if len(field.SelectionSet) == 0 {
		return errAt(field.Position, "edge field %q must have selections", field.Name)
	}
	params, err := c.edgeParameters(def, field)
	if err != nil {
		return err
	}

	var optional, fold bool
	var recursion *ir.Recursion
	var foldDirectives []*language.Directive // @transform and trailing @output/@filter
	sawTransform := false
	for _, d := range field.Directives {
		switch d.Name {
		case "optional":
			optional = true
		case "fold":
			fold = true
		case "recurse":
			depth, derr := recursionDepth(d)
			if derr != nil {
				return derr
			}
			recursion = &ir.Recursion{Depth: depth}
		case "transform", "output", "filter":
			if d.Name == "transform" {
				sawTransform = true
			} else if !sawTransform {
				return errAt(d.Position, "@%s on edge %q requires a preceding @transform", d.Name, field.Name)
			}
			foldDirectives = append(foldDirectives, d)
		case "tag":
			return errAt(d.Position, "@tag applies to properties, not edge %q", field.Name)
		default:
			return errAt(d.Position, "unknown directive @%s", d.Name)
		}
	}
	if optional && (recursion != nil || fold) {
		return errAt(field.Position, "@optional cannot combine with @recurse or @fold on edge %q", field.Name)
	}
	if recursion != nil && fold {
		return errAt(field.Position, "@recurse cannot combine with @fold on edge %q", field.Name)
	}
	if sawTransform && !fold {
		return errAt(field.Position, "@transform on edge %q requires @fold", field.Name)
	}

	destType := def.Type.BaseNamed()
	eid := c.nextEid
	c.nextEid++

	if fold {
		return c.compileFold(comp, from, field, eid, destType, params, foldDirectives)
	}

	if recursion != nil {
		dest := c.schema.Type(destType)
		if dest == nil || dest.Field(field.Name) == nil {
			return errAt(field.Position, "edge %q cannot recurse: type %s does not expose it", field.Name, destType)
		}
	}

	toVid, err := c.compileVertex(comp, destType, field.SelectionSet, field.Position)
	if err != nil {
		return err
	}
	comp.Edges[eid] = &ir.Edge{
		Eid:        eid,
		FromVid:    from.Vid,
		ToVid:      toVid,
		EdgeName:   field.Name,
		Parameters: params,
		Optional:   optional,
		Recursive:  recursion,
	}
	return nil
}

func (c *compiler) compileFold(comp *ir.Component, from *ir.Vertex, field *language.Field, eid ir.Eid, destType string, params map[string]ir.Value, foldDirectives []*language.Directive) error {
	// Tags declared inside the fold fall out of scope with it.
	outerTags := make(map[string]bool, len(c.tags))
	for name := range c.tags {
		outerTags[name] = true
	}

	foldComp := newComponent()
	toVid, err := c.compileVertex(foldComp, destType, field.SelectionSet, field.Position)
	if err != nil {
		return err
	}
	foldComp.Root = toVid

	for name := range c.tags {
		if !outerTags[name] {
			delete(c.tags, name)
		}
	}

	foldNode := &ir.Fold{
		Eid:        eid,
		FromVid:    from.Vid,
		ToVid:      toVid,
		EdgeName:   field.Name,
		Parameters: params,
		Component:  foldComp,
	}
	comp.Folds[eid] = foldNode

	// Each fold-component output becomes a folded-list aggregate visible
	// to the enclosing component. Uniqueness was already enforced when the
	// inner output registered, so this re-export bypasses the check.
	for _, name := range ir.SortedNames(foldComp.Outputs) {
		comp.Outputs[name] = &ir.FieldRef{FoldedContextField: &ir.FoldedContextField{
			Eid:        eid,
			OutputName: name,
		}}
	}

	countType := ir.NonNull(ir.NamedType("Int"))
	for _, d := range foldDirectives {
		switch d.Name {
		case "transform":
			op, terr := stringArgument(d, "op")
			if terr != nil {
				return terr
			}
			if op != "count" {
				return errAt(d.Position, "unsupported transform op %q", op)
			}
		case "output":
			name, nerr := nameArgument(d, field.Name+"count")
			if nerr != nil {
				return nerr
			}
			if err := c.registerOutput(comp, name, &ir.FieldRef{FoldCount: &ir.FoldCount{Eid: eid}}, d.Position); err != nil {
				return err
			}
		case "filter":
			filter, ferr := c.buildFilter(countType, field.Name+"count", d)
			if ferr != nil {
				return ferr
			}
			foldNode.PostFilters = append(foldNode.PostFilters, filter)
		}
	}
	return nil
}

func (c *compiler) registerOutput(comp *ir.Component, name string, ref *ir.FieldRef, pos *language.Position) error {
	if c.outputs[name] {
		return errAt(pos, "duplicate output name %q", name)
	}
	c.outputs[name] = true
	comp.Outputs[name] = ref
	return nil
}

// edgeParameters coerces an edge field's arguments against its declared
// parameters, applying schema defaults. Parameters are constants;
// variable references are rejected here.
func (c *compiler) edgeParameters(def *schema.Field, field *language.Field) (map[string]ir.Value, error) {
	params := make(map[string]ir.Value)
	for _, arg := range field.Arguments {
		decl := def.Argument(arg.Name)
		if decl == nil {
			return nil, errAt(arg.Position, "unknown parameter %q on edge %q", arg.Name, field.Name)
		}
		v, err := schema.ValueFromAST(arg.Value)
		if err != nil {
			return nil, errAt(arg.Position, "parameter %q on edge %q: %v", arg.Name, field.Name, err)
		}
		if !decl.Type.Conforms(v) {
			return nil, errAt(arg.Position, "parameter %q on edge %q: %s is not a valid %s", arg.Name, field.Name, v, decl.Type)
		}
		params[arg.Name] = v
	}
	for _, decl := range def.Arguments {
		if _, bound := params[decl.Name]; bound {
			continue
		}
		if decl.Default != nil {
			params[decl.Name] = *decl.Default
		} else if !decl.Type.Nullable {
			return nil, errAt(field.Position, "edge %q requires parameter %q", field.Name, decl.Name)
		} else {
			params[decl.Name] = ir.Null
		}
	}
	if len(params) == 0 {
		return nil, nil
	}
	return params, nil
}

func recursionDepth(d *language.Directive) (int, error) {
	arg := d.Arguments.ForName("depth")
	if arg == nil {
		return 0, errAt(d.Position, "@recurse requires a depth argument")
	}
	if arg.Value.Kind != language.IntValue {
		return 0, errAt(d.Position, "@recurse depth must be an integer literal")
	}
	depth, err := strconv.Atoi(arg.Value.Raw)
	if err != nil || depth < 1 {
		return 0, errAt(d.Position, "@recurse depth must be a positive integer, got %q", arg.Value.Raw)
	}
	return depth, nil
}

func nameArgument(d *language.Directive, fallback string) (string, error) {
	arg := d.Arguments.ForName("name")
	if arg == nil {
		return fallback, nil
	}
	if arg.Value.Kind != language.StringValue {
		return "", errAt(d.Position, "@%s name must be a string literal", d.Name)
	}
	return arg.Value.Raw, nil
}

func stringArgument(d *language.Directive, name string) (string, error) {
	arg := d.Arguments.ForName(name)
	if arg == nil || arg.Value.Kind != language.StringValue {
		return "", errAt(d.Position, "@%s requires a string %q argument", d.Name, name)
	}
	return arg.Value.Raw, nil
}

// buildFilter resolves one @filter(op, value) application on a field of
// type fieldType.
func (c *compiler) buildFilter(fieldType *ir.TypeRef, fieldName string, d *language.Directive) (*ir.Filter, error) {
	opArg := d.Arguments.ForName("op")
	if opArg == nil || opArg.Value.Kind != language.StringValue {
		return nil, errAt(d.Position, "@filter requires a string op argument")
	}
	op := ir.Operation(opArg.Value.Raw)
	if !op.Valid() {
		return nil, errAt(d.Position, "unknown filter operator %q", opArg.Value.Raw)
	}

	filter := &ir.Filter{FieldName: fieldName, FieldType: fieldType, Op: op}

	valueArg := d.Arguments.ForName("value")
	if op.Unary() {
		if valueArg != nil && len(valueArg.Value.Children) != 0 {
			return nil, errAt(d.Position, "operator %q takes no operand", op)
		}
		return filter, nil
	}
	if valueArg == nil || valueArg.Value.Kind != language.ListValue || len(valueArg.Value.Children) != 1 {
		return nil, errAt(d.Position, "operator %q takes exactly one operand", op)
	}
	raw := valueArg.Value.Children[0].Value
	if raw.Kind != language.StringValue {
		return nil, errAt(d.Position, "filter operands must be \"$variable\" or \"%%tag\" strings")
	}
	operandType, err := operandType(op, fieldType)
	if err != nil {
		return nil, errAt(d.Position, "operator %q on field %q: %v", op, fieldName, err)
	}
	switch {
	case strings.HasPrefix(raw.Raw, "$"):
		name := raw.Raw[1:]
		if name == "" {
			return nil, errAt(d.Position, "empty variable name in filter operand")
		}
		if err := c.inferVariable(name, operandType, d.Position); err != nil {
			return nil, err
		}
		filter.Operand = &ir.Operand{Kind: ir.OperandVariable, Name: name}
	case strings.HasPrefix(raw.Raw, "%"):
		name := raw.Raw[1:]
		tag, exists := c.tags[name]
		if !exists {
			return nil, errAt(d.Position, "filter references undeclared tag %%%s", name)
		}
		filter.Operand = &ir.Operand{Kind: ir.OperandTag, Name: name, Tag: tag}
	default:
		return nil, errAt(d.Position, "filter operand %q must start with $ or %%", raw.Raw)
	}
	return filter, nil
}

// operandType computes the type a filter's right-hand operand must have.
func operandType(op ir.Operation, fieldType *ir.TypeRef) (*ir.TypeRef, error) {
	switch op {
	case ir.OpOneOf, ir.OpNotOneOf:
		return ir.NonNull(ir.ListOfType(fieldType)), nil
	case ir.OpContains, ir.OpNotContains:
		if !fieldType.IsList() {
			return nil, fmt.Errorf("field is not a list")
		}
		return fieldType.ListOf, nil
	case ir.OpHasPrefix, ir.OpNotHasPrefix, ir.OpHasSuffix, ir.OpNotHasSuffix,
		ir.OpHasSubstring, ir.OpNotHasSubstring, ir.OpRegex, ir.OpNotRegex:
		return ir.NonNull(ir.NamedType("String")), nil
	default:
		return fieldType, nil
	}
}

func (c *compiler) inferVariable(name string, t *ir.TypeRef, pos *language.Position) error {
	existing, ok := c.variables[name]
	if !ok {
		c.variables[name] = t
		return nil
	}
	if existing.BaseNamed() != t.BaseNamed() || existing.IsList() != t.IsList() {
		return errAt(pos, "variable $%s used with conflicting types %s and %s", name, existing, t)
	}
	return nil
}
