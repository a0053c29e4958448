package interpreter

import (
	"github.com/trustfall/trustfall-go/internal/ir"
	"github.com/trustfall/trustfall-go/internal/iterate"
)

// pushActiveProperty resolves a filtered field on each context's active
// vertex and pushes the value onto the operand stack. Optional-null
// contexts push Null; the adapter's answer for them is discarded.
func (s *executionState[V]) pushActiveProperty(typeName string, f *ir.Filter, contexts ContextIterator[V]) ContextIterator[V] {
	props := s.adapter.ResolveProperty(contexts, typeName, f.FieldName)
	return iterate.Func[*Context[V]](func() (*Context[V], bool) {
		if s.err != nil {
			return nil, false
		}
		p, ok := props.Next()
		if !ok {
			return nil, false
		}
		value := p.Value
		if p.Ctx.ActiveVertex() == nil {
			value = ir.Null
		} else if f.FieldType != nil && !value.IsNull() && !f.FieldType.Conforms(value) {
			s.fail(&AdapterError{
				Operation: "ResolveProperty",
				TypeName:  typeName,
				Field:     f.FieldName,
				Detail:    value.String() + " does not conform to " + f.FieldType.String(),
			})
			return nil, false
		}
		return p.Ctx.PushValue(value), true
	})
}

// pushContextFieldValue resolves a remembered vertex's property for each
// context and pushes it, restoring the context's own active vertex. The
// remembered vertex becomes active only for the adapter call; a FIFO of
// originals pairs adapter outputs back up, relying on the one-in-one-out
// ordering contract.
func (s *executionState[V]) pushContextFieldValue(cf *ir.ContextField, contexts ContextIterator[V]) ContextIterator[V] {
	typeName := s.vertexIndex[cf.Vid].TypeName
	var originals []*Context[V]
	input := iterate.Map(contexts, func(ctx *Context[V]) *Context[V] {
		originals = append(originals, ctx)
		return ctx.Activate(ctx.VertexAt(cf.Vid))
	})
	props := s.adapter.ResolveProperty(input, typeName, cf.FieldName)
	return iterate.Func[*Context[V]](func() (*Context[V], bool) {
		if s.err != nil {
			return nil, false
		}
		p, ok := props.Next()
		if !ok {
			return nil, false
		}
		if len(originals) == 0 {
			s.fail(&AdapterError{
				Operation: "ResolveProperty",
				TypeName:  typeName,
				Field:     cf.FieldName,
				Detail:    "yielded more outputs than inputs",
			})
			return nil, false
		}
		orig := originals[0]
		originals = originals[1:]
		value := p.Value
		if orig.VertexAt(cf.Vid) == nil {
			value = ir.Null
		} else if cf.FieldType != nil && !value.IsNull() && !cf.FieldType.Conforms(value) {
			s.fail(&AdapterError{
				Operation: "ResolveProperty",
				TypeName:  typeName,
				Field:     cf.FieldName,
				Detail:    value.String() + " does not conform to " + cf.FieldType.String(),
			})
			return nil, false
		}
		return orig.PushValue(value), true
	})
}

// resolveContextFieldValues batch-resolves one property over an already
// materialized context list, in list order.
func (s *executionState[V]) resolveContextFieldValues(cf *ir.ContextField, contexts []*Context[V]) []ir.Value {
	iter := s.pushContextFieldValue(cf, iterate.FromSlice(contexts))
	values := make([]ir.Value, 0, len(contexts))
	for {
		ctx, ok := iter.Next()
		if !ok {
			return values
		}
		v, _ := ctx.PopValue()
		values = append(values, v)
	}
}
