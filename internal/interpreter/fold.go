package interpreter

import (
	"github.com/trustfall/trustfall-go/internal/ir"
	"github.com/trustfall/trustfall-go/internal/iterate"
)

// computeFold runs a fold's nested component once per outer context,
// materializes the inner contexts, computes the fold's aggregates, and
// attaches both to the outer context. Exactly one outer context is
// emitted per input; this is the only place the engine holds a full
// sub-result in memory.
func (s *executionState[V]) computeFold(fold *ir.Fold, contexts ContextIterator[V]) ContextIterator[V] {
	fromType := s.vertexIndex[fold.FromVid].TypeName
	return iterate.Func[*Context[V]](func() (*Context[V], bool) {
		if s.err != nil {
			return nil, false
		}
		outer, ok := contexts.Next()
		if !ok {
			return nil, false
		}

		source := outer.VertexAt(fold.FromVid)
		if source == nil {
			// Fold rooted under an unmatched optional: an empty fold, so
			// the count law (count == len of every list aggregate) holds
			// unconditionally.
			return outer.WithFold(fold.Eid, nil, s.foldAggregates(fold, nil)), true
		}

		neighbors := s.adapter.ResolveNeighbors(
			iterate.Once(outer.Activate(source)), fromType, fold.EdgeName, fold.Parameters)
		inner := iterate.Empty[V]()
		if n, ok := neighbors.Next(); ok {
			inner = n.Neighbors
		}
		seed := iterate.Map(inner, func(v V) *Context[V] {
			vertex := v
			return outer.WithVertex(fold.ToVid, &vertex)
		})
		folded := iterate.Collect(s.computeComponent(fold.Component, seed))
		if s.err != nil {
			return nil, false
		}
		return outer.WithFold(fold.Eid, folded, s.foldAggregates(fold, folded)), true
	})
}

// foldAggregates computes the count and, for every output of the fold's
// component, the list of that output's values across the folded contexts
// in order.
func (s *executionState[V]) foldAggregates(fold *ir.Fold, folded []*Context[V]) map[string]ir.Value {
	aggregates := map[string]ir.Value{
		"": ir.Uint64(uint64(len(folded))),
	}
	for _, name := range ir.SortedNames(fold.Component.Outputs) {
		ref := fold.Component.Outputs[name]
		var values []ir.Value
		switch {
		case ref.ContextField != nil:
			values = s.resolveContextFieldValues(ref.ContextField, folded)
		case ref.FoldedContextField != nil:
			values = make([]ir.Value, 0, len(folded))
			for _, ctx := range folded {
				v, ok := ctx.FoldedValue(ref.FoldedContextField.Eid, ref.FoldedContextField.OutputName)
				if !ok {
					v = ir.Null
				}
				values = append(values, v)
			}
		case ref.FoldCount != nil:
			values = make([]ir.Value, 0, len(folded))
			for _, ctx := range folded {
				v, ok := ctx.FoldedValue(ref.FoldCount.Eid, "")
				if !ok {
					v = ir.Null
				}
				values = append(values, v)
			}
		}
		aggregates[name] = ir.List(values...)
	}
	return aggregates
}
