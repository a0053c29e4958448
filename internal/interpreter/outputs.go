package interpreter

import (
	"github.com/trustfall/trustfall-go/internal/ir"
	"github.com/trustfall/trustfall-go/internal/iterate"
)

// constructOutputs projects surviving contexts into result rows. Context
// fields chain one property-resolution stage per output so the stream
// stays lazy; fold aggregates read directly off the context.
func (s *executionState[V]) constructOutputs(comp *ir.Component, contexts ContextIterator[V]) iterate.Iterator[Row] {
	names := ir.SortedNames(comp.Outputs)
	iter := contexts
	var pushed []string
	for _, name := range names {
		if cf := comp.Outputs[name].ContextField; cf != nil {
			iter = s.pushContextFieldValue(cf, iter)
			pushed = append(pushed, name)
		}
	}
	return iterate.Func[Row](func() (Row, bool) {
		if s.err != nil {
			return nil, false
		}
		ctx, ok := iter.Next()
		if !ok {
			return nil, false
		}
		row := make(Row, len(names))
		for i := len(pushed) - 1; i >= 0; i-- {
			var v ir.Value
			v, ctx = ctx.PopValue()
			row[pushed[i]] = v
		}
		for _, name := range names {
			ref := comp.Outputs[name]
			switch {
			case ref.FoldedContextField != nil:
				v, ok := ctx.FoldedValue(ref.FoldedContextField.Eid, ref.FoldedContextField.OutputName)
				if !ok {
					v = ir.Null
				}
				row[name] = v
			case ref.FoldCount != nil:
				v, ok := ctx.FoldedValue(ref.FoldCount.Eid, "")
				if !ok {
					v = ir.Null
				}
				row[name] = v
			}
		}
		return row, true
	})
}
