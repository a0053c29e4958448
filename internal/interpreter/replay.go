package interpreter

import (
	"fmt"

	"github.com/trustfall/trustfall-go/internal/ir"
	"github.com/trustfall/trustfall-go/internal/iterate"
)

// TraceReader is an Adapter that replays a recorded trace instead of
// consulting a live data source. Re-executing the traced query against
// it reproduces the original rows exactly; any divergence between the
// engine's behavior and the trace is reported by panicking, since a
// divergence means either a corrupted trace or an engine regression.
//
// The reader is a test facility and assumes the trace was recorded by
// Recorder from the same IR and arguments.
type TraceReader[V any] struct {
	ops []*TraceOp[V]
	pos int
}

// NewTraceReader builds a replay adapter over trace.
func NewTraceReader[V any](trace *Trace[V]) *TraceReader[V] {
	return &TraceReader[V]{ops: trace.Ops}
}

// nextOp returns the next replayable op, skipping row production and the
// final stream-exhaustion marker, which no resolver consumes.
func (t *TraceReader[V]) nextOp() *TraceOp[V] {
	for t.pos < len(t.ops) {
		op := t.ops[t.pos]
		t.pos++
		if op.ParentOpid == nil && (op.Kind == OpProduceQueryResult || op.Kind == OpOutputIteratorExhaust) {
			continue
		}
		return op
	}
	panic("trace replay: ran past the end of the recorded trace")
}

func (t *TraceReader[V]) expectCall(function string) *TraceOp[V] {
	op := t.nextOp()
	if op.Kind != OpCall || op.Call == nil || op.Call.Function != function {
		panic(fmt.Sprintf("trace replay: expected a %s call, found op %d (%s)", function, op.Opid, op.Kind))
	}
	return op
}

func (t *TraceReader[V]) expectParent(op *TraceOp[V], parent Opid) {
	if op.ParentOpid == nil || *op.ParentOpid != parent {
		panic(fmt.Sprintf("trace replay: op %d expected parent %d", op.Opid, parent))
	}
}

// advanceBatch processes input-side ops for one output pull: it drives
// the real input stream in lockstep with the recorded advancements and
// returns the op that terminates the pull (a YieldFrom or an
// OutputIteratorExhausted).
func (t *TraceReader[V]) advanceBatch(call Opid, contexts ContextIterator[V], batch *[]*Context[V]) *TraceOp[V] {
	for {
		op := t.nextOp()
		t.expectParent(op, call)
		switch op.Kind {
		case OpAdvanceInputIterator:
			ctx, ok := contexts.Next()
			follow := t.nextOp()
			t.expectParent(follow, call)
			if ok {
				if follow.Kind != OpYieldInto {
					panic(fmt.Sprintf("trace replay: op %d: input yielded but trace recorded %s", follow.Opid, follow.Kind))
				}
				*batch = append(*batch, ctx)
			} else if follow.Kind != OpInputIteratorExhausted {
				panic(fmt.Sprintf("trace replay: op %d: input exhausted but trace recorded %s", follow.Opid, follow.Kind))
			}
		case OpYieldFrom, OpOutputIteratorExhaust:
			return op
		default:
			panic(fmt.Sprintf("trace replay: unexpected op %d (%s) under call %d", op.Opid, op.Kind, call))
		}
	}
}

func shift[V any](batch *[]*Context[V]) *Context[V] {
	if len(*batch) == 0 {
		panic("trace replay: yield without a matching input context")
	}
	ctx := (*batch)[0]
	*batch = (*batch)[1:]
	return ctx
}

func (t *TraceReader[V]) ResolveStartingVertices(edgeName string, parameters map[string]ir.Value) VertexIterator[V] {
	call := t.expectCall(string(YieldStartingVertices))
	if call.Call.EdgeName != edgeName {
		panic(fmt.Sprintf("trace replay: starting vertices for %q but trace recorded %q", edgeName, call.Call.EdgeName))
	}
	done := false
	return iterate.Func[V](func() (V, bool) {
		var zero V
		if done {
			return zero, false
		}
		op := t.nextOp()
		t.expectParent(op, call.Opid)
		switch op.Kind {
		case OpYieldFrom:
			return *op.Vertex, true
		case OpOutputIteratorExhaust:
			done = true
			return zero, false
		default:
			panic(fmt.Sprintf("trace replay: unexpected op %d (%s)", op.Opid, op.Kind))
		}
	})
}

func (t *TraceReader[V]) ResolveProperty(contexts ContextIterator[V], typeName, fieldName string) iterate.Iterator[Property[V]] {
	call := t.expectCall(string(YieldProperty))
	if call.Call.TypeName != typeName || call.Call.FieldName != fieldName {
		panic(fmt.Sprintf("trace replay: property %s.%s but trace recorded %s.%s",
			typeName, fieldName, call.Call.TypeName, call.Call.FieldName))
	}
	var batch []*Context[V]
	done := false
	return iterate.Func[Property[V]](func() (Property[V], bool) {
		if done {
			return Property[V]{}, false
		}
		op := t.advanceBatch(call.Opid, contexts, &batch)
		if op.Kind == OpOutputIteratorExhaust {
			done = true
			return Property[V]{}, false
		}
		return Property[V]{Ctx: shift(&batch), Value: *op.Value}, true
	})
}

func (t *TraceReader[V]) ResolveNeighbors(contexts ContextIterator[V], typeName, edgeName string, parameters map[string]ir.Value) iterate.Iterator[Neighbors[V]] {
	call := t.expectCall(string(YieldNeighborsOuter))
	if call.Call.TypeName != typeName || call.Call.EdgeName != edgeName {
		panic(fmt.Sprintf("trace replay: neighbors %s.%s but trace recorded %s.%s",
			typeName, edgeName, call.Call.TypeName, call.Call.EdgeName))
	}
	var batch []*Context[V]
	done := false
	return iterate.Func[Neighbors[V]](func() (Neighbors[V], bool) {
		if done {
			return Neighbors[V]{}, false
		}
		op := t.advanceBatch(call.Opid, contexts, &batch)
		if op.Kind == OpOutputIteratorExhaust {
			done = true
			return Neighbors[V]{}, false
		}
		outer := op.Opid
		innerDone := false
		inner := iterate.Func[V](func() (V, bool) {
			var zero V
			if innerDone {
				return zero, false
			}
			innerOp := t.nextOp()
			t.expectParent(innerOp, outer)
			switch innerOp.Kind {
			case OpYieldFrom:
				return *innerOp.Vertex, true
			case OpOutputIteratorExhaust:
				innerDone = true
				return zero, false
			default:
				panic(fmt.Sprintf("trace replay: unexpected op %d (%s)", innerOp.Opid, innerOp.Kind))
			}
		})
		return Neighbors[V]{Ctx: shift(&batch), Neighbors: inner}, true
	})
}

func (t *TraceReader[V]) ResolveCoercion(contexts ContextIterator[V], typeName, coerceTo string) iterate.Iterator[Coercion[V]] {
	call := t.expectCall(string(YieldCoercion))
	if call.Call.TypeName != typeName || call.Call.CoerceTo != coerceTo {
		panic(fmt.Sprintf("trace replay: coercion %s to %s but trace recorded %s to %s",
			typeName, coerceTo, call.Call.TypeName, call.Call.CoerceTo))
	}
	var batch []*Context[V]
	done := false
	return iterate.Func[Coercion[V]](func() (Coercion[V], bool) {
		if done {
			return Coercion[V]{}, false
		}
		op := t.advanceBatch(call.Opid, contexts, &batch)
		if op.Kind == OpOutputIteratorExhaust {
			done = true
			return Coercion[V]{}, false
		}
		return Coercion[V]{Ctx: shift(&batch), CanCoerce: *op.CanCoerce}, true
	})
}
