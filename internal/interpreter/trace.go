package interpreter

import (
	"github.com/trustfall/trustfall-go/internal/ir"
	"github.com/trustfall/trustfall-go/internal/iterate"
)

// Opid identifies one trace operation. Ids increase monotonically in the
// order the driving loop performs operations, so a trace is totally
// ordered and deterministic for a deterministic adapter.
type Opid uint64

// OpKind enumerates trace operation kinds.
type OpKind string

const (
	OpCall                   OpKind = "Call"
	OpAdvanceInputIterator   OpKind = "AdvanceInputIterator"
	OpYieldInto              OpKind = "YieldInto"
	OpYieldFrom              OpKind = "YieldFrom"
	OpInputIteratorExhausted OpKind = "InputIteratorExhausted"
	OpOutputIteratorExhaust  OpKind = "OutputIteratorExhausted"
	OpProduceQueryResult     OpKind = "ProduceQueryResult"
)

// YieldKind discriminates YieldFrom payloads by resolver.
type YieldKind string

const (
	YieldStartingVertices YieldKind = "ResolveStartingVertices"
	YieldProperty         YieldKind = "ResolveProperty"
	YieldNeighborsOuter   YieldKind = "ResolveNeighborsOuter"
	YieldNeighborsInner   YieldKind = "ResolveNeighborsInner"
	YieldCoercion         YieldKind = "ResolveCoercion"
)

// FunctionCall records which resolver a Call op invoked, with its
// schema-side arguments.
type FunctionCall struct {
	Function   string              `json:"function"`
	EdgeName   string              `json:"edgeName,omitempty"`
	TypeName   string              `json:"typeName,omitempty"`
	FieldName  string              `json:"fieldName,omitempty"`
	CoerceTo   string              `json:"coerceTo,omitempty"`
	Parameters map[string]ir.Value `json:"parameters,omitempty"`
}

// TraceOp is one entry of a recorded trace. ParentOpid links iterator
// events to the Call (or neighbor-yield) that caused them.
type TraceOp[V any] struct {
	Opid       Opid          `json:"opid"`
	ParentOpid *Opid         `json:"parentOpid,omitempty"`
	Kind       OpKind        `json:"kind"`
	Call       *FunctionCall `json:"call,omitempty"`
	YieldFrom  YieldKind     `json:"yieldFrom,omitempty"`
	Vertex     *V            `json:"vertex,omitempty"`
	Index      *int          `json:"index,omitempty"`
	Value      *ir.Value     `json:"value,omitempty"`
	CanCoerce  *bool         `json:"canCoerce,omitempty"`
	Row        Row           `json:"row,omitempty"`
}

// Trace is the full deterministic event log of one execution.
type Trace[V any] struct {
	Arguments map[string]ir.Value `json:"arguments,omitempty"`
	Ops       []*TraceOp[V]       `json:"ops"`
}

// Recorder wraps an adapter and logs every resolver call, input
// advancement, yield, and produced row. The engine feeds it rows through
// the resultObserver hook.
type Recorder[V any] struct {
	inner Adapter[V]
	trace *Trace[V]
	next  Opid
}

// NewRecorder wraps inner. Arguments are stored on the trace so replay
// can re-execute with identical bindings.
func NewRecorder[V any](inner Adapter[V], args map[string]ir.Value) *Recorder[V] {
	return &Recorder[V]{
		inner: inner,
		trace: &Trace[V]{Arguments: args},
		next:  1,
	}
}

// Trace returns the recorded trace; complete once the result iterator is
// exhausted.
func (r *Recorder[V]) Trace() *Trace[V] { return r.trace }

func (r *Recorder[V]) record(parent *Opid, op TraceOp[V]) Opid {
	op.Opid = r.next
	op.ParentOpid = parent
	r.next++
	recorded := op
	r.trace.Ops = append(r.trace.Ops, &recorded)
	return recorded.Opid
}

// recordInput wraps an input context stream so each advancement is
// logged under the call that drives it.
func (r *Recorder[V]) recordInput(call Opid, contexts ContextIterator[V]) ContextIterator[V] {
	exhausted := false
	return iterate.Func[*Context[V]](func() (*Context[V], bool) {
		if exhausted {
			return nil, false
		}
		r.record(&call, TraceOp[V]{Kind: OpAdvanceInputIterator})
		ctx, ok := contexts.Next()
		if !ok {
			exhausted = true
			r.record(&call, TraceOp[V]{Kind: OpInputIteratorExhausted})
			return nil, false
		}
		r.record(&call, TraceOp[V]{Kind: OpYieldInto})
		return ctx, true
	})
}

func (r *Recorder[V]) ResolveStartingVertices(edgeName string, parameters map[string]ir.Value) VertexIterator[V] {
	call := r.record(nil, TraceOp[V]{Kind: OpCall, Call: &FunctionCall{
		Function: string(YieldStartingVertices), EdgeName: edgeName, Parameters: parameters,
	}})
	out := r.inner.ResolveStartingVertices(edgeName, parameters)
	exhausted := false
	return iterate.Func[V](func() (V, bool) {
		var zero V
		if exhausted {
			return zero, false
		}
		v, ok := out.Next()
		if !ok {
			exhausted = true
			r.record(&call, TraceOp[V]{Kind: OpOutputIteratorExhaust})
			return zero, false
		}
		vertex := v
		r.record(&call, TraceOp[V]{Kind: OpYieldFrom, YieldFrom: YieldStartingVertices, Vertex: &vertex})
		return v, true
	})
}

func (r *Recorder[V]) ResolveProperty(contexts ContextIterator[V], typeName, fieldName string) iterate.Iterator[Property[V]] {
	call := r.record(nil, TraceOp[V]{Kind: OpCall, Call: &FunctionCall{
		Function: string(YieldProperty), TypeName: typeName, FieldName: fieldName,
	}})
	out := r.inner.ResolveProperty(r.recordInput(call, contexts), typeName, fieldName)
	exhausted := false
	return iterate.Func[Property[V]](func() (Property[V], bool) {
		if exhausted {
			return Property[V]{}, false
		}
		p, ok := out.Next()
		if !ok {
			exhausted = true
			r.record(&call, TraceOp[V]{Kind: OpOutputIteratorExhaust})
			return Property[V]{}, false
		}
		value := p.Value
		r.record(&call, TraceOp[V]{Kind: OpYieldFrom, YieldFrom: YieldProperty, Value: &value})
		return p, true
	})
}

func (r *Recorder[V]) ResolveNeighbors(contexts ContextIterator[V], typeName, edgeName string, parameters map[string]ir.Value) iterate.Iterator[Neighbors[V]] {
	call := r.record(nil, TraceOp[V]{Kind: OpCall, Call: &FunctionCall{
		Function: string(YieldNeighborsOuter), TypeName: typeName, EdgeName: edgeName, Parameters: parameters,
	}})
	out := r.inner.ResolveNeighbors(r.recordInput(call, contexts), typeName, edgeName, parameters)
	exhausted := false
	return iterate.Func[Neighbors[V]](func() (Neighbors[V], bool) {
		if exhausted {
			return Neighbors[V]{}, false
		}
		n, ok := out.Next()
		if !ok {
			exhausted = true
			r.record(&call, TraceOp[V]{Kind: OpOutputIteratorExhaust})
			return Neighbors[V]{}, false
		}
		outer := r.record(&call, TraceOp[V]{Kind: OpYieldFrom, YieldFrom: YieldNeighborsOuter})
		inner := n.Neighbors
		index := 0
		innerDone := false
		n.Neighbors = iterate.Func[V](func() (V, bool) {
			var zero V
			if innerDone {
				return zero, false
			}
			v, ok := inner.Next()
			if !ok {
				innerDone = true
				r.record(&outer, TraceOp[V]{Kind: OpOutputIteratorExhaust})
				return zero, false
			}
			vertex := v
			i := index
			index++
			r.record(&outer, TraceOp[V]{Kind: OpYieldFrom, YieldFrom: YieldNeighborsInner, Index: &i, Vertex: &vertex})
			return v, true
		})
		return n, true
	})
}

func (r *Recorder[V]) ResolveCoercion(contexts ContextIterator[V], typeName, coerceTo string) iterate.Iterator[Coercion[V]] {
	call := r.record(nil, TraceOp[V]{Kind: OpCall, Call: &FunctionCall{
		Function: string(YieldCoercion), TypeName: typeName, CoerceTo: coerceTo,
	}})
	out := r.inner.ResolveCoercion(r.recordInput(call, contexts), typeName, coerceTo)
	exhausted := false
	return iterate.Func[Coercion[V]](func() (Coercion[V], bool) {
		if exhausted {
			return Coercion[V]{}, false
		}
		c, ok := out.Next()
		if !ok {
			exhausted = true
			r.record(&call, TraceOp[V]{Kind: OpOutputIteratorExhaust})
			return Coercion[V]{}, false
		}
		can := c.CanCoerce
		r.record(&call, TraceOp[V]{Kind: OpYieldFrom, YieldFrom: YieldCoercion, CanCoerce: &can})
		return c, true
	})
}

// ObserveResult implements the engine's result hook.
func (r *Recorder[V]) ObserveResult(row Row) {
	r.record(nil, TraceOp[V]{Kind: OpProduceQueryResult, Row: row})
}

// ObserveResultsExhausted implements the engine's result hook.
func (r *Recorder[V]) ObserveResultsExhausted() {
	r.record(nil, TraceOp[V]{Kind: OpOutputIteratorExhaust})
}
