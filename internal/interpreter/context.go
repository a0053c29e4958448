package interpreter

import (
	"github.com/trustfall/trustfall-go/internal/ir"
)

type foldKey struct {
	eid  ir.Eid
	name string // empty for the count aggregate
}

// Context is the per-row state threaded through every pipeline stage: the
// active vertex, remembered vertex bindings, the filter-operand scratch
// stack, and folded sub-results. Contexts are immutable once emitted;
// every mutator returns a derived copy and the receiver stays valid.
//
// A nil active vertex marks an optional-null context: an @optional edge
// upstream yielded no match. A vid bound to nil in the vertices map
// records the same for that specific vertex.
type Context[V any] struct {
	activeVertex *V
	vertices     map[ir.Vid]*V
	values       []ir.Value
	folded       map[foldKey]ir.Value
	foldedCtxs   map[ir.Eid][]*Context[V]

	// Piggyback carries adapter-defined row hints. The engine never
	// touches it beyond copying the reference into derived contexts.
	Piggyback any
}

// NewContext returns the empty context that seeds a top-level execution.
func NewContext[V any]() *Context[V] {
	return &Context[V]{}
}

// ActiveVertex returns the current vertex, or nil for an optional-null
// context.
func (c *Context[V]) ActiveVertex() *V { return c.activeVertex }

// VertexAt returns the vertex remembered for vid; nil when vid was
// reached through an unmatched optional or not reached at all.
func (c *Context[V]) VertexAt(vid ir.Vid) *V { return c.vertices[vid] }

func (c *Context[V]) clone() *Context[V] {
	dup := *c
	return &dup
}

// Activate returns a copy of c with the active vertex replaced, leaving
// remembered bindings untouched.
func (c *Context[V]) Activate(v *V) *Context[V] {
	dup := c.clone()
	dup.activeVertex = v
	return dup
}

// WithVertex returns a copy of c that remembers v at vid and makes it
// active. Passing nil records an optional-null binding.
func (c *Context[V]) WithVertex(vid ir.Vid, v *V) *Context[V] {
	dup := c.clone()
	dup.activeVertex = v
	vertices := make(map[ir.Vid]*V, len(c.vertices)+1)
	for k, val := range c.vertices {
		vertices[k] = val
	}
	vertices[vid] = v
	dup.vertices = vertices
	return dup
}

// PushValue returns a copy of c with v pushed onto the operand stack.
func (c *Context[V]) PushValue(v ir.Value) *Context[V] {
	dup := c.clone()
	values := make([]ir.Value, len(c.values), len(c.values)+1)
	copy(values, c.values)
	dup.values = append(values, v)
	return dup
}

// PopValue returns the top of the operand stack and a copy of c without
// it. Panics on an empty stack: pushes and pops are paired by the
// pipeline builder, so an empty pop is an engine bug.
func (c *Context[V]) PopValue() (ir.Value, *Context[V]) {
	if len(c.values) == 0 {
		panic("interpreter: operand stack underflow")
	}
	top := c.values[len(c.values)-1]
	dup := c.clone()
	dup.values = c.values[:len(c.values)-1]
	return top, dup
}

// WithFold returns a copy of c carrying a fold's materialized contexts
// and aggregate values. The aggregate for name "" is the count.
func (c *Context[V]) WithFold(eid ir.Eid, contexts []*Context[V], aggregates map[string]ir.Value) *Context[V] {
	dup := c.clone()

	folded := make(map[foldKey]ir.Value, len(c.folded)+len(aggregates))
	for k, v := range c.folded {
		folded[k] = v
	}
	for name, v := range aggregates {
		folded[foldKey{eid: eid, name: name}] = v
	}
	dup.folded = folded

	foldedCtxs := make(map[ir.Eid][]*Context[V], len(c.foldedCtxs)+1)
	for k, v := range c.foldedCtxs {
		foldedCtxs[k] = v
	}
	foldedCtxs[eid] = contexts
	dup.foldedCtxs = foldedCtxs
	return dup
}

// FoldedValue returns a fold aggregate recorded by WithFold; name "" is
// the count.
func (c *Context[V]) FoldedValue(eid ir.Eid, name string) (ir.Value, bool) {
	v, ok := c.folded[foldKey{eid: eid, name: name}]
	return v, ok
}

// FoldedContexts returns the materialized inner contexts of a fold.
func (c *Context[V]) FoldedContexts(eid ir.Eid) []*Context[V] {
	return c.foldedCtxs[eid]
}
