package interpreter

import (
	"github.com/trustfall/trustfall-go/internal/ir"
	"github.com/trustfall/trustfall-go/internal/iterate"
)

// VertexIterator is a lazy stream of adapter-opaque vertices.
type VertexIterator[V any] = iterate.Iterator[V]

// ContextIterator is a lazy stream of per-row contexts.
type ContextIterator[V any] = iterate.Iterator[*Context[V]]

// Property pairs a context with the resolved value of one of its active
// vertex's properties.
type Property[V any] struct {
	Ctx   *Context[V]
	Value ir.Value
}

// Neighbors pairs a context with the lazy stream of neighbor vertices
// along one edge.
type Neighbors[V any] struct {
	Ctx       *Context[V]
	Neighbors VertexIterator[V]
}

// Coercion pairs a context with whether its active vertex is an instance
// of the coercion target type.
type Coercion[V any] struct {
	Ctx       *Context[V]
	CanCoerce bool
}

// Adapter connects the engine to a data source. V is the adapter-chosen
// opaque vertex type; the engine never inspects it.
//
// Contract, shared by all four operations:
//   - Each operation consumes an input iterator of contexts and returns
//     an iterator yielding exactly one entry per input context, in input
//     order, before advancing the input further. This ordering is what
//     makes result rows and recorded traces deterministic.
//   - Input contexts are handed to the adapter read-only; the adapter
//     must not retain them past the yield that consumes them.
//   - A context whose active vertex is unset (an unmatched @optional
//     upstream) must resolve to Null for properties, an empty iterator
//     for neighbors, and false for coercions. The engine additionally
//     guards the property case, but adapters should not rely on that.
//   - Returned iterators are single-pass and single-threaded, and must be
//     safe to abandon at any point; adapters holding per-context
//     resources release them when their iterators stop being pulled.
type Adapter[V any] interface {
	// ResolveStartingVertices enumerates the roots of a query: the
	// vertices produced by the named edge on the schema's root type.
	ResolveStartingVertices(edgeName string, parameters map[string]ir.Value) VertexIterator[V]

	// ResolveProperty returns the named property of each context's active
	// vertex, which is of type typeName.
	ResolveProperty(contexts ContextIterator[V], typeName, fieldName string) iterate.Iterator[Property[V]]

	// ResolveNeighbors returns each context's neighbors along the named
	// edge. An empty inner iterator means no neighbors.
	ResolveNeighbors(contexts ContextIterator[V], typeName, edgeName string, parameters map[string]ir.Value) iterate.Iterator[Neighbors[V]]

	// ResolveCoercion reports whether each context's active vertex,
	// currently typed typeName, is an instance of coerceTo.
	ResolveCoercion(contexts ContextIterator[V], typeName, coerceTo string) iterate.Iterator[Coercion[V]]
}
