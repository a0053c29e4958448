// Package interpreter executes a compiled query IR against an Adapter,
// producing a lazy stream of result rows. Execution is a single-threaded
// pull pipeline: every stage advances its input one item per output item.
// Folds materialize their inner results, and @recurse holds one
// breadth-first level per input context; nothing else is buffered.
package interpreter

import (
	"context"
	"regexp"
	"time"

	"github.com/trustfall/trustfall-go/internal/eventbus"
	"github.com/trustfall/trustfall-go/internal/events"
	"github.com/trustfall/trustfall-go/internal/ir"
	"github.com/trustfall/trustfall-go/internal/iterate"
	"github.com/trustfall/trustfall-go/internal/runid"
)

// Row is one result: output name to value.
type Row = map[string]ir.Value

// maxRecursionDepth bounds @recurse expansion regardless of what the IR
// declares; deeper IR is treated as corrupted.
const maxRecursionDepth = 4096

// ResultIterator streams result rows. After Next returns false, Err
// reports whether the stream ended normally or was cut short by an
// adapter or resource failure.
type ResultIterator struct {
	next func() (Row, bool)
	err  func() error
}

func (it *ResultIterator) Next() (Row, bool) { return it.next() }
func (it *ResultIterator) Err() error        { return it.err() }

// resultObserver is implemented by recording adapters that want to see
// produced rows and the end of the stream; see the trace recorder.
type resultObserver interface {
	ObserveResult(row Row)
	ObserveResultsExhausted()
}

type executionState[V any] struct {
	adapter     Adapter[V]
	query       *ir.Query
	args        map[string]ir.Value
	vertexIndex map[ir.Vid]*ir.Vertex
	regexes     map[*ir.Filter]*regexp.Regexp
	err         error
}

func (s *executionState[V]) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

// Execute runs query against adapter with the given argument bindings.
// Argument problems surface immediately; adapter and resource failures
// surface through the returned iterator's Err.
func Execute[V any](ctx context.Context, adapter Adapter[V], query *ir.Query, args map[string]ir.Value) (*ResultIterator, error) {
	s := &executionState[V]{
		adapter:     adapter,
		query:       query,
		args:        args,
		vertexIndex: make(map[ir.Vid]*ir.Vertex),
		regexes:     make(map[*ir.Filter]*regexp.Regexp),
	}
	indexComponent(s.vertexIndex, query.RootComponent)
	if err := s.validateArguments(); err != nil {
		return nil, err
	}

	ctx, _ = runid.NewContext(ctx)
	start := time.Now()
	eventbus.Publish(ctx, events.QueryStart{RootName: query.RootName})

	starting := adapter.ResolveStartingVertices(query.RootName, query.RootParameters)
	root := query.RootComponent.Root
	seed := iterate.Map(starting, func(v V) *Context[V] {
		vertex := v
		return NewContext[V]().WithVertex(root, &vertex)
	})

	final := s.computeComponent(query.RootComponent, seed)
	rows := s.constructOutputs(query.RootComponent, final)

	observer, _ := any(adapter).(resultObserver)
	finished := false
	rowCount := 0
	return &ResultIterator{
		next: func() (Row, bool) {
			if finished {
				return nil, false
			}
			row, ok := rows.Next()
			if !ok || s.err != nil {
				finished = true
				if observer != nil {
					observer.ObserveResultsExhausted()
				}
				eventbus.Publish(ctx, events.QueryFinish{
					RootName: query.RootName,
					Rows:     rowCount,
					Err:      s.err,
					Duration: time.Since(start),
				})
				return nil, false
			}
			rowCount++
			if observer != nil {
				observer.ObserveResult(row)
			}
			return row, true
		},
		err: func() error { return s.err },
	}, nil
}

func indexComponent(index map[ir.Vid]*ir.Vertex, comp *ir.Component) {
	for vid, vertex := range comp.Vertices {
		index[vid] = vertex
	}
	for _, fold := range comp.Folds {
		indexComponent(index, fold.Component)
	}
}

// validateArguments checks the argument bindings against the query's
// inferred variable types and pre-compiles regex operands.
func (s *executionState[V]) validateArguments() error {
	for name, typeRef := range s.query.Variables {
		value, ok := s.args[name]
		if !ok {
			return &ArgumentError{Kind: ArgumentMissing, Name: name}
		}
		if !typeRef.Conforms(value) {
			return &ArgumentError{
				Kind:   ArgumentIllTyped,
				Name:   name,
				Detail: value.String() + " is not a valid " + typeRef.String(),
			}
		}
	}
	for name := range s.args {
		if _, declared := s.query.Variables[name]; !declared {
			return &ArgumentError{Kind: ArgumentExtra, Name: name}
		}
	}
	return s.compileRegexes(s.query.RootComponent)
}

func (s *executionState[V]) compileRegexes(comp *ir.Component) error {
	compile := func(f *ir.Filter) error {
		if f.Op != ir.OpRegex && f.Op != ir.OpNotRegex {
			return nil
		}
		if f.Pattern != nil {
			s.regexes[f] = f.Pattern
			return nil
		}
		if f.Operand == nil || f.Operand.Kind != ir.OperandVariable {
			return nil // tag operands compile when the value is seen
		}
		raw, ok := s.args[f.Operand.Name].AsString()
		if !ok {
			return &ArgumentError{Kind: ArgumentIllTyped, Name: f.Operand.Name, Detail: "regex pattern must be a string"}
		}
		pattern, err := regexp.Compile(raw)
		if err != nil {
			return &ArgumentError{Kind: ArgumentIllTyped, Name: f.Operand.Name, Detail: err.Error()}
		}
		s.regexes[f] = pattern
		return nil
	}
	for _, vertex := range comp.Vertices {
		for _, f := range vertex.Filters {
			if err := compile(f); err != nil {
				return err
			}
		}
	}
	for _, fold := range comp.Folds {
		for _, f := range fold.PostFilters {
			if err := compile(f); err != nil {
				return err
			}
		}
		if err := s.compileRegexes(fold.Component); err != nil {
			return err
		}
	}
	return nil
}

// computeComponent runs one query component over a stream of contexts
// whose root vertex is already bound. It is reentrant: folds call it for
// their nested components.
func (s *executionState[V]) computeComponent(comp *ir.Component, contexts ContextIterator[V]) ContextIterator[V] {
	iter := s.vertexStages(comp.Vertices[comp.Root], contexts)
	for _, eid := range comp.EidOrder() {
		if edge, ok := comp.Edges[eid]; ok {
			iter = s.expandEdge(edge, iter)
			iter = s.vertexStages(comp.Vertices[edge.ToVid], iter)
		} else {
			fold := comp.Folds[eid]
			iter = s.computeFold(fold, iter)
			for _, f := range fold.PostFilters {
				iter = s.applyPostFilter(fold, f, iter)
			}
		}
	}
	return iter
}

// vertexStages applies a vertex's coercion and filters.
func (s *executionState[V]) vertexStages(vertex *ir.Vertex, contexts ContextIterator[V]) ContextIterator[V] {
	iter := contexts
	if vertex.CoercedFrom != "" {
		iter = s.applyCoercion(vertex, iter)
	}
	for _, f := range vertex.Filters {
		iter = s.applyFilter(vertex, f, iter)
	}
	return iter
}

// applyCoercion drops contexts whose active vertex is not an instance of
// the vertex's coerced type. Optional-null contexts pass through.
func (s *executionState[V]) applyCoercion(vertex *ir.Vertex, contexts ContextIterator[V]) ContextIterator[V] {
	out := s.adapter.ResolveCoercion(contexts, vertex.CoercedFrom, vertex.TypeName)
	return iterate.Func[*Context[V]](func() (*Context[V], bool) {
		for {
			if s.err != nil {
				return nil, false
			}
			c, ok := out.Next()
			if !ok {
				return nil, false
			}
			if c.Ctx.ActiveVertex() == nil || c.CanCoerce {
				return c.Ctx, true
			}
		}
	})
}

// expandEdge expands one non-fold edge: flattening neighbors into the
// outer stream, propagating optional-null contexts, and running bounded
// recursion.
func (s *executionState[V]) expandEdge(edge *ir.Edge, contexts ContextIterator[V]) ContextIterator[V] {
	if edge.Recursive != nil {
		return s.expandRecursive(edge, contexts)
	}

	fromType := s.vertexIndex[edge.FromVid].TypeName
	activated := iterate.Map(contexts, func(ctx *Context[V]) *Context[V] {
		return ctx.Activate(ctx.VertexAt(edge.FromVid))
	})
	neighbors := s.adapter.ResolveNeighbors(activated, fromType, edge.EdgeName, edge.Parameters)

	type pending struct {
		ctx     *Context[V]
		inner   VertexIterator[V]
		yielded bool
	}
	var cur *pending
	return iterate.Func[*Context[V]](func() (*Context[V], bool) {
		for {
			if s.err != nil {
				return nil, false
			}
			if cur != nil {
				if v, ok := cur.inner.Next(); ok {
					cur.yielded = true
					vertex := v
					return cur.ctx.WithVertex(edge.ToVid, &vertex), true
				}
				finished := cur
				cur = nil
				if !finished.yielded && (finished.ctx.ActiveVertex() == nil || edge.Optional) {
					// No match: keep the row with a null binding when the
					// edge is optional or the source is itself null-bound.
					return finished.ctx.WithVertex(edge.ToVid, nil), true
				}
				continue
			}
			n, ok := neighbors.Next()
			if !ok {
				return nil, false
			}
			cur = &pending{ctx: n.Ctx, inner: n.Neighbors}
		}
	})
}

// expandRecursive emits, per input context, the source vertex at depth 0
// and then each level of neighbors up to the declared depth, in
// breadth-first order. One level per input context is held in memory at
// a time.
func (s *executionState[V]) expandRecursive(edge *ir.Edge, contexts ContextIterator[V]) ContextIterator[V] {
	fromType := s.vertexIndex[edge.FromVid].TypeName
	toType := s.vertexIndex[edge.ToVid].TypeName
	depth := edge.Recursive.Depth
	if depth > maxRecursionDepth {
		s.fail(&ResourceExhaustedError{Detail: "declared recursion depth exceeds the engine limit"})
		return iterate.Empty[*Context[V]]()
	}

	var buffer []*Context[V]
	pos := 0
	levelNum := 0

	nextLevel := func(level []*Context[V]) []*Context[V] {
		typeName := toType
		if levelNum == 0 {
			typeName = fromType
		}
		input := iterate.FromSlice(level)
		out := s.adapter.ResolveNeighbors(input, typeName, edge.EdgeName, edge.Parameters)
		var next []*Context[V]
		for {
			n, ok := out.Next()
			if !ok {
				return next
			}
			for {
				v, ok := n.Neighbors.Next()
				if !ok {
					break
				}
				vertex := v
				next = append(next, n.Ctx.WithVertex(edge.ToVid, &vertex))
			}
		}
	}

	return iterate.Func[*Context[V]](func() (*Context[V], bool) {
		for {
			if s.err != nil {
				return nil, false
			}
			if pos < len(buffer) {
				ctx := buffer[pos]
				pos++
				return ctx, true
			}
			if buffer != nil && levelNum < depth {
				expanded := nextLevel(buffer)
				levelNum++
				buffer = expanded
				pos = 0
				if len(buffer) > 0 {
					continue
				}
			}
			// Current input context fully recursed; pull the next one.
			buffer = nil
			pos = 0
			levelNum = 0
			outer, ok := contexts.Next()
			if !ok {
				return nil, false
			}
			source := outer.VertexAt(edge.FromVid)
			if source == nil {
				return outer.WithVertex(edge.ToVid, nil), true
			}
			buffer = []*Context[V]{outer.WithVertex(edge.ToVid, source)}
		}
	})
}

// applyFilter evaluates one @filter on the stream's active vertex. The
// filter is skipped, passing the context through, when the filtered
// vertex or the tag operand's vertex sits under an unmatched @optional.
func (s *executionState[V]) applyFilter(vertex *ir.Vertex, f *ir.Filter, contexts ContextIterator[V]) ContextIterator[V] {
	iter := s.pushActiveProperty(vertex.TypeName, f, contexts)
	if f.Operand != nil && f.Operand.Kind == ir.OperandTag {
		iter = s.pushContextFieldValue(f.Operand.Tag, iter)
	}
	return s.finishFilter(f, nil, iter)
}

// applyPostFilter evaluates a fold post-filter over the count aggregate.
func (s *executionState[V]) applyPostFilter(fold *ir.Fold, f *ir.Filter, contexts ContextIterator[V]) ContextIterator[V] {
	iter := iterate.Map(contexts, func(ctx *Context[V]) *Context[V] {
		count, ok := ctx.FoldedValue(fold.Eid, "")
		if !ok {
			count = ir.Null
		}
		return ctx.PushValue(count)
	})
	if f.Operand != nil && f.Operand.Kind == ir.OperandTag {
		iter = s.pushContextFieldValue(f.Operand.Tag, iter)
	}
	skip := func(ctx *Context[V]) bool { return ctx.VertexAt(fold.FromVid) == nil }
	return s.finishFilter(f, skip, iter)
}

// finishFilter pops the pushed operand values and decides each context's
// fate. The incoming stream carries [left] or [left, tag] on the operand
// stack. skip, when non-nil, overrides the active-vertex null check used
// for local filters.
func (s *executionState[V]) finishFilter(f *ir.Filter, skip func(*Context[V]) bool, contexts ContextIterator[V]) ContextIterator[V] {
	hasTag := f.Operand != nil && f.Operand.Kind == ir.OperandTag
	return iterate.Func[*Context[V]](func() (*Context[V], bool) {
		for {
			if s.err != nil {
				return nil, false
			}
			ctx, ok := contexts.Next()
			if !ok {
				return nil, false
			}
			var right ir.Value
			tagSkipped := false
			if hasTag {
				right, ctx = ctx.PopValue()
				tagSkipped = ctx.VertexAt(f.Operand.Tag.Vid) == nil
			}
			var left ir.Value
			left, ctx = ctx.PopValue()

			skipped := tagSkipped
			if skip != nil {
				skipped = skipped || skip(ctx)
			} else {
				skipped = skipped || ctx.ActiveVertex() == nil
			}
			if skipped {
				return ctx, true
			}

			if f.Operand != nil {
				switch f.Operand.Kind {
				case ir.OperandVariable:
					right = s.args[f.Operand.Name]
				case ir.OperandLiteral:
					right = f.Operand.Literal
				}
			}
			keep, err := evaluateOperation(f.Op, left, right, s.regexes[f])
			if err != nil {
				s.fail(&AdapterError{
					Operation: "filter",
					Field:     f.FieldName,
					Detail:    err.Error(),
				})
				return nil, false
			}
			if keep {
				return ctx, true
			}
		}
	})
}
