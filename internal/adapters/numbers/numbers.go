// Package numbers is the integer-graph data source used by the engine's
// tests and the CLI: nonnegative integers classified as Prime, Composite
// or Neither, with arithmetic edges between them.
package numbers

import (
	"github.com/trustfall/trustfall-go/internal/interpreter"
	"github.com/trustfall/trustfall-go/internal/ir"
	"github.com/trustfall/trustfall-go/internal/iterate"
)

// Vertex is one nonnegative integer.
type Vertex struct {
	Value int64 `json:"value"`
}

// TypeName classifies the vertex the way the schema does.
func (v Vertex) TypeName() string {
	switch {
	case isPrime(v.Value):
		return "Prime"
	case v.Value >= 4:
		return "Composite"
	default:
		return "Neither"
	}
}

// Adapter implements the engine's adapter contract over the integer
// graph. It is stateless; the zero value is ready to use.
type Adapter struct{}

// New returns the numbers adapter.
func New() *Adapter { return &Adapter{} }

func (a *Adapter) ResolveStartingVertices(edgeName string, parameters map[string]ir.Value) interpreter.VertexIterator[Vertex] {
	switch edgeName {
	case "Zero":
		return iterate.Once(Vertex{Value: 0})
	case "One":
		return iterate.Once(Vertex{Value: 1})
	case "Two":
		return iterate.Once(Vertex{Value: 2})
	case "Four":
		return iterate.Once(Vertex{Value: 4})
	case "Number":
		min, _ := parameters["min"].AsInt64()
		max, _ := parameters["max"].AsInt64()
		next := min
		return iterate.Func[Vertex](func() (Vertex, bool) {
			if next > max {
				return Vertex{}, false
			}
			v := Vertex{Value: next}
			next++
			return v, true
		})
	default:
		return iterate.Empty[Vertex]()
	}
}

func (a *Adapter) ResolveProperty(contexts interpreter.ContextIterator[Vertex], typeName, fieldName string) iterate.Iterator[interpreter.Property[Vertex]] {
	return iterate.Map(contexts, func(ctx *interpreter.Context[Vertex]) interpreter.Property[Vertex] {
		active := ctx.ActiveVertex()
		if active == nil {
			return interpreter.Property[Vertex]{Ctx: ctx, Value: ir.Null}
		}
		return interpreter.Property[Vertex]{Ctx: ctx, Value: property(*active, fieldName)}
	})
}

func property(v Vertex, fieldName string) ir.Value {
	switch fieldName {
	case "value":
		return ir.Int64(v.Value)
	case "name":
		return ir.String(englishName(v.Value))
	case "vowelsInName":
		return ir.Strings(vowels(englishName(v.Value)))
	default:
		return ir.Null
	}
}

func (a *Adapter) ResolveNeighbors(contexts interpreter.ContextIterator[Vertex], typeName, edgeName string, parameters map[string]ir.Value) iterate.Iterator[interpreter.Neighbors[Vertex]] {
	return iterate.Map(contexts, func(ctx *interpreter.Context[Vertex]) interpreter.Neighbors[Vertex] {
		active := ctx.ActiveVertex()
		if active == nil {
			return interpreter.Neighbors[Vertex]{Ctx: ctx, Neighbors: iterate.Empty[Vertex]()}
		}
		return interpreter.Neighbors[Vertex]{Ctx: ctx, Neighbors: neighbors(*active, edgeName, parameters)}
	})
}

func neighbors(v Vertex, edgeName string, parameters map[string]ir.Value) interpreter.VertexIterator[Vertex] {
	switch edgeName {
	case "successor":
		return iterate.Once(Vertex{Value: v.Value + 1})
	case "predecessor":
		if v.Value <= 0 {
			return iterate.Empty[Vertex]()
		}
		return iterate.Once(Vertex{Value: v.Value - 1})
	case "multiple":
		max, _ := parameters["max"].AsInt64()
		var out []Vertex
		for k := int64(2); k <= max; k++ {
			m := v.Value * k
			if isComposite(m) {
				out = append(out, Vertex{Value: m})
			}
		}
		return iterate.FromSlice(out)
	case "primeFactor":
		factors := primeFactors(v.Value)
		out := make([]Vertex, len(factors))
		for i, f := range factors {
			out[i] = Vertex{Value: f}
		}
		return iterate.FromSlice(out)
	default:
		return iterate.Empty[Vertex]()
	}
}

func (a *Adapter) ResolveCoercion(contexts interpreter.ContextIterator[Vertex], typeName, coerceTo string) iterate.Iterator[interpreter.Coercion[Vertex]] {
	return iterate.Map(contexts, func(ctx *interpreter.Context[Vertex]) interpreter.Coercion[Vertex] {
		active := ctx.ActiveVertex()
		if active == nil {
			return interpreter.Coercion[Vertex]{Ctx: ctx, CanCoerce: false}
		}
		can := coerceTo == "Number" || active.TypeName() == coerceTo
		return interpreter.Coercion[Vertex]{Ctx: ctx, CanCoerce: can}
	})
}

func isPrime(n int64) bool {
	if n < 2 {
		return false
	}
	for d := int64(2); d*d <= n; d++ {
		if n%d == 0 {
			return false
		}
	}
	return true
}

func isComposite(n int64) bool {
	return n >= 4 && !isPrime(n)
}

// primeFactors returns the distinct prime factors of n, ascending.
func primeFactors(n int64) []int64 {
	if n < 2 {
		return nil
	}
	var factors []int64
	for d := int64(2); d*d <= n; d++ {
		if n%d == 0 {
			factors = append(factors, d)
			for n%d == 0 {
				n /= d
			}
		}
	}
	if n > 1 {
		factors = append(factors, n)
	}
	return factors
}
