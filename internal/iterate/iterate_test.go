package iterate

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFlatten_AdvancesOuterLazily(t *testing.T) {
	outerPulls := 0
	inners := [][]int{{1, 2}, {}, {3}}
	outer := Func[Iterator[int]](func() (Iterator[int], bool) {
		if outerPulls >= len(inners) {
			return nil, false
		}
		inner := FromSlice(inners[outerPulls])
		outerPulls++
		return inner, true
	})
	flat := Flatten(outer)

	got, ok := flat.Next()
	if !ok || got != 1 {
		t.Fatalf("first item = %d, %v", got, ok)
	}
	if outerPulls != 1 {
		t.Fatalf("outer advanced %d times before it had to", outerPulls)
	}
	rest := Collect(flat)
	if diff := cmp.Diff([]int{2, 3}, rest); diff != "" {
		t.Fatalf("remaining items mismatch (-want +got):\n%s", diff)
	}
}

func TestChain_And_Take(t *testing.T) {
	it := Take(Chain(FromSlice([]int{1, 2}), FromSlice([]int{3, 4})), 3)
	if diff := cmp.Diff([]int{1, 2, 3}, Collect(it)); diff != "" {
		t.Fatalf("chain/take mismatch (-want +got):\n%s", diff)
	}
}

func TestMapFilterOnce(t *testing.T) {
	it := Filter(Map(Chain(Once(1), FromSlice([]int{2, 3, 4})), func(v int) int { return v * 10 }), func(v int) bool { return v > 15 })
	if diff := cmp.Diff([]int{20, 30, 40}, Collect(it)); diff != "" {
		t.Fatalf("pipeline mismatch (-want +got):\n%s", diff)
	}
	if got := Collect(Empty[int]()); len(got) != 0 {
		t.Fatalf("Empty yielded %v", got)
	}
}
