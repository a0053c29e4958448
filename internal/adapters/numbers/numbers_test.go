package numbers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustfall/trustfall-go/internal/ir"
	"github.com/trustfall/trustfall-go/internal/iterate"
)

func TestVertexTypeName(t *testing.T) {
	assert.Equal(t, "Neither", Vertex{Value: 0}.TypeName())
	assert.Equal(t, "Neither", Vertex{Value: 1}.TypeName())
	assert.Equal(t, "Prime", Vertex{Value: 2}.TypeName())
	assert.Equal(t, "Prime", Vertex{Value: 13}.TypeName())
	assert.Equal(t, "Composite", Vertex{Value: 4}.TypeName())
	assert.Equal(t, "Composite", Vertex{Value: 12}.TypeName())
}

func TestPrimeFactors(t *testing.T) {
	assert.Empty(t, primeFactors(0))
	assert.Empty(t, primeFactors(1))
	assert.Equal(t, []int64{2}, primeFactors(8))
	assert.Equal(t, []int64{2, 3}, primeFactors(12))
	assert.Equal(t, []int64{2, 3, 5}, primeFactors(30))
	assert.Equal(t, []int64{7}, primeFactors(7))
}

func TestEnglishName(t *testing.T) {
	cases := map[int64]string{
		0:      "zero",
		8:      "eight",
		9:      "nine",
		15:     "fifteen",
		21:     "twenty-one",
		40:     "forty",
		100:    "one hundred",
		105:    "one hundred five",
		999:    "nine hundred ninety-nine",
		1000:   "one thousand",
		12_340: "twelve thousand three hundred forty",
	}
	for n, want := range cases {
		assert.Equal(t, want, englishName(n), "name of %d", n)
	}
}

func TestVowels(t *testing.T) {
	assert.Equal(t, []string{"e", "i"}, vowels("eight"))
	assert.Equal(t, []string{"i", "e"}, vowels("nine"))
	assert.Equal(t, []string{"e"}, vowels("ten"))
	assert.Equal(t, []string{"o", "u"}, vowels("four"))
}

func TestStartingVertices(t *testing.T) {
	a := New()
	got := iterate.Collect(a.ResolveStartingVertices("Number", map[string]ir.Value{
		"min": ir.Int64(3), "max": ir.Int64(6),
	}))
	require.Len(t, got, 4)
	assert.Equal(t, int64(3), got[0].Value)
	assert.Equal(t, int64(6), got[3].Value)

	two := iterate.Collect(a.ResolveStartingVertices("Two", nil))
	require.Len(t, two, 1)
	assert.Equal(t, int64(2), two[0].Value)

	assert.Empty(t, iterate.Collect(a.ResolveStartingVertices("Unknown", nil)))
}

func TestNeighbors_Multiple(t *testing.T) {
	params := map[string]ir.Value{"max": ir.Int64(3)}
	collect := func(n int64) []int64 {
		var out []int64
		it := neighbors(Vertex{Value: n}, "multiple", params)
		for {
			v, ok := it.Next()
			if !ok {
				return out
			}
			out = append(out, v.Value)
		}
	}
	// Only composite multiples survive; 0 and 1 have none at all.
	assert.Empty(t, collect(0))
	assert.Empty(t, collect(1))
	assert.Equal(t, []int64{4, 6}, collect(2))
	assert.Equal(t, []int64{6, 9}, collect(3))
	assert.Equal(t, []int64{8, 12}, collect(4))
}

func TestNeighbors_SuccessorPredecessor(t *testing.T) {
	succ := iterate.Collect(neighbors(Vertex{Value: 5}, "successor", nil))
	require.Len(t, succ, 1)
	assert.Equal(t, int64(6), succ[0].Value)

	pred := iterate.Collect(neighbors(Vertex{Value: 5}, "predecessor", nil))
	require.Len(t, pred, 1)
	assert.Equal(t, int64(4), pred[0].Value)

	assert.Empty(t, iterate.Collect(neighbors(Vertex{Value: 0}, "predecessor", nil)))
}

func TestSchemaParses(t *testing.T) {
	s, err := Schema()
	require.NoError(t, err)
	require.NotNil(t, s.QueryType())
	numberEdge := s.QueryType().Field("Number")
	require.NotNil(t, numberEdge)
	assert.True(t, s.IsEdge(numberEdge))
	assert.True(t, s.IsSubtype("Number", "Prime"))
	assert.False(t, s.IsSubtype("Prime", "Composite"))
}
